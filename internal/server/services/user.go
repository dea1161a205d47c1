// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, and issuing/refreshing the
// signed session tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/folioforge/folioforge/internal/common"
	"github.com/folioforge/folioforge/internal/cryptox"
	"github.com/folioforge/folioforge/internal/dbx"
	"github.com/folioforge/folioforge/internal/server/auth"
	"github.com/folioforge/folioforge/internal/server/models"
	"github.com/folioforge/folioforge/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// dummyHash keeps the Login code path doing a full derivation for unknown
// emails, so response timing does not reveal whether an account exists.
var dummyHash = func() string {
	h, err := cryptox.HashPassword("placeholder-for-unknown-accounts")
	if err != nil {
		panic(err)
	}
	return h
}()

// UserService provides authentication-related operations:
// - Register: create accounts and mint an initial token pair
// - Login: verify credentials and mint tokens
// - Refresh: mint a new access token from a valid refresh token
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.Manager
}

// NewUserService constructs a UserService using repositories and the token
// manager.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.Manager) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
	}
}

// Register creates a new user with the given email and password and returns
// the stored record plus a fresh token pair. The duplicate check and the
// insert run in one transaction so two concurrent registrations for the same
// email cannot both pass the check.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, nil, fmt.Errorf("%w: invalid email", common.ErrInvalidInput)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, nil, err
	}

	var user *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		if _, err := repo.GetByEmail(ctx, email); err == nil {
			return common.ErrAlreadyExists
		} else if !errors.Is(err, common.ErrNotFound) {
			return common.ErrInternal
		}

		created, err := repo.Create(ctx, &models.User{Email: email, PasswordHash: hash})
		if err != nil {
			return fmt.Errorf("error creating user: %w", err)
		}
		user = created
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.generateTokenPair(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Login verifies the provided credentials and, on success, records the login
// time and returns a new TokenPair. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Burn the same derivation cost as the happy path.
			_, _ = cryptox.VerifyPassword(password, dummyHash)
			return nil, common.ErrUnauthorized
		}
		return nil, common.ErrInternal
	}

	ok, err := cryptox.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, common.ErrInternal
	}
	if !ok || !user.IsActive {
		return nil, common.ErrUnauthorized
	}

	if err := repo.UpdateLastLogin(ctx, user.ID); err != nil {
		return nil, common.ErrInternal
	}

	return s.generateTokenPair(user)
}

// Refresh validates a refresh token and mints a fresh access token for the
// account it names. Token-lifecycle errors pass through unchanged so the
// HTTP layer can distinguish expiry from tampering in its logs.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", err
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrUnauthorized
		}
		return "", common.ErrInternal
	}
	if !user.IsActive {
		return "", common.ErrUnauthorized
	}

	access, err := s.tokens.IssueAccess(user.ID, user.Email, user.Role)
	if err != nil {
		return "", common.ErrInternal
	}
	return access, nil
}

func (s *UserService) generateTokenPair(user *models.User) (*TokenPair, error) {
	access, err := s.tokens.IssueAccess(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, common.ErrInternal
	}
	refresh, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, common.ErrInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
