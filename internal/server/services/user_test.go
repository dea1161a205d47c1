package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/folioforge/folioforge/internal/common"
	"github.com/folioforge/folioforge/internal/cryptox"
	"github.com/folioforge/folioforge/internal/dbx"
	"github.com/folioforge/folioforge/internal/server/auth"
	"github.com/folioforge/folioforge/internal/server/models"
	filesrepo "github.com/folioforge/folioforge/internal/server/repositories/files"
	usersrepo "github.com/folioforge/folioforge/internal/server/repositories/users"
)

// --- helpers ---

func newTokenManager(t *testing.T) *auth.Manager {
	t.Helper()
	m, err := auth.NewManager([]byte(strings.Repeat("k", auth.MinSecretLen)))
	if err != nil {
		t.Fatalf("auth.NewManager error: %v", err)
	}
	return m
}

type fakeUsersRepo struct {
	createOut *models.User
	createErr error

	getByEmailOut *models.User
	getByEmailErr error

	getByIDOut *models.User
	getByIDErr error

	lastLoginIDs []string
	lastLoginErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	u.ID = "generated-id"
	u.IsActive = true
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.getByEmailErr != nil {
		return nil, f.getByEmailErr
	}
	return f.getByEmailOut, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.getByIDErr != nil {
		return nil, f.getByIDErr
	}
	return f.getByIDOut, nil
}

func (f *fakeUsersRepo) UpdateLastLogin(ctx context.Context, id string) error {
	f.lastLoginIDs = append(f.lastLoginIDs, id)
	return f.lastLoginErr
}

func (f *fakeUsersRepo) SetEmailVerified(ctx context.Context, id string) error { return nil }

type fakeRepoManager struct {
	u *fakeUsersRepo
	f *fakeFilesRepo
}

func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository { return m.u }
func (m *fakeRepoManager) Files(db dbx.DBTX) filesrepo.Repository { return m.f }
func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func activeUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	return &models.User{
		ID:           "u1",
		Email:        "jane@example.com",
		PasswordHash: hash,
		Role:         "member",
		IsActive:     true,
	}
}

// txDB returns a mocked *sql.DB for flows that run inside dbx.WithTx. The
// repositories themselves are faked; only Begin/Commit/Rollback reach the
// mock.
func txDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// --- Register ---

func TestRegister_Success(t *testing.T) {
	db, mock := txDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := &fakeRepoManager{u: &fakeUsersRepo{getByEmailErr: common.ErrNotFound}}
	s := NewUserService(db, rm, newTokenManager(t))

	user, pair, err := s.Register(context.Background(), "Jane@Example.com ", "s3cret-enough")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if user.Email != "jane@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if !strings.HasPrefix(user.PasswordHash, "$argon2id$") {
		t.Fatalf("expected argon2id hash, got %q", user.PasswordHash)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected non-empty token pair")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("transaction expectations: %v", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db, mock := txDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := &fakeRepoManager{u: &fakeUsersRepo{getByEmailOut: &models.User{ID: "u1"}}}
	s := NewUserService(db, rm, newTokenManager(t))

	_, _, err := s.Register(context.Background(), "jane@example.com", "pw-enough")
	if !errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("duplicate registration must roll the transaction back: %v", err)
	}
}

func TestRegister_InvalidInput(t *testing.T) {
	rm := &fakeRepoManager{u: &fakeUsersRepo{getByEmailErr: common.ErrNotFound}}
	s := NewUserService(nil, rm, newTokenManager(t))

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"empty email", "", "pw"},
		{"no at sign", "janeexample.com", "pw"},
		{"empty password", "jane@example.com", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := s.Register(context.Background(), tc.email, tc.password)
			if !errors.Is(err, common.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

// --- Login ---

func TestLogin_Success(t *testing.T) {
	user := activeUser(t, "right-password")
	repo := &fakeUsersRepo{getByEmailOut: user}
	s := NewUserService(nil, &fakeRepoManager{u: repo}, newTokenManager(t))

	pair, err := s.Login(context.Background(), "jane@example.com", "right-password")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected non-empty token pair")
	}
	if len(repo.lastLoginIDs) != 1 || repo.lastLoginIDs[0] != "u1" {
		t.Fatalf("expected last-login update for u1, got %v", repo.lastLoginIDs)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	user := activeUser(t, "right-password")
	s := NewUserService(nil, &fakeRepoManager{u: &fakeUsersRepo{getByEmailOut: user}}, newTokenManager(t))

	_, err := s.Login(context.Background(), "jane@example.com", "wrong-password")
	if !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestLogin_UnknownEmail_SameError(t *testing.T) {
	s := NewUserService(nil, &fakeRepoManager{u: &fakeUsersRepo{getByEmailErr: common.ErrNotFound}}, newTokenManager(t))

	_, err := s.Login(context.Background(), "ghost@example.com", "whatever")
	if !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestLogin_InactiveAccount(t *testing.T) {
	user := activeUser(t, "right-password")
	user.IsActive = false
	s := NewUserService(nil, &fakeRepoManager{u: &fakeUsersRepo{getByEmailOut: user}}, newTokenManager(t))

	_, err := s.Login(context.Background(), "jane@example.com", "right-password")
	if !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

// --- Refresh ---

func TestRefresh_Success(t *testing.T) {
	tokens := newTokenManager(t)
	user := activeUser(t, "pw")
	s := NewUserService(nil, &fakeRepoManager{u: &fakeUsersRepo{getByIDOut: user}}, tokens)

	refresh, err := tokens.IssueRefresh("u1")
	if err != nil {
		t.Fatalf("IssueRefresh error: %v", err)
	}

	access, err := s.Refresh(context.Background(), refresh)
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}

	claims, err := tokens.VerifyAccess(access)
	if err != nil {
		t.Fatalf("minted access token does not verify: %v", err)
	}
	if claims.UserID != "u1" {
		t.Fatalf("expected access token for u1, got %q", claims.UserID)
	}
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	tokens := newTokenManager(t)
	s := NewUserService(nil, &fakeRepoManager{u: &fakeUsersRepo{}}, tokens)

	access, err := tokens.IssueAccess("u1", "jane@example.com", "member")
	if err != nil {
		t.Fatalf("IssueAccess error: %v", err)
	}

	_, err = s.Refresh(context.Background(), access)
	if !errors.Is(err, common.ErrWrongTokenType) {
		t.Fatalf("expected ErrWrongTokenType, got %v", err)
	}
}

func TestRefresh_DeletedUser(t *testing.T) {
	tokens := newTokenManager(t)
	s := NewUserService(nil, &fakeRepoManager{u: &fakeUsersRepo{getByIDErr: common.ErrNotFound}}, tokens)

	refresh, err := tokens.IssueRefresh("gone")
	if err != nil {
		t.Fatalf("IssueRefresh error: %v", err)
	}

	_, err = s.Refresh(context.Background(), refresh)
	if !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
