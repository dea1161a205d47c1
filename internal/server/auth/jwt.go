// Package auth issues and verifies the signed session tokens used by the
// HTTP layer. Tokens are stateless: validity is entirely a function of the
// HMAC signature and the embedded expiry, so the server keeps no session
// records.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/folioforge/folioforge/internal/common"
)

const (
	// MinSecretLen is the minimum accepted HMAC secret length. A shorter
	// secret is a fatal configuration error, not a per-request failure.
	MinSecretLen = 32

	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	AccessTokenTTL  = time.Hour
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims carries the registered claims plus the identity fields embedded in
// every token. No claim may be trusted before the signature verifies.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"uid"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"typ"`
}

// Manager signs and verifies tokens with a single symmetric secret (HS256).
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewManager validates the secret and returns a Manager with the default
// access/refresh lifetimes.
func NewManager(secret []byte) (*Manager, error) {
	if len(secret) < MinSecretLen {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}
	return &Manager{
		secret:     secret,
		accessTTL:  AccessTokenTTL,
		refreshTTL: RefreshTokenTTL,
	}, nil
}

// IssueAccess mints a short-lived access token carrying the user's identity.
func (m *Manager) IssueAccess(userID, email, role string) (string, error) {
	return m.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.accessTTL)),
			Subject:   userID,
		},
		UserID:    userID,
		Email:     email,
		Role:      role,
		TokenType: TokenTypeAccess,
	})
}

// IssueRefresh mints a long-lived refresh token. It carries only the user ID;
// a fresh access token is minted from the user record at refresh time.
func (m *Manager) IssueRefresh(userID string) (string, error) {
	return m.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.refreshTTL)),
			Subject:   userID,
		},
		UserID:    userID,
		TokenType: TokenTypeRefresh,
	})
}

// VerifyAccess parses and validates an access token. An otherwise valid
// refresh token is rejected with common.ErrWrongTokenType.
func (m *Manager) VerifyAccess(tokenString string) (*Claims, error) {
	return m.verify(tokenString, TokenTypeAccess)
}

// VerifyRefresh parses and validates a refresh token.
func (m *Manager) VerifyRefresh(tokenString string) (*Claims, error) {
	return m.verify(tokenString, TokenTypeRefresh)
}

func (m *Manager) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *Manager) verify(tokenString, wantType string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.ErrInvalidSignature
		}
		return m.secret, nil
	})
	if err != nil {
		// Expiry is checked with zero leeway; it is reported distinctly so
		// callers can choose between re-login and silent refresh.
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, common.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, common.ErrInvalidSignature
		default:
			return nil, common.ErrInvalidToken
		}
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	if claims.TokenType != wantType {
		return nil, common.ErrWrongTokenType
	}

	return claims, nil
}
