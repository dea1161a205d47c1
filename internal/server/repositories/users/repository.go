// Package users provides the PostgreSQL-backed account-record store consumed
// by the authentication service.
package users

import (
	"context"

	"github.com/folioforge/folioforge/internal/server/models"
)

// Repository is the narrow user-record interface the core depends on. The
// core never writes the record except through these operations.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string) error
	SetEmailVerified(ctx context.Context, id string) error
}
