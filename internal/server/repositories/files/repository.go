// Package files provides the PostgreSQL-backed record store for encrypted
// uploads. The quota input to the upload gatekeeper comes from here.
package files

import (
	"context"

	"github.com/folioforge/folioforge/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.StoredFile) (*models.StoredFile, error)
	GetByID(ctx context.Context, id string) (*models.StoredFile, error)
	CountByOwnerAndKind(ctx context.Context, ownerID, kind string) (int, error)
	Delete(ctx context.Context, id string) error
}
