// Package repomanager wires concrete repository implementations to database
// handles and owns schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/folioforge/folioforge/internal/dbx"
	"github.com/folioforge/folioforge/internal/server/repositories/files"
	"github.com/folioforge/folioforge/internal/server/repositories/users"
)

// RepositoryManager hands out repositories bound to either *sql.DB or a
// transaction handle, so services can compose repo calls transactionally.
type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	Files(db dbx.DBTX) files.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
