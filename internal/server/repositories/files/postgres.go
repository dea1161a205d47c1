package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/folioforge/folioforge/internal/common"
	"github.com/folioforge/folioforge/internal/dbx"
	"github.com/folioforge/folioforge/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, file *models.StoredFile) (*models.StoredFile, error) {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}

	query := `
		INSERT INTO files (id, owner_id, kind, storage_key, location, mime_type, size_bytes, iv, auth_tag)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		file.ID, file.OwnerID, file.Kind, file.StorageKey, file.Location,
		file.MimeType, file.SizeBytes, file.IV, file.AuthTag).Scan(&file.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return file, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.StoredFile, error) {
	query := `
		SELECT id, owner_id, kind, storage_key, location, mime_type, size_bytes, iv, auth_tag, created_at
		FROM files
		WHERE id = $1
	`
	file := &models.StoredFile{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&file.ID, &file.OwnerID, &file.Kind, &file.StorageKey, &file.Location,
		&file.MimeType, &file.SizeBytes, &file.IV, &file.AuthTag, &file.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return file, nil
}

func (r *PostgresRepository) CountByOwnerAndKind(ctx context.Context, ownerID, kind string) (int, error) {
	query := `SELECT count(*) FROM files WHERE owner_id = $1 AND kind = $2`

	var n int
	if err := r.db.QueryRowContext(ctx, query, ownerID, kind).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM files WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
