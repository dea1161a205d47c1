package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/folioforge/folioforge/internal/common"
	"github.com/folioforge/folioforge/internal/cryptox"
	"github.com/folioforge/folioforge/internal/server/models"
	"github.com/folioforge/folioforge/internal/server/repositories/repomanager"
	"github.com/folioforge/folioforge/internal/server/storage"
	"github.com/folioforge/folioforge/internal/server/uploads"
)

// UploadService runs the full upload path: quota lookup, gatekeeper checks,
// encryption and blob storage, then the file record. The encryption key is
// held here and passed into each call, so a key rotation only needs a new
// service instance.
type UploadService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	gatekeeper  *uploads.Gatekeeper
	store       storage.BlobStore
	encKey      []byte
}

func NewUploadService(db *sql.DB, m repomanager.RepositoryManager, gk *uploads.Gatekeeper, store storage.BlobStore, encKey []byte) *UploadService {
	return &UploadService{
		db:          db,
		repomanager: m,
		gatekeeper:  gk,
		store:       store,
		encKey:      encKey,
	}
}

// Upload accepts one file for ownerID, enforcing the owner's current quota,
// and returns the persisted file record.
func (s *UploadService) Upload(ctx context.Context, ownerID string, up uploads.Upload, kind string) (*models.StoredFile, error) {
	fileRepo := s.repomanager.Files(s.db)

	current, err := fileRepo.CountByOwnerAndKind(ctx, ownerID, kind)
	if err != nil {
		return nil, fmt.Errorf("error counting uploads: %w", err)
	}

	accepted, err := s.gatekeeper.Accept(ctx, ownerID, up, kind, uploads.DefaultQuota(kind, current), s.encKey)
	if err != nil {
		return nil, err
	}

	file, err := fileRepo.Create(ctx, &models.StoredFile{
		OwnerID:    ownerID,
		Kind:       kind,
		StorageKey: accepted.StorageKey,
		Location:   accepted.Location,
		MimeType:   accepted.MimeType,
		SizeBytes:  accepted.SizeBytes,
		IV:         accepted.IV,
		AuthTag:    accepted.AuthTag,
	})
	if err != nil {
		return nil, fmt.Errorf("error recording upload: %w", err)
	}
	return file, nil
}

// Download fetches and decrypts a stored file for its owner. A file owned by
// someone else looks exactly like a missing one.
func (s *UploadService) Download(ctx context.Context, ownerID, fileID string) ([]byte, string, error) {
	fileRepo := s.repomanager.Files(s.db)

	file, err := fileRepo.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, "", common.ErrNotFound
		}
		return nil, "", common.ErrInternal
	}
	if file.OwnerID != ownerID {
		return nil, "", common.ErrNotFound
	}

	ciphertext, err := s.store.Get(ctx, file.Location)
	if err != nil {
		return nil, "", fmt.Errorf("error fetching upload: %w", err)
	}

	plaintext, err := cryptox.Decrypt(&cryptox.EncryptedPayload{
		Ciphertext: ciphertext,
		IV:         file.IV,
		AuthTag:    file.AuthTag,
	}, s.encKey)
	if err != nil {
		// Tag mismatch means corruption or tampering; fail the request.
		return nil, "", err
	}

	return plaintext, file.MimeType, nil
}
