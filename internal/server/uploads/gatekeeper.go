// Package uploads gates incoming résumé and photo files: quota, type, and
// size checks run before any byte is encrypted or persisted, then the
// accepted payload is sealed and handed to the blob store.
package uploads

import (
	"context"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/folioforge/folioforge/internal/common"
	"github.com/folioforge/folioforge/internal/cryptox"
	"github.com/folioforge/folioforge/internal/server/models"
	"github.com/folioforge/folioforge/internal/server/storage"
)

// Per-kind ceilings and quotas for the unpaid tier.
const (
	MaxResumeBytes = 10 << 20
	MaxPhotoBytes  = 5 << 20

	MaxResumesPerOwner = 2
	MaxPhotosPerOwner  = 3
)

var allowedMimeTypes = map[string]map[string]bool{
	models.KindResume: {
		"application/pdf": true,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
		"text/plain":    true,
		"text/markdown": true,
	},
	models.KindPhoto: {
		"image/jpeg": true,
		"image/png":  true,
		"image/webp": true,
	},
}

// Upload is one incoming file as declared by the client. DeclaredMimeType is
// client-supplied and only ever narrows what we accept; it never bypasses
// the size ceiling.
type Upload struct {
	Bytes            []byte
	DeclaredMimeType string
	SizeBytes        int64
	FileName         string
}

// Quota is the owner's current usage against the per-kind maximum.
type Quota struct {
	Current int
	Max     int
}

// DefaultQuota returns the unpaid-tier quota for a kind.
func DefaultQuota(kind string, current int) Quota {
	max := MaxResumesPerOwner
	if kind == models.KindPhoto {
		max = MaxPhotosPerOwner
	}
	return Quota{Current: current, Max: max}
}

// AcceptedFile is the result of a successful Accept: the encrypted payload
// already persisted in the blob store under a server-generated key.
type AcceptedFile struct {
	StorageKey string
	Location   string
	MimeType   string
	SizeBytes  int64
	IV         []byte
	AuthTag    []byte
}

// Gatekeeper composes the validation rules, the encryption unit, and the
// blob-store collaborator.
type Gatekeeper struct {
	store storage.BlobStore
}

func NewGatekeeper(store storage.BlobStore) *Gatekeeper {
	return &Gatekeeper{store: store}
}

// Accept validates the upload for the given kind and owner quota, encrypts
// the bytes under key, and stores the ciphertext. All rejections happen
// before the first cryptographic or storage operation.
func (g *Gatekeeper) Accept(ctx context.Context, ownerID string, up Upload, kind string, quota Quota, key []byte) (*AcceptedFile, error) {
	allowed, ok := allowedMimeTypes[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown upload kind %q", common.ErrInvalidInput, kind)
	}

	if quota.Current >= quota.Max {
		return nil, fmt.Errorf("%w: %d of %d %s uploads used", common.ErrQuotaExceeded, quota.Current, quota.Max, kind)
	}

	if !allowed[strings.ToLower(up.DeclaredMimeType)] {
		return nil, fmt.Errorf("%w: %q is not accepted for %s uploads", common.ErrUnsupportedType, up.DeclaredMimeType, kind)
	}

	if up.SizeBytes > maxBytes(kind) {
		return nil, fmt.Errorf("%w: %d bytes exceeds the %s ceiling of %d", common.ErrFileTooLarge, up.SizeBytes, kind, maxBytes(kind))
	}

	payload, err := cryptox.Encrypt(up.Bytes, key)
	if err != nil {
		return nil, err
	}

	storageKey := storageName(ownerID, up.FileName)
	location, err := g.store.Put(ctx, storageKey, payload.Ciphertext, storage.Metadata{
		"iv":       hex.EncodeToString(payload.IV),
		"auth-tag": hex.EncodeToString(payload.AuthTag),
	})
	if err != nil {
		return nil, fmt.Errorf("storing upload: %w", err)
	}

	return &AcceptedFile{
		StorageKey: storageKey,
		Location:   location,
		MimeType:   strings.ToLower(up.DeclaredMimeType),
		SizeBytes:  up.SizeBytes,
		IV:         payload.IV,
		AuthTag:    payload.AuthTag,
	}, nil
}

func maxBytes(kind string) int64 {
	if kind == models.KindPhoto {
		return MaxPhotoBytes
	}
	return MaxResumeBytes
}

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// storageName builds a collision-resistant key from the owner, the current
// time, and a random suffix. The client filename contributes only a
// sanitized extension, so crafted names cannot collide or traverse paths.
func storageName(ownerID, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if !extPattern.MatchString(ext) {
		ext = ""
	}
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%s/%d_%s%s", ownerID, time.Now().UnixMilli(), suffix, ext)
}
