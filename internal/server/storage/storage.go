// Package storage provides the blob-store collaborator the upload path
// delegates to. The core treats it as opaque: bytes in, location out.
package storage

import "context"

// Metadata is attached to stored objects. The upload path records the IV and
// auth tag of the encrypted payload here in hex, alongside the DB record.
type Metadata map[string]string

// BlobStore is the narrow storage interface consumed by the upload service.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, meta Metadata) (location string, err error)
	Get(ctx context.Context, location string) ([]byte, error)
}
