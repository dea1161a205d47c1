package models

import "time"

// Upload kinds gate which allow-list and ceiling apply.
const (
	KindResume = "resume"
	KindPhoto  = "photo"
)

// StoredFile records one encrypted upload. The ciphertext lives in the blob
// store under StorageKey; IV and AuthTag are kept here so the payload can be
// reassembled for decryption.
type StoredFile struct {
	ID         string
	OwnerID    string
	Kind       string
	StorageKey string
	Location   string
	MimeType   string
	SizeBytes  int64
	IV         []byte
	AuthTag    []byte
	CreatedAt  time.Time
}
