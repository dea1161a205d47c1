// Package cryptox implements the cryptographic primitives of the security
// core: authenticated encryption for uploaded PII payloads and memory-hard
// password hashing.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/folioforge/folioforge/internal/common"
)

const (
	// KeySize is the only accepted key length (AES-256).
	KeySize = 32
	// IVSize is the nonce length used with GCM. Stored payloads rely on this
	// being fixed, so it must not change without a payload migration.
	IVSize = 16
	// TagSize is the GCM authentication tag length.
	TagSize = 16
)

// EncryptedPayload is the stored form of an encrypted byte payload. The three
// fields are kept separate so the wire layout can evolve without ambiguity;
// IV and AuthTag always have the fixed lengths above.
type EncryptedPayload struct {
	Ciphertext []byte
	IV         []byte
	AuthTag    []byte
}

// Encrypt seals plaintext under the given 256-bit key using AES-GCM with a
// fresh random IV per call. The key is supplied per call rather than held by
// the package, so callers can re-encrypt under a new key during rotation.
func Encrypt(plaintext, key []byte) (*EncryptedPayload, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	iv := common.GenerateRandByteArray(IVSize)

	// Seal appends the tag to the ciphertext; split them into separate fields.
	sealed := aesgcm.Seal(nil, iv, plaintext, nil)
	n := len(sealed) - TagSize

	return &EncryptedPayload{
		Ciphertext: sealed[:n],
		IV:         iv,
		AuthTag:    sealed[n:],
	}, nil
}

// Decrypt opens a payload previously produced by Encrypt. It fails closed:
// if the authentication tag does not verify against the ciphertext and IV
// under the given key, it returns common.ErrIntegrity and no plaintext.
func Decrypt(payload *EncryptedPayload, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(payload.IV) != IVSize || len(payload.AuthTag) != TagSize {
		return nil, fmt.Errorf("%w: malformed payload", common.ErrIntegrity)
	}

	sealed := make([]byte, 0, len(payload.Ciphertext)+TagSize)
	sealed = append(sealed, payload.Ciphertext...)
	sealed = append(sealed, payload.AuthTag...)

	plaintext, err := aesgcm.Open(nil, payload.IV, sealed, nil)
	if err != nil {
		return nil, common.ErrIntegrity
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", common.ErrInvalidKey, KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, IVSize)
}
