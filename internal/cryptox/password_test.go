package cryptox

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"

	"github.com/folioforge/folioforge/internal/common"
)

func TestHashPassword_VerifyRoundTrip(t *testing.T) {
	t.Parallel()

	encoded, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(encoded, "$argon2id$"))

	ok, err := VerifyPassword("correct horse battery staple", encoded)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashPassword_RandomSalt(t *testing.T) {
	t.Parallel()

	h1, err := HashPassword("same-password")
	require.NoError(t, err)
	h2, err := HashPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2, "two hashes of the same password must differ")
}

func TestHashPassword_EmptyInput(t *testing.T) {
	t.Parallel()

	_, err := HashPassword("")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestVerifyPassword_Mismatch(t *testing.T) {
	t.Parallel()

	encoded, err := HashPassword("right-password")
	require.NoError(t, err)

	ok, err := VerifyPassword("wrong-password", encoded)
	require.NoError(t, err, "a mismatch is not an error")
	assert.False(t, ok)
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		encoded string
	}{
		{"empty", ""},
		{"not phc", "plainhash"},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$a2V5"},
		{"bad version", "$argon2id$v=x$m=65536,t=1,p=4$c2FsdA$a2V5"},
		{"bad params", "$argon2id$v=19$m=,t=,p=$c2FsdA$a2V5"},
		{"bad salt b64", "$argon2id$v=19$m=65536,t=1,p=4$!!!$a2V5"},
		{"bad key b64", "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$!!!"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := VerifyPassword("whatever", tc.encoded)
			if !errors.Is(err, common.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestVerifyPassword_ParamsFromEncodedHash(t *testing.T) {
	t.Parallel()

	// A hash produced with non-default cost parameters still verifies,
	// since parameters come from the stored string, not package constants.
	salt := []byte("saltsalt16bytes!")
	key := argon2.IDKey([]byte("pw"), salt, 2, 8*1024, 1, 32)
	encoded := fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		8*1024, 2, 1,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)

	ok, err := VerifyPassword("pw", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("not-pw", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}
