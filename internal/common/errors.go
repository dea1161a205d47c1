// Package common defines shared constants, sentinel errors, and small
// utilities used across the FolioForge security core. Callers should use
// errors.Is to match the sentinel values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")

	// Caller-input errors.
	ErrInvalidInput = errors.New("invalid input")

	// Crypto errors.
	ErrInvalidKey = errors.New("invalid key")
	ErrIntegrity  = errors.New("integrity check failed")

	// Token lifecycle errors. Never distinguished in user-visible messages;
	// callers use them to decide between re-login and silent refresh.
	ErrTokenExpired     = errors.New("token expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrWrongTokenType   = errors.New("wrong token type")
	ErrInvalidToken     = errors.New("invalid token")

	// Upload rejections. Safe to surface verbatim.
	ErrQuotaExceeded   = errors.New("quota exceeded")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")

	// Throttling.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)
