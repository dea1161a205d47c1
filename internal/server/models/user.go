// Package models holds the persistent record types shared by repositories
// and services.
package models

import "time"

// User is the stored account record. PasswordHash is a self-describing PHC
// string; it is never logged or returned to a client.
type User struct {
	ID            string
	Email         string
	PasswordHash  string
	Role          string
	IsActive      bool
	EmailVerified bool
	LastLoginAt   *time.Time
	CreatedAt     time.Time
}
