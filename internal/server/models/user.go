// Package models defines the records of the reference server.
package models

import "time"

type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash []byte
	FirstLogin   bool
	CreatedAt    time.Time
}

// Session backs one access token. Protected endpoints require Verified,
// which is set once the two-factor code was confirmed.
type Session struct {
	ID            string
	UserID        int64
	Code          string
	CodeExpiresAt time.Time
	Verified      bool
	ExpiresAt     time.Time
}
