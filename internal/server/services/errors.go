// Package services contains the server-side business logic behind the REST
// API: authentication with two-factor sessions, beneficiary records,
// reference data and field submissions.
package services

import (
	"errors"
)

var (
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrPasswordTooShort = errors.New("password is too short")
	ErrNameRequired     = errors.New("name is required")
	// ErrNotVerified is returned for sessions that have not confirmed the
	// two-factor code yet.
	ErrNotVerified = errors.New("session is not verified")
)

const minPasswordLength = 8
