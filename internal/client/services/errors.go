package services

import "errors"

var (
	ErrNoSession          = errors.New("not logged in")
	ErrSessionExpired     = errors.New("session expired")
	ErrVerificationFailed = errors.New("verification code rejected")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrNotPushed          = errors.New("beneficiary has not been synced yet")
	ErrFormNotAvailable   = errors.New("form is not available offline")
	ErrUnknownQuestion    = errors.New("question does not belong to the form")
	ErrInvalidAnswer      = errors.New("invalid answer")
	ErrNothingChanged     = errors.New("no fields to update")
	ErrNameRequired       = errors.New("name is required")
	ErrUnknownCounty      = errors.New("unknown county code")
)
