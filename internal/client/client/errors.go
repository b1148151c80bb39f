package client

import "fmt"

type ErrorKind int

const (
	KindGeneric ErrorKind = iota
	KindUnauthorized
	KindIncorrectFormat
	KindLoginFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindIncorrectFormat:
		return "incorrect format"
	case KindLoginFailed:
		return "login failed"
	default:
		return "generic"
	}
}

// APIError is returned by every Client operation that fails.
type APIError struct {
	Kind   ErrorKind
	Reason string
}

func (e *APIError) Error() string {
	if e.Reason == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Is matches on kind, and on reason too when the target carries one.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

var (
	ErrUnauthorized    = &APIError{Kind: KindUnauthorized}
	ErrIncorrectFormat = &APIError{Kind: KindIncorrectFormat}
	ErrGeneric         = &APIError{Kind: KindGeneric}
	ErrLoginFailed     = &APIError{Kind: KindLoginFailed}
)

const (
	ReasonNoConnection = "no internet connection"
	ReasonUnknown      = "unknown reason"
)

func Unauthorized() *APIError { return &APIError{Kind: KindUnauthorized} }

func IncorrectFormat(reason string) *APIError {
	return &APIError{Kind: KindIncorrectFormat, Reason: reason}
}

func Generic(reason string) *APIError {
	return &APIError{Kind: KindGeneric, Reason: reason}
}

func LoginFailed(reason string) *APIError {
	return &APIError{Kind: KindLoginFailed, Reason: reason}
}
