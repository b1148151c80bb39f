// Package client talks to the casefile REST API.
//
// The Client interface is the contract used by the services and the sync
// reconciler; HTTPClient implements it over net/http with JSON bodies and a
// bearer token. Failures are reported as *APIError values that can be matched
// with errors.Is against ErrUnauthorized, ErrIncorrectFormat, ErrGeneric and
// ErrLoginFailed.
package client
