// Package common contains constants, sentinel errors and small helpers shared
// by the casefile client and reference server.
package common

const (
	// AuthorizationHeader carries the bearer access token.
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "

	// APIPrefix is the path prefix of every REST endpoint.
	APIPrefix = "/api/v1"
)
