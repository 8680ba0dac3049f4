// Package common contains shared constants, error kinds and small helpers used
// across the timeline server and client.
package common

const (
	// AccessTokenCookieName is the cookie that carries the access token for
	// browser-style callers that do not set the Authorization header.
	AccessTokenCookieName = "access_token"

	// AuthorizationHeaderName and BearerPrefix describe the token header used by
	// the API client.
	AuthorizationHeaderName = "Authorization"
	BearerPrefix            = "Bearer "

	// TempIDPrefix marks client-side placeholder ids that were never persisted
	// on the server.
	TempIDPrefix = "temp-"

	// DateLayout is the wire format of event dates.
	DateLayout = "2006-01-02"
)
