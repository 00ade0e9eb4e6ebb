package services

import (
	"errors"
	"fmt"
)

// tokenExpiredCode is the Wyze response code for an expired access token.
const tokenExpiredCode = "2001"

// ErrTokenExpired signals that the vendor rejected the access token. It is
// handled internally by the refresh-then-retry path and only escapes when the
// retry fails as well.
var ErrTokenExpired = errors.New("wyze: access token expired")

// ErrNotAuthenticated is returned for signed calls attempted before login.
var ErrNotAuthenticated = errors.New("wyze: not authenticated")

// APIError is a non-success response from the Wyze API, carrying the vendor
// code and message.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Wyze API error: %s - %s", e.Code, e.Message)
}
