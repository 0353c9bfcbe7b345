package api

import (
	"errors"
	"net/url"
	"strings"
)

// Input precondition failures. The client never returns these; callers check
// inputs with ValidateURL / ValidateUserID before invoking it.
var (
	ErrEmptyURL      = errors.New("URL cannot be empty")
	ErrInvalidURL    = errors.New("invalid URL format")
	ErrURLScheme     = errors.New("URL scheme must be http or https")
	ErrURLHost       = errors.New("URL must have a valid host")
	ErrMissingUserID = errors.New("user id is required")
)

// ValidateURL checks that raw is an absolute http(s) URL with a host
func ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return ErrEmptyURL
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidURL
	}
	if !parsed.IsAbs() {
		return ErrInvalidURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrURLScheme
	}
	if parsed.Host == "" {
		return ErrURLHost
	}
	return nil
}

// ValidateUserID checks that an analysis has an account to be attributed to
func ValidateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrMissingUserID
	}
	return nil
}
