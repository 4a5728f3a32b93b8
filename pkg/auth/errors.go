package auth

import "errors"

var (
	// ErrNotConfigured indicates a scheme was selected (e.g. for the admin
	// surface) but its configuration lacks the data to ever succeed.
	ErrNotConfigured = errors.New("auth: scheme not configured")

	// ErrNoCustomValidator indicates adminAuth.type is "custom" but the
	// host registered no custom validator.
	ErrNoCustomValidator = errors.New("auth: no custom validator registered")

	errMalformedBasic = errors.New("auth: malformed basic credentials")
)
