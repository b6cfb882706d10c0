package models

import "errors"

var (
	// ErrMalformedCatalogRow is returned when a catalog row fails shape validation
	ErrMalformedCatalogRow = errors.New("malformed catalog row")

	// ErrCatalogEmpty is returned when a catalog source yields no rows
	ErrCatalogEmpty = errors.New("catalog source returned no products")

	// ErrNoiseDetected is returned when markup is a bot interstitial or captcha page
	ErrNoiseDetected = errors.New("interstitial or captcha page detected")

	// ErrNetworkFailure is returned when a secondary fetch fails or returns a non-success status
	ErrNetworkFailure = errors.New("secondary fetch failed")

	// ErrStaleResult marks an async result whose page identity is no longer current
	ErrStaleResult = errors.New("result belongs to a previous page identity")

	// ErrSessionNotFound is returned when a navigation session id is unknown
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionClosed is returned when a signal is sent to a closed session
	ErrSessionClosed = errors.New("session closed")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")
)
