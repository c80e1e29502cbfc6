package model

import "errors"

// Error kinds shared by the server, the API client and the lifecycle controller.
// Callers wrap them with context and match with errors.Is.
var (
	ErrValidation          = errors.New("validation failed")
	ErrAuthorization       = errors.New("wrong password")
	ErrQuotaExceeded       = errors.New("quota exceeded")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrMalformedResponse   = errors.New("malformed upstream response")
)
