package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// Error codes carried in JSON error bodies.
const (
	errCodeBadRequest = "bad_request"
	errCodeNotFound   = "not_found"
	errCodeNotReady   = "not_ready"
	errCodeInternal   = "internal_error"
)
