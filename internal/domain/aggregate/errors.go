package aggregate

import (
	"errors"
)

// Sentinel error kinds for this package.
var (
	ErrInvalidWindow = errors.New("invalid window width")
	ErrRowMismatch   = errors.New("aggregate table does not match store")
)
