package split

import (
	"errors"
)

// Sentinel error kinds for this package.
var (
	ErrInvalidBoundaries = errors.New("invalid split boundaries")
)
