package features

import (
	"errors"
)

// Sentinel error kinds for this package.
var (
	ErrRowMismatch = errors.New("feature inputs disagree on row count")
)
