package store

import (
	"errors"
)

// Sentinel error kinds for this package. Both abort a run before any
// aggregate is computed.
var (
	ErrSchemaViolation   = errors.New("schema violation")
	ErrOrderingViolation = errors.New("ordering violation")
)
