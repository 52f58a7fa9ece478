package warehouse

import (
	"errors"

	"github.com/okian/pitwall/internal/domain/store"
)

// Sentinel kinds for warehouse errors.
var (
	// ErrSchemaViolation is shared with the store so callers test one kind.
	ErrSchemaViolation   = store.ErrSchemaViolation
	ErrUnsupportedDriver = errors.New("unsupported warehouse driver")
)
