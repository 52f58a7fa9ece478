package service

import (
	"errors"
)

// Sentinel errors for this package.
var (
	ErrInvalidOption = errors.New("invalid service option")
	ErrSplitOrder    = errors.New("split partitions are not ordered in time")
)
