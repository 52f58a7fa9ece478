package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("feature row not found")
	ErrNotPublished = errors.New("no feature table published yet")
)
