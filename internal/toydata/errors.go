package toydata

import "errors"

// ErrInvalidConfig is returned for an unusable generator Config.
var ErrInvalidConfig = errors.New("invalid toy data config")
