package export

import "errors"

// ErrWrite wraps every failure to persist an output file.
var ErrWrite = errors.New("export write failed")
