package export

import "github.com/okian/pitwall/pkg/logger"

// Option applies a configuration option to the Exporter.
type Option func(*Exporter)

// WithLogger sets the exporter logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}
