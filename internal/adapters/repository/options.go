package repository

import (
	"time"

	"github.com/okian/pitwall/pkg/logger"
)

// Option applies a configuration option to the FeatureStore.
type Option func(*FeatureStore)

// WithLogger sets the logger used for publish events.
func WithLogger(l logger.Logger) Option {
	return func(s *FeatureStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the publish timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *FeatureStore) {
		if now != nil {
			s.now = now
		}
	}
}
