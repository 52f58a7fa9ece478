package dedupe

type options struct {
	capacity int
}

// Option applies a configuration option to the InMemoryDeduper.
type Option func(*options)

// WithCapacity presizes the set for the expected number of keys.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}
