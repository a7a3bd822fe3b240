package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithCapacity bounds the number of stored reports. Once full, the oldest
// report is evicted. Values <= 0 mean unbounded.
func WithCapacity(capacity int) Option {
	return func(s *MemoryStore) {
		s.capacity = capacity
	}
}
