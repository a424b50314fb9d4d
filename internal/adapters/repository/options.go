package repository

import "time"

// Option applies a configuration option to the SQLStore.
type Option func(*SQLStore)

// WithClock sets the time source used for created_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *SQLStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithBusyRetries sets how many times a write transaction is attempted
// while the database reports SQLITE_BUSY or SQLITE_LOCKED.
func WithBusyRetries(attempts uint) Option {
	return func(s *SQLStore) {
		if attempts > 0 {
			s.busyRetries = attempts
		}
	}
}

// WithRetryDelay sets the base delay between busy retries.
func WithRetryDelay(d time.Duration) Option {
	return func(s *SQLStore) {
		if d > 0 {
			s.retryDelay = d
		}
	}
}
