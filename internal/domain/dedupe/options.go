// Package dedupe removes already-contacted people from a candidate growth list.
package dedupe

type options struct {
	nameFallback bool
}

// Option applies a configuration option to Filter.
type Option func(*options)

// WithNameFallback toggles exact name matching for candidates whose profile
// URL yields no identifier. Enabled by default.
func WithNameFallback(enabled bool) Option {
	return func(o *options) {
		o.nameFallback = enabled
	}
}
