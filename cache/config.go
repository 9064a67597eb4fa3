package cache

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.opentelemetry.io/otel/metric"
)

// Config holds the configuration for the keyed cache store. The cache
// package defines only the contract; construction of the default store
// implementation is wired from pkg/di.
type Config struct {
	// DefaultTTL is the freshness window applied when a caller does not
	// supply one. After this duration entries are considered stale and
	// refetch on their next observation. Must be greater than 0.
	DefaultTTL time.Duration

	// GCWindow is how long an entry outlives its last subscriber before
	// the store drops it. Zero drops entries as soon as the last
	// subscriber cancels; entries that never gain a subscriber are
	// collected only under a positive window, counted from their last
	// write or fetch.
	GCWindow time.Duration

	// Meter receives cache metrics (hits, misses, fetches,
	// invalidations). Nil disables metric recording.
	Meter metric.Meter
}

// DefaultConfig returns a Config with sensible defaults for most use
// cases.
func DefaultConfig() Config {
	return Config{
		DefaultTTL: 5 * time.Minute,
		GCWindow:   30 * time.Second,
	}
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.DefaultTTL, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.GCWindow, validation.Min(time.Duration(0))),
	)
}
