package cachestore

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/goliatone/go-reactive-cache/cache"
)

// storeMetrics records cache activity through an OpenTelemetry meter.
// Entries are attributed by their leading key token (the entity kind),
// which keeps attribute cardinality bounded.
type storeMetrics struct {
	hits          metric.Int64Counter
	misses        metric.Int64Counter
	fetches       metric.Int64Counter
	fetchErrors   metric.Int64Counter
	invalidations metric.Int64Counter
}

// newStoreMetrics creates the counter set on the given meter. A nil meter
// falls back to the noop implementation.
func newStoreMetrics(meter metric.Meter) (*storeMetrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("cachestore")
	}

	hits, err := meter.Int64Counter(
		"cache.hits",
		metric.WithDescription("Reads served from a fresh cache entry"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		return nil, err
	}

	misses, err := meter.Int64Counter(
		"cache.misses",
		metric.WithDescription("Reads that required a fetch"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		return nil, err
	}

	fetches, err := meter.Int64Counter(
		"cache.fetches",
		metric.WithDescription("Fetch executions against the source of truth"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, err
	}

	fetchErrors, err := meter.Int64Counter(
		"cache.fetch_errors",
		metric.WithDescription("Fetch executions that returned an error"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	invalidations, err := meter.Int64Counter(
		"cache.invalidations",
		metric.WithDescription("Entries marked stale by prefix invalidation"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	return &storeMetrics{
		hits:          hits,
		misses:        misses,
		fetches:       fetches,
		fetchErrors:   fetchErrors,
		invalidations: invalidations,
	}, nil
}

func entityAttr(key cache.Key) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("cache.entity", key.First()))
}

func (m *storeMetrics) hit(ctx context.Context, key cache.Key) {
	m.hits.Add(ctx, 1, entityAttr(key))
}

func (m *storeMetrics) miss(ctx context.Context, key cache.Key) {
	m.misses.Add(ctx, 1, entityAttr(key))
}

func (m *storeMetrics) fetchDone(ctx context.Context, key cache.Key, err error) {
	opt := entityAttr(key)
	m.fetches.Add(ctx, 1, opt)
	if err != nil {
		m.fetchErrors.Add(ctx, 1, opt)
	}
}

func (m *storeMetrics) invalidated(ctx context.Context, prefix cache.Key, count int) {
	if count == 0 {
		return
	}
	m.invalidations.Add(ctx, int64(count), entityAttr(prefix))
}
