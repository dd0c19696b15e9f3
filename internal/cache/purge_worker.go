package cache

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const defaultPurgeInterval = time.Minute

// Purger удаляет просроченные записи. Реализуется *SQLiteBackend.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// PurgeOptions — параметры PurgeWorker.
type PurgeOptions struct {
	Logger   *log.Entry
	Metrics  *metrics.CacheMetrics
	Interval time.Duration
}

// PurgeOption настраивает PurgeWorker.
type PurgeOption func(*PurgeOptions)

func WithPurgeLogger(logger *log.Entry) PurgeOption {
	return func(opts *PurgeOptions) { opts.Logger = logger }
}

func WithPurgeMetrics(m *metrics.CacheMetrics) PurgeOption {
	return func(opts *PurgeOptions) { opts.Metrics = m }
}

// WithPurgeInterval задаёт интервал между прогонами; неположительный заменяется минутой.
func WithPurgeInterval(interval time.Duration) PurgeOption {
	return func(opts *PurgeOptions) { opts.Interval = interval }
}

// PurgeWorker периодически чистит бэкенд от просроченных записей.
// LRU вытесняет записи сам, поэтому воркер нужен только персистентному бэкенду.
type PurgeWorker struct {
	purger   Purger
	logger   *log.Entry
	metrics  *metrics.CacheMetrics
	interval time.Duration
}

func NewPurgeWorker(purger Purger, options ...PurgeOption) *PurgeWorker {
	opts := PurgeOptions{Interval: defaultPurgeInterval}
	for _, option := range options {
		option(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "cache-purge-worker")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultPurgeInterval
	}
	return &PurgeWorker{
		purger:   purger,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		interval: opts.Interval,
	}
}

// Run чистит кэш сразу и затем каждые interval до отмены ctx.
func (w *PurgeWorker) Run(ctx context.Context) {
	if w.purger == nil {
		w.logger.Warn("cache purge worker is disabled: purger is nil")
		return
	}

	w.PurgeOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.PurgeOnce(ctx)
		}
	}
}

// PurgeOnce выполняет один прогон и возвращает число удалённых записей.
func (w *PurgeWorker) PurgeOnce(ctx context.Context) int64 {
	purged, err := w.purger.PurgeExpired(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		w.metrics.RecordPurge("error", 0)
		w.logger.WithError(err).Warn("cache purge run failed")
		return 0
	}

	w.metrics.RecordPurge("ok", purged)
	if purged > 0 {
		w.logger.WithField("purged", purged).Debug("expired cache entries purged")
	}
	return purged
}
