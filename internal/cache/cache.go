package cache

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// DefaultTTL применяется, когда ttl не задан.
const DefaultTTL = 5 * time.Minute

// Cache — best-effort кэш JSON-снимков. Ошибки бэкенда и декодирования
// логируются и считаются промахом, ошибки записи проглатываются.
type Cache struct {
	backend    Backend
	logger     *log.Entry
	metrics    *metrics.CacheMetrics
	defaultTTL time.Duration
	now        func() time.Time
	group      singleflight.Group

	// removals растёт при каждом Remove. Загрузка в GetOrSet не пишет результат,
	// если за время её работы было удаление: значение могло устареть.
	removals atomic.Uint64
	removeMu sync.RWMutex
}

// Option настраивает Cache.
type Option func(*Cache)

// WithLogger задаёт logger кэша.
func WithLogger(logger *log.Entry) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics задаёт счётчики попаданий и промахов.
func WithMetrics(m *metrics.CacheMetrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// WithDefaultTTL переопределяет DefaultTTL.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// New создаёт кэш поверх backend.
func New(backend Backend, opts ...Option) *Cache {
	c := &Cache{
		backend:    backend,
		logger:     log.WithField("component", "cache"),
		defaultTTL: DefaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get декодирует значение по ключу в dst. Возвращает false при промахе или любой ошибке.
func (c *Cache) Get(ctx context.Context, key string, dst any) bool {
	if c.lookup(ctx, key, dst) {
		c.metrics.Hit()
		return true
	}
	c.metrics.Miss()
	return false
}

// lookup читает и декодирует запись, не трогая счётчики попаданий.
func (c *Cache) lookup(ctx context.Context, key string, dst any) bool {
	raw, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.metrics.Error("get")
		c.logger.WithError(err).WithField("key", key).Warn("cache get failed")
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.metrics.Error("decode")
		c.logger.WithError(err).WithField("key", key).Warn("cache entry decode failed")
		return false
	}
	return true
}

// Set сохраняет value на ttl (DefaultTTL при ttl <= 0).
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.metrics.Error("encode")
		c.logger.WithError(err).WithField("key", key).Warn("cache entry encode failed")
		return
	}
	if err := c.backend.Set(ctx, key, raw, c.now().Add(ttl)); err != nil {
		c.metrics.Error("set")
		c.logger.WithError(err).WithField("key", key).Warn("cache set failed")
	}
}

// Remove удаляет ключ. Загрузки, начатые до удаления, свой результат не сохранят,
// а новые вызовы GetOrSet не присоединяются к ним.
func (c *Cache) Remove(ctx context.Context, key string) {
	c.removeMu.Lock()
	defer c.removeMu.Unlock()

	c.removals.Add(1)
	c.group.Forget(key)
	if err := c.backend.Delete(ctx, key); err != nil {
		c.metrics.Error("delete")
		c.logger.WithError(err).WithField("key", key).Warn("cache delete failed")
	}
}

// Exists сообщает, есть ли непросроченная запись.
func (c *Cache) Exists(ctx context.Context, key string) bool {
	_, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.metrics.Error("get")
		c.logger.WithError(err).WithField("key", key).Warn("cache exists check failed")
		return false
	}
	return ok
}

// Close закрывает бэкенд.
func (c *Cache) Close() error {
	return c.backend.Close()
}

// GetOrSet возвращает закэшированное значение или вычисляет его через factory
// и сохраняет на ttl. Параллельные промахи по одному ключу выполняют factory
// один раз. Ошибка factory возвращается и не кэшируется.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, factory func(ctx context.Context) (T, error)) (T, error) {
	var cached T
	if c.Get(ctx, key, &cached) {
		return cached, nil
	}

	// Вычисление не должно прерываться из-за отмены ctx первого вызвавшего:
	// его результат ждут другие участники.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		var fresh T
		if c.lookup(flightCtx, key, &fresh) {
			return fresh, nil
		}
		epoch := c.removals.Load()
		value, err := factory(flightCtx)
		if err != nil {
			return value, err
		}
		c.setUnlessRemoved(flightCtx, key, value, ttl, epoch)
		return value, nil
	})

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		value, _ := res.Val.(T)
		return value, nil
	}
}

// setUnlessRemoved сохраняет значение, только если после epoch не было Remove.
func (c *Cache) setUnlessRemoved(ctx context.Context, key string, value any, ttl time.Duration, epoch uint64) {
	c.removeMu.RLock()
	defer c.removeMu.RUnlock()

	if c.removals.Load() != epoch {
		c.logger.WithField("key", key).Debug("cache entry invalidated during load, not stored")
		return
	}
	c.Set(ctx, key, value, ttl)
}
