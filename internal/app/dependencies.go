package app

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/cache"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/service/notification"
	"github.com/vladislavdragonenkov/storefront/internal/service/ordering"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

// Dependencies — собранные компоненты сервиса.
type Dependencies struct {
	Store    domain.Store
	Cache    *cache.Cache
	Catalog  *catalog.Service
	Orders   *ordering.Service
	Gateway  domain.PaymentGateway
	Notifier domain.Notifier
	Outbox   *outbox.Worker
	Kafka    *kafkaClients

	sqliteCache  *cache.SQLiteBackend
	cacheMetrics *metrics.CacheMetrics
	closers      []func() error
	logger       *log.Entry
}

// NewDependencies собирает зависимости по конфигурации. При ошибке уже
// открытые ресурсы закрываются.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (deps *Dependencies, err error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}
	deps = &Dependencies{logger: logger}
	defer func() {
		if err != nil {
			deps.Close()
			deps = nil
		}
	}()

	if deps.Store, err = openStore(ctx, cfg, logger); err != nil {
		return nil, err
	}
	deps.closers = append(deps.closers, deps.Store.Close)

	if cfg.SeedDemoData {
		if err = SeedDemoData(ctx, deps.Store, logger); err != nil {
			return nil, errors.Wrap(err, "seed demo data")
		}
	}

	backend, err := deps.openCacheBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	deps.cacheMetrics = metrics.NewCacheMetrics()
	deps.Cache = cache.New(backend,
		cache.WithLogger(logger.WithField("component", "cache")),
		cache.WithMetrics(deps.cacheMetrics),
		cache.WithDefaultTTL(cfg.CacheTTL),
	)
	deps.closers = append(deps.closers, deps.Cache.Close)

	if cfg.KafkaEnabled() {
		if deps.Kafka, err = newKafkaClients(cfg, logger); err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, deps.Kafka.producer.Close)
	}

	deps.Notifier = notification.NewLogNotifier(logger.WithField("component", "notifier"))
	if deps.Kafka != nil {
		deps.Notifier = notification.NewKafkaNotifier(deps.Kafka.producer, kafka.TopicNotifications)
	}

	deps.Gateway = newGateway(cfg, logger)

	deps.Catalog = catalog.NewService(deps.Store, deps.Cache, deps.Notifier,
		catalog.WithLogger(logger.WithField("component", "catalog")),
		catalog.WithLowStockThreshold(cfg.LowStockThreshold),
	)
	deps.Orders = ordering.NewService(deps.Store, deps.Gateway, deps.Notifier,
		ordering.WithLogger(logger.WithField("component", "ordering")),
		ordering.WithMetrics(metrics.NewOrderMetrics()),
		ordering.WithCatalogInvalidator(deps.Catalog),
		ordering.WithLowStockThreshold(cfg.LowStockThreshold),
	)

	deps.Outbox = deps.newOutboxWorker(cfg)

	if deps.Kafka != nil {
		if err = deps.Kafka.startConsumer(cfg, deps.Catalog, logger); err != nil {
			return nil, err
		}
	}
	return deps, nil
}

func openStore(ctx context.Context, cfg Config, logger *log.Entry) (domain.Store, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory:
		logger.Info("using in-memory storage")
		return memory.NewStore(), nil
	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("postgres storage requires OMS_POSTGRES_DSN")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, errors.Wrap(err, "open postgres")
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, errors.Wrap(err, "apply migrations")
			}
		}
		logger.Info("using postgres storage")
		return store, nil
	default:
		return nil, errors.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func (d *Dependencies) openCacheBackend(ctx context.Context, cfg Config) (cache.Backend, error) {
	switch cfg.CacheDriver {
	case CacheDriverSQLite:
		backend, err := cache.OpenSQLiteBackend(ctx, cfg.CacheSQLitePath)
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite cache")
		}
		d.sqliteCache = backend
		return backend, nil
	case CacheDriverLRU, "":
		size := cfg.CacheSize
		if size <= 0 {
			size = 4096
		}
		backend, err := cache.NewLRUBackend(size)
		if err != nil {
			return nil, errors.Wrap(err, "create lru cache")
		}
		return backend, nil
	default:
		return nil, errors.Errorf("unsupported cache driver %q", cfg.CacheDriver)
	}
}

func newGateway(cfg Config, logger *log.Entry) domain.PaymentGateway {
	var gateway domain.PaymentGateway
	switch cfg.PaymentGateway {
	case PaymentGatewayMock:
		gateway = payment.NewMockGateway()
	default:
		gateway = payment.NewSimulatedGateway(cfg.PaymentDelay, logger.WithField("component", "payment"))
	}
	return payment.NewBreakerGateway(gateway, cfg.PaymentMaxFailures, cfg.PaymentResetTimeout, logger.WithField("component", "payment-breaker"))
}

// newOutboxWorker публикует outbox в Kafka, а без брокеров пишет события в лог.
func (d *Dependencies) newOutboxWorker(cfg Config) *outbox.Worker {
	logger := d.logger.WithField("component", "outbox-worker")
	opts := []outbox.Option{
		outbox.WithLogger(logger),
		outbox.WithMetrics(metrics.NewOutboxMetrics()),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	}

	var publisher domain.OutboxPublisher = outbox.NewLogPublisher(logger)
	if d.Kafka != nil {
		publisher = kafka.NewOutboxPublisher(d.Kafka.producer, kafka.TopicOrderEvents, kafka.TopicInventoryEvents)
		opts = append(opts, outbox.WithDLQPublisher(kafka.NewDLQPublisher(d.Kafka.producer)))
	}
	return outbox.NewWorker(d.Store.Outbox(), publisher, opts...)
}

// CachePurgeWorker возвращает воркер очистки персистентного кэша или nil,
// если кэш хранится в памяти.
func (d *Dependencies) CachePurgeWorker(interval time.Duration) *cache.PurgeWorker {
	if d.sqliteCache == nil {
		return nil
	}
	return cache.NewPurgeWorker(d.sqliteCache,
		cache.WithPurgeLogger(d.logger.WithField("component", "cache-purge-worker")),
		cache.WithPurgeMetrics(d.cacheMetrics),
		cache.WithPurgeInterval(interval),
	)
}

// Close освобождает ресурсы в обратном порядке открытия.
func (d *Dependencies) Close() {
	if d.Kafka != nil {
		d.Kafka.stopConsumer(d.logger)
	}
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.logger.WithError(err).Warn("failed to close dependency")
		}
	}
	d.closers = nil
}
