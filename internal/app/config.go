package app

import (
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	log "github.com/sirupsen/logrus"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"

	CacheDriverLRU    = "lru"
	CacheDriverSQLite = "sqlite"

	PaymentGatewayMock      = "mock"
	PaymentGatewaySimulated = "simulated"

	envPrefix = "OMS"
)

// DefaultConfigFiles — файлы конфигурации, которые читаются, если существуют.
var DefaultConfigFiles = []string{"storefront.yaml", "/etc/storefront/storefront.yaml"}

// Config — настройки сервиса. Значения берутся из тегов default, затем из
// YAML-файлов и переменных окружения с префиксом OMS_.
type Config struct {
	GRPCAddr    string `default:":50051" env:"GRPC_ADDR" yaml:"grpc_addr" usage:"gRPC listen address"`
	MetricsAddr string `default:":9090" env:"METRICS_ADDR" yaml:"metrics_addr" usage:"metrics and health HTTP address"`
	LogLevel    string `default:"info" env:"LOG_LEVEL" yaml:"log_level" usage:"logrus level"`
	LogFormat   string `default:"text" env:"LOG_FORMAT" yaml:"log_format" usage:"text or json"`

	StorageDriver       string `default:"memory" env:"STORAGE_DRIVER" yaml:"storage_driver" usage:"memory or postgres"`
	PostgresDSN         string `env:"POSTGRES_DSN" yaml:"postgres_dsn" usage:"PostgreSQL DSN"`
	PostgresAutoMigrate bool   `default:"true" env:"POSTGRES_AUTO_MIGRATE" yaml:"postgres_auto_migrate" usage:"apply migrations on start"`
	SeedDemoData        bool   `default:"false" env:"SEED_DEMO_DATA" yaml:"seed_demo_data" usage:"seed demo customers and products"`

	CacheDriver        string        `default:"lru" env:"CACHE_DRIVER" yaml:"cache_driver" usage:"lru or sqlite"`
	CacheSize          int           `default:"4096" env:"CACHE_SIZE" yaml:"cache_size" usage:"LRU capacity"`
	CacheSQLitePath    string        `default:"storefront-cache.db" env:"CACHE_SQLITE_PATH" yaml:"cache_sqlite_path" usage:"SQLite cache file"`
	CacheTTL           time.Duration `default:"5m" env:"CACHE_TTL" yaml:"cache_ttl" usage:"default cache TTL"`
	CachePurgeInterval time.Duration `default:"1m" env:"CACHE_PURGE_INTERVAL" yaml:"cache_purge_interval" usage:"expired SQLite entries purge interval"`

	KafkaBrokers       []string `env:"KAFKA_BROKERS" yaml:"kafka_brokers" usage:"comma separated brokers; empty disables Kafka"`
	KafkaConsumerGroup string   `default:"storefront-catalog" env:"KAFKA_CONSUMER_GROUP" yaml:"kafka_consumer_group" usage:"catalog invalidation consumer group"`

	OutboxPollInterval time.Duration `default:"1s" env:"OUTBOX_POLL_INTERVAL" yaml:"outbox_poll_interval"`
	OutboxBatchSize    int           `default:"100" env:"OUTBOX_BATCH_SIZE" yaml:"outbox_batch_size"`
	OutboxMaxAttempts  int           `default:"3" env:"OUTBOX_MAX_ATTEMPTS" yaml:"outbox_max_attempts"`
	OutboxRetryDelay   time.Duration `default:"100ms" env:"OUTBOX_RETRY_DELAY" yaml:"outbox_retry_delay"`
	OutboxMaxPending   int           `default:"1000" env:"OUTBOX_MAX_PENDING" yaml:"outbox_max_pending" usage:"backlog size that degrades health"`
	OutboxMaxAge       time.Duration `default:"5m" env:"OUTBOX_MAX_AGE" yaml:"outbox_max_age" usage:"backlog age that degrades health"`

	PaymentGateway      string        `default:"simulated" env:"PAYMENT_GATEWAY" yaml:"payment_gateway" usage:"mock or simulated"`
	PaymentDelay        time.Duration `default:"500ms" env:"PAYMENT_DELAY" yaml:"payment_delay"`
	PaymentMaxFailures  int           `default:"5" env:"PAYMENT_MAX_FAILURES" yaml:"payment_max_failures" usage:"failures before the breaker opens"`
	PaymentResetTimeout time.Duration `default:"30s" env:"PAYMENT_RESET_TIMEOUT" yaml:"payment_reset_timeout"`

	LowStockThreshold int           `default:"10" env:"LOW_STOCK_THRESHOLD" yaml:"low_stock_threshold"`
	ShutdownTimeout   time.Duration `default:"10s" env:"SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout"`
}

// DefaultConfig возвращает значения из тегов default.
func DefaultConfig() Config {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{SkipFiles: true, SkipEnv: true, SkipFlags: true})
	if err := loader.Load(); err != nil {
		panic(errors.Wrap(err, "load default config"))
	}
	return cfg
}

// LoadConfig читает конфигурацию из files (или DefaultConfigFiles) и окружения.
func LoadConfig(files ...string) (Config, error) {
	if len(files) == 0 {
		files = DefaultConfigFiles
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix:        envPrefix,
		SkipFlags:        true,
		AllowUnknownEnvs: true,
		Files:            files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
			".yml":  aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return Config{}, errors.Wrap(err, "load config")
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	c.CacheDriver = strings.ToLower(strings.TrimSpace(c.CacheDriver))
	c.PaymentGateway = strings.ToLower(strings.TrimSpace(c.PaymentGateway))
	c.PostgresDSN = strings.TrimSpace(c.PostgresDSN)

	brokers := c.KafkaBrokers[:0]
	for _, broker := range c.KafkaBrokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	c.KafkaBrokers = brokers
}

// Validate проверяет значения перечислений и обязательные параметры.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("postgres storage requires OMS_POSTGRES_DSN")
		}
	default:
		return errors.Errorf("unsupported storage driver %q", c.StorageDriver)
	}

	switch c.CacheDriver {
	case CacheDriverLRU:
		if c.CacheSize <= 0 {
			return errors.New("cache size must be positive")
		}
	case CacheDriverSQLite:
		if strings.TrimSpace(c.CacheSQLitePath) == "" {
			return errors.New("sqlite cache requires OMS_CACHE_SQLITE_PATH")
		}
	default:
		return errors.Errorf("unsupported cache driver %q", c.CacheDriver)
	}

	switch c.PaymentGateway {
	case PaymentGatewayMock, PaymentGatewaySimulated:
	default:
		return errors.Errorf("unsupported payment gateway %q", c.PaymentGateway)
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log level")
	}
	if c.OutboxBatchSize <= 0 || c.OutboxMaxAttempts <= 0 || c.OutboxPollInterval <= 0 {
		return errors.New("outbox batch size, attempts and poll interval must be positive")
	}
	return nil
}

// KafkaEnabled сообщает, настроены ли брокеры.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
