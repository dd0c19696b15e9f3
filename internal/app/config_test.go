package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ":50051", cfg.GRPCAddr)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.Equal(t, CacheDriverLRU, cfg.CacheDriver)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 10, cfg.LowStockThreshold)
	assert.Equal(t, PaymentGatewaySimulated, cfg.PaymentGateway)
	assert.False(t, cfg.KafkaEnabled())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	content := []byte(`grpc_addr: ":6000"
cache_driver: SQLite
cache_sqlite_path: /tmp/cache.db
low_stock_threshold: 3
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("OMS_METRICS_ADDR", ":7000")
	t.Setenv("OMS_KAFKA_BROKERS", "kafka-1:9092, ,kafka-2:9092")
	t.Setenv("OMS_PAYMENT_GATEWAY", "mock")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.GRPCAddr)
	assert.Equal(t, ":7000", cfg.MetricsAddr)
	assert.Equal(t, CacheDriverSQLite, cfg.CacheDriver)
	assert.Equal(t, "/tmp/cache.db", cfg.CacheSQLitePath)
	assert.Equal(t, 3, cfg.LowStockThreshold)
	assert.Equal(t, PaymentGatewayMock, cfg.PaymentGateway)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().GRPCAddr, cfg.GRPCAddr)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	t.Setenv("OMS_STORAGE_DRIVER", "mysql")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported storage driver")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "postgres without dsn",
			mutate: func(c *Config) { c.StorageDriver = StorageDriverPostgres },
			want:   "OMS_POSTGRES_DSN",
		},
		{
			name:   "unknown cache driver",
			mutate: func(c *Config) { c.CacheDriver = "redis" },
			want:   "unsupported cache driver",
		},
		{
			name:   "non positive cache size",
			mutate: func(c *Config) { c.CacheSize = 0 },
			want:   "cache size",
		},
		{
			name:   "sqlite without path",
			mutate: func(c *Config) { c.CacheDriver = CacheDriverSQLite; c.CacheSQLitePath = " " },
			want:   "OMS_CACHE_SQLITE_PATH",
		},
		{
			name:   "unknown gateway",
			mutate: func(c *Config) { c.PaymentGateway = "stripe" },
			want:   "unsupported payment gateway",
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.LogLevel = "loud" },
			want:   "log level",
		},
		{
			name:   "zero outbox batch",
			mutate: func(c *Config) { c.OutboxBatchSize = 0 },
			want:   "outbox",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
