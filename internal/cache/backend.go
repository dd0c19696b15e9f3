// Package cache реализует cache-aside кэш поверх подключаемых бэкендов.
package cache

import (
	"context"
	"time"
)

// Backend хранит сериализованные значения с абсолютным временем истечения.
// Просроченные записи бэкенд обязан считать отсутствующими.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, expiresAt time.Time) error
	Delete(ctx context.Context, key string) error
	Close() error
}
