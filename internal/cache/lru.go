package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultLRUSize — ёмкость in-process кэша по умолчанию.
const DefaultLRUSize = 1024

type lruEntry struct {
	value     []byte
	expiresAt time.Time
}

// LRUBackend хранит записи в памяти процесса с вытеснением по LRU.
type LRUBackend struct {
	entries *lru.Cache[string, lruEntry]
	now     func() time.Time
}

// NewLRUBackend создаёт in-process бэкенд на size записей.
func NewLRUBackend(size int) (*LRUBackend, error) {
	if size <= 0 {
		size = DefaultLRUSize
	}
	entries, err := lru.New[string, lruEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &LRUBackend{entries: entries, now: time.Now}, nil
}

func (b *LRUBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	entry, ok := b.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !b.now().Before(entry.expiresAt) {
		b.entries.Remove(key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (b *LRUBackend) Set(_ context.Context, key string, value []byte, expiresAt time.Time) error {
	b.entries.Add(key, lruEntry{value: append([]byte(nil), value...), expiresAt: expiresAt})
	return nil
}

func (b *LRUBackend) Delete(_ context.Context, key string) error {
	b.entries.Remove(key)
	return nil
}

// Len возвращает число записей, включая ещё не вытесненные просроченные.
func (b *LRUBackend) Len() int {
	return b.entries.Len()
}

func (b *LRUBackend) Close() error {
	b.entries.Purge()
	return nil
}

var _ Backend = (*LRUBackend)(nil)
