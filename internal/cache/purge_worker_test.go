package cache

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

type fakePurger struct {
	calls  atomic.Int32
	purged int64
	err    error
}

func (p *fakePurger) PurgeExpired(context.Context) (int64, error) {
	p.calls.Add(1)
	return p.purged, p.err
}

func TestPurgeWorker_PurgeOnce(t *testing.T) {
	purger := &fakePurger{purged: 3}
	worker := NewPurgeWorker(purger, WithPurgeMetrics(metrics.NewCacheMetricsWithRegisterer(prometheus.NewRegistry())))

	assert.Equal(t, int64(3), worker.PurgeOnce(context.Background()))
	assert.Equal(t, int32(1), purger.calls.Load())
}

func TestPurgeWorker_PurgeOnceError(t *testing.T) {
	worker := NewPurgeWorker(&fakePurger{purged: 5, err: errors.New("disk full")})
	assert.Zero(t, worker.PurgeOnce(context.Background()))

	canceled := NewPurgeWorker(&fakePurger{err: context.Canceled})
	assert.Zero(t, canceled.PurgeOnce(context.Background()))
}

func TestPurgeWorker_RunPurgesUntilCancelled(t *testing.T) {
	purger := &fakePurger{}
	worker := NewPurgeWorker(purger, WithPurgeInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return purger.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("purge worker did not stop after cancel")
	}
}

func TestPurgeWorker_NilPurgerReturnsImmediately(t *testing.T) {
	done := make(chan struct{})
	go func() {
		NewPurgeWorker(nil).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker with nil purger must return")
	}
}

func TestPurgeWorker_WithSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	backend, err := OpenSQLiteBackend(ctx, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	require.NoError(t, backend.Set(ctx, "stale", []byte("1"), time.Now().Add(-time.Minute)))
	require.NoError(t, backend.Set(ctx, "fresh", []byte("2"), time.Now().Add(time.Hour)))

	assert.Equal(t, int64(1), NewPurgeWorker(backend).PurgeOnce(ctx))

	_, ok, err := backend.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)
}
