package ordering

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestKeyedLocks_Exclusive(t *testing.T) {
	locks := newKeyedLocks()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locks.lock(context.Background(), "order-1")
			if err != nil {
				t.Error(err)
				return
			}
			defer unlock()

			mu.Lock()
			active++
			maxSeen = max(maxSeen, active)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Zero(t, locks.size())
}

func TestKeyedLocks_IndependentKeys(t *testing.T) {
	locks := newKeyedLocks()

	unlockA, err := locks.lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := locks.lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
	unlockB()

	assert.Equal(t, 1, locks.size())
}

func TestKeyedLocks_ContextCancelled(t *testing.T) {
	locks := newKeyedLocks()

	unlock, err := locks.lock(context.Background(), "order-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locks.lock(ctx, "order-1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, locks.size())

	unlock()
	assert.Zero(t, locks.size())
}

func TestRetryOnConflict(t *testing.T) {
	newSvc := func(attempts int) *Service {
		f := newFixture(t, WithRetryConfig(RetryConfig{MaxAttempts: attempts}))
		return f.svc
	}

	t.Run("succeeds after conflicts", func(t *testing.T) {
		svc := newSvc(3)
		calls := 0
		err := svc.retryOnConflict(context.Background(), "confirm", "o-1", func() error {
			calls++
			if calls < 3 {
				return domain.ErrOrderVersionConflict
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		svc := newSvc(2)
		calls := 0
		err := svc.retryOnConflict(context.Background(), "confirm", "o-1", func() error {
			calls++
			return domain.ErrOrderVersionConflict
		})
		require.ErrorIs(t, err, domain.ErrOrderVersionConflict)
		assert.Equal(t, 2, calls)
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		svc := newSvc(5)
		boom := errors.New("boom")
		calls := 0
		err := svc.retryOnConflict(context.Background(), "confirm", "o-1", func() error {
			calls++
			return boom
		})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("context cancellation stops backoff", func(t *testing.T) {
		f := newFixture(t, WithRetryConfig(RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour}))
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := f.svc.retryOnConflict(ctx, "confirm", "o-1", func() error {
			calls++
			cancel()
			return domain.ErrOrderVersionConflict
		})
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestRetryConfigNormalize(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: -1, InitialDelay: -time.Second, BackoffFactor: 0.5}.normalize()

	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Zero(t, cfg.InitialDelay)
	assert.Zero(t, cfg.MaxDelay)
	assert.Equal(t, 2.0, cfg.BackoffFactor)
}
