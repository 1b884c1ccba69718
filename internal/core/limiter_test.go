package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportLimiter_AcquireRelease(t *testing.T) {
	limiter := NewImportLimiter(2, time.Second)
	ctx := context.Background()

	releaseA, err := limiter.Acquire(ctx, "a", "api::article.article")
	require.NoError(t, err)
	releaseB, err := limiter.Acquire(ctx, "b", "api::homepage.homepage")
	require.NoError(t, err)

	status := limiter.Status()
	assert.Equal(t, 2, status.Active)
	assert.Equal(t, 0, status.Available)
	require.Len(t, status.Running, 2)
	assert.Equal(t, "a", status.Running[0].ID)
	assert.Equal(t, "api::article.article", status.Running[0].Model)

	releaseA()
	releaseA()
	status = limiter.Status()
	assert.Equal(t, 1, status.Active)
	assert.Equal(t, 1, status.Available)
	require.Len(t, status.Running, 1)
	assert.Equal(t, "b", status.Running[0].ID)

	releaseB()
	assert.Empty(t, limiter.Running())
}

func TestImportLimiter_AcquireFailures(t *testing.T) {
	tests := []struct {
		name    string
		maxWait time.Duration
		ctx     func() (context.Context, context.CancelFunc)
		wantErr error
	}{
		{
			name:    "wait time exceeded",
			maxWait: 30 * time.Millisecond,
			ctx:     func() (context.Context, context.CancelFunc) { return context.WithCancel(context.Background()) },
			wantErr: ErrTooManyImports,
		},
		{
			name:    "caller cancelled",
			maxWait: time.Minute,
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 20*time.Millisecond)
			},
			wantErr: context.DeadlineExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewImportLimiter(1, tt.maxWait)
			release, err := limiter.Acquire(context.Background(), "held", "api::article.article")
			require.NoError(t, err)
			defer release()

			ctx, cancel := tt.ctx()
			defer cancel()

			_, err = limiter.Acquire(ctx, "waiting", "api::article.article")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, limiter.Running(), 1)
		})
	}
}

func TestImportLimiter_ConcurrentAccess(t *testing.T) {
	const maxConcurrent = 3
	limiter := NewImportLimiter(maxConcurrent, time.Second)

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		maxObserved int
	)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			release, err := limiter.Acquire(context.Background(), fmt.Sprintf("import-%d", i), "api::article.article")
			if err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			defer release()

			mu.Lock()
			if n := limiter.Status().Active; n > maxObserved {
				maxObserved = n
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, maxObserved, maxConcurrent)
	assert.Empty(t, limiter.Running())
}

func TestImportLimiter_WaitForDrain(t *testing.T) {
	t.Run("idle limiter returns at once", func(t *testing.T) {
		limiter := NewImportLimiter(2, time.Second)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.NoError(t, limiter.WaitForDrain(ctx))
	})

	t.Run("returns when the last import finishes", func(t *testing.T) {
		limiter := NewImportLimiter(2, time.Second)
		releaseA, err := limiter.Acquire(context.Background(), "a", "api::article.article")
		require.NoError(t, err)
		releaseB, err := limiter.Acquire(context.Background(), "b", "api::article.article")
		require.NoError(t, err)

		go func() {
			time.Sleep(10 * time.Millisecond)
			releaseA()
			time.Sleep(10 * time.Millisecond)
			releaseB()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, limiter.WaitForDrain(ctx))
		assert.Empty(t, limiter.Running())
	})

	t.Run("timeout names running imports", func(t *testing.T) {
		limiter := NewImportLimiter(1, time.Second)
		release, err := limiter.Acquire(context.Background(), "slow", "api::homepage.homepage")
		require.NoError(t, err)
		defer release()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err = limiter.WaitForDrain(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.ErrorContains(t, err, "slow (api::homepage.homepage)")
	})

	t.Run("drains again after reuse", func(t *testing.T) {
		limiter := NewImportLimiter(1, time.Second)
		release, err := limiter.Acquire(context.Background(), "first", "api::article.article")
		require.NoError(t, err)
		release()
		require.NoError(t, limiter.WaitForDrain(context.Background()))

		release, err = limiter.Acquire(context.Background(), "second", "api::article.article")
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorContains(t, limiter.WaitForDrain(ctx), "second")
		release()
	})
}

func TestImportLimiter_StatusAndDefaults(t *testing.T) {
	limiter := NewImportLimiter(0, 0)

	release, err := limiter.Acquire(context.Background(), "a", "api::article.article")
	require.NoError(t, err)
	defer release()

	status := limiter.Status()
	assert.Equal(t, 1, status.Active)
	assert.Equal(t, DefaultMaxConcurrentImports-1, status.Available)
	assert.Equal(t, DefaultMaxConcurrentImports, status.MaxConcurrent)
	require.Len(t, status.Running, 1)
	assert.False(t, status.Running[0].StartedAt.IsZero())
}
