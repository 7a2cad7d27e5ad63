package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startedPool(t *testing.T, workers int) *Pool {
	t.Helper()
	p := NewPool("test", PoolConfig{Workers: workers, BufferSize: 16})
	p.Start(context.Background())
	t.Cleanup(p.Stop)
	return p
}

func TestDoReturnsTaskResult(t *testing.T) {
	p := startedPool(t, 2)

	var out string
	err := p.Do(context.Background(), "echo", func(ctx context.Context) error {
		out = "done"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", out)

	boom := errors.New("boom")
	err = p.Do(context.Background(), "fail", func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestDoBoundsConcurrency(t *testing.T) {
	p := startedPool(t, 2)

	var running, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Do(context.Background(), "busy", func(ctx context.Context) error {
				now := atomic.AddInt32(&running, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if now <= old || atomic.CompareAndSwapInt32(&peak, old, now) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestDoHonoursCallerContext(t *testing.T) {
	p := startedPool(t, 1)

	release := make(chan struct{})
	busy := make(chan struct{})
	go func() {
		_ = p.Do(context.Background(), "block", func(ctx context.Context) error {
			close(busy)
			<-release
			return nil
		})
	}()
	<-busy

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	var ran int32
	err := p.Do(ctx, "late", func(ctx context.Context) error {
		atomic.StoreInt32(&ran, 1)
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&ran))
}

func TestDoRecoversPanics(t *testing.T) {
	p := startedPool(t, 1)
	err := p.Do(context.Background(), "panic", func(ctx context.Context) error { panic("bad") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestDoRequiresStart(t *testing.T) {
	p := NewPool("idle", PoolConfig{})
	err := p.Do(context.Background(), "noop", func(ctx context.Context) error { return nil })
	assert.Error(t, err)

	p.Start(context.Background())
	p.Stop()
	err = p.Do(context.Background(), "noop", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrPoolStopped)
}
