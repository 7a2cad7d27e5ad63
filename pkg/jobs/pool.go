package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrPoolStopped is returned for work submitted to, or abandoned by, a stopped pool.
var ErrPoolStopped = errors.New("pool stopped")

// Task is a unit of work executed on a pool worker.
type Task func(ctx context.Context) error

// PoolConfig configures worker pool behaviour.
type PoolConfig struct {
	Workers    int
	BufferSize int
	Logger     *zap.Logger
}

type job struct {
	ctx      context.Context
	kind     string
	task     Task
	done     chan error
	enqueued time.Time
}

// Pool runs submitted tasks on a fixed set of goroutines so CPU-heavy work
// cannot fan out to one goroutine per request.
type Pool struct {
	name string

	workers    int
	bufferSize int
	logger     *zap.Logger

	jobs    chan job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewPool builds a pool; call Start before submitting work.
func NewPool(name string, cfg PoolConfig) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Pool{
		name:       name,
		workers:    cfg.Workers,
		bufferSize: cfg.BufferSize,
		logger:     cfg.Logger,
		jobs:       make(chan job, cfg.BufferSize),
	}
}

// Start launches the workers. Safe to call once.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i + 1)
	}
	p.started = true
	p.logger.Sugar().Infow("pool started", "pool", p.name, "workers", p.workers, "buffer", p.bufferSize)
}

// Stop cancels workers and waits for them to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.cancel()
	p.mu.Unlock()
	p.wg.Wait()
	p.logger.Sugar().Infow("pool stopped", "pool", p.name)
}

// Pending reports how many tasks are waiting for a worker.
func (p *Pool) Pending() int {
	return len(p.jobs)
}

// Do queues task and blocks until a worker has run it or ctx is done.
// When ctx ends first the task is skipped if it has not started yet.
func (p *Pool) Do(ctx context.Context, kind string, task Task) error {
	p.mu.Lock()
	poolCtx := p.ctx
	started := p.started
	p.mu.Unlock()

	if !started {
		return fmt.Errorf("pool %s not started", p.name)
	}

	j := job{ctx: ctx, kind: kind, task: task, done: make(chan error, 1), enqueued: time.Now()}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-poolCtx.Done():
		return ErrPoolStopped
	case p.jobs <- j:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-poolCtx.Done():
		return ErrPoolStopped
	case err := <-j.done:
		return err
	}
}

func (p *Pool) worker(workerID int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case j := <-p.jobs:
			j.done <- p.run(workerID, j)
		}
	}
}

func (p *Pool) run(workerID int, j job) (err error) {
	if ctxErr := j.ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Sugar().Errorw("task panicked", "pool", p.name, "worker", workerID, "kind", j.kind, "panic", r)
			err = fmt.Errorf("pool %s: task %s panicked: %v", p.name, j.kind, r)
		}
	}()

	if wait := time.Since(j.enqueued); wait > time.Second {
		p.logger.Sugar().Warnw("task waited long for a worker", "pool", p.name, "kind", j.kind, "wait", wait)
	}

	return j.task(j.ctx)
}
