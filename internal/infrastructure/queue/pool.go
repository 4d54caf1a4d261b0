package queue

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/99minutos/template-backend/internal/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// ErrPoolClosed is returned by Do after Close.
var ErrPoolClosed = errors.New("worker pool closed")

type job struct {
	ctx  context.Context
	fn   func() error
	done chan error
}

// Pool runs CPU-heavy jobs on a fixed set of workers so that request
// goroutines only wait, and at most numWorkers jobs run at the same time.
type Pool struct {
	name  string
	jobs  chan job
	quit  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
	log   zerolog.Logger
	depth prometheus.Gauge
	size  int

	// mu guards closed; enqueue holds it for reading while sending.
	mu     sync.RWMutex
	closed bool
}

// NewPool creates a Pool with numWorkers workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewPool(name string, numWorkers int, log zerolog.Logger) *Pool {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	return &Pool{
		name:  name,
		jobs:  make(chan job, channelBuffer),
		quit:  make(chan struct{}),
		log:   log,
		depth: metrics.WorkerQueueDepth.WithLabelValues(name),
		size:  numWorkers,
	}
}

// Start launches the worker goroutines. Workers stop when ctx is cancelled or
// Close is called.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.runWorker(ctx, i)
	}
	p.log.Debug().Str("pool", p.name).Int("workers", p.size).Msg("worker pool started")
}

// Do enqueues fn and waits for it to finish. If ctx ends first, Do returns
// ctx.Err(); a job that already started still runs to completion and its
// result is discarded.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	j := job{ctx: ctx, fn: fn, done: make(chan error, 1)}
	if err := p.enqueue(ctx, j); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-j.done:
		return err
	}
}

// enqueue never races with the drain in Close: a job is either refused or
// sits in the queue before Close starts draining.
func (p *Pool) enqueue(ctx context.Context, j job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.jobs <- j:
		p.depth.Set(float64(len(p.jobs)))
		return nil
	}
}

// Close stops the workers and waits for running jobs. Queued jobs that never
// started are failed with ErrPoolClosed.
func (p *Pool) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.quit)
		p.mu.Unlock()

		p.wg.Wait()
		for {
			select {
			case j := <-p.jobs:
				j.done <- ErrPoolClosed
			default:
				return
			}
		}
	})
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.quit:
			return
		case j := <-p.jobs:
			p.depth.Set(float64(len(p.jobs)))
			if j.ctx.Err() != nil {
				// the caller stopped waiting before we picked the job up
				j.done <- j.ctx.Err()
				continue
			}
			j.done <- p.run(id, j.fn)
		}
	}
}

func (p *Pool) run(id int, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().
				Str("pool", p.name).
				Str("worker_id", strconv.Itoa(id)).
				Interface("panic", r).
				Msg("job panicked")
			err = errors.New("worker pool: job panicked")
		}
	}()
	return fn()
}
