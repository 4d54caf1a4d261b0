package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newStartedPool(t *testing.T, workers int) *Pool {
	t.Helper()
	p := NewPool("test", workers, zerolog.Nop())
	p.Start(context.Background())
	t.Cleanup(p.Close)
	return p
}

func TestPool_Do_ReturnsJobResult(t *testing.T) {
	p := newStartedPool(t, 2)

	want := errors.New("boom")
	if err := p.Do(context.Background(), func() error { return want }); !errors.Is(err, want) {
		t.Fatalf("expected job error, got %v", err)
	}
	if err := p.Do(context.Background(), func() error { return nil }); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const workers = 2
	p := newStartedPool(t, workers)

	var running, peak int32
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			_ = p.Do(context.Background(), func() error {
				n := atomic.AddInt32(&running, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	if peak > workers {
		t.Fatalf("expected at most %d concurrent jobs, saw %d", workers, peak)
	}
}

func TestPool_Do_ContextDeadline(t *testing.T) {
	p := newStartedPool(t, 1)

	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Do(ctx, func() error {
		<-release
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestPool_Do_RecoversPanics(t *testing.T) {
	p := newStartedPool(t, 1)

	err := p.Do(context.Background(), func() error { panic("bad job") })
	if err == nil {
		t.Fatalf("expected error from panicking job")
	}

	// the worker survives the panic
	if err := p.Do(context.Background(), func() error { return nil }); err != nil {
		t.Fatalf("expected pool to keep working, got %v", err)
	}
}

func TestPool_Do_AfterClose(t *testing.T) {
	p := NewPool("closed", 1, zerolog.Nop())
	p.Start(context.Background())
	p.Close()

	if err := p.Do(context.Background(), func() error { return nil }); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
}

func TestPool_CloseWhileSubmitting(t *testing.T) {
	for round := 0; round < 50; round++ {
		p := NewPool("racing", 2, zerolog.Nop())
		p.Start(context.Background())

		const callers = 16
		results := make(chan error, callers)
		start := make(chan struct{})
		for i := 0; i < callers; i++ {
			go func() {
				<-start
				results <- p.Do(context.Background(), func() error { return nil })
			}()
		}
		close(start)
		p.Close()

		timeout := time.After(2 * time.Second)
		for i := 0; i < callers; i++ {
			select {
			case err := <-results:
				if err != nil && !errors.Is(err, ErrPoolClosed) {
					t.Fatalf("round %d: unexpected error %v", round, err)
				}
			case <-timeout:
				t.Fatalf("round %d: Do never returned after Close", round)
			}
		}
	}
}
