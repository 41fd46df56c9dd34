package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/voicemesh/logging"
)

// ErrSaverClosed is returned by Close when called twice.
var ErrSaverClosed = errors.New("saver closed")

// SaverOptions configure a Saver.
type SaverOptions struct {
	// Workers bounds concurrently running tasks.
	Workers int64
	// Queue bounds pending plus running tasks; Submit drops beyond it.
	Queue int64
	// Timeout limits a single task.
	Timeout time.Duration
	Logger  logging.Logger
}

// Saver runs fire-and-forget persistence tasks on a bounded pool. Submit never
// blocks; when the queue is full the task is dropped and logged.
type Saver struct {
	opts    SaverOptions
	queue   *semaphore.Weighted
	workers *semaphore.Weighted
	logger  logging.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewSaver creates a Saver with 4 workers, a queue of 64 and a 30s task timeout.
func NewSaver(optFns ...func(o *SaverOptions)) *Saver {
	opts := SaverOptions{
		Workers: 4,
		Queue:   64,
		Timeout: 30 * time.Second,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Workers < 1 {
		opts.Workers = 1
	}

	if opts.Queue < opts.Workers {
		opts.Queue = opts.Workers
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Saver{
		opts:    opts,
		queue:   semaphore.NewWeighted(opts.Queue),
		workers: semaphore.NewWeighted(opts.Workers),
		logger:  logging.OrNoOp(opts.Logger),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit schedules task and reports whether it was accepted.
func (s *Saver) Submit(name string, task func(ctx context.Context) error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.logger.Warn("memory.save.dropped", "task", name, "reason", "closed")
		return false
	}

	if !s.queue.TryAcquire(1) {
		s.logger.Warn("memory.save.dropped", "task", name, "reason", "queue full")
		return false
	}

	s.wg.Add(1)

	go s.run(name, task)

	return true
}

func (s *Saver) run(name string, task func(ctx context.Context) error) {
	defer s.wg.Done()
	defer s.queue.Release(1)

	if err := s.workers.Acquire(s.ctx, 1); err != nil {
		s.logger.Warn("memory.save.dropped", "task", name, "reason", "shutdown")
		return
	}
	defer s.workers.Release(1)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("memory.save.failed", "task", name, "error", fmt.Sprintf("panic: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(s.ctx, s.opts.Timeout)
	defer cancel()

	start := time.Now()

	if err := task(ctx); err != nil {
		s.logger.Error("memory.save.failed", "task", name, "error", err.Error())
		return
	}

	s.logger.Debug("memory.save.done", "task", name, "duration_ms", time.Since(start).Milliseconds())
}

// Close stops accepting tasks and waits for in-flight ones. When ctx ends
// first, running tasks are cancelled and ctx.Err is returned.
func (s *Saver) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSaverClosed
	}

	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})

	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done

		return ctx.Err()
	}
}
