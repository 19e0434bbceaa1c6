package job

import (
	"context"
	"sync"
	"time"
)

const (
	defaultSubmissionTimeout = 30 * time.Minute
	defaultRetention         = 2 * time.Minute
)

// Registry tracks submissions by the form token that started them, so a
// double-clicked or resent form cannot create a second job while the first
// is still running.
type Registry struct {
	timeout   time.Duration
	retention time.Duration
	now       func() time.Time

	mu  sync.Mutex
	ops map[string]*Operation
	wg  sync.WaitGroup
}

func NewRegistry(timeout, retention time.Duration) *Registry {
	if timeout <= 0 {
		timeout = defaultSubmissionTimeout
	}
	if retention <= 0 {
		retention = defaultRetention
	}
	return &Registry{
		timeout:   timeout,
		retention: retention,
		now:       time.Now,
		ops:       make(map[string]*Operation),
	}
}

// Start runs fn in its own goroutine under token. The run outlives the
// caller's request: it keeps ctx's values but not its cancellation, and is
// bounded by the submission timeout instead.
func (r *Registry) Start(ctx context.Context, token string, fn RunFunc) (*Operation, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweepLocked(now)

	if existing, ok := r.ops[token]; ok && !existing.Done() {
		return nil, ErrSubmissionInFlight
	}

	op := newOperation(token, now)
	r.ops[token] = op

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		op.run(runCtx, fn, r.now)
	}()

	return op, nil
}

func (r *Registry) Get(token string) (*Operation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepLocked(r.now())

	op, ok := r.ops[token]
	if !ok {
		return nil, ErrUnknownSubmission
	}
	return op, nil
}

// Sweep evicts operations that finished longer than the retention period
// ago.
func (r *Registry) Sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(r.now())
}

func (r *Registry) sweepLocked(now time.Time) {
	for token, op := range r.ops {
		if op.expired(now, r.retention) {
			delete(r.ops, token)
		}
	}
}

// Wait blocks until every started run has returned or ctx is done.
func (r *Registry) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
