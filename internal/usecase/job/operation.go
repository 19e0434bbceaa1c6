package job

import (
	"context"
	"fmt"
	"sync"
	"time"

	"image-enhancer/internal/domain"
)

// RunFunc performs one submission. report may be called any number of
// times before RunFunc returns and never after.
type RunFunc func(ctx context.Context, report func(float64)) (domain.Job, error)

// Operation is one in-flight or finished submission. It keeps only the
// latest state: the highest progress seen and the terminal event. Readers
// wait on changed, which is closed and replaced on every update, so the
// submitting goroutine never blocks on a slow reader.
type Operation struct {
	token     string
	startedAt time.Time

	mu         sync.Mutex
	progress   float64
	terminal   *domain.SubmissionEvent
	finishedAt time.Time
	changed    chan struct{}
}

func newOperation(token string, now time.Time) *Operation {
	return &Operation{
		token:     token,
		startedAt: now,
		progress:  -1,
		changed:   make(chan struct{}),
	}
}

func (o *Operation) Token() string {
	return o.token
}

func (o *Operation) run(ctx context.Context, fn RunFunc, now func() time.Time) {
	defer func() {
		if r := recover(); r != nil {
			o.finish(domain.SubmissionEvent{
				Kind: domain.EventFailed,
				Err:  fmt.Errorf("submission panicked: %v", r),
			}, now())
		}
	}()

	job, err := fn(ctx, o.report)
	if err != nil {
		o.finish(domain.SubmissionEvent{Kind: domain.EventFailed, Err: err}, now())
		return
	}
	o.finish(domain.SubmissionEvent{Kind: domain.EventSucceeded, Job: &job}, now())
}

func (o *Operation) report(fraction float64) {
	fraction = min(max(fraction, 0), 1)

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.terminal != nil || fraction <= o.progress {
		return
	}
	o.progress = fraction
	o.broadcastLocked()
}

func (o *Operation) finish(event domain.SubmissionEvent, at time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.terminal != nil {
		return
	}
	o.terminal = &event
	o.finishedAt = at
	o.broadcastLocked()
}

func (o *Operation) broadcastLocked() {
	close(o.changed)
	o.changed = make(chan struct{})
}

func (o *Operation) snapshot() (float64, *domain.SubmissionEvent, <-chan struct{}) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress, o.terminal, o.changed
}

// Done reports whether the terminal event has been recorded.
func (o *Operation) Done() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.terminal != nil
}

func (o *Operation) expired(now time.Time, retention time.Duration) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.terminal != nil && now.Sub(o.finishedAt) >= retention
}

// Subscribe starts a new reader at the beginning of the operation's
// history. Each subscription has its own cursor.
func (o *Operation) Subscribe() *Subscription {
	return &Subscription{
		op:       o,
		last:     -1,
		disposed: make(chan struct{}),
	}
}

// Wait blocks until the operation finishes and returns its terminal event.
func (o *Operation) Wait(ctx context.Context) (domain.SubmissionEvent, error) {
	for {
		_, terminal, changed := o.snapshot()
		if terminal != nil {
			return *terminal, nil
		}

		select {
		case <-ctx.Done():
			return domain.SubmissionEvent{}, ctx.Err()
		case <-changed:
		}
	}
}

// Subscription is a single reader's view of an Operation. Next is meant to
// be called from one goroutine; Dispose may be called from any.
type Subscription struct {
	op           *Operation
	last         float64
	terminalSeen bool

	disposeOnce sync.Once
	disposed    chan struct{}
}

// Next returns the next event. Progress values are strictly increasing and
// intermediate samples may be coalesced. The terminal event comes last and
// exactly once; after it, or after Dispose or ctx cancellation, Next
// returns false.
func (s *Subscription) Next(ctx context.Context) (domain.SubmissionEvent, bool) {
	for {
		if s.isDisposed() || s.terminalSeen {
			return domain.SubmissionEvent{}, false
		}

		progress, terminal, changed := s.op.snapshot()

		if progress > s.last {
			s.last = progress
			return domain.SubmissionEvent{Kind: domain.EventProgress, Progress: progress}, true
		}

		if terminal != nil {
			s.terminalSeen = true
			return *terminal, true
		}

		select {
		case <-ctx.Done():
			return domain.SubmissionEvent{}, false
		case <-s.disposed:
			return domain.SubmissionEvent{}, false
		case <-changed:
		}
	}
}

// Dispose drops every event not yet returned by Next.
func (s *Subscription) Dispose() {
	s.disposeOnce.Do(func() {
		close(s.disposed)
	})
}

func (s *Subscription) isDisposed() bool {
	select {
	case <-s.disposed:
		return true
	default:
		return false
	}
}
