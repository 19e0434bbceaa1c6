package enhancer

import (
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

type uploadCounterKey struct{}

// uploadCounter tracks how many bytes of one request body the transport
// has consumed.
type uploadCounter struct {
	total int64
	sent  atomic.Int64
}

func newUploadCounter(total int64) *uploadCounter {
	return &uploadCounter{total: total}
}

func withUploadCounter(ctx context.Context, c *uploadCounter) context.Context {
	return context.WithValue(ctx, uploadCounterKey{}, c)
}

func uploadCounterFrom(ctx context.Context) (*uploadCounter, bool) {
	c, ok := ctx.Value(uploadCounterKey{}).(*uploadCounter)
	return c, ok
}

func (u *uploadCounter) fraction() float64 {
	if u.total <= 0 {
		return 0
	}
	f := float64(u.sent.Load()) / float64(u.total)
	if f > 1 {
		return 1
	}
	return f
}

// countingBody is the request body as the wire sees it.
type countingBody struct {
	io.ReadCloser
	counter *uploadCounter
}

func (b *countingBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.counter.sent.Add(int64(n))
	return n, err
}

// progressTransport counts upload bytes below resty, after the request
// body has been built. Requests without a counter in their context pass
// through untouched.
type progressTransport struct {
	base http.RoundTripper
}

func (t *progressTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	counter, ok := uploadCounterFrom(req.Context())
	if !ok || req.Body == nil || req.Body == http.NoBody {
		return t.base.RoundTrip(req)
	}

	counted := req.Clone(req.Context())
	counted.Body = &countingBody{ReadCloser: req.Body, counter: counter}
	return t.base.RoundTrip(counted)
}

// progressPoller samples an uploadCounter on a fixed interval and reports
// the fraction whenever it grew. stop joins the poller and reports a final
// sample, so no report happens after stop returns.
type progressPoller struct {
	body     *uploadCounter
	report   func(float64)
	last     float64
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func startProgressPoller(body *uploadCounter, interval time.Duration, report func(float64)) *progressPoller {
	p := &progressPoller{
		body:   body,
		report: report,
		last:   -1,
		done:   make(chan struct{}),
	}
	if report == nil {
		p.report = func(float64) {}
	}

	p.emit()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-p.done:
				return
			case <-ticker.C:
				p.emit()
			}
		}
	}()

	return p
}

func (p *progressPoller) emit() {
	f := p.body.fraction()
	if f <= p.last {
		return
	}
	p.last = f
	p.report(f)
}

func (p *progressPoller) stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
		p.emit()
	})
}
