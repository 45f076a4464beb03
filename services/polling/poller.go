package polling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrAlreadyStarted is returned when Start is called on a running poller.
var ErrAlreadyStarted = errors.New("poller already started")

// Result states reported by a check.
const (
	StatePending = "pending"
	StateDone    = "done"
	StateFailed  = "failed"
)

// Result is the outcome of a single check call.
type Result struct {
	State   string
	Payload string
	Err     error
}

// Pending tells the poller to keep going.
func Pending() Result { return Result{State: StatePending} }

// Done stops the poller and resolves it with the given payload.
func Done(payload string) Result { return Result{State: StateDone, Payload: payload} }

// Failed stops the poller and rejects it with the given error.
func Failed(err error) Result { return Result{State: StateFailed, Err: err} }

// CheckFunc is one status probe. It must be safe to call repeatedly.
type CheckFunc func(ctx context.Context) Result

// Outcome is the final resolution of a polling run.
type Outcome struct {
	Payload string
	Err     error
}

// Poller issues a check on a fixed interval until the check settles or the
// poller is stopped. At most one check is ever in flight: if a check is slow,
// the next tick is skipped rather than queued. Stop is idempotent and safe to
// call before Start.
type Poller struct {
	mu      sync.Mutex
	stop    chan struct{}
	started bool
	stopped bool
}

// New returns an unstarted poller.
func New() *Poller {
	return &Poller{}
}

// Start begins polling. The returned channel delivers exactly one Outcome
// when a check reports done or failed; it stays silent if the poller is
// stopped or the context is cancelled first.
func (p *Poller) Start(ctx context.Context, check CheckFunc, interval time.Duration) (<-chan Outcome, error) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	p.started = true
	p.stop = make(chan struct{})
	stop := p.stop
	p.mu.Unlock()

	out := make(chan Outcome, 1)
	go p.loop(ctx, check, interval, stop, out)
	return out, nil
}

// Stop cancels the repeating timer. Safe to call multiple times and before
// any Start; no further checks are issued after it returns.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started || p.stopped {
		return
	}
	p.stopped = true
	close(p.stop)
}

func (p *Poller) loop(ctx context.Context, check CheckFunc, interval time.Duration, stop chan struct{}, out chan<- Outcome) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer p.Stop()

	var inFlight int32
	results := make(chan Result, 1)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !atomic.CompareAndSwapInt32(&inFlight, 0, 1) {
				// Previous check still running; skip this tick.
				continue
			}
			go func() {
				defer atomic.StoreInt32(&inFlight, 0)
				res := runCheck(ctx, check)
				select {
				case results <- res:
				case <-stop:
				}
			}()
		case res := <-results:
			switch res.State {
			case StateDone:
				out <- Outcome{Payload: res.Payload}
				return
			case StateFailed:
				out <- Outcome{Err: res.Err}
				return
			}
		}
	}
}

// runCheck shields the loop from a panicking check; a panic settles the run
// as failed so owned resources are still released.
func runCheck(ctx context.Context, check CheckFunc) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Failed(fmt.Errorf("poll check panicked: %v", r))
		}
	}()
	return check(ctx)
}
