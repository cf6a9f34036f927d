// Package correlator implements the request/response matching engine the
// vehicle commands are built on.
//
// MAVLink has no transactional request ids for most command types, so a
// reply can only be recognized semantically: a caller sends a command and
// registers an expectation with a matcher (and optionally a deny check)
// that every subsequent inbound message is evaluated against, until the
// expectation settles or its deadline passes.
package correlator

import (
	"context"
	"sync"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/message"

	"github.com/groundlink-io/groundlink/internal/gcs/errdefs"
	"github.com/groundlink-io/groundlink/internal/pkg/metrics"
)

// Matcher reports whether an inbound message fulfills the expectation.
type Matcher func(msg message.Message) bool

// DenyFunc reports whether an inbound message explicitly denies the
// expectation. A nil cause is replaced with a generic denial error.
type DenyFunc func(msg message.Message) (denied bool, cause error)

type outcome struct {
	msg message.Message
	err error
}

// expectation is one pending request. It settles exactly once: through
// Offer (match or denial), through its deadline timer, or through Close.
// Every settling path removes it from the pending table under the mutex
// before delivering, so a racing path finds it already gone and does
// nothing.
type expectation struct {
	matcher  Matcher
	onDenied DenyFunc
	timer    *time.Timer
	done     chan outcome // buffered, capacity 1
}

// Correlator tracks the pending expectations of one connection.
type Correlator struct {
	mu      sync.Mutex
	pending map[uint64]*expectation
	nextID  uint64
	closed  bool
}

// New creates an empty Correlator.
func New() *Correlator {
	return &Correlator{
		pending: make(map[uint64]*expectation),
	}
}

// SendAndExpect registers an expectation, runs send, and waits for the
// first of: a matching inbound message, an explicit denial, the deadline,
// or ctx cancellation. The deadline timer is armed only after send returns
// successfully; a failed send settles the expectation immediately with the
// send error.
func (c *Correlator) SendAndExpect(
	ctx context.Context,
	send func() error,
	matcher Matcher,
	onDenied DenyFunc,
	timeout time.Duration,
	timeoutMessage string,
) (message.Message, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errdefs.ErrConnectionClosed
	}
	id := c.nextID
	c.nextID++
	exp := &expectation{
		matcher:  matcher,
		onDenied: onDenied,
		done:     make(chan outcome, 1),
	}
	c.pending[id] = exp
	c.mu.Unlock()
	metrics.ExpectationsPending.Inc()

	if err := send(); err != nil {
		c.remove(id)
		return nil, err
	}

	// Arm the deadline only if nothing settled the expectation while the
	// send was in flight.
	c.mu.Lock()
	if _, still := c.pending[id]; still {
		exp.timer = time.AfterFunc(timeout, func() {
			if c.remove(id) {
				exp.done <- outcome{err: &errdefs.CommandTimeoutError{Message: timeoutMessage}}
			}
		})
	}
	c.mu.Unlock()

	select {
	case out := <-exp.done:
		return out.msg, out.err
	case <-ctx.Done():
		c.remove(id)
		return nil, ctx.Err()
	}
}

// Offer evaluates one inbound message against every pending expectation.
// Expectations are independent: a single message may settle several of
// them in one pass. For each expectation the deny check runs before the
// match check.
func (c *Correlator) Offer(msg message.Message) {
	type settled struct {
		exp *expectation
		out outcome
	}

	var fired []settled

	c.mu.Lock()
	for id, exp := range c.pending {
		if exp.onDenied != nil {
			if denied, cause := exp.onDenied(msg); denied {
				if cause == nil {
					cause = &errdefs.CommandDeniedError{Reason: "command denied by vehicle"}
				}
				c.dropLocked(id, exp)
				fired = append(fired, settled{exp, outcome{err: cause}})
				continue
			}
		}
		if exp.matcher != nil && exp.matcher(msg) {
			c.dropLocked(id, exp)
			fired = append(fired, settled{exp, outcome{msg: msg}})
		}
	}
	c.mu.Unlock()

	for _, s := range fired {
		s.exp.done <- s.out
	}
}

// Close settles every pending expectation with a connection-closed error
// and rejects all future registrations.
func (c *Correlator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true

	dropped := make([]*expectation, 0, len(c.pending))
	for id, exp := range c.pending {
		c.dropLocked(id, exp)
		dropped = append(dropped, exp)
	}
	c.mu.Unlock()

	for _, exp := range dropped {
		exp.done <- outcome{err: errdefs.ErrConnectionClosed}
	}
}

// PendingCount returns the number of expectations awaiting a reply.
func (c *Correlator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// remove takes the expectation out of the pending table if it is still
// there, reporting whether this caller won the removal.
func (c *Correlator) remove(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	exp, ok := c.pending[id]
	if !ok {
		return false
	}
	c.dropLocked(id, exp)
	return true
}

func (c *Correlator) dropLocked(id uint64, exp *expectation) {
	delete(c.pending, id)
	if exp.timer != nil {
		exp.timer.Stop()
	}
	metrics.ExpectationsPending.Dec()
}
