package hub

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind names a correlated request class; each carries its own deadline.
type Kind string

const (
	KindMermaid     Kind = "mermaid"
	KindExportImage Kind = "exportImage"
	KindViewport    Kind = "viewport"
)

// Deadline returns the kind's correlator deadline.
func (k Kind) Deadline() time.Duration {
	switch k {
	case KindViewport:
		return 10 * time.Second
	default:
		return 30 * time.Second
	}
}

// TimeoutError signals that no peer answered before the deadline.
type TimeoutError struct {
	Kind Kind
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s request timed out waiting for a client response", e.Kind)
}

// PeerError carries an error a peer reported for a correlated request.
type PeerError struct {
	Message string
}

func (e *PeerError) Error() string { return e.Message }

// Result is what a waiter receives: a payload or an error, never both.
type Result struct {
	Payload any
	Err     error
}

type pending struct {
	kind     Kind
	ch       chan Result
	timer    *time.Timer
	expected int
	errCount int
	lastErr  error
}

// Correlator bridges blocking HTTP calls to out-of-band peer responses,
// keyed by request id. First non-error result wins; late results are
// accepted and discarded.
type Correlator struct {
	mu      sync.Mutex
	pending map[string]*pending
}

// NewCorrelator creates an empty correlator.
func NewCorrelator() *Correlator {
	return &Correlator{pending: make(map[string]*pending)}
}

// Issue allocates a request id and parks a waiter behind it. expected is the
// number of peers the matching broadcast reaches: peer errors only fail the
// waiter once every expected responder has errored. The returned channel
// receives exactly one Result.
func (c *Correlator) Issue(kind Kind, expected int) (string, <-chan Result) {
	return c.IssueWithTimeout(kind, kind.Deadline(), expected)
}

// IssueWithTimeout is Issue with an explicit deadline.
func (c *Correlator) IssueWithTimeout(kind Kind, timeout time.Duration, expected int) (string, <-chan Result) {
	if expected < 1 {
		expected = 1
	}
	id := uuid.NewString()
	p := &pending{
		kind:     kind,
		ch:       make(chan Result, 1),
		expected: expected,
	}
	p.timer = time.AfterFunc(timeout, func() { c.onDeadline(id) })

	c.mu.Lock()
	c.pending[id] = p
	c.mu.Unlock()
	return id, p.ch
}

// Resolve delivers a payload to the waiter. The first call wins; it reports
// false for unknown or already-settled ids, which callers must still treat
// as success on the wire.
func (c *Correlator) Resolve(id string, payload any) bool {
	p := c.take(id)
	if p == nil {
		return false
	}
	p.timer.Stop()
	p.ch <- Result{Payload: payload}
	return true
}

// Fail records a peer-reported error. The waiter only fails once every
// expected responder has errored; earlier errors are held in case another
// peer still succeeds. It reports whether the id was pending.
func (c *Correlator) Fail(id string, err error) bool {
	c.mu.Lock()
	p, ok := c.pending[id]
	if !ok {
		c.mu.Unlock()
		return false
	}
	p.errCount++
	p.lastErr = err
	if p.errCount < p.expected {
		c.mu.Unlock()
		return true
	}
	delete(c.pending, id)
	c.mu.Unlock()

	p.timer.Stop()
	p.ch <- Result{Err: err}
	return true
}

// Pending reports whether the id is still parked.
func (c *Correlator) Pending(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[id]
	return ok
}

func (c *Correlator) onDeadline(id string) {
	p := c.take(id)
	if p == nil {
		return
	}
	if p.lastErr != nil {
		p.ch <- Result{Err: p.lastErr}
		return
	}
	p.ch <- Result{Err: &TimeoutError{Kind: p.kind}}
}

func (c *Correlator) take(id string) *pending {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[id]
	if !ok {
		return nil
	}
	delete(c.pending, id)
	return p
}
