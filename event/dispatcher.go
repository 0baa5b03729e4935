// Package event implements the per-session notification dispatcher: a
// characteristic value change is enqueued to every subscribed sink
// except the one that caused it, and each sink's queue is drained at
// most once per flush interval with same-(aid,iid) events coalesced to
// their latest value.
package event

import (
	"sync"
	"time"

	"github.com/hapcore/hap/characteristic"
	"github.com/hapcore/hap/log"
)

// FlushPeriod is the default interval between coalesced-event flushes.
const FlushPeriod = 1 * time.Second

// Change is one characteristic value change pending delivery.
type Change struct {
	AID, IID uint64
	Value    characteristic.Value
}

// Sink is one subscriber connection. Dispatcher never touches the
// network directly; Send receives the already-encoded EVENT message
// bytes, keeping this package transport-agnostic.
type Sink interface {
	ID() string
	IsSubscribed(iid uint64) bool
	ClearSubscriptions()
	Send(payload []byte) error
}

// Encoder builds the wire bytes for one flush's worth of changes,
// typically an "EVENT/1.0 200 OK" chunked JSON message.
type Encoder func(changes []Change) ([]byte, error)

// Dispatcher owns the live sink set and each sink's coalesced pending
// queue.
type Dispatcher struct {
	mu      sync.Mutex
	sinks   map[string]Sink
	pending map[string]map[uint64]Change // sink id -> iid -> latest change

	encode Encoder
	period time.Duration

	stop chan struct{}
}

// NewDispatcher creates a dispatcher that encodes flushed batches with
// encode and drains every sink's queue every period.
func NewDispatcher(encode Encoder, period time.Duration) *Dispatcher {
	if period <= 0 {
		period = FlushPeriod
	}
	return &Dispatcher{
		sinks:   make(map[string]Sink),
		pending: make(map[string]map[uint64]Change),
		encode:  encode,
		period:  period,
		stop:    make(chan struct{}),
	}
}

// Register adds a sink that can now receive notifications.
func (d *Dispatcher) Register(s Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks[s.ID()] = s
}

// Unregister removes a sink, e.g. on disconnect.
func (d *Dispatcher) Unregister(s Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.sinks, s.ID())
	delete(d.pending, s.ID())
}

// Notify enqueues change to every subscribed sink other than origin
// (origin may be "" if the change did not originate from a session).
func (d *Dispatcher) Notify(change Change, originID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, s := range d.sinks {
		if id == originID {
			continue
		}
		if !s.IsSubscribed(change.IID) {
			continue
		}
		q, ok := d.pending[id]
		if !ok {
			q = make(map[uint64]Change)
			d.pending[id] = q
		}
		q[change.IID] = change // coalesce: latest value wins
	}
}

// Run drains every sink's pending queue every period until Stop is
// called. Intended to run in its own goroutine.
func (d *Dispatcher) Run() {
	ticker := time.NewTicker(d.period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.flush()
		case <-d.stop:
			return
		}
	}
}

// Stop ends a running Run loop.
func (d *Dispatcher) Stop() {
	close(d.stop)
}

func (d *Dispatcher) flush() {
	d.mu.Lock()
	batches := d.pending
	d.pending = make(map[string]map[uint64]Change)
	sinks := make(map[string]Sink, len(d.sinks))
	for id, s := range d.sinks {
		sinks[id] = s
	}
	d.mu.Unlock()

	for id, q := range batches {
		if len(q) == 0 {
			continue
		}
		sink, ok := sinks[id]
		if !ok {
			continue
		}
		changes := make([]Change, 0, len(q))
		for _, c := range q {
			changes = append(changes, c)
		}
		payload, err := d.encode(changes)
		if err != nil {
			log.Info.Printf("event: encode failed for sink %s: %v", id, err)
			continue
		}
		if err := sink.Send(payload); err != nil {
			log.Info.Printf("event: send failed for sink %s, clearing subscriptions: %v", id, err)
			sink.ClearSubscriptions()
			d.Unregister(sink)
		}
	}
}
