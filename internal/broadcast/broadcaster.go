// Package broadcast fans the composed system state out to connected
// observers. Observers that fail to receive within the send budget are pruned
// without aborting delivery to the rest.
package broadcast

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/muzaddid-faruque/ai-traffic-light/internal/stats"
	"github.com/muzaddid-faruque/ai-traffic-light/pkg/types"
)

// observerBuffer allows an observer to lag briefly without being pruned.
const observerBuffer = 2

// defaultSendBudget bounds how long Publish waits on one slow observer.
const defaultSendBudget = 50 * time.Millisecond

// Observer is one connected client's receive side.
type Observer struct {
	ID   uuid.UUID
	ch   chan *types.StateMessage
	done chan struct{}
	once sync.Once
}

// C returns the observer's state channel. The channel itself is never
// closed; Done signals removal.
func (o *Observer) C() <-chan *types.StateMessage { return o.ch }

// Done is closed when the observer is removed, whether by request or after a
// delivery failure.
func (o *Observer) Done() <-chan struct{} { return o.done }

func (o *Observer) close() {
	o.once.Do(func() { close(o.done) })
}

// Broadcaster maintains the observer set and delivers state to it.
type Broadcaster struct {
	mu        sync.Mutex
	observers map[uuid.UUID]*Observer
	budget    time.Duration
	registry  *stats.Registry
	log       *logrus.Entry
}

// New creates a broadcaster that reports connection counts to the registry.
func New(registry *stats.Registry) *Broadcaster {
	return &Broadcaster{
		observers: make(map[uuid.UUID]*Observer),
		budget:    defaultSendBudget,
		registry:  registry,
		log:       logrus.WithField("module", "broadcast"),
	}
}

// Register adds a new observer and returns its receive side.
func (b *Broadcaster) Register() *Observer {
	obs := &Observer{
		ID:   uuid.New(),
		ch:   make(chan *types.StateMessage, observerBuffer),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	b.observers[obs.ID] = obs
	count := len(b.observers)
	b.mu.Unlock()

	b.registry.ObserverConnected()
	b.log.Infof("observer %s connected (total %d)", obs.ID, count)
	return obs
}

// Unregister removes an observer and closes its Done channel. It is a no-op
// for an unknown or already-removed ID.
func (b *Broadcaster) Unregister(id uuid.UUID) {
	b.mu.Lock()
	obs, ok := b.observers[id]
	if ok {
		delete(b.observers, id)
	}
	count := len(b.observers)
	b.mu.Unlock()

	if !ok {
		return
	}
	obs.close()
	b.registry.ObserverDisconnected()
	b.log.Infof("observer %s disconnected (remaining %d)", id, count)
}

// Len returns the current observer count.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.observers)
}

// Publish delivers the state to every observer registered at the time of the
// call. The observer set is snapshotted under the lock, so sends never hold
// it; a delivery that misses the send budget unregisters that observer while
// the rest still receive the state. Returns the number of successful
// deliveries.
//
// Message channels are never closed, so a send cannot race a concurrent
// Unregister; removal is signaled through the observer's Done channel.
func (b *Broadcaster) Publish(msg *types.StateMessage) int {
	b.mu.Lock()
	targets := make([]*Observer, 0, len(b.observers))
	for _, obs := range b.observers {
		targets = append(targets, obs)
	}
	b.mu.Unlock()

	delivered := 0
	for _, obs := range targets {
		if b.send(obs, msg) {
			delivered++
			continue
		}
		b.log.Warnf("observer %s failed to receive within %v, pruned", obs.ID, b.budget)
		b.Unregister(obs.ID)
	}
	return delivered
}

// send attempts immediate delivery and falls back to a bounded wait. An
// observer removed mid-send counts as a failed delivery.
func (b *Broadcaster) send(obs *Observer, msg *types.StateMessage) bool {
	select {
	case obs.ch <- msg:
		return true
	case <-obs.done:
		return false
	default:
	}

	timer := time.NewTimer(b.budget)
	defer timer.Stop()
	select {
	case obs.ch <- msg:
		return true
	case <-obs.done:
		return false
	case <-timer.C:
		return false
	}
}
