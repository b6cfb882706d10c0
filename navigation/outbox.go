package navigation

import (
	"sync"

	"shelfmatch/models"
)

const defaultOutboxCapacity = 64

// Sink receives UI triggers produced by a session
type Sink interface {
	Emit(trigger models.Trigger)
}

// Outbox queues triggers until the extension drains them. When full, the oldest
// trigger is dropped; every trigger carries its identity so a late reader can skip it.
type Outbox struct {
	mu       sync.Mutex
	triggers []models.Trigger
	capacity int
	dropped  int
}

// NewOutbox creates an outbox holding at most capacity triggers
func NewOutbox(capacity int) *Outbox {
	if capacity <= 0 {
		capacity = defaultOutboxCapacity
	}
	return &Outbox{capacity: capacity}
}

// Emit queues a trigger
func (o *Outbox) Emit(trigger models.Trigger) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.triggers) >= o.capacity {
		o.triggers = o.triggers[1:]
		o.dropped++
	}
	o.triggers = append(o.triggers, trigger)
}

// Drain returns queued triggers in emission order and empties the queue
func (o *Outbox) Drain() []models.Trigger {
	o.mu.Lock()
	defer o.mu.Unlock()

	drained := o.triggers
	o.triggers = nil
	if drained == nil {
		drained = []models.Trigger{}
	}
	return drained
}

// Len returns the number of queued triggers
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.triggers)
}

// Dropped returns how many triggers were discarded because the outbox was full
func (o *Outbox) Dropped() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped
}
