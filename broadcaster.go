package approvals

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// EventType names a real time notification
type EventType string

const (
	EventTaskCreated           EventType = "task:created"
	EventTaskUpdated           EventType = "task:updated"
	EventAdminDirectoryChanged EventType = "adminDirectory:changed"
)

// DirectoryChangeType describes an admin directory mutation
type DirectoryChangeType string

const (
	DirectoryChangeCreated DirectoryChangeType = "created"
	DirectoryChangeUpdated DirectoryChangeType = "updated"
	DirectoryChangeDeleted DirectoryChangeType = "deleted"
)

// Event is the frame pushed to subscribers
type Event struct {
	Type       EventType `json:"event"`
	Data       any       `json:"data"`
	OccurredAt time.Time `json:"occurredAt"`
}

// AdminDirectoryChange is the payload of adminDirectory:changed. Deletions
// carry only the id.
type AdminDirectoryChange struct {
	Type   DirectoryChangeType `json:"type"`
	Record *AdminUser          `json:"record,omitempty"`
	ID     string              `json:"id,omitempty"`
}

// NewTaskEvent builds a task event carrying a detached copy of task
func NewTaskEvent(eventType EventType, task *Task, at time.Time) Event {
	return Event{Type: eventType, Data: task.Clone(), OccurredAt: at}
}

// NewDirectoryEvent builds an adminDirectory:changed event
func NewDirectoryEvent(change DirectoryChangeType, record *AdminUser, id string, at time.Time) Event {
	payload := AdminDirectoryChange{Type: change, ID: id}
	if change != DirectoryChangeDeleted {
		payload.Record = record.Clone()
		if record != nil && payload.ID == "" {
			payload.ID = record.ID.String()
		}
	}
	return Event{Type: EventAdminDirectoryChanged, Data: payload, OccurredAt: at}
}

// EventFilter decides whether a subscriber session may receive an event
type EventFilter func(claims AuthClaims, event Event) bool

// ScopedEventFilter delivers directory events to admins only and task events
// to admins or to the requester that owns the task.
func ScopedEventFilter(claims AuthClaims, event Event) bool {
	if claims == nil {
		return false
	}
	if claims.SubjectType() == SubjectAdmin {
		return true
	}
	switch event.Type {
	case EventTaskCreated, EventTaskUpdated:
		task, ok := event.Data.(*Task)
		return ok && task.IsOwnedBy(claims.UserID())
	default:
		return false
	}
}

// DefaultSubscriberBuffer is the per subscriber queue size
const DefaultSubscriberBuffer = 64

// BroadcasterOption customizes a Broadcaster
type BroadcasterOption func(*Broadcaster)

// WithSubscriberBuffer sets the per subscriber queue size
func WithSubscriberBuffer(size int) BroadcasterOption {
	return func(b *Broadcaster) {
		if size > 0 {
			b.buffer = size
		}
	}
}

// WithEventFilter scopes delivery per subscriber
func WithEventFilter(filter EventFilter) BroadcasterOption {
	return func(b *Broadcaster) {
		b.filter = filter
	}
}

// WithBroadcasterLogger sets the logger
func WithBroadcasterLogger(logger Logger) BroadcasterOption {
	return func(b *Broadcaster) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Broadcaster fans events out to every live subscription. Delivery is best
// effort: a subscriber whose queue is full misses the event.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool
	buffer int
	filter EventFilter
	logger Logger
}

var _ Publisher = (*Broadcaster)(nil)

// NewBroadcaster creates a broadcaster with no subscribers
func NewBroadcaster(opts ...BroadcasterOption) *Broadcaster {
	b := &Broadcaster{
		subs:   make(map[uint64]*Subscription),
		buffer: DefaultSubscriberBuffer,
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Subscription is a live event stream for one session
type Subscription struct {
	id      uint64
	claims  AuthClaims
	events  chan Event
	owner   *Broadcaster
	once    sync.Once
	dropped atomic.Uint64
}

// Events returns the stream, closed when the subscription ends
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Claims returns the claims the subscription was opened with
func (s *Subscription) Claims() AuthClaims {
	return s.claims
}

// Dropped reports how many events were skipped because the queue was full
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close detaches the subscription, safe to call more than once
func (s *Subscription) Close() {
	s.owner.remove(s)
}

// Subscribe registers a session. Events published before this call are
// never delivered.
func (b *Broadcaster) Subscribe(claims AuthClaims) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:     b.nextID,
		claims: claims,
		events: make(chan Event, b.buffer),
		owner:  b,
	}

	if b.closed {
		close(sub.events)
		sub.once.Do(func() {})
		return sub
	}

	b.subs[sub.id] = sub
	return sub
}

// Publish delivers event to every subscriber that has room for it
func (b *Broadcaster) Publish(_ context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if b.filter != nil && !b.filter(sub.claims, event) {
			continue
		}
		select {
		case sub.events <- event:
		default:
			sub.dropped.Add(1)
			b.logger.Warn("broadcaster dropped %s for subscriber %d", event.Type, sub.id)
		}
	}
}

// Count returns the number of live subscriptions
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription, later subscriptions are closed immediately
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		sub.once.Do(func() { close(sub.events) })
	}
}

func (b *Broadcaster) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub.id)
	sub.once.Do(func() { close(sub.events) })
}
