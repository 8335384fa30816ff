// Package feed is the in-process realtime registry: marketplace events
// fan out to per-channel subscriptions that websocket handlers bridge to
// clients. The registry is injected explicitly; there is no package-level
// subscriber map.
package feed

import (
	"sync"
	"time"
)

// EventType identifies a marketplace event.
type EventType string

const (
	EventProjectCreated EventType = "project_created"
	EventProjectUpdated EventType = "project_updated"
	EventBidPlaced      EventType = "bid_placed"
	EventBidAccepted    EventType = "bid_accepted"
	EventBidDeclined    EventType = "bid_declined"
)

// ChannelMarketplace carries every public event.
const ChannelMarketplace = "marketplace"

// ProjectChannel scopes events to one project.
func ProjectChannel(projectID string) string {
	return "project:" + projectID
}

// Event is one realtime marketplace notification.
type Event struct {
	Type      EventType `json:"type"`
	Channel   string    `json:"channel"`
	ProjectID string    `json:"project_id,omitempty"`
	BidID     string    `json:"bid_id,omitempty"`
	ActorID   string    `json:"actor_id,omitempty"`
	At        time.Time `json:"at"`
}

// Subscription is a live event stream handle. Events stops delivering
// after Close; Close is idempotent and safe from any goroutine.
type Subscription struct {
	channel  string
	events   chan Event
	registry *Registry
	once     sync.Once
}

// Events returns the stream. The channel is closed when the subscription
// ends, so ranging over it terminates cleanly.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Channel returns the channel key this subscription listens on.
func (s *Subscription) Channel() string {
	return s.channel
}

// Close ends the subscription and releases its registry slot.
func (s *Subscription) Close() {
	s.registry.unsubscribe(s)
}

// Registry owns at most one live subscription per channel key.
type Registry struct {
	mu     sync.Mutex
	subs   map[string]*Subscription
	buffer int
	onDrop func(channel string)
}

// NewRegistry creates a registry whose subscriptions buffer up to buffer
// undelivered events each.
func NewRegistry(buffer int) *Registry {
	if buffer <= 0 {
		buffer = 64
	}
	return &Registry{
		subs:   make(map[string]*Subscription),
		buffer: buffer,
	}
}

// SetDropHook installs a callback fired when a slow subscriber loses an
// event.
func (r *Registry) SetDropHook(hook func(channel string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDrop = hook
}

// Subscribe opens a stream on channel. If the key already has a live
// subscription the old handle is closed first, so a key never has two
// listeners.
func (r *Registry) Subscribe(channel string) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.subs[channel]; ok {
		delete(r.subs, channel)
		old.once.Do(func() { close(old.events) })
	}

	s := &Subscription{
		channel:  channel,
		events:   make(chan Event, r.buffer),
		registry: r,
	}
	r.subs[channel] = s
	return s
}

// Publish delivers ev to the channel's subscriber, if any. Never blocks:
// when the subscriber's buffer is full the event is dropped and the drop
// hook fires.
func (r *Registry) Publish(channel string, ev Event) {
	ev.Channel = channel
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	r.mu.Lock()
	s, ok := r.subs[channel]
	hook := r.onDrop
	if ok {
		select {
		case s.events <- ev:
		default:
			ok = false // report as drop below
		}
	} else {
		hook = nil // nobody listening is not a drop
	}
	r.mu.Unlock()

	if !ok && hook != nil {
		hook(channel)
	}
}

// ActiveCount reports live subscriptions.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// CloseAll ends every subscription; the clean-shutdown hook.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for channel, s := range r.subs {
		delete(r.subs, channel)
		s.once.Do(func() { close(s.events) })
	}
}

func (r *Registry) unsubscribe(s *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.subs[s.channel]; ok && cur == s {
		delete(r.subs, s.channel)
	}
	s.once.Do(func() { close(s.events) })
}
