package pipeline

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultHistorySize bounds the bus's diagnostic ring buffer.
const DefaultHistorySize = 100

// subscriberBuffer is the per-subscriber channel capacity. A subscriber that
// falls this far behind misses events; persistence has already happened by
// emission time, so nothing is lost, only a reactive trigger.
const subscriberBuffer = 64

// Bus is an in-process broadcast channel for pipeline events. Emission has no
// acknowledgment and no backpressure. Events for a single correlation id are
// delivered to each subscriber in emission order.
//
// The history ring buffer exists for diagnostics and idempotency probes only;
// it is not the durability mechanism.
//
// Safe for concurrent use.
type Bus struct {
	mu      sync.Mutex
	subs    map[int]*subscription
	nextSub int

	history []Event
	histCap int

	log *slog.Logger
}

type subscription struct {
	types map[string]struct{}
	ch    chan Event
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithHistorySize overrides the diagnostic ring buffer capacity.
func WithHistorySize(n int) BusOption {
	return func(b *Bus) {
		if n > 0 {
			b.histCap = n
		}
	}
}

// NewBus creates an event bus with a bounded diagnostic history.
func NewBus(log *slog.Logger, opts ...BusOption) *Bus {
	if log == nil {
		log = slog.Default()
	}
	b := &Bus{
		subs:    make(map[int]*subscription),
		histCap: DefaultHistorySize,
		log:     log,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe returns a channel receiving events of the given types, or all
// events when no types are given, plus a cancel function that closes the
// channel and drops the subscription.
func (b *Bus) Subscribe(types ...string) (<-chan Event, func()) {
	sub := &subscription{ch: make(chan Event, subscriberBuffer)}
	if len(types) > 0 {
		sub.types = make(map[string]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = sub
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if s, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.ch)
		}
		b.mu.Unlock()
	}
	return sub.ch, cancel
}

// Emit broadcasts an event to all matching subscribers and appends it to the
// history ring. The send never blocks; a full subscriber misses the event.
func (b *Bus) Emit(eventType, correlationID string, payload any) {
	ev := Event{
		Type:          eventType,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Payload:       payload,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.history = append(b.history, ev)
	if len(b.history) > b.histCap {
		b.history = b.history[len(b.history)-b.histCap:]
	}

	for _, sub := range b.subs {
		if sub.types != nil {
			if _, ok := sub.types[eventType]; !ok {
				continue
			}
		}
		select {
		case sub.ch <- ev:
		default:
			b.log.Warn("slow subscriber missed event",
				"type", eventType, "correlation_id", correlationID)
		}
	}
}

// EventsForUnit returns recent events for the given correlation id, oldest
// first, limited to what the ring buffer still holds.
func (b *Bus) EventsForUnit(correlationID string) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Event
	for _, ev := range b.history {
		if ev.CorrelationID == correlationID {
			out = append(out, ev)
		}
	}
	return out
}

// HasEmitted reports whether an event of the given type for the correlation
// id is still visible in the ring buffer.
func (b *Bus) HasEmitted(correlationID, eventType string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ev := range b.history {
		if ev.CorrelationID == correlationID && ev.Type == eventType {
			return true
		}
	}
	return false
}
