package identity

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// EventType is the kind of identity change
type EventType string

const (
	SignedIn       EventType = "signed_in"
	SignedOut      EventType = "signed_out"
	TokenRefreshed EventType = "token_refreshed"
)

// Event is an identity change for one user
type Event struct {
	Type   EventType `json:"type"`
	UserID string    `json:"user_id"`
	At     time.Time `json:"at"`
}

const subscriberBuffer = 8

// Broker fans identity events out to per-user subscribers
type Broker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan Event
}

// NewBroker creates a new identity event broker
func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[int]chan Event),
	}
}

// Subscribe registers for events of userID. The returned func unsubscribes
// and closes the channel; it is safe to call more than once.
func (b *Broker) Subscribe(userID string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan Event, subscriberBuffer)
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[int]chan Event)
	}
	b.subs[userID][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if userSubs, ok := b.subs[userID]; ok {
				delete(userSubs, id)
				if len(userSubs) == 0 {
					delete(b.subs, userID)
				}
			}
			close(ch)
		})
	}
}

// Publish delivers ev to every subscriber of ev.UserID without blocking.
// A subscriber whose buffer is full misses signed_in and token_refreshed
// events. A signed_out event is always queued: it evicts the oldest queued
// events, which it supersedes anyway.
func (b *Broker) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[ev.UserID] {
		if !deliver(ch, ev) {
			log.Warn().
				Str("user_id", ev.UserID).
				Str("event", string(ev.Type)).
				Msg("Dropped identity event for slow subscriber")
		}
	}
}

func deliver(ch chan Event, ev Event) bool {
	for {
		select {
		case ch <- ev:
			return true
		default:
		}
		if ev.Type != SignedOut {
			return false
		}
		select {
		case old := <-ch:
			log.Debug().
				Str("user_id", old.UserID).
				Str("event", string(old.Type)).
				Msg("Evicted identity event for sign-out")
		default:
		}
	}
}
