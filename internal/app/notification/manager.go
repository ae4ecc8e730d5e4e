// Package notification provides the notifier that fans cursor changes out to observers.
package notification

import (
	"sync"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tvchannel/internal/app/cursor"
)

// Listener receives cursor changes.
type Listener func(change cursor.Change)

// subscription represents a subscriber's subscription.
type subscription struct {
	id       string
	listener Listener
}

// Manager manages listener subscriptions and delivers cursor changes.
// Delivery is synchronous, in subscription order, with no coalescing.
type Manager struct {
	mu            sync.RWMutex
	subscriptions []*subscription
	sequenceNo    uint64
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make([]*subscription, 0),
	}
}

var _ cursor.Publisher = (*Manager)(nil)

// Subscribe registers a listener and returns a function that removes it.
// The returned function may be called more than once.
func (m *Manager) Subscribe(listener Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions = append(m.subscriptions, &subscription{
		id:       id,
		listener: listener,
	})
	zlog.Debug().Msgf("notification: listener subscribed: id=%s", id)

	return func() {
		m.unsubscribe(id)
	}
}

func (m *Manager) unsubscribe(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscriptions {
		if sub.id == id {
			m.subscriptions = append(m.subscriptions[:i:i], m.subscriptions[i+1:]...)
			zlog.Debug().Msgf("notification: listener unsubscribed: id=%s", id)
			return
		}
	}
}

// Publish delivers change to every listener.
// A panicking listener is logged and skipped; the others still receive the change.
func (m *Manager) Publish(change cursor.Change) {
	m.mu.Lock()
	m.sequenceNo++
	seq := m.sequenceNo
	// Copy subscriptions to avoid holding lock during delivery
	subs := make([]*subscription, len(m.subscriptions))
	copy(subs, m.subscriptions)
	m.mu.Unlock()

	for _, sub := range subs {
		m.deliver(sub, seq, change)
	}
}

func (m *Manager) deliver(sub *subscription, seq uint64, change cursor.Change) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("notification: listener panicked: id=%s seq=%d cause=%s index=%d panic=%v",
				sub.id, seq, change.Cause, change.State.ActiveIndex, r)
		}
	}()
	sub.listener(change)
}

// SequenceNo returns the number of changes published so far.
func (m *Manager) SequenceNo() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sequenceNo
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make([]*subscription, 0)
}
