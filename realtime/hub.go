package realtime

import (
	"sync"
)

const defaultBuffer = 64

// Subscription is one live push connection registered under a tenant
// and user. A user may hold several subscriptions at once (multiple
// tabs or devices). The channel buffer is the client's recent-event
// window: when it is full, new events are dropped for that socket and
// are not recoverable.
type Subscription struct {
	TenantID string
	UserID   string
	ch       chan Event
}

// Events is the receive side of the subscription.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Hub fans events out to live subscriptions. Sends are independent per
// socket: one slow or dead socket never blocks delivery to others.
type Hub struct {
	lock sync.RWMutex
	subs map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a connection under its tenant and user identifiers.
func (h *Hub) Subscribe(tenantID, userID string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	sub := &Subscription{
		TenantID: tenantID,
		UserID:   userID,
		ch:       make(chan Event, buffer),
	}
	h.lock.Lock()
	h.subs[sub] = struct{}{}
	h.lock.Unlock()
	return sub
}

// Unsubscribe removes a subscription and closes its channel. Safe to
// call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.lock.Lock()
	_, exists := h.subs[sub]
	if exists {
		delete(h.subs, sub)
	}
	h.lock.Unlock()
	if exists {
		close(sub.ch)
	}
}

// PublishUser delivers to every socket registered under the subject.
func (h *Hub) PublishUser(userID string, evt Event) {
	evt.Scope = ScopeUser
	h.publish(evt, func(s *Subscription) bool { return s.UserID == userID })
}

// PublishTenant delivers to every socket registered under the tenant.
func (h *Hub) PublishTenant(tenantID string, evt Event) {
	evt.Scope = ScopeTenant
	h.publish(evt, func(s *Subscription) bool { return s.TenantID == tenantID })
}

// PublishSystem delivers to all live sockets.
func (h *Hub) PublishSystem(evt Event) {
	evt.Scope = ScopeSystem
	h.publish(evt, func(*Subscription) bool { return true })
}

func (h *Hub) publish(evt Event, match func(*Subscription) bool) {
	h.lock.RLock()
	defer h.lock.RUnlock()
	for sub := range h.subs {
		if !match(sub) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			// Recent-event window full: drop for this socket only.
		}
	}
}

// Size returns the number of live subscriptions.
func (h *Hub) Size() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.subs)
}
