package denylist

import (
	"sync"
	"time"
)

// Denylist tracks revoked token IDs until their natural expiry. It is
// the bounded-cost side lookup that narrows the revocation-latency
// window of stateless tokens without reintroducing a session store.
type Denylist interface {
	Revoke(jti string, exp time.Time) error
	IsRevoked(jti string) bool
	Cleanup() // Remove expired entries
}

// InMemory is a process-local denylist.
type InMemory struct {
	revoked map[string]time.Time
	lock    sync.RWMutex
	nowFunc func() time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{
		revoked: make(map[string]time.Time),
		nowFunc: time.Now,
	}
}

func (d *InMemory) Revoke(jti string, exp time.Time) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.revoked[jti] = exp
	return nil
}

func (d *InMemory) IsRevoked(jti string) bool {
	d.lock.RLock()
	defer d.lock.RUnlock()
	exp, exists := d.revoked[jti]
	return exists && d.nowFunc().Before(exp)
}

func (d *InMemory) Cleanup() {
	d.lock.Lock()
	defer d.lock.Unlock()
	now := d.nowFunc()
	for jti, exp := range d.revoked {
		if now.After(exp) {
			delete(d.revoked, jti)
		}
	}
}
