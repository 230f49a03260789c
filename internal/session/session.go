// Package session keeps one notification registry per account.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"nrsnotify/internal/cache"
	"nrsnotify/internal/core"
)

// Session is one account's registry. Hold the lock for every operation on it.
type Session struct {
	sync.Mutex
	Account  string
	Registry *core.Registry

	// Refreshed is set after the first successful refresh, at RefreshedAt.
	Refreshed   bool
	RefreshedAt time.Time
}

// Stale reports whether the last successful refresh is older than maxAge.
// A zero maxAge never goes stale.
func (s *Session) Stale(maxAge time.Duration, now time.Time) bool {
	return maxAge > 0 && now.Sub(s.RefreshedAt) >= maxAge
}

// Manager hands out sessions, creating them from a template registry.
type Manager struct {
	sessions *cache.LRUCache[*Session]
	template *core.Registry
	evicted  atomic.Int64
}

// NewManager keeps up to maxSize sessions, each dropped after ttl without use.
func NewManager(template *core.Registry, maxSize int, ttl time.Duration) *Manager {
	if template == nil {
		template = core.DefaultRegistry()
	}
	m := &Manager{
		sessions: cache.NewLRUCache[*Session](maxSize, ttl),
		template: template,
	}
	m.sessions.OnEvict(func(_ string, _ *Session, reason cache.EvictReason) {
		if reason != cache.EvictDeleted {
			m.evicted.Add(1)
		}
	})
	return m
}

// Get returns the account's session, creating a fresh one when absent.
// created reports whether the session is new.
func (m *Manager) Get(account string) (s *Session, created bool) {
	return m.sessions.GetOrCreate(account, func() *Session {
		return &Session{Account: account, Registry: m.template.Clone()}
	})
}

// Drop forgets the account's session.
func (m *Manager) Drop(account string) {
	m.sessions.Delete(account)
}

// Size is the number of live sessions.
func (m *Manager) Size() int {
	return m.sessions.Size()
}

// Evicted counts sessions dropped for idling or capacity.
func (m *Manager) Evicted() int64 {
	return m.evicted.Load()
}

// Cache exposes the session cache for periodic cleanup.
func (m *Manager) Cache() cache.Cleaner {
	return m.sessions
}
