// Package banlist tracks temporarily banned client IP addresses in memory.
//
// Grounded on the teacher's SessionManager (internal/login/session_manager.go)
// for the sync.Map + lazy-sweep-on-read pattern, applied here to IP bans
// instead of sessions.
package banlist

import (
	"sync"
	"time"
)

// List holds IP -> ban-expiry. Expired entries are evicted lazily, the
// first time they are looked up or swept, rather than via a background
// timer.
type List struct {
	mu      sync.Mutex
	expires map[string]time.Time
}

// New creates an empty ban list.
func New() *List {
	return &List{expires: make(map[string]time.Time)}
}

// Ban marks ip as banned until now+duration.
func (l *List) Ban(ip string, duration time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expires[ip] = time.Now().Add(duration)
}

// IsBanned reports whether ip is currently banned, evicting it first if
// its ban has expired.
func (l *List) IsBanned(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	expiry, ok := l.expires[ip]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(l.expires, ip)
		return false
	}
	return true
}

// Unban removes any ban on ip.
func (l *List) Unban(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.expires, ip)
}

// Sweep evicts all expired entries and returns how many were removed.
func (l *List) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	removed := 0
	for ip, expiry := range l.expires {
		if now.After(expiry) {
			delete(l.expires, ip)
			removed++
		}
	}
	return removed
}

// Count returns the number of entries currently tracked, including any
// not yet lazily evicted.
func (l *List) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.expires)
}
