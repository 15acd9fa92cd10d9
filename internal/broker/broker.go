// Package broker correlates cross-server request/response pairs — the
// login server asking a game server for its character list being the
// motivating case — and fans a message out to every connected peer when a
// request is not scoped to just one.
//
// There is no equivalent component in the teacher repo: la2go answers
// RequestCharacters/PlayerAuthRequest inline inside the gslistener handler
// with no cross-goroutine correlation. This package is new, but its
// concurrency idiom (mutex-protected map of channels, context-based
// cancellation, per-peer fan-out) follows the teacher's own
// SessionManager/ConnectionActor conventions.
package broker

import (
	"context"
	"errors"
	"sync"
)

// Sentinel errors returned by Await.
var (
	// ErrSuperseded is returned to a pending Await when a second Await for
	// the same (peer, key) registers before the first resolves.
	ErrSuperseded = errors.New("broker: request superseded by a newer one")
	// ErrTimeout is returned when the context passed to Await expires
	// before a matching Resolve/Reject call arrives.
	ErrTimeout = errors.New("broker: request timed out")
	// ErrPeerGone is returned to every pending Await owned by a peer when
	// that peer is Unregistered (e.g. its connection dropped).
	ErrPeerGone = errors.New("broker: peer disconnected before replying")
	// ErrNoSuchPending is returned by Resolve/Reject when no Await is
	// currently waiting on the given (peer, key).
	ErrNoSuchPending = errors.New("broker: no pending request for this key")
)

type slot struct {
	resultCh chan result
}

type result struct {
	value any
	err   error
}

// Broker correlates requests keyed by (peerID, key) with their replies.
// A peerID is whatever the caller uses to identify one link-protocol
// connection (e.g. a GameServer's string ID) across both the goroutine
// that sends the request and the goroutine that receives the reply.
type Broker struct {
	mu      sync.Mutex
	pending map[string]map[string]*slot // peerID -> key -> slot
}

// New creates an empty Broker.
func New() *Broker {
	return &Broker{pending: make(map[string]map[string]*slot)}
}

// Await registers a pending slot for (peerID, key) and blocks until
// Resolve/Reject is called with a matching key, the peer is Unregistered,
// a newer Await supersedes this one, or ctx is done.
//
// At most one Await may be pending per (peerID, key): registering a
// second one completes the first with ErrSuperseded.
func (b *Broker) Await(ctx context.Context, peerID, key string) (any, error) {
	s := &slot{resultCh: make(chan result, 1)}

	b.mu.Lock()
	keys, ok := b.pending[peerID]
	if !ok {
		keys = make(map[string]*slot)
		b.pending[peerID] = keys
	}
	if old, exists := keys[key]; exists {
		old.resultCh <- result{err: ErrSuperseded}
	}
	keys[key] = s
	b.mu.Unlock()

	defer b.clearSlot(peerID, key, s)

	select {
	case r := <-s.resultCh:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ErrTimeout
	}
}

// clearSlot removes s from the pending map, but only if it is still the
// slot registered for that key (a newer Await may already have replaced
// it, in which case removing here would drop the newer one).
func (b *Broker) clearSlot(peerID, key string, s *slot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if keys, ok := b.pending[peerID]; ok {
		if keys[key] == s {
			delete(keys, key)
		}
		if len(keys) == 0 {
			delete(b.pending, peerID)
		}
	}
}

// Resolve delivers value to the pending Await for (peerID, key).
// Returns ErrNoSuchPending if nothing is waiting.
func (b *Broker) Resolve(peerID, key string, value any) error {
	return b.deliver(peerID, key, result{value: value})
}

// Reject delivers err to the pending Await for (peerID, key).
func (b *Broker) Reject(peerID, key string, err error) error {
	return b.deliver(peerID, key, result{err: err})
}

func (b *Broker) deliver(peerID, key string, r result) error {
	b.mu.Lock()
	keys, ok := b.pending[peerID]
	if !ok {
		b.mu.Unlock()
		return ErrNoSuchPending
	}
	s, ok := keys[key]
	b.mu.Unlock()
	if !ok {
		return ErrNoSuchPending
	}
	s.resultCh <- r
	return nil
}

// Unregister fails every pending Await owned by peerID with ErrPeerGone.
// Call this when a peer's connection closes.
func (b *Broker) Unregister(peerID string) {
	b.mu.Lock()
	keys := b.pending[peerID]
	delete(b.pending, peerID)
	b.mu.Unlock()

	for _, s := range keys {
		s.resultCh <- result{err: ErrPeerGone}
	}
}

// BroadcastResult is one peer's outcome from Broadcast.
type BroadcastResult struct {
	PeerID string
	Err    error
}

// Broadcast calls fn(peerID) concurrently for every peer in peerIDs and
// collects each one's outcome independently — a failing or slow peer
// never cancels another peer's in-flight call, unlike an
// errgroup.WithContext fan-out where the first error tears down the
// shared context. Use this for operations like KickPlayer that may need
// to reach more than one game server (e.g. a stale session on one
// server while the player reconnects via another) and where every
// peer's own result matters, not just whether all of them succeeded.
func Broadcast(ctx context.Context, peerIDs []string, fn func(ctx context.Context, peerID string) error) []BroadcastResult {
	results := make([]BroadcastResult, len(peerIDs))
	var wg sync.WaitGroup
	for i, id := range peerIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			results[i] = BroadcastResult{PeerID: id, Err: fn(ctx, id)}
		}(i, id)
	}
	wg.Wait()
	return results
}
