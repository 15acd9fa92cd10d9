// Package idfactory hands out process-wide unique object identifiers for
// in-world entities (characters, items, NPCs).
//
// Grounded on the teacher's GameServerTable bitmap allocator
// (internal/gameserver/table.go) for the "hand back the lowest free slot"
// idea, generalized from a fixed 127-slot bitmap to an unbounded free list
// since object IDs are not range-limited the way GameServer IDs are.
package idfactory

import "sync"

// Start matches constants.ObjectIDPlayerStart: the teacher reserves IDs
// below this range for non-player objects.
const Start = 0x1000_0000

// Factory allocates IDs starting at Start, reusing released IDs before
// minting new ones.
type Factory struct {
	mu      sync.Mutex
	next    uint32
	freeIDs []uint32
}

// New creates a Factory whose first Next() call returns Start.
func New() *Factory {
	return &Factory{next: Start}
}

// Next returns an ID never currently held by any live object: either the
// most recently released ID, or the next unused counter value.
func (f *Factory) Next() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n := len(f.freeIDs); n > 0 {
		id := f.freeIDs[n-1]
		f.freeIDs = f.freeIDs[:n-1]
		return id
	}

	id := f.next
	f.next++
	return id
}

// Release returns id to the free list, making it eligible for reuse by a
// future Next() call.
func (f *Factory) Release(id uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.freeIDs = append(f.freeIDs, id)
}

// Size reports how many IDs have ever been minted (free or in use).
func (f *Factory) Size() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.next - Start
}
