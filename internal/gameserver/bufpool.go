package gameserver

import "sync"

// BytePool is a sync.Pool-backed byte-slice pool, grounded on the
// teacher's internal/gameserver/bufpool.go and internal/login/bufpool.go.
type BytePool struct {
	pool sync.Pool
}

// NewBytePool creates a pool whose slices start at defaultSize capacity.
func NewBytePool(defaultSize int) *BytePool {
	return &BytePool{
		pool: sync.Pool{
			New: func() any {
				b := make([]byte, 0, defaultSize)
				return &b
			},
		},
	}
}

// Get returns a slice with length size, reused from the pool when
// possible.
func (p *BytePool) Get(size int) []byte {
	bp := p.pool.Get().(*[]byte)
	b := *bp
	if cap(b) < size {
		b = make([]byte, size)
		return b
	}
	return b[:size]
}

// Put returns b to the pool for reuse.
func (p *BytePool) Put(b []byte) {
	b = b[:0]
	p.pool.Put(&b)
}
