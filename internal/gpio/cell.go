package gpio

import "sync/atomic"

// RotationCell accumulates detents from event handlers. Any number of
// producers may Add; one consumer Takes.
type RotationCell struct {
	n atomic.Int32
}

// Add records detents. Never blocks.
func (c *RotationCell) Add(d int32) {
	c.n.Add(d)
}

// Take returns and clears the accumulated detents.
func (c *RotationCell) Take() int32 {
	return c.n.Swap(0)
}

// edgeRingSize must be a power of two so index wrap-around stays exact.
const edgeRingSize = 32

// EdgeRing is a fixed-capacity single-producer/single-consumer FIFO of
// button edges. Push never blocks: when full the new edge is dropped.
type EdgeRing struct {
	buf     [edgeRingSize]Edge
	head    atomic.Uint32 // next write position, producer only
	tail    atomic.Uint32 // next read position, consumer only
	dropped atomic.Uint32
}

// Push appends an edge. Returns false if the ring was full.
func (r *EdgeRing) Push(e Edge) bool {
	h := r.head.Load()
	if h-r.tail.Load() == edgeRingSize {
		r.dropped.Add(1)
		return false
	}
	r.buf[h%edgeRingSize] = e
	r.head.Store(h + 1)
	return true
}

// Drain calls fn for every queued edge, oldest first.
func (r *EdgeRing) Drain(fn func(Edge)) {
	t := r.tail.Load()
	h := r.head.Load()
	for ; t != h; t++ {
		fn(r.buf[t%edgeRingSize])
	}
	r.tail.Store(t)
}

// Len returns the number of queued edges.
func (r *EdgeRing) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

// Dropped returns how many edges were lost to a full ring.
func (r *EdgeRing) Dropped() uint32 {
	return r.dropped.Load()
}
