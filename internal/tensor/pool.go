package tensor

// Pool is a bounded free list of same-geometry Images. It trades a small
// fixed memory footprint for zero steady-state allocation: Acquire pops a
// recycled buffer when one is available, Release zero-fills and keeps the
// buffer only while the list is below capacity. A buffer is either checked
// out (one owner) or in the pool, never both.
//
// The pool is not safe for concurrent use; the pipeline owns it from a
// single processing flow.
type Pool struct {
	width    int
	height   int
	channels int
	capacity int
	free     []*Image

	allocs int
	reuses int
	drops  int
}

// NewPool returns an empty pool for the given geometry holding at most
// capacity buffers.
func NewPool(width, height, channels, capacity int) *Pool {
	if capacity < 0 {
		capacity = 0
	}
	return &Pool{
		width:    width,
		height:   height,
		channels: channels,
		capacity: capacity,
		free:     make([]*Image, 0, capacity),
	}
}

// Acquire returns a buffer of the pool's size class: recycled when the free
// list is non-empty, freshly allocated otherwise. Never fails.
func (p *Pool) Acquire() *Image {
	if n := len(p.free); n > 0 {
		im := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		p.reuses++
		return im
	}
	p.allocs++
	return New(p.width, p.height, p.channels)
}

// Release zero-fills im and returns it to the free list if there is room and
// the geometry matches; otherwise the buffer is dropped and reclaimed by the
// garbage collector.
func (p *Pool) Release(im *Image) {
	if im == nil {
		return
	}
	if len(p.free) >= p.capacity || im.Len() != p.width*p.height*p.channels {
		p.drops++
		return
	}
	im.Zero()
	p.free = append(p.free, im)
}

// Drain empties the free list, letting all pooled buffers be collected.
// Used by forced cleanup cycles under memory pressure.
func (p *Pool) Drain() {
	for i := range p.free {
		p.free[i] = nil
	}
	p.free = p.free[:0]
}

// Len returns the number of buffers currently in the free list.
func (p *Pool) Len() int { return len(p.free) }

// Cap returns the free-list capacity bound.
func (p *Pool) Cap() int { return p.capacity }

// Stats returns lifetime counters: fresh allocations, recycled checkouts,
// and buffers dropped at Release.
func (p *Pool) Stats() (allocs, reuses, drops int) {
	return p.allocs, p.reuses, p.drops
}
