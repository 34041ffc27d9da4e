package rpcclient

// firstID is the first request id handed out by a fresh allocator. Zero is
// never used so an unsent envelope can be told apart from a sent one.
const firstID uint64 = 1

// idAllocator issues request ids. Ids released by retired envelopes are
// handed out again before the counter advances, most recently released first.
type idAllocator struct {
	next   uint64
	reuse  []uint64
	pooled map[uint64]struct{}
}

func newIDAllocator() *idAllocator {
	return &idAllocator{
		next:   firstID,
		pooled: make(map[uint64]struct{}),
	}
}

// Allocate returns a free id.
func (a *idAllocator) Allocate() uint64 {
	if n := len(a.reuse); n > 0 {
		id := a.reuse[n-1]
		a.reuse = a.reuse[:n-1]
		delete(a.pooled, id)
		return id
	}
	id := a.next
	a.next++
	if a.next == 0 {
		panic("rpcclient: request id space exhausted")
	}
	return id
}

// Release puts id back into the reuse pool. The caller guarantees that no
// table references id any more. Releasing an id twice is a no-op.
func (a *idAllocator) Release(id uint64) {
	if id == 0 || id >= a.next {
		return
	}
	if _, ok := a.pooled[id]; ok {
		return
	}
	a.pooled[id] = struct{}{}
	a.reuse = append(a.reuse, id)
}

// Len returns the number of ids waiting for reuse.
func (a *idAllocator) Len() int {
	return len(a.reuse)
}

func (a *idAllocator) contains(id uint64) bool {
	_, ok := a.pooled[id]
	return ok
}
