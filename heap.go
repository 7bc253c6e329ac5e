package glean

import (
	"bytes"
	"fmt"

	"github.com/benbjohnson/immutable"
)

// Handle addresses a container record stored in a Heap. Aliases of a symbolic
// container share its handle.
type Handle uint64

// Heap is the arena of symbolic container records for a single path.
//
// Records are immutable; mutating a container stores a new record under the
// same handle. The backing map is persistent so a snapshot is O(1) and is not
// affected by later writes.
type Heap struct {
	m    *immutable.SortedMap
	next *uint64 // shared by snapshots so handles stay unique
}

// NewHeap returns a new, empty heap.
func NewHeap() *Heap {
	var next uint64
	return &Heap{
		m:    immutable.NewSortedMap(&uint64Comparer{}),
		next: &next,
	}
}

// Alloc stores a new record and returns its handle.
func (h *Heap) Alloc(rec interface{}) Handle {
	*h.next++
	handle := Handle(*h.next)
	h.Store(handle, rec)
	return handle
}

// Load returns the record for handle. Panic if the handle does not exist.
func (h *Heap) Load(handle Handle) interface{} {
	rec, ok := h.m.Get(uint64(handle))
	assert(ok, "heap: invalid handle: %d", handle)
	return rec
}

// Store replaces the record for handle.
func (h *Heap) Store(handle Handle, rec interface{}) {
	h.m = h.m.Set(uint64(handle), rec)
}

// Len returns the number of records.
func (h *Heap) Len() int {
	return h.m.Len()
}

// Snapshot returns a copy of the heap as it exists now.
func (h *Heap) Snapshot() *Heap {
	return &Heap{m: h.m, next: h.next}
}

// Dump returns a human readable listing of the heap records.
func (h *Heap) Dump() string {
	var buf bytes.Buffer
	itr := h.m.Iterator()
	for {
		k, v := itr.Next()
		if k == nil {
			return buf.String()
		}
		fmt.Fprintf(&buf, "%08d %s", k.(uint64), dumpConfig.Sdump(v))
	}
}

// uint64Comparer compares two 64-bit unsigned integers. Implements immutable.Comparer.
type uint64Comparer struct{}

// Compare returns -1 if a is less than b, returns 1 if a is greater than b, and
// returns 0 if a is equal to b. Panic if a or b is not an uint64.
func (c *uint64Comparer) Compare(a, b interface{}) int {
	if i, j := a.(uint64), b.(uint64); i < j {
		return -1
	} else if i > j {
		return 1
	}
	return 0
}
