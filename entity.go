package ecs

import (
	"sync"
	"sync/atomic"

	"github.com/ashgrove/ecsframe/ecslog"
)

// generationMin is the first valid generation value; zero is reserved so
// a zero-value Entity can never alias a live one.
const generationMin uint32 = 1

// Entity is a stable identifier for a game object: a dense index plus a
// non-zero generation. A handle is stale once the index's generation has
// moved past the one the handle carries.
type Entity struct {
	Index      uint32
	Generation uint32
}

// IsZero reports whether e is the zero Entity value (never a valid handle).
func (e Entity) IsZero() bool { return e.Generation == 0 }

// ResourceEntity and RootSceneEntity are reserved ids materialised by every
// World: the resource entity holds process-wide resources as components,
// and the root scene entity anchors the optional scene graph.
var (
	ResourceEntity   = Entity{Index: 0, Generation: generationMin}
	RootSceneEntity  = Entity{Index: 1, Generation: generationMin}
	reservedEntities = 2
)

// allocator mints and recycles entity identities with generations.
//
// Grounded on original_source/crates/weaver-ecs/src/entity.rs: Entities{
// free_cursor, pending, generations}. alloc is the writer-path fast path;
// reserve is usable from any goroutine, with materialisation deferred to
// flush.
type allocator struct {
	mu          sync.Mutex
	freeCursor  atomic.Int64
	pending     []uint32
	generations []uint32
}

func newAllocator() *allocator {
	a := &allocator{}
	// Pre-seed the two reserved entities so they always exist and are live.
	a.generations = append(a.generations, generationMin, generationMin)
	return a
}

// alloc is the single-threaded writer path: pop a free id if one exists,
// otherwise mint a fresh one. Requires the allocator to be flushed.
func (a *allocator) alloc() Entity {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.verifyFlushedLocked()

	if n := len(a.pending); n > 0 {
		index := a.pending[n-1]
		a.pending = a.pending[:n-1]
		a.freeCursor.Store(int64(len(a.pending)))
		return Entity{Index: index, Generation: a.generations[index]}
	}

	index := uint32(len(a.generations))
	a.generations = append(a.generations, generationMin)
	return Entity{Index: index, Generation: generationMin}
}

// reserve is the optimistic path: atomically decrement the free cursor.
// A positive result before the decrement names a pending free id, read
// under the allocator mutex; a non-positive result names an id beyond the
// current generation vector, materialised later by flush.
func (a *allocator) reserve() Entity {
	n := a.freeCursor.Add(-1) + 1
	if n > 0 {
		a.mu.Lock()
		index := a.pending[n-1]
		gen := a.generations[index]
		a.mu.Unlock()
		return Entity{Index: index, Generation: gen}
	}
	index := int64(len(a.generations)) - n
	return Entity{Index: uint32(index), Generation: generationMin}
}

// flush grows the generation vector to cover any negative cursor, then
// truncates the pending-free list to match the positive cursor. After
// flush, reserved entities are fully live and queryable.
func (a *allocator) flush() {
	a.mu.Lock()
	defer a.mu.Unlock()

	cursor := a.freeCursor.Load()
	if cursor < 0 {
		oldLen := len(a.generations)
		newLen := oldLen + int(-cursor)
		for len(a.generations) < newLen {
			a.generations = append(a.generations, generationMin)
		}
		a.freeCursor.Store(0)
		cursor = 0
	}
	if int(cursor) <= len(a.pending) {
		a.pending = a.pending[:cursor]
	}
}

func (a *allocator) verifyFlushedLocked() {
	if a.freeCursor.Load() != int64(len(a.pending)) {
		panic("ecs: allocator.flush() must be called before alloc()")
	}
}

// free validates the handle's generation and, if it matches, increments
// the index's generation (skipping zero on wraparound) and pushes the
// index onto the pending-free list.
func (a *allocator) free(e Entity) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if int(e.Index) >= len(a.generations) {
		return false
	}
	if a.generations[e.Index] != e.Generation {
		return false
	}

	next := a.generations[e.Index] + 1
	if next == 0 {
		next = generationMin
		ecslog.Default().Warn("entity generation wrapped around", "index", e.Index)
	}
	a.generations[e.Index] = next

	a.pending = append(a.pending, e.Index)
	a.freeCursor.Store(int64(len(a.pending)))
	return true
}

// isLive reports whether e's generation matches the index's current
// generation — the StaleEntity check used throughout the package.
func (a *allocator) isLive(e Entity) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if int(e.Index) >= len(a.generations) {
		return false
	}
	return a.generations[e.Index] == e.Generation
}

// currentGeneration returns the live generation for index, or false if the
// index has never been allocated.
func (a *allocator) currentGeneration(index uint32) (uint32, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if int(index) >= len(a.generations) {
		return 0, false
	}
	return a.generations[index], true
}

// liveCount returns the number of currently allocated, non-freed entities.
func (a *allocator) liveCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.generations) - len(a.pending)
}

// isNewerThan implements the wrapping-correct tick comparison from
// spec.md §3: tick T is newer than reference window [last, this] iff
// (this - T) < (this - last), computed with wrapping subtraction.
func isNewerThan(t, last, this Tick) bool {
	lastDiff := this.relativeTo(last)
	thisDiff := this.relativeTo(t)
	return thisDiff < lastDiff
}
