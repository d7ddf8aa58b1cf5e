package ecs

import "iter"

// Cursor iterates the entities matching a Query against a World,
// holding a world lock for the duration so structural mutation cannot
// shift rows out from under the cursor: World's Spawn/Despawn/
// InsertComponent/RemoveComponent return LockedWorldError while the lock
// is held, and CommandBuffer operations stay queued until it is released.
//
// Grounded on cursor.go's Cursor (storageIndex/entityIndex/remaining,
// Initialize/advance/Reset/Entities/CurrentEntity/EntityAtOffset/
// TotalMatched), extended with per-entity ChangeFilter evaluation and a
// last/this tick window used by Added/Changed filters.
type Cursor struct {
	world   *World
	query   *Query
	last    Tick
	this    Tick
	lockBit uint32

	matched     []*archetype
	archIndex   int
	entityIndex int
	remaining   int

	initialized bool
	locked      bool
}

// Cursor returns a new Cursor over query, with the change-detection
// window covering every change since the world began. Use CursorSince
// from within a system to window Added/Changed filters to the system's
// last run.
func (w *World) Cursor(query *Query) *Cursor {
	return w.CursorSince(query, 0)
}

// CursorSince returns a new Cursor over query with the change-detection
// window set to (last, world.Tick()]. Systems pass their own
// World.LastRunTick(name) as last so Added/Changed filters see only
// changes made since the system's previous run.
func (w *World) CursorSince(query *Query, last Tick) *Cursor {
	return &Cursor{world: w, query: query, last: last, this: w.Tick()}
}

// Initialize resolves the query's matching archetypes and takes a world
// lock. Called automatically by Next/Entities/TotalMatched; calling it
// directly is only needed to pin the lock before the first Next call.
func (c *Cursor) Initialize() {
	if c.initialized {
		return
	}
	c.lockBit = c.world.addLock()
	c.locked = true
	c.matched = c.query.compile(c.world)
	c.archIndex = 0
	c.entityIndex = 0
	if len(c.matched) > 0 {
		c.remaining = c.matched[0].Len()
	}
	c.initialized = true
}

// Reset releases the cursor's world lock and clears its position,
// flushing any commands that were deferred while the cursor was locking
// the world.
func (c *Cursor) Reset() {
	c.archIndex = 0
	c.entityIndex = 0
	c.remaining = 0
	c.matched = nil
	c.initialized = false
	if c.locked {
		c.world.removeLock(c.lockBit)
		c.locked = false
	}
}

func (c *Cursor) passesEntityFilters(entity Entity) bool {
	for _, f := range c.query.entityFilters {
		if !f(entity, c.last, c.this) {
			return false
		}
	}
	return true
}

// Next advances the cursor to the next matching entity and reports
// whether one was found. Entities failing a ChangeFilter are skipped
// transparently.
func (c *Cursor) Next() bool {
	if !c.initialized {
		c.Initialize()
	}
	for {
		for c.entityIndex < c.remaining {
			idx := c.entityIndex
			c.entityIndex++
			entity, ok := c.currentEntityAt(idx)
			if !ok {
				continue
			}
			if c.passesEntityFilters(entity) {
				return true
			}
		}
		c.archIndex++
		if c.archIndex >= len(c.matched) {
			c.Reset()
			return false
		}
		c.entityIndex = 0
		c.remaining = c.matched[c.archIndex].Len()
	}
}

func (c *Cursor) currentEntityAt(rowIndex int) (Entity, bool) {
	if c.archIndex >= len(c.matched) {
		return Entity{}, false
	}
	arch := c.matched[c.archIndex]
	entry, err := arch.table.Entry(rowIndex)
	if err != nil {
		return Entity{}, false
	}
	return c.world.entityForEntry(entry.ID())
}

// CurrentEntity returns the entity at the cursor's current position
// (the row visited by the most recent successful Next).
func (c *Cursor) CurrentEntity() Entity {
	entity, _ := c.currentEntityAt(c.entityIndex - 1)
	return entity
}

// EntityAtOffset returns the entity offset rows away from the cursor's
// current position, within the same archetype.
func (c *Cursor) EntityAtOffset(offset int) (Entity, bool) {
	return c.currentEntityAt(c.entityIndex - 1 + offset)
}

// Entities returns a range-over-func iterator of (row index, entity)
// pairs across every matched archetype, in the teacher's cursor.go
// style. Component access within the loop body goes through
// ComponentHandle.GetFromCursor using the cursor's CurrentEntity.
func (c *Cursor) Entities() iter.Seq2[int, Entity] {
	return func(yield func(int, Entity) bool) {
		c.Initialize()
		for c.Next() {
			if !yield(c.entityIndex-1, c.CurrentEntity()) {
				c.Reset()
				return
			}
		}
	}
}

// TotalMatched returns the total entity count across every archetype
// matching the cursor's query, including entities a ChangeFilter would
// skip.
func (c *Cursor) TotalMatched() int {
	c.Initialize()
	total := 0
	for _, arch := range c.matched {
		total += arch.Len()
	}
	c.Reset()
	return total
}
