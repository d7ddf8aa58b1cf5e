package ecs

import (
	"github.com/TheBitDrifter/table"
)

// Component identifies a registered value type: statically known type
// identity, size, and alignment, with move/drop handled by the table
// package's columnar storage. Components are erased into a uniform
// handle the same way the teacher's component.go erases them into
// table.ElementType.
type Component interface {
	table.ElementType
}

// ComponentHandle is a typed, registered component: it carries the
// type-erased identity (Component/table.ElementType) together with a
// concrete table.Accessor[T] for reading and writing values once an
// entity's row is known.
//
// Grounded on componentaccessible.go's AccessibleComponent[T], extended
// with change-tick aware getters (Added/Changed) backed by the World's
// per-(entity,component) tick map — see World.ticksFor in world.go.
type ComponentHandle[T any] struct {
	Component
	table.Accessor[T]
	world *World
}

// RegisterComponent registers T with world's schema and returns a typed
// handle used to spawn, query, and mutate values of that type.
//
// Grounded on factory.go's FactoryNewComponent[T].
func RegisterComponent[T any](world *World) ComponentHandle[T] {
	iden := table.FactoryNewElementType[T]()
	world.schema.Register(iden)
	return ComponentHandle[T]{
		Component: iden,
		Accessor:  table.FactoryNewAccessor[T](iden),
		world:     world,
	}
}

// ComponentValue pairs a registered component with an initial value, the
// unit spawn/insert operations take to seed a column.
type ComponentValue struct {
	component Component
	value     any
}

// Value returns a ComponentValue pairing h's component with v, for use
// with World.Spawn and Commands.Spawn.
func (h ComponentHandle[T]) Value(v T) ComponentValue {
	return ComponentValue{component: h.Component, value: v}
}

// GetFromEntity returns the component value for entity, or nil if entity
// is stale or does not carry the component.
func (h ComponentHandle[T]) GetFromEntity(entity Entity) *T {
	row, ok := h.world.rowOf(entity)
	if !ok {
		return nil
	}
	if !h.Accessor.Check(row.tbl) {
		return nil
	}
	h.world.markChanged(entity, h.Component)
	return h.Accessor.Get(row.entry.Index(), row.tbl)
}

// GetFromEntityReadOnly returns the component value without updating the
// changed-tick, for read-only query fetches.
func (h ComponentHandle[T]) GetFromEntityReadOnly(entity Entity) *T {
	row, ok := h.world.rowOf(entity)
	if !ok {
		return nil
	}
	if !h.Accessor.Check(row.tbl) {
		return nil
	}
	return h.Accessor.Get(row.entry.Index(), row.tbl)
}

// Has reports whether entity currently carries this component.
func (h ComponentHandle[T]) Has(entity Entity) bool {
	row, ok := h.world.rowOf(entity)
	if !ok {
		return false
	}
	return h.Accessor.Check(row.tbl)
}

// GetFromCursor returns the component value at the cursor's current row,
// marking the changed-tick (mutable access).
func (h ComponentHandle[T]) GetFromCursor(c *Cursor) *T {
	entity := c.CurrentEntity()
	return h.GetFromEntity(entity)
}

// GetFromCursorReadOnly returns the component value at the cursor's
// current row without touching the changed-tick.
func (h ComponentHandle[T]) GetFromCursorReadOnly(c *Cursor) *T {
	entity := c.CurrentEntity()
	return h.GetFromEntityReadOnly(entity)
}

// Added reports whether the component on entity was added within the
// (last, this] tick window.
func (h ComponentHandle[T]) Added(entity Entity, last, this Tick) bool {
	return h.world.ticksFor(entity, h.Component).IsAdded(last, this)
}

// Changed reports whether the component on entity was changed within the
// (last, this] tick window.
func (h ComponentHandle[T]) Changed(entity Entity, last, this Tick) bool {
	return h.world.ticksFor(entity, h.Component).IsChanged(last, this)
}

// AddedFilter returns a per-entity change filter usable with Query.Filter,
// matching entities whose copy of this component was added since the
// reading system's last run.
func (h ComponentHandle[T]) AddedFilter() ChangeFilter {
	return func(entity Entity, last, this Tick) bool {
		return h.Added(entity, last, this)
	}
}

// ChangedFilter returns a per-entity change filter usable with
// Query.Filter, matching entities whose copy of this component changed
// since the reading system's last run.
func (h ComponentHandle[T]) ChangedFilter() ChangeFilter {
	return func(entity Entity, last, this Tick) bool {
		return h.Changed(entity, last, this)
	}
}
