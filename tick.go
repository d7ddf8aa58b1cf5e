package ecs

// Tick is a monotonically increasing counter used to order component
// writes and queries in time. Comparisons use wrapping subtraction so a
// world tick can run indefinitely without overflow ever corrupting
// ordering — see isNewerThan in entity.go.
//
// Grounded on original_source/crates/weaver-ecs/src/change_detection.rs's
// Tick/ComponentTicks (relative_to, is_newer_than, is_added/is_changed).
type Tick uint64

// relativeTo returns t - other using wrapping (unsigned) subtraction.
func (t Tick) relativeTo(other Tick) Tick {
	return t - other
}

// IsNewerThan reports whether t falls within the window (last, this],
// i.e. whether a write at tick t would be observed by a reader whose last
// run was at last and whose current run is at this.
func (t Tick) IsNewerThan(last, this Tick) bool {
	return isNewerThan(t, last, this)
}

// ComponentTicks records when a component value was added and last
// changed, used to answer IsAdded/IsChanged queries for a (last, this]
// window.
type ComponentTicks struct {
	Added   Tick
	Changed Tick
}

// NewComponentTicks stamps both added and changed with tick.
func NewComponentTicks(tick Tick) ComponentTicks {
	return ComponentTicks{Added: tick, Changed: tick}
}

// IsAdded reports whether the component was added within (last, this].
func (c ComponentTicks) IsAdded(last, this Tick) bool {
	return c.Added.IsNewerThan(last, this)
}

// IsChanged reports whether the component was changed within (last, this].
func (c ComponentTicks) IsChanged(last, this Tick) bool {
	return c.Changed.IsNewerThan(last, this)
}

// SetChanged stamps the changed tick, leaving Added untouched.
func (c *ComponentTicks) SetChanged(tick Tick) {
	c.Changed = tick
}
