package schedule

import (
	ecs "github.com/ashgrove/ecsframe"
)

// Func is the body a System runs: typically a cursor loop over one or
// more queries, component mutation, command enqueueing, or resource
// access. Systems receive *ecs.World directly (spec.md's "world
// reference"/"exclusive world reference" parameter kinds) rather than a
// bespoke param-injection container, matching the teacher's habit of
// passing *World straight to System.Update.
type Func func(world *ecs.World) error

// System is one named, schedulable unit of work: its access descriptors
// drive automatic intra-stage ordering against other systems in the same
// stage, and explicit Before/After constraints override or supplement
// that inference.
//
// Grounded on ecs/system.go's System/priority ordering, replacing
// priority with access-descriptor-driven DAG ordering (spec.md §4.5) and
// explicit before/after edges (weaver-ecs's system_schedule.rs
// order_systems).
type System struct {
	Name      string
	Fn        Func
	Stage     Stage
	Exclusive bool

	accesses []Access
	before   []string
	after    []string
}

// NewSystem returns a System named name running fn in stage.
func NewSystem(name string, stage Stage, fn Func) *System {
	return &System{Name: name, Stage: stage, Fn: fn}
}

// Reads records that the system performs read-only access to T.
func (s *System) Reads(accesses ...Access) *System {
	s.accesses = append(s.accesses, accesses...)
	return s
}

// Writes records that the system performs mutating access to T.
func (s *System) Writes(accesses ...Access) *System {
	s.accesses = append(s.accesses, accesses...)
	return s
}

// Before requires this system to run before the named systems within
// the same stage.
func (s *System) Before(names ...string) *System {
	s.before = append(s.before, names...)
	return s
}

// After requires this system to run after the named systems within the
// same stage.
func (s *System) After(names ...string) *System {
	s.after = append(s.after, names...)
	return s
}

// AsExclusive marks the system as requiring sole access to the world:
// the scheduler runs it alone, with no other system of the same stage
// concurrently in flight, matching spec.md's "exclusive world reference"
// parameter kind.
func (s *System) AsExclusive() *System {
	s.Exclusive = true
	return s
}

// conflictsWith reports whether s and other declare conflicting access
// to some common type, requiring them to be serialized if neither
// declares an explicit order.
func (s *System) conflictsWith(other *System) bool {
	if s.Exclusive || other.Exclusive {
		return true
	}
	for _, a := range s.accesses {
		for _, b := range other.accesses {
			if a.conflicts(b) {
				return true
			}
		}
	}
	return false
}

// selfConflict reports the first type, if any, that s declares both
// read-only and mutable access to — the post-union validity check
// spec.md §4.5 requires ("no type appears in both a read-only set and
// the corresponding written set"), checked once at bind time rather
// than per-run.
func (s *System) selfConflict() (string, bool) {
	kindOf := make(map[string]AccessKind, len(s.accesses))
	for _, a := range s.accesses {
		if prev, ok := kindOf[a.Type]; ok && prev != a.Kind {
			return a.Type, true
		}
		kindOf[a.Type] = a.Kind
	}
	return "", false
}
