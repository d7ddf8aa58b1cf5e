package ecs

import (
	"fmt"

	"github.com/TheBitDrifter/bark"
	"github.com/TheBitDrifter/mask"
	"github.com/TheBitDrifter/table"
)

// QueryOperation names the logical combinator a query node applies to
// its components and children.
//
// Ported from query.go's QueryOperation/compositeNode/leafNode: the
// component-set membership tree is unchanged, generalized to operate on
// ecsframe's own Component/archetype types.
type QueryOperation int

const (
	OpAnd QueryOperation = iota
	OpOr
	OpNot
)

// QueryNode is one node of a compiled query's component-membership tree.
// Evaluation takes the world's schema explicitly because a node mask must
// be built in schema row-index space to compare against arch.Mask() (the
// archetype's mask is also schema row-index space, not the archetype's
// own local component ordering).
type QueryNode interface {
	evaluate(arch *archetype, schema table.Schema) bool
}

type compositeNode struct {
	op         QueryOperation
	children   []QueryNode
	components []Component
}

type leafNode struct {
	components []Component
}

func (n *compositeNode) evaluate(arch *archetype, schema table.Schema) bool {
	nodeMask := archMaskOf(n.components, schema)
	archMask := arch.Mask()

	switch n.op {
	case OpAnd:
		if !archMask.ContainsAll(nodeMask) {
			return false
		}
		for _, child := range n.children {
			if !child.evaluate(arch, schema) {
				return false
			}
		}
		return true
	case OpOr:
		if archMask.ContainsAny(nodeMask) {
			return true
		}
		for _, child := range n.children {
			if child.evaluate(arch, schema) {
				return true
			}
		}
		return false
	case OpNot:
		if len(n.components) > 0 && !archMask.ContainsNone(nodeMask) {
			return false
		}
		for _, child := range n.children {
			if child.evaluate(arch, schema) {
				return false
			}
		}
		return true
	}
	return false
}

func (n *leafNode) evaluate(arch *archetype, schema table.Schema) bool {
	nodeMask := archMaskOf(n.components, schema)
	return arch.Mask().ContainsAll(nodeMask)
}

// archMaskOf builds a mask from components using the schema's row index
// for each component — the same bit space arch.Mask() (archetype.go's
// table.(mask.Maskable).Mask()) is expressed in. Grounded on the
// teacher's query.go, which builds its node mask from
// storage.RowIndexFor(comp), not from a component's position within an
// archetype's own component list (the two only coincide when an
// archetype's components happen to be a contiguous prefix of
// registration order).
func archMaskOf(components []Component, schema table.Schema) mask.Mask {
	var m mask.Mask
	for _, c := range components {
		m.Mark(schema.RowIndexFor(c))
	}
	return m
}

// ChangeFilter is a per-entity predicate evaluated during cursor
// iteration, for query terms that cannot be decided from an archetype's
// static component mask alone (added/changed since a given tick).
type ChangeFilter func(entity Entity, last, this Tick) bool

// Query is a composable, reusable description of which entities a
// Cursor should visit: a component-membership tree (And/Or/Not,
// identical in shape to the teacher's) plus optional per-entity change
// filters layered on top.
//
// Grounded on query.go's query/Query; the archetype-match result for a
// built Query is cached on the Query itself (see compiledQueryCache
// below) and invalidated whenever a new archetype is created.
type Query struct {
	root          QueryNode
	entityFilters []ChangeFilter
	cache         compiledQueryCache
}

// NewQuery returns a fresh, empty Query builder.
func NewQuery() *Query {
	return &Query{}
}

// NewQuery returns a fresh, empty Query builder. Equivalent to the
// package-level NewQuery (the Query is not bound to world; the world is
// supplied when a Cursor is built); provided as a method for fluent
// construction at the call site (world.NewQuery().And(...)).
func (w *World) NewQuery() *Query {
	return NewQuery()
}

func (q *Query) validateItems(items ...any) error {
	for _, item := range items {
		switch item.(type) {
		case Component, []Component, QueryNode:
			continue
		default:
			return fmt.Errorf("ecs: invalid query item type: %T", item)
		}
	}
	return nil
}

func (q *Query) processItems(items ...any) ([]Component, []QueryNode) {
	if err := q.validateItems(items...); err != nil {
		panic(bark.AddTrace(err))
	}
	var components []Component
	var children []QueryNode
	for _, item := range items {
		switch v := item.(type) {
		case Component:
			components = append(components, v)
		case []Component:
			components = append(components, v...)
		case QueryNode:
			children = append(children, v)
		}
	}
	return components, children
}

// addClause folds a freshly built node into q.root: the first clause of a
// Query becomes its root outright, and every clause after that is
// conjoined with an implicit AND, so a builder chain like
// q.And(posC, velC).Not(deadC) reads as "With<Position,Velocity> and
// Without<Dead>" rather than the Not clause silently replacing the And
// clause that came before it.
func (q *Query) addClause(node QueryNode) {
	if q.root == nil {
		q.root = node
		return
	}
	q.root = &compositeNode{op: OpAnd, children: []QueryNode{q.root, node}}
}

// And requires every listed component/child to match; items may be
// Component, []Component, or a nested QueryNode built from And/Or/Not.
// Chained onto an existing clause, the new requirement is conjoined with
// it (spec.md §4.4's filter shape is conjunctive).
func (q *Query) And(items ...any) *Query {
	components, children := q.processItems(items...)
	q.addClause(&compositeNode{op: OpAnd, components: components, children: children})
	return q
}

// Or requires at least one listed component/child to match, conjoined
// with any clause already on the query.
func (q *Query) Or(items ...any) *Query {
	components, children := q.processItems(items...)
	q.addClause(&compositeNode{op: OpOr, components: components, children: children})
	return q
}

// Not requires none of the listed components/children to match (the
// filter shape's Without<T>), conjoined with any clause already on the
// query.
func (q *Query) Not(items ...any) *Query {
	components, children := q.processItems(items...)
	q.addClause(&compositeNode{op: OpNot, components: components, children: children})
	return q
}

// Filter appends per-entity change filters (see ComponentHandle.Added,
// ComponentHandle.Changed), evaluated in addition to the archetype-level
// membership tree.
func (q *Query) Filter(filters ...ChangeFilter) *Query {
	q.entityFilters = append(q.entityFilters, filters...)
	return q
}

func (q *Query) matchesArchetype(arch *archetype, schema table.Schema) bool {
	if q.root == nil {
		return true
	}
	return q.root.evaluate(arch, schema)
}

// compiledQueryCache memoizes a Query's matching archetypes against the
// archetypeTable's generation counter, so repeated cursor construction
// for a hot query skips re-scanning every archetype each frame.
//
// Grounded on cache.go's SimpleCache[T], repurposed here as a
// single-entry memo keyed by generation rather than by string since a
// Query already is its own cache key (one cache per constructed Query).
type compiledQueryCache struct {
	generation uint64
	matched    []*archetype
	valid      bool
}

func (q *Query) compile(world *World) []*archetype {
	all, generation := world.archetypes.snapshot()
	if q.cache.valid && q.cache.generation == generation {
		return q.cache.matched
	}
	matched := make([]*archetype, 0, len(all))
	for _, arch := range all {
		if q.matchesArchetype(arch, world.schema) {
			matched = append(matched, arch)
		}
	}
	q.cache.generation = generation
	q.cache.matched = matched
	q.cache.valid = true
	return matched
}
