package ecs

import (
	"sort"
	"sync"

	"github.com/TheBitDrifter/mask"
	"github.com/TheBitDrifter/table"
)

type archetypeID uint32

// archetype is the physical storage bucket for every entity carrying an
// identical component set: one table.Table (columnar storage, entries,
// and per-column dense arrays) per set, with a mask.Mask for fast
// membership testing by the query engine.
//
// Grounded on archetype.go: newArchetype builds a table.Table from a
// schema, entry index, and component set via table.NewTableBuilder.
type archetype struct {
	id         archetypeID
	components []Component
	set        mask.Mask
	table      table.Table
}

func newArchetype(schema table.Schema, entryIndex table.EntryIndex, id archetypeID, components ...Component) (*archetype, error) {
	elementTypes := make([]table.ElementType, len(components))
	for i, c := range components {
		elementTypes[i] = c
	}
	tbl, err := table.NewTableBuilder().
		WithSchema(schema).
		WithEntryIndex(entryIndex).
		WithElementTypes(elementTypes...).
		Build()
	if err != nil {
		return nil, err
	}
	sorted := append([]Component{}, components...)
	sort.Slice(sorted, func(i, j int) bool {
		return schema.RowIndexFor(sorted[i]) < schema.RowIndexFor(sorted[j])
	})
	return &archetype{
		id:         id,
		components: sorted,
		table:      tbl,
	}, nil
}

func (a *archetype) ID() uint32           { return uint32(a.id) }
func (a *archetype) Table() table.Table   { return a.table }
func (a *archetype) Mask() mask.Mask      { return a.table.(mask.Maskable).Mask() }
func (a *archetype) Len() int             { return a.table.Length() }
func (a *archetype) Components() []Component { return a.components }

// archetypeTable owns every archetype lazily created for a World. It is
// never shrunk: archetypes persist for the lifetime of the world so that
// archetype ids stay stable even when transiently empty (spec.md §3).
//
// Grounded on storage.go's archetypes{nextID, asSlice, idsGroupedByMask},
// scoped per-World instead of the teacher's process-wide storage to avoid
// the global-mutable-state anti-pattern spec.md §9 calls out.
type archetypeTable struct {
	mu         sync.RWMutex
	nextID     archetypeID
	bySet      map[mask.Mask]*archetype
	byTable    map[table.Table]*archetype
	all        []*archetype
	generation uint64
}

func newArchetypeTable() *archetypeTable {
	return &archetypeTable{
		nextID:  1,
		bySet:   make(map[mask.Mask]*archetype),
		byTable: make(map[table.Table]*archetype),
	}
}

// lookupOrCreate returns the archetype for the given component set,
// creating it if this is the first time the set has been seen.
func (at *archetypeTable) lookupOrCreate(schema table.Schema, entryIndex table.EntryIndex, components ...Component) (*archetype, error) {
	var set mask.Mask
	for _, c := range components {
		schema.Register(c)
		set.Mark(schema.RowIndexFor(c))
	}

	at.mu.RLock()
	if a, ok := at.bySet[set]; ok {
		at.mu.RUnlock()
		return a, nil
	}
	at.mu.RUnlock()

	at.mu.Lock()
	defer at.mu.Unlock()
	if a, ok := at.bySet[set]; ok {
		return a, nil
	}

	a, err := newArchetype(schema, entryIndex, at.nextID, components...)
	if err != nil {
		return nil, err
	}
	a.set = set
	at.nextID++
	at.bySet[set] = a
	at.byTable[a.table] = a
	at.all = append(at.all, a)
	at.generation++
	return a, nil
}

func (at *archetypeTable) archetypeForTable(tbl table.Table) (*archetype, bool) {
	at.mu.RLock()
	defer at.mu.RUnlock()
	a, ok := at.byTable[tbl]
	return a, ok
}

func (at *archetypeTable) snapshot() ([]*archetype, uint64) {
	at.mu.RLock()
	defer at.mu.RUnlock()
	out := make([]*archetype, len(at.all))
	copy(out, at.all)
	return out, at.generation
}
