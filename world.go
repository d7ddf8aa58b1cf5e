package ecs

import (
	"fmt"
	"reflect"

	"github.com/TheBitDrifter/bark"
	"github.com/TheBitDrifter/mask"
	"github.com/TheBitDrifter/table"
	"github.com/ashgrove/ecsframe/ecslog"
)

// tickKey is the map key used for per-(entity, component) change-tick
// bookkeeping. ecsframe keeps ticks in a map keyed by stable entity
// identity rather than as
// columns parallel to table rows, because swap-remove bookkeeping for
// table rows is owned internally by the table package and not exposed
// for us to keep a parallel array in lock-step.
type tickKey struct {
	entity    Entity
	component Component
}

// resolvedRow is the live location of an entity: its current archetype,
// table.Entry, and table.Table, re-resolved on every access rather than
// cached, the same way the teacher's entity.go always re-fetches via
// globalEntryIndex.Entry(...) instead of caching a table.Entry across
// migrations.
type resolvedRow struct {
	arch  *archetype
	entry table.Entry
	tbl   table.Table
}

// World is the top-level ECS container: the entity allocator, the
// archetype table, resources (components on ResourceEntity), the
// monotonic change tick, per-system last-run ticks, the deferred command
// queue, and event queues.
//
// Each World owns its own table.Schema and table.EntryIndex instance
// rather than sharing the teacher's process-wide globals
// (globalEntryIndex, globalEntities in storage.go) — spec.md §9 is
// explicit that resources are "a convention, not a global" and that
// implementations must not introduce process-wide singletons.
type World struct {
	config     Config
	alloc      *allocator
	schema     table.Schema
	entryIndex table.EntryIndex
	archetypes *archetypeTable

	entryIDs       []table.EntryID
	components     [][]Component
	entityByEntry  map[table.EntryID]Entity

	tick         Tick
	lastRunTicks map[string]Tick
	addedTicks   map[tickKey]ComponentTicks

	locks       mask.Mask256
	nextLockBit uint32

	children map[Entity][]Entity
	parent   map[Entity]Entity

	commands *CommandBuffer
	events   *eventRegistry

	log *ecslog.Logger
}

// NewWorld constructs a World ready to spawn entities and run queries.
func NewWorld(opts ...Option) *World {
	cfg := resolveConfig(opts...)
	w := &World{
		config:       cfg,
		alloc:        newAllocator(),
		schema:       table.Factory.NewSchema(),
		entryIndex:   table.Factory.NewEntryIndex(),
		archetypes:   newArchetypeTable(),
		entryIDs:     make([]table.EntryID, reservedEntities, max(reservedEntities, cfg.InitialArchetypeCapacity)),
		components:   make([][]Component, reservedEntities, max(reservedEntities, cfg.InitialArchetypeCapacity)),
		lastRunTicks: make(map[string]Tick),
		addedTicks:   make(map[tickKey]ComponentTicks),
		children:      make(map[Entity][]Entity),
		parent:        make(map[Entity]Entity),
		entityByEntry: make(map[table.EntryID]Entity),
		events:       newEventRegistry(cfg.EventRetentionFrames),
		log:          ecslog.Default(),
	}
	w.log.SetDebugMode(cfg.Debug)
	w.commands = newCommandBuffer(w)

	// Materialise the resource and root-scene entities in the empty
	// archetype so has_component/has_resource work immediately.
	empty, err := w.archetypes.lookupOrCreate(w.schema, w.entryIndex)
	if err != nil {
		panic(bark.AddTrace(fmt.Errorf("ecs: failed to create empty archetype: %w", err)))
	}
	for i := 0; i < reservedEntities; i++ {
		entries, err := empty.table.NewEntries(1)
		if err != nil {
			panic(bark.AddTrace(err))
		}
		w.entryIDs[i] = entries[0].ID()
		w.entityByEntry[entries[0].ID()] = Entity{Index: uint32(i), Generation: generationMin}
	}

	return w
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Tick returns the world's current monotonic change tick.
func (w *World) Tick() Tick { return w.tick }

// AdvanceTick advances the world tick by one and returns the new value.
// The scheduler calls this once per system execution (spec.md §4.5).
func (w *World) AdvanceTick() Tick {
	w.tick++
	return w.tick
}

// LastRunTick returns the last-run tick recorded for the named system,
// defaulting to tick zero for a system that has never run.
func (w *World) LastRunTick(system string) Tick {
	return w.lastRunTicks[system]
}

// RecordSystemRun stamps the named system's last-run tick to the world's
// current tick.
func (w *World) RecordSystemRun(system string) {
	w.lastRunTicks[system] = w.tick
}

// Commands returns the world's deferred command buffer.
func (w *World) Commands() *CommandBuffer { return w.commands }

// Events returns the world's event registry.
func (w *World) Events() *eventRegistry { return w.events }

// Locked reports whether structural mutation is currently forbidden
// (an outstanding cursor holds a lock bit).
//
// Grounded on storage.go's Locked/AddLock/RemoveLock bit-mask pattern.
func (w *World) Locked() bool { return !w.locks.IsEmpty() }

func (w *World) addLock() uint32 {
	bit := w.nextLockBit
	w.nextLockBit++
	w.locks.Mark(bit)
	return bit
}

func (w *World) removeLock(bit uint32) {
	w.locks.Unmark(bit)
	if w.locks.IsEmpty() {
		w.commands.processIfUnlocked()
	}
}

// rowOf resolves entity's current storage location. It returns false if
// entity is stale (StaleEntity) or has never been spawned.
func (w *World) rowOf(entity Entity) (resolvedRow, bool) {
	if entity.IsZero() {
		return resolvedRow{}, false
	}
	if !w.alloc.isLive(entity) {
		return resolvedRow{}, false
	}
	if int(entity.Index) >= len(w.entryIDs) {
		return resolvedRow{}, false
	}
	// table.EntryID is 1-based (mirrors the teacher's entity.go: "en, err
	// := globalEntryIndex.Entry(int(e.id - 1))"), so the lookup subtracts
	// one to land on the EntryIndex's 0-based slot.
	entry, err := w.entryIndex.Entry(int(w.entryIDs[entity.Index]) - 1)
	if err != nil {
		return resolvedRow{}, false
	}
	tbl := entry.Table()
	arch, ok := w.archetypes.archetypeForTable(tbl)
	if !ok {
		return resolvedRow{}, false
	}
	return resolvedRow{arch: arch, entry: entry, tbl: tbl}, true
}

// entityForEntry resolves a table.EntryID back to the Entity handle that
// owns it, used by Cursor.CurrentEntity to translate a table row back
// into entity identity.
func (w *World) entityForEntry(id table.EntryID) (Entity, bool) {
	e, ok := w.entityByEntry[id]
	return e, ok
}

// Valid reports whether entity is live (not stale, not freed).
func (w *World) Valid(entity Entity) bool {
	_, ok := w.rowOf(entity)
	return ok
}

// Components returns the component list currently attached to entity.
func (w *World) Components(entity Entity) []Component {
	if !w.alloc.isLive(entity) || int(entity.Index) >= len(w.components) {
		return nil
	}
	return w.components[entity.Index]
}

// Spawn creates a new entity carrying the given component values and
// returns its handle. Spawn is the eager, single-threaded writer path;
// use Commands().Spawn to defer spawning from inside a running system.
func (w *World) Spawn(values ...ComponentValue) (Entity, error) {
	if w.Locked() {
		return Entity{}, LockedWorldError{}
	}

	comps := make([]Component, len(values))
	for i, v := range values {
		comps[i] = v.component
	}

	arch, err := w.archetypes.lookupOrCreate(w.schema, w.entryIndex, comps...)
	if err != nil {
		return Entity{}, fmt.Errorf("ecs: spawn: %w", err)
	}
	entries, err := arch.table.NewEntries(1)
	if err != nil {
		return Entity{}, fmt.Errorf("ecs: spawn: %w", err)
	}
	entry := entries[0]

	entity := w.alloc.alloc()
	w.alloc.flush()
	w.growTo(entity.Index)
	w.entryIDs[entity.Index] = entry.ID()
	w.components[entity.Index] = comps
	w.entityByEntry[entry.ID()] = entity

	if err := w.assignValues(arch.table, entry.Index(), values); err != nil {
		return Entity{}, err
	}

	if w.config.ChangeDetection {
		for _, c := range comps {
			w.addedTicks[tickKey{entity, c}] = NewComponentTicks(w.tick)
		}
	}

	return entity, nil
}

func (w *World) growTo(index uint32) {
	need := int(index) + 1
	for len(w.entryIDs) < need {
		w.entryIDs = append(w.entryIDs, 0)
		w.components = append(w.components, nil)
	}
}

func (w *World) assignValues(tbl table.Table, rowIndex int, values []ComponentValue) error {
	for _, v := range values {
		if v.value == nil {
			continue
		}
		valueType := reflect.TypeOf(v.value)
		found := false
		for _, col := range tbl.Rows() {
			if col.Type().Elem() == valueType {
				reflect.Value(col).Index(rowIndex).Set(reflect.ValueOf(v.value))
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("ecs: no column for value type %v", valueType)
		}
	}
	return nil
}

// Despawn destroys entity, running drop semantics for every component it
// carries exactly once (handled by the table package's DeleteEntries). A
// stale handle is a logged no-op, per spec.md §7's StaleEntity policy.
func (w *World) Despawn(entity Entity) error {
	if w.Locked() {
		return LockedWorldError{}
	}
	r, ok := w.rowOf(entity)
	if !ok {
		w.log.Warn("despawn: stale entity", "entity", entity)
		return nil
	}
	if _, err := r.tbl.DeleteEntries(int(r.entry.ID())); err != nil {
		return fmt.Errorf("ecs: despawn: %w", err)
	}
	for _, c := range w.components[entity.Index] {
		delete(w.addedTicks, tickKey{entity, c})
	}
	delete(w.entityByEntry, w.entryIDs[entity.Index])
	w.components[entity.Index] = nil
	w.entryIDs[entity.Index] = 0
	w.alloc.free(entity)
	return nil
}

// HasComponent reports whether entity currently carries component c.
func (w *World) HasComponent(entity Entity, c Component) bool {
	for _, have := range w.Components(entity) {
		if have.ID() == c.ID() {
			return true
		}
	}
	return false
}

// InsertComponent adds a component (with its value) to entity, migrating
// it to the archetype for the resulting component set.
//
// Grounded on entity.go's AddComponent/AddComponentWithValue, generalized
// from an entity-bound method into a World-level operation per spec.md
// §3's "Entity... not a container" framing.
func (w *World) InsertComponent(entity Entity, value ComponentValue) error {
	if w.Locked() {
		return LockedWorldError{}
	}
	r, ok := w.rowOf(entity)
	if !ok {
		w.log.Warn("insert component: stale entity", "entity", entity)
		return nil
	}
	// Inserting an already-present component overwrites its value in
	// place rather than no-oping: no archetype migration is needed since
	// the component set is unchanged (spec.md §3, "inserting the same
	// resource twice overwrites").
	if w.HasComponent(entity, value.component) {
		if err := w.assignValues(r.tbl, r.entry.Index(), []ComponentValue{value}); err != nil {
			return err
		}
		w.markChanged(entity, value.component)
		return nil
	}

	newComps := append(append([]Component{}, w.components[entity.Index]...), value.component)
	dest, err := w.archetypes.lookupOrCreate(w.schema, w.entryIndex, newComps...)
	if err != nil {
		return fmt.Errorf("ecs: insert component: %w", err)
	}

	srcRow := r.entry.Index()
	if err := r.tbl.TransferEntries(dest.table, srcRow); err != nil {
		return fmt.Errorf("ecs: insert component: transfer: %w", err)
	}

	// Re-resolve: the entry now lives in dest at a (possibly new) row.
	nr, ok := w.rowOf(entity)
	if !ok {
		return fmt.Errorf("ecs: insert component: entity vanished mid-transfer")
	}
	w.components[entity.Index] = newComps
	if err := w.assignValues(nr.tbl, nr.entry.Index(), []ComponentValue{value}); err != nil {
		return err
	}
	if w.config.ChangeDetection {
		w.addedTicks[tickKey{entity, value.component}] = NewComponentTicks(w.tick)
	}
	return nil
}

// RemoveComponent removes a component from entity, migrating it to the
// archetype for the resulting component set. Removing an absent
// component is a no-op.
func (w *World) RemoveComponent(entity Entity, c Component) error {
	if w.Locked() {
		return LockedWorldError{}
	}
	r, ok := w.rowOf(entity)
	if !ok {
		w.log.Warn("remove component: stale entity", "entity", entity)
		return nil
	}
	if !w.HasComponent(entity, c) {
		return nil
	}

	newComps := make([]Component, 0, len(w.components[entity.Index]))
	for _, have := range w.components[entity.Index] {
		if have.ID() != c.ID() {
			newComps = append(newComps, have)
		}
	}
	dest, err := w.archetypes.lookupOrCreate(w.schema, w.entryIndex, newComps...)
	if err != nil {
		return fmt.Errorf("ecs: remove component: %w", err)
	}

	if err := r.tbl.TransferEntries(dest.table, r.entry.Index()); err != nil {
		return fmt.Errorf("ecs: remove component: transfer: %w", err)
	}
	w.components[entity.Index] = newComps
	delete(w.addedTicks, tickKey{entity, c})
	return nil
}

// markChanged stamps the changed-tick for (entity, component) to the
// current world tick. Called by ComponentHandle's mutable accessors.
func (w *World) markChanged(entity Entity, c Component) {
	if !w.config.ChangeDetection {
		return
	}
	key := tickKey{entity, c}
	ticks, ok := w.addedTicks[key]
	if !ok {
		ticks = NewComponentTicks(w.tick)
	}
	ticks.SetChanged(w.tick)
	w.addedTicks[key] = ticks
}

// ticksFor returns the recorded ComponentTicks for (entity, component),
// or a zero value if the component was never observed (e.g. change
// detection disabled).
func (w *World) ticksFor(entity Entity, c Component) ComponentTicks {
	return w.addedTicks[tickKey{entity, c}]
}

// Archetypes returns a snapshot of every archetype the world has ever
// created.
func (w *World) Archetypes() []*archetype {
	all, _ := w.archetypes.snapshot()
	return all
}

// Stats reports lightweight diagnostics used by cmd/ecsbench.
type Stats struct {
	LiveEntities    int
	ArchetypeCount  int
	ArchetypeSizes  []int
}

// Stats gathers a snapshot of world size for diagnostics.
func (w *World) Stats() Stats {
	all, _ := w.archetypes.snapshot()
	sizes := make([]int, len(all))
	for i, a := range all {
		sizes[i] = a.Len()
	}
	return Stats{
		LiveEntities:   w.alloc.liveCount() - reservedEntities,
		ArchetypeCount: len(all),
		ArchetypeSizes: sizes,
	}
}

// FlushCommands applies every command queued on the world's
// CommandBuffer. The scheduler calls it at the end of every stage,
// whatever Config.CommandFlushPolicy is set to.
func (w *World) FlushCommands() error {
	return w.commands.Flush()
}

// AdvanceEvents rotates every registered event queue, dropping frames
// older than Config.EventRetentionFrames. Called once per frame by the
// scheduler.
func (w *World) AdvanceEvents() {
	w.events.AdvanceFrame()
}

// compactFreedArchetypes handles CommandBuffer.RequestGC. Archetypes are
// retained for the lifetime of the world (see archetypeTable's doc
// comment) so that archetype ids stay stable; handling the request only
// logs it at debug level and neither destroys empty archetypes nor trims
// the world's bookkeeping slices.
func (w *World) compactFreedArchetypes() {
	w.log.Debug("gc requested", "live_entities", w.alloc.liveCount())
}

// InsertResource attaches value to the reserved ResourceEntity. Resources
// are a convention, not a separate storage mechanism: has_resource<T> is
// exactly has_component<T>(ResourceEntity), per spec.md §3.
func (w *World) InsertResource(value ComponentValue) error {
	return w.InsertComponent(ResourceEntity, value)
}

// RemoveResource detaches a resource component from ResourceEntity.
func (w *World) RemoveResource(c Component) error {
	return w.RemoveComponent(ResourceEntity, c)
}

// HasResource reports whether c is currently attached to ResourceEntity.
func (w *World) HasResource(c Component) bool {
	return w.HasComponent(ResourceEntity, c)
}

// AddChild records a scene-graph edge from parent to child. The graph is
// an explicit entity-to-entity relation indexed by id, not a
// language-level reference, per spec.md §9.
func (w *World) AddChild(parent, child Entity) error {
	if !w.Valid(parent) {
		return StaleEntityError{Entity: parent}
	}
	if !w.Valid(child) {
		return StaleEntityError{Entity: child}
	}
	if old, ok := w.parent[child]; ok {
		w.removeChildLocal(old, child)
	}
	w.children[parent] = append(w.children[parent], child)
	w.parent[child] = parent
	return nil
}

// RemoveChild deletes the scene-graph edge from parent to child, if any.
func (w *World) RemoveChild(parent, child Entity) error {
	w.removeChildLocal(parent, child)
	if w.parent[child] == parent {
		delete(w.parent, child)
	}
	return nil
}

func (w *World) removeChildLocal(parent, child Entity) {
	siblings := w.children[parent]
	for i, c := range siblings {
		if c == child {
			w.children[parent] = append(siblings[:i], siblings[i+1:]...)
			return
		}
	}
}

// Children returns entity's direct scene-graph children.
func (w *World) Children(entity Entity) []Entity {
	return w.children[entity]
}

// ParentOf returns entity's scene-graph parent, if any.
func (w *World) ParentOf(entity Entity) (Entity, bool) {
	p, ok := w.parent[entity]
	return p, ok
}

// DespawnRecursive destroys entity and, transitively, every scene-graph
// descendant of it. A stale handle is a no-op, matching Despawn.
func (w *World) DespawnRecursive(entity Entity) error {
	for _, child := range append([]Entity{}, w.children[entity]...) {
		if err := w.DespawnRecursive(child); err != nil {
			return err
		}
	}
	delete(w.children, entity)
	if p, ok := w.parent[entity]; ok {
		w.removeChildLocal(p, entity)
		delete(w.parent, entity)
	}
	return w.Despawn(entity)
}
