package ecs

import "sync"

// commandOp is one deferred mutation. Grounded on operation_queue.go's
// EntityOperation interface, generalized with a world-level apply instead
// of an entity-bound one so the same buffer can carry spawn, resource,
// and scene-graph operations.
type commandOp interface {
	apply(w *World) error
}

// CommandBuffer is the system-safe channel through which running systems
// request structural mutation without touching World directly. Commands
// enqueue and apply in FIFO order at the next Flush: one called
// explicitly (World.FlushCommands, which the scheduler calls at the end
// of every stage), the eager flush of Spawn, or the flush that runs when
// the last outstanding cursor releases its world lock. While a cursor
// holds the world locked, Flush leaves the queue intact.
//
// Grounded on operation_queue.go's entityOperationsQueue, with the
// recorded-op/replay shape and one-shot result channel ported from
// weaver-ecs's commands.rs Command{op, tx: async_channel::Sender}.
type CommandBuffer struct {
	world *World
	mu    sync.Mutex
	ops   []commandOp
}

func newCommandBuffer(w *World) *CommandBuffer {
	return &CommandBuffer{world: w}
}

func (c *CommandBuffer) enqueue(op commandOp) {
	c.mu.Lock()
	c.ops = append(c.ops, op)
	c.mu.Unlock()
}

// Pending reports how many commands are queued but not yet applied.
func (c *CommandBuffer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ops)
}

// Flush applies every queued command to the world in enqueue order. If
// the world is locked, Flush is a no-op and the queue is left intact for
// a later flush — mirroring entityOperationsQueue.ProcessAll's behaviour
// under storage.Locked().
func (c *CommandBuffer) Flush() error {
	if c.world.Locked() {
		return nil
	}
	c.mu.Lock()
	ops := c.ops
	c.ops = nil
	c.mu.Unlock()

	for _, op := range ops {
		if err := op.apply(c.world); err != nil {
			return CommandFailureError{Reason: err.Error()}
		}
	}
	return nil
}

// processIfUnlocked is called by World.removeLock once every outstanding
// lock bit has cleared.
func (c *CommandBuffer) processIfUnlocked() {
	if err := c.Flush(); err != nil {
		c.world.log.Error("command flush failed", "err", err)
	}
}

// --- Spawn ---

type spawnCommand struct {
	values []ComponentValue
	result chan<- Entity
}

func (op spawnCommand) apply(w *World) error {
	entity, err := w.Spawn(op.values...)
	if op.result != nil {
		op.result <- entity
		close(op.result)
	}
	return err
}

// Spawn enqueues an entity creation and returns a one-shot channel that
// receives the new Entity once the command buffer is flushed. Per
// spec.md §4.6, a command with a result channel forces a flush so
// awaiting it cannot deadlock against the scheduler: Spawn attempts an
// immediate flush (the synchronous model described in SPEC_FULL.md
// §4.6) rather than waiting for the next stage boundary. If the world is
// currently locked by an outstanding cursor, the attempt is a no-op and
// the channel resolves at the next unlock instead — callers must not await a command's result from
// inside a running system body for this reason.
func (c *CommandBuffer) Spawn(values ...ComponentValue) <-chan Entity {
	result := make(chan Entity, 1)
	c.enqueue(spawnCommand{values: values, result: result})
	c.tryEagerFlush()
	return result
}

// tryEagerFlush flushes immediately if the world is currently unlocked,
// without surfacing an error (a failing flush here is reported the next
// time FlushCommands is called explicitly by the scheduler).
func (c *CommandBuffer) tryEagerFlush() {
	if c.world.Locked() {
		return
	}
	if err := c.Flush(); err != nil {
		c.world.log.Error("eager command flush failed", "err", err)
	}
}

// --- Despawn ---

type despawnCommand struct {
	entity    Entity
	recursive bool
}

func (op despawnCommand) apply(w *World) error {
	if op.recursive {
		return w.DespawnRecursive(op.entity)
	}
	return w.Despawn(op.entity)
}

// Despawn enqueues entity's destruction. When recursive is true, every
// scene-graph descendant is destroyed as well.
func (c *CommandBuffer) Despawn(entity Entity, recursive bool) {
	c.enqueue(despawnCommand{entity: entity, recursive: recursive})
}

// --- Components ---

type insertComponentCommand struct {
	entity Entity
	value  ComponentValue
}

func (op insertComponentCommand) apply(w *World) error {
	return w.InsertComponent(op.entity, op.value)
}

// InsertComponent enqueues attaching value to entity.
func (c *CommandBuffer) InsertComponent(entity Entity, value ComponentValue) {
	c.enqueue(insertComponentCommand{entity: entity, value: value})
}

type removeComponentCommand struct {
	entity    Entity
	component Component
}

func (op removeComponentCommand) apply(w *World) error {
	return w.RemoveComponent(op.entity, op.component)
}

// RemoveComponent enqueues detaching component from entity.
func (c *CommandBuffer) RemoveComponent(entity Entity, component Component) {
	c.enqueue(removeComponentCommand{entity: entity, component: component})
}

// --- Resources ---

type insertResourceCommand struct {
	value ComponentValue
}

func (op insertResourceCommand) apply(w *World) error {
	return w.InsertResource(op.value)
}

// InsertResource enqueues attaching value to the world's resource entity.
func (c *CommandBuffer) InsertResource(value ComponentValue) {
	c.enqueue(insertResourceCommand{value: value})
}

// InitResource enqueues attaching value only if the resource is not
// already present, mirroring weaver-ecs's init_resource semantics.
func (c *CommandBuffer) InitResource(value ComponentValue) {
	c.enqueue(initResourceCommand{value: value})
}

type initResourceCommand struct {
	value ComponentValue
}

func (op initResourceCommand) apply(w *World) error {
	if w.HasResource(op.value.component) {
		return nil
	}
	return w.InsertResource(op.value)
}

type removeResourceCommand struct {
	component Component
}

func (op removeResourceCommand) apply(w *World) error {
	return w.RemoveResource(op.component)
}

// RemoveResource enqueues detaching a resource from the world.
func (c *CommandBuffer) RemoveResource(component Component) {
	c.enqueue(removeResourceCommand{component: component})
}

// --- Scene graph ---

type addChildCommand struct {
	parent, child Entity
}

func (op addChildCommand) apply(w *World) error {
	return w.AddChild(op.parent, op.child)
}

// AddChild enqueues a scene-graph edge from parent to child.
func (c *CommandBuffer) AddChild(parent, child Entity) {
	c.enqueue(addChildCommand{parent: parent, child: child})
}

type removeChildCommand struct {
	parent, child Entity
}

func (op removeChildCommand) apply(w *World) error {
	return w.RemoveChild(op.parent, op.child)
}

// RemoveChild enqueues removal of a scene-graph edge.
func (c *CommandBuffer) RemoveChild(parent, child Entity) {
	c.enqueue(removeChildCommand{parent: parent, child: child})
}

// --- Live system reconfiguration ---

// systemMutator is satisfied by *schedule.Schedule without commands.go
// importing the schedule package, avoiding an import cycle between ecs
// and ecs/schedule (schedule already depends on ecs for World). AddSystem
// takes sys as an opaque any (a *schedule.System) since the concrete
// system type lives one layer up from this package.
type systemMutator interface {
	RemoveSystem(stage, name string) bool
	AddSystemAny(sys any) error
}

type removeSystemCommand struct {
	target systemMutator
	stage  string
	name   string
}

func (op removeSystemCommand) apply(w *World) error {
	op.target.RemoveSystem(op.stage, op.name)
	return nil
}

// RemoveSystem enqueues removing the named system from stage on target
// once the world unlocks, for live reconfiguration between frames.
func (c *CommandBuffer) RemoveSystem(target systemMutator, stage, name string) {
	c.enqueue(removeSystemCommand{target: target, stage: stage, name: name})
}

type addSystemCommand struct {
	target systemMutator
	sys    any
}

func (op addSystemCommand) apply(w *World) error {
	return op.target.AddSystemAny(op.sys)
}

// AddSystem enqueues registering sys (a *schedule.System) on target once
// the world unlocks, for live reconfiguration between frames — the
// add-system counterpart to RemoveSystem.
func (c *CommandBuffer) AddSystem(target systemMutator, sys any) {
	c.enqueue(addSystemCommand{target: target, sys: sys})
}

// --- Garbage collection ---

type gcRequest struct{}

func (op gcRequest) apply(w *World) error {
	w.compactFreedArchetypes()
	return nil
}

// RequestGC enqueues a garbage-collection request. Applying it logs the
// request at debug level; archetypes left empty by despawns are kept
// (archetypes live as long as the world), so nothing is compacted.
func (c *CommandBuffer) RequestGC() {
	c.enqueue(gcRequest{})
}
