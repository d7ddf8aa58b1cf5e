/*
Package ecs provides an archetype-based Entity-Component-System runtime
for games and simulations.

ecsframe keeps entities that share the same component set packed together
in columnar storage (built on github.com/TheBitDrifter/table) for
cache-friendly iteration, tracks per-component add/change ticks for
change detection, and supports a deferred command buffer, event queues,
and a dual-world extraction swap for render pipelines that need read-only
access to a frozen snapshot of the simulation world. The staged system
scheduler lives in the sibling package ecs/schedule.

Core Concepts:

  - Entity: a stable identifier (index + generation) for a game object.
  - Component: a registered Go type attached to entities.
  - Archetype: the set of component types an entity currently carries,
    and the columnar storage bucket for entities sharing that set.
  - World: the top-level container: entities, archetypes, resources,
    change ticks, and the deferred command queue.
  - Query: a fetch/filter shape compiled into a lazy iteration plan.

Basic Usage:

	world := ecs.NewWorld()

	position := ecs.RegisterComponent[Position](world)
	velocity := ecs.RegisterComponent[Velocity](world)

	e, _ := world.Spawn(position.Value(Position{}), velocity.Value(Velocity{X: 1}))

	q := world.NewQuery().And(position, velocity)
	for cur := world.Cursor(q); cur.Next(); {
		pos := position.GetFromCursor(cur)
		vel := velocity.GetFromCursor(cur)
		pos.X += vel.X
		pos.Y += vel.Y
	}

See ecs/schedule for system registration and staging, and Extract for the
main/render world swap.
*/
package ecs
