package ecs

import "testing"

func TestCommandBufferSpawnForcesFlushOnAwait(t *testing.T) {
	w := NewWorld()
	posC := RegisterComponent[Position](w)

	result := w.Commands().Spawn(posC.Value(Position{X: 7}))
	e := <-result

	if !w.Valid(e) {
		t.Fatalf("awaiting a spawn result should force a flush, entity not live: %+v", e)
	}
	p := posC.GetFromEntityReadOnly(e)
	if p == nil || p.X != 7 {
		t.Fatalf("unexpected spawned value %+v", p)
	}
}

func TestCommandBufferDespawnAlreadyDespawnedIsNoop(t *testing.T) {
	w := NewWorld()
	posC := RegisterComponent[Position](w)
	e, _ := w.Spawn(posC.Value(Position{}))

	w.Commands().Despawn(e, false)
	w.Commands().Despawn(e, false)
	if err := w.FlushCommands(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if w.Valid(e) {
		t.Fatalf("entity should be despawned")
	}
}

func TestCommandBufferQueuesWhileWorldLocked(t *testing.T) {
	w := NewWorld()
	posC := RegisterComponent[Position](w)
	e, _ := w.Spawn(posC.Value(Position{}))

	cur := w.Cursor(w.NewQuery().And(posC))
	cur.Initialize()

	w.Commands().Despawn(e, false)
	if err := w.FlushCommands(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if !w.Valid(e) {
		t.Fatalf("command should not have applied while the world is locked by the open cursor")
	}
	if w.Commands().Pending() != 1 {
		t.Fatalf("expected the despawn to remain queued, got %d pending", w.Commands().Pending())
	}

	cur.Reset()
	if w.Valid(e) {
		t.Fatalf("releasing the cursor's lock should flush the queued despawn")
	}
}

func TestCommandBufferInsertRemoveResource(t *testing.T) {
	w := NewWorld()
	healthC := RegisterComponent[Health](w)

	w.Commands().InsertResource(healthC.Value(Health{Current: 3, Max: 10}))
	if err := w.FlushCommands(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if !w.HasResource(healthC.Component) {
		t.Fatalf("expected resource to be present after flush")
	}

	w.Commands().InsertResource(healthC.Value(Health{Current: 9, Max: 10}))
	if err := w.FlushCommands(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	got := healthC.GetFromEntityReadOnly(ResourceEntity)
	if got == nil || got.Current != 9 {
		t.Fatalf("inserting the same resource twice should overwrite, got %+v", got)
	}

	w.Commands().RemoveResource(healthC.Component)
	if err := w.FlushCommands(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if w.HasResource(healthC.Component) {
		t.Fatalf("expected resource removed")
	}
}

func TestCommandBufferStaleTargetIsLoggedAndSkipped(t *testing.T) {
	w := NewWorld()
	posC := RegisterComponent[Position](w)
	e, _ := w.Spawn(posC.Value(Position{}))
	if err := w.Despawn(e); err != nil {
		t.Fatalf("despawn: %v", err)
	}

	w.Commands().InsertComponent(e, posC.Value(Position{X: 99}))
	if err := w.FlushCommands(); err != nil {
		t.Fatalf("flush should not surface an error for a stale target: %v", err)
	}
}
