package ecs

import "testing"

func TestSpawnQueryCRUD(t *testing.T) {
	w := NewWorld()
	posC := RegisterComponent[Position](w)
	velC := RegisterComponent[Health](w)

	e, err := w.Spawn(posC.Value(Position{X: 1}), velC.Value(Health{Current: 2}))
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}

	q := w.NewQuery().And(posC, velC)
	cur := w.Cursor(q)
	count := 0
	for cur.Next() {
		if cur.CurrentEntity() != e {
			t.Fatalf("unexpected entity in row")
		}
		p := posC.GetFromCursorReadOnly(cur)
		h := velC.GetFromCursorReadOnly(cur)
		if p.X != 1 || h.Current != 2 {
			t.Fatalf("unexpected values p=%+v h=%+v", p, h)
		}
		count++
	}
	if count != 1 {
		t.Fatalf("expected 1 row, got %d", count)
	}

	if err := w.RemoveComponent(e, velC); err != nil {
		t.Fatalf("remove component: %v", err)
	}

	cur2 := w.Cursor(w.NewQuery().And(posC, velC))
	if cur2.Next() {
		t.Fatalf("expected zero rows once Health removed")
	}

	cur3 := w.Cursor(w.NewQuery().And(posC))
	n := 0
	for cur3.Next() {
		n++
	}
	if n != 1 {
		t.Fatalf("expected 1 row for (&Position,), got %d", n)
	}
}

func TestSpawnOrderIsArchetypeUnordered(t *testing.T) {
	w := NewWorld()
	posC := RegisterComponent[Position](w)
	velC := RegisterComponent[Velocity](w)
	healthC := RegisterComponent[Health](w)

	e1, err := w.Spawn(posC.Value(Position{}), velC.Value(Velocity{}), healthC.Value(Health{}))
	if err != nil {
		t.Fatalf("spawn e1: %v", err)
	}
	e2, err := w.Spawn(healthC.Value(Health{}), posC.Value(Position{}), velC.Value(Velocity{}))
	if err != nil {
		t.Fatalf("spawn e2: %v", err)
	}

	r1, ok1 := w.rowOf(e1)
	r2, ok2 := w.rowOf(e2)
	if !ok1 || !ok2 {
		t.Fatalf("expected both entities resolvable")
	}
	if r1.arch.id != r2.arch.id {
		t.Fatalf("permuted component order should land in the same archetype, got %d and %d", r1.arch.id, r2.arch.id)
	}
}

func TestInsertThenRemoveNetEmptyPreservesArchetype(t *testing.T) {
	w := NewWorld()
	posC := RegisterComponent[Position](w)
	velC := RegisterComponent[Velocity](w)

	e, err := w.Spawn(posC.Value(Position{X: 9}))
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	before, _ := w.rowOf(e)
	beforeTicks := w.ticksFor(e, posC.Component)

	if err := w.InsertComponent(e, velC.Value(Velocity{X: 1})); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := w.RemoveComponent(e, velC.Component); err != nil {
		t.Fatalf("remove: %v", err)
	}

	after, ok := w.rowOf(e)
	if !ok {
		t.Fatalf("entity vanished")
	}
	if after.arch.id != before.arch.id {
		t.Fatalf("expected return to original archetype %d, got %d", before.arch.id, after.arch.id)
	}
	afterTicks := w.ticksFor(e, posC.Component)
	if afterTicks.Added != beforeTicks.Added {
		t.Fatalf("unrelated component's added-tick should be unchanged: before %d after %d", beforeTicks.Added, afterTicks.Added)
	}
	p := posC.GetFromEntityReadOnly(e)
	if p == nil || p.X != 9 {
		t.Fatalf("expected Position to survive round trip unchanged, got %+v", p)
	}
}

func TestDespawnThenRespawnReusesIndex(t *testing.T) {
	w := NewWorld()
	posC := RegisterComponent[Position](w)

	e, err := w.Spawn(posC.Value(Position{X: 3}))
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if err := w.Despawn(e); err != nil {
		t.Fatalf("despawn: %v", err)
	}
	if w.Valid(e) {
		t.Fatalf("expected entity invalid after despawn")
	}

	e2, err := w.Spawn(posC.Value(Position{X: 4}))
	if err != nil {
		t.Fatalf("respawn: %v", err)
	}
	if e2.Index != e.Index {
		t.Fatalf("expected id reuse: got index %d want %d", e2.Index, e.Index)
	}
	if e2.Generation != e.Generation+1 {
		t.Fatalf("expected bumped generation: got %d want %d", e2.Generation, e.Generation+1)
	}
}

func TestDespawnSwapRemoveFixesUpRemainingEntity(t *testing.T) {
	w := NewWorld()
	posC := RegisterComponent[Position](w)

	e1, _ := w.Spawn(posC.Value(Position{X: 1}))
	e2, _ := w.Spawn(posC.Value(Position{X: 2}))
	e3, _ := w.Spawn(posC.Value(Position{X: 3}))

	if err := w.Despawn(e1); err != nil {
		t.Fatalf("despawn: %v", err)
	}

	for _, e := range []Entity{e2, e3} {
		if !w.Valid(e) {
			t.Fatalf("entity %+v should remain valid after an unrelated despawn", e)
		}
	}
	p2 := posC.GetFromEntityReadOnly(e2)
	p3 := posC.GetFromEntityReadOnly(e3)
	if p2 == nil || p2.X != 2 {
		t.Fatalf("e2's component corrupted by swap-remove: %+v", p2)
	}
	if p3 == nil || p3.X != 3 {
		t.Fatalf("e3's component corrupted by swap-remove: %+v", p3)
	}
}

func TestEmptyArchetypeIterationYieldsZeroRows(t *testing.T) {
	w := NewWorld()
	posC := RegisterComponent[Position](w)
	velC := RegisterComponent[Velocity](w)

	_, _ = w.Spawn(posC.Value(Position{}))

	cur := w.Cursor(w.NewQuery().And(posC, velC))
	if cur.Next() {
		t.Fatalf("expected no matches for an archetype nothing occupies")
	}
}

func TestEmptyFetchShapeYieldsOnePerEntity(t *testing.T) {
	w := NewWorld()
	posC := RegisterComponent[Position](w)
	n := 5
	for i := 0; i < n; i++ {
		if _, err := w.Spawn(posC.Value(Position{})); err != nil {
			t.Fatalf("spawn: %v", err)
		}
	}

	cur := w.Cursor(w.NewQuery())
	count := 0
	for cur.Next() {
		count++
	}
	if count != n+reservedEntities {
		t.Fatalf("expected %d units (n entities + reserved), got %d", n+reservedEntities, count)
	}
}
