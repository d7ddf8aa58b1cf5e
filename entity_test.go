package ecs

import "testing"

type Position struct{ X, Y float64 }
type Velocity struct{ X, Y float64 }
type Health struct{ Current, Max int }

func TestAllocatorAllocFlush(t *testing.T) {
	tests := []struct {
		name  string
		count int
	}{
		{"single", 1},
		{"several", 5},
		{"many", 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAllocator()
			seen := make(map[Entity]bool)
			for i := 0; i < tt.count; i++ {
				e := a.alloc()
				a.flush()
				if seen[e] {
					t.Fatalf("duplicate entity %+v", e)
				}
				seen[e] = true
				if !a.isLive(e) {
					t.Fatalf("entity %+v not live right after alloc", e)
				}
			}
		})
	}
}

func TestAllocatorFreeThenReuseBumpsGeneration(t *testing.T) {
	a := newAllocator()
	e := a.alloc()
	a.flush()
	gen := e.Generation

	if !a.free(e) {
		t.Fatalf("free of live entity failed")
	}
	if a.isLive(e) {
		t.Fatalf("entity still reported live after free")
	}

	reused := a.alloc()
	a.flush()
	if reused.Index != e.Index {
		t.Fatalf("expected index reuse, got %d want %d", reused.Index, e.Index)
	}
	if reused.Generation != gen+1 {
		t.Fatalf("expected generation bump to %d, got %d", gen+1, reused.Generation)
	}
	if a.isLive(e) {
		t.Fatalf("stale handle reported live")
	}
}

func TestAllocatorGenerationWrap(t *testing.T) {
	a := newAllocator()
	e := a.alloc()
	a.flush()
	a.generations[e.Index] = ^uint32(0)

	stale := Entity{Index: e.Index, Generation: ^uint32(0)}
	if !a.free(stale) {
		t.Fatalf("free at max generation failed")
	}
	if a.generations[e.Index] != generationMin {
		t.Fatalf("expected wraparound to generationMin, got %d", a.generations[e.Index])
	}
}

func TestAllocatorReserveThenFlush(t *testing.T) {
	a := newAllocator()
	preExisting := 3
	for i := 0; i < preExisting; i++ {
		a.alloc()
		a.flush()
	}

	reservations := 10
	reserved := make([]Entity, reservations)
	for i := range reserved {
		reserved[i] = a.reserve()
	}
	a.flush()

	for _, e := range reserved {
		if !a.isLive(e) {
			t.Fatalf("reserved entity %+v not live after flush", e)
		}
	}
	if got, want := a.liveCount(), reservedEntities+preExisting+reservations; got != want {
		t.Fatalf("liveCount = %d, want %d", got, want)
	}
}

func TestIsNewerThanWrapping(t *testing.T) {
	a, b, c := Tick(10), Tick(20), Tick(30)
	if isNewerThan(a, a, b) {
		t.Errorf("a should not be newer than window (a, b]: the lower bound is exclusive")
	}
	if isNewerThan(a, b, c) {
		t.Errorf("a should not be newer than window (b, c)")
	}
	if !isNewerThan(b, a, c) {
		t.Errorf("b should be newer than window (a, c)")
	}
	wrappedLast, wrappedThis := Tick(^uint64(0)-4), Tick(10)
	if !isNewerThan(Tick(5), wrappedLast, wrappedThis) {
		t.Errorf("tick 5 should be newer than a window that wraps past zero")
	}
}

func TestStaleEntityHandleRejected(t *testing.T) {
	w := NewWorld()
	pos := RegisterComponent[Position](w)
	e, err := w.Spawn(pos.Value(Position{X: 1}))
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if err := w.Despawn(e); err != nil {
		t.Fatalf("despawn: %v", err)
	}
	if w.Valid(e) {
		t.Fatalf("despawned entity should be stale")
	}
	if got := pos.GetFromEntityReadOnly(e); got != nil {
		t.Fatalf("expected nil component read on stale entity, got %+v", got)
	}
	if err := w.InsertComponent(e, pos.Value(Position{})); err != nil {
		t.Fatalf("insert on stale entity should be a no-op, got error: %v", err)
	}
}
