package schedule

import (
	"context"
	"errors"
	"testing"

	ecs "github.com/ashgrove/ecsframe"
)

type position struct{ X, Y float64 }

func TestRunFrameExecutesSystemsInOrder(t *testing.T) {
	world := ecs.NewWorld()
	var order []string

	sched := New(world, 4)
	sched.AddSystem(NewSystem("b", Update, func(w *ecs.World) error {
		order = append(order, "b")
		return nil
	}).After("a"))
	sched.AddSystem(NewSystem("a", Update, func(w *ecs.World) error {
		order = append(order, "a")
		return nil
	}))

	if err := sched.RunFrame(context.Background()); err != nil {
		t.Fatalf("run frame: %v", err)
	}
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("expected [a b], got %v", order)
	}
}

func TestScheduleCycleIsRejectedBeforeAnySystemRuns(t *testing.T) {
	world := ecs.NewWorld()
	ran := false

	sched := New(world, 4)
	sched.AddSystem(NewSystem("x", Update, func(w *ecs.World) error {
		ran = true
		return nil
	}).After("y"))
	sched.AddSystem(NewSystem("y", Update, func(w *ecs.World) error {
		ran = true
		return nil
	}).After("x"))

	err := sched.RunStage(context.Background(), Update)
	if err == nil {
		t.Fatalf("expected a schedule-cycle error")
	}
	var cycleErr ecs.ScheduleCycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected ScheduleCycleError, got %v", err)
	}
	if ran {
		t.Fatalf("no system should have run once a cycle was detected")
	}
}

func TestConflictingAccessSerializesWithinALevel(t *testing.T) {
	world := ecs.NewWorld()
	posC := ecs.RegisterComponent[position](world)
	_, _ = world.Spawn(posC.Value(position{}))

	sched := New(world, 4)
	writeAccess := WriteAccess[position]()
	sched.AddSystem(NewSystem("writer1", Update, func(w *ecs.World) error { return nil }).Writes(writeAccess))
	sched.AddSystem(NewSystem("writer2", Update, func(w *ecs.World) error { return nil }).Writes(writeAccess))

	levels, err := sched.compile(Update)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	total := 0
	for _, level := range levels {
		if len(level) > 1 {
			t.Fatalf("conflicting writers must not share a concurrent level, got level of size %d", len(level))
		}
		total += len(level)
	}
	if total != 2 {
		t.Fatalf("expected both systems scheduled across separate levels, got %d", total)
	}
}

func TestAddThenRemoveSystemLiveReconfiguration(t *testing.T) {
	world := ecs.NewWorld()
	sched := New(world, 1)
	calls := 0
	sched.AddSystem(NewSystem("s", Update, func(w *ecs.World) error {
		calls++
		return nil
	}))

	if err := sched.RunFrame(context.Background()); err != nil {
		t.Fatalf("run frame: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}

	if !sched.RemoveSystem(string(Update), "s") {
		t.Fatalf("expected RemoveSystem to report the system was present")
	}
	if err := sched.RunFrame(context.Background()); err != nil {
		t.Fatalf("run frame: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected no further calls after removal, got %d", calls)
	}
}

func TestSelfConflictingAccessIsRejectedAtBindAndNeverRuns(t *testing.T) {
	world := ecs.NewWorld()
	sched := New(world, 1)
	ran := false

	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected AddSystem to panic on a self-conflicting access declaration")
		}
		var conflictErr ecs.AccessConflictError
		if err, ok := r.(error); !ok || !errors.As(err, &conflictErr) {
			t.Fatalf("expected AccessConflictError, got %v", r)
		}
		if ran {
			t.Fatalf("system must never run once its own access declarations conflict")
		}
	}()

	sched.AddSystem(NewSystem("both", Update, func(w *ecs.World) error {
		ran = true
		return nil
	}).Reads(ReadAccess[position]()).Writes(WriteAccess[position]()))
}
