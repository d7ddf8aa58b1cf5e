package schedule

import (
	"context"
	"fmt"

	"github.com/TheBitDrifter/bark"
	ecs "github.com/ashgrove/ecsframe"
	"golang.org/x/sync/errgroup"
)

// Schedule owns every stage's systemGraph and runs them in the fixed
// frame order, flushing the world's command buffer and event queues at
// the configured points.
//
// Grounded on weaver-ecs's system_schedule.rs Systems (init/update/
// shutdown/manual stage lists plus a per-stage graph), with concurrent
// execution of each stage's independent-system levels added via
// golang.org/x/sync/errgroup — the same dependency the rest of the
// pack's ebiten-based examples pull in transitively for bounded
// parallelism.
type Schedule struct {
	world  *ecs.World
	stages map[Stage]*systemGraph
	order  []Stage

	compiled map[Stage][][]*System
	dirty    map[Stage]bool

	startupRan bool
	workers    int
}

// New returns a Schedule bound to world, with every built-in stage
// registered in its fixed frame position.
func New(world *ecs.World, workers int) *Schedule {
	if workers < 1 {
		workers = 1
	}
	s := &Schedule{
		world:    world,
		stages:   make(map[Stage]*systemGraph),
		compiled: make(map[Stage][][]*System),
		dirty:    make(map[Stage]bool),
		workers:  workers,
	}
	for _, st := range startupStages {
		s.pushStage(st)
	}
	for _, st := range frameStages {
		s.pushStage(st)
	}
	for _, st := range teardownStages {
		s.pushStage(st)
	}
	return s
}

func (s *Schedule) pushStage(stage Stage) {
	if _, ok := s.stages[stage]; ok {
		return
	}
	s.stages[stage] = newSystemGraph(stage)
	s.order = append(s.order, stage)
	s.dirty[stage] = true
}

// AddSystem registers sys against its own Stage field, creating the
// stage if it is not one of the built-ins. Binding validates sys's
// aggregate access: a system declaring both read-only and mutable
// access to the same type is an AccessConflict (spec.md §4.5/§7),
// detected here, before the system ever runs.
func (s *Schedule) AddSystem(sys *System) {
	if typ, conflict := sys.selfConflict(); conflict {
		panic(bark.AddTrace(ecs.AccessConflictError{System: sys.Name, Type: typ}))
	}
	s.pushStage(sys.Stage)
	s.stages[sys.Stage].add(sys)
	s.dirty[sys.Stage] = true
}

// RemoveSystem removes the named system from stage, reporting whether it
// was present. Implements the systemMutator interface commands.go uses
// for CommandBuffer.RemoveSystem live reconfiguration.
func (s *Schedule) RemoveSystem(stage, name string) bool {
	g, ok := s.stages[Stage(stage)]
	if !ok {
		return false
	}
	removed := g.remove(name)
	if removed {
		s.dirty[Stage(stage)] = true
	}
	return removed
}

// AddSystemAny implements the systemMutator interface commands.go uses
// for CommandBuffer.AddSystem live reconfiguration: sys must be a
// *System, since the deferred command is submitted from ecs (one layer
// below schedule, which cannot name *System directly without an import
// cycle).
func (s *Schedule) AddSystemAny(sys any) error {
	typed, ok := sys.(*System)
	if !ok {
		return fmt.Errorf("schedule: AddSystemAny: expected *System, got %T", sys)
	}
	s.AddSystem(typed)
	return nil
}

func (s *Schedule) compile(stage Stage) ([][]*System, error) {
	if !s.dirty[stage] {
		return s.compiled[stage], nil
	}
	levels, err := s.stages[stage].levels()
	if err != nil {
		return nil, err
	}
	s.compiled[stage] = levels
	s.dirty[stage] = false
	return levels, nil
}

// RunStage executes every system registered against stage: each level of
// mutually independent systems runs concurrently (bounded by the
// schedule's worker count), and the world's command buffer is flushed
// once the stage completes, whatever the world's Config.CommandFlushPolicy.
func (s *Schedule) RunStage(ctx context.Context, stage Stage) error {
	levels, err := s.compile(stage)
	if err != nil {
		return err
	}
	for _, level := range levels {
		if err := s.runLevel(ctx, level); err != nil {
			return fmt.Errorf("schedule: stage %q: %w", stage, err)
		}
	}
	if err := s.world.FlushCommands(); err != nil {
		return err
	}
	if stage == PostUpdate {
		s.world.AdvanceEvents()
	}
	return nil
}

func (s *Schedule) runLevel(ctx context.Context, level []*System) error {
	if len(level) == 1 {
		return s.runOne(level[0])
	}
	group, _ := errgroup.WithContext(ctx)
	group.SetLimit(s.workers)
	for _, sys := range level {
		sys := sys
		group.Go(func() error {
			return s.runOne(sys)
		})
	}
	return group.Wait()
}

func (s *Schedule) runOne(sys *System) error {
	s.world.AdvanceTick()
	if err := sys.Fn(s.world); err != nil {
		return fmt.Errorf("system %q: %w", sys.Name, err)
	}
	s.world.RecordSystemRun(sys.Name)
	return nil
}

// RunStartup runs PreInit, Init, and PostInit once, in order. Calling it
// more than once is a no-op.
func (s *Schedule) RunStartup(ctx context.Context) error {
	if s.startupRan {
		return nil
	}
	for _, st := range startupStages {
		if err := s.RunStage(ctx, st); err != nil {
			return err
		}
	}
	s.startupRan = true
	return nil
}

// RunFrame runs every frame stage once, in fixed order.
func (s *Schedule) RunFrame(ctx context.Context) error {
	for _, st := range frameStages {
		if err := s.RunStage(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// RunShutdown runs PreShutdown, Shutdown, and PostShutdown once, in
// order.
func (s *Schedule) RunShutdown(ctx context.Context) error {
	for _, st := range teardownStages {
		if err := s.RunStage(ctx, st); err != nil {
			return err
		}
	}
	return nil
}
