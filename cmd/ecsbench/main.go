// Command ecsbench is a small diagnostic CLI that spawns a configurable
// number of entities, runs a configurable number of frames through a
// minimal movement system, and reports timing and World.Stats().
//
// Grounded on the teacher's bench/warehouse_test.go and
// warehouse_bench/proto_test.go Benchmark-style spawn/iterate loops,
// wrapped in a cobra command the way venture's CLI entry points are
// structured, instead of a go test -bench harness, so a user can run
// diagnostics without the Go toolchain installed.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	ecs "github.com/ashgrove/ecsframe"
	"github.com/ashgrove/ecsframe/schedule"
)

type position struct{ X, Y float64 }
type velocity struct{ X, Y float64 }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var entities int
	var frames int
	var workers int

	cmd := &cobra.Command{
		Use:   "ecsbench",
		Short: "Spawn entities and run frames through a minimal system, reporting timing and world stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, entities, frames, workers)
		},
	}

	cmd.Flags().IntVar(&entities, "entities", 100_000, "number of entities to spawn")
	cmd.Flags().IntVar(&frames, "frames", 120, "number of frames to run")
	cmd.Flags().IntVar(&workers, "workers", 0, "scheduler worker count (0 = GOMAXPROCS)")

	return cmd
}

func run(cmd *cobra.Command, entities, frames, workers int) error {
	opts := []ecs.Option{}
	if workers > 0 {
		opts = append(opts, ecs.WithWorkerThreadCount(workers))
	}
	world := ecs.NewWorld(opts...)

	pos := ecs.RegisterComponent[position](world)
	vel := ecs.RegisterComponent[velocity](world)

	spawnStart := time.Now()
	for i := 0; i < entities; i++ {
		if _, err := world.Spawn(pos.Value(position{}), vel.Value(velocity{X: 1, Y: 0.5})); err != nil {
			return fmt.Errorf("ecsbench: spawn: %w", err)
		}
	}
	spawnElapsed := time.Since(spawnStart)

	schedWorkers := workers
	if schedWorkers <= 0 {
		schedWorkers = runtime.GOMAXPROCS(0)
	}
	sched := schedule.New(world, schedWorkers)
	moving := world.NewQuery().And(pos, vel)
	sched.AddSystem(schedule.NewSystem("movement", schedule.Update, func(w *ecs.World) error {
		cur := w.Cursor(moving)
		for cur.Next() {
			e := cur.CurrentEntity()
			p := pos.GetFromCursor(cur)
			v := vel.GetFromCursorReadOnly(cur)
			if p == nil || v == nil {
				continue
			}
			p.X += v.X
			p.Y += v.Y
			_ = e
		}
		return nil
	}))

	ctx := context.Background()
	runStart := time.Now()
	for i := 0; i < frames; i++ {
		if err := sched.RunFrame(ctx); err != nil {
			return fmt.Errorf("ecsbench: frame %d: %w", i, err)
		}
	}
	runElapsed := time.Since(runStart)

	stats := world.Stats()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "spawned %d entities in %s\n", entities, spawnElapsed)
	fmt.Fprintf(out, "ran %d frames in %s (%s/frame)\n", frames, runElapsed, runElapsed/time.Duration(max(frames, 1)))
	fmt.Fprintf(out, "live entities: %d, archetypes: %d, archetype sizes: %v\n",
		stats.LiveEntities, stats.ArchetypeCount, stats.ArchetypeSizes)
	return nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
