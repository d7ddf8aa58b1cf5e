package ecs

import "runtime"

// CommandFlushPolicy names when a World's deferred command buffer is
// applied to the world (spec.md §6). The value is stored on Config only:
// nothing in ecsframe reads it. Whatever the policy, schedule.Schedule
// flushes at the end of every stage, CommandBuffer.Spawn flushes eagerly,
// and releasing the last cursor lock flushes; no flush is made before an
// exclusive system begins.
type CommandFlushPolicy int

const (
	// FlushEndOfStage names applying commands once the running stage
	// finishes.
	FlushEndOfStage CommandFlushPolicy = iota
	// FlushBeforeExclusive names applying commands immediately before an
	// exclusive-world system begins, in addition to end-of-stage.
	FlushBeforeExclusive
	// FlushExplicitOnly names applying commands only when the caller
	// invokes World.FlushCommands.
	FlushExplicitOnly
)

// Config holds the construction options recognised by NewWorld.
//
// Generalized from the teacher's single-field config{tableEvents} in
// config.go into the full option set from spec.md §6. Config is also kept
// as a package-level default (DefaultConfig) alongside per-world functional
// options, mirroring the teacher's package-level Config global.
type Config struct {
	InitialArchetypeCapacity int
	CommandFlushPolicy       CommandFlushPolicy
	ChangeDetection          bool
	EventRetentionFrames     int
	WorkerThreadCount        int
	Debug                    bool
}

// DefaultConfig is used by NewWorld when no options are supplied.
var DefaultConfig = Config{
	InitialArchetypeCapacity: 8,
	CommandFlushPolicy:       FlushEndOfStage,
	ChangeDetection:          true,
	EventRetentionFrames:     2,
	WorkerThreadCount:        runtime.GOMAXPROCS(0),
}

// Option mutates a Config being built by NewWorld.
type Option func(*Config)

// WithInitialArchetypeCapacity sets the preallocation hint NewWorld uses
// for the capacity of the world's per-entity bookkeeping slices; it is
// not applied to archetype tables.
func WithInitialArchetypeCapacity(n int) Option {
	return func(c *Config) { c.InitialArchetypeCapacity = n }
}

// WithCommandFlushPolicy records p on the Config. As CommandFlushPolicy
// describes, the value does not change when commands are flushed.
func WithCommandFlushPolicy(p CommandFlushPolicy) Option {
	return func(c *Config) { c.CommandFlushPolicy = p }
}

// WithChangeDetection enables or disables tick bookkeeping. Disabling it
// skips maintaining added/changed ticks, trading change-detection queries
// for a faster hot path.
func WithChangeDetection(enabled bool) Option {
	return func(c *Config) { c.ChangeDetection = enabled }
}

// WithEventRetentionFrames sets how many frames an event queue retains
// unread events before dropping the oldest frame (minimum 1).
func WithEventRetentionFrames(frames int) Option {
	return func(c *Config) {
		if frames < 1 {
			frames = 1
		}
		c.EventRetentionFrames = frames
	}
}

// WithWorkerThreadCount records the worker count (minimum 1) on the
// Config. schedule.New takes its own worker count argument and does not
// read this field.
func WithWorkerThreadCount(n int) Option {
	return func(c *Config) {
		if n < 1 {
			n = 1
		}
		c.WorkerThreadCount = n
	}
}

// WithDebug switches the world's logger to also emit Info and Debug
// output. It does not change how contract violations are handled:
// schedule.Schedule.AddSystem panics on an access conflict and RunStage
// returns a ScheduleCycleError whatever this setting.
func WithDebug(debug bool) Option {
	return func(c *Config) { c.Debug = debug }
}

func resolveConfig(opts ...Option) Config {
	c := DefaultConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
