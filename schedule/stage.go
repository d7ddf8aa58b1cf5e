// Package schedule implements the staged system scheduler: named stages
// run in a fixed order each frame, the systems within a stage are
// ordered by a dependency graph built from their declared resource
// access, and independent systems within a stage may run concurrently.
//
// Grounded on the teacher's ecs/system.go-style System/SystemManager
// (priority-ordered execution) generalized to weaver-ecs's
// system_schedule.rs stage model (named init/update/shutdown stages,
// a per-stage SystemGraph).
package schedule

// Stage names one phase of the frame. Systems are registered against a
// stage and run in the stage's fixed position within the frame.
type Stage string

// Built-in stages, run in this order once per frame. PreInit/Init/
// PostInit run once at startup; PreShutdown/Shutdown/PostShutdown run
// once at teardown. The remaining stages repeat every frame.
const (
	PreInit  Stage = "pre_init"
	Init     Stage = "init"
	PostInit Stage = "post_init"

	PreUpdate  Stage = "pre_update"
	Update     Stage = "update"
	PostUpdate Stage = "post_update"

	UI Stage = "ui"

	PreRender  Stage = "pre_render"
	Render     Stage = "render"
	PostRender Stage = "post_render"

	Extract Stage = "extract"

	PreShutdown  Stage = "pre_shutdown"
	Shutdown     Stage = "shutdown"
	PostShutdown Stage = "post_shutdown"
)

// startupStages run once, in order, before the first frame.
var startupStages = []Stage{PreInit, Init, PostInit}

// frameStages run once per frame, in order.
var frameStages = []Stage{PreUpdate, Update, PostUpdate, UI, PreRender, Render, PostRender, Extract}

// teardownStages run once, in order, when the schedule is shut down.
var teardownStages = []Stage{PreShutdown, Shutdown, PostShutdown}
