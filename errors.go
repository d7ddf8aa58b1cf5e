package ecs

import "fmt"

// StaleEntityError reports a handle whose generation does not match the
// current generation for its index. Operations involving a stale handle
// are a local no-op; this error is informational.
type StaleEntityError struct {
	Entity Entity
}

func (e StaleEntityError) Error() string {
	return fmt.Sprintf("ecs: stale entity handle %+v", e.Entity)
}

// MissingComponentError reports a component absent on an entity where
// one was required.
type MissingComponentError struct {
	Entity    Entity
	Component Component
}

func (e MissingComponentError) Error() string {
	return fmt.Sprintf("ecs: entity %+v has no component %T", e.Entity, e.Component)
}

// MissingResourceError reports a resource fetched but not present on the
// resource entity.
type MissingResourceError struct {
	Resource Component
}

func (e MissingResourceError) Error() string {
	return fmt.Sprintf("ecs: resource not present: %T", e.Resource)
}

// ArchetypeMismatchError reports a query's fetch shape failing to match
// the entity's resident archetype.
type ArchetypeMismatchError struct {
	Entity Entity
}

func (e ArchetypeMismatchError) Error() string {
	return fmt.Sprintf("ecs: entity %+v does not match the query's fetch shape", e.Entity)
}

// AccessConflictError reports two parameters of the same system
// requiring incompatible access to the same type. Detected at system
// binding time; fatal.
type AccessConflictError struct {
	System string
	Type   string
}

func (e AccessConflictError) Error() string {
	return fmt.Sprintf("ecs: system %q has conflicting access to %s", e.System, e.Type)
}

// ScheduleCycleError reports a cycle in a stage's ordering DAG. Detected
// before the stage's first run; fatal.
type ScheduleCycleError struct {
	Stage string
	Cycle []string
}

func (e ScheduleCycleError) Error() string {
	return fmt.Sprintf("ecs: schedule cycle in stage %q: %v", e.Stage, e.Cycle)
}

// CommandFailureError reports a deferred command that could not be
// applied, e.g. because its target entity had already been despawned.
type CommandFailureError struct {
	Reason string
}

func (e CommandFailureError) Error() string {
	return fmt.Sprintf("ecs: command failed: %s", e.Reason)
}

// PluginBuildError reports an external collaborator failing during
// build; propagated to the application entry point.
type PluginBuildError struct {
	Plugin string
	Err    error
}

func (e PluginBuildError) Error() string {
	return fmt.Sprintf("ecs: plugin %q failed to build: %v", e.Plugin, e.Err)
}

func (e PluginBuildError) Unwrap() error { return e.Err }

// LockedWorldError reports an operation attempted while the world is
// locked by an outstanding cursor.
//
// Grounded on errors.go's LockedStorageError.
type LockedWorldError struct{}

func (e LockedWorldError) Error() string {
	return "ecs: world is currently locked"
}
