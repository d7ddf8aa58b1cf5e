package schedule

import (
	ecs "github.com/ashgrove/ecsframe"
)

// systemGraph holds one stage's registered systems together with their
// ordering edges, and compiles them into levels of mutually-independent
// systems that the executor can run concurrently within a level while
// still running levels themselves in order.
//
// Grounded on weaver-ecs's system_schedule.rs SystemGraph (per-stage
// graph built from add_system/add_edge, topologically sorted before the
// stage's first run).
type systemGraph struct {
	stage   Stage
	systems []*System
	byName  map[string]*System
}

func newSystemGraph(stage Stage) *systemGraph {
	return &systemGraph{stage: stage, byName: make(map[string]*System)}
}

func (g *systemGraph) add(s *System) {
	g.systems = append(g.systems, s)
	g.byName[s.Name] = s
}

func (g *systemGraph) remove(name string) bool {
	if _, ok := g.byName[name]; !ok {
		return false
	}
	delete(g.byName, name)
	for i, s := range g.systems {
		if s.Name == name {
			g.systems = append(g.systems[:i], g.systems[i+1:]...)
			break
		}
	}
	return true
}

// dependsOn builds, for every system, the set of system names that must
// complete before it may start: explicit After edges, the reverse of
// explicit Before edges, and — for any pair with no explicit order and
// conflicting access — the earlier-registered system of the pair.
func (g *systemGraph) dependsOn() map[string]map[string]bool {
	deps := make(map[string]map[string]bool, len(g.systems))
	for _, s := range g.systems {
		deps[s.Name] = make(map[string]bool)
	}
	for _, s := range g.systems {
		for _, name := range s.after {
			if _, ok := g.byName[name]; ok {
				deps[s.Name][name] = true
			}
		}
		for _, name := range s.before {
			if _, ok := g.byName[name]; ok {
				deps[name][s.Name] = true
			}
		}
	}
	explicit := func(a, b *System) bool {
		for _, n := range a.after {
			if n == b.Name {
				return true
			}
		}
		for _, n := range a.before {
			if n == b.Name {
				return true
			}
		}
		for _, n := range b.after {
			if n == a.Name {
				return true
			}
		}
		for _, n := range b.before {
			if n == a.Name {
				return true
			}
		}
		return false
	}
	for i, a := range g.systems {
		for j := i + 1; j < len(g.systems); j++ {
			b := g.systems[j]
			if explicit(a, b) {
				continue
			}
			if a.conflictsWith(b) {
				deps[b.Name][a.Name] = true
			}
		}
	}
	return deps
}

// levels performs a Kahn's-algorithm topological sort, grouping systems
// with no outstanding dependency into the same level so the executor can
// run a whole level concurrently. Returns a ScheduleCycleError naming
// the stage and the names still unresolved if the graph has a cycle.
func (g *systemGraph) levels() ([][]*System, error) {
	deps := g.dependsOn()

	var out [][]*System
	done := make(map[string]bool, len(g.systems))
	for len(done) < len(g.systems) {
		var level []*System
		for _, s := range g.systems {
			if done[s.Name] {
				continue
			}
			ready := true
			for dep := range deps[s.Name] {
				if !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				level = append(level, s)
			}
		}
		if len(level) == 0 {
			var stuck []string
			for _, s := range g.systems {
				if !done[s.Name] {
					stuck = append(stuck, s.Name)
				}
			}
			return nil, ecs.ScheduleCycleError{Stage: string(g.stage), Cycle: stuck}
		}
		for _, s := range level {
			done[s.Name] = true
		}
		out = append(out, level)
	}
	return out, nil
}
