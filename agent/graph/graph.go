package graph

import (
	"fmt"

	contractx "github.com/KohJunJie/tour-agent-planner/agent/contract"
)

// TaskSpec declares one unit of orchestrated work. DependsOn must reference
// other task names in the same graph; the resulting structure must be a DAG.
type TaskSpec struct {
	Name      string
	DependsOn []string
	Run       contractx.TaskFunc
}

// Validate checks the graph once, before any task body executes: names must
// be unique and non-empty, every dependency must resolve, and there must be
// no cycle.
func Validate(specs []TaskSpec) error {
	if len(specs) == 0 {
		return fmt.Errorf("%w: graph has no tasks", contractx.ErrGraph)
	}

	byName := make(map[string]TaskSpec, len(specs))
	for _, spec := range specs {
		if spec.Name == "" {
			return fmt.Errorf("%w: task name is empty", contractx.ErrGraph)
		}
		if _, ok := byName[spec.Name]; ok {
			return fmt.Errorf("%w: duplicate task name %q", contractx.ErrGraph, spec.Name)
		}
		if spec.Run == nil {
			return fmt.Errorf("%w: task %q has no body", contractx.ErrGraph, spec.Name)
		}
		byName[spec.Name] = spec
	}

	for _, spec := range specs {
		for _, dep := range spec.DependsOn {
			if dep == spec.Name {
				return fmt.Errorf("%w: task %q depends on itself", contractx.ErrGraph, spec.Name)
			}
			if _, ok := byName[dep]; !ok {
				return fmt.Errorf("%w: task %q depends on unknown task %q", contractx.ErrGraph, spec.Name, dep)
			}
		}
	}

	if _, err := TopoSort(specs); err != nil {
		return err
	}
	return nil
}

// TopoSort returns a topological order of the task names using Kahn's
// algorithm. Ties are broken by declaration order, so the result is stable
// for a given spec slice. A cycle yields an error wrapping ErrGraph.
func TopoSort(specs []TaskSpec) ([]string, error) {
	indegree := make(map[string]int, len(specs))
	dependents := make(map[string][]string, len(specs))
	for _, spec := range specs {
		indegree[spec.Name] = len(spec.DependsOn)
		for _, dep := range spec.DependsOn {
			dependents[dep] = append(dependents[dep], spec.Name)
		}
	}

	order := make([]string, 0, len(specs))
	ready := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if indegree[spec.Name] == 0 {
			ready[spec.Name] = true
		}
	}

	for len(order) < len(specs) {
		progressed := false
		// Scan in declaration order so ties are stable.
		for _, spec := range specs {
			if !ready[spec.Name] {
				continue
			}
			ready[spec.Name] = false
			indegree[spec.Name] = -1
			order = append(order, spec.Name)
			progressed = true
			for _, next := range dependents[spec.Name] {
				indegree[next]--
				if indegree[next] == 0 {
					ready[next] = true
				}
			}
		}
		if !progressed {
			return nil, fmt.Errorf("%w: dependency cycle detected", contractx.ErrGraph)
		}
	}
	return order, nil
}

// Downstream returns the set of tasks transitively reachable from name in the
// dependency direction (its dependents, their dependents, and so on).
func Downstream(specs []TaskSpec, name string) map[string]bool {
	dependents := make(map[string][]string, len(specs))
	for _, spec := range specs {
		for _, dep := range spec.DependsOn {
			dependents[dep] = append(dependents[dep], spec.Name)
		}
	}

	reached := make(map[string]bool)
	stack := []string{name}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range dependents[cur] {
			if !reached[next] {
				reached[next] = true
				stack = append(stack, next)
			}
		}
	}
	return reached
}
