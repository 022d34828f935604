package graph

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/KohJunJie/tour-agent-planner/agent/contract"
)

func noopTask(ctx context.Context, tc *contractx.TaskContext) (string, error) {
	return "", nil
}

func specsOf(edges map[string][]string, order ...string) []TaskSpec {
	specs := make([]TaskSpec, 0, len(order))
	for _, name := range order {
		specs = append(specs, TaskSpec{Name: name, DependsOn: edges[name], Run: noopTask})
	}
	return specs
}

func TestValidateAcceptsDAG(t *testing.T) {
	t.Parallel()

	specs := specsOf(map[string][]string{
		"c": {"a", "b"},
		"d": {"c"},
	}, "a", "b", "c", "d")

	if err := Validate(specs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsCycle(t *testing.T) {
	t.Parallel()

	specs := specsOf(map[string][]string{
		"a": {"c"},
		"b": {"a"},
		"c": {"b"},
	}, "a", "b", "c")

	err := Validate(specs)
	if !errors.Is(err, contractx.ErrGraph) {
		t.Fatalf("expected ErrGraph, got %v", err)
	}
}

func TestValidateRejectsUnknownDependency(t *testing.T) {
	t.Parallel()

	specs := specsOf(map[string][]string{
		"b": {"missing"},
	}, "a", "b")

	err := Validate(specs)
	if !errors.Is(err, contractx.ErrGraph) {
		t.Fatalf("expected ErrGraph, got %v", err)
	}
}

func TestValidateRejectsDuplicateName(t *testing.T) {
	t.Parallel()

	specs := []TaskSpec{
		{Name: "a", Run: noopTask},
		{Name: "a", Run: noopTask},
	}

	err := Validate(specs)
	if !errors.Is(err, contractx.ErrGraph) {
		t.Fatalf("expected ErrGraph, got %v", err)
	}
}

func TestValidateRejectsSelfDependency(t *testing.T) {
	t.Parallel()

	specs := specsOf(map[string][]string{
		"a": {"a"},
	}, "a")

	err := Validate(specs)
	if !errors.Is(err, contractx.ErrGraph) {
		t.Fatalf("expected ErrGraph, got %v", err)
	}
}

func TestTopoSortStableOrder(t *testing.T) {
	t.Parallel()

	// Diamond: a -> {b, c} -> d. b and c are tied; declaration order wins.
	specs := specsOf(map[string][]string{
		"b": {"a"},
		"c": {"a"},
		"d": {"b", "c"},
	}, "a", "b", "c", "d")

	order, err := TopoSort(specs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"a", "b", "c", "d"}
	if len(order) != len(want) {
		t.Fatalf("unexpected order length: %d", len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("unexpected order: %v", order)
		}
	}
}

func TestDownstreamTransitive(t *testing.T) {
	t.Parallel()

	specs := specsOf(map[string][]string{
		"b": {"a"},
		"c": {"b"},
		"d": {},
	}, "a", "b", "c", "d")

	down := Downstream(specs, "a")
	if !down["b"] || !down["c"] {
		t.Fatalf("expected b and c downstream of a, got %v", down)
	}
	if down["d"] || down["a"] {
		t.Fatalf("unexpected members in downstream set: %v", down)
	}
}
