package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	contractx "github.com/KohJunJie/tour-agent-planner/agent/contract"
	graphx "github.com/KohJunJie/tour-agent-planner/agent/graph"
)

type fakeTools struct {
	mu       sync.Mutex
	invoked  []string
	response string
	err      error
}

func (f *fakeTools) Invoke(_ context.Context, req contractx.ToolRequest) (contractx.ToolResult, error) {
	f.mu.Lock()
	f.invoked = append(f.invoked, req.Tool)
	f.mu.Unlock()
	if f.err != nil {
		return contractx.ToolResult{}, f.err
	}
	return contractx.ToolResult{Tool: req.Tool, Output: f.response}, nil
}

type fakeMemory struct {
	mu      sync.Mutex
	inserts []contractx.MemoryRecord
	err     error
}

func (f *fakeMemory) Insert(_ context.Context, documents, ids []string, metadatas []map[string]string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range documents {
		rec := contractx.MemoryRecord{ID: ids[i], Document: documents[i]}
		if i < len(metadatas) {
			rec.Metadata = metadatas[i]
		}
		f.inserts = append(f.inserts, rec)
	}
	return nil
}

func (f *fakeMemory) Query(_ context.Context, queryTexts []string, _ int) ([]contractx.MemoryQueryResult, error) {
	results := make([]contractx.MemoryQueryResult, 0, len(queryTexts))
	for _, q := range queryTexts {
		results = append(results, contractx.MemoryQueryResult{Query: q})
	}
	return results, nil
}

func constBuilder(specs []graphx.TaskSpec) GraphBuilder {
	return func(contractx.RunInputs) []graphx.TaskSpec { return specs }
}

func succeed(output string) contractx.TaskFunc {
	return func(context.Context, *contractx.TaskContext) (string, error) {
		return output, nil
	}
}

func fail(msg string) contractx.TaskFunc {
	return func(context.Context, *contractx.TaskContext) (string, error) {
		return "", errors.New(msg)
	}
}

func newTestOrchestrator(t *testing.T, memory contractx.MemoryStore, build GraphBuilder) *Orchestrator {
	t.Helper()
	o, err := New(&fakeTools{}, memory, build, Config{},
		WithRunID(func() string { return "run-1" }),
		WithPick(func(int) int { return 0 }),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func awaitRun(t *testing.T, h *RunHandle) contractx.RunOutcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	outcome, err := h.Await(ctx)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	return outcome
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	build := constBuilder(nil)
	if _, err := New(nil, &fakeMemory{}, build, Config{}); err == nil {
		t.Fatal("expected error for nil tool gateway")
	}
	if _, err := New(&fakeTools{}, &fakeMemory{}, nil, Config{}); err == nil {
		t.Fatal("expected error for nil graph builder")
	}
	if _, err := New(&fakeTools{}, nil, build, Config{}); err != nil {
		t.Fatalf("nil memory should fall back to noop store, got %v", err)
	}
}

func TestStartRunRejectsMalformedGraphBeforeExecution(t *testing.T) {
	t.Parallel()

	var ran bool
	specs := []graphx.TaskSpec{
		{Name: "a", DependsOn: []string{"b"}, Run: func(context.Context, *contractx.TaskContext) (string, error) {
			ran = true
			return "", nil
		}},
		{Name: "b", DependsOn: []string{"a"}, Run: succeed("")},
	}
	o := newTestOrchestrator(t, &fakeMemory{}, constBuilder(specs))

	_, err := o.StartRun(context.Background(), contractx.RunInputs{})
	if !errors.Is(err, contractx.ErrGraph) {
		t.Fatalf("expected ErrGraph, got %v", err)
	}
	if ran {
		t.Fatal("task body ran despite malformed graph")
	}
}

func TestRunIsolatesFailuresToDownstreamTasks(t *testing.T) {
	t.Parallel()

	specs := []graphx.TaskSpec{
		{Name: "a", Run: succeed("out-a")},
		{Name: "b", DependsOn: []string{"a"}, Run: fail("boom")},
		{Name: "c", DependsOn: []string{"a"}, Run: succeed("out-c")},
		{Name: "d", DependsOn: []string{"b"}, Run: succeed("never")},
	}
	memory := &fakeMemory{}
	o := newTestOrchestrator(t, memory, constBuilder(specs))

	h, err := o.StartRun(context.Background(), contractx.RunInputs{})
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	outcome := awaitRun(t, h)

	if outcome.Status != contractx.RunFailed {
		t.Fatalf("run status = %s, want failed", outcome.Status)
	}
	if got := outcome.Tasks["a"].Status; got != contractx.TaskSucceeded {
		t.Fatalf("task a status = %s, want succeeded", got)
	}
	if got := outcome.Tasks["b"].Status; got != contractx.TaskFailed {
		t.Fatalf("task b status = %s, want failed", got)
	}
	if got := outcome.Tasks["c"].Status; got != contractx.TaskSucceeded {
		t.Fatalf("task c status = %s, want succeeded", got)
	}
	if got := outcome.Tasks["d"].Status; got != contractx.TaskSkipped {
		t.Fatalf("task d status = %s, want skipped", got)
	}
	if got := outcome.Tasks["d"].Reason; !strings.Contains(got, "dependency b") {
		t.Fatalf("task d reason = %q, want dependency attribution", got)
	}
	if len(outcome.Failures) != 1 || outcome.Failures[0].Task != "b" {
		t.Fatalf("failures = %+v, want exactly task b", outcome.Failures)
	}
	if len(memory.inserts) != 0 {
		t.Fatalf("failed run wrote %d summaries, want 0", len(memory.inserts))
	}
}

func TestTasksSeeDependencyOutputs(t *testing.T) {
	t.Parallel()

	specs := []graphx.TaskSpec{
		{Name: "a", Run: succeed("out-a")},
		{Name: "b", DependsOn: []string{"a"}, Run: func(_ context.Context, tc *contractx.TaskContext) (string, error) {
			got, ok := tc.Outputs["a"]
			if !ok {
				return "", errors.New("dependency output missing")
			}
			return "saw " + got, nil
		}},
	}
	o := newTestOrchestrator(t, &fakeMemory{}, constBuilder(specs))

	h, err := o.StartRun(context.Background(), contractx.RunInputs{})
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	outcome := awaitRun(t, h)

	if outcome.Status != contractx.RunSucceeded {
		t.Fatalf("run status = %s, want succeeded", outcome.Status)
	}
	if got := outcome.Tasks["b"].Output; got != "saw out-a" {
		t.Fatalf("task b output = %q", got)
	}
}

func TestSuccessfulRunPersistsSummary(t *testing.T) {
	t.Parallel()

	specs := []graphx.TaskSpec{
		{Name: "itinerary", Run: succeed("Day 1: arrive.")},
	}
	memory := &fakeMemory{}
	o := newTestOrchestrator(t, memory, constBuilder(specs))

	h, err := o.StartRun(context.Background(), contractx.RunInputs{
		Origin:      "Lisbon",
		Destination: "Tokyo",
	})
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	outcome := awaitRun(t, h)

	if outcome.Status != contractx.RunSucceeded {
		t.Fatalf("run status = %s, want succeeded", outcome.Status)
	}
	if len(memory.inserts) != 1 {
		t.Fatalf("summary inserts = %d, want 1", len(memory.inserts))
	}
	rec := memory.inserts[0]
	if rec.ID != "run:run-1" {
		t.Fatalf("summary id = %q", rec.ID)
	}
	if !strings.Contains(rec.Document, "Lisbon -> Tokyo") {
		t.Fatalf("summary document %q missing route", rec.Document)
	}
	if !strings.Contains(rec.Document, "Day 1: arrive.") {
		t.Fatalf("summary document %q missing itinerary", rec.Document)
	}
	if rec.Metadata["destination"] != "Tokyo" {
		t.Fatalf("summary metadata = %+v", rec.Metadata)
	}
}

func TestSummaryInsertFailureDoesNotFailRun(t *testing.T) {
	t.Parallel()

	memory := &fakeMemory{err: errors.New("store offline")}
	o := newTestOrchestrator(t, memory, constBuilder([]graphx.TaskSpec{
		{Name: "a", Run: succeed("ok")},
	}))

	h, err := o.StartRun(context.Background(), contractx.RunInputs{})
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	outcome := awaitRun(t, h)
	if outcome.Status != contractx.RunSucceeded {
		t.Fatalf("run status = %s, want succeeded", outcome.Status)
	}
}

func TestResultIsNonBlocking(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	o := newTestOrchestrator(t, &fakeMemory{}, constBuilder([]graphx.TaskSpec{
		{Name: "a", Run: func(context.Context, *contractx.TaskContext) (string, error) {
			<-release
			return "done", nil
		}},
	}))

	h, err := o.StartRun(context.Background(), contractx.RunInputs{})
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if _, ok := h.Result(); ok {
		t.Fatal("Result reported completion while task still running")
	}
	close(release)

	outcome := awaitRun(t, h)
	if outcome.Status != contractx.RunSucceeded {
		t.Fatalf("run status = %s, want succeeded", outcome.Status)
	}
	if _, ok := h.Result(); !ok {
		t.Fatal("Result did not report completion after Await returned")
	}
}

func TestRunSurvivesCallerCancellation(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, &fakeMemory{}, constBuilder([]graphx.TaskSpec{
		{Name: "a", Run: func(ctx context.Context, _ *contractx.TaskContext) (string, error) {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(20 * time.Millisecond):
				return "survived", nil
			}
		}},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	h, err := o.StartRun(ctx, contractx.RunInputs{})
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	cancel()

	outcome := awaitRun(t, h)
	if outcome.Status != contractx.RunSucceeded {
		t.Fatalf("run status = %s, want succeeded", outcome.Status)
	}
	if got := outcome.Tasks["a"].Output; got != "survived" {
		t.Fatalf("task a output = %q", got)
	}
}

func TestResolveInputsFillsDefaults(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	resolved := ResolveInputs(contractx.RunInputs{}, now, func(int) int { return 0 })

	if resolved.Destination == "" || resolved.Origin == "" {
		t.Fatalf("resolved inputs missing cities: %+v", resolved)
	}
	if resolved.Origin == resolved.Destination {
		t.Fatalf("origin and destination collide: %q", resolved.Origin)
	}
	if resolved.DepartureDate != "2025-03-15" {
		t.Fatalf("departure date = %q, want 2025-03-15", resolved.DepartureDate)
	}
	if resolved.ReturnDate != "2025-03-22" {
		t.Fatalf("return date = %q, want 2025-03-22", resolved.ReturnDate)
	}
	if resolved.CheckInDate != resolved.DepartureDate || resolved.CheckOutDate != resolved.ReturnDate {
		t.Fatalf("hotel dates not aligned with flight dates: %+v", resolved)
	}
	if resolved.Budget != "any" {
		t.Fatalf("budget = %q, want any", resolved.Budget)
	}
	if !resolved.WantsFlights() || !resolved.WantsHotels() || !resolved.WantsItinerary() {
		t.Fatal("nil flags should resolve to include everything")
	}
}

func TestResolveInputsKeepsCallerValues(t *testing.T) {
	t.Parallel()

	no := false
	in := contractx.RunInputs{
		Origin:        "Oslo",
		Destination:   "Rome",
		DepartureDate: "2025-06-01",
		ReturnDate:    "2025-06-05",
		Budget:        "luxury",
		NeedsHotels:   &no,
	}
	resolved := ResolveInputs(in, time.Now().UTC(), func(int) int { return 0 })

	if resolved.Origin != "Oslo" || resolved.Destination != "Rome" {
		t.Fatalf("caller cities overridden: %+v", resolved)
	}
	if resolved.DepartureDate != "2025-06-01" || resolved.ReturnDate != "2025-06-05" {
		t.Fatalf("caller dates overridden: %+v", resolved)
	}
	if resolved.Budget != "luxury" {
		t.Fatalf("budget = %q, want luxury", resolved.Budget)
	}
	if resolved.WantsHotels() {
		t.Fatal("explicit false flag should be preserved")
	}
}
