package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/KohJunJie/tour-agent-planner/agent/contract"
	graphx "github.com/KohJunJie/tour-agent-planner/agent/graph"
)

// GraphBuilder produces the task graph for one set of resolved inputs.
type GraphBuilder func(in contractx.RunInputs) []graphx.TaskSpec

type Config struct {
	// MemoryTopK is handed to task bodies for context-recall queries.
	MemoryTopK int
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func WithRunID(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.runID = fn
		}
	}
}

func WithPick(fn func(n int) int) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.pick = fn
		}
	}
}

// Orchestrator validates and executes task graphs: dependency-ordered
// execution, concurrent independent branches, per-task failure isolation.
type Orchestrator struct {
	tools  contractx.ToolGateway
	memory contractx.MemoryStore
	build  GraphBuilder
	topK   int

	now   func() time.Time
	runID func() string
	pick  func(n int) int
}

func New(
	tools contractx.ToolGateway,
	memory contractx.MemoryStore,
	build GraphBuilder,
	cfg Config,
	opts ...Option,
) (*Orchestrator, error) {
	if tools == nil {
		return nil, errors.New("tool gateway is required")
	}
	if build == nil {
		return nil, errors.New("graph builder is required")
	}
	if memory == nil {
		memory = noopMemoryStore{}
	}

	topK := cfg.MemoryTopK
	if topK <= 0 {
		topK = 2
	}

	o := &Orchestrator{
		tools:  tools,
		memory: memory,
		build:  build,
		topK:   topK,
		now:    time.Now,
		runID:  uuid.NewString,
		pick:   rand.IntN,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o, nil
}

// StartRun resolves input defaults, validates the task graph and kicks off
// asynchronous execution. A malformed graph fails here, before any task body
// runs. Cancelling ctx does not cancel the run; it detaches.
func (o *Orchestrator) StartRun(ctx context.Context, in contractx.RunInputs) (*RunHandle, error) {
	inputs := ResolveInputs(in, o.now().UTC(), o.pick)
	specs := o.build(inputs)
	if err := graphx.Validate(specs); err != nil {
		return nil, err
	}
	order, err := graphx.TopoSort(specs)
	if err != nil {
		return nil, err
	}

	h := &RunHandle{
		ID:   o.runID(),
		done: make(chan struct{}),
	}

	log.Info().
		Str("run_id", h.ID).
		Str("origin", inputs.Origin).
		Str("destination", inputs.Destination).
		Int("tasks", len(specs)).
		Msg("run started")

	go o.execute(context.WithoutCancel(ctx), h, specs, order, inputs)
	return h, nil
}

func (o *Orchestrator) execute(
	ctx context.Context,
	h *RunHandle,
	specs []graphx.TaskSpec,
	order []string,
	inputs contractx.RunInputs,
) {
	var mu sync.Mutex
	reports := make(map[string]*contractx.TaskReport, len(specs))
	outputs := make(map[string]string, len(specs))
	done := make(map[string]chan struct{}, len(specs))
	for _, spec := range specs {
		reports[spec.Name] = &contractx.TaskReport{Status: contractx.TaskPending}
		done[spec.Name] = make(chan struct{})
	}

	var wg sync.WaitGroup
	for _, spec := range specs {
		wg.Add(1)
		go func(spec graphx.TaskSpec) {
			defer wg.Done()
			defer close(done[spec.Name])

			for _, dep := range spec.DependsOn {
				<-done[dep]
			}

			mu.Lock()
			blockedBy := ""
			for _, dep := range spec.DependsOn {
				if reports[dep].Status != contractx.TaskSucceeded {
					blockedBy = dep
					break
				}
			}
			if blockedBy != "" {
				reports[spec.Name].Status = contractx.TaskSkipped
				reports[spec.Name].Reason = fmt.Sprintf("dependency %s did not succeed", blockedBy)
				mu.Unlock()
				return
			}

			report := reports[spec.Name]
			report.Status = contractx.TaskRunning
			report.StartedAt = o.now()
			tc := &contractx.TaskContext{
				Inputs:     inputs,
				Outputs:    copyOutputs(outputs),
				Tools:      o.tools,
				Memory:     o.memory,
				MemoryTopK: o.topK,
			}
			mu.Unlock()

			output, err := spec.Run(ctx, tc)

			mu.Lock()
			report.FinishedAt = o.now()
			if err != nil {
				report.Status = contractx.TaskFailed
				report.Reason = err.Error()
				log.Warn().Str("run_id", h.ID).Str("task", spec.Name).Err(err).Msg("task failed")
			} else {
				report.Status = contractx.TaskSucceeded
				report.Output = output
				outputs[spec.Name] = output
			}
			mu.Unlock()
		}(spec)
	}
	wg.Wait()

	outcome := contractx.RunOutcome{
		RunID:  h.ID,
		Status: contractx.RunSucceeded,
		Tasks:  make(map[string]contractx.TaskReport, len(reports)),
		Inputs: inputs,
	}
	for _, name := range order {
		report := *reports[name]
		outcome.Tasks[name] = report
		if report.Status == contractx.TaskFailed {
			outcome.Status = contractx.RunFailed
			outcome.Failures = append(outcome.Failures, contractx.TaskFailure{Task: name, Reason: report.Reason})
		}
	}

	if outcome.Status == contractx.RunSucceeded {
		o.writeRunSummary(ctx, h.ID, inputs, outputs)
	}

	log.Info().Str("run_id", h.ID).Str("status", string(outcome.Status)).Msg("run finished")
	h.finish(outcome)
}

// writeRunSummary persists the outcome for future recall. The run already
// succeeded, so a store failure here is logged rather than surfaced.
func (o *Orchestrator) writeRunSummary(ctx context.Context, runID string, inputs contractx.RunInputs, outputs map[string]string) {
	summary := fmt.Sprintf("Trip plan %s -> %s departing %s (budget: %s).",
		inputs.Origin, inputs.Destination, inputs.DepartureDate, inputs.Budget)
	if inputs.Interests != "" {
		summary += " Interests: " + inputs.Interests + "."
	}
	if itinerary, ok := outputs["itinerary"]; ok {
		summary += "\n" + itinerary
	}

	err := o.memory.Insert(ctx,
		[]string{summary},
		[]string{"run:" + runID},
		[]map[string]string{{
			"origin":         inputs.Origin,
			"destination":    inputs.Destination,
			"departure_date": inputs.DepartureDate,
		}},
	)
	if err != nil {
		log.Warn().Str("run_id", runID).Err(err).Msg("failed to persist run summary")
	}
}

func copyOutputs(outputs map[string]string) map[string]string {
	out := make(map[string]string, len(outputs))
	for k, v := range outputs {
		out[k] = v
	}
	return out
}

// RunHandle represents one in-flight run.
type RunHandle struct {
	ID string

	mu      sync.Mutex
	outcome contractx.RunOutcome
	done    chan struct{}
}

func (h *RunHandle) finish(outcome contractx.RunOutcome) {
	h.mu.Lock()
	h.outcome = outcome
	h.mu.Unlock()
	close(h.done)
}

// Result is the non-blocking status query: ok is false while the run is
// still pending.
func (h *RunHandle) Result() (contractx.RunOutcome, bool) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.outcome, true
	default:
		return contractx.RunOutcome{}, false
	}
}

// Await blocks until the run reaches a terminal state or ctx is done.
func (h *RunHandle) Await(ctx context.Context) (contractx.RunOutcome, error) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.outcome, nil
	case <-ctx.Done():
		return contractx.RunOutcome{}, ctx.Err()
	}
}

type noopMemoryStore struct{}

func (noopMemoryStore) Insert(context.Context, []string, []string, []map[string]string) error {
	return nil
}

func (noopMemoryStore) Query(context.Context, []string, int) ([]contractx.MemoryQueryResult, error) {
	return nil, nil
}
