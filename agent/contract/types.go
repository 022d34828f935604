package contract

import (
	"context"
	"time"
)

// RunInputs carries the trip parameters for one planning run. Fields left
// empty are filled by the orchestrator's default-generation rules before the
// run starts; the resolved copy is immutable for the lifetime of the run.
type RunInputs struct {
	Origin      string `json:"origin,omitempty"`
	Destination string `json:"destination,omitempty"`

	DepartureDate string `json:"departure_date,omitempty"`
	ReturnDate    string `json:"return_date,omitempty"`
	CheckInDate   string `json:"check_in_date,omitempty"`
	CheckOutDate  string `json:"check_out_date,omitempty"`

	// nil means "include everything".
	NeedsFlights   *bool `json:"needs_flights,omitempty"`
	NeedsHotels    *bool `json:"needs_hotels,omitempty"`
	NeedsItinerary *bool `json:"needs_itinerary,omitempty"`

	Budget    string `json:"budget,omitempty"`
	Interests string `json:"interests,omitempty"`
}

func (in RunInputs) WantsFlights() bool {
	return in.NeedsFlights == nil || *in.NeedsFlights
}

func (in RunInputs) WantsHotels() bool {
	return in.NeedsHotels == nil || *in.NeedsHotels
}

func (in RunInputs) WantsItinerary() bool {
	return in.NeedsItinerary == nil || *in.NeedsItinerary
}

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
	TaskSkipped   TaskStatus = "skipped"
)

type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// TaskReport is the per-task record in a RunOutcome. StartedAt/FinishedAt are
// zero for tasks that never ran.
type TaskReport struct {
	Status     TaskStatus `json:"status"`
	Output     string     `json:"output,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}

type TaskFailure struct {
	Task   string `json:"task"`
	Reason string `json:"reason"`
}

// RunOutcome is the terminal result of one run. Failures are ordered by the
// graph's topological order so attribution is stable.
type RunOutcome struct {
	RunID    string                `json:"run_id"`
	Status   RunStatus             `json:"status"`
	Tasks    map[string]TaskReport `json:"tasks"`
	Failures []TaskFailure         `json:"failures,omitempty"`
	Inputs   RunInputs             `json:"inputs"`
}

type ToolRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

type ToolResult struct {
	Tool   string `json:"tool"`
	Output string `json:"output,omitempty"`
}

type MemoryRecord struct {
	ID       string            `json:"id"`
	Document string            `json:"document"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type MemoryMatch struct {
	Record     MemoryRecord `json:"record"`
	Similarity float32      `json:"similarity"`
}

// MemoryQueryResult holds the matches for one query text, ordered by
// descending similarity.
type MemoryQueryResult struct {
	Query   string        `json:"query"`
	Matches []MemoryMatch `json:"matches,omitempty"`
}

// TaskContext is what a task body sees while it runs: the resolved run
// inputs, the outputs of every task that already succeeded (its own
// dependencies are guaranteed to be present), and the collaborators it may
// call.
type TaskContext struct {
	Inputs     RunInputs
	Outputs    map[string]string
	Tools      ToolGateway
	Memory     MemoryStore
	MemoryTopK int
}

// TaskFunc is a single task body. It returns the task's output artifact or an
// error that fails the task (and skips its dependents).
type TaskFunc func(ctx context.Context, tc *TaskContext) (string, error)
