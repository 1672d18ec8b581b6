package domain

import (
	"encoding/json"
	"time"
)

// Status values with special meaning. The status vocabulary is open:
// providers send whatever they like, but only these two are terminal.
const (
	StatusFailure = "failure"
	StatusSuccess = "success"
)

// Defaults used when a payload omits a field.
const (
	UnknownField = "unknown"
	UnknownURL   = "#"
)

// Run is the canonical record of one observed CI pipeline execution.
// The id is assigned by the store on insert and never reused; raw_payload
// holds the original event body verbatim.
type Run struct {
	ID         int64           `json:"id" db:"id"`
	Repo       string          `json:"repo" db:"repo"`
	Workflow   string          `json:"workflow" db:"workflow"`
	Branch     string          `json:"branch" db:"branch"`
	CommitSHA  string          `json:"commit_sha" db:"commit_sha"`
	Status     string          `json:"status" db:"status"`
	RunURL     string          `json:"run_url" db:"run_url"`
	RawPayload json.RawMessage `json:"raw_payload" db:"raw_payload"`
	Logs       string          `json:"logs" db:"logs"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// IsFailure reports whether the run ended in a terminal failure.
func (r *Run) IsFailure() bool { return r.Status == StatusFailure }

// RunFields is a Run before insertion, as produced by the normalizer.
type RunFields struct {
	Repo       string          `json:"repo"`
	Workflow   string          `json:"workflow"`
	Branch     string          `json:"branch"`
	CommitSHA  string          `json:"commit_sha"`
	Status     string          `json:"status"`
	RunURL     string          `json:"run_url"`
	Logs       string          `json:"logs"`
	RawPayload json.RawMessage `json:"raw_payload"`
}

// Filter is a conjunctive predicate over runs. Zero values mean "no
// constraint". Predicates are applied in a fixed order (status, repo,
// search, start, end) so generated queries are deterministic.
type Filter struct {
	Status    string
	Repo      string
	Search    string // substring match on branch OR commit_sha
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// Patch is a partial update of a run. Nil fields are left untouched.
type Patch struct {
	Status *string
	Logs   *string
}

// WorkflowFailures counts failures per workflow for Stats.
type WorkflowFailures struct {
	Workflow string `json:"workflow" db:"workflow"`
	Count    int    `json:"count" db:"count"`
}

// Stats are the aggregate numbers the dashboard shows.
type Stats struct {
	TotalRuns           int                `json:"totalRuns"`
	FailuresLast7Days   int                `json:"failuresLast7Days"`
	TopFailingWorkflows []WorkflowFailures `json:"topFailingWorkflows"`
}
