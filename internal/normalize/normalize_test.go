package normalize

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/hochfrequenz/ci-relay/internal/domain"
)

func TestNormalize_WorkflowRun(t *testing.T) {
	raw := []byte(`{
		"workflow_run": {
			"name": "CI",
			"head_branch": "main",
			"head_sha": "abc123",
			"conclusion": "failure",
			"status": "completed",
			"html_url": "https://github.com/o/r/actions/runs/77",
			"run_number": 1,
			"event": "push",
			"actor": {"login": "alice"}
		},
		"repository": {"full_name": "o/r"}
	}`)

	got := Normalize(raw, SourceAuto)

	if got.Repo != "o/r" {
		t.Errorf("Repo = %q, want o/r", got.Repo)
	}
	if got.Workflow != "CI" {
		t.Errorf("Workflow = %q, want CI", got.Workflow)
	}
	if got.Branch != "main" {
		t.Errorf("Branch = %q, want main", got.Branch)
	}
	if got.CommitSHA != "abc123" {
		t.Errorf("CommitSHA = %q, want abc123", got.CommitSHA)
	}
	if got.Status != domain.StatusFailure {
		t.Errorf("Status = %q, want failure", got.Status)
	}
	if got.RunURL != "https://github.com/o/r/actions/runs/77" {
		t.Errorf("RunURL = %q", got.RunURL)
	}
	if !strings.Contains(got.Logs, "Workflow: CI") || !strings.Contains(got.Logs, "Run #1") {
		t.Errorf("Logs summary missing workflow/run number: %q", got.Logs)
	}
	if !strings.Contains(got.Logs, "Actor: alice") {
		t.Errorf("Logs summary missing actor: %q", got.Logs)
	}
}

func TestNormalize_WorkflowRun_InFlightStatus(t *testing.T) {
	// In-flight events carry only a status, no conclusion yet.
	raw := []byte(`{
		"workflow_run": {"name": "CI", "status": "in_progress"},
		"repository": {"full_name": "o/r"}
	}`)

	got := Normalize(raw, SourceAuto)

	if got.Status != "in_progress" {
		t.Errorf("Status = %q, want in_progress", got.Status)
	}
	if got.Branch != domain.UnknownField {
		t.Errorf("Branch = %q, want unknown", got.Branch)
	}
	if got.RunURL != domain.UnknownURL {
		t.Errorf("RunURL = %q, want #", got.RunURL)
	}
}

func TestNormalize_WorkflowJob(t *testing.T) {
	raw := []byte(`{
		"workflow_job": {
			"name": "unit-tests",
			"workflow_name": "CI",
			"head_branch": "dev",
			"head_sha": "def456",
			"status": "completed",
			"conclusion": "success",
			"html_url": "https://github.com/o/r/actions/runs/88/job/5",
			"runner_name": "runner-1"
		},
		"repository": {"full_name": "o/r"}
	}`)

	got := Normalize(raw, SourceAuto)

	if got.Workflow != "CI" {
		t.Errorf("Workflow = %q, want CI (workflow_name preferred)", got.Workflow)
	}
	if got.Status != domain.StatusSuccess {
		t.Errorf("Status = %q, want success", got.Status)
	}
	if !strings.Contains(got.Logs, "Job: unit-tests") || !strings.Contains(got.Logs, "Runner: runner-1") {
		t.Errorf("Logs summary = %q", got.Logs)
	}
}

func TestNormalize_Generic(t *testing.T) {
	raw := []byte(`{
		"repo": "o/r2",
		"workflow": "build",
		"branch": "dev",
		"commit": "xyz",
		"status": "success",
		"url": "http://x"
	}`)

	got := Normalize(raw, SourceAuto)

	if got.Repo != "o/r2" || got.Workflow != "build" || got.Branch != "dev" {
		t.Errorf("generic extraction = %+v", got)
	}
	if got.CommitSHA != "xyz" {
		t.Errorf("CommitSHA = %q, want xyz", got.CommitSHA)
	}
	if got.Status != domain.StatusSuccess {
		t.Errorf("Status = %q, want success", got.Status)
	}
	if got.RunURL != "http://x" {
		t.Errorf("RunURL = %q, want http://x", got.RunURL)
	}
}

func TestNormalize_GenericAliases(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want domain.RunFields
	}{
		{
			name: "repository/pipeline/ref/sha/state/build_url",
			raw:  `{"repository":"a/b","pipeline":"deploy","ref":"rel","sha":"123","state":"passed","build_url":"http://b"}`,
			want: domain.RunFields{Repo: "a/b", Workflow: "deploy", Branch: "rel", CommitSHA: "123", Status: "passed", RunURL: "http://b"},
		},
		{
			name: "job/commit_sha/run_url",
			raw:  `{"job":"lint","commit_sha":"999","run_url":"http://c"}`,
			want: domain.RunFields{Repo: "unknown", Workflow: "lint", Branch: "unknown", CommitSHA: "999", Status: "unknown", RunURL: "http://c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize([]byte(tt.raw), SourceAuto)
			if got.Repo != tt.want.Repo || got.Workflow != tt.want.Workflow ||
				got.Branch != tt.want.Branch || got.CommitSHA != tt.want.CommitSHA ||
				got.Status != tt.want.Status || got.RunURL != tt.want.RunURL {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNormalize_ShapelessDegrades(t *testing.T) {
	got := Normalize([]byte(`{"something":"else"}`), SourceAuto)

	if got.Repo != domain.UnknownField || got.Workflow != domain.UnknownField ||
		got.Branch != domain.UnknownField || got.CommitSHA != domain.UnknownField ||
		got.Status != domain.UnknownField {
		t.Errorf("shapeless payload should degrade to unknown fields, got %+v", got)
	}
	if got.RunURL != domain.UnknownURL {
		t.Errorf("RunURL = %q, want #", got.RunURL)
	}
	// No message-like field: the whole payload lands in logs.
	if !strings.Contains(got.Logs, "something") {
		t.Errorf("Logs should carry the serialized payload, got %q", got.Logs)
	}
}

func TestNormalize_MalformedNeverFails(t *testing.T) {
	got := Normalize([]byte(`not json at all`), SourceAuto)

	if got.Repo != domain.UnknownField {
		t.Errorf("Repo = %q, want unknown", got.Repo)
	}
	if string(got.RawPayload) != "not json at all" {
		t.Errorf("RawPayload should be retained verbatim")
	}
}

func TestNormalize_RawPayloadRetained(t *testing.T) {
	raw := []byte(`{"repo":"o/r","status":"success"}`)
	got := Normalize(raw, SourceAuto)

	var original, stored map[string]any
	if err := json.Unmarshal(raw, &original); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(got.RawPayload, &stored); err != nil {
		t.Fatal(err)
	}
	if stored["repo"] != original["repo"] {
		t.Errorf("raw payload mutated: %v != %v", stored, original)
	}
}

func TestNormalize_ExplicitSourceHint(t *testing.T) {
	// A github hint on a shapeless payload falls through to generic.
	got := Normalize([]byte(`{"repo":"o/r"}`), "github")
	if got.Repo != "o/r" {
		t.Errorf("Repo = %q, want o/r via generic fallback", got.Repo)
	}

	// Hint matching is case-insensitive.
	got = Normalize([]byte(`{"workflow_run":{"name":"CI","status":"queued"},"repository":{"full_name":"o/r"}}`), "GitHub")
	if got.Workflow != "CI" {
		t.Errorf("Workflow = %q, want CI", got.Workflow)
	}
}
