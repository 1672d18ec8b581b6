// Package normalize maps provider-specific CI webhook payloads onto the
// canonical run shape. It is pure and never fails: unrecognized or malformed
// input degrades to best-effort defaults so ingestion can accept anything.
package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hochfrequenz/ci-relay/internal/domain"
)

// Source hints accepted by Normalize.
const (
	SourceAuto    = "auto"
	SourceGitHub  = "github"
	SourceGeneric = "generic"
)

// Normalize turns a raw webhook body into canonical run fields. The raw
// body is retained verbatim as RawPayload regardless of how much of it was
// understood.
func Normalize(raw []byte, source string) domain.RunFields {
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	if source == "" || source == SourceAuto {
		if _, ok := body["workflow_run"]; ok {
			source = SourceGitHub
		} else if _, ok := body["workflow_job"]; ok {
			source = SourceGitHub
		} else {
			source = SourceGeneric
		}
	}

	switch strings.ToLower(source) {
	case SourceGitHub, "github-actions":
		return normalizeGitHub(body, raw)
	default:
		return normalizeGeneric(body, raw)
	}
}

func normalizeGitHub(body map[string]any, raw []byte) domain.RunFields {
	repo := str(obj(body, "repository"), "full_name")

	if run := obj(body, "workflow_run"); run != nil {
		return domain.RunFields{
			Repo:      orUnknown(repo),
			Workflow:  orUnknown(str(run, "name")),
			Branch:    orUnknown(str(run, "head_branch")),
			CommitSHA: orUnknown(str(run, "head_sha")),
			// Terminal events carry a conclusion, in-flight ones only a status.
			Status: orUnknown(first(str(run, "conclusion"), str(run, "status"))),
			RunURL: orURL(str(run, "html_url")),
			Logs: fmt.Sprintf("Workflow: %s\nRun #%s\nEvent: %s\nActor: %s",
				str(run, "name"), num(run, "run_number"), str(run, "event"),
				first(str(obj(run, "actor"), "login"), "N/A")),
			RawPayload: raw,
		}
	}

	if job := obj(body, "workflow_job"); job != nil {
		return domain.RunFields{
			Repo:       orUnknown(repo),
			Workflow:   orUnknown(first(str(job, "workflow_name"), str(job, "name"))),
			Branch:     orUnknown(str(job, "head_branch")),
			CommitSHA:  orUnknown(str(job, "head_sha")),
			Status:     orUnknown(first(str(job, "conclusion"), str(job, "status"))),
			RunURL:     orURL(str(job, "html_url")),
			Logs: fmt.Sprintf("Job: %s\nStatus: %s\nConclusion: %s\nRunner: %s",
				str(job, "name"), str(job, "status"),
				first(str(job, "conclusion"), "N/A"),
				first(str(job, "runner_name"), "N/A")),
			RawPayload: raw,
		}
	}

	return normalizeGeneric(body, raw)
}

func normalizeGeneric(body map[string]any, raw []byte) domain.RunFields {
	logs := first(str(body, "logs"), str(body, "message"))
	if logs == "" {
		if pretty, err := json.MarshalIndent(body, "", "  "); err == nil {
			logs = string(pretty)
		}
	}

	return domain.RunFields{
		Repo:       orUnknown(first(str(body, "repo"), str(body, "repository"))),
		Workflow:   orUnknown(first(str(body, "workflow"), str(body, "pipeline"), str(body, "job"))),
		Branch:     orUnknown(first(str(body, "branch"), str(body, "ref"))),
		CommitSHA:  orUnknown(first(str(body, "commit"), str(body, "sha"), str(body, "commit_sha"))),
		Status:     orUnknown(first(str(body, "status"), str(body, "state"))),
		RunURL:     orURL(first(str(body, "url"), str(body, "run_url"), str(body, "build_url"))),
		Logs:       logs,
		RawPayload: raw,
	}
}

func obj(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	sub, _ := m[key].(map[string]any)
	return sub
}

func str(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// num renders a JSON number field without a decimal point.
func num(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case float64:
		return fmt.Sprintf("%.0f", v)
	case string:
		return v
	default:
		return ""
	}
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func orUnknown(s string) string {
	if s == "" {
		return domain.UnknownField
	}
	return s
}

func orURL(s string) string {
	if s == "" {
		return domain.UnknownURL
	}
	return s
}
