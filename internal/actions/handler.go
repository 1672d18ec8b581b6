package actions

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/hochfrequenz/ci-relay/internal/domain"
	"github.com/hochfrequenz/ci-relay/internal/notify"
)

// Store is the read access the handler needs.
type Store interface {
	GetByID(ctx context.Context, id int64) (*domain.Run, error)
}

// SourceControl is the re-run side of the source-control collaborator.
type SourceControl interface {
	Configured() bool
	RerunWorkflow(ctx context.Context, repo, runID string) error
}

// Messenger posts plain confirmation messages to the chat surface.
type Messenger interface {
	PostMessage(ctx context.Context, text string) notify.Result
}

// Handler dispatches action envelopes.
type Handler struct {
	store  Store
	github SourceControl
	cliq   Messenger
	log    *slog.Logger
}

func NewHandler(store Store, github SourceControl, cliq Messenger, log *slog.Logger) *Handler {
	return &Handler{store: store, github: github, cliq: cliq, log: log}
}

// Matches the provider-native run id in URLs like .../actions/runs/123456.
var runURLPattern = regexp.MustCompile(`/runs/(\d+)`)

// ExtractRunID pulls the provider-native run identifier out of a run URL,
// or returns "" when the URL has no numeric run segment.
func ExtractRunID(runURL string) string {
	m := runURLPattern.FindStringSubmatch(runURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// Handle dispatches one envelope and always returns a structured result;
// collaborator failures are captured, never propagated as faults.
func (h *Handler) Handle(ctx context.Context, env Envelope) Result {
	if env.Action == "" {
		return badRequest("Missing action parameter")
	}

	h.log.Info("action received", "action", env.Action, "run_id", env.Data.RunID)

	switch ParseKind(env.Action) {
	case KindRerun:
		return h.rerun(ctx, env.Data)
	case KindAssign:
		return h.assign(ctx, env.Data)
	case KindOpenRun:
		return h.openRun(env.Data)
	default:
		return badRequest(fmt.Sprintf("Unknown action: %s", env.Action))
	}
}

func (h *Handler) rerun(ctx context.Context, data Data) Result {
	if data.RunID == 0 {
		return badRequest("Missing run_id")
	}

	run, err := h.store.GetByID(ctx, data.RunID)
	if err != nil {
		return serverError(err.Error())
	}
	if run == nil {
		return notFound("Run not found")
	}

	providerID := ExtractRunID(run.RunURL)

	// Without credentials or a recognizable run URL the protocol still
	// completes, so it can be exercised end-to-end unconfigured.
	if !h.github.Configured() || providerID == "" {
		return ok(map[string]any{
			"success": true,
			"message": "Re-run action received (simulated - configure GITHUB_TOKEN for actual re-run)",
			"run_url": run.RunURL,
		})
	}

	if err := h.github.RerunWorkflow(ctx, run.Repo, providerID); err != nil {
		return ok(map[string]any{
			"success": false,
			"message": "Failed to trigger re-run via GitHub API",
			"error":   err.Error(),
		})
	}

	confirmation := fmt.Sprintf("✅ Workflow re-run triggered for %s #%s", run.Repo, providerID)
	if res := h.cliq.PostMessage(ctx, confirmation); !res.Success {
		h.log.Warn("rerun confirmation not delivered", "run_id", run.ID, "error", res.Error)
	}

	return ok(map[string]any{
		"success": true,
		"message": "Workflow re-run triggered",
	})
}

func (h *Handler) assign(ctx context.Context, data Data) Result {
	if data.RunID == 0 {
		return badRequest("Missing run_id")
	}

	run, err := h.store.GetByID(ctx, data.RunID)
	if err != nil {
		return serverError(err.Error())
	}
	if run == nil {
		return notFound("Run not found")
	}

	// Extension point: a real implementation would open an assignee dialog.
	return ok(map[string]any{
		"success": true,
		"message": "Assign action received (not implemented - add your logic here)",
		"run_id":  run.ID,
	})
}

func (h *Handler) openRun(data Data) Result {
	if data.RunURL == "" {
		return badRequest("Missing run_url")
	}

	return ok(map[string]any{
		"success": true,
		"url":     data.RunURL,
		"message": "Opening run URL",
	})
}
