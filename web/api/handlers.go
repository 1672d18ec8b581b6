package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hochfrequenz/ci-relay/internal/actions"
	"github.com/hochfrequenz/ci-relay/internal/domain"
	"github.com/hochfrequenz/ci-relay/internal/normalize"
	"github.com/hochfrequenz/ci-relay/internal/notify"
)

// PaginationResponse describes one page of the runs listing.
type PaginationResponse struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// RunsResponse is the paginated runs listing envelope.
type RunsResponse struct {
	Runs       []domain.Run       `json:"runs"`
	Pagination PaginationResponse `json:"pagination"`
}

// WebhookResponse acknowledges an ingested event.
type WebhookResponse struct {
	Success bool   `json:"success"`
	RunID   int64  `json:"runId"`
	Message string `json:"message"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"message": "CI Run Relay",
		"endpoints": map[string]string{
			"webhook":    "POST /ci/webhook",
			"cliqAction": "POST /cliq/action",
			"testCard":   "GET /cliq/test-card",
			"runs":       "GET /api/runs",
			"runDetail":  "GET /api/runs/{id}",
			"stats":      "GET /api/stats",
			"events":     "GET /events (SSE)",
			"ws":         "GET /ws (WebSocket)",
		},
	})
}

// handleWebhook ingests one CI event. Unrecognized payload shapes are never
// rejected; they degrade to generic normalization so the acknowledgment
// always carries an assigned id.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	source := r.URL.Query().Get("source")
	fields := normalize.Normalize(raw, source)

	id, err := s.store.Insert(r.Context(), fields)
	if err != nil {
		s.log.Error("insert run failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	run, err := s.store.GetByID(r.Context(), id)
	if err != nil || run == nil {
		s.log.Error("read back stored run failed", "run_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "stored run unreadable")
		return
	}

	// The insert is committed; fan-out failures stay inside the dispatcher.
	outcome := s.dispatcher.RunStored(r.Context(), run)

	s.log.Info("run stored",
		"run_id", id, "repo", run.Repo, "workflow", run.Workflow,
		"status", run.Status, "chat_posted", outcome.ChatPosted,
		"subscribers", s.hub.Count())

	writeJSON(w, http.StatusOK, WebhookResponse{
		Success: true,
		RunID:   id,
		Message: "Webhook processed successfully",
	})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var env actions.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	res := s.actions.Handle(r.Context(), env)
	writeJSON(w, statusFor(res.Category), res.Payload)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := clamp(parseInt(q.Get("page"), 1), 1, 1<<20)
	limit := clamp(parseInt(q.Get("limit"), 20), 1, 200)

	filter := domain.Filter{
		Status:    q.Get("status"),
		Repo:      q.Get("repo"),
		Search:    q.Get("search"),
		StartDate: parseDate(q.Get("startDate")),
		EndDate:   parseDate(q.Get("endDate")),
		Limit:     limit,
		Offset:    (page - 1) * limit,
	}

	runs, err := s.store.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.store.Count(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, RunsResponse{
		Runs: runs,
		Pagination: PaginationResponse{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
		},
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, done := s.lookupRun(w, r)
	if done {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleRerun lets the dashboard trigger the same rerun path as the chat
// card button, by delegating to the action handler.
func (s *Server) handleRerun(w http.ResponseWriter, r *http.Request) {
	id, err := runID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	res := s.actions.Handle(r.Context(), actions.Envelope{
		Action: "rerun",
		Data:   actions.Data{RunID: id},
	})
	writeJSON(w, statusFor(res.Category), res.Payload)
}

func (s *Server) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	run, done := s.lookupRun(w, r)
	if done {
		return
	}

	if !s.issues.Configured() {
		writeError(w, http.StatusBadRequest, "GITHUB_TOKEN not configured")
		return
	}

	title := fmt.Sprintf("CI Failure: %s on %s", run.Workflow, run.Branch)
	body := issueBody(run)

	issue, err := s.issues.CreateIssue(r.Context(), run.Repo, title, body)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"issue_url": issue.HTMLURL,
		"message":   "Issue created successfully",
	})
}

func (s *Server) handlePostToCliq(w http.ResponseWriter, r *http.Request) {
	run, done := s.lookupRun(w, r)
	if done {
		return
	}

	res := s.cliq.PostCard(r.Context(), notify.BuildCard(run))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": res.Success,
		"message": "Posted to Cliq",
		"result":  res,
	})
}

// handleTestCard sends a synthetic failure card, for wiring checks from the
// chat side.
func (s *Server) handleTestCard(w http.ResponseWriter, r *http.Request) {
	testRun := &domain.Run{
		Repo:      "test-org/test-repo",
		Workflow:  "Test Workflow",
		Branch:    "main",
		CommitSHA: "abc1234567890",
		Status:    domain.StatusFailure,
		RunURL:    "https://github.com/test-org/test-repo/actions/runs/123",
		Logs:      "This is a test CI failure notification.\nError: Tests failed on line 42.",
		CreatedAt: time.Now().UTC(),
	}

	res := s.cliq.PostCard(r.Context(), notify.BuildCard(testRun))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": res.Success,
		"message": "Test card sent to Cliq",
		"result":  res,
	})
}

// lookupRun resolves the {id} path parameter to a stored run, writing the
// error response itself when done is true.
func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (*domain.Run, bool) {
	id, err := runID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return nil, true
	}

	run, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, true
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "Run not found")
		return nil, true
	}
	return run, false
}

func runID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func issueBody(run *domain.Run) string {
	logs := run.Logs
	if logs == "" {
		logs = "No logs available"
	}
	return fmt.Sprintf(`## CI Failure Report

**Repository:** %s
**Workflow:** %s
**Branch:** %s
**Commit:** %s
**Status:** %s
**Run URL:** %s

### Logs
`+"```\n%s\n```"+`

**Created at:** %s
`, run.Repo, run.Workflow, run.Branch, run.CommitSHA, run.Status, run.RunURL,
		logs, run.CreatedAt.Format(time.RFC3339))
}

func parseInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// parseDate accepts RFC 3339 timestamps or plain dates.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t
	}
	return nil
}
