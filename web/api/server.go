package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	m "github.com/go-chi/chi/v5/middleware"

	"github.com/hochfrequenz/ci-relay/internal/actions"
	"github.com/hochfrequenz/ci-relay/internal/domain"
	"github.com/hochfrequenz/ci-relay/internal/github"
	"github.com/hochfrequenz/ci-relay/internal/notify"
)

// Store is the persistence contract the API needs.
type Store interface {
	Insert(ctx context.Context, f domain.RunFields) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Run, error)
	List(ctx context.Context, f domain.Filter) ([]domain.Run, error)
	Count(ctx context.Context, f domain.Filter) (int, error)
	Stats(ctx context.Context) (*domain.Stats, error)
}

// IssueCreator is the slice of the source-control collaborator the issue
// endpoint uses.
type IssueCreator interface {
	Configured() bool
	CreateIssue(ctx context.Context, repo, title, body string) (*github.Issue, error)
}

// Options wires a Server.
type Options struct {
	Store         Store
	Actions       *actions.Handler
	Dispatcher    *notify.Dispatcher
	Cliq          *notify.CliqClient
	Issues        IssueCreator
	Hub           *Hub
	APIKey        string
	WebhookSecret string
	Logger        *slog.Logger
}

// Server is the HTTP surface: ingestion webhook, action endpoint, read API
// and the live-update channel.
type Server struct {
	store         Store
	actions       *actions.Handler
	dispatcher    *notify.Dispatcher
	cliq          *notify.CliqClient
	issues        IssueCreator
	hub           *Hub
	apiKey        string
	webhookSecret string
	log           *slog.Logger
	router        chi.Router
}

// NewServer creates the server and mounts all routes.
func NewServer(opts Options) *Server {
	s := &Server{
		store:         opts.Store,
		actions:       opts.Actions,
		dispatcher:    opts.Dispatcher,
		cliq:          opts.Cliq,
		issues:        opts.Issues,
		hub:           opts.Hub,
		apiKey:        opts.APIKey,
		webhookSecret: opts.WebhookSecret,
		log:           opts.Logger,
	}
	if s.hub == nil {
		s.hub = NewHub()
	}

	r := chi.NewRouter()
	r.Use(m.RequestID, m.RealIP, m.Recoverer)

	r.Get("/", s.handleRoot)

	r.Route("/ci", func(r chi.Router) {
		r.With(s.requireSignature).Post("/webhook", s.handleWebhook)
	})

	r.Route("/cliq", func(r chi.Router) {
		r.Post("/action", s.handleAction)
		r.Get("/test-card", s.handleTestCard)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/stats", s.handleStats)
		r.Post("/runs/{id}/rerun", s.handleRerun)
		r.Post("/runs/{id}/create-issue", s.handleCreateIssue)
		r.Post("/runs/{id}/post-to-cliq", s.handlePostToCliq)
	})

	r.Get("/events", s.handleSSE)
	r.Get("/ws", s.handleWS)

	s.router = r
	return s
}

// Handler returns the mounted router.
func (s *Server) Handler() http.Handler { return s.router }

// Hub returns the live-subscriber hub.
func (s *Server) Hub() *Hub { return s.hub }

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// statusFor maps an action result category to an HTTP status code; the
// category distinction itself lives below the HTTP boundary.
func statusFor(c actions.Category) int {
	switch c {
	case actions.CategoryBadRequest:
		return http.StatusBadRequest
	case actions.CategoryNotFound:
		return http.StatusNotFound
	case actions.CategoryError:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}
