package notify

import (
	"context"
	"log/slog"

	"github.com/hochfrequenz/ci-relay/internal/domain"
)

// Event is one message on the live-update channel.
type Event struct {
	Type    string      `json:"type"`
	Run     *domain.Run `json:"run,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Broadcaster pushes an event to every live subscriber.
type Broadcaster interface {
	Broadcast(Event)
}

// NoopBroadcaster discards events (for tests or when no live channel runs).
type NoopBroadcaster struct{}

func (NoopBroadcaster) Broadcast(Event) {}

// Dispatcher fans a newly stored run out to the live channel and, for
// failures, to the chat webhook. The two deliveries are independent; neither
// can fail ingestion, which has already committed.
type Dispatcher struct {
	cliq *CliqClient
	hub  Broadcaster
	log  *slog.Logger
}

// Outcome reports what a single fan-out attempted.
type Outcome struct {
	Broadcast  bool
	ChatPosted bool
	ChatResult Result
}

func NewDispatcher(cliq *CliqClient, hub Broadcaster, log *slog.Logger) *Dispatcher {
	if hub == nil {
		hub = NoopBroadcaster{}
	}
	return &Dispatcher{cliq: cliq, hub: hub, log: log}
}

// RunStored delivers a freshly inserted run. Broadcast happens for every
// status; the chat card only for failures, to keep the channel quiet on
// green runs while the live feed still sees everything.
func (d *Dispatcher) RunStored(ctx context.Context, run *domain.Run) Outcome {
	out := Outcome{Broadcast: true}
	d.hub.Broadcast(Event{Type: "new-run", Run: run})

	if !run.IsFailure() {
		return out
	}

	out.ChatPosted = true
	out.ChatResult = d.cliq.PostCard(ctx, BuildCard(run))
	if !out.ChatResult.Success {
		d.log.Warn("cliq card not delivered",
			"run_id", run.ID,
			"reason", out.ChatResult.Reason,
			"error", out.ChatResult.Error)
	}
	return out
}
