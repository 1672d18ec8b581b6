// Package actions interprets inbound interactive-card action envelopes and
// drives re-run and confirmation side effects through the external
// collaborators. It is a stateless request/response dispatcher.
package actions

import (
	"strings"
)

// Kind is the parsed action discriminator. Unrecognized strings map to
// KindUnknown so dispatch is exhaustive over a closed set.
type Kind int

const (
	KindUnknown Kind = iota
	KindRerun
	KindAssign
	KindOpenRun
)

// ParseKind resolves the case-insensitive action string.
func ParseKind(s string) Kind {
	switch strings.ToLower(s) {
	case "rerun":
		return KindRerun
	case "assign":
		return KindAssign
	case "open-run":
		return KindOpenRun
	default:
		return KindUnknown
	}
}

// Envelope is the inbound action message.
type Envelope struct {
	Action string `json:"action"`
	Data   Data   `json:"data"`
}

// Data carries the button payload fields. Which are required depends on the
// action kind.
type Data struct {
	RunID  int64  `json:"run_id"`
	Repo   string `json:"repo"`
	RunURL string `json:"run_url"`
}

// Category classifies a handler result; the HTTP layer maps these to status
// codes at its boundary.
type Category int

const (
	CategoryOK Category = iota
	CategoryBadRequest
	CategoryNotFound
	CategoryError
)

// Result is what every action returns: a category plus a JSON-ready payload.
type Result struct {
	Category Category
	Payload  any
}

func ok(payload any) Result {
	return Result{Category: CategoryOK, Payload: payload}
}

func badRequest(msg string) Result {
	return Result{Category: CategoryBadRequest, Payload: map[string]string{"error": msg}}
}

func notFound(msg string) Result {
	return Result{Category: CategoryNotFound, Payload: map[string]string{"error": msg}}
}

func serverError(msg string) Result {
	return Result{Category: CategoryError, Payload: map[string]string{"error": msg}}
}
