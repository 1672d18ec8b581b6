package notify

import (
	"strings"

	"github.com/hochfrequenz/ci-relay/internal/domain"
)

const (
	cardThumbnail = "https://img.icons8.com/fluency/96/000000/code.png"
	logsExcerptMax = 300
)

// CardMessage is the Cliq card wire shape. Button data payloads must stay
// structurally compatible with the action envelope the handler expects.
type CardMessage struct {
	Text string `json:"text"`
	Card Card   `json:"card"`
}

type Card struct {
	Title     string    `json:"title"`
	Theme     string    `json:"theme"`
	Thumbnail string    `json:"thumbnail"`
	Sections  []Section `json:"sections"`
	Buttons   []Button  `json:"buttons"`
}

type Section struct {
	ID       int       `json:"id"`
	Elements []Element `json:"elements"`
}

type Element struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Button struct {
	Label  string        `json:"label"`
	Type   string        `json:"type"`
	Action *ButtonAction `json:"action,omitempty"`
	Key    string        `json:"key,omitempty"`
	Data   *ButtonData   `json:"data,omitempty"`
	URL    string        `json:"url,omitempty"`
}

type ButtonAction struct {
	Type string `json:"type"`
	Name string `json:"name"`
	ID   string `json:"id"`
}

type ButtonData struct {
	Action string `json:"action"`
	RunID  int64  `json:"run_id"`
	Repo   string `json:"repo,omitempty"`
	RunURL string `json:"run_url,omitempty"`
}

// StatusTheme returns the card color for a run status.
func StatusTheme(status string) string {
	switch status {
	case domain.StatusFailure:
		return "#e74c3c"
	case domain.StatusSuccess:
		return "#2ecc71"
	default:
		return "#95a5a6"
	}
}

func statusIcon(status string) string {
	switch status {
	case domain.StatusFailure:
		return "❌"
	case domain.StatusSuccess:
		return "✅"
	default:
		return "ℹ️"
	}
}

// BuildCard renders the interactive card for a run.
func BuildCard(run *domain.Run) *CardMessage {
	icon := statusIcon(run.Status)

	logs := run.Logs
	if logs == "" {
		logs = "No logs available"
	}
	if len(logs) > logsExcerptMax {
		logs = logs[:logsExcerptMax]
	}

	sha := run.CommitSHA
	if len(sha) > 7 {
		sha = sha[:7]
	}

	return &CardMessage{
		Text: icon + " CI Run " + strings.ToUpper(run.Status),
		Card: Card{
			Title:     icon + " " + run.Workflow + " - " + strings.ToUpper(run.Status),
			Theme:     StatusTheme(run.Status),
			Thumbnail: cardThumbnail,
			Sections: []Section{
				{
					ID: 1,
					Elements: []Element{
						{Type: "text", Text: "**Repository:** " + run.Repo},
						{Type: "text", Text: "**Branch:** " + run.Branch},
						{Type: "text", Text: "**Commit:** `" + sha + "`"},
						{Type: "text", Text: "**Status:** " + run.Status},
					},
				},
				{
					ID: 2,
					Elements: []Element{
						{Type: "text", Text: "**Logs:**\n```\n" + logs + "\n```"},
					},
				},
			},
			Buttons: []Button{
				{
					Label:  "🔄 Re-run",
					Type:   "+",
					Action: &ButtonAction{Type: "invoke.function", Name: "ci-action-handler", ID: "rerun-action"},
					Key:    "rerun",
					Data:   &ButtonData{Action: "rerun", RunID: run.ID, Repo: run.Repo, RunURL: run.RunURL},
				},
				{
					Label:  "👤 Assign",
					Type:   "+",
					Action: &ButtonAction{Type: "invoke.function", Name: "ci-action-handler", ID: "assign-action"},
					Key:    "assign",
					Data:   &ButtonData{Action: "assign", RunID: run.ID},
				},
				{
					Label: "🔗 View Run",
					Type:  "open.url",
					URL:   run.RunURL,
				},
			},
		},
	}
}
