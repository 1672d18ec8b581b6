package notify

import (
	"strings"
	"testing"

	"github.com/hochfrequenz/ci-relay/internal/domain"
)

func failureRun() *domain.Run {
	return &domain.Run{
		ID:        42,
		Repo:      "octo/widgets",
		Workflow:  "CI",
		Branch:    "main",
		CommitSHA: "abc123def456789",
		Status:    domain.StatusFailure,
		RunURL:    "https://github.com/octo/widgets/actions/runs/99",
		Logs:      "Step 3 failed: exit code 1",
	}
}

func TestStatusTheme(t *testing.T) {
	cases := []struct {
		status string
		want   string
	}{
		{domain.StatusFailure, "#e74c3c"},
		{domain.StatusSuccess, "#2ecc71"},
		{"cancelled", "#95a5a6"},
		{"", "#95a5a6"},
	}
	for _, c := range cases {
		if got := StatusTheme(c.status); got != c.want {
			t.Errorf("StatusTheme(%q) = %q, want %q", c.status, got, c.want)
		}
	}
}

func TestBuildCard_Failure(t *testing.T) {
	run := failureRun()
	msg := BuildCard(run)

	if msg.Text != "❌ CI Run FAILURE" {
		t.Errorf("Text = %q", msg.Text)
	}
	if msg.Card.Title != "❌ CI - FAILURE" {
		t.Errorf("Title = %q", msg.Card.Title)
	}
	if msg.Card.Theme != "#e74c3c" {
		t.Errorf("Theme = %q", msg.Card.Theme)
	}

	if len(msg.Card.Sections) != 2 {
		t.Fatalf("Sections = %d, want 2", len(msg.Card.Sections))
	}
	var sectionText strings.Builder
	for _, el := range msg.Card.Sections[0].Elements {
		sectionText.WriteString(el.Text + "\n")
	}
	// Sha is shortened to 7 characters in the detail section.
	if !strings.Contains(sectionText.String(), "`abc123d`") {
		t.Errorf("commit not shortened: %s", sectionText.String())
	}
	if !strings.Contains(sectionText.String(), "octo/widgets") {
		t.Errorf("repo missing: %s", sectionText.String())
	}
}

func TestBuildCard_LogsExcerpt(t *testing.T) {
	run := failureRun()
	run.Logs = strings.Repeat("x", 1000)

	msg := BuildCard(run)
	logsText := msg.Card.Sections[1].Elements[0].Text
	if strings.Count(logsText, "x") != logsExcerptMax {
		t.Errorf("logs excerpt holds %d chars, want %d", strings.Count(logsText, "x"), logsExcerptMax)
	}

	run.Logs = ""
	msg = BuildCard(run)
	if !strings.Contains(msg.Card.Sections[1].Elements[0].Text, "No logs available") {
		t.Error("empty logs should render a placeholder")
	}
}

func TestBuildCard_Buttons(t *testing.T) {
	run := failureRun()
	msg := BuildCard(run)

	if len(msg.Card.Buttons) != 3 {
		t.Fatalf("Buttons = %d, want 3", len(msg.Card.Buttons))
	}

	rerun := msg.Card.Buttons[0]
	if rerun.Key != "rerun" || rerun.Data == nil {
		t.Fatalf("rerun button malformed: %+v", rerun)
	}
	if rerun.Data.Action != "rerun" || rerun.Data.RunID != 42 ||
		rerun.Data.Repo != "octo/widgets" || rerun.Data.RunURL != run.RunURL {
		t.Errorf("rerun data = %+v", rerun.Data)
	}
	if rerun.Action == nil || rerun.Action.Name != "ci-action-handler" {
		t.Errorf("rerun action = %+v", rerun.Action)
	}

	assign := msg.Card.Buttons[1]
	if assign.Key != "assign" || assign.Data == nil || assign.Data.RunID != 42 {
		t.Errorf("assign button = %+v", assign)
	}

	view := msg.Card.Buttons[2]
	if view.Type != "open.url" || view.URL != run.RunURL {
		t.Errorf("view button = %+v", view)
	}
}
