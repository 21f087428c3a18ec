package tui

import (
	"errors"
	"strings"
	"testing"

	"github.com/ensembleai/ensemble/internal/orchestrator"
)

func TestUpdate_TurnEventsFeedTheView(t *testing.T) {
	app := New(nil)

	app.handleEvent(orchestrator.Event{
		Type:         orchestrator.EventRunStarted,
		RunID:        "0123456789",
		Orchestrator: "pipeline",
	})
	app.handleEvent(orchestrator.Event{
		Type:      orchestrator.EventTurnStarted,
		AgentName: "researcher",
	})
	app.handleEvent(orchestrator.Event{
		Type:       orchestrator.EventTurnCompleted,
		AgentName:  "researcher",
		TurnNumber: 1,
		Message:    "notes gathered",
		TokensUsed: 150,
	})

	if app.runName != "pipeline" {
		t.Errorf("runName = %q, want pipeline", app.runName)
	}
	if len(app.turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(app.turns))
	}
	if app.tokensUsed != 150 {
		t.Errorf("tokensUsed = %d, want 150", app.tokensUsed)
	}

	view := app.View()
	if !strings.Contains(view, "researcher") {
		t.Error("view should show the agent name")
	}
	if !strings.Contains(view, "tokens: 150") {
		t.Error("view should show the token counter")
	}
}

func TestUpdate_TurnFailedShowsError(t *testing.T) {
	app := New(nil)

	app.handleEvent(orchestrator.Event{
		Type:      orchestrator.EventTurnFailed,
		AgentName: "writer",
		Error:     errors.New("rate limited"),
	})

	if len(app.turns) != 1 || !app.turns[0].Failed {
		t.Fatal("failed turn should join the feed marked failed")
	}
	if !strings.Contains(app.View(), "rate limited") {
		t.Error("view should show the failure reason")
	}
}

func TestUpdate_RunDone(t *testing.T) {
	app := New(nil)

	model, _ := app.Update(RunDoneMsg{Content: "final answer"})
	app = model.(*App)

	if !app.Done() {
		t.Error("Done should report true after RunDoneMsg")
	}
	if !strings.Contains(app.View(), "final answer") {
		t.Error("view should show the final content")
	}

	model, _ = app.Update(RunDoneMsg{Err: errors.New("budget exceeded")})
	app = model.(*App)
	if !strings.Contains(app.View(), "budget exceeded") {
		t.Error("view should show the run error")
	}
}
