// Package tui provides the terminal user interface for watching a live
// ensemble run.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ensembleai/ensemble/internal/orchestrator"
)

// EventMsg wraps an orchestrator event for the TUI.
type EventMsg struct {
	Event orchestrator.Event
}

// RunDoneMsg signals that the run has finished.
type RunDoneMsg struct {
	Err     error
	Content string
}

// turnLine is one completed turn displayed in the feed.
type turnLine struct {
	Number    int
	AgentName string
	Message   string
	Failed    bool
	Timestamp time.Time
}

// App is the bubbletea model watching a run's event stream.
type App struct {
	spinner spinner.Model
	events  <-chan orchestrator.Event

	runName    string
	runID      string
	active     string
	turns      []turnLine
	tokensUsed int64

	done      bool
	success   bool
	finalLine string
	width     int
	quitting  bool

	agentStyle lipgloss.Style
	dimStyle   lipgloss.Style
	okStyle    lipgloss.Style
	errStyle   lipgloss.Style
}

// New creates an App consuming the given event stream.
func New(events <-chan orchestrator.Event) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &App{
		spinner: sp,
		events:  events,
		width:   80,

		agentStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("45")).
			Bold(true),

		dimStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		okStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("28")).
			Bold(true),

		errStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
	}
}

// waitForEvent returns a command that delivers the next orchestrator
// event, or nothing when the stream is drained and the run is done.
func waitForEvent(events <-chan orchestrator.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return EventMsg{Event: event}
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, waitForEvent(a.events))
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case EventMsg:
		a.handleEvent(msg.Event)
		return a, waitForEvent(a.events)

	case RunDoneMsg:
		a.done = true
		a.success = msg.Err == nil
		if msg.Err != nil {
			a.finalLine = msg.Err.Error()
		} else {
			a.finalLine = msg.Content
		}
		return a, nil
	}

	return a, nil
}

// handleEvent folds one orchestrator event into the display state.
func (a *App) handleEvent(event orchestrator.Event) {
	if event.TokensUsed > a.tokensUsed {
		a.tokensUsed = event.TokensUsed
	}

	switch event.Type {
	case orchestrator.EventRunStarted:
		a.runName = event.Orchestrator
		a.runID = event.RunID

	case orchestrator.EventTurnStarted:
		a.active = event.AgentName

	case orchestrator.EventTurnCompleted:
		a.active = ""
		a.turns = append(a.turns, turnLine{
			Number:    event.TurnNumber,
			AgentName: event.AgentName,
			Message:   event.Message,
			Timestamp: event.Timestamp,
		})

	case orchestrator.EventTurnFailed:
		a.active = ""
		line := turnLine{
			AgentName: event.AgentName,
			Failed:    true,
			Timestamp: event.Timestamp,
		}
		if event.Error != nil {
			line.Message = event.Error.Error()
		}
		a.turns = append(a.turns, line)
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return ""
	}

	view := a.viewHeader() + "\n\n" + a.viewTurns() + "\n" + a.viewFooter()
	return view
}

// viewHeader renders the run title and token counter.
func (a *App) viewHeader() string {
	title := a.runName
	if title == "" {
		title = "ensemble"
	}
	id := a.runID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s %s  %s",
		a.agentStyle.Render(title),
		a.dimStyle.Render(id),
		a.dimStyle.Render(fmt.Sprintf("tokens: %d", a.tokensUsed)))
}

// viewTurns renders the turn feed, truncated to the most recent entries.
func (a *App) viewTurns() string {
	if len(a.turns) == 0 && a.active == "" {
		return a.dimStyle.Render("  waiting for first turn...") + "\n"
	}

	start := 0
	if len(a.turns) > 15 {
		start = len(a.turns) - 15
	}

	var view string
	for _, turn := range a.turns[start:] {
		mark := a.okStyle.Render("✓")
		if turn.Failed {
			mark = a.errStyle.Render("✗")
		}
		msg := turn.Message
		if max := a.width - 20; max > 10 && len(msg) > max {
			msg = msg[:max] + "..."
		}
		view += fmt.Sprintf("  %s %s %s\n", mark, a.agentStyle.Render(turn.AgentName), msg)
	}

	if a.active != "" {
		view += fmt.Sprintf("  %s %s %s\n", a.spinner.View(), a.agentStyle.Render(a.active), a.dimStyle.Render("thinking..."))
	}
	return view
}

// viewFooter renders the final status or keyboard hints.
func (a *App) viewFooter() string {
	if a.done {
		if a.success {
			return a.okStyle.Render("✓ "+a.finalLine) + a.dimStyle.Render("  press q to exit")
		}
		return a.errStyle.Render("✗ "+a.finalLine) + a.dimStyle.Render("  press q to exit")
	}
	return a.dimStyle.Render("q to quit")
}

// Done reports whether the run has finished.
func (a *App) Done() bool {
	return a.done
}
