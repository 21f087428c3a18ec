package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ensembleai/ensemble/internal/agent"
	"github.com/ensembleai/ensemble/internal/config"
	"github.com/ensembleai/ensemble/internal/control"
	"github.com/ensembleai/ensemble/internal/orchestrator"
	"github.com/ensembleai/ensemble/internal/tui"
	"github.com/ensembleai/ensemble/internal/workflow"
	"github.com/ensembleai/ensemble/pkg/errdefs"
)

var (
	runWorkflowPath string
	runDryRun       bool
	runWatch        bool
	runDebugLog     string
)

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Run a task through a workflow of agents",
	Long: `Run a task through the agents declared in a workflow file.

The workflow file picks the strategy and declares the participants.
Agents with a script never call the provider; --dry-run replaces every
agent with a scripted stand-in so the whole workflow can be exercised
without credentials.

While a run is in flight, a second terminal can control it:
  ensemble pause    suspend before the next turn
  ensemble resume   continue a paused run
  ensemble cancel   abort the run

Examples:
  ensemble run -f review.yaml "audit the billing module"
  ensemble run -f review.yaml --watch "audit the billing module"
  ensemble run -f review.yaml --dry-run "smoke test the workflow"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runWorkflowPath, "workflow", "f", "", "Workflow file to run (required)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Replace agents with scripted stand-ins")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "Watch the run in a live TUI")
	runCmd.Flags().StringVar(&runDebugLog, "debug-log", "", "Write a debug log to this file")
	runCmd.MarkFlagRequired("workflow")
}

func runRun(cmd *cobra.Command, args []string) error {
	task := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	w, err := workflow.Load(runWorkflowPath)
	if err != nil {
		return err
	}

	logPath := runDebugLog
	if logPath == "" {
		logPath = cfg.Debug.LogPath
	}
	logger, err := orchestrator.NewDebugLogger(logPath)
	if err != nil {
		return err
	}
	defer logger.Close()

	signals, err := control.NewSignalManager(".")
	if err != nil {
		return fmt.Errorf("setting up run control: %w", err)
	}
	defer signals.Close()
	signals.ClearSignals()

	o, err := workflow.Build(w, cfg, workflow.BuildOptions{
		DryRun: runDryRun,
		Logger: logger,
		Gate:   signals,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runWatch {
		return runWithTUI(ctx, o, task)
	}
	return runHeadless(ctx, o, task, cfg.Defaults.Model)
}

// runHeadless streams turn lines to stdout as they complete.
func runHeadless(ctx context.Context, o orchestrator.Orchestrator, task string, cfgModel string) error {
	agentColor := color.New(color.FgCyan, color.Bold)
	dimColor := color.New(color.Faint)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range o.Events() {
			switch event.Type {
			case orchestrator.EventTurnCompleted:
				agentColor.Printf("%s", event.AgentName)
				fmt.Printf(": %s\n", event.Message)
				dimColor.Printf("  (turn %d, %d tokens total)\n", event.TurnNumber, event.TokensUsed)
			case orchestrator.EventTurnFailed:
				color.Red("%s failed: %v", event.AgentName, event.Error)
			}
		}
	}()

	result, err := o.Run(ctx, task)
	if err != nil {
		reportFailure(err)
		return err
	}

	cost := agent.EstimateCost(result.TotalUsage, cfgModel)
	color.Green("\n✓ run %s completed: %d turn(s), %d tokens (~$%.4f)",
		result.RunID[:8], result.Iterations, result.TotalUsage.TotalTokens, cost)
	if content := result.Content(); content != "" {
		fmt.Printf("\n%s\n", content)
	}
	return nil
}

// runWithTUI drives the run behind a live bubbletea view. Quitting the
// view cancels an in-flight run; the command always waits for the run
// goroutine to settle and reports its error.
func runWithTUI(ctx context.Context, o orchestrator.Orchestrator, task string, teaOpts ...tea.ProgramOption) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	app := tui.New(o.Events())
	program := tea.NewProgram(app, teaOpts...)

	done := make(chan error, 1)
	go func() {
		result, err := o.Run(runCtx, task)
		msg := tui.RunDoneMsg{Err: err}
		if err == nil {
			msg.Content = result.Content()
		}
		program.Send(msg)
		done <- err
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		<-done
		return fmt.Errorf("tui: %w", err)
	}

	cancel()
	return <-done
}

// reportFailure prints a run error with whatever partial progress the
// result retained.
func reportFailure(err error) {
	var runErr *errdefs.RunError
	if errors.As(err, &runErr) && runErr.Result != nil {
		color.Red("\n✗ run failed after %d turn(s): %v", runErr.Result.Iterations, runErr.Err)
		return
	}
	color.Red("\n✗ run failed: %v", err)
}
