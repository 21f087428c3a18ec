package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ensemble",
	Short: "Multi-agent orchestration engine",
	Long: `Ensemble coordinates multiple Claude agents to jointly accomplish a task.

A workflow file declares the agents and picks one of four strategies:
  sequential   strict pipeline, each agent sees its predecessors' output
  concurrent   parallel fan-out against the same message
  groupchat    turn-taking discussion driven by a speaker selector
  handoff      explicit transfer of control between agents

Every agent invocation passes through a composable middleware chain
(tracing, logging, rate limiting, response caching, retry) configured
in ~/.config/ensemble/config.yaml or a project-level .ensemble.yaml.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(versionCmd)
}
