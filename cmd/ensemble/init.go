package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ensembleai/ensemble/internal/config"
)

var (
	initForce        bool
	initWithExamples bool
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize an Ensemble project",
	Long: `Initialize a directory for use with Ensemble.

This command sets up everything needed to run workflows:
  - Creates the .ensemble directory (signals, logs)
  - Checks for an Anthropic API key
  - Optionally creates an example workflow file

The directory argument is optional and defaults to the current directory.

Examples:
  ensemble init                  # Initialize current directory
  ensemble init ./myproject      # Initialize specific directory
  ensemble init --with-examples  # Also create an example workflow`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Reinitialize even if already set up")
	initCmd.Flags().BoolVar(&initWithExamples, "with-examples", false, "Create an example workflow file")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}

	fmt.Printf("Initializing Ensemble in %s...\n\n", absPath)

	ensembleDir := filepath.Join(absPath, ".ensemble")
	if _, err := os.Stat(ensembleDir); err == nil && !initForce {
		fmt.Println("Directory already initialized. Use --force to reinitialize.")
		return nil
	}

	for _, sub := range []string{"signals", "logs"} {
		if err := os.MkdirAll(filepath.Join(ensembleDir, sub), 0755); err != nil {
			return fmt.Errorf("creating %s: %w", sub, err)
		}
	}
	printStatus("✓", "Created .ensemble directory", color.FgGreen)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if _, err := config.GetAPIKey(cfg); err != nil {
		printStatus("!", "No Anthropic API key found (set ANTHROPIC_API_KEY or run: ensemble config anthropic.api_key <key>)", color.FgYellow)
	} else {
		source := config.GetAPIKeySource(cfg)
		printStatus("✓", fmt.Sprintf("API key found (%s)", source), color.FgGreen)
	}

	if initWithExamples {
		examplePath := filepath.Join(absPath, "review.yaml")
		if _, err := os.Stat(examplePath); os.IsNotExist(err) || initForce {
			if err := os.WriteFile(examplePath, []byte(exampleWorkflow), 0644); err != nil {
				return fmt.Errorf("writing example workflow: %w", err)
			}
			printStatus("✓", "Created example workflow review.yaml", color.FgGreen)
		}
	}

	fmt.Println("\nDone. Try it out:")
	color.New(color.Faint).Println("  ensemble run -f review.yaml --dry-run \"review the login handler\"")
	return nil
}

// printStatus prints a colored status marker followed by a message.
func printStatus(marker, message string, c color.Attribute) {
	color.New(c).Printf("%s ", marker)
	fmt.Println(message)
}

const exampleWorkflow = `name: code-review
strategy: sequential
max_iterations: 6
agents:
  - name: reviewer
    system_prompt: >
      You are a meticulous code reviewer. Identify bugs, risky patterns,
      and unclear naming in the code you are given.
  - name: summarizer
    system_prompt: >
      Condense the review into a short, prioritized list of action items.
`
