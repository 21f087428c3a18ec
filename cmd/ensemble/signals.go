package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ensembleai/ensemble/internal/control"
)

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the run in this directory before its next turn",
	RunE: func(cmd *cobra.Command, args []string) error {
		sm, err := control.NewSignalManager(".")
		if err != nil {
			return err
		}
		defer sm.Close()

		if err := sm.SendPause(); err != nil {
			return fmt.Errorf("sending pause signal: %w", err)
		}
		fmt.Println("Pause requested. The run will hold before its next turn.")
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused run",
	RunE: func(cmd *cobra.Command, args []string) error {
		sm, err := control.NewSignalManager(".")
		if err != nil {
			return err
		}
		defer sm.Close()

		if err := sm.Resume(); err != nil {
			return fmt.Errorf("removing pause signal: %w", err)
		}
		fmt.Println("Resumed.")
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel the run in this directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		sm, err := control.NewSignalManager(".")
		if err != nil {
			return err
		}
		defer sm.Close()

		if err := sm.SendCancel(); err != nil {
			return fmt.Errorf("sending cancel signal: %w", err)
		}
		fmt.Println("Cancel requested. The run will abort before its next turn.")
		return nil
	},
}
