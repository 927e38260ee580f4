package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/millworks/millrun/internal/tui"
)

var dashCmd = &cobra.Command{
	Use:   "dash",
	Short: "Launch the interactive pipeline dashboard",
	RunE:  runDash,
}

func runDash(cmd *cobra.Command, args []string) error {
	if err := checkHealth(); err != nil {
		return fmt.Errorf("daemon not reachable at %s (start it with 'millrun daemon'): %w", apiAddr, err)
	}

	app := tui.New(apiAddr)
	if err := app.Run(); err != nil {
		return fmt.Errorf("dashboard error: %w", err)
	}
	return nil
}
