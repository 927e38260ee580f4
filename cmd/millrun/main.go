package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "millrun",
	Short: "Millrun - autonomous work-item pipeline",
	Long:  `Millrun executes typed subtasks under a bounded concurrency budget, collects the resulting artifacts, and scores them along four quality dimensions.`,
	// No RunE - defaults to showing help when no subcommand is provided
}

var (
	apiAddr string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "http://127.0.0.1:7511", "API server address")

	// Add subcommands
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(subtaskCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(dashCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
