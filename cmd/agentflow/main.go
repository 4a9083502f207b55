package main

import (
	"fmt"
	"log"
	"os"

	"github.com/rahul/agentflow/internal/observability"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "agentflow",
	Short: "Plan and execute multi-step data reports with LLM-planned agents",
	Long: `agentflow asks a language model for a JSON plan of method calls, repairs the
plan when it is malformed, and executes it through a tree of executing units
whose leaves query a database, analyze the data and write a report.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: agentflow.{json,yaml} in . or ./config)")
}

func main() {
	// Route all log output through the terminal mutex so it never
	// interrupts the live status line.
	log.SetOutput(observability.NewTermWriter())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
