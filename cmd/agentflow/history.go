package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/rahul/agentflow/internal/store"
	"github.com/rahul/agentflow/pkg/config"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recent runs, or show one run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to list")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	history, err := store.NewHistoryStore(cfg.Memory.Path)
	if err != nil {
		return err
	}
	defer history.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		run, err := history.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "ID:       %s\nStatus:   %s\nPrompt:   %s\nChannel:  %s\nCreated:  %s\n",
			run.ID, run.Status, run.Prompt, run.Channel, run.CreatedAt.Format("2006-01-02 15:04:05"))
		if run.Report != "" {
			fmt.Fprintf(out, "Report:   %s\n", run.Report)
		}
		if run.Error != "" {
			fmt.Fprintf(out, "Error:    %s\n", run.Error)
		}
		return nil
	}

	runs, err := history.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tCHANNEL\tCREATED\tPROMPT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Status, r.Channel, r.CreatedAt.Format("2006-01-02 15:04"), truncate(r.Prompt, 48))
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
