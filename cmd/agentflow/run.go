package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
	"github.com/rahul/agentflow/internal/agent"
	"github.com/rahul/agentflow/internal/queue"
	"github.com/rahul/agentflow/internal/store"
	"github.com/spf13/cobra"
)

var renderReport bool

var runCmd = &cobra.Command{
	Use:   "run <prompt>",
	Short: "Plan and execute a request once",
	Long: `Run sends the prompt to the orchestrator, which plans which agents to call and
executes them in order. The final Data Store keys are printed, and the report
path when one was produced.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&renderReport, "render", false, "render the generated report in the terminal")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	history, err := store.NewHistoryStore(a.cfg.Memory.Path)
	if err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	defer history.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := agent.NewWorker(nil, a.pool, history)
	task := queue.Task{ID: uuid.NewString(), Prompt: strings.Join(args, " "), Channel: "cli"}
	out, err := w.Handle(ctx, task)
	if err != nil {
		return fmt.Errorf("run %s: %w", task.ID, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Run %s completed\n", task.ID)
	for _, k := range sortedKeys(out) {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", k)
	}

	report, _ := out[agent.ReportKey].(string)
	if report == "" {
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Report saved at: %s\n", report)
	if renderReport {
		return printReport(cmd, report)
	}
	return nil
}

func printReport(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		// Fallback to plain text
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	rendered, err := r.Render("```\n" + string(data) + "\n```")
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}
