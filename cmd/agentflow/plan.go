package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var planIdentity string

var planCmd = &cobra.Command{
	Use:   "plan <prompt>",
	Short: "Print the validated plan for a prompt without executing it",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planIdentity, "identity", "", "component to plan for (default: the orchestrator)")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	identity := planIdentity
	if identity == "" {
		identity = a.pool.Orchestrator()
	}
	unit, err := a.pool.Get(identity)
	if err != nil {
		return err
	}

	steps := unit.Plan(context.Background(), strings.Join(args, " "))
	if len(steps) == 0 {
		return fmt.Errorf("no valid plan for %s after %d attempts", identity, a.cfg.Planner.MaxAttempts)
	}
	out, err := json.MarshalIndent(steps, "", "    ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
