package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rahul/agentflow/internal/governance"
	"github.com/rahul/agentflow/internal/observability"
	"github.com/rahul/agentflow/internal/registry"
)

// ErrMissingInput aborts a step whose inputs are incomplete under a policy
// that maps MissingInput to Abort.
var ErrMissingInput = errors.New("missing required input")

// Unit is an executing unit: it plans for one component identity and runs
// that plan through its resolver.
type Unit struct {
	identity   string
	role       observability.Role
	registry   *registry.Registry
	resolver   Resolver
	planner    *Planner
	governance governance.PolicyEngine
	policy     Policy
	logger     *observability.Logger
	metrics    *observability.Metrics

	// store is shared by every Execute call when non-nil.
	store *DataStore
}

func (u *Unit) Identity() string {
	return u.identity
}

// Store returns the unit's shared Data Store, or nil when each call gets a
// fresh one.
func (u *Unit) Store() *DataStore {
	return u.store
}

// Plan runs only the planning phase for query.
func (u *Unit) Plan(ctx context.Context, query string) []Step {
	if RunIDFrom(ctx) == "" {
		ctx = WithRunID(ctx, uuid.NewString())
	}
	return u.planner.Plan(withUnit(ctx, u.identity), query)
}

// Execute merges inputs into the Data Store, plans for the unit's identity
// from inputs["prompt"], runs the plan in order and returns the full store.
// A failing step method aborts the call with its error.
func (u *Unit) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	topLevel := UnitFrom(ctx) == ""
	runID := RunIDFrom(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = WithRunID(ctx, runID)
	}
	ctx = withUnit(ctx, u.identity)

	observability.SetStatus(u.role, u.identity)
	if topLevel {
		defer observability.SetStatus(observability.RoleIdle, "")
	}

	store := u.store
	if store == nil {
		store = NewDataStore()
	}
	store.Merge(inputs)

	steps := u.planner.Plan(ctx, store.String(PromptKey))
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := u.runStep(ctx, store, step); err != nil {
			u.logger.LogRun(u.identity, runID, "failed", store.Keys())
			if topLevel {
				u.metrics.ObserveRun("failed")
			}
			return nil, err
		}
		observability.SetStatus(u.role, u.identity)
	}

	u.logger.LogRun(u.identity, runID, "completed", store.Keys())
	if topLevel {
		u.metrics.ObserveRun("completed")
	}
	return store.Snapshot(), nil
}

func (u *Unit) runStep(ctx context.Context, store *DataStore, step Step) error {
	runID := RunIDFrom(ctx)
	res := u.Classify(ctx, store, step)

	switch u.policy.action(res.Class) {
	case Skip:
		u.logger.LogStepSkipped(u.identity, runID, step.Method, res.Reason)
		u.metrics.ObserveStep(u.identity, step.Method, "skipped", 0)
		return nil
	case Abort:
		u.metrics.ObserveStep(u.identity, step.Method, "aborted", 0)
		if res.Class == MissingInput {
			return fmt.Errorf("%s: step %s: %w: %s", u.identity, step.Method, ErrMissingInput, strings.Join(res.Missing, ", "))
		}
		return fmt.Errorf("%s: step %s: %s: %s", u.identity, step.Method, res.Class, res.Reason)
	case Placeholder:
		if len(res.Missing) > 0 {
			res.Inputs[MissingInputKey] = strings.Join(res.Missing, ", ")
		}
	}
	if res.Method == nil {
		u.logger.LogStepSkipped(u.identity, runID, step.Method, res.Reason)
		u.metrics.ObserveStep(u.identity, step.Method, "skipped", 0)
		return nil
	}

	start := time.Now()
	outputs, err := res.Method(ctx, res.Inputs)
	if err != nil {
		u.metrics.ObserveStep(u.identity, step.Method, "failed", time.Since(start))
		return fmt.Errorf("%s: step %s: %w", u.identity, step.Method, err)
	}
	u.metrics.ObserveStep(u.identity, step.Method, "invoked", time.Since(start))

	if len(outputs) > 0 {
		store.Merge(outputs)
	}
	u.logger.LogStep(u.identity, runID, step.Method, sortedKeys(outputs))
	return nil
}
