package agent

import (
	"context"
	"fmt"

	"github.com/rahul/agentflow/internal/observability"
)

// DefaultMaxAttempts bounds how many plan texts are parsed before giving up.
const DefaultMaxAttempts = 3

type planState int

const (
	stateDrafting planState = iota
	stateValidating
	stateRetrying
	stateValidated
	stateExhausted
)

func (s planState) String() string {
	switch s {
	case stateDrafting:
		return "drafting"
	case stateValidating:
		return "validating"
	case stateRetrying:
		return "retrying"
	case stateValidated:
		return "validated"
	case stateExhausted:
		return "exhausted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Planner produces a validated step list for one component identity,
// repairing malformed plan text through the PlanSource.
type Planner struct {
	Identity     string
	SystemPrompt string
	Example      string
	Format       string
	Source       PlanSource
	MaxAttempts  int
	// UseExample plans with the canonical example instead of asking the
	// source for a draft. Repairs still go through the source.
	UseExample bool

	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// Plan runs the draft/validate/repair loop. It never fails: when every
// attempt is malformed it returns an empty plan.
func (p *Planner) Plan(ctx context.Context, query string) []Step {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var (
		state    = stateDrafting
		text     string
		steps    []Step
		parseErr error
		attempt  int
	)

	for {
		switch state {
		case stateDrafting:
			if p.UseExample {
				text = p.Example
			} else {
				text = p.Source.Generate(ctx, p.SystemPrompt, fmt.Sprintf("Generate detailed action plan for: %s \n\n", query))
			}
			state = stateValidating

		case stateValidating:
			attempt++
			steps, parseErr = ParsePlan(text)
			switch {
			case parseErr == nil:
				state = stateValidated
			case attempt < maxAttempts:
				state = stateRetrying
			default:
				state = stateExhausted
			}

		case stateRetrying:
			reason := fmt.Sprintf("Error parsing JSON on attempt %d: %v", attempt, parseErr)
			p.Logger.LogPlanRepair(p.Identity, RunIDFrom(ctx), attempt, reason)
			p.Metrics.ObserveRepair(p.Identity)
			text = p.Source.Repair(ctx, p.Format, p.Example, reason, text)
			state = stateValidating

		case stateValidated:
			p.Logger.LogPlan(p.Identity, RunIDFrom(ctx), stepMethods(steps), attempt)
			p.Metrics.ObservePlan(p.Identity, stateValidated.String())
			return steps

		case stateExhausted:
			p.Logger.LogPlan(p.Identity, RunIDFrom(ctx), nil, attempt)
			p.Metrics.ObservePlan(p.Identity, stateExhausted.String())
			return []Step{}
		}
	}
}
