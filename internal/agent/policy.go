package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rahul/agentflow/internal/governance"
)

// Class is the outcome of classifying a plan step before it runs.
type Class int

const (
	Resolved Class = iota
	UnknownMethod
	MissingInput
	Denied
)

func (c Class) String() string {
	switch c {
	case Resolved:
		return "resolved"
	case UnknownMethod:
		return "unknown_method"
	case MissingInput:
		return "missing_input"
	case Denied:
		return "denied"
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// Action is what the execution loop does with a classified step.
type Action int

const (
	Invoke Action = iota
	Skip
	Placeholder
	Abort
)

// Policy maps every step class to an action. Classes absent from the map
// fall back to DefaultPolicy.
type Policy map[Class]Action

// DefaultPolicy skips unknown and denied steps and invokes steps with missing
// inputs after binding a MissingInputKey placeholder.
var DefaultPolicy = Policy{
	Resolved:      Invoke,
	UnknownMethod: Skip,
	MissingInput:  Placeholder,
	Denied:        Skip,
}

func (p Policy) action(c Class) Action {
	if a, ok := p[c]; ok {
		return a
	}
	return DefaultPolicy[c]
}

// Resolution is the tagged result of classifying one step.
type Resolution struct {
	Class   Class
	Method  Method
	Inputs  map[string]any
	Missing []string
	Reason  string
}

// Classify decides how a step stands against governance, the manifest, the
// resolver and the current Data Store. It performs no invocation.
func (u *Unit) Classify(ctx context.Context, store *DataStore, step Step) Resolution {
	if u.governance != nil {
		res, err := u.governance.Evaluate(ctx, governance.Request{Identity: u.identity, Method: step.Method})
		if err != nil {
			return Resolution{Class: Denied, Reason: fmt.Sprintf("policy evaluation failed: %v", err)}
		}
		if res.Effect == governance.EffectDeny {
			return Resolution{Class: Denied, Reason: res.Reason}
		}
	}

	m, ok := u.registry.Method(u.identity, step.Method)
	if !ok {
		return Resolution{Class: UnknownMethod, Reason: fmt.Sprintf("method %s is not in the %s manifest", step.Method, u.identity)}
	}

	method, err := u.resolver.Resolve(step.Method)
	if err != nil {
		return Resolution{Class: UnknownMethod, Reason: err.Error()}
	}

	inputs := make(map[string]any, len(m.Inputs))
	var missing []string
	for _, key := range m.Inputs {
		if v, ok := store.Get(key); ok {
			inputs[key] = v
		} else {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return Resolution{
			Class:   MissingInput,
			Method:  method,
			Inputs:  inputs,
			Missing: missing,
			Reason:  "missing inputs: " + strings.Join(missing, ", "),
		}
	}
	return Resolution{Class: Resolved, Method: method, Inputs: inputs}
}
