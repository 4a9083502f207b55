package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/rahul/agentflow/internal/capabilities"
)

// ErrUnresolved marks a method name a resolver cannot map to a callable.
var ErrUnresolved = errors.New("method not resolved")

// Method is anything a plan step can invoke.
type Method func(ctx context.Context, inputs map[string]any) (map[string]any, error)

// Resolver maps a step's method name to a callable.
type Resolver interface {
	Resolve(name string) (Method, error)
}

// CapabilityLookup is the leaf capability set a LeafResolver draws from.
type CapabilityLookup interface {
	Lookup(name string) (capabilities.Func, error)
}

// LeafResolver resolves method names to leaf capabilities.
type LeafResolver struct {
	Capabilities CapabilityLookup
}

func (r *LeafResolver) Resolve(name string) (Method, error) {
	fn, err := r.Capabilities.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnresolved, err)
	}
	return Method(fn), nil
}

// RecursiveResolver treats a method name as a nested component identity and
// resolves it to that unit's Execute. A unit never resolves to itself.
type RecursiveResolver struct {
	Pool *Pool
	Self string
}

func (r *RecursiveResolver) Resolve(name string) (Method, error) {
	if name == r.Self {
		return nil, fmt.Errorf("%w: %s cannot invoke itself", ErrUnresolved, name)
	}
	unit, err := r.Pool.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnresolved, err)
	}
	return unit.Execute, nil
}
