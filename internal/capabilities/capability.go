package capabilities

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/rahul/agentflow/internal/registry"
)

// ErrMethodNotFound is returned by Lookup for unregistered method names.
var ErrMethodNotFound = errors.New("method not found")

// Func is the invocable form of a capability.
type Func func(ctx context.Context, inputs map[string]any) (map[string]any, error)

// Capability is a leaf method that reads declared keys from its inputs and
// returns the keys it produces. A nil or empty result contributes nothing.
type Capability interface {
	Name() string
	Description() string
	Inputs() []string
	Outputs() []string
	Execute(ctx context.Context, inputs map[string]any) (map[string]any, error)
}

// Generator produces free text from a system prompt and a query. It returns
// "" when the backend fails.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, query string) string
}

// Registry manages the set of available capabilities.
type Registry struct {
	Capabilities map[string]Capability
}

func NewRegistry() *Registry {
	return &Registry{
		Capabilities: make(map[string]Capability),
	}
}

func (r *Registry) Register(c Capability) {
	r.Capabilities[c.Name()] = c
}

func (r *Registry) Get(name string) Capability {
	return r.Capabilities[name]
}

// Lookup returns the capability's Execute function. Unknown names are an
// error rather than a nil function.
func (r *Registry) Lookup(name string) (Func, error) {
	c, ok := r.Capabilities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, name)
	}
	return c.Execute, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.Capabilities))
	for n := range r.Capabilities {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Verify checks that every leaf method in the manifests of the given
// identities is registered and declares the same inputs and outputs.
func (r *Registry) Verify(reg *registry.Registry, identities ...string) error {
	var errs []error
	for _, id := range identities {
		methods, err := reg.Methods(id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for name, want := range methods {
			c, ok := r.Capabilities[name]
			if !ok {
				errs = append(errs, fmt.Errorf("%s: %w: %s", id, ErrMethodNotFound, name))
				continue
			}
			if !sameKeys(c.Inputs(), want.Inputs) || !sameKeys(c.Outputs(), want.Outputs) {
				errs = append(errs, fmt.Errorf("%s.%s: declared keys %v -> %v do not match manifest %v -> %v",
					id, name, c.Inputs(), c.Outputs(), want.Inputs, want.Outputs))
			}
		}
	}
	return errors.Join(errs...)
}

func sameKeys(a, b []string) bool {
	x := slices.Clone(a)
	y := slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(slices.Compact(x), slices.Compact(y))
}

func stringInput(inputs map[string]any, key string) string {
	v, ok := inputs[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func frameInput(inputs map[string]any, key string) (*Frame, error) {
	v, ok := inputs[key]
	if !ok {
		return nil, fmt.Errorf("missing input %q", key)
	}
	switch f := v.(type) {
	case *Frame:
		return f, nil
	case Frame:
		return &f, nil
	}
	return nil, fmt.Errorf("input %q is %T, not a dataframe", key, v)
}
