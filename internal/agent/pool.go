package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rahul/agentflow/internal/governance"
	"github.com/rahul/agentflow/internal/observability"
	"github.com/rahul/agentflow/internal/registry"
)

// ErrUnknownIdentity is returned when the registry has no manifest for an
// identity.
var ErrUnknownIdentity = errors.New("unknown component identity")

// StoreMode selects the lifetime of a unit's Data Store.
type StoreMode int

const (
	// StorePerCall gives every Execute call a fresh Data Store.
	StorePerCall StoreMode = iota
	// StorePerInstance keeps one Data Store per unit for the pool's
	// lifetime, so concurrent calls for one identity share state.
	StorePerInstance
)

// Pool builds at most one Unit per component identity and caches it.
type Pool struct {
	mu    sync.Mutex
	units map[string]*Unit

	registry     *registry.Registry
	source       PlanSource
	capabilities CapabilityLookup

	orchestrator string
	storeMode    StoreMode
	maxAttempts  int
	useExamples  bool
	governance   governance.PolicyEngine
	policy       Policy
	logger       *observability.Logger
	metrics      *observability.Metrics
}

// Option configures pool behaviour.
type Option func(*Pool)

// WithOrchestrator names the identity whose units resolve methods to other
// units rather than to leaf capabilities.
func WithOrchestrator(identity string) Option {
	return func(p *Pool) {
		p.orchestrator = identity
	}
}

func WithStoreMode(mode StoreMode) Option {
	return func(p *Pool) {
		p.storeMode = mode
	}
}

func WithMaxAttempts(n int) Option {
	return func(p *Pool) {
		p.maxAttempts = n
	}
}

// WithExamplePlans plans every unit with its registry example instead of a
// generated draft.
func WithExamplePlans(enabled bool) Option {
	return func(p *Pool) {
		p.useExamples = enabled
	}
}

func WithGovernance(engine governance.PolicyEngine) Option {
	return func(p *Pool) {
		p.governance = engine
	}
}

func WithPolicy(policy Policy) Option {
	return func(p *Pool) {
		p.policy = policy
	}
}

func WithLogger(logger *observability.Logger) Option {
	return func(p *Pool) {
		p.logger = logger
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pool) {
		p.metrics = m
	}
}

// NewPool creates a pool over the given registry, plan source and leaf
// capability set.
func NewPool(reg *registry.Registry, source PlanSource, caps CapabilityLookup, opts ...Option) *Pool {
	p := &Pool{
		units:        make(map[string]*Unit),
		registry:     reg,
		source:       source,
		capabilities: caps,
		orchestrator: "orchestrator",
		maxAttempts:  DefaultMaxAttempts,
		policy:       DefaultPolicy,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get returns the cached unit for identity, constructing it on first use.
func (p *Pool) Get(identity string) (*Unit, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if u, ok := p.units[identity]; ok {
		return u, nil
	}
	u, err := p.newUnit(identity)
	if err != nil {
		return nil, err
	}
	p.units[identity] = u
	return u, nil
}

// Execute runs a top-level request through the unit for identity.
func (p *Pool) Execute(ctx context.Context, identity string, inputs map[string]any) (map[string]any, error) {
	u, err := p.Get(identity)
	if err != nil {
		return nil, err
	}
	return u.Execute(ctx, inputs)
}

func (p *Pool) Orchestrator() string {
	return p.orchestrator
}

func (p *Pool) newUnit(identity string) (*Unit, error) {
	if !p.registry.Has(identity) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIdentity, identity)
	}
	systemPrompt, err := p.registry.SystemPrompt(identity)
	if err != nil {
		return nil, err
	}
	example, err := p.registry.ExamplePlan(identity)
	if err != nil {
		return nil, err
	}

	u := &Unit{
		identity:   identity,
		role:       observability.RoleLeaf,
		registry:   p.registry,
		governance: p.governance,
		policy:     p.policy,
		logger:     p.logger,
		metrics:    p.metrics,
		planner: &Planner{
			Identity:     identity,
			SystemPrompt: systemPrompt,
			Example:      example,
			Format:       p.registry.PlanFormat(),
			Source:       p.source,
			MaxAttempts:  p.maxAttempts,
			UseExample:   p.useExamples,
			Logger:       p.logger,
			Metrics:      p.metrics,
		},
	}
	if identity == p.orchestrator {
		u.role = observability.RoleOrchestrator
		u.resolver = &RecursiveResolver{Pool: p, Self: identity}
	} else {
		u.resolver = &LeafResolver{Capabilities: p.capabilities}
	}
	if p.storeMode == StorePerInstance {
		u.store = NewDataStore()
	}
	return u, nil
}
