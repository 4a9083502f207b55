package main

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rahul/agentflow/internal/agent"
	"github.com/rahul/agentflow/internal/capabilities"
	"github.com/rahul/agentflow/internal/governance"
	"github.com/rahul/agentflow/internal/observability"
	"github.com/rahul/agentflow/internal/registry"
	"github.com/rahul/agentflow/pkg/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// app holds the wiring shared by every subcommand.
type app struct {
	cfg      *config.Config
	registry *registry.Registry
	logger   *observability.Logger
	promReg  *prometheus.Registry
	metrics  *observability.Metrics
	source   *agent.LLMPlanSource
	db       *sql.DB
	caps     *capabilities.Registry
	pool     *agent.Pool
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	reg, err := registry.Load(cfg.Registry.Path)
	if err != nil {
		return nil, err
	}
	if cfg.Registry.PromptsDir != "" {
		applied, err := reg.ApplyPromptDir(cfg.Registry.PromptsDir)
		if err != nil {
			return nil, err
		}
		log.Printf("Loaded prompt overrides for %s", strings.Join(applied, ", "))
	}
	if !reg.Has(cfg.Planner.Orchestrator) {
		return nil, fmt.Errorf("orchestrator %q has no manifest", cfg.Planner.Orchestrator)
	}

	model, err := newModel(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		registry: reg,
		logger:   observability.NewLogger(cfg.App.LogDir),
		promReg:  prometheus.NewRegistry(),
	}
	a.metrics = observability.NewMetrics(a.promReg)
	a.source = agent.NewLLMPlanSource(model, cfg.Planner.Timeout, a.logger)

	a.db, err = capabilities.OpenSource(cfg.Data.Database)
	if err != nil {
		return nil, err
	}

	opts := capabilities.Options{
		DefaultQuery: cfg.Data.DefaultQuery,
		ChartsDir:    cfg.Data.ChartsDir,
		ReportsDir:   cfg.Data.ReportsDir,
	}
	if cfg.Data.RenderPNG {
		opts.Rasterizer = &capabilities.ChromeRasterizer{}
	}
	a.caps = capabilities.NewDefaultRegistry(a.source, a.db, opts)

	var leaves []string
	for _, id := range reg.Components() {
		if id != cfg.Planner.Orchestrator {
			leaves = append(leaves, id)
		}
	}
	if err := a.caps.Verify(reg, leaves...); err != nil {
		log.Printf("Warning: capability set does not cover the registry: %v", err)
	}

	gov, err := newGovernance(cfg.Governance)
	if err != nil {
		return nil, err
	}

	storeMode := agent.StorePerCall
	if cfg.Planner.SharedStore {
		storeMode = agent.StorePerInstance
	}
	a.pool = agent.NewPool(reg, a.source, a.caps,
		agent.WithOrchestrator(cfg.Planner.Orchestrator),
		agent.WithStoreMode(storeMode),
		agent.WithMaxAttempts(cfg.Planner.MaxAttempts),
		agent.WithExamplePlans(cfg.Planner.UseExamplePlans),
		agent.WithGovernance(gov),
		agent.WithLogger(a.logger),
		agent.WithMetrics(a.metrics),
	)
	return a, nil
}

func (a *app) Close() {
	a.logger.Sync()
	if a.db != nil {
		a.db.Close()
	}
}

// newModel builds the LLM for the first enabled provider.
func newModel(cfg *config.Config) (llms.Model, error) {
	pName, pCfg := cfg.GetDefaultProvider()
	if pName == "" {
		return nil, fmt.Errorf("no enabled provider found in config")
	}

	kind := pCfg.Type
	if kind == "" {
		kind = pName
	}
	switch kind {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(pCfg.APIKey),
			openai.WithModel(pCfg.Model),
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
		}
		return openai.New(opts...)
	default:
		return nil, fmt.Errorf("provider %s (%s) is not supported", pName, kind)
	}
}

// newGovernance denies each configured method. Entries of the form
// "re:<pattern>" are matched against "identity.method".
func newGovernance(cfg config.GovernanceConfig) (governance.PolicyEngine, error) {
	gov := governance.NewDefaultPolicyEngine()
	for _, entry := range cfg.DeniedMethods {
		if pattern, ok := strings.CutPrefix(entry, "re:"); ok {
			if err := gov.DenyPattern(pattern); err != nil {
				return nil, fmt.Errorf("governance pattern %q: %w", pattern, err)
			}
			continue
		}
		gov.DenyMethod(entry)
	}
	return gov, nil
}
