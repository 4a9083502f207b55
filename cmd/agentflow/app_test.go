package main

import (
	"context"
	"testing"

	"github.com/rahul/agentflow/internal/governance"
	"github.com/rahul/agentflow/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGovernance(t *testing.T) {
	gov, err := newGovernance(config.GovernanceConfig{DeniedMethods: []string{"create_chart", `re:^load_data\..*`}})
	require.NoError(t, err)

	cases := map[governance.Request]governance.Effect{
		{Identity: "analyze_data", Method: "create_chart"}:        governance.EffectDeny,
		{Identity: "load_data", Method: "load_into_dataframe"}:    governance.EffectDeny,
		{Identity: "query_database", Method: "generate_sql_query"}: governance.EffectAllow,
	}
	for req, want := range cases {
		res, err := gov.Evaluate(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, want, res.Effect, "%s.%s", req.Identity, req.Method)
	}

	_, err = newGovernance(config.GovernanceConfig{DeniedMethods: []string{"re:("}})
	assert.Error(t, err)
}

func TestNewModelRequiresProvider(t *testing.T) {
	_, err := newModel(&config.Config{})
	assert.Error(t, err)

	_, err = newModel(&config.Config{Providers: map[string]config.ProviderConfig{
		"anthropic": {Type: "anthropic", Enabled: true},
	}})
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
