package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rahul/agentflow/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPlanner(source PlanSource, metrics *observability.Metrics) *Planner {
	return &Planner{
		Identity:     "load_data",
		SystemPrompt: "system: ",
		Example:      plan("load_into_dataframe"),
		Format:       `[{"method": "<name>"}]`,
		Source:       source,
		Logger:       observability.NewNopLogger(),
		Metrics:      metrics,
	}
}

func TestPlannerFirstDraftValid(t *testing.T) {
	src := newScriptedSource(map[string][]string{"load_data": {plan("load_into_dataframe")}})
	p := newTestPlanner(src, nil)

	steps := p.Plan(withUnit(context.Background(), "load_data"), "revenue")
	assert.Equal(t, []string{"load_into_dataframe"}, stepMethods(steps))

	gen, rep := src.counts("load_data")
	assert.Equal(t, 1, gen)
	assert.Equal(t, 0, rep)
}

func TestPlannerRepairsOnce(t *testing.T) {
	src := newScriptedSource(map[string][]string{"load_data": {"{not json", plan("load_into_dataframe")}})
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	p := newTestPlanner(src, metrics)

	steps := p.Plan(withUnit(context.Background(), "load_data"), "revenue")
	assert.Equal(t, []string{"load_into_dataframe"}, stepMethods(steps))

	gen, rep := src.counts("load_data")
	assert.Equal(t, 1, gen)
	assert.Equal(t, 1, rep)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RepairCalls.WithLabelValues("load_data")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PlanOutcomes.WithLabelValues("load_data", "validated")))
}

func TestPlannerExhaustsAfterThreeAttempts(t *testing.T) {
	src := newScriptedSource(map[string][]string{"load_data": {"nope"}})
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	p := newTestPlanner(src, metrics)

	steps := p.Plan(withUnit(context.Background(), "load_data"), "revenue")
	require.NotNil(t, steps)
	assert.Empty(t, steps)

	gen, rep := src.counts("load_data")
	assert.Equal(t, 1, gen)
	assert.Equal(t, DefaultMaxAttempts-1, rep)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PlanOutcomes.WithLabelValues("load_data", "exhausted")))
}

func TestPlannerEmptySourceCountsAsMalformed(t *testing.T) {
	src := newScriptedSource(nil)
	p := newTestPlanner(src, nil)
	p.MaxAttempts = 2

	steps := p.Plan(withUnit(context.Background(), "load_data"), "revenue")
	assert.Empty(t, steps)
	_, rep := src.counts("load_data")
	assert.Equal(t, 1, rep)
}

func TestPlannerUseExampleSkipsDraft(t *testing.T) {
	src := newScriptedSource(nil)
	p := newTestPlanner(src, nil)
	p.UseExample = true

	steps := p.Plan(withUnit(context.Background(), "load_data"), "revenue")
	assert.Equal(t, []string{"load_into_dataframe"}, stepMethods(steps))
	gen, rep := src.counts("load_data")
	assert.Zero(t, gen)
	assert.Zero(t, rep)
}

type capturingSource struct {
	queries []string
	reasons []string
	replies []string
}

func (c *capturingSource) Generate(ctx context.Context, systemPrompt, query string) string {
	c.queries = append(c.queries, systemPrompt+query)
	return c.pop()
}

func (c *capturingSource) Repair(ctx context.Context, format, example, reason, invalid string) string {
	c.reasons = append(c.reasons, reason)
	return c.pop()
}

func (c *capturingSource) pop() string {
	if len(c.replies) == 0 {
		return ""
	}
	r := c.replies[0]
	c.replies = c.replies[1:]
	return r
}

func TestPlannerPromptFraming(t *testing.T) {
	src := &capturingSource{replies: []string{"oops", plan("load_into_dataframe")}}
	p := newTestPlanner(src, nil)

	p.Plan(context.Background(), "revenue between Oct and Dec")
	require.Len(t, src.queries, 1)
	assert.Equal(t, "system: Generate detailed action plan for: revenue between Oct and Dec \n\n", src.queries[0])
	require.Len(t, src.reasons, 1)
	assert.True(t, strings.HasPrefix(src.reasons[0], "Error parsing JSON on attempt 1:"))
}

func TestLLMPlanSource(t *testing.T) {
	model := &stubModel{reply: plan("generate_sql_query")}
	src := NewLLMPlanSource(model, 0, observability.NewNopLogger())

	out := src.Generate(context.Background(), "sys ", "query")
	assert.Equal(t, plan("generate_sql_query"), out)
	require.Len(t, model.prompts, 1)
	assert.Equal(t, "sys query", model.prompts[0])

	src.Repair(context.Background(), "FORMAT", "EXAMPLE", "REASON", "BROKEN")
	require.Len(t, model.prompts, 2)
	assert.Contains(t, model.prompts[1], "You've generated an incorrect response.")
	assert.Contains(t, model.prompts[1], "The following response was not correct: BROKEN with this error: REASON")
	assert.Contains(t, model.prompts[1], "Here is a correct example: EXAMPLE")
}

func TestLLMPlanSourceReturnsEmptyOnError(t *testing.T) {
	model := &stubModel{err: errors.New("rate limited")}
	src := NewLLMPlanSource(model, 0, nil)

	assert.Equal(t, "", src.Generate(context.Background(), "sys", "q"))
	assert.Equal(t, "", src.Repair(context.Background(), "f", "e", "r", "i"))
}
