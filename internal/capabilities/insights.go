package capabilities

import (
	"context"
)

const insightsSystemPrompt = "Generate insights for this dataframe: "

type InsightsTool struct {
	Gen Generator
}

func NewInsightsTool(gen Generator) *InsightsTool {
	return &InsightsTool{Gen: gen}
}

func (t *InsightsTool) Name() string {
	return "generate_insights"
}

func (t *InsightsTool) Description() string {
	return "Describe the dataframe and ask the model for insights relevant to the prompt."
}

func (t *InsightsTool) Inputs() []string  { return []string{"dataframe", "prompt"} }
func (t *InsightsTool) Outputs() []string { return []string{"insights"} }

func (t *InsightsTool) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	frame, err := frameInput(inputs, "dataframe")
	if err != nil {
		return nil, err
	}
	insights := t.Gen.Generate(ctx, insightsSystemPrompt, frame.Summary()+stringInput(inputs, "prompt"))
	return map[string]any{"insights": insights}, nil
}
