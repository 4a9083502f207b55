package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/rahul/agentflow/internal/observability"
	"github.com/tmc/langchaingo/llms"
)

// PlanSource obtains raw plan text from a generative backend. Implementations
// never return errors: any backend failure yields "".
type PlanSource interface {
	Generate(ctx context.Context, systemPrompt, query string) string
	Repair(ctx context.Context, format, example, reason, invalid string) string
}

const repairSystemPrompt = "You've generated an incorrect response. I will include info about the incorrect response and I want you to fix it and return it."

// LLMPlanSource is a PlanSource over a langchaingo model. Every request runs
// under its own timeout.
type LLMPlanSource struct {
	Model   llms.Model
	Timeout time.Duration
	Logger  *observability.Logger
}

func NewLLMPlanSource(model llms.Model, timeout time.Duration, logger *observability.Logger) *LLMPlanSource {
	return &LLMPlanSource{
		Model:   model,
		Timeout: timeout,
		Logger:  logger,
	}
}

func (s *LLMPlanSource) Generate(ctx context.Context, systemPrompt, query string) string {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	prompt := systemPrompt + query
	text, err := llms.GenerateFromSinglePrompt(ctx, s.Model, prompt, llms.WithTemperature(0))
	s.Logger.LogLLM(UnitFrom(ctx), RunIDFrom(ctx), prompt, text, err)
	if err != nil {
		return ""
	}
	return text
}

func (s *LLMPlanSource) Repair(ctx context.Context, format, example, reason, invalid string) string {
	query := fmt.Sprintf("The following response was not correct: %s with this error: %s. I want you to format it in this format: %s. Here is a correct example: %s",
		invalid, reason, format, example)
	return s.Generate(ctx, repairSystemPrompt, query)
}
