package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rahul/agentflow/internal/capabilities"
	"github.com/rahul/agentflow/internal/registry"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// scriptedSource replays plan texts per executing unit. When a unit's script
// runs out the last entry is repeated.
type scriptedSource struct {
	mu       sync.Mutex
	scripts  map[string][]string
	generate map[string]int
	repairs  map[string]int
}

func newScriptedSource(scripts map[string][]string) *scriptedSource {
	return &scriptedSource{
		scripts:  scripts,
		generate: make(map[string]int),
		repairs:  make(map[string]int),
	}
}

func (s *scriptedSource) next(identity string) string {
	script := s.scripts[identity]
	n := s.generate[identity] + s.repairs[identity]
	if len(script) == 0 {
		return ""
	}
	if n >= len(script) {
		return script[len(script)-1]
	}
	return script[n]
}

func (s *scriptedSource) Generate(ctx context.Context, systemPrompt, query string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := UnitFrom(ctx)
	text := s.next(id)
	s.generate[id]++
	return text
}

func (s *scriptedSource) Repair(ctx context.Context, format, example, reason, invalid string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := UnitFrom(ctx)
	text := s.next(id)
	s.repairs[id]++
	return text
}

func (s *scriptedSource) counts(identity string) (generate, repairs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generate[identity], s.repairs[identity]
}

// capSet is a CapabilityLookup over plain functions.
type capSet map[string]capabilities.Func

func (c capSet) Lookup(name string) (capabilities.Func, error) {
	fn, ok := c[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", capabilities.ErrMethodNotFound, name)
	}
	return fn, nil
}

// recorder captures the inputs each capability was invoked with.
type recorder struct {
	mu    sync.Mutex
	calls []string
	seen  map[string]map[string]any
}

func newRecorder() *recorder {
	return &recorder{seen: make(map[string]map[string]any)}
}

func (r *recorder) fn(name string, outputs map[string]any) capabilities.Func {
	return func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, name)
		r.seen[name] = inputs
		return outputs, nil
	}
}

func plan(methods ...string) string {
	parts := make([]string, len(methods))
	for i, m := range methods {
		parts[i] = fmt.Sprintf(`{"method": %q}`, m)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func defaultRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.Default()
	require.NoError(t, err)
	return reg
}

// stubModel is an llms.Model returning a fixed reply or error.
type stubModel struct {
	reply   string
	err     error
	prompts []string
}

func (m *stubModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				m.prompts = append(m.prompts, text.Text)
			}
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}
