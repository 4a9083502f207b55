package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Step is one entry of a plan. Inputs are not carried on the step; they are
// bound from the Data Store when the step runs.
type Step struct {
	Method string `json:"method"`
}

const planSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["method"],
    "properties": {
      "method": {"type": "string", "minLength": 1}
    }
  }
}`

var (
	compileOnce sync.Once
	planSchema  *jsonschema.Schema
	compileErr  error
)

func getPlanSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(planSchemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("unmarshaling plan schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("plan.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("adding plan schema resource: %w", err)
			return
		}
		planSchema, compileErr = c.Compile("plan.schema.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compiling plan schema: %w", compileErr)
		}
	})
	return planSchema, compileErr
}

// ParsePlan decodes raw plan text into an ordered step list. The text must be
// a JSON array of objects carrying a non-empty "method" string; a surrounding
// markdown code fence is tolerated. Unknown fields are ignored.
func ParsePlan(text string) ([]Step, error) {
	body := stripCodeFence(text)
	if body == "" {
		return nil, fmt.Errorf("plan text is empty")
	}

	schema, err := getPlanSchema()
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("plan is not valid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("plan does not match format: %w", err)
	}

	var steps []Step
	if err := json.Unmarshal([]byte(body), &steps); err != nil {
		return nil, fmt.Errorf("plan is not valid JSON: %w", err)
	}
	if steps == nil {
		steps = []Step{}
	}
	return steps, nil
}

func stripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func stepMethods(steps []Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Method
	}
	return out
}
