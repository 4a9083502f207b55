package registry

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed components.yaml
var defaultComponents []byte

// ErrUnknownComponent is returned for identities with no manifest.
var ErrUnknownComponent = errors.New("unknown component")

// MethodSpec is the declared contract of a single method: the Data Store keys
// it reads and the keys it produces.
type MethodSpec struct {
	Inputs  []string `yaml:"inputs" json:"inputs"`
	Outputs []string `yaml:"outputs" json:"outputs"`
}

// Component bundles everything the planner needs for one identity.
type Component struct {
	Methods      map[string]MethodSpec `yaml:"methods"`
	ExamplePlan  string                `yaml:"example_plan"`
	SystemPrompt string                `yaml:"system_prompt"`
}

type document struct {
	PlanFormat string               `yaml:"plan_format"`
	Components map[string]Component `yaml:"components"`
}

// Registry is a read-only lookup of manifests, prompts and example plans keyed
// by component identity.
type Registry struct {
	format     string
	components map[string]Component
	prompts    map[string]string
}

// Default returns the registry built from the embedded manifests.
func Default() (*Registry, error) {
	return Parse(defaultComponents)
}

// Load reads a registry from a YAML file. An empty path yields the default.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML registry document and renders each system prompt.
func Parse(data []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}
	if len(doc.Components) == 0 {
		return nil, fmt.Errorf("registry defines no components")
	}

	r := &Registry{
		format:     doc.PlanFormat,
		components: doc.Components,
		prompts:    make(map[string]string, len(doc.Components)),
	}
	for id, c := range doc.Components {
		prompt, err := renderPrompt(id, c, doc.PlanFormat)
		if err != nil {
			return nil, err
		}
		r.prompts[id] = prompt
	}
	return r, nil
}

func renderPrompt(id string, c Component, format string) (string, error) {
	tmpl, err := template.New(id).Parse(c.SystemPrompt)
	if err != nil {
		return "", fmt.Errorf("component %s: bad system prompt: %w", id, err)
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, struct {
		Format  string
		Methods string
		Example string
	}{
		Format:  format,
		Methods: DescribeMethods(c.Methods),
		Example: c.ExamplePlan,
	})
	if err != nil {
		return "", fmt.Errorf("component %s: render system prompt: %w", id, err)
	}
	return buf.String(), nil
}

// DescribeMethods renders a manifest as one line per method, sorted by name.
func DescribeMethods(methods map[string]MethodSpec) string {
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)

	var lines []string
	for _, name := range names {
		m := methods[name]
		lines = append(lines, fmt.Sprintf("- %s: inputs=[%s] outputs=[%s]",
			name, strings.Join(m.Inputs, ", "), strings.Join(m.Outputs, ", ")))
	}
	return strings.Join(lines, "\n")
}

// PlanFormat returns the expected plan format template.
func (r *Registry) PlanFormat() string {
	return r.format
}

func (r *Registry) SystemPrompt(identity string) (string, error) {
	p, ok := r.prompts[identity]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownComponent, identity)
	}
	return p, nil
}

func (r *Registry) Methods(identity string) (map[string]MethodSpec, error) {
	c, ok := r.components[identity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, identity)
	}
	return c.Methods, nil
}

// ExamplePlan returns the canonical example plan text for an identity.
func (r *Registry) ExamplePlan(identity string) (string, error) {
	c, ok := r.components[identity]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownComponent, identity)
	}
	return c.ExamplePlan, nil
}

// Method looks up a single manifest entry.
func (r *Registry) Method(identity, method string) (MethodSpec, bool) {
	c, ok := r.components[identity]
	if !ok {
		return MethodSpec{}, false
	}
	m, ok := c.Methods[method]
	return m, ok
}

func (r *Registry) Has(identity string) bool {
	_, ok := r.components[identity]
	return ok
}

// Components lists the registered identities in sorted order.
func (r *Registry) Components() []string {
	ids := make([]string, 0, len(r.components))
	for id := range r.components {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
