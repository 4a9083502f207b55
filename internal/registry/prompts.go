package registry

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PreambleFile is prepended to every overridden system prompt when present.
const PreambleFile = "preamble.md"

// ApplyPromptDir replaces system prompts with <identity>.md templates found in
// dir. Templates see the same {{.Format}}, {{.Methods}} and {{.Example}}
// fields as the manifest prompts. Files for unknown identities are ignored.
// It returns the identities that were overridden, sorted.
func (r *Registry) ApplyPromptDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts directory: %w", err)
	}

	var preamble string
	if data, err := os.ReadFile(filepath.Join(dir, PreambleFile)); err == nil {
		preamble = strings.TrimSpace(string(data)) + "\n\n"
	}

	var applied []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".md") || name == PreambleFile {
			continue
		}
		id := strings.TrimSuffix(name, ".md")
		c, ok := r.components[id]
		if !ok {
			log.Printf("Warning: prompt file %s matches no component", name)
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt file %s: %w", name, err)
		}
		c.SystemPrompt = preamble + string(data)
		prompt, err := renderPrompt(id, c, r.format)
		if err != nil {
			return nil, err
		}
		r.components[id] = c
		r.prompts[id] = prompt
		applied = append(applied, id)
	}
	sort.Strings(applied)
	return applied, nil
}
