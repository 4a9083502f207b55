package capabilities

import (
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ReportTool writes the final text report combining insights and chart.
type ReportTool struct {
	OutputDir string
	policy    *bluemonday.Policy
}

func NewReportTool(outputDir string) *ReportTool {
	return &ReportTool{
		OutputDir: outputDir,
		policy:    bluemonday.StrictPolicy(),
	}
}

func (t *ReportTool) Name() string {
	return "generate_report"
}

func (t *ReportTool) Description() string {
	return "Write a text report with the insights and the chart location."
}

func (t *ReportTool) Inputs() []string  { return []string{"insights", "chart", "prompt"} }
func (t *ReportTool) Outputs() []string { return []string{"report"} }

func (t *ReportTool) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	if err := os.MkdirAll(t.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	// Model output may carry markup; the report is plain text.
	insights := html.UnescapeString(t.policy.Sanitize(stringInput(inputs, "insights")))

	var b strings.Builder
	b.WriteString("Data Report\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	if prompt := stringInput(inputs, "prompt"); prompt != "" {
		fmt.Fprintf(&b, "Request: %s\n\n", prompt)
	}
	fmt.Fprintf(&b, "Insights: %s\n\n", insights)
	fmt.Fprintf(&b, "Chart saved at: %s\n", stringInput(inputs, "chart"))

	path := filepath.Join(t.OutputDir, "data_report.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}
	return map[string]any{"report": path}, nil
}
