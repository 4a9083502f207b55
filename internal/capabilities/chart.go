package capabilities

import (
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	chartWidth  = 1000
	chartHeight = 600
	chartMargin = 80
)

// Rasterizer converts a rendered SVG chart into a PNG file.
type Rasterizer interface {
	Rasterize(ctx context.Context, svgPath, pngPath string) error
}

// ChartTool draws a bar chart of revenue by month.
type ChartTool struct {
	OutputDir  string
	ChartType  string
	XColumn    string
	YColumn    string
	Rasterizer Rasterizer
}

func NewChartTool(outputDir string, rasterizer Rasterizer) *ChartTool {
	return &ChartTool{
		OutputDir:  outputDir,
		ChartType:  "bar",
		XColumn:    "month",
		YColumn:    "revenue",
		Rasterizer: rasterizer,
	}
}

func (t *ChartTool) Name() string {
	return "create_chart"
}

func (t *ChartTool) Description() string {
	return "Render a bar chart of the dataframe's revenue per month and return the file path."
}

func (t *ChartTool) Inputs() []string  { return []string{"dataframe"} }
func (t *ChartTool) Outputs() []string { return []string{"chart"} }

func (t *ChartTool) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	frame, err := frameInput(inputs, "dataframe")
	if err != nil {
		return nil, err
	}
	labels, ok := frame.Column(t.XColumn)
	if !ok {
		return nil, fmt.Errorf("dataframe has no %q column", t.XColumn)
	}
	values, ok := frame.Column(t.YColumn)
	if !ok {
		return nil, fmt.Errorf("dataframe has no %q column", t.YColumn)
	}

	if err := os.MkdirAll(t.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create chart directory: %w", err)
	}

	svgPath := filepath.Join(t.OutputDir, t.ChartType+"_chart.svg")
	if err := os.WriteFile(svgPath, []byte(BarChartSVG(labels, values)), 0644); err != nil {
		return nil, fmt.Errorf("failed to write chart: %w", err)
	}
	if t.Rasterizer == nil {
		return map[string]any{"chart": svgPath}, nil
	}

	pngPath := filepath.Join(t.OutputDir, t.ChartType+"_chart.png")
	if err := t.Rasterizer.Rasterize(ctx, svgPath, pngPath); err != nil {
		return nil, fmt.Errorf("failed to rasterize chart: %w", err)
	}
	return map[string]any{"chart": pngPath}, nil
}

// BarChartSVG renders labelled bars scaled to the largest value. Non-numeric
// values are drawn as zero.
func BarChartSVG(labels, values []any) string {
	maxVal := 0.0
	nums := make([]float64, len(values))
	for i, v := range values {
		n, _ := toFloat(v)
		if n < 0 {
			n = 0
		}
		nums[i] = n
		if n > maxVal {
			maxVal = n
		}
	}

	plotW := float64(chartWidth - 2*chartMargin)
	plotH := float64(chartHeight - 2*chartMargin)
	slot := plotW
	if len(nums) > 0 {
		slot = plotW / float64(len(nums))
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		chartWidth, chartHeight, chartWidth, chartHeight)
	fmt.Fprintf(&b, `<rect width="100%%" height="100%%" fill="white"/>`+"\n")
	fmt.Fprintf(&b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="black"/>`+"\n",
		chartMargin, chartHeight-chartMargin, chartWidth-chartMargin, chartHeight-chartMargin)

	for i, n := range nums {
		h := 0.0
		if maxVal > 0 {
			h = n / maxVal * plotH
		}
		x := float64(chartMargin) + float64(i)*slot + slot*0.1
		y := float64(chartHeight-chartMargin) - h
		label := ""
		if i < len(labels) {
			label = html.EscapeString(fmt.Sprint(labels[i]))
		}
		fmt.Fprintf(&b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="skyblue"/>`+"\n", x, y, slot*0.8, h)
		fmt.Fprintf(&b, `<text x="%.1f" y="%d" font-size="12" text-anchor="end" transform="rotate(-45 %.1f %d)">%s</text>`+"\n",
			x+slot*0.4, chartHeight-chartMargin+16, x+slot*0.4, chartHeight-chartMargin+16, label)
	}
	b.WriteString("</svg>\n")
	return b.String()
}

// ChromeRasterizer screenshots the SVG in a headless Chrome instance.
type ChromeRasterizer struct {
	Timeout time.Duration
}

func (r *ChromeRasterizer) Rasterize(ctx context.Context, svgPath, pngPath string) error {
	abs, err := filepath.Abs(svgPath)
	if err != nil {
		return err
	}

	timeout := r.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	browserCtx, browserCancel := chromedp.NewContext(ctx)
	defer browserCancel()

	var buf []byte
	err = chromedp.Run(browserCtx,
		chromedp.EmulateViewport(chartWidth, chartHeight),
		chromedp.Navigate("file://"+abs),
		chromedp.FullScreenshot(&buf, 100),
	)
	if err != nil {
		return err
	}
	return os.WriteFile(pngPath, buf, 0644)
}
