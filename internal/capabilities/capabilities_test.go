package capabilities

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rahul/agentflow/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGen struct {
	reply   string
	prompts []string
}

func (g *stubGen) Generate(ctx context.Context, systemPrompt, query string) string {
	g.prompts = append(g.prompts, systemPrompt+query)
	return g.reply
}

func openRevenueDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenSource(filepath.Join(t.TempDir(), "revenue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE monthly_revenue (month TEXT, revenue REAL)`)
	require.NoError(t, err)
	for i, m := range []string{"Jan", "Feb", "Mar", "Apr"} {
		_, err = db.Exec(`INSERT INTO monthly_revenue (month, revenue) VALUES (?, ?)`, m, float64((i+1)*100))
		require.NoError(t, err)
	}
	return db
}

func TestExtractSQL(t *testing.T) {
	cases := map[string]string{
		"SELECT * FROM monthly_revenue":                         "SELECT * FROM monthly_revenue",
		"```sql\nSELECT month FROM monthly_revenue;\n```":       "SELECT month FROM monthly_revenue",
		"with t as (select 1) select * from t; drop table x":    "with t as (select 1) select * from t",
		"DROP TABLE monthly_revenue":                            "",
		"Here is your query":                                    "",
		"SELECT * FROM monthly_revenue WHERE 1; DELETE FROM x;": "SELECT * FROM monthly_revenue WHERE 1",
	}
	for in, want := range cases {
		assert.Equal(t, want, ExtractSQL(in), in)
	}
}

func TestSQLQueryToolFallsBackToDefault(t *testing.T) {
	gen := &stubGen{reply: ""}
	tool := NewSQLQueryTool(gen, "SELECT * FROM monthly_revenue")

	out, err := tool.Execute(context.Background(), map[string]any{"prompt": "revenue Jan-Dec"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM monthly_revenue", out["sql_query"])
	require.Len(t, gen.prompts, 1)
	assert.True(t, strings.HasSuffix(gen.prompts[0], "revenue Jan-Dec"))
}

func TestSQLQueryToolUsesGeneratedQuery(t *testing.T) {
	gen := &stubGen{reply: "SELECT month, revenue FROM monthly_revenue WHERE revenue > 150"}
	tool := NewSQLQueryTool(gen, "SELECT * FROM monthly_revenue")

	out, err := tool.Execute(context.Background(), map[string]any{"prompt": "big months"})
	require.NoError(t, err)
	assert.Equal(t, gen.reply, out["sql_query"])
}

func TestDataframeLoader(t *testing.T) {
	db := openRevenueDB(t)
	loader := NewDataframeLoader(db)

	out, err := loader.Execute(context.Background(), map[string]any{"sql_query": "SELECT month, revenue FROM monthly_revenue ORDER BY revenue"})
	require.NoError(t, err)
	frame, ok := out["dataframe"].(*Frame)
	require.True(t, ok)
	assert.Equal(t, []string{"month", "revenue"}, frame.Columns)
	assert.Equal(t, 4, frame.Len())

	months, _ := frame.Column("month")
	assert.Equal(t, []any{"Jan", "Feb", "Mar", "Apr"}, months)

	_, err = loader.Execute(context.Background(), map[string]any{})
	require.Error(t, err)
	_, err = loader.Execute(context.Background(), map[string]any{"sql_query": "SELECT * FROM missing_table"})
	require.Error(t, err)
}

func TestFrameDescribe(t *testing.T) {
	f := &Frame{
		Columns: []string{"month", "revenue"},
		Rows:    [][]any{{"Jan", 100.0}, {"Feb", int64(200)}, {"Mar", 300.0}, {"Apr", 400.0}},
	}
	stats := f.Describe()
	require.Contains(t, stats, "revenue")
	assert.NotContains(t, stats, "month")

	rev := stats["revenue"]
	assert.Equal(t, 4.0, rev.Count)
	assert.Equal(t, 250.0, rev.Mean)
	assert.Equal(t, 100.0, rev.Min)
	assert.Equal(t, 400.0, rev.Max)
	assert.Equal(t, 175.0, rev.P25)
	assert.Equal(t, 250.0, rev.P50)
	assert.InDelta(t, 129.099, rev.Std, 0.001)
	assert.Contains(t, f.Summary(), "revenue: count=4")
}

func TestInsightsTool(t *testing.T) {
	gen := &stubGen{reply: "Revenue grows every month."}
	tool := NewInsightsTool(gen)
	frame := &Frame{Columns: []string{"month", "revenue"}, Rows: [][]any{{"Jan", 1.0}}}

	out, err := tool.Execute(context.Background(), map[string]any{"dataframe": frame, "prompt": "trend?"})
	require.NoError(t, err)
	assert.Equal(t, "Revenue grows every month.", out["insights"])
	assert.Contains(t, gen.prompts[0], "Generate insights for this dataframe: ")
	assert.Contains(t, gen.prompts[0], "trend?")

	_, err = tool.Execute(context.Background(), map[string]any{"dataframe": "nope"})
	require.Error(t, err)
}

type recordingRasterizer struct {
	calls int
	err   error
}

func (r *recordingRasterizer) Rasterize(ctx context.Context, svgPath, pngPath string) error {
	r.calls++
	if r.err != nil {
		return r.err
	}
	return os.WriteFile(pngPath, []byte("png"), 0644)
}

func TestChartTool(t *testing.T) {
	dir := t.TempDir()
	frame := &Frame{Columns: []string{"month", "revenue"}, Rows: [][]any{{"Jan", 1.0}, {"Feb", 2.0}}}

	out, err := NewChartTool(dir, nil).Execute(context.Background(), map[string]any{"dataframe": frame})
	require.NoError(t, err)
	path := out["chart"].(string)
	assert.Equal(t, filepath.Join(dir, "bar_chart.svg"), path)
	svg, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(svg), `fill="skyblue"`))
	assert.Contains(t, string(svg), ">Feb</text>")

	r := &recordingRasterizer{}
	out, err = NewChartTool(dir, r).Execute(context.Background(), map[string]any{"dataframe": frame})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "bar_chart.png"), out["chart"])
	assert.Equal(t, 1, r.calls)

	_, err = NewChartTool(dir, &recordingRasterizer{err: errors.New("no chrome")}).
		Execute(context.Background(), map[string]any{"dataframe": frame})
	require.Error(t, err)

	_, err = NewChartTool(dir, nil).Execute(context.Background(), map[string]any{
		"dataframe": &Frame{Columns: []string{"x"}},
	})
	require.Error(t, err)
}

func TestReportTool(t *testing.T) {
	dir := t.TempDir()
	out, err := NewReportTool(dir).Execute(context.Background(), map[string]any{
		"insights": "<b>Q4</b> beat Q3 & Q2",
		"chart":    "charts/bar_chart.svg",
		"prompt":   "revenue Jan-Dec",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(out["report"].(string))
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "Data Report\n"+strings.Repeat("=", 50)))
	assert.Contains(t, text, "Insights: Q4 beat Q3 & Q2\n")
	assert.Contains(t, text, "Chart saved at: charts/bar_chart.svg\n")
	assert.Contains(t, text, "Request: revenue Jan-Dec")
}

func TestRegistryLookupAndVerify(t *testing.T) {
	reg, err := registry.Default()
	require.NoError(t, err)

	caps := NewDefaultRegistry(&stubGen{}, nil, Options{DefaultQuery: "SELECT 1"})
	assert.Equal(t, []string{"create_chart", "generate_insights", "generate_report", "generate_sql_query", "load_into_dataframe"}, caps.Names())
	require.NoError(t, caps.Verify(reg, "query_database", "load_data", "analyze_data", "generate_report"))

	_, err = caps.Lookup("nope")
	assert.True(t, errors.Is(err, ErrMethodNotFound))

	err = caps.Verify(reg, "orchestrator")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMethodNotFound))
}
