package capabilities

import "database/sql"

// Options configures the default leaf capability set.
type Options struct {
	DefaultQuery string
	ChartsDir    string
	ReportsDir   string
	Rasterizer   Rasterizer
}

// NewDefaultRegistry registers the revenue reporting capabilities.
func NewDefaultRegistry(gen Generator, db *sql.DB, opts Options) *Registry {
	r := NewRegistry()
	r.Register(NewSQLQueryTool(gen, opts.DefaultQuery))
	r.Register(NewDataframeLoader(db))
	r.Register(NewInsightsTool(gen))
	r.Register(NewChartTool(opts.ChartsDir, opts.Rasterizer))
	r.Register(NewReportTool(opts.ReportsDir))
	return r
}
