package capabilities

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/glebarez/go-sqlite"
)

const sqlSystemPrompt = "There is a sqlite database with monthly_revenue table with revenue and month columns. Return only a single read-only SQL query, no explanation. Make a SQL Query from this prompt: "

var (
	sqlFence     = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")
	sqlReadOnly  = regexp.MustCompile(`(?i)^\s*(select|with)\b`)
	sqlMutations = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|alter|create|replace|attach|pragma)\b`)
)

// SQLQueryTool turns the user prompt into a SQL query for the revenue table.
type SQLQueryTool struct {
	Gen          Generator
	DefaultQuery string
}

func NewSQLQueryTool(gen Generator, defaultQuery string) *SQLQueryTool {
	return &SQLQueryTool{Gen: gen, DefaultQuery: defaultQuery}
}

func (t *SQLQueryTool) Name() string {
	return "generate_sql_query"
}

func (t *SQLQueryTool) Description() string {
	return "Generate a read-only SQL query against monthly_revenue(month, revenue) for the prompt."
}

func (t *SQLQueryTool) Inputs() []string  { return []string{"prompt"} }
func (t *SQLQueryTool) Outputs() []string { return []string{"sql_query"} }

func (t *SQLQueryTool) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	query := ""
	if t.Gen != nil {
		query = ExtractSQL(t.Gen.Generate(ctx, sqlSystemPrompt, stringInput(inputs, "prompt")))
	}
	if query == "" {
		query = t.DefaultQuery
	}
	return map[string]any{"sql_query": query}, nil
}

// ExtractSQL pulls a single read-only statement out of model output. It
// returns "" when the text holds nothing safe to run.
func ExtractSQL(text string) string {
	s := strings.TrimSpace(text)
	if m := sqlFence.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	if i := strings.Index(s, ";"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if !sqlReadOnly.MatchString(s) || sqlMutations.MatchString(s) {
		return ""
	}
	return s
}

// DataframeLoader executes the declared SQL against the configured source.
type DataframeLoader struct {
	DB *sql.DB
}

// OpenSource opens the sqlite database the loader reads from.
func OpenSource(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data source: %w", err)
	}
	return db, nil
}

func NewDataframeLoader(db *sql.DB) *DataframeLoader {
	return &DataframeLoader{DB: db}
}

func (l *DataframeLoader) Name() string {
	return "load_into_dataframe"
}

func (l *DataframeLoader) Description() string {
	return "Execute sql_query against the revenue database and load the result as a dataframe."
}

func (l *DataframeLoader) Inputs() []string  { return []string{"sql_query"} }
func (l *DataframeLoader) Outputs() []string { return []string{"dataframe"} }

func (l *DataframeLoader) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	query := stringInput(inputs, "sql_query")
	if query == "" {
		return nil, fmt.Errorf("missing input %q", "sql_query")
	}

	rows, err := l.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	frame, err := FrameFromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return map[string]any{"dataframe": frame}, nil
}
