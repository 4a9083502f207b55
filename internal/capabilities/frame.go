package capabilities

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Frame is a small column-ordered table loaded from a query result.
type Frame struct {
	Columns []string
	Rows    [][]any
}

// ColumnStats summarises a numeric column.
type ColumnStats struct {
	Count float64 `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	P25   float64 `json:"25%"`
	P50   float64 `json:"50%"`
	P75   float64 `json:"75%"`
	Max   float64 `json:"max"`
}

// FrameFromRows drains rows into a Frame. []byte cells become strings.
func FrameFromRows(rows *sql.Rows) (*Frame, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	f := &Frame{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		f.Rows = append(f.Rows, vals)
	}
	return f, rows.Err()
}

func (f *Frame) Len() int {
	return len(f.Rows)
}

func (f *Frame) columnIndex(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the values of the named column in row order.
func (f *Frame) Column(name string) ([]any, bool) {
	idx := f.columnIndex(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]any, len(f.Rows))
	for i, row := range f.Rows {
		out[i] = row[idx]
	}
	return out, true
}

// Describe computes summary statistics for every column whose values are all
// numeric.
func (f *Frame) Describe() map[string]ColumnStats {
	out := make(map[string]ColumnStats)
	for _, col := range f.Columns {
		vals, _ := f.Column(col)
		nums := make([]float64, 0, len(vals))
		numeric := len(vals) > 0
		for _, v := range vals {
			n, ok := toFloat(v)
			if !ok {
				numeric = false
				break
			}
			nums = append(nums, n)
		}
		if numeric {
			out[col] = describe(nums)
		}
	}
	return out
}

// Summary renders Describe as text for a language model prompt.
func (f *Frame) Summary() string {
	stats := f.Describe()
	cols := make([]string, 0, len(stats))
	for c := range stats {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	var b strings.Builder
	fmt.Fprintf(&b, "rows=%d columns=%s\n", f.Len(), strings.Join(f.Columns, ","))
	for _, c := range cols {
		s := stats[c]
		fmt.Fprintf(&b, "%s: count=%g mean=%g std=%g min=%g 25%%=%g 50%%=%g 75%%=%g max=%g\n",
			c, s.Count, s.Mean, s.Std, s.Min, s.P25, s.P50, s.P75, s.Max)
	}
	return b.String()
}

func (f *Frame) String() string {
	return fmt.Sprintf("Frame(%d rows x %d columns)", f.Len(), len(f.Columns))
}

func describe(nums []float64) ColumnStats {
	sorted := append([]float64(nil), nums...)
	sort.Float64s(sorted)

	n := float64(len(sorted))
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / n

	var sq float64
	for _, v := range sorted {
		sq += (v - mean) * (v - mean)
	}
	std := math.NaN()
	if len(sorted) > 1 {
		std = math.Sqrt(sq / (n - 1))
	}

	return ColumnStats{
		Count: n,
		Mean:  mean,
		Std:   std,
		Min:   sorted[0],
		P25:   quantile(sorted, 0.25),
		P50:   quantile(sorted, 0.50),
		P75:   quantile(sorted, 0.75),
		Max:   sorted[len(sorted)-1],
	}
}

// quantile uses linear interpolation between closest ranks.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
