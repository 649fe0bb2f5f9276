// Package models defines the shared data model for the DataPeek service:
// the in-memory table produced by cleaning an upload, the statistical
// profile fed to the summarizer, and the visualization suggestions that
// come back from it.
package models

import (
	"time"
)

// ── Table ────────────────────────────────────────────────────

// Kind is the inferred type of a column.
type Kind string

const (
	KindNumeric  Kind = "numeric"
	KindText     Kind = "text"
	KindDatetime Kind = "datetime"
	KindCategory Kind = "category"
)

// Categorical reports whether columns of this kind feed the categorical
// summary (text and category, mirroring pandas object/category dtypes).
func (k Kind) Categorical() bool {
	return k == KindText || k == KindCategory
}

// Value is a single JSON-safe cell: nil, a finite float64, or a string.
// NaN and ±Inf never appear in a cleaned table; normalization collapses
// them to nil.
type Value any

// Column is a named, typed sequence of cells.
type Column struct {
	Name   string  `json:"name"`
	Kind   Kind    `json:"kind"`
	Values []Value `json:"values"`
}

// Table is an ordered collection of equally long columns with unique names.
type Table struct {
	Columns []Column `json:"columns"`
}

// Rows returns the row count. All columns are the same length; an empty
// table has zero rows.
func (t *Table) Rows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Row materializes row i as a name→value map with table column order lost;
// callers that need order should walk Columns directly.
func (t *Table) Row(i int) map[string]Value {
	row := make(map[string]Value, len(t.Columns))
	for _, c := range t.Columns {
		if i < len(c.Values) {
			row[c.Name] = c.Values[i]
		}
	}
	return row
}

// ── Profile ──────────────────────────────────────────────────

// ColumnProfile describes one column's dtype and null statistics.
type ColumnProfile struct {
	Name           string  `json:"name"`
	Dtype          string  `json:"dtype"`
	NullCount      int     `json:"null_count"`
	NullPercentage float64 `json:"null_percentage"`
}

// NumericSummary holds descriptive statistics for one numeric column.
// Pointers are nil where the statistic is undefined on empty input.
type NumericSummary struct {
	Count int      `json:"count"`
	Mean  *float64 `json:"mean"`
	Std   *float64 `json:"std"`
	Min   *float64 `json:"min"`
	Q25   *float64 `json:"25%"`
	Q50   *float64 `json:"50%"`
	Q75   *float64 `json:"75%"`
	Max   *float64 `json:"max"`
}

// TopValue is one value→count pair of a categorical summary, ordered by
// descending count with first-seen order breaking ties.
type TopValue struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CategoricalSummary holds unique/top-value statistics for one
// categorical column.
type CategoricalSummary struct {
	UniqueValues int        `json:"unique_values"`
	TopValues    []TopValue `json:"top_values"`
}

// InfoSummary is the compact whole-table overview.
type InfoSummary struct {
	TotalRows          int      `json:"total_rows"`
	TotalColumns       int      `json:"total_columns"`
	MemoryUsage        string   `json:"memory_usage"`
	NumericColumns     []string `json:"numeric_columns"`
	CategoricalColumns []string `json:"categorical_columns"`
	DatetimeColumns    []string `json:"datetime_columns"`
}

// Profile is the structured statistical profile of a cleaned table,
// consumed by the suggestion orchestrator and echoed in upload responses.
type Profile struct {
	ColumnsInfo        []ColumnProfile               `json:"columns_info"`
	NumericSummary     map[string]NumericSummary     `json:"numeric_summary"`
	CategoricalSummary map[string]CategoricalSummary `json:"categorical_summary"`
	Info               InfoSummary                   `json:"info_summary"`
}

// ── Sessions ─────────────────────────────────────────────────

// Session binds an uploaded, cleaned table to an opaque identifier so a
// client can make follow-up chart requests without re-uploading. Entries
// expire one hour after creation by default.
type Session struct {
	ID        string    `json:"id"`
	Table     *Table    `json:"-"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ── Visualization suggestions ────────────────────────────────

// ChartType enumerates the chart types the chart-data endpoint serves.
type ChartType string

const (
	ChartBar       ChartType = "bar"
	ChartLine      ChartType = "line"
	ChartPie       ChartType = "pie"
	ChartScatter   ChartType = "scatter"
	ChartHistogram ChartType = "histogram"
	ChartBox       ChartType = "box"
	ChartHeatmap   ChartType = "heatmap"
	ChartArea      ChartType = "area"
)

// ChartTypes lists every type the chart-data endpoint accepts.
var ChartTypes = []ChartType{
	ChartBar, ChartLine, ChartPie, ChartScatter,
	ChartHistogram, ChartBox, ChartHeatmap, ChartArea,
}

// SuggestibleChartTypes lists the types the summarizer may propose. Box
// and heatmap are served on request but never suggested; the upstream
// schema excludes them deliberately.
var SuggestibleChartTypes = []ChartType{
	ChartBar, ChartLine, ChartPie, ChartScatter, ChartHistogram, ChartArea,
}

// ValidChartType reports whether s names a servable chart type.
func ValidChartType(s string) bool {
	for _, ct := range ChartTypes {
		if string(ct) == s {
			return true
		}
	}
	return false
}

// SuggestibleChartType reports whether s may appear in an AI suggestion.
func SuggestibleChartType(s string) bool {
	for _, ct := range SuggestibleChartTypes {
		if string(ct) == s {
			return true
		}
	}
	return false
}

// Suggestion is one visualization proposed by the external summarizer.
// Parameters maps a chart role (x_axis, labels, column, ...) to a column
// name from the uploaded table.
type Suggestion struct {
	Title      string            `json:"title"`
	ChartType  string            `json:"chart_type"`
	Parameters map[string]string `json:"parameters"`
	Insight    string            `json:"insight"`
}
