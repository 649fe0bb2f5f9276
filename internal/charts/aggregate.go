// Package charts turns a cached table plus a chart request into the exact
// label/value series a renderer needs, applying per-chart-type grouping
// and aggregation policy.
package charts

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/datapeek/datapeek/internal/profile"
	"github.com/datapeek/datapeek/pkg/models"
)

// ── Errors ───────────────────────────────────────────────────

// ErrInvalidParameters is returned when a required role is missing, a
// named column is absent, or the request is otherwise malformed.
type ErrInvalidParameters struct {
	Reason string
}

func (e *ErrInvalidParameters) Error() string {
	return "invalid chart parameters: " + e.Reason
}

// ErrInvalidColumnType is returned when a chart requires a numeric column
// and the named column is not numeric.
type ErrInvalidColumnType struct {
	Column string
	Chart  string
}

func (e *ErrInvalidColumnType) Error() string {
	return fmt.Sprintf("column %q must be numeric for a %s chart", e.Column, e.Chart)
}

// ── Payloads ─────────────────────────────────────────────────

// XYData is the payload for bar, line, scatter, and area charts.
type XYData struct {
	Labels []string       `json:"labels"`
	Values []models.Value `json:"values"`
	XAxis  string         `json:"x_axis"`
	YAxis  string         `json:"y_axis"`
}

// PieData is the payload for pie charts; values are always aggregated.
type PieData struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// HistogramData holds bin centers and per-bin counts.
type HistogramData struct {
	Bins   []float64 `json:"bins"`
	Counts []int     `json:"counts"`
	Column string    `json:"column"`
}

// BoxGroup is one category's five-number summary with 1.5·IQR whiskers.
type BoxGroup struct {
	Category     string    `json:"category"`
	Q1           float64   `json:"q1"`
	Median       float64   `json:"median"`
	Q3           float64   `json:"q3"`
	Min          float64   `json:"min"`
	Max          float64   `json:"max"`
	LowerWhisker float64   `json:"lower_whisker"`
	UpperWhisker float64   `json:"upper_whisker"`
	Outliers     []float64 `json:"outliers"`
}

// BoxData is the payload for box charts.
type BoxData struct {
	Data  []BoxGroup `json:"data"`
	XAxis string     `json:"x_axis"`
	YAxis string     `json:"y_axis"`
}

// HeatmapData is a row-major pivot of summed values.
type HeatmapData struct {
	Rows    []string    `json:"rows"`
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// ── Aggregation ──────────────────────────────────────────────

// Aggregate produces the render-ready payload for one chart request. The
// table must already be cleaned; parameters map chart roles to column
// names. Unknown chart types and missing or absent columns fail with
// ErrInvalidParameters, wrong dtypes with ErrInvalidColumnType.
func Aggregate(t *models.Table, chartType string, params map[string]string) (any, error) {
	switch models.ChartType(chartType) {
	case models.ChartBar, models.ChartLine, models.ChartScatter, models.ChartArea:
		return aggregateXY(t, chartType, params)
	case models.ChartPie:
		return aggregatePie(t, params)
	case models.ChartHistogram:
		return aggregateHistogram(t, params)
	case models.ChartBox:
		return aggregateBox(t, params)
	case models.ChartHeatmap:
		return aggregateHeatmap(t, params)
	default:
		return nil, &ErrInvalidParameters{Reason: fmt.Sprintf("unknown chart type %q", chartType)}
	}
}

// requireColumns resolves the named roles to columns, failing when a role
// is missing from params or its column is absent from the table.
func requireColumns(t *models.Table, chartType string, params map[string]string, roles ...string) ([]*models.Column, error) {
	cols := make([]*models.Column, len(roles))
	for i, role := range roles {
		name, ok := params[role]
		if !ok || name == "" {
			return nil, &ErrInvalidParameters{
				Reason: fmt.Sprintf("%s charts require %q in parameters", chartType, role),
			}
		}
		col := t.Column(name)
		if col == nil {
			return nil, &ErrInvalidParameters{
				Reason: fmt.Sprintf("column %q does not exist in the dataset", name),
			}
		}
		cols[i] = col
	}
	return cols, nil
}

func aggregateXY(t *models.Table, chartType string, params map[string]string) (*XYData, error) {
	cols, err := requireColumns(t, chartType, params, "x_axis", "y_axis")
	if err != nil {
		return nil, err
	}
	x, y := cols[0], cols[1]

	if hasDuplicates(x.Values) {
		labels, sums := groupAggregate(x.Values, y.Values, y.Kind == models.KindNumeric)
		values := make([]models.Value, len(sums))
		for i, s := range sums {
			values[i] = s
		}
		return &XYData{Labels: labels, Values: values, XAxis: x.Name, YAxis: y.Name}, nil
	}

	// No duplicates: pass values through, x stringified and missing y
	// zeroed so the series stays dense.
	labels := make([]string, len(x.Values))
	values := make([]models.Value, len(y.Values))
	for i, v := range x.Values {
		labels[i] = cellString(v)
	}
	for i, v := range y.Values {
		if v == nil {
			values[i] = float64(0)
			continue
		}
		values[i] = v
	}
	return &XYData{Labels: labels, Values: values, XAxis: x.Name, YAxis: y.Name}, nil
}

func aggregatePie(t *models.Table, params map[string]string) (*PieData, error) {
	cols, err := requireColumns(t, "pie", params, "labels", "values")
	if err != nil {
		return nil, err
	}
	labelCol, valueCol := cols[0], cols[1]
	labels, sums := groupAggregate(labelCol.Values, valueCol.Values, valueCol.Kind == models.KindNumeric)
	return &PieData{Labels: labels, Values: sums}, nil
}

// groupAggregate groups rows by the stringified key column. Rows with a
// nil key are dropped from the grouped output. When sum is true the value
// column is summed per group (nil contributes nothing); otherwise each
// group's row count is used. Group order follows sorted keys, numerically
// when every key is numeric.
func groupAggregate(keys, values []models.Value, sum bool) ([]string, []float64) {
	agg := map[string]float64{}
	order := make([]string, 0)
	for i, k := range keys {
		if k == nil {
			continue
		}
		key := cellString(k)
		if _, seen := agg[key]; !seen {
			order = append(order, key)
		}
		if sum {
			if f, ok := values[i].(float64); ok {
				agg[key] += f
			}
		} else {
			agg[key]++
		}
	}
	sortKeys(order)
	out := make([]float64, len(order))
	for i, k := range order {
		out[i] = agg[k]
	}
	return order, out
}

// sortKeys orders group labels ascending, numerically when every label
// parses as a number and lexically otherwise.
func sortKeys(keys []string) {
	numeric := true
	parsed := make(map[string]float64, len(keys))
	for _, k := range keys {
		f, err := strconv.ParseFloat(k, 64)
		if err != nil {
			numeric = false
			break
		}
		parsed[k] = f
	}
	if numeric && len(keys) > 0 {
		sort.Slice(keys, func(i, j int) bool { return parsed[keys[i]] < parsed[keys[j]] })
		return
	}
	sort.Strings(keys)
}

func aggregateHistogram(t *models.Table, params map[string]string) (*HistogramData, error) {
	cols, err := requireColumns(t, "histogram", params, "column")
	if err != nil {
		return nil, err
	}
	col := cols[0]
	if col.Kind != models.KindNumeric {
		return nil, &ErrInvalidColumnType{Column: col.Name, Chart: "histogram"}
	}
	nums := nonNullNumbers(col.Values)
	if len(nums) == 0 {
		return nil, &ErrInvalidParameters{
			Reason: fmt.Sprintf("column %q has no valid values", col.Name),
		}
	}

	// Sturges' rule, capped at 30 bins.
	nBins := int(1 + 3.322*math.Log10(float64(len(nums))))
	if nBins > 30 {
		nBins = 30
	}
	if nBins < 1 {
		nBins = 1
	}

	lo, hi := nums[0], nums[0]
	for _, f := range nums {
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
	}
	if lo == hi {
		// Degenerate range: one bin holding everything.
		return &HistogramData{
			Bins:   []float64{lo},
			Counts: []int{len(nums)},
			Column: col.Name,
		}, nil
	}

	width := (hi - lo) / float64(nBins)
	counts := make([]int, nBins)
	for _, f := range nums {
		idx := int((f - lo) / width)
		if idx >= nBins {
			// The maximum lands on the final edge; it belongs to the last bin.
			idx = nBins - 1
		}
		counts[idx]++
	}
	centers := make([]float64, nBins)
	for i := range centers {
		left := lo + float64(i)*width
		centers[i] = left + width/2
	}
	return &HistogramData{Bins: centers, Counts: counts, Column: col.Name}, nil
}

func aggregateBox(t *models.Table, params map[string]string) (*BoxData, error) {
	cols, err := requireColumns(t, "box", params, "x_axis", "y_axis")
	if err != nil {
		return nil, err
	}
	x, y := cols[0], cols[1]
	if y.Kind != models.KindNumeric {
		return nil, &ErrInvalidColumnType{Column: y.Name, Chart: "box"}
	}

	// Distinct non-null categories in first-seen order.
	var categories []string
	byCategory := map[string][]float64{}
	for i, v := range x.Values {
		if v == nil {
			continue
		}
		key := cellString(v)
		if _, seen := byCategory[key]; !seen {
			categories = append(categories, key)
			byCategory[key] = nil
		}
		if f, ok := y.Values[i].(float64); ok {
			byCategory[key] = append(byCategory[key], f)
		}
	}

	data := make([]BoxGroup, 0, len(categories))
	for _, cat := range categories {
		nums := byCategory[cat]
		if len(nums) == 0 {
			continue
		}
		sort.Float64s(nums)
		q1 := profile.Quantile(nums, 0.25)
		q2 := profile.Quantile(nums, 0.50)
		q3 := profile.Quantile(nums, 0.75)
		iqr := q3 - q1
		min, max := nums[0], nums[len(nums)-1]
		lower := math.Max(min, q1-1.5*iqr)
		upper := math.Min(max, q3+1.5*iqr)

		var outliers []float64
		for _, f := range nums {
			if f < lower || f > upper {
				outliers = append(outliers, f)
			}
		}
		data = append(data, BoxGroup{
			Category:     cat,
			Q1:           q1,
			Median:       q2,
			Q3:           q3,
			Min:          min,
			Max:          max,
			LowerWhisker: lower,
			UpperWhisker: upper,
			Outliers:     outliers,
		})
	}
	return &BoxData{Data: data, XAxis: x.Name, YAxis: y.Name}, nil
}

func aggregateHeatmap(t *models.Table, params map[string]string) (*HeatmapData, error) {
	cols, err := requireColumns(t, "heatmap", params, "rows", "columns", "values")
	if err != nil {
		return nil, err
	}
	rowCol, colCol, valCol := cols[0], cols[1], cols[2]
	if valCol.Kind != models.KindNumeric {
		return nil, &ErrInvalidColumnType{Column: valCol.Name, Chart: "heatmap"}
	}

	type cellKey struct{ row, col string }
	sums := map[cellKey]float64{}
	rowSet := map[string]struct{}{}
	colSet := map[string]struct{}{}
	for i := range rowCol.Values {
		if rowCol.Values[i] == nil || colCol.Values[i] == nil {
			continue
		}
		rk := cellString(rowCol.Values[i])
		ck := cellString(colCol.Values[i])
		rowSet[rk] = struct{}{}
		colSet[ck] = struct{}{}
		if f, ok := valCol.Values[i].(float64); ok {
			sums[cellKey{rk, ck}] += f
		}
	}

	rows := sortedSet(rowSet)
	columns := sortedSet(colSet)
	matrix := make([][]float64, len(rows))
	for ri, rk := range rows {
		matrix[ri] = make([]float64, len(columns))
		for ci, ck := range columns {
			matrix[ri][ci] = sums[cellKey{rk, ck}] // zero where absent
		}
	}
	return &HeatmapData{Rows: rows, Columns: columns, Values: matrix}, nil
}

// ── Helpers ──────────────────────────────────────────────────

// hasDuplicates reports whether any non-nil key repeats; nil cells never
// trigger grouping on their own.
func hasDuplicates(values []models.Value) bool {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		key := cellString(v)
		if _, dup := seen[key]; dup {
			return true
		}
		seen[key] = struct{}{}
	}
	return false
}

func nonNullNumbers(values []models.Value) []float64 {
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := v.(float64); ok {
			nums = append(nums, f)
		}
	}
	return nums
}

// cellString renders a cell as a group label; nil becomes "".
func cellString(v models.Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sortKeys(out)
	return out
}
