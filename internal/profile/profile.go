// Package profile computes the statistical profile of a cleaned table:
// per-column dtype and null statistics, descriptive stats for numeric
// columns, top values for categorical columns, and a compact overview.
// The profile is what gets serialized into the summarizer prompt, so the
// numeric and categorical sections are capped to keep prompts bounded.
package profile

import (
	"fmt"
	"math"
	"sort"

	"github.com/datapeek/datapeek/pkg/models"
)

// maxNumericColumns bounds the numeric summary; columns beyond the cap
// are truncated left to right but still appear in columns_info.
const maxNumericColumns = 20

// maxCategoricalColumns bounds the categorical summary.
const maxCategoricalColumns = 10

// topValueCount is how many value→count pairs each categorical summary keeps.
const topValueCount = 5

// Build computes the profile of a cleaned table. It is a pure function
// with no failure path; empty tables produce empty summaries.
func Build(t *models.Table) models.Profile {
	rows := t.Rows()

	p := models.Profile{
		ColumnsInfo:        make([]models.ColumnProfile, 0, len(t.Columns)),
		NumericSummary:     map[string]models.NumericSummary{},
		CategoricalSummary: map[string]models.CategoricalSummary{},
	}

	var numericNames, categoricalNames, datetimeNames []string
	for _, c := range t.Columns {
		nulls := 0
		for _, v := range c.Values {
			if v == nil {
				nulls++
			}
		}
		pct := 0.0
		if rows > 0 {
			pct = float64(nulls) / float64(rows) * 100
		}
		p.ColumnsInfo = append(p.ColumnsInfo, models.ColumnProfile{
			Name:           c.Name,
			Dtype:          string(c.Kind),
			NullCount:      nulls,
			NullPercentage: pct,
		})

		switch {
		case c.Kind == models.KindNumeric:
			numericNames = append(numericNames, c.Name)
			if len(p.NumericSummary) < maxNumericColumns {
				p.NumericSummary[c.Name] = summarizeNumeric(c.Values)
			}
		case c.Kind == models.KindDatetime:
			datetimeNames = append(datetimeNames, c.Name)
		case c.Kind.Categorical():
			categoricalNames = append(categoricalNames, c.Name)
			if len(p.CategoricalSummary) < maxCategoricalColumns {
				p.CategoricalSummary[c.Name] = summarizeCategorical(c.Values)
			}
		}
	}

	p.Info = models.InfoSummary{
		TotalRows:          rows,
		TotalColumns:       len(t.Columns),
		MemoryUsage:        fmt.Sprintf("%.2f KB", float64(approxBytes(t))/1024),
		NumericColumns:     numericNames,
		CategoricalColumns: categoricalNames,
		DatetimeColumns:    datetimeNames,
	}
	return p
}

func summarizeNumeric(values []models.Value) models.NumericSummary {
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := v.(float64); ok {
			nums = append(nums, f)
		}
	}
	s := models.NumericSummary{Count: len(nums)}
	if len(nums) == 0 {
		return s
	}
	sort.Float64s(nums)

	sum := 0.0
	for _, f := range nums {
		sum += f
	}
	mean := sum / float64(len(nums))
	s.Mean = &mean
	s.Min = ptr(nums[0])
	s.Max = ptr(nums[len(nums)-1])
	s.Q25 = ptr(Quantile(nums, 0.25))
	s.Q50 = ptr(Quantile(nums, 0.50))
	s.Q75 = ptr(Quantile(nums, 0.75))

	// Sample standard deviation; undefined for a single observation.
	if len(nums) > 1 {
		var m2 float64
		for _, f := range nums {
			d := f - mean
			m2 += d * d
		}
		s.Std = ptr(math.Sqrt(m2 / float64(len(nums)-1)))
	}
	return s
}

func summarizeCategorical(values []models.Value) models.CategoricalSummary {
	counts := map[string]int{}
	firstSeen := map[string]int{}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if _, seen := counts[s]; !seen {
			firstSeen[s] = i
		}
		counts[s]++
	}

	tops := make([]models.TopValue, 0, len(counts))
	for val, n := range counts {
		tops = append(tops, models.TopValue{Value: val, Count: n})
	}
	sort.SliceStable(tops, func(i, j int) bool {
		if tops[i].Count != tops[j].Count {
			return tops[i].Count > tops[j].Count
		}
		return firstSeen[tops[i].Value] < firstSeen[tops[j].Value]
	})
	if len(tops) > topValueCount {
		tops = tops[:topValueCount]
	}
	return models.CategoricalSummary{UniqueValues: len(counts), TopValues: tops}
}

// Quantile computes the q-th quantile of sorted values using linear
// interpolation between order statistics. Empty input returns 0; callers
// guard against that.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// approxBytes estimates the in-memory footprint of a table: interface
// header per cell plus string payloads.
func approxBytes(t *models.Table) int {
	total := 0
	for _, c := range t.Columns {
		total += len(c.Name)
		for _, v := range c.Values {
			total += 16
			if s, ok := v.(string); ok {
				total += len(s)
			}
		}
	}
	return total
}

func ptr(f float64) *float64 { return &f }
