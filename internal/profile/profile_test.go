package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datapeek/datapeek/pkg/models"
)

func numericColumn(name string, values ...models.Value) models.Column {
	return models.Column{Name: name, Kind: models.KindNumeric, Values: values}
}

func TestBuildColumnsInfo(t *testing.T) {
	table := &models.Table{Columns: []models.Column{
		numericColumn("score", 1.0, nil, 3.0, nil),
		{Name: "label", Kind: models.KindCategory, Values: []models.Value{"a", "b", "a", "b"}},
	}}
	p := Build(table)

	require.Len(t, p.ColumnsInfo, 2)
	assert.Equal(t, "score", p.ColumnsInfo[0].Name)
	assert.Equal(t, "numeric", p.ColumnsInfo[0].Dtype)
	assert.Equal(t, 2, p.ColumnsInfo[0].NullCount)
	assert.InDelta(t, 50.0, p.ColumnsInfo[0].NullPercentage, 1e-9)
	assert.Equal(t, 0, p.ColumnsInfo[1].NullCount)
}

func TestBuildNumericSummary(t *testing.T) {
	table := &models.Table{Columns: []models.Column{
		numericColumn("v", 1.0, 2.0, 3.0, 4.0, 5.0),
	}}
	p := Build(table)

	s, ok := p.NumericSummary["v"]
	require.True(t, ok)
	assert.Equal(t, 5, s.Count)
	assert.InDelta(t, 3.0, *s.Mean, 1e-9)
	assert.InDelta(t, 1.0, *s.Min, 1e-9)
	assert.InDelta(t, 5.0, *s.Max, 1e-9)
	assert.InDelta(t, 2.0, *s.Q25, 1e-9)
	assert.InDelta(t, 3.0, *s.Q50, 1e-9)
	assert.InDelta(t, 4.0, *s.Q75, 1e-9)
	// Sample standard deviation of 1..5.
	assert.InDelta(t, 1.5811388300841898, *s.Std, 1e-9)
}

func TestBuildNumericSummaryDegenerate(t *testing.T) {
	table := &models.Table{Columns: []models.Column{
		numericColumn("empty", nil, nil),
		numericColumn("single", 7.0, nil),
	}}
	p := Build(table)

	empty := p.NumericSummary["empty"]
	assert.Equal(t, 0, empty.Count)
	assert.Nil(t, empty.Mean)

	single := p.NumericSummary["single"]
	assert.Equal(t, 1, single.Count)
	require.NotNil(t, single.Mean)
	assert.InDelta(t, 7.0, *single.Mean, 1e-9)
	assert.Nil(t, single.Std, "std is undefined for one observation")
}

func TestBuildCategoricalSummary(t *testing.T) {
	table := &models.Table{Columns: []models.Column{
		{Name: "fruit", Kind: models.KindCategory, Values: []models.Value{
			"pear", "apple", "apple", "pear", "apple", "plum",
		}},
	}}
	p := Build(table)

	s, ok := p.CategoricalSummary["fruit"]
	require.True(t, ok)
	assert.Equal(t, 3, s.UniqueValues)
	require.NotEmpty(t, s.TopValues)
	assert.Equal(t, "apple", s.TopValues[0].Value)
	assert.Equal(t, 3, s.TopValues[0].Count)
	// pear and plum both trail apple; ties break on first appearance.
	assert.Equal(t, "pear", s.TopValues[1].Value)
}

func TestBuildInfoSummary(t *testing.T) {
	table := &models.Table{Columns: []models.Column{
		numericColumn("n", 1.0, 2.0),
		{Name: "c", Kind: models.KindText, Values: []models.Value{"x", "y"}},
		{Name: "d", Kind: models.KindDatetime, Values: []models.Value{"2024-01-01", "2024-01-02"}},
	}}
	p := Build(table)

	assert.Equal(t, 2, p.Info.TotalRows)
	assert.Equal(t, 3, p.Info.TotalColumns)
	assert.Equal(t, []string{"n"}, p.Info.NumericColumns)
	assert.Equal(t, []string{"c"}, p.Info.CategoricalColumns)
	assert.Equal(t, []string{"d"}, p.Info.DatetimeColumns)
	assert.NotEmpty(t, p.Info.MemoryUsage)
}

func TestQuantileInterpolates(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.75, Quantile(sorted, 0.25), 1e-9)
	assert.InDelta(t, 2.5, Quantile(sorted, 0.50), 1e-9)
	assert.InDelta(t, 3.25, Quantile(sorted, 0.75), 1e-9)
	assert.InDelta(t, 1.0, Quantile(sorted, 0), 1e-9)
	assert.InDelta(t, 4.0, Quantile(sorted, 1), 1e-9)
	assert.Equal(t, 0.0, Quantile(nil, 0.5))
}
