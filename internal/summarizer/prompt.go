package summarizer

import (
	"encoding/json"
	"fmt"

	"github.com/datapeek/datapeek/pkg/models"
)

const systemPrompt = "You are an expert data analyst. You identify meaningful findings " +
	"in datasets: patterns, trends, anomalies, correlations. Your insights describe " +
	"specific discoveries about the data, never the chart type. You respond ONLY with valid JSON."

// buildPrompt renders the fixed instruction template around the profile.
// The schema and statistics sections are JSON so column names survive
// verbatim; the summaries are already capped by the profiler, which keeps
// the prompt within a bounded size for any upload.
func buildPrompt(p models.Profile, filename string) string {
	columnsInfo, _ := json.Marshal(p.ColumnsInfo)

	numeric := "no numeric columns"
	if len(p.NumericSummary) > 0 {
		b, _ := json.Marshal(p.NumericSummary)
		numeric = string(b)
	}
	categorical := "no categorical columns"
	if len(p.CategoricalSummary) > 0 {
		b, _ := json.Marshal(p.CategoricalSummary)
		categorical = string(b)
	}

	return fmt.Sprintf(`Analyze this dataset and suggest 3-5 visualizations that highlight interesting patterns, trends, or relationships.

File: %s | Rows: %d | Columns: %d

Schema:
%s

Numeric statistics:
%s

Categorical statistics:
%s

INSTRUCTIONS:
- Identify interesting patterns, anomalies, correlations, or trends in the data
- Suggest 3-5 visualizations that demonstrate these findings
- Each visualization must include: title, chart_type, parameters, insight
- The "insight" must describe a SPECIFIC FINDING about the data (e.g. "category X accounts for 60%% of the total", "Y shows a rising trend", "A and B are positively correlated")
- Do NOT describe the chart type in the insight; describe the finding it visualizes
- Allowed chart types: bar, line, pie, scatter, histogram, area
- Column names must match the schema exactly

JSON FORMAT (examples):
- X/Y axes: {"title": "...", "chart_type": "bar", "parameters": {"x_axis": "col_x", "y_axis": "col_y"}, "insight": "..."}
- Pie: {"title": "...", "chart_type": "pie", "parameters": {"labels": "col_cat", "values": "col_val"}, "insight": "..."}
- Histogram: {"title": "...", "chart_type": "histogram", "parameters": {"column": "col_num"}, "insight": "..."}

Return ONLY a JSON array with no additional text.`,
		filename, p.Info.TotalRows, p.Info.TotalColumns,
		columnsInfo, numeric, categorical)
}
