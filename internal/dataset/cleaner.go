package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/datapeek/datapeek/pkg/models"
)

// Clean transforms a freshly loaded table into its canonical, JSON-safe
// form. It never fails; anything that cannot be repaired becomes nil.
//
// The order is deliberate: all-nil rows are dropped first so coercion
// never wastes work on blanks, currency-style text columns are coerced to
// numeric as a whole-column decision, residual infinities are nilled, and
// normalization runs last so the output invariant (no NaN/Inf anywhere)
// holds regardless of what the earlier steps produced.
func Clean(t *models.Table) *models.Table {
	out := dropEmptyRows(t)
	for i := range out.Columns {
		coerceNumericColumn(&out.Columns[i])
	}
	for i := range out.Columns {
		col := &out.Columns[i]
		for j, v := range col.Values {
			if f, ok := v.(float64); ok && math.IsInf(f, 0) {
				col.Values[j] = nil
			}
		}
		for j, v := range col.Values {
			col.Values[j] = Normalize(v)
		}
	}
	inferKinds(out)
	return out
}

// dropEmptyRows removes rows where every cell is nil. Column count is
// unchanged; row order is preserved.
func dropEmptyRows(t *models.Table) *models.Table {
	rows := t.Rows()
	keep := make([]int, 0, rows)
	for i := 0; i < rows; i++ {
		empty := true
		for _, c := range t.Columns {
			if c.Values[i] != nil {
				empty = false
				break
			}
		}
		if !empty {
			keep = append(keep, i)
		}
	}

	out := &models.Table{Columns: make([]models.Column, len(t.Columns))}
	for ci, c := range t.Columns {
		vals := make([]models.Value, len(keep))
		for vi, ri := range keep {
			vals[vi] = c.Values[ri]
		}
		out.Columns[ci] = models.Column{Name: c.Name, Kind: c.Kind, Values: vals}
	}
	return out
}

// coerceNumericColumn attempts whole-column numeric conversion on a text
// column after stripping dollar signs, thousands commas, and surrounding
// whitespace. The decision is all-or-nothing: the column converts only if
// at least one cell parses, and then every unparseable cell becomes nil.
func coerceNumericColumn(col *models.Column) {
	if col.Kind != models.KindText {
		return
	}
	converted := make([]models.Value, len(col.Values))
	parsed := 0
	for i, v := range col.Values {
		s, ok := v.(string)
		if !ok {
			converted[i] = nil
			continue
		}
		f, err := parseCurrency(s)
		if err != nil || math.IsNaN(f) {
			// A parse that yields NaN counts as a miss, same as pandas
			// to_numeric with coercion.
			converted[i] = nil
			continue
		}
		converted[i] = f
		parsed++
	}
	if parsed == 0 {
		return
	}
	col.Kind = models.KindNumeric
	col.Values = converted
}

func parseCurrency(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	return strconv.ParseFloat(s, 64)
}

// ── Kind inference ───────────────────────────────────────────

// categoryMaxUnique bounds how many distinct values a text column may hold
// and still be treated as categorical labels.
const categoryMaxUnique = 12

var datetimeLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05",
}

// inferKinds assigns a kind to every non-numeric column: datetime when the
// majority of non-nil values parse as dates, category for small label
// sets, text otherwise. Numeric columns were already decided by coercion.
func inferKinds(t *models.Table) {
	for i := range t.Columns {
		col := &t.Columns[i]
		if col.Kind == models.KindNumeric {
			continue
		}
		var nonNil, dates int
		distinct := map[string]struct{}{}
		for _, v := range col.Values {
			s, ok := v.(string)
			if !ok {
				continue
			}
			nonNil++
			distinct[s] = struct{}{}
			if parseDatetime(s) {
				dates++
			}
		}
		switch {
		case nonNil > 0 && dates*2 > nonNil:
			col.Kind = models.KindDatetime
		case nonNil > 0 && len(distinct) <= categoryMaxUnique && len(distinct) < nonNil:
			col.Kind = models.KindCategory
		default:
			col.Kind = models.KindText
		}
	}
}

func parseDatetime(s string) bool {
	for _, layout := range datetimeLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
