package dataset

import (
	"math"
	"strings"

	"github.com/datapeek/datapeek/pkg/models"
)

// Normalize collapses any raw scalar into a JSON-safe cell: nil, a finite
// float64, or a string. NaN and ±Inf become nil, integer types become exact
// float64s, and the missing-value sentinels "nan", "none" and "" (case
// insensitive) become nil. Applying it twice equals applying it once.
func Normalize(v models.Value) models.Value {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case float32:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint64:
		return float64(x)
	case bool:
		// Spreadsheet booleans surface as cells too; keep them readable.
		if x {
			return "true"
		}
		return "false"
	case string:
		switch strings.ToLower(x) {
		case "nan", "none", "":
			return nil
		}
		return x
	default:
		return v
	}
}
