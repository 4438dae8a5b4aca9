package sources

import (
	"fmt"
	"strings"

	"wastedash/internal/core"
)

const bom = "\ufeff"

// Columns holds the positions of the required columns in a header row.
type Columns struct {
	Category int
	Weight   int
	Year     int
}

// ColumnIndex locates the required columns in header. Names are matched
// exactly, including case and whitespace; only a leading byte order mark is
// ignored. Extra columns are allowed.
func ColumnIndex(header []string) (Columns, error) {
	cols := Columns{Category: -1, Weight: -1, Year: -1}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, bom)
		}
		switch h {
		case core.ColumnCategory:
			if cols.Category == -1 {
				cols.Category = i
			}
		case core.ColumnWeight:
			if cols.Weight == -1 {
				cols.Weight = i
			}
		case core.ColumnYear:
			if cols.Year == -1 {
				cols.Year = i
			}
		}
	}

	var missing []string
	if cols.Category == -1 {
		missing = append(missing, core.ColumnCategory)
	}
	if cols.Weight == -1 {
		missing = append(missing, core.ColumnWeight)
	}
	if cols.Year == -1 {
		missing = append(missing, core.ColumnYear)
	}
	if len(missing) > 0 {
		return Columns{}, fmt.Errorf("%w: %s", core.ErrMissingColumn, strings.Join(missing, ", "))
	}
	return cols, nil
}

// Row builds a raw record from one data row. Short rows yield empty fields.
func (c Columns) Row(line int, fields []string) core.RawRecord {
	return core.RawRecord{
		Line:     line,
		Category: safeGet(fields, c.Category),
		Weight:   safeGet(fields, c.Weight),
		Year:     safeGet(fields, c.Year),
	}
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
