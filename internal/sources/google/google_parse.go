package google

import (
	"wastedash/internal/core"
	"wastedash/internal/sources"
)

// parseValues converts a values matrix (as returned by Sheets API) into raw
// records. The first row is the header; row numbers follow the sheet's.
func parseValues(values [][]interface{}) ([]core.RawRecord, error) {
	if len(values) == 0 {
		return nil, core.ErrEmptySource
	}
	cols, err := sources.ColumnIndex(toStrings(values[0]))
	if err != nil {
		return nil, err
	}
	out := make([]core.RawRecord, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if isBlank(row) {
			continue
		}
		out = append(out, cols.Row(i+1, row))
	}
	return out, nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
