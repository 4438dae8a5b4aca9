package render

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"wastedash/internal/core"
)

// WriteCSV writes cells with the input file's column names.
func WriteCSV(w io.Writer, cells []core.Cell) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{core.ColumnYear, core.ColumnCategory, core.ColumnWeight}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, c := range cells {
		rec := []string{
			strconv.Itoa(c.Year),
			c.Category,
			strconv.FormatFloat(c.Weight, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
