package extract

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

const bannerWidth = 60

// maxTableName is the spreadsheet sheet-name limit, so the names stay usable
// as sheet names.
const maxTableName = 31

// WriteText writes text results, each preceded by a page banner.
func WriteText(w io.Writer, results []Result) error {
	rule := strings.Repeat("=", bannerWidth)
	for _, r := range results {
		if r.Kind != KindText {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s\nPage %d\n%s\n%s\n\n", rule, r.PageNumber, rule, strings.TrimRight(r.Text, "\n")); err != nil {
			return err
		}
	}
	return nil
}

// TableName names a table after its page and per-page index.
func TableName(page, index int) string {
	name := fmt.Sprintf("Page%d_Table%d", page, index)
	if len(name) > maxTableName {
		name = name[:maxTableName]
	}
	return name
}

// PadRows returns a rectangular copy of rows, padding short rows with empty cells.
func PadRows(rows [][]string) [][]string {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		padded := make([]string, width)
		copy(padded, row)
		out[i] = padded
	}
	return out
}

// WriteTableCSV writes a table as CSV; the first row is the header.
func WriteTableCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(PadRows(rows)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
