package tabular

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// DecodeXLSX reads an Excel workbook and returns its first sheet as a Table.
// The first row is the header; data rows shorter than the header are padded
// with empty strings and cells beyond the header are dropped.
func DecodeXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("DecodeXLSX: opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("DecodeXLSX: workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("DecodeXLSX: reading sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("DecodeXLSX: sheet %q has no header row", sheets[0])
	}

	header := rows[0]
	table := &Table{
		Columns: header,
		Rows:    make([]Row, 0, len(rows)-1),
	}

	for _, cells := range rows[1:] {
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(cells) {
				row[col] = cells[i]
			} else {
				row[col] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}
