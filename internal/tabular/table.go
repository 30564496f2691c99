// Package tabular turns uploaded spreadsheet content into an ordered sequence
// of rows with named fields. The ingestion pipeline consumes a Table and never
// touches the file format directly.
package tabular

// Row maps a column name to the raw cell value of one data row.
type Row map[string]string

// Table is the decoded content of one uploaded file: the header columns in
// file order plus every data row keyed by those columns.
type Table struct {
	Columns []string
	Rows    []Row
}

// Rename applies a column-alias map to the table in place and returns it.
// Columns absent from the alias map are left untouched.
func (t *Table) Rename(aliases map[string]string) *Table {
	renamed := make(map[string]string)
	for i, col := range t.Columns {
		if alias, ok := aliases[col]; ok {
			t.Columns[i] = alias
			renamed[col] = alias
		}
	}
	if len(renamed) == 0 {
		return t
	}
	for _, row := range t.Rows {
		for old, alias := range renamed {
			if v, ok := row[old]; ok {
				delete(row, old)
				row[alias] = v
			}
		}
	}
	return t
}

// HasColumn reports whether the table's header contains the given column.
func (t *Table) HasColumn(name string) bool {
	for _, col := range t.Columns {
		if col == name {
			return true
		}
	}
	return false
}
