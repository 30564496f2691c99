package tabular

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

// buildWorkbook writes the given cell grid into an in-memory xlsx file.
func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, cells := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("CoordinatesToCellName: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &cells); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf
}

func TestDecodeXLSX(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"商户号", "商户名称", "counts"},
		{"M001", "测试商户", 15},
		{"M002", "另一商户"}, // short row, padded
	})

	table, err := DecodeXLSX(buf)
	if err != nil {
		t.Fatalf("DecodeXLSX failed: %v", err)
	}

	wantCols := []string{"商户号", "商户名称", "counts"}
	if len(table.Columns) != len(wantCols) {
		t.Fatalf("got %d columns, want %d", len(table.Columns), len(wantCols))
	}
	for i, col := range wantCols {
		if table.Columns[i] != col {
			t.Errorf("column %d = %q, want %q", i, table.Columns[i], col)
		}
	}

	if len(table.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(table.Rows))
	}
	if table.Rows[0]["商户号"] != "M001" {
		t.Errorf("row 0 商户号 = %q, want M001", table.Rows[0]["商户号"])
	}
	if table.Rows[0]["counts"] != "15" {
		t.Errorf("row 0 counts = %q, want 15", table.Rows[0]["counts"])
	}
	if table.Rows[1]["counts"] != "" {
		t.Errorf("short row counts = %q, want empty", table.Rows[1]["counts"])
	}
}

func TestDecodeXLSX_NotAWorkbook(t *testing.T) {
	if _, err := DecodeXLSX(bytes.NewReader([]byte("not an xlsx file"))); err == nil {
		t.Error("expected error for non-xlsx content")
	}
}

func TestTableRename(t *testing.T) {
	table := &Table{
		Columns: []string{"商户号", "counts"},
		Rows: []Row{
			{"商户号": "M001", "counts": "3"},
		},
	}

	table.Rename(map[string]string{"counts": "有效交易笔数"})

	if !table.HasColumn("有效交易笔数") {
		t.Error("expected renamed column in header")
	}
	if table.HasColumn("counts") {
		t.Error("old column name should be gone")
	}
	if table.Rows[0]["有效交易笔数"] != "3" {
		t.Errorf("row value not carried over: %v", table.Rows[0])
	}
}
