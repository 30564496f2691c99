package sqlite

import (
	"context"
	"errors"
	"io"
	"strconv"
	"testing"

	"github.com/yhzhou/merchant-query/internal/logger"
	"github.com/yhzhou/merchant-query/internal/pipeline"
	"github.com/yhzhou/merchant-query/internal/query"
	"github.com/yhzhou/merchant-query/internal/tabular"
)

// End-to-end: a table ingested through the pipeline is exactly what the query
// engine returns afterwards, and the filename date lands in the singleton.
func TestIngestThenQuery(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	log := logger.NewWithWriter(io.Discard)

	columns := []string{"商户号", "商户名称", "机构", "机构号", "counts"}
	table := &tabular.Table{Columns: append([]string(nil), columns...)}
	for i := 1; i <= 23; i++ {
		table.Rows = append(table.Rows, tabular.Row{
			"商户号":    "M" + strconv.Itoa(1000+i),
			"商户名称":   "商户" + strconv.Itoa(i),
			"机构":     "工商银行",
			"机构号":    "A",
			"counts": strconv.Itoa(i),
		})
	}

	result, err := pipeline.NewIngestor(store, log).Ingest(ctx, table, "未月活-0512.xlsx")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if result.RecordsWritten != 23 {
		t.Fatalf("records written = %d, want 23", result.RecordsWritten)
	}
	if result.DataDate != "5月12日" {
		t.Fatalf("data date = %q, want 5月12日", result.DataDate)
	}

	engine := query.NewEngine(store, log)

	page, err := engine.Search(ctx, query.Criteria{}, 1, 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if page.Total != 23 || page.TotalPages != 3 || len(page.Items) != 10 {
		t.Errorf("page 1 = total %d, pages %d, items %d", page.Total, page.TotalPages, len(page.Items))
	}
	if page.DataDate != "5月12日" {
		t.Errorf("page data date = %q, want 5月12日", page.DataDate)
	}
	if page.Items[0].MerchantID != "M1001" {
		t.Errorf("first item = %s, want M1001", page.Items[0].MerchantID)
	}

	last, err := engine.Search(ctx, query.Criteria{}, 3, 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(last.Items) != 3 {
		t.Errorf("last page has %d items, want 3", len(last.Items))
	}

	bounded, err := engine.Search(ctx, query.Criteria{MinTransactions: intPtr(20)}, 1, 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if bounded.Total != 4 {
		t.Errorf("bounded total = %d, want 4 (counts 20..23)", bounded.Total)
	}

	m, err := engine.Get(ctx, "M1007")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if m.TransactionCount != 7 {
		t.Errorf("M1007 count = %d, want 7", m.TransactionCount)
	}
}

// A failed ingestion leaves the previous snapshot and data date untouched.
func TestIngestFailureKeepsPreviousSnapshot(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	log := logger.NewWithWriter(io.Discard)

	if err := store.ReplaceAllMerchants(ctx, testMerchants(), "4月27日"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	bad := &tabular.Table{
		Columns: []string{"商户号", "商户名称", "机构", "机构号", "有效交易笔数"},
		Rows: []tabular.Row{
			{"商户号": "M100", "商户名称": "店", "机构": "行", "机构号": "Z", "有效交易笔数": "not-a-number"},
		},
	}

	_, err := pipeline.NewIngestor(store, log).Ingest(ctx, bad, "未月活-0601.xlsx")
	var rowErr *pipeline.RowError
	if !errors.As(err, &rowErr) {
		t.Fatalf("expected RowError, got %v", err)
	}

	_, total, err := store.SearchMerchants(ctx, query.Criteria{}, 100, 0)
	if err != nil {
		t.Fatalf("SearchMerchants failed: %v", err)
	}
	if total != 4 {
		t.Errorf("snapshot size = %d, want previous 4", total)
	}

	date, err := store.GetDataDate(ctx)
	if err != nil {
		t.Fatalf("GetDataDate failed: %v", err)
	}
	if date != "4月27日" {
		t.Errorf("data date = %q, want previous 4月27日", date)
	}

	runs, err := store.ListIngestionRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListIngestionRuns failed: %v", err)
	}
	if len(runs) == 0 || runs[0].Status != "FAILED" {
		t.Errorf("expected the failed run on top of the audit trail, got %v", runs)
	}
}
