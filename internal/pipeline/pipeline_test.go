package pipeline

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/yhzhou/merchant-query/internal/domain"
	"github.com/yhzhou/merchant-query/internal/logger"
	"github.com/yhzhou/merchant-query/internal/tabular"
)

// mockStore records pipeline calls for assertions.
type mockStore struct {
	replaced     []domain.Merchant
	replacedDate string
	replaceErr   error
	replaceCnt   int

	runStarted   int
	runSucceeded int
	runFailed    int
	lastRunErr   error
}

func (m *mockStore) ReplaceAllMerchants(ctx context.Context, merchants []domain.Merchant, dateLabel string) error {
	m.replaceCnt++
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.replaced = merchants
	m.replacedDate = dateLabel
	return nil
}

func (m *mockStore) StartIngestionRun(ctx context.Context, filename string) (string, error) {
	m.runStarted++
	return "run-1", nil
}

func (m *mockStore) MarkIngestionRunSucceeded(ctx context.Context, runID string, recordsWritten int, dateLabel string) error {
	m.runSucceeded++
	return nil
}

func (m *mockStore) MarkIngestionRunFailed(ctx context.Context, runID string, cause error) {
	m.runFailed++
	m.lastRunErr = cause
}

var _ MerchantStore = (*mockStore)(nil)

func testTable(rows ...tabular.Row) *tabular.Table {
	return &tabular.Table{
		Columns: []string{
			ColumnMerchantID,
			ColumnMerchantName,
			ColumnInstitution,
			ColumnInstitutionID,
			ColumnTransactionCount,
		},
		Rows: rows,
	}
}

func TestIngest_Success(t *testing.T) {
	store := &mockStore{}
	ing := NewIngestor(store, logger.NewWithWriter(io.Discard))

	table := testTable(
		validRow("M001", "10"),
		validRow("M002", "20"),
	)

	res, err := ing.Ingest(context.Background(), table, "未月活-0427.xlsx")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if res.RecordsWritten != 2 {
		t.Errorf("RecordsWritten = %d, want 2", res.RecordsWritten)
	}
	if res.DataDate != "4月27日" {
		t.Errorf("DataDate = %q, want 4月27日", res.DataDate)
	}
	if store.replacedDate != "4月27日" {
		t.Errorf("store received date label %q, want 4月27日", store.replacedDate)
	}
	if len(store.replaced) != 2 {
		t.Errorf("store received %d merchants, want 2", len(store.replaced))
	}
	if store.runStarted != 1 || store.runSucceeded != 1 || store.runFailed != 0 {
		t.Errorf("run bookkeeping = start %d / success %d / fail %d", store.runStarted, store.runSucceeded, store.runFailed)
	}
}

func TestIngest_NoDateLeavesLabelUntouched(t *testing.T) {
	store := &mockStore{}
	ing := NewIngestor(store, logger.NewWithWriter(io.Discard))

	res, err := ing.Ingest(context.Background(), testTable(validRow("M001", "1")), "merchants.xlsx")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if res.DataDate != "" {
		t.Errorf("DataDate = %q, want empty", res.DataDate)
	}
	if store.replacedDate != "" {
		t.Errorf("store received date label %q, want empty", store.replacedDate)
	}
}

func TestIngest_SchemaErrorBeforeAnyStoreMutation(t *testing.T) {
	store := &mockStore{}
	ing := NewIngestor(store, logger.NewWithWriter(io.Discard))

	table := &tabular.Table{
		Columns: []string{ColumnMerchantID, "counts"}, // counts aliases to 有效交易笔数
		Rows:    nil,
	}

	_, err := ing.Ingest(context.Background(), table, "未月活-0427.xlsx")
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected *SchemaError, got %T: %v", err, err)
	}

	// The alias must have been applied before the presence check.
	for _, col := range schemaErr.Missing {
		if col == ColumnTransactionCount {
			t.Errorf("aliased column reported missing: %v", schemaErr.Missing)
		}
	}
	want := []string{ColumnMerchantName, ColumnInstitution, ColumnInstitutionID}
	if len(schemaErr.Missing) != len(want) {
		t.Errorf("Missing = %v, want %v", schemaErr.Missing, want)
	}

	if store.replaceCnt != 0 {
		t.Error("ReplaceAllMerchants must not be called on schema failure")
	}
	if store.runFailed != 1 {
		t.Errorf("runFailed = %d, want 1", store.runFailed)
	}
}

func TestIngest_RowErrorAbortsWithoutReplace(t *testing.T) {
	store := &mockStore{}
	ing := NewIngestor(store, logger.NewWithWriter(io.Discard))

	table := testTable(
		validRow("M001", "10"),
		validRow("M002", "bogus"),
	)

	_, err := ing.Ingest(context.Background(), table, "未月活-0427.xlsx")
	var rowErr *RowError
	if !errors.As(err, &rowErr) {
		t.Fatalf("expected *RowError, got %T: %v", err, err)
	}
	if rowErr.Row != 1 {
		t.Errorf("RowError.Row = %d, want 1", rowErr.Row)
	}
	if store.replaceCnt != 0 {
		t.Error("ReplaceAllMerchants must not be called when a row fails coercion")
	}
}

func TestIngest_StoreFailureSurfacesAsStoreError(t *testing.T) {
	store := &mockStore{replaceErr: errors.New("disk full")}
	ing := NewIngestor(store, logger.NewWithWriter(io.Discard))

	_, err := ing.Ingest(context.Background(), testTable(validRow("M001", "1")), "merchants.xlsx")
	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected *StoreError, got %T: %v", err, err)
	}
	if store.runFailed != 1 {
		t.Errorf("runFailed = %d, want 1", store.runFailed)
	}
}
