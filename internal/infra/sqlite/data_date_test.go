package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/yhzhou/merchant-query/internal/domain"
)

func TestGetDataDate_LazyDefault(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	date, err := store.GetDataDate(ctx)
	if err != nil {
		t.Fatalf("GetDataDate failed: %v", err)
	}
	if date != domain.DefaultDataDate {
		t.Errorf("first access = %q, want default %q", date, domain.DefaultDataDate)
	}

	// Second access reads the persisted row.
	date, err = store.GetDataDate(ctx)
	if err != nil {
		t.Fatalf("GetDataDate failed: %v", err)
	}
	if date != domain.DefaultDataDate {
		t.Errorf("second access = %q, want %q", date, domain.DefaultDataDate)
	}
}

func TestIngestionRunLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	runID, err := store.StartIngestionRun(ctx, "未月活-0427.xlsx")
	if err != nil {
		t.Fatalf("StartIngestionRun failed: %v", err)
	}
	if runID == "" {
		t.Fatal("expected a run ID")
	}

	if err := store.MarkIngestionRunSucceeded(ctx, runID, 42, "4月27日"); err != nil {
		t.Fatalf("MarkIngestionRunSucceeded failed: %v", err)
	}

	runs, err := store.ListIngestionRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListIngestionRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	run := runs[0]
	if run.Status != domain.IngestionRunSuccess {
		t.Errorf("status = %s, want SUCCESS", run.Status)
	}
	if run.RecordsWritten != 42 || run.DataDate != "4月27日" {
		t.Errorf("run = %+v, want 42 records and 4月27日", run)
	}
	if run.FinishedTS == nil {
		t.Error("finished_ts should be set")
	}
}

func TestMarkIngestionRunFailed(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	runID, err := store.StartIngestionRun(ctx, "bad.xlsx")
	if err != nil {
		t.Fatalf("StartIngestionRun failed: %v", err)
	}

	store.MarkIngestionRunFailed(ctx, runID, errors.New("row 3: 有效交易笔数 \"x\" is not an integer"))

	runs, err := store.ListIngestionRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListIngestionRuns failed: %v", err)
	}
	if runs[0].Status != domain.IngestionRunFailed {
		t.Errorf("status = %s, want FAILED", runs[0].Status)
	}
	if runs[0].ErrorMessage == "" {
		t.Error("error message should be recorded")
	}
}
