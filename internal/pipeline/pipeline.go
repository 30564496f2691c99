// Package pipeline implements the bulk-replace ingestion of merchant
// spreadsheets: schema validation, row coercion, atomic replacement of the
// record store and best-effort data-date extraction from the filename.
package pipeline

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/yhzhou/merchant-query/internal/domain"
	"github.com/yhzhou/merchant-query/internal/tabular"
)

// MerchantStore is the persistence surface the pipeline needs. The SQLite
// repository implements it; tests substitute a mock.
type MerchantStore interface {
	// ReplaceAllMerchants atomically replaces the whole merchant set and, when
	// dateLabel is non-empty, overwrites the data-date singleton in the same
	// transaction.
	ReplaceAllMerchants(ctx context.Context, merchants []domain.Merchant, dateLabel string) error

	// StartIngestionRun records a RUNNING ingestion attempt and returns its ID.
	StartIngestionRun(ctx context.Context, filename string) (string, error)

	// MarkIngestionRunSucceeded finalizes a run as SUCCESS.
	MarkIngestionRunSucceeded(ctx context.Context, runID string, recordsWritten int, dateLabel string) error

	// MarkIngestionRunFailed finalizes a run as FAILED. Best-effort.
	MarkIngestionRunFailed(ctx context.Context, runID string, cause error)
}

// Result reports a successful ingestion. DataDate is empty when the filename
// carried no parseable date and the stored label was left untouched.
type Result struct {
	RecordsWritten int
	DataDate       string
}

// Ingestor runs ingestions against a MerchantStore.
type Ingestor struct {
	store MerchantStore
	log   zerolog.Logger
}

// NewIngestor creates a new Ingestor.
func NewIngestor(store MerchantStore, log zerolog.Logger) *Ingestor {
	return &Ingestor{
		store: store,
		log:   log,
	}
}

// Ingest replaces the merchant directory with the rows of one uploaded table.
//
// Error contract: *SchemaError and *RowError are user-caused and abort before
// any store mutation; *StoreError means the replace transaction failed and
// was rolled back. In every failure case the prior snapshot is intact.
func (ing *Ingestor) Ingest(ctx context.Context, table *tabular.Table, filename string) (*Result, error) {
	// 1. Open an audit run for this attempt.
	runID, err := ing.store.StartIngestionRun(ctx, filename)
	if err != nil {
		return nil, &StoreError{Err: err}
	}

	// 2. Alias headers and validate the schema before touching anything.
	if err := validateSchema(table); err != nil {
		ing.store.MarkIngestionRunFailed(ctx, runID, err)
		return nil, err
	}

	// 3. Coerce every row up front; first bad row aborts the whole upload.
	merchants, err := coerceRows(table.Rows)
	if err != nil {
		ing.store.MarkIngestionRunFailed(ctx, runID, err)
		return nil, err
	}

	// 4. The filename may carry the batch date; failure to parse one is not
	// an error and leaves the stored label unchanged.
	dateLabel, ok := DateFromFilename(filename)
	if ok {
		ing.log.Info().Str("filename", filename).Str("data_date", dateLabel).Msg("Parsed data date from filename")
	} else {
		ing.log.Info().Str("filename", filename).Msg("Filename carries no data date")
	}

	// 5. Atomic delete-all + insert-all + conditional date update.
	if err := ing.store.ReplaceAllMerchants(ctx, merchants, dateLabel); err != nil {
		ing.store.MarkIngestionRunFailed(ctx, runID, err)
		return nil, &StoreError{Err: err}
	}

	if err := ing.store.MarkIngestionRunSucceeded(ctx, runID, len(merchants), dateLabel); err != nil {
		// The replace already committed; losing the audit update is not worth
		// failing the upload over.
		ing.log.Error().Err(err).Str("run_id", runID).Msg("Failed to finalize ingestion run")
	}

	ing.log.Info().
		Str("run_id", runID).
		Str("filename", filename).
		Int("records", len(merchants)).
		Msg("Ingestion completed")

	return &Result{
		RecordsWritten: len(merchants),
		DataDate:       dateLabel,
	}, nil
}
