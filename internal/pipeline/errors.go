package pipeline

import (
	"fmt"
	"strings"
)

// SchemaError reports required columns missing from an upload's header. It is
// raised before any store mutation, so a schema failure never changes state.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// RowError reports that a specific data row could not be coerced into a
// merchant record. Row is the zero-based index of the data row (the header is
// not counted). The whole ingestion aborts on the first RowError.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// StoreError wraps a transaction or commit failure from the record store. The
// replace transaction has been rolled back, so the prior snapshot is intact.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %v", e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
