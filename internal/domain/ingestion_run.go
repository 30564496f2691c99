package domain

import "time"

// IngestionRunStatus is the lifecycle state of one ingestion attempt.
type IngestionRunStatus string

const (
	IngestionRunRunning IngestionRunStatus = "RUNNING"
	IngestionRunSuccess IngestionRunStatus = "SUCCESS"
	IngestionRunFailed  IngestionRunStatus = "FAILED"
)

// IngestionRun is the audit record of a single ingestion attempt. A run is
// created RUNNING before the upload is validated and finalized to SUCCESS or
// FAILED, so partial and aborted ingestions stay visible after the fact.
type IngestionRun struct {
	RunID    string             `json:"run_id" gorm:"primaryKey"`
	Filename string             `json:"filename"`
	Status   IngestionRunStatus `json:"status"`

	RecordsWritten int    `json:"records_written"`
	DataDate       string `json:"data_date,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`

	StartedTS  time.Time  `json:"started_ts"`
	FinishedTS *time.Time `json:"finished_ts,omitempty"`
}

func (IngestionRun) TableName() string {
	return "ingestion_runs"
}
