package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yhzhou/merchant-query/internal/domain"
)

// Keep stored failure messages bounded.
const maxErrorMessageLen = 2000

// StartIngestionRun records a RUNNING ingestion attempt and returns its ID.
func (s *Store) StartIngestionRun(ctx context.Context, filename string) (string, error) {
	run := domain.IngestionRun{
		RunID:     uuid.NewString(),
		Filename:  filename,
		Status:    domain.IngestionRunRunning,
		StartedTS: time.Now(),
	}

	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return "", fmt.Errorf("StartIngestionRun: %w", err)
	}
	return run.RunID, nil
}

// MarkIngestionRunSucceeded finalizes a run as SUCCESS with the record count
// and the data-date label it applied (empty when the label was untouched).
func (s *Store) MarkIngestionRunSucceeded(ctx context.Context, runID string, recordsWritten int, dateLabel string) error {
	now := time.Now()
	err := s.db.WithContext(ctx).
		Model(&domain.IngestionRun{}).
		Where("run_id = ?", runID).
		Updates(map[string]interface{}{
			"status":          domain.IngestionRunSuccess,
			"records_written": recordsWritten,
			"data_date":       dateLabel,
			"error_message":   "",
			"finished_ts":     now,
		}).Error
	if err != nil {
		return fmt.Errorf("MarkIngestionRunSucceeded: %w", err)
	}
	return nil
}

// MarkIngestionRunFailed finalizes a run as FAILED. Best-effort: the caller
// is already propagating the original failure, so problems here are dropped.
func (s *Store) MarkIngestionRunFailed(ctx context.Context, runID string, cause error) {
	errMsg := ""
	if cause != nil {
		errMsg = cause.Error()
		if len(errMsg) > maxErrorMessageLen {
			errMsg = errMsg[:maxErrorMessageLen]
		}
	}

	now := time.Now()
	_ = s.db.WithContext(ctx).
		Model(&domain.IngestionRun{}).
		Where("run_id = ?", runID).
		Updates(map[string]interface{}{
			"status":        domain.IngestionRunFailed,
			"error_message": errMsg,
			"finished_ts":   now,
		}).Error
}

// ListIngestionRuns returns the most recent runs, newest first.
func (s *Store) ListIngestionRuns(ctx context.Context, limit int) ([]domain.IngestionRun, error) {
	if limit < 1 {
		limit = 50
	}

	var runs []domain.IngestionRun
	err := s.db.WithContext(ctx).
		Order("started_ts DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("ListIngestionRuns: %w", err)
	}
	return runs, nil
}
