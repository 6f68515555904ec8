package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"product-importer-backend/db/models"
)

// Snapshot is a complete, internally consistent view of a job's progress at
// one instant. It is what the status endpoint returns, what gets cached in
// Redis, and what the live stream pushes to subscribers.
type Snapshot struct {
	JobID              string                 `json:"job_id"`
	Status             models.ImportJobStatus `json:"status"`
	Message            string                 `json:"message"`
	TotalRows          *int64                 `json:"total_rows"`
	ProcessedRows      int64                  `json:"processed_rows"`
	CreatedCount       int64                  `json:"created_count"`
	UpdatedCount       int64                  `json:"updated_count"`
	ErrorCount         int64                  `json:"error_count"`
	ProgressPercentage float64                `json:"progress_percentage"`
	Error              *string                `json:"error,omitempty"`
}

// SnapshotFromJob builds the wire snapshot for a committed job state.
func SnapshotFromJob(job *models.ImportJob) Snapshot {
	return Snapshot{
		JobID:              job.ID.String(),
		Status:             job.Status,
		Message:            job.Message,
		TotalRows:          job.TotalRows,
		ProcessedRows:      job.ProcessedRows,
		CreatedCount:       job.CreatedCount,
		UpdatedCount:       job.UpdatedCount,
		ErrorCount:         job.ErrorCount,
		ProgressPercentage: job.ProgressPercentage(),
		Error:              job.Error,
	}
}

// SnapshotCache stores the latest committed snapshot for fast status reads
// and late stream joiners. Best-effort: a miss falls back to the database.
type SnapshotCache interface {
	SetSnapshot(ctx context.Context, snapshot Snapshot) error
	GetSnapshot(ctx context.Context, jobID string) (*Snapshot, error)
	DeleteSnapshot(ctx context.Context, jobID string) error
}

// SnapshotPublisher fans a committed snapshot out to live subscribers.
type SnapshotPublisher interface {
	PublishSnapshot(jobID string, snapshot Snapshot)
	CloseJobStream(jobID string)
}

// JobStore persists job state transitions.
type JobStore interface {
	GetImportJob(ctx context.Context, jobID string) (*models.ImportJob, error)
	UpdateImportJob(ctx context.Context, job *models.ImportJob, fields map[string]interface{}) error
	SaveRowErrors(ctx context.Context, rowErrors []models.ImportRowError) error
}

// ProgressTracker owns the job's state machine. Exactly one tracker advances
// a given job; it applies each transition as one atomic update, then pushes
// the committed snapshot to the cache and the live publisher. Readers never
// observe a state where some counters reflect the new batch and others the
// old one.
type ProgressTracker struct {
	job       *models.ImportJob
	store     JobStore
	cache     SnapshotCache
	publisher SnapshotPublisher
	logger    *zap.Logger
}

func NewProgressTracker(job *models.ImportJob, store JobStore, cache SnapshotCache, publisher SnapshotPublisher, logger *zap.Logger) *ProgressTracker {
	return &ProgressTracker{
		job:       job,
		store:     store,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
	}
}

// Job returns the tracked job's current committed state.
func (t *ProgressTracker) Job() *models.ImportJob { return t.job }

// Start transitions pending -> running.
func (t *ProgressTracker) Start(ctx context.Context, message string) error {
	now := time.Now().UTC()
	t.job.Status = models.ImportStatusRunning
	t.job.StartedAt = &now
	t.job.Message = message
	return t.commit(ctx, map[string]interface{}{
		"status":     t.job.Status,
		"started_at": t.job.StartedAt,
		"message":    t.job.Message,
	})
}

// SetTotalRows records the counted data-row total once known.
func (t *ProgressTracker) SetTotalRows(ctx context.Context, total int64, message string) error {
	t.job.TotalRows = &total
	t.job.Message = message
	return t.commit(ctx, map[string]interface{}{
		"total_rows": t.job.TotalRows,
		"message":    t.job.Message,
	})
}

// RecordBatch applies one batch's outcome atomically: all counters move
// together or not at all.
func (t *ProgressTracker) RecordBatch(ctx context.Context, processed, created, updated, failed int64, message string) error {
	t.job.ProcessedRows += processed
	t.job.CreatedCount += created
	t.job.UpdatedCount += updated
	t.job.ErrorCount += failed
	t.job.Message = message
	return t.commit(ctx, map[string]interface{}{
		"processed_rows": t.job.ProcessedRows,
		"created_count":  t.job.CreatedCount,
		"updated_count":  t.job.UpdatedCount,
		"error_count":    t.job.ErrorCount,
		"message":        t.job.Message,
	})
}

// Complete transitions running -> completed and ends the live stream.
func (t *ProgressTracker) Complete(ctx context.Context, message string) error {
	now := time.Now().UTC()
	t.job.Status = models.ImportStatusCompleted
	t.job.CompletedAt = &now
	t.job.Message = message
	err := t.commit(ctx, map[string]interface{}{
		"status":       t.job.Status,
		"completed_at": t.job.CompletedAt,
		"message":      t.job.Message,
	})
	t.publisher.CloseJobStream(t.job.ID.String())
	return err
}

// Fail transitions to failed carrying the triggering error. Committed
// counters are left exactly as they were; unprocessed rows are never counted.
func (t *ProgressTracker) Fail(ctx context.Context, cause error, message string) error {
	now := time.Now().UTC()
	errText := cause.Error()
	t.job.Status = models.ImportStatusFailed
	t.job.CompletedAt = &now
	t.job.Message = message
	t.job.Error = &errText
	err := t.commit(ctx, map[string]interface{}{
		"status":       t.job.Status,
		"completed_at": t.job.CompletedAt,
		"message":      t.job.Message,
		"error":        t.job.Error,
	})
	t.publisher.CloseJobStream(t.job.ID.String())
	return err
}

// commit persists the transition, then publishes the committed snapshot.
// Cache and stream delivery are best-effort and never fail the pipeline.
func (t *ProgressTracker) commit(ctx context.Context, fields map[string]interface{}) error {
	if err := t.store.UpdateImportJob(ctx, t.job, fields); err != nil {
		return err
	}

	snapshot := SnapshotFromJob(t.job)
	if err := t.cache.SetSnapshot(ctx, snapshot); err != nil {
		t.logger.Warn("failed to cache progress snapshot",
			zap.String("jobID", snapshot.JobID),
			zap.Error(err),
		)
	}
	t.publisher.PublishSnapshot(snapshot.JobID, snapshot)
	return nil
}
