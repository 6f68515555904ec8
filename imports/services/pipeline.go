package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"product-importer-backend/db/models"
	webhook_services "product-importer-backend/webhooks/services"
)

// maxPersistedRowErrors bounds the per-job row-error sample kept for
// surfacing. The aggregate error count stays exact regardless.
const maxPersistedRowErrors = 100

// BulkUpsertResult carries one batch's created/updated split.
type BulkUpsertResult struct {
	Created int64
	Updated int64
}

// ProductStore is the upsert engine surface the pipeline drives.
type ProductStore interface {
	// BulkUpsert applies one ordered batch as a single set-based
	// insert-or-update matched on the normalized SKU. Only the listed
	// columns are overwritten on conflict.
	BulkUpsert(ctx context.Context, records []ProductRecord, columns []string) (BulkUpsertResult, error)
	// UpsertOne applies a single record; used when a batch is retried
	// row-by-row after a row-scoped failure.
	UpsertOne(ctx context.Context, record ProductRecord, columns []string) (created bool, err error)
	// IsRowScopedError reports whether a store failure is confined to the
	// offending rows (constraint violation) rather than systemic.
	IsRowScopedError(err error) bool
}

// EventDispatcher fires lifecycle webhooks. Fire-and-forget: delivery
// failures never surface to the pipeline.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event webhook_services.EventType, data interface{})
}

// Pipeline runs one import job end to end: streaming parse, chunked
// validation, bulk upsert, progress tracking and lifecycle webhooks. Exactly
// one pipeline worker advances a given job, in strict batch order.
type Pipeline struct {
	jobs       JobStore
	products   ProductStore
	cache      SnapshotCache
	publisher  SnapshotPublisher
	dispatcher EventDispatcher
	chunkSize  int
	logger     *zap.Logger
}

func NewPipeline(
	jobs JobStore,
	products ProductStore,
	cache SnapshotCache,
	publisher SnapshotPublisher,
	dispatcher EventDispatcher,
	chunkSize int,
	logger *zap.Logger,
) *Pipeline {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Pipeline{
		jobs:       jobs,
		products:   products,
		cache:      cache,
		publisher:  publisher,
		dispatcher: dispatcher,
		chunkSize:  chunkSize,
		logger:     logger,
	}
}

// Run processes the uploaded file for the given job. The uploaded file is
// removed afterwards regardless of outcome. Returning nil means the job
// reached a terminal state; the task must not be retried past that point.
func (p *Pipeline) Run(ctx context.Context, jobID uuid.UUID, filePath string) error {
	job, err := p.jobs.GetImportJob(ctx, jobID.String())
	if err != nil {
		return fmt.Errorf("loading import job %s: %w", jobID, err)
	}
	if job.Status.IsTerminal() {
		p.logger.Info("import job already terminal, skipping",
			zap.String("jobID", jobID.String()),
			zap.String("status", string(job.Status)),
		)
		return nil
	}
	defer os.Remove(filePath)

	tracker := NewProgressTracker(job, p.jobs, p.cache, p.publisher, p.logger)

	if err := p.run(ctx, tracker, job, filePath); err != nil {
		p.failJob(ctx, tracker, job, err)
	}
	return nil
}

func (p *Pipeline) run(ctx context.Context, tracker *ProgressTracker, job *models.ImportJob, filePath string) error {
	if err := tracker.Start(ctx, "Counting rows in uploaded file..."); err != nil {
		return err
	}

	total, err := countDataRows(job.SourceFormat, filePath)
	if err != nil {
		return fmt.Errorf("counting rows: %w", err)
	}
	if err := tracker.SetTotalRows(ctx, total, fmt.Sprintf("Processing %d products...", total)); err != nil {
		return err
	}

	source, err := openRowSource(job.SourceFormat, filePath)
	if err != nil {
		return fmt.Errorf("opening uploaded file: %w", err)
	}
	defer source.Close()

	// A missing required header fails the job before any batch is attempted.
	parser, err := NewRecordParser(source.Headers())
	if err != nil {
		return err
	}
	columns := parser.PresentColumns()

	batcher := NewBatcher(p.chunkSize)
	var (
		pendingErrors  []RowError
		persistedCount int64
		rowNumber      int64 = 1 // header row
	)

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("import canceled: %w", err)
		}

		row, readErr := source.Next()
		if readErr == io.EOF {
			break
		}
		rowNumber++

		if readErr != nil {
			var parseErr *csv.ParseError
			if errors.As(readErr, &parseErr) {
				pendingErrors = append(pendingErrors, RowError{
					RowNumber: rowNumber,
					Reason:    fmt.Sprintf("Malformed row: %v", parseErr.Err),
					Raw:       row,
				})
				continue
			}
			return fmt.Errorf("reading row %d: %w", rowNumber, readErr)
		}

		record, rowErr := parser.ParseRecord(row, rowNumber)
		if rowErr != nil {
			pendingErrors = append(pendingErrors, *rowErr)
			continue
		}

		if batch := batcher.Add(record); batch != nil {
			if err := p.commitBatch(ctx, tracker, job, batch, columns, pendingErrors, &persistedCount); err != nil {
				return err
			}
			pendingErrors = nil
		}
	}

	if batch := batcher.Flush(); batch != nil || len(pendingErrors) > 0 {
		if batch == nil {
			batch = &Batch{}
		}
		if err := p.commitBatch(ctx, tracker, job, batch, columns, pendingErrors, &persistedCount); err != nil {
			return err
		}
	}

	message := fmt.Sprintf("Import completed! %d products processed.", job.CreatedCount+job.UpdatedCount)
	if err := tracker.Complete(ctx, message); err != nil {
		return err
	}

	p.dispatcher.Dispatch(ctx, webhook_services.EventImportCompleted, map[string]interface{}{
		"job_id":         job.ID.String(),
		"total_rows":     job.TotalRows,
		"processed_rows": job.ProcessedRows,
		"created_count":  job.CreatedCount,
		"updated_count":  job.UpdatedCount,
		"error_count":    job.ErrorCount,
	})

	p.logger.Info("import job completed",
		zap.String("jobID", job.ID.String()),
		zap.Int64("processed", job.ProcessedRows),
		zap.Int64("created", job.CreatedCount),
		zap.Int64("updated", job.UpdatedCount),
		zap.Int64("errors", job.ErrorCount),
	)
	return nil
}

// commitBatch applies one batch against the store and advances the tracker
// with a single atomic counter update covering the batch and any row errors
// collected since the previous commit.
func (p *Pipeline) commitBatch(
	ctx context.Context,
	tracker *ProgressTracker,
	job *models.ImportJob,
	batch *Batch,
	columns []string,
	rowErrors []RowError,
	persistedCount *int64,
) error {
	created, updated, storeErrors, err := p.applyBatch(ctx, batch, columns)
	if err != nil {
		return err
	}

	// Parse errors cover rows that never made it into the batch; store errors
	// cover batch rows, which are already counted as processed.
	processed := int64(len(batch.Records)) + batch.DuplicateRows + int64(len(rowErrors))
	failed := int64(len(rowErrors)) + int64(len(storeErrors))
	rowErrors = append(rowErrors, storeErrors...)

	if err := p.persistRowErrors(ctx, job.ID, rowErrors, persistedCount); err != nil {
		p.logger.Warn("failed to persist row error sample",
			zap.String("jobID", job.ID.String()),
			zap.Error(err),
		)
	}

	var message string
	if job.TotalRows != nil {
		message = fmt.Sprintf("Processing row %d of %d...", job.ProcessedRows+processed, *job.TotalRows)
	} else {
		message = fmt.Sprintf("Processing row %d...", job.ProcessedRows+processed)
	}
	return tracker.RecordBatch(ctx, processed, created, updated, failed, message)
}

// applyBatch performs the set-based upsert. A row-scoped constraint failure
// retries the batch row-by-row so only the offending rows are reported as
// errors; anything else aborts the job.
func (p *Pipeline) applyBatch(ctx context.Context, batch *Batch, columns []string) (created, updated int64, rowErrors []RowError, err error) {
	if len(batch.Records) == 0 {
		return 0, batch.DuplicateRows, nil, nil
	}

	result, err := p.products.BulkUpsert(ctx, batch.Records, columns)
	if err == nil {
		return result.Created, result.Updated + batch.DuplicateRows, nil, nil
	}
	if !p.products.IsRowScopedError(err) {
		return 0, 0, nil, err
	}

	p.logger.Warn("batch upsert hit a constraint violation, retrying row by row", zap.Error(err))

	for _, record := range batch.Records {
		wasCreated, oneErr := p.products.UpsertOne(ctx, record, columns)
		if oneErr != nil {
			if p.products.IsRowScopedError(oneErr) {
				rowErrors = append(rowErrors, RowError{
					RowNumber: record.RowNumber,
					Field:     ColumnSKU,
					Reason:    oneErr.Error(),
				})
				continue
			}
			return 0, 0, nil, oneErr
		}
		if wasCreated {
			created++
		} else {
			updated++
		}
	}
	return created, updated + batch.DuplicateRows, rowErrors, nil
}

// persistRowErrors stores a bounded sample of row errors for surfacing.
func (p *Pipeline) persistRowErrors(ctx context.Context, jobID uuid.UUID, rowErrors []RowError, persistedCount *int64) error {
	if len(rowErrors) == 0 || *persistedCount >= maxPersistedRowErrors {
		return nil
	}

	var records []models.ImportRowError
	for _, rowErr := range rowErrors {
		if *persistedCount >= maxPersistedRowErrors {
			break
		}
		var raw datatypes.JSON
		if rowErr.Raw != nil {
			if data, err := json.Marshal(rowErr.Raw); err == nil {
				raw = datatypes.JSON(data)
			}
		}
		records = append(records, models.ImportRowError{
			ID:        uuid.New(),
			JobID:     jobID,
			RowNumber: rowErr.RowNumber,
			Field:     rowErr.Field,
			Reason:    rowErr.Reason,
			RawData:   raw,
		})
		*persistedCount++
	}
	return p.jobs.SaveRowErrors(ctx, records)
}

func (p *Pipeline) failJob(ctx context.Context, tracker *ProgressTracker, job *models.ImportJob, cause error) {
	p.logger.Error("import job failed",
		zap.String("jobID", job.ID.String()),
		zap.Error(cause),
	)

	message := fmt.Sprintf("Import failed: %v", cause)
	if err := tracker.Fail(ctx, cause, message); err != nil {
		p.logger.Error("failed to record import failure",
			zap.String("jobID", job.ID.String()),
			zap.Error(err),
		)
	}

	p.dispatcher.Dispatch(ctx, webhook_services.EventImportFailed, map[string]interface{}{
		"job_id":         job.ID.String(),
		"error":          cause.Error(),
		"processed_rows": job.ProcessedRows,
	})
}

func openRowSource(format models.ImportSourceFormat, filePath string) (RowSource, error) {
	switch format {
	case models.ImportSourceXLSX:
		return NewXLSXRowSource(filePath)
	default:
		f, err := os.Open(filePath)
		if err != nil {
			return nil, err
		}
		return NewCSVRowSource(f)
	}
}

// countDataRows streams through the file once to count data rows (excluding
// the header), so progress percentage can be derived from the first batch on.
func countDataRows(format models.ImportSourceFormat, filePath string) (int64, error) {
	source, err := openRowSource(format, filePath)
	if err != nil {
		return 0, err
	}
	defer source.Close()

	var total int64
	for {
		_, err := source.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return 0, err
			}
		}
		// Rows that fail to decode still count toward the total.
		total++
	}
	return total, nil
}
