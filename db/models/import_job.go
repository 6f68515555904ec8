package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ImportJobStatus string

const (
	ImportStatusPending   ImportJobStatus = "pending"
	ImportStatusRunning   ImportJobStatus = "running"
	ImportStatusCompleted ImportJobStatus = "completed"
	ImportStatusFailed    ImportJobStatus = "failed"
)

// IsTerminal reports whether no further status transition is allowed.
func (s ImportJobStatus) IsTerminal() bool {
	return s == ImportStatusCompleted || s == ImportStatusFailed
}

type ImportSourceFormat string

const (
	ImportSourceCSV  ImportSourceFormat = "csv"
	ImportSourceXLSX ImportSourceFormat = "xlsx"
)

// ImportJob tracks one bulk product file import run. Counters are only
// advanced by the pipeline worker; readers see committed snapshots.
type ImportJob struct {
	ID           uuid.UUID          `gorm:"type:uuid;primary_key;" json:"id"`
	Filename     string             `gorm:"not null" json:"filename"`
	SourceFormat ImportSourceFormat `gorm:"type:varchar(10);default:'csv'" json:"source_format"`
	Status       ImportJobStatus    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	TotalRows     *int64 `json:"total_rows"`
	ProcessedRows int64  `gorm:"default:0" json:"processed_rows"`
	CreatedCount  int64  `gorm:"default:0" json:"created_count"`
	UpdatedCount  int64  `gorm:"default:0" json:"updated_count"`
	ErrorCount    int64  `gorm:"default:0" json:"error_count"`

	Message string  `json:"message"`
	Error   *string `gorm:"type:text" json:"error"`

	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// ProgressPercentage derives the completion percentage, clamped to [0, 100].
// Zero while the total row count is still unknown.
func (j *ImportJob) ProgressPercentage() float64 {
	if j.TotalRows == nil || *j.TotalRows <= 0 {
		return 0
	}
	pct := float64(j.ProcessedRows) / float64(*j.TotalRows) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// ImportRowError is one recorded row-level failure. Only a bounded sample is
// persisted per job; ImportJob.ErrorCount stays exact regardless.
type ImportRowError struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key;" json:"id"`
	JobID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"job_id"`
	RowNumber int64          `gorm:"not null" json:"row_number"` // 1-based, source-file-relative
	Field     string         `json:"field"`
	Reason    string         `gorm:"not null" json:"reason"`
	RawData   datatypes.JSON `json:"raw_data"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
}
