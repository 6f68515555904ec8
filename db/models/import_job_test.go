package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImportJobStatusIsTerminal(t *testing.T) {
	assert.False(t, ImportStatusPending.IsTerminal())
	assert.False(t, ImportStatusRunning.IsTerminal())
	assert.True(t, ImportStatusCompleted.IsTerminal())
	assert.True(t, ImportStatusFailed.IsTerminal())
}

func TestProgressPercentage(t *testing.T) {
	job := &ImportJob{}
	assert.Equal(t, float64(0), job.ProgressPercentage())

	total := int64(200)
	job.TotalRows = &total
	job.ProcessedRows = 50
	assert.Equal(t, float64(25), job.ProgressPercentage())

	job.ProcessedRows = 200
	assert.Equal(t, float64(100), job.ProgressPercentage())

	// Processed can momentarily exceed a stale total; never report over 100.
	job.ProcessedRows = 250
	assert.Equal(t, float64(100), job.ProgressPercentage())

	zero := int64(0)
	job.TotalRows = &zero
	assert.Equal(t, float64(0), job.ProgressPercentage())
}
