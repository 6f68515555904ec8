// imports/services/snapshot_loader.go
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StatusService reads the current progress snapshot of a job: cache first,
// database as fallback. Running jobs are normally served from Redis; a
// cache miss (expired key, restarted Redis) falls back to the persisted
// counters, which are always at least as old as the cache entry.
type StatusService struct {
	jobs   JobStore
	cache  SnapshotCache
	logger *zap.Logger
}

func NewStatusService(jobs JobStore, cache SnapshotCache, logger *zap.Logger) *StatusService {
	return &StatusService{jobs: jobs, cache: cache, logger: logger}
}

func (s *StatusService) GetSnapshot(ctx context.Context, jobID uuid.UUID) (*Snapshot, error) {
	snapshot, err := s.cache.GetSnapshot(ctx, jobID.String())
	if err != nil {
		s.logger.Warn("Progress cache read failed, falling back to database",
			zap.String("job_id", jobID.String()),
			zap.Error(err))
	}
	if snapshot != nil {
		return snapshot, nil
	}

	job, err := s.jobs.GetImportJob(ctx, jobID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to load import job: %w", err)
	}

	fromJob := SnapshotFromJob(job)
	return &fromJob, nil
}
