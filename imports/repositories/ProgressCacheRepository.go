package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"product-importer-backend/imports/services"
)

const (
	progressKeyPrefix = "import_progress:"
	progressTTL       = time.Hour
)

// ProgressCacheRepository keeps the latest committed snapshot per job in
// Redis so status queries and late stream joiners read fresh state without
// hitting the database.
type ProgressCacheRepository struct {
	client *redis.Client
}

func NewProgressCacheRepository(client *redis.Client) *ProgressCacheRepository {
	return &ProgressCacheRepository{client: client}
}

func (r *ProgressCacheRepository) SetSnapshot(ctx context.Context, snapshot services.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, progressKeyPrefix+snapshot.JobID, data, progressTTL).Err()
}

func (r *ProgressCacheRepository) GetSnapshot(ctx context.Context, jobID string) (*services.Snapshot, error) {
	data, err := r.client.Get(ctx, progressKeyPrefix+jobID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var snapshot services.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *ProgressCacheRepository) DeleteSnapshot(ctx context.Context, jobID string) error {
	return r.client.Del(ctx, progressKeyPrefix+jobID).Err()
}
