package utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"product-importer-backend/config"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const maxRetries = 3
const retryDelay = 2 * time.Minute

// CleanupExpiredUploads removes upload files older than the TTL. Files are
// normally deleted by the pipeline after processing; this sweeps the ones
// left behind by crashed or never-started jobs.
func CleanupExpiredUploads(uploadDir string, ttl time.Duration) error {
	entries, err := os.ReadDir(uploadDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error reading upload directory: %v", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) <= ttl {
			continue
		}
		path := filepath.Join(uploadDir, entry.Name())
		if err := os.Remove(path); err != nil {
			config.Logger.Warn("Failed to remove expired upload", zap.String("path", path), zap.Error(err))
			continue
		}
		config.Logger.Info("Expired upload removed", zap.String("path", path))
	}
	return nil
}

// CleanupOrphanedProgressKeys expires progress cache entries whose TTL was
// lost, e.g. after a PERSIST or a partial restore.
func CleanupOrphanedProgressKeys(ctx context.Context, redisClient *redis.Client) error {
	iter := redisClient.Scan(ctx, 0, "import_progress:*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		ttl, err := redisClient.TTL(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("error checking TTL for %s: %v", key, err)
		}
		if ttl == -1 {
			if err := redisClient.Expire(ctx, key, time.Hour).Err(); err != nil {
				return fmt.Errorf("error re-expiring %s: %v", key, err)
			}
			config.Logger.Info("Re-applied TTL to orphaned progress key", zap.String("key", key))
		}
	}
	return iter.Err()
}

// CleanupAllExpired sweeps leftover upload files and orphaned cache entries.
func CleanupAllExpired(uploadDir string, fileTTL time.Duration, redisClient *redis.Client) error {
	if err := CleanupExpiredUploads(uploadDir, fileTTL); err != nil {
		return err
	}
	return CleanupOrphanedProgressKeys(context.Background(), redisClient)
}

// RunScheduledCleanup runs the cleanup daily at 1 AM with retries.
func RunScheduledCleanup(redisClient *redis.Client, uploadDir string) {
	c := cron.New()

	c.AddFunc("0 1 * * *", func() {
		config.Logger.Info("Running scheduled cleanup task...")

		var retries int
		for retries < maxRetries {
			err := CleanupAllExpired(uploadDir, 24*time.Hour, redisClient)
			if err == nil {
				config.Logger.Info("Cleanup successful")
				return
			}
			config.Logger.Warn("Cleanup failed", zap.Int("attempt", retries+1), zap.Error(err))
			retries++
			time.Sleep(retryDelay)
		}
		config.Logger.Error("Cleanup task failed after retries", zap.Int("retries", retries))
	})

	c.Start()

	select {}
}
