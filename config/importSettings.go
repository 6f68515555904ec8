package config

import "time"

// ImportSettings carries the import pipeline tuning knobs. Values come from
// the environment with defaults suitable for files up to ~500K rows.
type ImportSettings struct {
	ChunkSize      int           // rows per upsert batch
	UploadDir      string        // where accepted upload files land
	WebhookTimeout time.Duration // outbound webhook round-trip budget
}

func LoadImportSettings() ImportSettings {
	return ImportSettings{
		ChunkSize:      GetEnvInt("IMPORT_CHUNK_SIZE", 5000),
		UploadDir:      GetEnvDefault("UPLOAD_DIR", "./uploads"),
		WebhookTimeout: time.Duration(GetEnvInt("WEBHOOK_TIMEOUT_SECONDS", 10)) * time.Second,
	}
}
