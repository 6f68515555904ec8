package models

import (
	"time"

	"github.com/google/uuid"
)

// Webhook is an externally configured HTTP callback. Configuration lifecycle
// lives outside this service; the dispatcher only reads the configuration and
// updates the delivery-outcome fields.
type Webhook struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	URL       string    `gorm:"not null" json:"url"`
	EventType string    `gorm:"type:varchar(50);not null;index" json:"event_type"`
	Secret    *string   `json:"-"`
	IsEnabled bool      `gorm:"default:true;index" json:"is_enabled"`

	LastTriggeredAt    *time.Time `json:"last_triggered_at"`
	LastResponseCode   *int       `json:"last_response_code"`
	LastResponseTimeMs *int64     `json:"last_response_time_ms"`
	FailureCount       int        `gorm:"default:0" json:"failure_count"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
