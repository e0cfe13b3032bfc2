package models

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent records a processed billing event for idempotent delivery.
type WebhookEvent struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	EventID string `gorm:"type:text;not null;uniqueIndex"` // Provider event ID.
	Type    string `gorm:"type:text;not null"`             // Provider event type string.

	Payload datatypes.JSON `gorm:"type:jsonb"` // Raw event payload for audit.

	ProcessedAt time.Time `gorm:"not null;autoCreateTime"` // When the event was applied.
}
