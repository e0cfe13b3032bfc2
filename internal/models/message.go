package models

import "time"

// Message roles.
const (
	// RoleUser marks a message authored by the thread owner.
	RoleUser = "user"
	// RoleAssistant marks a model-generated reply.
	RoleAssistant = "assistant"
	// RoleSystem marks internal messages excluded from plan limits.
	RoleSystem = "system"
)

// Message represents a single message belonging to one thread.
type Message struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	ThreadID uint64 `gorm:"not null;index"`                                  // Owning thread ID.
	Thread   Thread `gorm:"foreignKey:ThreadID;constraint:OnDelete:CASCADE"` // Owning thread record.

	Role    string `gorm:"type:varchar(20);not null"` // Message role (user|assistant|system).
	Content string `gorm:"type:text;not null"`        // Text content; empty allowed when an image carries the payload.

	ImageURL       *string `gorm:"type:text"`   // Attachment public URL.
	ImageMIMEType  *string `gorm:"type:text"`   // Attachment normalized MIME type.
	ImageSizeBytes *int64  `gorm:"type:bigint"` // Attachment size in bytes.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp; ordering key within a thread.
}
