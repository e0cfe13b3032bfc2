package models

import "time"

// Thread represents a conversation container owned by one user.
type Thread struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"`                                // Owning user ID.
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"` // Owning user record.

	Title    *string `gorm:"type:varchar(255)"` // Display title, nil until set from the first user message.
	GroupTag *string `gorm:"type:text;index"`   // Optional external grouping tag.

	Messages []Message `gorm:"foreignKey:ThreadID"` // Messages in creation order.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Bumped on every message append.
}
