package models

import (
	"time"

	"gorm.io/datatypes"
)

// RosterState stores a user's roster cards as a single JSON row.
type RosterState struct {
	UserID uint64 `gorm:"primaryKey"`                                    // Owning user ID.
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"` // Owning user record.

	Cards datatypes.JSON `gorm:"not null;default:'[]'"` // Card list as JSON.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
