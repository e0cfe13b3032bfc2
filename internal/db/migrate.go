package db

import (
	"fmt"

	"github.com/edchat-io/edchat/internal/models"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.Admin{},
		&models.User{},
		&models.Thread{},
		&models.Message{},
		&models.RosterState{},
		&models.WebhookEvent{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	// ddl defines an index or DDL statement to apply.
	type ddl struct {
		name string // Human-readable name for error reporting.
		sql  string // SQL to execute.
	}
	ddls := []ddl{
		{
			name: "idx_threads_user_id_updated_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_threads_user_id_updated_at
				ON threads (user_id, updated_at DESC)
			`,
		},
		{
			name: "idx_messages_thread_id_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_messages_thread_id_created_at
				ON messages (thread_id, created_at ASC, id ASC)
			`,
		},
		{
			name: "idx_messages_thread_id_role",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_messages_thread_id_role
				ON messages (thread_id, role)
			`,
		},
		{
			name: "idx_users_stripe_customer_id",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_users_stripe_customer_id
				ON users (stripe_customer_id)
			`,
		},
		{
			name: "idx_webhook_events_processed_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_webhook_events_processed_at
				ON webhook_events (processed_at DESC)
			`,
		},
	}
	for _, item := range ddls {
		if errDDL := conn.Exec(item.sql).Error; errDDL != nil {
			return fmt.Errorf("db: create index %s: %w", item.name, errDDL)
		}
	}

	return nil
}
