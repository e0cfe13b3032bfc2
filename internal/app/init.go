package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/edchat-io/edchat/internal/config"
	"github.com/edchat-io/edchat/internal/models"
	"github.com/edchat-io/edchat/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EnsureBootstrapAdmin creates the first admin account from the
// ADMIN_USERNAME / ADMIN_PASSWORD environment variables. It is a no-op
// when an admin already exists or the variables are unset.
func EnsureBootstrapAdmin(conn *gorm.DB) error {
	var count int64
	if errCount := conn.Model(&models.Admin{}).Count(&count).Error; errCount != nil {
		return fmt.Errorf("app: count admins: %w", errCount)
	}
	if count > 0 {
		return nil
	}

	username := strings.TrimSpace(os.Getenv(config.EnvAdminUsername))
	password := os.Getenv(config.EnvAdminPassword)
	if username == "" || password == "" {
		log.Warn("no admin account exists and no bootstrap credentials are set")
		return nil
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return fmt.Errorf("app: hash bootstrap password: %w", errHash)
	}
	admin := models.Admin{
		Username: username,
		Password: hash,
		Active:   true,
	}
	if errCreate := conn.Create(&admin).Error; errCreate != nil {
		return fmt.Errorf("app: create bootstrap admin: %w", errCreate)
	}
	log.WithField("username", username).Info("bootstrap admin created")
	return nil
}
