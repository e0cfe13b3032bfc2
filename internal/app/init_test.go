package app

import (
	"fmt"
	"testing"

	"github.com/edchat-io/edchat/internal/config"
	"github.com/edchat-io/edchat/internal/models"
	"github.com/edchat-io/edchat/internal/security"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := conn.AutoMigrate(&models.Admin{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func TestEnsureBootstrapAdminCreatesAccount(t *testing.T) {
	conn := testDB(t)
	t.Setenv(config.EnvAdminUsername, "root")
	t.Setenv(config.EnvAdminPassword, "swordfish")

	if err := EnsureBootstrapAdmin(conn); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	var admin models.Admin
	if errFind := conn.Where("username = ?", "root").First(&admin).Error; errFind != nil {
		t.Fatalf("load admin: %v", errFind)
	}
	if !admin.Active {
		t.Fatal("bootstrap admin not active")
	}
	if !security.VerifyPassword(admin.Password, "swordfish") {
		t.Fatal("stored password does not verify")
	}
}

func TestEnsureBootstrapAdminSkipsWhenPresent(t *testing.T) {
	conn := testDB(t)
	existing := models.Admin{Username: "existing", Password: "x", Active: true}
	if errCreate := conn.Create(&existing).Error; errCreate != nil {
		t.Fatalf("seed: %v", errCreate)
	}
	t.Setenv(config.EnvAdminUsername, "root")
	t.Setenv(config.EnvAdminPassword, "swordfish")

	if err := EnsureBootstrapAdmin(conn); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	var count int64
	if errCount := conn.Model(&models.Admin{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("admin count = %d, want 1", count)
	}
}

func TestEnsureBootstrapAdminNoCredentials(t *testing.T) {
	conn := testDB(t)
	t.Setenv(config.EnvAdminUsername, "")
	t.Setenv(config.EnvAdminPassword, "")

	if err := EnsureBootstrapAdmin(conn); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	var count int64
	if errCount := conn.Model(&models.Admin{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("admin count = %d, want 0", count)
	}
}
