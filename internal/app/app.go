// Package app wires configuration, storage, and HTTP surfaces into a
// runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/edchat-io/edchat/internal/billing"
	"github.com/edchat-io/edchat/internal/chat"
	"github.com/edchat-io/edchat/internal/config"
	"github.com/edchat-io/edchat/internal/db"
	adminapi "github.com/edchat-io/edchat/internal/http/api/admin"
	"github.com/edchat-io/edchat/internal/http/api/front"
	"github.com/edchat-io/edchat/internal/llm"
	"github.com/edchat-io/edchat/internal/ratelimit"
	"github.com/edchat-io/edchat/internal/roster"
	"github.com/edchat-io/edchat/internal/uploads"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the chat backend with database-backed components.
func RunServer(ctx context.Context, cfg config.AppConfig, port int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errAdmin := EnsureBootstrapAdmin(conn); errAdmin != nil {
		return errAdmin
	}

	jwtCfg, errJWT := config.LoadJWTConfig(configPath)
	if errJWT != nil {
		return errJWT
	}
	stripeCfg, _ := config.LoadStripeConfig(configPath)
	llmCfg, _ := config.LoadLLMConfig(configPath)
	uploadCfg, _ := config.LoadUploadConfig(configPath)
	rateCfg, _ := config.LoadRateLimitConfig(configPath)
	featureCfg, _ := config.LoadFeatureConfig(configPath)

	storage, errStorage := buildStorage(ctx, uploadCfg)
	if errStorage != nil {
		return errStorage
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	if uploadCfg.Backend == "local" {
		engine.Static("/uploads/chat_images", uploadCfg.Dir)
	}

	front.RegisterFrontRoutes(engine, front.Deps{
		DB:        conn,
		JWT:       jwtCfg,
		Features:  featureCfg,
		Chat:      chat.NewService(conn),
		Billing:   billing.NewService(conn),
		Stripe:    billing.NewClient(conn, stripeCfg),
		StripeCfg: stripeCfg,
		Generator: llm.NewOpenAIGenerator(llmCfg),
		Storage:   storage,
		Roster:    roster.NewService(conn),
		Limiter:   ratelimit.NewManager(rateCfg, nil, nil),
	})
	adminapi.RegisterAdminRoutes(engine, conn, jwtCfg)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return fmt.Errorf("app: shutdown: %w", errShutdown)
		}
		return nil
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}

// buildStorage selects the attachment backend from configuration.
func buildStorage(ctx context.Context, cfg config.UploadConfig) (uploads.Storage, error) {
	if cfg.Backend == "s3" {
		return uploads.NewS3Storage(ctx, cfg)
	}
	return uploads.NewDiskStorage(cfg, "/uploads/chat_images")
}

// requestLogger logs each request with method, path, status, and latency.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Info("request")
	}
}

