// Package front registers the user-facing HTTP API.
package front

import (
	"net/http"
	"strings"

	"github.com/edchat-io/edchat/internal/billing"
	"github.com/edchat-io/edchat/internal/chat"
	"github.com/edchat-io/edchat/internal/config"
	handlers "github.com/edchat-io/edchat/internal/http/api/front/handlers"
	"github.com/edchat-io/edchat/internal/llm"
	"github.com/edchat-io/edchat/internal/models"
	"github.com/edchat-io/edchat/internal/ratelimit"
	"github.com/edchat-io/edchat/internal/roster"
	"github.com/edchat-io/edchat/internal/security"
	"github.com/edchat-io/edchat/internal/uploads"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps bundles the collaborators the front API needs.
type Deps struct {
	DB        *gorm.DB
	JWT       config.JWTConfig
	Features  config.FeatureConfig
	Chat      *chat.Service
	Billing   *billing.Service
	Stripe    *billing.Client
	StripeCfg config.StripeConfig
	Generator llm.Generator
	Storage   uploads.Storage
	Roster    *roster.Service
	Limiter   *ratelimit.Manager
}

// RegisterFrontRoutes registers front routes, middleware, and handlers.
func RegisterFrontRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(deps.DB)
	r.GET("/healthz", healthHandler.Healthz)

	authHandler := handlers.NewAuthHandler(deps.DB, deps.JWT)
	authGroup := r.Group("/api/v1/auth")
	authGroup.POST("/signup", authHandler.Signup)
	authGroup.POST("/register", authHandler.Signup)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", authHandler.Me)

	billingHandler := handlers.NewBillingHandler(deps.Billing, deps.Stripe, deps.StripeCfg, deps.Features)
	r.POST("/api/v1/billing/webhook", billingHandler.Webhook)

	authed := r.Group("/api")
	authed.Use(userAuthMiddleware(deps.DB, deps.JWT))
	if deps.Limiter != nil && deps.Limiter.Limit() > 0 {
		authed.Use(rateLimitMiddleware(deps.Limiter))
	}

	chatHandler := handlers.NewChatHandler(deps.Chat, deps.Generator, deps.Storage)
	authed.POST("/chats", chatHandler.Create)
	authed.GET("/chats", chatHandler.List)
	authed.DELETE("/chats/:id", chatHandler.Delete)
	authed.GET("/chats/:id/messages", chatHandler.Messages)
	authed.POST("/chats/:id/messages", chatHandler.AddMessage)
	authed.PUT("/chats/:id/messages", chatHandler.ReplaceMessages)
	authed.POST("/chats/:id/messages/image", chatHandler.AddImageMessage)
	authed.POST("/chats/:id/generate", chatHandler.Generate)

	conversationHandler := handlers.NewConversationHandler(deps.Chat)
	authed.POST("/conversations", conversationHandler.Create)
	authed.GET("/conversations", conversationHandler.List)
	authed.POST("/conversations/:id/messages", conversationHandler.AddMessage)
	authed.GET("/conversations/:id/messages", conversationHandler.Messages)

	authed.POST("/v1/billing/create-checkout-session", billingHandler.CreateCheckoutSession)
	authed.POST("/v1/billing/create-portal-session", billingHandler.CreatePortalSession)
	authed.GET("/v1/billing/me", billingHandler.Me)

	if deps.Features.Roster {
		rosterHandler := handlers.NewRosterHandler(deps.Roster)
		authed.GET("/v1/roster", rosterHandler.Get)
		authed.PUT("/v1/roster", rosterHandler.Put)
	}
}

// tokenFromRequest extracts the bearer token, falling back to the auth
// cookies set for browser clients.
func tokenFromRequest(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token != authHeader {
			return strings.TrimSpace(token)
		}
		return ""
	}
	for _, name := range []string{"access_token", "token"} {
		if cookie, errCookie := c.Cookie(name); errCookie == nil && cookie != "" {
			return cookie
		}
	}
	return ""
}

// userAuthMiddleware validates user JWTs and loads the account into the
// request context.
func userAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
			return
		}

		claims, errJWT := security.ParseUserToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token"})
			return
		}

		var user models.User
		if errFind := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "User not found"})
			return
		}

		c.Set(handlers.ContextUserKey, &user)
		c.Next()
	}
}

// rateLimitMiddleware enforces the per-user request rate after auth.
func rateLimitMiddleware(limiter *ratelimit.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := handlers.CurrentUser(c)
		if user == nil {
			c.Next()
			return
		}
		result, errAllow := limiter.Allow(c.Request.Context(), ratelimit.KeyForUser(user.ID))
		if errAllow != nil {
			c.Next()
			return
		}
		if !result.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}
