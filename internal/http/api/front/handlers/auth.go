package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/edchat-io/edchat/internal/config"
	"github.com/edchat-io/edchat/internal/models"
	"github.com/edchat-io/edchat/internal/security"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuthHandler serves signup, login, and auth status endpoints.
type AuthHandler struct {
	db     *gorm.DB
	jwtCfg config.JWTConfig
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg}
}

// signupRequest defines the request body for account creation.
type signupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup registers a new user account.
func (h *AuthHandler) Signup(c *gin.Context) {
	var body signupRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid json"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	username := strings.TrimSpace(body.Username)
	password := body.Password
	if email == "" || username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Missing email or username"})
		return
	}
	if len(password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Password must be at least 8 characters"})
		return
	}

	var existing int64
	if errCount := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("email = ? OR username = ?", email, username).
		Count(&existing).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Signup failed"})
		return
	}
	if existing > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Email or username already registered"})
		return
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Signup failed"})
		return
	}

	user := models.User{
		Email:            email,
		Username:         username,
		Password:         hash,
		Plan:             models.PlanBase,
		SubscriptionTier: models.TierBase,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&user).Error; errCreate != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Email or username already registered"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":       user.ID,
		"email":    user.Email,
		"username": user.Username,
		"plan":     user.Plan,
	})
}

// loginRequest defines the request body for login. The identifier may be
// a username or an email address.
type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a user and returns a bearer token. The token is
// also set as a cookie for browser clients.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid json"})
		return
	}
	identifier := strings.TrimSpace(body.Username)
	if identifier == "" {
		identifier = strings.ToLower(strings.TrimSpace(body.Email))
	}
	if identifier == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Missing credentials"})
		return
	}

	var user models.User
	errFind := h.db.WithContext(c.Request.Context()).
		Where("username = ? OR email = ?", identifier, strings.ToLower(identifier)).
		First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Incorrect username or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Login failed"})
		return
	}
	if !security.VerifyPassword(user.Password, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Incorrect username or password"})
		return
	}

	token, errToken := security.IssueUserToken(h.jwtCfg.Secret, h.jwtCfg.Expiry, user.ID)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Login failed"})
		return
	}

	c.SetCookie("access_token", token, int(h.jwtCfg.Expiry.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
			"plan":     user.Plan,
		},
	})
}

// Me reports the auth status for the presented token. Missing or invalid
// tokens yield authenticated=false rather than an error.
func (h *AuthHandler) Me(c *gin.Context) {
	unauthenticated := gin.H{"authenticated": false}

	token := ""
	authHeader := c.GetHeader("Authorization")
	if after := strings.TrimPrefix(authHeader, "Bearer "); after != authHeader {
		token = strings.TrimSpace(after)
	}
	if token == "" {
		for _, name := range []string{"access_token", "token"} {
			if cookie, errCookie := c.Cookie(name); errCookie == nil && cookie != "" {
				token = cookie
				break
			}
		}
	}
	if token == "" {
		c.JSON(http.StatusOK, unauthenticated)
		return
	}

	claims, errJWT := security.ParseUserToken(h.jwtCfg.Secret, token)
	if errJWT != nil {
		c.JSON(http.StatusOK, unauthenticated)
		return
	}
	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; errFind != nil {
		c.JSON(http.StatusOK, unauthenticated)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated":     true,
		"user_id":           user.ID,
		"username":          user.Username,
		"email":             user.Email,
		"subscription_tier": user.SubscriptionTier,
	})
}
