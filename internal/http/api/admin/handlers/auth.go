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

// AuthHandler serves admin login endpoints.
type AuthHandler struct {
	db     *gorm.DB
	jwtCfg config.JWTConfig
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg}
}

// loginRequest defines the request body for admin login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginTOTPRequest defines the request body for the TOTP login step.
type loginTOTPRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

func (h *AuthHandler) authenticate(c *gin.Context, username, password string) *models.Admin {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing credentials"})
		return nil
	}

	var admin models.Admin
	errFind := h.db.WithContext(c.Request.Context()).
		Where("username = ?", username).
		First(&admin).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return nil
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return nil
	}
	if !admin.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin disabled"})
		return nil
	}
	if !security.VerifyPassword(admin.Password, password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return nil
	}
	return &admin
}

func (h *AuthHandler) issueToken(c *gin.Context, admin *models.Admin) {
	token, errToken := security.IssueAdminToken(h.jwtCfg.Secret, h.jwtCfg.Expiry, admin.ID)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"username": admin.Username,
	})
}

// Login authenticates an admin. Accounts with TOTP enrolled are directed
// to the TOTP step instead of receiving a token.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	admin := h.authenticate(c, body.Username, body.Password)
	if admin == nil {
		return
	}
	if admin.TOTPSecret != "" {
		c.JSON(http.StatusOK, gin.H{"mfa_required": true})
		return
	}
	h.issueToken(c, admin)
}

// LoginTOTP completes login for TOTP-enrolled admins.
func (h *AuthHandler) LoginTOTP(c *gin.Context) {
	var body loginTOTPRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	admin := h.authenticate(c, body.Username, body.Password)
	if admin == nil {
		return
	}
	if admin.TOTPSecret == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "totp not enrolled"})
		return
	}
	if !security.ValidateTOTP(admin.TOTPSecret, strings.TrimSpace(body.Code)) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}
	h.issueToken(c, admin)
}
