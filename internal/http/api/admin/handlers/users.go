package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	dbutil "github.com/edchat-io/edchat/internal/db"
	"github.com/edchat-io/edchat/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UserHandler serves read-only user views for the back office.
type UserHandler struct {
	db *gorm.DB
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

func userJSON(u *models.User) gin.H {
	return gin.H{
		"id":                 u.ID,
		"username":           u.Username,
		"email":              u.Email,
		"plan":               u.Plan,
		"plan_status":        u.PlanStatus,
		"plan_renews_at":     u.PlanRenewsAt,
		"subscription_tier":  u.SubscriptionTier,
		"stripe_customer_id": u.StripeCustomerID,
		"is_admin":           u.IsAdmin,
		"created_at":         u.CreatedAt,
		"updated_at":         u.UpdatedAt,
	}
}

// List returns users with optional filters.
func (h *UserHandler) List(c *gin.Context) {
	var (
		searchQ = strings.TrimSpace(c.Query("search"))
		planQ   = strings.TrimSpace(c.Query("plan"))
	)

	q := h.db.WithContext(c.Request.Context()).Model(&models.User{})
	if searchQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+searchQ+"%")
		q = q.Where(
			dbutil.CaseInsensitiveLikeExpr(h.db, "username")+" OR "+
				dbutil.CaseInsensitiveLikeExpr(h.db, "email"),
			pattern,
			pattern,
		)
	}
	if planQ != "" {
		q = q.Where("plan = ?", strings.ToLower(planQ))
	}

	var rows []models.User
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list users failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, userJSON(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

// Get returns one user.
func (h *UserHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load user failed"})
		return
	}
	c.JSON(http.StatusOK, userJSON(&user))
}
