package handlers

import (
	"github.com/edchat-io/edchat/internal/models"
	"github.com/gin-gonic/gin"
)

// ContextUserKey is the gin context key holding the authenticated user.
const ContextUserKey = "currentUser"

// CurrentUser returns the authenticated user set by the auth middleware,
// or nil when the request is unauthenticated.
func CurrentUser(c *gin.Context) *models.User {
	value, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}
