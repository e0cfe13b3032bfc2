package handlers

import (
	"errors"
	"net/http"

	"github.com/edchat-io/edchat/internal/chat"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// respondChatError maps store errors onto HTTP responses. Plan breaches
// carry a structured detail payload so clients can drive an upgrade flow;
// ownership mismatches are indistinguishable from missing threads.
func respondChatError(c *gin.Context, err error) {
	if limitErr, ok := chat.AsPlanLimitError(err); ok {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"detail": gin.H{
				"code":  limitErr.Code,
				"limit": limitErr.Limit,
			},
		})
		return
	}
	if errors.Is(err, chat.ErrThreadNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Chat not found"})
		return
	}
	if errors.Is(err, chat.ErrInvalidRole) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "Invalid role"})
		return
	}
	log.WithError(err).Error("chat request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal error"})
}
