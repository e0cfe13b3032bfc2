package handlers

import (
	"net/http"

	"github.com/edchat-io/edchat/internal/roster"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RosterHandler serves the per-user roster document.
type RosterHandler struct {
	service *roster.Service
}

// NewRosterHandler constructs a RosterHandler.
func NewRosterHandler(service *roster.Service) *RosterHandler {
	return &RosterHandler{service: service}
}

// Get returns the user's roster cards.
func (h *RosterHandler) Get(c *gin.Context) {
	user := CurrentUser(c)
	cards, errGet := h.service.Cards(c.Request.Context(), user.ID)
	if errGet != nil {
		log.WithError(errGet).Error("roster load failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cards": cards})
}

// putRosterRequest defines the body for a roster replace.
type putRosterRequest struct {
	Cards []roster.Card `json:"cards"`
}

// Put replaces the user's roster and returns what was stored.
func (h *RosterHandler) Put(c *gin.Context) {
	user := CurrentUser(c)
	var body putRosterRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid json"})
		return
	}
	stored, errPut := h.service.PutCards(c.Request.Context(), user.ID, body.Cards)
	if errPut != nil {
		log.WithError(errPut).Error("roster save failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cards": stored})
}
