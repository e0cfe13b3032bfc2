package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/edchat-io/edchat/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ThreadHandler serves read-only thread views for the back office.
type ThreadHandler struct {
	db *gorm.DB
}

// NewThreadHandler constructs a ThreadHandler.
func NewThreadHandler(db *gorm.DB) *ThreadHandler {
	return &ThreadHandler{db: db}
}

func parsePathID(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return id, true
}

// ListByUser returns all threads of one user, newest first.
func (h *ThreadHandler) ListByUser(c *gin.Context) {
	userID, ok := parsePathID(c)
	if !ok {
		return
	}

	var rows []models.Thread
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list threads failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		t := &rows[i]
		out = append(out, gin.H{
			"id":         t.ID,
			"user_id":    t.UserID,
			"title":      t.Title,
			"group_tag":  t.GroupTag,
			"created_at": t.CreatedAt,
			"updated_at": t.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"threads": out})
}

// Get returns one thread with all its messages in order.
func (h *ThreadHandler) Get(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}

	var thread models.Thread
	errFind := h.db.WithContext(c.Request.Context()).First(&thread, id).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load thread failed"})
		return
	}

	var messages []models.Message
	if errList := h.db.WithContext(c.Request.Context()).
		Where("thread_id = ?", id).
		Order("created_at ASC, id ASC").
		Find(&messages).Error; errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load messages failed"})
		return
	}

	msgs := make([]gin.H, 0, len(messages))
	for i := range messages {
		m := &messages[i]
		msgs = append(msgs, gin.H{
			"id":         m.ID,
			"role":       m.Role,
			"content":    m.Content,
			"image_url":  m.ImageURL,
			"created_at": m.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         thread.ID,
		"user_id":    thread.UserID,
		"title":      thread.Title,
		"group_tag":  thread.GroupTag,
		"created_at": thread.CreatedAt,
		"updated_at": thread.UpdatedAt,
		"messages":   msgs,
	})
}
