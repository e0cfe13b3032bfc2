package handlers

import (
	"net/http"

	"github.com/edchat-io/edchat/internal/chat"
	"github.com/edchat-io/edchat/internal/models"
	"github.com/gin-gonic/gin"
)

// ConversationHandler serves the conversation aliases over the same
// thread store as the chat endpoints.
type ConversationHandler struct {
	chats *chat.Service
}

// NewConversationHandler constructs a ConversationHandler.
func NewConversationHandler(chats *chat.Service) *ConversationHandler {
	return &ConversationHandler{chats: chats}
}

// Create creates a new conversation.
func (h *ConversationHandler) Create(c *gin.Context) {
	user := CurrentUser(c)
	thread, errCreate := h.chats.CreateThread(c.Request.Context(), user.ID, nil)
	if errCreate != nil {
		respondChatError(c, errCreate)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"conversation_id": thread.ID})
}

// List returns the user's conversations, newest to oldest by update time.
func (h *ConversationHandler) List(c *gin.Context) {
	user := CurrentUser(c)
	threads, errList := h.chats.ListThreads(c.Request.Context(), user.ID, nil)
	if errList != nil {
		respondChatError(c, errList)
		return
	}
	out := make([]gin.H, 0, len(threads))
	for i := range threads {
		t := &threads[i]
		out = append(out, gin.H{
			"id":         t.ID,
			"title":      t.Title,
			"updated_at": t.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

// conversationMessageRequest defines the body for a message append.
type conversationMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// conversationMessageJSON renders one message in the conversation shape.
func conversationMessageJSON(m *models.Message) gin.H {
	return gin.H{
		"id":              m.ID,
		"conversation_id": m.ThreadID,
		"role":            m.Role,
		"content":         m.Content,
		"created_at":      m.CreatedAt,
	}
}

// AddMessage saves a message. The first user message also titles the
// conversation; the response carries the possibly updated title.
func (h *ConversationHandler) AddMessage(c *gin.Context) {
	user := CurrentUser(c)
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body conversationMessageRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid json"})
		return
	}
	if body.Content == "" || len(body.Content) > maxMessageLength {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "Invalid message length"})
		return
	}

	message, errAppend := h.chats.AppendMessage(c.Request.Context(), id, user.ID, body.Role, body.Content)
	if errAppend != nil {
		respondChatError(c, errAppend)
		return
	}

	thread, errGet := h.chats.GetThread(c.Request.Context(), id, user.ID)
	if errGet != nil {
		respondChatError(c, errGet)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":            conversationMessageJSON(message),
		"conversation_title": thread.Title,
	})
}

// Messages returns all messages of a conversation in order.
func (h *ConversationHandler) Messages(c *gin.Context) {
	user := CurrentUser(c)
	id, ok := parseID(c)
	if !ok {
		return
	}
	messages, errList := h.chats.Messages(c.Request.Context(), id, user.ID)
	if errList != nil {
		respondChatError(c, errList)
		return
	}
	out := make([]gin.H, 0, len(messages))
	for i := range messages {
		out = append(out, conversationMessageJSON(&messages[i]))
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}
