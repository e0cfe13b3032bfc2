package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/edchat-io/edchat/internal/chat"
	"github.com/edchat-io/edchat/internal/llm"
	"github.com/edchat-io/edchat/internal/models"
	"github.com/edchat-io/edchat/internal/uploads"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// maxMessageLength bounds a single text message.
const maxMessageLength = 4000

// ChatHandler serves the chat sidebar and message endpoints.
type ChatHandler struct {
	chats     *chat.Service
	generator llm.Generator
	storage   uploads.Storage
}

// NewChatHandler constructs a ChatHandler.
func NewChatHandler(chats *chat.Service, generator llm.Generator, storage uploads.Storage) *ChatHandler {
	return &ChatHandler{chats: chats, generator: generator, storage: storage}
}

// parseID parses the :id path parameter.
func parseID(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Chat not found"})
		return 0, false
	}
	return id, true
}

// threadTitle renders the display title with its fallback.
func threadTitle(t *models.Thread) string {
	if t.Title != nil && *t.Title != "" {
		return *t.Title
	}
	return chat.FallbackTitle
}

// messageJSON renders one message row.
func messageJSON(m *models.Message) gin.H {
	out := gin.H{
		"id":         m.ID,
		"thread_id":  m.ThreadID,
		"role":       m.Role,
		"content":    m.Content,
		"created_at": m.CreatedAt,
	}
	if m.ImageURL != nil {
		out["image_url"] = *m.ImageURL
		out["image_mime_type"] = m.ImageMIMEType
		out["image_size_bytes"] = m.ImageSizeBytes
	}
	return out
}

// Create creates an empty chat. The response carries both chat_id and id
// for client compatibility.
func (h *ChatHandler) Create(c *gin.Context) {
	user := CurrentUser(c)
	thread, errCreate := h.chats.CreateThread(c.Request.Context(), user.ID, nil)
	if errCreate != nil {
		respondChatError(c, errCreate)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"chat_id":    thread.ID,
		"id":         thread.ID,
		"title":      thread.Title,
		"created_at": thread.CreatedAt,
		"updated_at": thread.UpdatedAt,
	})
}

// List returns the user's chats, most recently updated first.
func (h *ChatHandler) List(c *gin.Context) {
	user := CurrentUser(c)
	var groupTag *string
	if tag := strings.TrimSpace(c.Query("group")); tag != "" {
		groupTag = &tag
	}
	threads, errList := h.chats.ListThreads(c.Request.Context(), user.ID, groupTag)
	if errList != nil {
		respondChatError(c, errList)
		return
	}
	out := make([]gin.H, 0, len(threads))
	for i := range threads {
		t := &threads[i]
		out = append(out, gin.H{
			"id":         t.ID,
			"chat_id":    t.ID,
			"title":      threadTitle(t),
			"created_at": t.CreatedAt,
			"updated_at": t.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

// Delete removes a chat and its messages.
func (h *ChatHandler) Delete(c *gin.Context) {
	user := CurrentUser(c)
	id, ok := parseID(c)
	if !ok {
		return
	}
	if errDelete := h.chats.DeleteThread(c.Request.Context(), id, user.ID); errDelete != nil {
		respondChatError(c, errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Messages returns all messages of a chat in order.
func (h *ChatHandler) Messages(c *gin.Context) {
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
		out = append(out, messageJSON(&messages[i]))
	}
	c.JSON(http.StatusOK, out)
}

// addMessageRequest defines the request body for a message append.
type addMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AddMessage appends a message row. The response echoes the chat title so
// clients can pick up a title set by the first user message.
func (h *ChatHandler) AddMessage(c *gin.Context) {
	user := CurrentUser(c)
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body addMessageRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid json"})
		return
	}
	role := strings.TrimSpace(body.Role)
	if role == "" {
		role = models.RoleUser
	}
	if body.Content == "" || len(body.Content) > maxMessageLength {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "Invalid message length"})
		return
	}

	message, errAppend := h.chats.AppendMessage(c.Request.Context(), id, user.ID, role, body.Content)
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
		"message":    messageJSON(message),
		"chat_title": thread.Title,
	})
}

// AddImageMessage attaches an uploaded image as a message. Accepts
// multipart/form-data with a file part plus optional content and role.
func (h *ChatHandler) AddImageMessage(c *gin.Context) {
	user := CurrentUser(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	role := strings.TrimSpace(c.PostForm("role"))
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleAssistant {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "Invalid role"})
		return
	}
	content := c.PostForm("content")

	fileHeader, errFile := c.FormFile("file")
	if errFile != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Missing file"})
		return
	}
	file, errOpen := fileHeader.Open()
	if errOpen != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Unreadable file"})
		return
	}
	defer func() { _ = file.Close() }()

	saved, errSave := h.storage.Save(c.Request.Context(), fileHeader.Header.Get("Content-Type"), file)
	if errSave != nil {
		switch errSave {
		case uploads.ErrUnsupportedType:
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"detail": "Unsupported image type"})
		case uploads.ErrTooLarge:
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"detail": "File too large"})
		default:
			log.WithError(errSave).Error("image upload failed")
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Upload failed"})
		}
		return
	}

	message, errAppend := h.chats.AppendImageMessage(c.Request.Context(), id, user.ID, role, content, chat.Attachment{
		URL:       saved.URL,
		MIMEType:  saved.MIMEType,
		SizeBytes: saved.Size,
	})
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
		"message":    messageJSON(message),
		"chat_title": thread.Title,
	})
}

// replaceMessagesRequest defines the legacy bulk-save body.
type replaceMessagesRequest struct {
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// ReplaceMessages is the legacy bulk save: the stored history is replaced
// wholesale with the submitted list.
func (h *ChatHandler) ReplaceMessages(c *gin.Context) {
	user := CurrentUser(c)
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body replaceMessagesRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid json"})
		return
	}

	inputs := make([]chat.MessageInput, 0, len(body.Messages))
	for _, m := range body.Messages {
		inputs = append(inputs, chat.MessageInput{Role: m.Role, Content: m.Content})
	}
	if errReplace := h.chats.ReplaceMessages(c.Request.Context(), id, user.ID, inputs); errReplace != nil {
		respondChatError(c, errReplace)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "count": len(inputs)})
}

// generateRequest defines the body for an inference round trip.
type generateRequest struct {
	Message string `json:"message"`
}

// Generate persists the user message, runs inference over the plan-aware
// context window, and persists the assistant reply.
func (h *ChatHandler) Generate(c *gin.Context) {
	user := CurrentUser(c)
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body generateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid json"})
		return
	}
	if body.Message == "" || len(body.Message) > maxMessageLength {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "Invalid message length"})
		return
	}

	// Context is captured before the new user message lands so the prompt
	// carries prior history plus the incoming text exactly once.
	contextMessages, errContext := h.chats.ContextMessages(c.Request.Context(), id, user.ID)
	if errContext != nil {
		respondChatError(c, errContext)
		return
	}

	userMessage, errAppend := h.chats.AppendMessage(c.Request.Context(), id, user.ID, models.RoleUser, body.Message)
	if errAppend != nil {
		respondChatError(c, errAppend)
		return
	}

	reply, errGenerate := h.generator.Generate(c.Request.Context(), llm.BuildMessages(contextMessages, body.Message))
	if errGenerate != nil {
		log.WithError(errGenerate).Error("inference failed")
		c.JSON(http.StatusBadGateway, gin.H{"detail": "Model backend error"})
		return
	}

	assistantMessage, errReply := h.chats.AppendMessage(c.Request.Context(), id, user.ID, models.RoleAssistant, reply)
	if errReply != nil {
		respondChatError(c, errReply)
		return
	}

	thread, errGet := h.chats.GetThread(c.Request.Context(), id, user.ID)
	if errGet != nil {
		respondChatError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    messageJSON(userMessage),
		"reply":      messageJSON(assistantMessage),
		"chat_title": thread.Title,
	})
}
