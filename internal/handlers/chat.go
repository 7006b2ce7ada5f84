package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"memochat/internal/models"
	"memochat/internal/service"
)

// ChatHandler manages chat endpoints.
type ChatHandler struct {
	core service.Core
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(core service.Core) *ChatHandler {
	return &ChatHandler{core: core}
}

// ListChats returns every local chat.
func (h *ChatHandler) ListChats(c *gin.Context) {
	chats, err := h.core.AllChats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}
	if chats == nil {
		chats = []models.Chat{}
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// StartChat broadcasts a new chat to to_address.
func (h *ChatHandler) StartChat(c *gin.Context) {
	var req struct {
		ToAddress        string  `json:"to_address" binding:"required"`
		VerificationText string  `json:"verification_text" binding:"required"`
		Alias            *string `json:"alias"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, err := h.core.NewChat(c.Request.Context(), req.ToAddress, req.VerificationText, req.Alias)
	if err != nil {
		respondError(c, err, gin.H{"chat": chat})
		return
	}
	c.JSON(http.StatusCreated, chat)
}

// GetChatMessages returns the messages of a chat.
func (h *ChatHandler) GetChatMessages(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	msgs, err := h.core.AllMessages(c.Request.Context(), chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostChatMessage sends a text message to the other party of a chat.
func (h *ChatHandler) PostChatMessage(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.core.SendMessage(c.Request.Context(), chatID, req.Text)
	if err != nil {
		respondError(c, err, gin.H{"message": msg})
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// UpdateAlias sets or clears the local alias of a chat.
func (h *ChatHandler) UpdateAlias(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	var req struct {
		Alias *string `json:"alias"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, err := h.core.UpdateAlias(c.Request.Context(), chatID, req.Alias)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, chat)
}

// VerifyChat checks the verification text the user received out of band.
func (h *ChatHandler) VerifyChat(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	var req struct {
		VerificationText string `json:"verification_text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, err := h.core.VerifyChat(c.Request.Context(), chatID, req.VerificationText)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, chat)
}

func parseChatID(c *gin.Context) (int64, bool) {
	chatID, err := strconv.ParseInt(c.Param("chat_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return 0, false
	}
	return chatID, true
}
