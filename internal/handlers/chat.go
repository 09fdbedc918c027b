package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/motlatsimoea/fnd/internal/database"
	"github.com/motlatsimoea/fnd/internal/models"
	"github.com/motlatsimoea/fnd/internal/services"
	"github.com/motlatsimoea/fnd/internal/store"
	"github.com/motlatsimoea/fnd/pkg/crypto"
	"github.com/motlatsimoea/fnd/pkg/logger"
	"gorm.io/gorm"
)

// ChatHandler serves the REST side of direct messaging. The socket path
// lives in internal/realtime; both share the same store and codec.
type ChatHandler struct {
	Store         store.Store
	Codec         *crypto.Codec
	Notifications *services.NotificationService
}

func NewChatHandler(st store.Store, codec *crypto.Codec, n *services.NotificationService) *ChatHandler {
	return &ChatHandler{Store: st, Codec: codec, Notifications: n}
}

type messageView struct {
	ID         uint      `json:"id"`
	SenderInfo gin.H     `json:"sender_info"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

// ListChats GET /chat — the user's inboxes with a decrypted last-message
// preview.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID := c.MustGet("userId").(uint)

	var inboxes []models.Inbox
	err := database.DB.Preload("Participants").
		Joins("JOIN inbox_participants ON inbox_participants.inbox_id = inboxes.id").
		Where("inbox_participants.user_id = ?", userID).
		Find(&inboxes).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch chats"})
		return
	}

	result := make([]gin.H, 0, len(inboxes))
	for _, inbox := range inboxes {
		entry := gin.H{
			"id":           inbox.ID,
			"unique_key":   inbox.UniqueKey,
			"participants": inbox.Participants,
			"last_message": nil,
		}

		var last models.Message
		if err := database.DB.Preload("Sender").
			Where("inbox_id = ?", inbox.ID).
			Order("created_at desc").
			First(&last).Error; err == nil {
			text, derr := h.Codec.Decrypt(last.EncryptedContent)
			if derr != nil {
				logger.Error().Err(derr).Uint("message_id", last.ID).Msg("Stored message unreadable")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read messages"})
				return
			}
			entry["last_message"] = gin.H{
				"id":              last.ID,
				"sender_id":       last.SenderID,
				"sender_username": last.Sender.Username,
				"text":            text,
				"timestamp":       last.CreatedAt,
			}
		}

		result = append(result, entry)
	}

	c.JSON(http.StatusOK, gin.H{"chats": result})
}

// GetMessages GET /chat/:id/messages — participant-only, decrypted.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID := c.MustGet("userId").(uint)
	chatID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid chat id"})
		return
	}

	member, err := h.Store.IsParticipant(userID, uint(chatID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch chat"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a participant of this chat"})
		return
	}

	var messages []models.Message
	if err := database.DB.Preload("Sender").
		Where("inbox_id = ?", chatID).
		Order("created_at asc").
		Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	result := make([]messageView, 0, len(messages))
	for _, msg := range messages {
		text, derr := h.Codec.Decrypt(msg.EncryptedContent)
		if derr != nil {
			logger.Error().Err(derr).Uint("message_id", msg.ID).Msg("Stored message unreadable")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read messages"})
			return
		}
		result = append(result, messageView{
			ID: msg.ID,
			SenderInfo: gin.H{
				"id":       msg.SenderID,
				"username": msg.Sender.Username,
			},
			Message:   text,
			Timestamp: msg.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"messages": result})
}

// SendMessage POST /chat/:id — :id is the recipient user. Creates the
// inbox lazily on first message, persists ciphertext, and dispatches a
// message-type notification carrying the text as preview.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	senderID := c.MustGet("userId").(uint)
	recipientID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipient id"})
		return
	}
	if uint(recipientID) == senderID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot start a chat with yourself"})
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	text := strings.TrimSpace(req.Message)
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message cannot be empty."})
		return
	}

	sender, err := h.Store.UserByID(senderID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	recipient, err := h.Store.UserByID(uint(recipientID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipient not found"})
		return
	}

	inbox, err := h.Store.GetOrCreateInbox(senderID, recipient.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open chat"})
		return
	}

	ciphertext, err := h.Codec.Encrypt(text)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}
	if _, err := h.Store.CreateMessage(inbox.ID, senderID, ciphertext); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	// Sender != recipient is already guaranteed above.
	if _, err := h.Notifications.Notify(recipient, sender, models.NotificationTypeMessage,
		services.Refs{InboxID: &inbox.ID}, text); err != nil {
		logger.Error().Err(err).Uint("inbox_id", inbox.ID).Msg("Message notification failed")
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Message sent successfully.", "inbox_id": inbox.ID})
}

// DeleteChat DELETE /chat/:id — participants only; messages go with it.
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	userID := c.MustGet("userId").(uint)
	chatID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid chat id"})
		return
	}

	var inbox models.Inbox
	if err := database.DB.First(&inbox, chatID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found."})
		return
	}

	member, err := h.Store.IsParticipant(userID, inbox.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete chat"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to delete this chat."})
		return
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("inbox_id = ?", inbox.ID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM inbox_participants WHERE inbox_id = ?", inbox.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&inbox).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete chat"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Chat deleted successfully."})
}
