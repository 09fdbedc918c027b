package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/motlatsimoea/fnd/internal/database"
	"github.com/motlatsimoea/fnd/internal/models"
)

// GetNotifications GET /notifications
func GetNotifications(c *gin.Context) {
	userID := c.MustGet("userId").(uint)

	var notifications []models.Notification
	if err := database.DB.Preload("Sender").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(50).
		Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}

	result := make([]gin.H, 0, len(notifications))
	for _, n := range notifications {
		result = append(result, gin.H{
			"notification_id":   n.ID,
			"sender_username":   n.Sender.Username,
			"notification_type": n.Type,
			"message":           n.Message,
			"post_id":           n.PostID,
			"comment_id":        n.CommentID,
			"review_id":         n.ReviewID,
			"inbox_id":          n.InboxID,
			"is_read":           n.IsRead,
			"timestamp":         n.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"notifications": result})
}

// GetUnreadCount GET /notifications/unread-count. The count is cached in
// redis and invalidated on create and mark-read.
func GetUnreadCount(c *gin.Context) {
	userID := c.MustGet("userId").(uint)

	cacheKey := database.UnreadCountKey(userID)
	var cached int64
	if err := database.CacheGet(cacheKey, &cached); err == nil {
		c.JSON(http.StatusOK, gin.H{"count": cached})
		return
	}

	var count int64
	if err := database.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count notifications"})
		return
	}

	_ = database.CacheSet(cacheKey, count, 5*time.Minute)
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// MarkNotificationRead PUT /notifications/:id/read
func MarkNotificationRead(c *gin.Context) {
	userID := c.MustGet("userId").(uint)
	notificationID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification id"})
		return
	}

	var notification models.Notification
	if err := database.DB.First(&notification, notificationID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	if notification.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	if !notification.IsRead {
		if err := database.DB.Model(&notification).Update("is_read", true).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark read"})
			return
		}
		database.InvalidateUnreadCount(userID)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Marked as read"})
}

// MarkAllNotificationsRead PUT /notifications/read-all
func MarkAllNotificationsRead(c *gin.Context) {
	userID := c.MustGet("userId").(uint)

	if err := database.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark read"})
		return
	}
	database.InvalidateUnreadCount(userID)

	c.JSON(http.StatusOK, gin.H{"message": "All marked as read"})
}

// DeleteNotification DELETE /notifications/:id
func DeleteNotification(c *gin.Context) {
	userID := c.MustGet("userId").(uint)
	notificationID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification id"})
		return
	}

	var notification models.Notification
	if err := database.DB.First(&notification, notificationID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	if notification.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	if err := database.DB.Delete(&notification).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete notification"})
		return
	}
	database.InvalidateUnreadCount(userID)

	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}
