package services

import (
	"time"

	"github.com/motlatsimoea/fnd/internal/database"
	"github.com/motlatsimoea/fnd/internal/models"
	"github.com/motlatsimoea/fnd/internal/realtime"
	"github.com/motlatsimoea/fnd/internal/store"
	"github.com/motlatsimoea/fnd/pkg/logger"
)

// NotificationService persists notifications and pushes them to the
// recipient's live sessions. Persistence commits first; the push is
// best-effort, so a crash in between loses only the live frame, never
// the durable record.
type NotificationService struct {
	store store.Store
	hub   *realtime.Hub
}

func NewNotificationService(st store.Store, hub *realtime.Hub) *NotificationService {
	return &NotificationService{store: st, hub: hub}
}

// Refs carries the optional originating-entity references. At most the
// one relevant to the notification type is populated.
type Refs struct {
	PostID    *uint
	CommentID *uint
	ReviewID  *uint
	InboxID   *uint
}

// Payload is the frame pushed to the recipient's notification channel.
type Payload struct {
	Event            string                  `json:"event"`
	NotificationID   uint                    `json:"notification_id"`
	SenderUsername   string                  `json:"sender_username"`
	NotificationType models.NotificationType `json:"notification_type"`
	Message          string                  `json:"message"`
	PostID           *uint                   `json:"post_id,omitempty"`
	CommentID        *uint                   `json:"comment_id,omitempty"`
	ReviewID         *uint                   `json:"review_id,omitempty"`
	InboxID          *uint                   `json:"inbox_id,omitempty"`
	IsRead           bool                    `json:"is_read"`
	Timestamp        time.Time               `json:"timestamp"`
}

// messageText maps a type to its fixed template. An explicit message is
// honored only for the message type, where it carries the chat text as a
// preview; for every other type the template always wins.
func messageText(ntype models.NotificationType, sender *models.User, explicit string) string {
	switch ntype {
	case models.NotificationTypeLike:
		return sender.Username + " liked your post."
	case models.NotificationTypeComment:
		return sender.Username + " commented on your post."
	case models.NotificationTypeReply:
		return sender.Username + " replied to your comment."
	case models.NotificationTypeReview:
		return sender.Username + " left a review on your product."
	case models.NotificationTypeReviewReply:
		return sender.Username + " replied to your review."
	case models.NotificationTypeMessage:
		if explicit != "" {
			return explicit
		}
		return "You have a new message from " + sender.Username + "."
	default:
		return explicit
	}
}

// Notify creates exactly one notification row, then pushes it to every
// open session on the recipient's channel. Callers are responsible for
// suppressing self-notification; each call creates a new row.
func (s *NotificationService) Notify(recipient, sender *models.User, ntype models.NotificationType, refs Refs, explicit string) (*models.Notification, error) {
	n := &models.Notification{
		UserID:    recipient.ID,
		SenderID:  sender.ID,
		Type:      ntype,
		PostID:    refs.PostID,
		CommentID: refs.CommentID,
		ReviewID:  refs.ReviewID,
		InboxID:   refs.InboxID,
		Message:   messageText(ntype, sender, explicit),
	}
	if err := s.store.CreateNotification(n); err != nil {
		logger.Error().Err(err).Uint("recipient", recipient.ID).Msg("Failed to persist notification")
		return nil, err
	}

	database.InvalidateUnreadCount(recipient.ID)

	s.hub.Broadcast(realtime.NotificationRoom(recipient.ID), Payload{
		Event:            "notification",
		NotificationID:   n.ID,
		SenderUsername:   sender.Username,
		NotificationType: n.Type,
		Message:          n.Message,
		PostID:           n.PostID,
		CommentID:        n.CommentID,
		ReviewID:         n.ReviewID,
		InboxID:          n.InboxID,
		IsRead:           n.IsRead,
		Timestamp:        n.CreatedAt,
	})

	return n, nil
}
