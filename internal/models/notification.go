package models

import "time"

type NotificationType string

const (
	NotificationTypeLike        NotificationType = "like"
	NotificationTypeComment     NotificationType = "comment"
	NotificationTypeReply       NotificationType = "reply"
	NotificationTypeReview      NotificationType = "review"
	NotificationTypeReviewReply NotificationType = "review_reply"
	NotificationTypeMessage     NotificationType = "message"
)

// Notification is the durable record of a single triggering event. At
// most one of the entity references is populated, depending on the type.
// IsRead only ever transitions false to true.
type Notification struct {
	ID       uint             `gorm:"primaryKey" json:"notification_id"`
	UserID   uint             `gorm:"index;not null" json:"-"` // recipient
	User     User             `gorm:"foreignKey:UserID" json:"-"`
	SenderID uint             `gorm:"index;not null" json:"-"`
	Sender   User             `gorm:"foreignKey:SenderID" json:"-"`
	Type     NotificationType `gorm:"column:notification_type;type:varchar(20);not null" json:"notification_type"`

	PostID    *uint `json:"post_id,omitempty"`
	CommentID *uint `json:"comment_id,omitempty"`
	ReviewID  *uint `json:"review_id,omitempty"`
	InboxID   *uint `json:"inbox_id,omitempty"`

	Message   string    `gorm:"type:text" json:"message"`
	IsRead    bool      `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time `json:"timestamp"`
}
