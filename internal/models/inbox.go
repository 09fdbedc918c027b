package models

import (
	"fmt"
	"time"
)

// Inbox is a private chat between exactly two users, addressed by a
// canonical key so concurrent create-or-get calls converge on one row.
type Inbox struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UniqueKey    string    `gorm:"uniqueIndex;not null" json:"unique_key"`
	Participants []User    `gorm:"many2many:inbox_participants" json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}

// Message stores ciphertext only. Plaintext exists in memory while a
// frame is being handled and is never written to the database.
type Message struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	InboxID          uint      `gorm:"index;not null" json:"inbox"`
	Inbox            Inbox     `gorm:"foreignKey:InboxID;constraint:OnDelete:CASCADE" json:"-"`
	SenderID         uint      `gorm:"index;not null" json:"sender"`
	Sender           User      `gorm:"foreignKey:SenderID" json:"-"`
	EncryptedContent string    `gorm:"type:text;not null" json:"-"`
	CreatedAt        time.Time `json:"timestamp"`
}

// ChatKey derives the canonical inbox key for a pair of users. The lower
// ID always comes first, so ChatKey(a, b) == ChatKey(b, a).
func ChatKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d_%d", a, b)
}
