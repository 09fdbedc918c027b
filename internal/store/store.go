package store

import (
	"errors"

	"github.com/motlatsimoea/fnd/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a looked-up row does not exist or does not
// belong to the requesting user.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence contract the messaging core depends on. The
// realtime session handlers and the notification dispatcher only ever see
// this interface.
type Store interface {
	UserByID(id uint) (*models.User, error)
	GetOrCreateInbox(a, b uint) (*models.Inbox, error)
	InboxByKey(key string) (*models.Inbox, error)
	IsParticipant(userID, inboxID uint) (bool, error)
	CreateMessage(inboxID, senderID uint, ciphertext string) (*models.Message, error)
	CreateNotification(n *models.Notification) error
	MarkNotificationRead(id, userID uint) error
}

type gormStore struct {
	db *gorm.DB
}

// New wraps a gorm handle in the Store contract.
func New(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) UserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetOrCreateInbox finds or creates the two-party inbox for a pair of
// users. Both orderings of the pair converge on the same row because the
// unique key is canonical; a lost race on the unique index falls back to
// the winner's row.
func (s *gormStore) GetOrCreateInbox(a, b uint) (*models.Inbox, error) {
	if a == b {
		return nil, errors.New("store: an inbox needs two distinct participants")
	}
	key := models.ChatKey(a, b)

	var inbox models.Inbox
	err := s.db.Preload("Participants").Where("unique_key = ?", key).First(&inbox).Error
	if err == nil {
		return &inbox, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var users []models.User
	if err := s.db.Find(&users, []uint{a, b}).Error; err != nil {
		return nil, err
	}
	if len(users) != 2 {
		return nil, ErrNotFound
	}

	inbox = models.Inbox{UniqueKey: key}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&inbox).Error; err != nil {
			return err
		}
		return tx.Model(&inbox).Association("Participants").Append(&users)
	})
	if err != nil {
		// Unique-key violation: someone else created it first.
		var existing models.Inbox
		if ferr := s.db.Preload("Participants").Where("unique_key = ?", key).First(&existing).Error; ferr == nil {
			return &existing, nil
		}
		return nil, err
	}

	inbox.Participants = users
	return &inbox, nil
}

func (s *gormStore) InboxByKey(key string) (*models.Inbox, error) {
	var inbox models.Inbox
	err := s.db.Preload("Participants").Where("unique_key = ?", key).First(&inbox).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inbox, nil
}

func (s *gormStore) IsParticipant(userID, inboxID uint) (bool, error) {
	var count int64
	err := s.db.Table("inbox_participants").
		Where("inbox_id = ? AND user_id = ?", inboxID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *gormStore) CreateMessage(inboxID, senderID uint, ciphertext string) (*models.Message, error) {
	msg := models.Message{
		InboxID:          inboxID,
		SenderID:         senderID,
		EncryptedContent: ciphertext,
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *gormStore) CreateNotification(n *models.Notification) error {
	return s.db.Create(n).Error
}

// MarkNotificationRead flips is_read for a notification owned by userID.
// The transition is one-way; marking an already-read notification again
// is a no-op.
func (s *gormStore) MarkNotificationRead(id, userID uint) error {
	res := s.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var n models.Notification
		if err := s.db.First(&n, id).Error; err != nil || n.UserID != userID {
			return ErrNotFound
		}
	}
	return nil
}
