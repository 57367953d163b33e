package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrLikeActorAmbiguous = errors.New("like needs exactly one of user or guest identifier")

// Like is owned by a user or by a guest token. NULLs are distinct in both
// unique indexes, so each index only constrains its own kind of identity.
type Like struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PostID          uint      `gorm:"not null;index;uniqueIndex:idx_likes_post_user;uniqueIndex:idx_likes_post_guest" json:"post_id"`
	Post            Post      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID          *uint     `gorm:"index;uniqueIndex:idx_likes_post_user" json:"user_id"`
	User            *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	GuestIdentifier *string   `gorm:"size:64;index;uniqueIndex:idx_likes_post_guest" json:"-"`
	CreatedAt       time.Time `json:"created_at"`
}

func (l *Like) BeforeCreate(tx *gorm.DB) error {
	if (l.UserID == nil) == (l.GuestIdentifier == nil) {
		return ErrLikeActorAmbiguous
	}
	return nil
}
