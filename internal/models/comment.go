package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// DefaultGuestName is shown for comments whose author cannot be resolved.
const DefaultGuestName = "Guest"

var ErrAuthorAmbiguous = errors.New("comment needs exactly one of user or guest name")

// Comment authorship is either UserID or GuestName, never both and never
// neither. Use NewUserComment / NewGuestComment to build one.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	Post      Post      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID    *uint     `gorm:"index" json:"user_id"`
	User      *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user,omitempty"`
	GuestName *string   `gorm:"size:50" json:"guest_name"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewUserComment(postID, userID uint, content string) Comment {
	return Comment{PostID: postID, UserID: &userID, Content: content}
}

func NewGuestComment(postID uint, guestName, content string) Comment {
	return Comment{PostID: postID, GuestName: &guestName, Content: content}
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if (c.UserID == nil) == (c.GuestName == nil) {
		return ErrAuthorAmbiguous
	}
	return nil
}

// AuthorName is the label shown next to the comment.
func (c *Comment) AuthorName() string {
	if c.User != nil && c.User.Name != "" {
		return c.User.Name
	}
	if c.GuestName != nil && *c.GuestName != "" {
		return *c.GuestName
	}
	return DefaultGuestName
}

// OwnerID is the owning account, absent for guest comments.
func (c *Comment) OwnerID() *uint {
	return c.UserID
}
