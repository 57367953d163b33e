package models

import (
	"time"
)

type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusPublished PostStatus = "published"
)

func (s PostStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

type Post struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	User        User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	Title       string     `gorm:"size:150;not null" json:"title"`
	Body        string     `gorm:"type:text;not null" json:"body"`
	Status      PostStatus `gorm:"size:20;not null;default:'draft';index" json:"status"`
	PublishedAt *time.Time `gorm:"index" json:"published_at"` // set on first publish, never cleared
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SetStatus moves the post to status. The first move to published stamps
// PublishedAt; later transitions in either direction leave it alone.
func (p *Post) SetStatus(status PostStatus, now time.Time) {
	p.Status = status
	if status == StatusPublished && p.PublishedAt == nil {
		t := now
		p.PublishedAt = &t
	}
}

func (p *Post) IsPublished() bool {
	return p.Status == StatusPublished
}
