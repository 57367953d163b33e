package handlers

import (
	"time"

	"plaza/internal/models"
	"plaza/internal/services"
	"plaza/internal/utils"
)

const excerptRunes = 200

type authorView struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type postView struct {
	ID          uint        `json:"id"`
	Title       string      `json:"title"`
	Body        string      `json:"body,omitempty"`
	BodyHTML    string      `json:"body_html,omitempty"`
	Excerpt     string      `json:"excerpt,omitempty"`
	Status      string      `json:"status"`
	PublishedAt *time.Time  `json:"published_at"`
	Author      *authorView `json:"author,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type commentView struct {
	ID         uint      `json:"id"`
	AuthorName string    `json:"author_name"`
	UserID     *uint     `json:"user_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

type likeView struct {
	Liked  bool  `json:"liked"`
	LikeID *uint `json:"like_id"`
	Count  int64 `json:"count"`
}

func newPostView(p *models.Post, full bool) postView {
	v := postView{
		ID:          p.ID,
		Title:       p.Title,
		Status:      string(p.Status),
		PublishedAt: p.PublishedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.User.ID != 0 {
		v.Author = &authorView{ID: p.User.ID, Name: p.User.Name}
	}
	html := string(utils.RenderPostBody(p.Body))
	if full {
		v.Body = p.Body
		v.BodyHTML = html
	} else {
		v.Excerpt = utils.Excerpt(html, excerptRunes)
	}
	return v
}

func newCommentView(c *models.Comment) commentView {
	return commentView{
		ID:         c.ID,
		AuthorName: c.AuthorName(),
		UserID:     c.UserID,
		Content:    c.Content,
		CreatedAt:  c.CreatedAt,
	}
}

func newLikeView(s services.LikeStatus) likeView {
	return likeView{Liked: s.Liked, LikeID: s.LikeID, Count: s.Count}
}
