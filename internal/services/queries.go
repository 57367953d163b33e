package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"plaza/internal/identity"
	"plaza/internal/models"
	"plaza/internal/utils"

	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Page struct {
	Posts      []models.Post
	NextCursor string
}

type LikeStatus struct {
	Liked  bool
	LikeID *uint
	Count  int64
}

type PostDetail struct {
	Post     models.Post
	Comments []models.Comment
	Likes    LikeStatus
}

// Queries is the read side used by the views.
type Queries struct {
	db    *gorm.DB
	cache *utils.Cache
	ttl   time.Duration
}

func NewQueries(db *gorm.DB, cache *utils.Cache, ttl time.Duration) *Queries {
	return &Queries{db: db, cache: cache, ttl: ttl}
}

// ListPublished returns published posts, newest publish first. The cursor
// from one page resumes the listing after its last post.
func (q *Queries) ListPublished(ctx context.Context, limit int, cursor string) (Page, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	after, err := decodeCursor(cursor)
	if err != nil {
		return Page{}, err
	}

	var key string
	if q.cache != nil {
		key = q.cache.Key(publishedNamespace, limit, cursor)
		if cached, ok := q.cache.Get(key).(Page); ok {
			return clonePage(cached), nil
		}
	}

	query := q.db.WithContext(ctx).Preload("User").
		Where("status = ? AND published_at IS NOT NULL", models.StatusPublished)
	if after != nil {
		query = query.Where("(published_at < ? OR (published_at = ? AND id < ?))", after.at, after.at, after.id)
	}

	var posts []models.Post
	if err := query.Order("published_at DESC, id DESC").Limit(limit + 1).Find(&posts).Error; err != nil {
		return Page{}, err
	}

	page := Page{Posts: posts}
	if len(posts) > limit {
		page.Posts = posts[:limit]
		last := page.Posts[limit-1]
		page.NextCursor = encodeCursor(*last.PublishedAt, last.ID)
	}

	if q.cache != nil {
		q.cache.Set(key, page, q.ttl)
	}
	return clonePage(page), nil
}

// LikeStatus answers "has this actor liked the post" with the same identity
// key Like and Unlike use.
func (q *Queries) LikeStatus(ctx context.Context, actor identity.Actor, postID uint) (LikeStatus, error) {
	var st LikeStatus
	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := visiblePost(tx, actor, postID); err != nil {
			return err
		}
		var err error
		st, err = likeStatus(tx, actor, postID)
		return err
	})
	return st, err
}

// ShowPost loads a post with its comments and the actor's like status.
// Drafts are only visible to actors that could edit them.
func (q *Queries) ShowPost(ctx context.Context, actor identity.Actor, postID uint) (*PostDetail, error) {
	detail := &PostDetail{}
	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := visiblePost(tx.Preload("User"), actor, postID)
		if err != nil {
			return err
		}
		detail.Post = *post

		if err := tx.Preload("User").Where("post_id = ?", postID).
			Order("created_at ASC, id ASC").Find(&detail.Comments).Error; err != nil {
			return err
		}

		detail.Likes, err = likeStatus(tx, actor, postID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func likeStatus(tx *gorm.DB, actor identity.Actor, postID uint) (LikeStatus, error) {
	var st LikeStatus
	like, err := findLike(tx, postID, actor)
	switch {
	case err == nil:
		st.Liked = true
		st.LikeID = &like.ID
	case !errors.Is(err, ErrNotFound):
		return st, err
	}
	st.Count, err = countLikes(tx, postID)
	return st, err
}

// visiblePost loads a post the actor is allowed to see: any published post,
// or a draft the actor could mutate.
func visiblePost(tx *gorm.DB, actor identity.Actor, postID uint) (*models.Post, error) {
	var post models.Post
	if err := tx.First(&post, postID).Error; err != nil {
		return nil, notFound(err)
	}
	if !post.IsPublished() && !CanMutate(actor, &post.UserID) {
		return nil, ErrNotFound
	}
	return &post, nil
}

type cursorPos struct {
	at time.Time
	id uint
}

func encodeCursor(at time.Time, id uint) string {
	raw := fmt.Sprintf("%d:%d", at.UTC().UnixNano(), id)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (*cursorPos, error) {
	if cursor == "" {
		return nil, nil
	}
	invalid := &ValidationError{}
	invalid.Add("cursor", "Cursor is invalid")

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, invalid
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return nil, invalid
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, invalid
	}
	id, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return nil, invalid
	}
	return &cursorPos{at: time.Unix(0, nanos).UTC(), id: uint(id)}, nil
}

func clonePage(p Page) Page {
	posts := make([]models.Post, len(p.Posts))
	copy(posts, p.Posts)
	return Page{Posts: posts, NextCursor: p.NextCursor}
}
