package services

import (
	"context"
	"strings"
	"time"

	"plaza/internal/identity"
	"plaza/internal/logger"
	"plaza/internal/models"
	"plaza/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// listing cache namespace, invalidated by every post mutation
const publishedNamespace = "posts:published"

type PostInput struct {
	Title  string
	Body   string
	Status models.PostStatus
}

// PostChanges holds the fields an update touches; nil means unchanged.
type PostChanges struct {
	Title  *string
	Body   *string
	Status *models.PostStatus
}

type postFields struct {
	Title  string `json:"title" validate:"required,max=150"`
	Body   string `json:"body" validate:"required"`
	Status string `json:"status" validate:"oneof=draft published"`
}

// PostService owns the post lifecycle: who may create, update and destroy
// posts and when the publish timestamp is stamped.
type PostService struct {
	db     *gorm.DB
	cache  *utils.Cache
	policy AuthorPolicy
	now    func() time.Time
}

func NewPostService(db *gorm.DB, cache *utils.Cache, policy AuthorPolicy) *PostService {
	if policy == nil {
		policy = AdminsOnly
	}
	return &PostService{db: db, cache: cache, policy: policy, now: utcNow}
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// Create stores a new post owned by actor. Posts start as drafts unless
// created published, in which case they are stamped immediately.
func (s *PostService) Create(ctx context.Context, actor identity.Actor, in PostInput) (*models.Post, error) {
	uid, ok := actor.UserID()
	if !ok || !s.policy(actor) {
		return nil, ErrUnauthorized
	}

	status := in.Status
	if status == "" {
		status = models.StatusDraft
	}
	fields := postFields{
		Title:  strings.TrimSpace(in.Title),
		Body:   strings.TrimSpace(in.Body),
		Status: string(status),
	}
	if err := check(fields); err != nil {
		return nil, err
	}

	post := models.Post{
		UserID: uid,
		Title:  fields.Title,
		Body:   in.Body,
	}
	post.SetStatus(status, s.now())

	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, err
	}
	s.invalidate()

	logger.Log.WithFields(logrus.Fields{
		"post_id": post.ID,
		"actor":   actor.String(),
		"status":  post.Status,
	}).Info("post created")
	return &post, nil
}

// Update applies changes to a post the actor may mutate. The status and the
// publish stamp are written by the same UPDATE statement.
func (s *PostService) Update(ctx context.Context, actor identity.Actor, postID uint, ch PostChanges) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, postID).Error; err != nil {
			return notFound(err)
		}
		if err := mutable(actor, &post); err != nil {
			return err
		}

		fields := postFields{Title: post.Title, Body: post.Body, Status: string(post.Status)}
		if ch.Title != nil {
			fields.Title = strings.TrimSpace(*ch.Title)
		}
		if ch.Body != nil {
			fields.Body = strings.TrimSpace(*ch.Body)
		}
		if ch.Status != nil {
			fields.Status = string(*ch.Status)
		}
		if err := check(fields); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"title":      fields.Title,
			"status":     fields.Status,
			"updated_at": s.now(),
		}
		if ch.Body != nil {
			updates["body"] = *ch.Body
		}
		if models.PostStatus(fields.Status) == models.StatusPublished {
			// keeps an existing stamp even if another writer got there first
			updates["published_at"] = gorm.Expr("COALESCE(published_at, ?)", s.now())
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&post, post.ID).Error
	})
	if err != nil {
		return nil, err
	}
	s.invalidate()
	return &post, nil
}

// Destroy removes the post with its likes and comments in one transaction.
func (s *PostService) Destroy(ctx context.Context, actor identity.Actor, postID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, postID).Error; err != nil {
			return notFound(err)
		}
		if err := mutable(actor, &post); err != nil {
			return err
		}
		return deletePosts(tx, tx.Model(&models.Post{}).Select("id").Where("id = ?", post.ID))
	})
	if err != nil {
		return err
	}
	s.invalidate()

	logger.Log.WithFields(logrus.Fields{"post_id": postID, "actor": actor.String()}).Info("post destroyed")
	return nil
}

// mutable gates writes to post. Drafts the actor may not touch are reported
// as missing, the same as on the read side, so their existence never leaks.
func mutable(actor identity.Actor, post *models.Post) error {
	if CanMutate(actor, &post.UserID) {
		return nil
	}
	if !post.IsPublished() {
		return ErrNotFound
	}
	return ErrUnauthorized
}

func (s *PostService) invalidate() {
	if s.cache != nil {
		s.cache.Invalidate(publishedNamespace)
	}
}

// deletePosts removes the posts selected by ids (a subquery) together with
// everything hanging off them. Children go first so no row is ever orphaned.
func deletePosts(tx *gorm.DB, ids *gorm.DB) error {
	if err := tx.Where("post_id IN (?)", ids).Delete(&models.Like{}).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id IN (?)", ids).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN (?)", ids).Delete(&models.Post{}).Error
}
