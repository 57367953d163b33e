package services

import (
	"context"
	"errors"
	"strings"

	"plaza/internal/identity"
	"plaza/internal/logger"
	"plaza/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type LikeResult struct {
	LikeID uint
	Count  int64
}

type UnlikeResult struct {
	Removed bool
	Count   int64
}

type commentFields struct {
	Content   string `json:"content" validate:"required"`
	GuestName string `json:"guest_name" validate:"required_if=Guest true,max=50"`
	Guest     bool   `json:"-"`
}

// Ledger records comments and likes. Like uniqueness per (post, identity) is
// enforced by the storage unique indexes; the lookups here only avoid the
// failed insert in the common case.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// AddComment attributes the comment to the signed-in user, or to guestName
// for everyone else. A guest without a name is a validation failure.
func (l *Ledger) AddComment(ctx context.Context, actor identity.Actor, postID uint, content, guestName string) (*models.Comment, error) {
	uid, isUser := actor.UserID()
	fields := commentFields{
		Content: strings.TrimSpace(content),
		Guest:   !isUser,
	}
	if !isUser {
		fields.GuestName = strings.TrimSpace(guestName)
	}
	if err := check(fields); err != nil {
		return nil, err
	}

	var comment models.Comment
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := visiblePost(tx, actor, postID); err != nil {
			return err
		}
		if isUser {
			comment = models.NewUserComment(postID, uid, content)
		} else {
			comment = models.NewGuestComment(postID, fields.GuestName, content)
		}
		return tx.Create(&comment).Error
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteComment removes a comment of postID if actor may mutate it.
func (l *Ledger) DeleteComment(ctx context.Context, actor identity.Actor, postID, commentID uint) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.Where("id = ? AND post_id = ?", commentID, postID).First(&comment).Error; err != nil {
			return notFound(err)
		}
		if !CanMutate(actor, comment.OwnerID()) {
			return ErrUnauthorized
		}
		return tx.Delete(&models.Comment{}, comment.ID).Error
	})
}

// Like makes sure actor has exactly one like on the post and returns it.
// Repeated and concurrent calls converge on the same row.
func (l *Ledger) Like(ctx context.Context, actor identity.Actor, postID uint) (LikeResult, error) {
	if actor.IsAnonymous() {
		return LikeResult{}, ErrUnauthorized
	}

	var res LikeResult
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := visiblePost(tx, actor, postID); err != nil {
			return err
		}
		like, err := findLike(tx, postID, actor)
		if errors.Is(err, ErrNotFound) {
			like, err = insertLike(tx, postID, actor)
		}
		if err != nil {
			return err
		}
		count, err := countLikes(tx, postID)
		if err != nil {
			return err
		}
		res = LikeResult{LikeID: like.ID, Count: count}
		return nil
	})
	return res, err
}

// Unlike removes actor's like if there is one. Unliking something that was
// never liked is not an error.
func (l *Ledger) Unlike(ctx context.Context, actor identity.Actor, postID uint) (UnlikeResult, error) {
	var res UnlikeResult
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := visiblePost(tx, actor, postID); err != nil {
			return err
		}
		like, err := findLike(tx, postID, actor)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		default:
			del := tx.Delete(&models.Like{}, like.ID)
			if del.Error != nil {
				return del.Error
			}
			res.Removed = del.RowsAffected > 0
		}
		count, err := countLikes(tx, postID)
		if err != nil {
			return err
		}
		res.Count = count
		return nil
	})
	return res, err
}

// likeScope narrows a like query to actor's identity key: user id for
// accounts, guest token for guests.
func likeScope(tx *gorm.DB, postID uint, actor identity.Actor) (*gorm.DB, bool) {
	q := tx.Where("post_id = ?", postID)
	if uid, ok := actor.UserID(); ok {
		return q.Where("user_id = ?", uid), true
	}
	if token, ok := actor.GuestToken(); ok {
		return q.Where("guest_identifier = ?", token), true
	}
	return q, false
}

func newLike(postID uint, actor identity.Actor) models.Like {
	like := models.Like{PostID: postID}
	if uid, ok := actor.UserID(); ok {
		like.UserID = &uid
	} else if token, ok := actor.GuestToken(); ok {
		like.GuestIdentifier = &token
	}
	return like
}

func findLike(tx *gorm.DB, postID uint, actor identity.Actor) (*models.Like, error) {
	q, ok := likeScope(tx, postID, actor)
	if !ok {
		return nil, ErrNotFound
	}
	var like models.Like
	if err := q.First(&like).Error; err != nil {
		return nil, notFound(err)
	}
	return &like, nil
}

// insertLike creates the like inside a savepoint. Losing a race against an
// identical request shows up as a duplicate key; the savepoint is rolled
// back and the winner's row is returned instead.
func insertLike(tx *gorm.DB, postID uint, actor identity.Actor) (*models.Like, error) {
	like := newLike(postID, actor)
	err := tx.Transaction(func(sp *gorm.DB) error {
		return sp.Create(&like).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		logger.Log.WithFields(logrus.Fields{
			"post_id": postID,
			"actor":   actor.String(),
		}).Debug("like insert lost race, reusing existing row")
		return findLike(tx, postID, actor)
	}
	if err != nil {
		return nil, err
	}
	return &like, nil
}

func countLikes(tx *gorm.DB, postID uint) (int64, error) {
	var n int64
	err := tx.Model(&models.Like{}).Where("post_id = ?", postID).Count(&n).Error
	return n, err
}
