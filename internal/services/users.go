package services

import (
	"context"
	"errors"
	"strings"

	"plaza/internal/identity"
	"plaza/internal/logger"
	"plaza/internal/models"
	"plaza/internal/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type SignupInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Name     string `json:"name" validate:"required,max=50"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// UserService manages accounts.
type UserService struct {
	db      *gorm.DB
	cache   *utils.Cache
	isAdmin func(email string) bool
}

// NewUserService builds the service; isAdmin decides which signups become
// admins and may be nil.
func NewUserService(db *gorm.DB, cache *utils.Cache, isAdmin func(string) bool) *UserService {
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	return &UserService{db: db, cache: cache, isAdmin: isAdmin}
}

func (s *UserService) Register(ctx context.Context, in SignupInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := check(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:    in.Email,
		Name:     in.Name,
		Password: string(hash),
		Role:     models.RoleGeneral,
	}
	if s.isAdmin(in.Email) {
		user.Role = models.RoleAdmin
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			verr := &ValidationError{}
			verr.Add("email", "Email has already been taken")
			return nil, verr
		}
		return nil, err
	}
	return &user, nil
}

// Authenticate checks an email/password pair.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *UserService) Find(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// Destroy deletes an account and everything it owns: its posts (with their
// comments and likes), its comments and its likes elsewhere.
func (s *UserService) Destroy(ctx context.Context, actor identity.Actor, userID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return notFound(err)
		}
		if !CanMutate(actor, &user.ID) {
			return ErrUnauthorized
		}

		owned := tx.Model(&models.Post{}).Select("id").Where("user_id = ?", user.ID)
		if err := deletePosts(tx, owned); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, user.ID).Error
	})
	if err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(publishedNamespace)
	}

	logger.Log.WithFields(logrus.Fields{"user_id": userID, "actor": actor.String()}).Info("user destroyed")
	return nil
}
