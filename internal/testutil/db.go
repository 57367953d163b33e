// Package testutil opens throwaway databases and seeds fixtures for tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"plaza/internal/db"
	"plaza/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var seq atomic.Int64

// NewDB returns a migrated in-memory SQLite database private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.Open("sqlite", "file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))

	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return conn
}

// CreateUser inserts an account with the given role.
func CreateUser(t *testing.T, conn *gorm.DB, role models.Role) *models.User {
	t.Helper()
	n := seq.Add(1)
	user := &models.User{
		Email:    fmt.Sprintf("user%d@example.com", n),
		Name:     fmt.Sprintf("User %d", n),
		Password: "x",
		Role:     role,
	}
	require.NoError(t, conn.Create(user).Error)
	return user
}

// CreatePost inserts a post owned by owner. Published posts get a stamp.
func CreatePost(t *testing.T, conn *gorm.DB, owner *models.User, status models.PostStatus) *models.Post {
	t.Helper()
	n := seq.Add(1)
	post := &models.Post{
		UserID: owner.ID,
		Title:  fmt.Sprintf("Post %d", n),
		Body:   "body",
	}
	post.SetStatus(status, time.Now().UTC().Add(time.Duration(n)*time.Millisecond))
	require.NoError(t, conn.Create(post).Error)
	return post
}

// Count returns the number of rows of model matching the optional condition.
func Count(t *testing.T, conn *gorm.DB, model interface{}, where ...interface{}) int64 {
	t.Helper()
	var n int64
	q := conn.Model(model)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}
