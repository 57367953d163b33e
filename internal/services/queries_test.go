package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"plaza/internal/identity"
	"plaza/internal/models"
	"plaza/internal/testutil"
	"plaza/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueries_ListPublishedOnlyPublished(t *testing.T) {
	conn := testutil.NewDB(t)
	author := testutil.CreateUser(t, conn, models.RoleAdmin)
	older := testutil.CreatePost(t, conn, author, models.StatusPublished)
	testutil.CreatePost(t, conn, author, models.StatusDraft)
	newer := testutil.CreatePost(t, conn, author, models.StatusPublished)

	page, err := NewQueries(conn, nil, 0).ListPublished(context.Background(), 0, "")
	require.NoError(t, err)
	require.Len(t, page.Posts, 2)
	assert.Equal(t, newer.ID, page.Posts[0].ID)
	assert.Equal(t, older.ID, page.Posts[1].ID)
	assert.Equal(t, author.ID, page.Posts[0].User.ID, "author is preloaded")
	assert.Empty(t, page.NextCursor)
}

func TestQueries_ListPublishedPaginates(t *testing.T) {
	conn := testutil.NewDB(t)
	author := testutil.CreateUser(t, conn, models.RoleAdmin)

	stamp := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var want []uint
	for i := 0; i < 5; i++ {
		p := models.Post{UserID: author.ID, Title: "t", Body: "b"}
		// two posts share a stamp to exercise the id tie-break
		p.SetStatus(models.StatusPublished, stamp.Add(time.Duration(i/2)*time.Minute))
		require.NoError(t, conn.Create(&p).Error)
		want = append([]uint{p.ID}, want...)
	}

	q := NewQueries(conn, nil, 0)
	var got []uint
	cursor := ""
	for pages := 0; pages < 10; pages++ {
		page, err := q.ListPublished(context.Background(), 2, cursor)
		require.NoError(t, err)
		for _, p := range page.Posts {
			got = append(got, p.ID)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	assert.Equal(t, want, got)
}

func TestQueries_ListPublishedRejectsBadCursor(t *testing.T) {
	conn := testutil.NewDB(t)
	_, err := NewQueries(conn, nil, 0).ListPublished(context.Background(), 10, "%%%")
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestQueries_ListPublishedCacheIsInvalidated(t *testing.T) {
	conn := testutil.NewDB(t)
	admin := testutil.CreateUser(t, conn, models.RoleAdmin)
	cache, err := utils.NewCache(16)
	require.NoError(t, err)
	posts := NewPostService(conn, cache, AdminsOnly)
	q := NewQueries(conn, cache, time.Minute)
	ctx := context.Background()

	post, err := posts.Create(ctx, actorFor(admin), PostInput{Title: "t", Body: "b", Status: models.StatusPublished})
	require.NoError(t, err)

	page, err := q.ListPublished(ctx, 10, "")
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)

	_, err = posts.Update(ctx, actorFor(admin), post.ID, PostChanges{Status: statusPtr(models.StatusDraft)})
	require.NoError(t, err)

	page, err = q.ListPublished(ctx, 10, "")
	require.NoError(t, err)
	assert.Empty(t, page.Posts, "unpublished post must drop out of the listing")
}

func TestQueries_ShowPost(t *testing.T) {
	conn := testutil.NewDB(t)
	owner := testutil.CreateUser(t, conn, models.RoleGeneral)
	stranger := testutil.CreateUser(t, conn, models.RoleGeneral)
	admin := testutil.CreateUser(t, conn, models.RoleAdmin)
	published := testutil.CreatePost(t, conn, owner, models.StatusPublished)
	draft := testutil.CreatePost(t, conn, owner, models.StatusDraft)
	ledger := NewLedger(conn)
	q := NewQueries(conn, nil, 0)
	ctx := context.Background()

	_, err := ledger.AddComment(ctx, actorFor(stranger), published.ID, "first", "")
	require.NoError(t, err)
	_, err = ledger.AddComment(ctx, identity.Guest(guestToken('x')), published.ID, "second", "Visitor")
	require.NoError(t, err)
	like, err := ledger.Like(ctx, actorFor(stranger), published.ID)
	require.NoError(t, err)

	detail, err := q.ShowPost(ctx, actorFor(stranger), published.ID)
	require.NoError(t, err)
	assert.Equal(t, owner.Name, detail.Post.User.Name)
	require.Len(t, detail.Comments, 2)
	assert.Equal(t, stranger.Name, detail.Comments[0].AuthorName())
	assert.Equal(t, "Visitor", detail.Comments[1].AuthorName())
	assert.True(t, detail.Likes.Liked)
	assert.Equal(t, like.LikeID, *detail.Likes.LikeID)
	assert.Equal(t, int64(1), detail.Likes.Count)

	anon, err := q.ShowPost(ctx, identity.Anonymous(), published.ID)
	require.NoError(t, err)
	assert.False(t, anon.Likes.Liked)
	assert.Equal(t, int64(1), anon.Likes.Count)

	_, err = q.ShowPost(ctx, actorFor(stranger), draft.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = q.ShowPost(ctx, identity.Anonymous(), draft.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = q.ShowPost(ctx, actorFor(owner), draft.ID)
	assert.NoError(t, err)
	_, err = q.ShowPost(ctx, actorFor(admin), draft.ID)
	assert.NoError(t, err)
}

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2024, 2, 3, 4, 5, 6, 789, time.UTC)
	pos, err := decodeCursor(encodeCursor(at, 42))
	require.NoError(t, err)
	assert.True(t, pos.at.Equal(at))
	assert.Equal(t, uint(42), pos.id)

	for _, bad := range []string{"!!", "bm90LWEtY3Vyc29y", "MTIzOmFiYw"} {
		_, err := decodeCursor(bad)
		assert.Error(t, err, bad)
	}
}
