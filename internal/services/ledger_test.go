package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"plaza/internal/identity"
	"plaza/internal/models"
	"plaza/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func guestToken(c byte) string {
	return strings.Repeat(string(c), 64)
}

func TestLedger_AddComment(t *testing.T) {
	conn := testutil.NewDB(t)
	author := testutil.CreateUser(t, conn, models.RoleGeneral)
	post := testutil.CreatePost(t, conn, author, models.StatusPublished)
	ledger := NewLedger(conn)
	ctx := context.Background()

	t.Run("user comment ignores guest name", func(t *testing.T) {
		c, err := ledger.AddComment(ctx, actorFor(author), post.ID, "nice", "Somebody")
		require.NoError(t, err)
		require.NotNil(t, c.UserID)
		assert.Equal(t, author.ID, *c.UserID)
		assert.Nil(t, c.GuestName)
	})

	t.Run("guest without name is rejected", func(t *testing.T) {
		before := testutil.Count(t, conn, &models.Comment{})
		_, err := ledger.AddComment(ctx, identity.Guest(guestToken('a')), post.ID, "hello", "   ")
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, []string{"Guest name can't be blank"}, verr.Messages())
		assert.Equal(t, before, testutil.Count(t, conn, &models.Comment{}))
	})

	t.Run("guest with name is stored as author label", func(t *testing.T) {
		c, err := ledger.AddComment(ctx, identity.Guest(guestToken('a')), post.ID, "hello", "Visitor")
		require.NoError(t, err)
		assert.Nil(t, c.UserID)
		require.NotNil(t, c.GuestName)
		assert.Equal(t, "Visitor", *c.GuestName)
		assert.Equal(t, "Visitor", c.AuthorName())
	})

	t.Run("blank content is rejected", func(t *testing.T) {
		_, err := ledger.AddComment(ctx, actorFor(author), post.ID, " ", "")
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "content")
	})

	t.Run("unknown post", func(t *testing.T) {
		_, err := ledger.AddComment(ctx, actorFor(author), post.ID+100, "hi", "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("draft is hidden from strangers", func(t *testing.T) {
		draft := testutil.CreatePost(t, conn, author, models.StatusDraft)
		_, err := ledger.AddComment(ctx, identity.Guest(guestToken('b')), draft.ID, "hi", "Visitor")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestComment_AuthorInvariant(t *testing.T) {
	conn := testutil.NewDB(t)
	author := testutil.CreateUser(t, conn, models.RoleGeneral)
	post := testutil.CreatePost(t, conn, author, models.StatusPublished)

	neither := models.Comment{PostID: post.ID, Content: "x"}
	assert.ErrorIs(t, conn.Create(&neither).Error, models.ErrAuthorAmbiguous)

	both := models.NewUserComment(post.ID, author.ID, "x")
	name := "Visitor"
	both.GuestName = &name
	assert.ErrorIs(t, conn.Create(&both).Error, models.ErrAuthorAmbiguous)

	assert.Equal(t, models.DefaultGuestName, (&models.Comment{}).AuthorName())
}

func TestLedger_DeleteComment(t *testing.T) {
	conn := testutil.NewDB(t)
	owner := testutil.CreateUser(t, conn, models.RoleGeneral)
	other := testutil.CreateUser(t, conn, models.RoleGeneral)
	admin := testutil.CreateUser(t, conn, models.RoleAdmin)
	post := testutil.CreatePost(t, conn, owner, models.StatusPublished)
	otherPost := testutil.CreatePost(t, conn, owner, models.StatusPublished)
	ledger := NewLedger(conn)
	ctx := context.Background()

	userComment, err := ledger.AddComment(ctx, actorFor(owner), post.ID, "mine", "")
	require.NoError(t, err)
	guestComment, err := ledger.AddComment(ctx, identity.Guest(guestToken('g')), post.ID, "anon", "Visitor")
	require.NoError(t, err)

	// nobody but the owner or an admin gets through
	for _, actor := range []identity.Actor{actorFor(other), identity.Guest(guestToken('g')), identity.Anonymous()} {
		assert.ErrorIs(t, ledger.DeleteComment(ctx, actor, post.ID, userComment.ID), ErrUnauthorized)
	}
	// guest authorship grants nothing, not even to the same guest
	for _, actor := range []identity.Actor{actorFor(owner), actorFor(other), identity.Guest(guestToken('g'))} {
		assert.ErrorIs(t, ledger.DeleteComment(ctx, actor, post.ID, guestComment.ID), ErrUnauthorized)
	}
	// the comment has to belong to the referenced post
	assert.ErrorIs(t, ledger.DeleteComment(ctx, actorFor(owner), otherPost.ID, userComment.ID), ErrNotFound)

	require.NoError(t, ledger.DeleteComment(ctx, actorFor(owner), post.ID, userComment.ID))
	require.NoError(t, ledger.DeleteComment(ctx, actorFor(admin), post.ID, guestComment.ID))
	assert.Equal(t, int64(0), testutil.Count(t, conn, &models.Comment{}))

	assert.ErrorIs(t, ledger.DeleteComment(ctx, actorFor(admin), post.ID, userComment.ID), ErrNotFound)
}

func TestLedger_LikeIsIdempotent(t *testing.T) {
	conn := testutil.NewDB(t)
	author := testutil.CreateUser(t, conn, models.RoleAdmin)
	fan := testutil.CreateUser(t, conn, models.RoleGeneral)
	post := testutil.CreatePost(t, conn, author, models.StatusPublished)
	ledger := NewLedger(conn)
	ctx := context.Background()

	first, err := ledger.Like(ctx, actorFor(fan), post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Count)

	again, err := ledger.Like(ctx, actorFor(fan), post.ID)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, int64(1), testutil.Count(t, conn, &models.Like{}))

	_, err = ledger.Like(ctx, actorFor(fan), post.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = ledger.Like(ctx, identity.Anonymous(), post.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestLedger_UserAndGuestKeysDoNotCollide(t *testing.T) {
	conn := testutil.NewDB(t)
	author := testutil.CreateUser(t, conn, models.RoleAdmin)
	post := testutil.CreatePost(t, conn, author, models.StatusPublished)
	ledger := NewLedger(conn)
	ctx := context.Background()

	a, err := ledger.Like(ctx, actorFor(author), post.ID)
	require.NoError(t, err)
	b, err := ledger.Like(ctx, identity.Guest(guestToken('1')), post.ID)
	require.NoError(t, err)
	c, err := ledger.Like(ctx, identity.Guest(guestToken('2')), post.ID)
	require.NoError(t, err)

	assert.NotEqual(t, a.LikeID, b.LikeID)
	assert.NotEqual(t, b.LikeID, c.LikeID)
	assert.Equal(t, int64(3), c.Count)
}

func TestLedger_ConcurrentLikesConverge(t *testing.T) {
	conn := testutil.NewDB(t)
	author := testutil.CreateUser(t, conn, models.RoleAdmin)
	post := testutil.CreatePost(t, conn, author, models.StatusPublished)
	ledger := NewLedger(conn)
	actor := identity.Guest(guestToken('c'))

	const workers = 8
	results := make([]LikeResult, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = ledger.Like(context.Background(), actor, post.ID)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].LikeID, results[i].LikeID)
		assert.Equal(t, int64(1), results[i].Count)
	}
	assert.Equal(t, int64(1), testutil.Count(t, conn, &models.Like{}))
}

func TestLedger_InsertRecoversFromDuplicate(t *testing.T) {
	conn := testutil.NewDB(t)
	author := testutil.CreateUser(t, conn, models.RoleAdmin)
	post := testutil.CreatePost(t, conn, author, models.StatusPublished)

	for _, actor := range []identity.Actor{actorFor(author), identity.Guest(guestToken('d'))} {
		// another request already inserted the row after our lookup missed
		winner := newLike(post.ID, actor)
		require.NoError(t, conn.Create(&winner).Error)

		// a plain insert trips the unique index
		dup := newLike(post.ID, actor)
		require.ErrorIs(t, conn.Create(&dup).Error, gorm.ErrDuplicatedKey)

		err := conn.Transaction(func(tx *gorm.DB) error {
			like, err := insertLike(tx, post.ID, actor)
			if err != nil {
				return err
			}
			assert.Equal(t, winner.ID, like.ID)

			// the transaction is still usable after the rolled back savepoint
			n, err := countLikes(tx, post.ID)
			assert.NoError(t, err)
			assert.Positive(t, n)
			return nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, int64(2), testutil.Count(t, conn, &models.Like{}))
}

func TestLike_ActorInvariant(t *testing.T) {
	conn := testutil.NewDB(t)
	author := testutil.CreateUser(t, conn, models.RoleAdmin)
	post := testutil.CreatePost(t, conn, author, models.StatusPublished)

	assert.ErrorIs(t, conn.Create(&models.Like{PostID: post.ID}).Error, models.ErrLikeActorAmbiguous)

	token := guestToken('e')
	both := models.Like{PostID: post.ID, UserID: &author.ID, GuestIdentifier: &token}
	assert.ErrorIs(t, conn.Create(&both).Error, models.ErrLikeActorAmbiguous)
}

func TestLedger_Unlike(t *testing.T) {
	conn := testutil.NewDB(t)
	author := testutil.CreateUser(t, conn, models.RoleAdmin)
	post := testutil.CreatePost(t, conn, author, models.StatusPublished)
	ledger := NewLedger(conn)
	queries := NewQueries(conn, nil, 0)
	ctx := context.Background()
	guest := identity.Guest(guestToken('f'))
	bystander := identity.Guest(guestToken('h'))

	_, err := ledger.Like(ctx, bystander, post.ID)
	require.NoError(t, err)

	res, err := ledger.Unlike(ctx, guest, post.ID)
	require.NoError(t, err)
	assert.False(t, res.Removed, "unliking something never liked is a no-op")
	assert.Equal(t, int64(1), res.Count)

	_, err = ledger.Like(ctx, guest, post.ID)
	require.NoError(t, err)
	res, err = ledger.Unlike(ctx, guest, post.ID)
	require.NoError(t, err)
	assert.True(t, res.Removed)
	assert.Equal(t, int64(1), res.Count)

	st, err := queries.LikeStatus(ctx, guest, post.ID)
	require.NoError(t, err)
	assert.False(t, st.Liked)
	assert.Nil(t, st.LikeID)

	res, err = ledger.Unlike(ctx, guest, post.ID)
	require.NoError(t, err)
	assert.False(t, res.Removed)

	res, err = ledger.Unlike(ctx, identity.Anonymous(), post.ID)
	require.NoError(t, err)
	assert.False(t, res.Removed)
}

// Any interleaving of like/unlike leaves at most one row per identity and a
// status that matches the last call.
func TestLedger_LikeSequencesAgreeWithStatus(t *testing.T) {
	conn := testutil.NewDB(t)
	author := testutil.CreateUser(t, conn, models.RoleAdmin)
	post := testutil.CreatePost(t, conn, author, models.StatusPublished)
	ledger := NewLedger(conn)
	queries := NewQueries(conn, nil, 0)
	ctx := context.Background()

	actors := []identity.Actor{actorFor(author), identity.Guest(guestToken('s'))}
	sequence := []bool{true, true, false, false, true, false, true, true}

	for _, actor := range actors {
		for _, like := range sequence {
			var err error
			if like {
				_, err = ledger.Like(ctx, actor, post.ID)
			} else {
				_, err = ledger.Unlike(ctx, actor, post.ID)
			}
			require.NoError(t, err)

			q, _ := likeScope(conn.Model(&models.Like{}), post.ID, actor)
			var rows int64
			require.NoError(t, q.Count(&rows).Error)
			assert.LessOrEqual(t, rows, int64(1))

			st, err := queries.LikeStatus(ctx, actor, post.ID)
			require.NoError(t, err)
			assert.Equal(t, like, st.Liked)
			assert.Equal(t, like, st.LikeID != nil)
		}
	}
}
