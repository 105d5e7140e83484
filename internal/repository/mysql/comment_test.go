package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sqlmock "gopkg.in/DATA-DOG/go-sqlmock.v1"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/civicview/comment-service/domain"
)

var commentColumns = []string{
	"id", "content", "post_id", "user_id", "parent_id",
	"is_reply", "number_of_likes", "reply_count", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*commentRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return NewCommentRepository(db), mock
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT \\* FROM `comments` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows(commentColumns))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDHydratesLikesAndReplies(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT \\* FROM `comments` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows(commentColumns).
			AddRow("C1", "Hello", "P1", "U1", nil, false, 2, 1, now, now))
	mock.ExpectQuery("SELECT \\* FROM `comment_likes` WHERE comment_id IN").
		WillReturnRows(sqlmock.NewRows([]string{"comment_id", "user_id", "created_at"}).
			AddRow("C1", "U2", now).
			AddRow("C1", "U3", now))
	mock.ExpectQuery("SELECT `id`,`parent_id` FROM `comments` WHERE parent_id IN").
		WillReturnRows(sqlmock.NewRows([]string{"id", "parent_id"}).
			AddRow("C2", "C1"))

	c, err := repo.GetByID(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, "Hello", c.Content)
	assert.Equal(t, []string{"U2", "U3"}, c.Likes)
	assert.Equal(t, int64(2), c.NumberOfLikes)
	assert.Equal(t, []string{"C2"}, c.Replies)
	assert.Equal(t, int64(1), c.ReplyCount)
	assert.Nil(t, c.ParentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDReplySkipsReplyLookup(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery("SELECT \\* FROM `comments` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows(commentColumns).
			AddRow("C2", "Hi", "P1", "U2", "C1", true, 0, 0, now, now))
	mock.ExpectQuery("SELECT \\* FROM `comment_likes` WHERE comment_id IN").
		WillReturnRows(sqlmock.NewRows([]string{"comment_id", "user_id", "created_at"}))

	c, err := repo.GetByID(context.Background(), "C2")
	require.NoError(t, err)
	assert.True(t, c.IsReply)
	require.NotNil(t, c.ParentID)
	assert.Equal(t, "C1", *c.ParentID)
	assert.Equal(t, []string{}, c.Likes)
	assert.Equal(t, []string{}, c.Replies)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert(t *testing.T) {
	repo, mock := newMockRepo(t)
	parent := "C1"

	mock.ExpectExec("INSERT INTO `comments`").
		WillReturnResult(sqlmock.NewResult(0, 1))

	c := domain.Comment{Content: "Hi", PostID: "P1", UserID: "U2", ParentID: &parent}
	require.NoError(t, repo.Insert(context.Background(), &c))
	assert.Len(t, c.ID, 36)
	assert.True(t, c.IsReply)
	assert.False(t, c.CreatedAt.IsZero())
	assert.NotNil(t, c.Likes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteByID(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("DELETE FROM `comments` WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM `comments` WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.DeleteByID(context.Background(), "C1"))
	assert.ErrorIs(t, repo.DeleteByID(context.Background(), "C1"), domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteManyByParent(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("DELETE FROM `comments` WHERE parent_id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteManyByParent(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

const recountReplies = "UPDATE comments p CROSS JOIN \\(SELECT COUNT\\(\\*\\) AS n FROM comments WHERE parent_id = \\? AND id <> \\?\\) r " +
	"SET p.reply_count = r.n"

func TestAttachReply(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(recountReplies).
		WithArgs("C1", "", sqlmock.AnyArg(), "C1", false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// count already current
	mock.ExpectExec(recountReplies).
		WithArgs("C1", "", sqlmock.AnyArg(), "C1", false).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `comments` WHERE id = \\? AND is_reply = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))

	mock.ExpectExec(recountReplies).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `comments` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))

	require.NoError(t, repo.AttachReply(context.Background(), "C1", "C2"))
	require.NoError(t, repo.AttachReply(context.Background(), "C1", "C2"))
	assert.ErrorIs(t, repo.AttachReply(context.Background(), "gone", "C2"), domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDetachReply(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(recountReplies).
		WithArgs("C1", "C2", sqlmock.AnyArg(), "C1", false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DetachReply(context.Background(), "C1", "C2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDetachReplyParentGone(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(recountReplies).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `comments` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))

	err := repo.DetachReply(context.Background(), "gone", "C2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDetachReplyError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(recountReplies).
		WillReturnError(errors.New("lock wait timeout"))

	err := repo.DetachReply(context.Background(), "C1", "C2")
	assert.ErrorContains(t, err, "failed to detach reply C2 from C1")
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

const (
	lockComment  = "SELECT `id` FROM `comments` WHERE id = \\? .*FOR UPDATE"
	unlike       = "DELETE FROM `comment_likes` WHERE comment_id = \\? AND user_id = \\?"
	insertLike   = "INSERT INTO `comment_likes`"
	recountLikes = "UPDATE `comments` SET `number_of_likes`=\\(SELECT COUNT\\(\\*\\) FROM comment_likes WHERE comment_id = \\?\\) WHERE id = \\?"
)

func expectReload(mock sqlmock.Sqlmock, id string, likes ...string) {
	now := time.Now()
	mock.ExpectQuery("SELECT \\* FROM `comments` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows(commentColumns).
			AddRow(id, "Hello", "P1", "U1", nil, false, len(likes), 0, now, now))
	likeRows := sqlmock.NewRows([]string{"comment_id", "user_id", "created_at"})
	for _, u := range likes {
		likeRows.AddRow(id, u, now)
	}
	mock.ExpectQuery("SELECT \\* FROM `comment_likes` WHERE comment_id IN").
		WillReturnRows(likeRows)
	mock.ExpectQuery("SELECT `id`,`parent_id` FROM `comments` WHERE parent_id IN").
		WillReturnRows(sqlmock.NewRows([]string{"id", "parent_id"}))
}

func TestToggleLike(t *testing.T) {
	t.Run("like", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockComment).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("C1"))
		mock.ExpectExec(unlike).
			WithArgs("C1", "U2").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(insertLike).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(recountLikes).
			WithArgs("C1", "C1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		expectReload(mock, "C1", "U2")

		c, err := repo.ToggleLike(context.Background(), "C1", "U2")
		require.NoError(t, err)
		assert.Equal(t, []string{"U2"}, c.Likes)
		assert.Equal(t, int64(1), c.NumberOfLikes)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unlike", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockComment).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("C1"))
		mock.ExpectExec(unlike).
			WithArgs("C1", "U2").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(recountLikes).
			WithArgs("C1", "C1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		expectReload(mock, "C1")

		c, err := repo.ToggleLike(context.Background(), "C1", "U2")
		require.NoError(t, err)
		assert.Empty(t, c.Likes)
		assert.Equal(t, int64(0), c.NumberOfLikes)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing comment", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockComment).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		_, err := repo.ToggleLike(context.Background(), "gone", "U2")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert fails", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockComment).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("C1"))
		mock.ExpectExec(unlike).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(insertLike).
			WillReturnError(errors.New("deadlock found"))
		mock.ExpectRollback()

		_, err := repo.ToggleLike(context.Background(), "C1", "U2")
		assert.ErrorContains(t, err, "failed to toggle like on C1")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdate(t *testing.T) {
	repo, mock := newMockRepo(t)
	content := "Edited"

	mock.ExpectExec("UPDATE `comments` SET `content`=\\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectReload(mock, "C1")

	c, err := repo.Update(context.Background(), "C1", domain.CommentPatch{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, "C1", c.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	content := "Edited"

	mock.ExpectExec("UPDATE `comments` SET `content`=\\?").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT \\* FROM `comments` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows(commentColumns))

	_, err := repo.Update(context.Background(), "gone", domain.CommentPatch{Content: &content})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileCounters(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE comments c " +
		"LEFT JOIN \\(SELECT parent_id, COUNT\\(\\*\\) AS n FROM comments WHERE parent_id IN \\(\\?,\\?\\) GROUP BY parent_id\\) r ON r.parent_id = c.id " +
		"LEFT JOIN \\(SELECT comment_id, COUNT\\(\\*\\) AS n FROM comment_likes WHERE comment_id IN \\(\\?,\\?\\) GROUP BY comment_id\\) l ON l.comment_id = c.id " +
		"SET c.reply_count = COALESCE\\(r.n, 0\\), c.number_of_likes = COALESCE\\(l.n, 0\\) " +
		"WHERE c.id IN \\(\\?,\\?\\)").
		WithArgs("C1", "C2", "C1", "C2", "C1", "C2").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.ReconcileCounters(context.Background(), []string{"C1", "C2"}))
	require.NoError(t, repo.ReconcileCounters(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileCountersError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE comments c LEFT JOIN").
		WillReturnError(errors.New("connection reset"))

	err := repo.ReconcileCounters(context.Background(), []string{"C1"})
	assert.ErrorContains(t, err, "failed to reconcile counters of 1 comments")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountSince(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `comments` WHERE created_at >= \\?").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(4))

	n, err := repo.CountSince(context.Background(), time.Now().AddDate(0, -1, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchIDs(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT `id` FROM `comments` WHERE id > \\? ORDER BY id LIMIT").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a").AddRow("b"))

	ids, err := repo.FetchIDs(context.Background(), "", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchEmptyPage(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT \\* FROM `comments` ORDER BY created_at DESC LIMIT").
		WillReturnRows(sqlmock.NewRows(commentColumns))

	res, err := repo.Fetch(context.Background(), 9, 9, domain.SortDesc)
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}
