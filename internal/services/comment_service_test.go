package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxncici/mincici/internal/models"
)

func TestAddCommentBumpsCounterAtomically(t *testing.T) {
	f := newFixture(t)
	alice := f.seedUser(t, "alice", "alice")
	bob := f.seedUser(t, "bob", "bob")
	ctx := context.Background()

	id, err := f.posts.CreatePost(ctx, alice, models.CreatePostRequest{Content: "discuss"})
	require.NoError(t, err)

	cid, err := f.comments.AddComment(ctx, bob, id, models.CreateCommentRequest{Content: "first!"})
	require.NoError(t, err)
	require.NotEmpty(t, cid)

	post, _, err := f.posts.GetPost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, post.CommentsCount)

	comments, err := f.comments.Comments(ctx, id)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "bob", comments[0].Value.UserID)
	assert.NotZero(t, comments[0].Value.Timestamp)
}

func TestAddCommentNotifiesPostAuthor(t *testing.T) {
	f := newFixture(t)
	alice := f.seedUser(t, "alice", "alice")
	bob := f.seedUser(t, "bob", "bob")
	ctx := context.Background()

	id, err := f.posts.CreatePost(ctx, alice, models.CreatePostRequest{Content: "notify me"})
	require.NoError(t, err)
	_, err = f.comments.AddComment(ctx, bob, id, models.CreateCommentRequest{Content: "hey"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		items, err := f.notifications.List(ctx, "alice")
		return err == nil && len(items) == 1 && items[0].Value.Type == models.NotificationComment
	}, time.Second, time.Millisecond)

	items, err := f.notifications.List(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "hey", items[0].Value.CommentContent)
	assert.Equal(t, id, items[0].Value.PostID)
}

func TestCommentOnOwnPostDoesNotNotify(t *testing.T) {
	f := newFixture(t)
	alice := f.seedUser(t, "alice", "alice")
	ctx := context.Background()

	id, err := f.posts.CreatePost(ctx, alice, models.CreatePostRequest{Content: "mine"})
	require.NoError(t, err)
	_, err = f.comments.AddComment(ctx, alice, id, models.CreateCommentRequest{Content: "self reply"})
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	items, err := f.notifications.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestAddCommentToMissingPost(t *testing.T) {
	f := newFixture(t)
	bob := f.seedUser(t, "bob", "bob")
	_, err := f.comments.AddComment(context.Background(), bob, "gone", models.CreateCommentRequest{Content: "hello?"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCommentsAreChronological(t *testing.T) {
	f := newFixture(t)
	alice := f.seedUser(t, "alice", "alice")
	bob := f.seedUser(t, "bob", "bob")
	ctx := context.Background()

	id, err := f.posts.CreatePost(ctx, alice, models.CreatePostRequest{Content: "thread"})
	require.NoError(t, err)

	first, err := f.comments.AddComment(ctx, bob, id, models.CreateCommentRequest{Content: "one"})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := f.comments.AddComment(ctx, alice, id, models.CreateCommentRequest{Content: "two"})
	require.NoError(t, err)

	comments, err := f.comments.Comments(ctx, id)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, first, comments[0].ID)
	assert.Equal(t, second, comments[1].ID)

	post, _, err := f.posts.GetPost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, post.CommentsCount)
}

func TestEditCommentMarksEditedAndIsAuthorOnly(t *testing.T) {
	f := newFixture(t)
	alice := f.seedUser(t, "alice", "alice")
	bob := f.seedUser(t, "bob", "bob")
	ctx := context.Background()

	id, err := f.posts.CreatePost(ctx, alice, models.CreatePostRequest{Content: "p"})
	require.NoError(t, err)
	cid, err := f.comments.AddComment(ctx, bob, id, models.CreateCommentRequest{Content: "typo"})
	require.NoError(t, err)

	err = f.comments.EditComment(ctx, "alice", id, cid, models.UpdateCommentRequest{Content: "hijack"})
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, f.comments.EditComment(ctx, "bob", id, cid, models.UpdateCommentRequest{Content: "fixed"}))
	comments, err := f.comments.Comments(ctx, id)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "fixed", comments[0].Value.Content)
	assert.True(t, comments[0].Value.Edited)
}

func TestReplyMetadataIsPreserved(t *testing.T) {
	f := newFixture(t)
	alice := f.seedUser(t, "alice", "alice")
	bob := f.seedUser(t, "bob", "bob")
	ctx := context.Background()

	id, err := f.posts.CreatePost(ctx, alice, models.CreatePostRequest{Content: "p"})
	require.NoError(t, err)
	parent, err := f.comments.AddComment(ctx, alice, id, models.CreateCommentRequest{Content: "parent"})
	require.NoError(t, err)

	_, err = f.comments.AddComment(ctx, bob, id, models.CreateCommentRequest{
		Content:         "child",
		ReplyTo:         parent,
		ReplyToUsername: "alice",
	})
	require.NoError(t, err)

	comments, err := f.comments.Comments(ctx, id)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, parent, comments[1].Value.ReplyTo)
	assert.Equal(t, "alice", comments[1].Value.ReplyToUsername)
}
