package db

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	d, err := Open("sqlite3", "file::memory:?_foreign_keys=on", logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, d.Migrate(context.Background(), nil))
	return NewStore(d)
}

func seedUser(t *testing.T, s *Store, email, name string) *User {
	t.Helper()
	u := &User{Email: email, Password: "pbkdf2:sha256:1$salt$hash", Name: name}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func seedPost(t *testing.T, s *Store, author *User, title string) *Post {
	t.Helper()
	p := &Post{
		Title:    title,
		Subtitle: "sub",
		Date:     "Monday, January 2, 2006",
		Body:     "body",
		ImgURL:   "https://example.com/img.png",
		AuthorID: author.ID,
	}
	require.NoError(t, s.CreatePost(context.Background(), p))
	return p
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "alice@example.com", "alice")
	err := s.CreateUser(ctx, &User{Email: "alice@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	n, err := s.CountUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestUserLookups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com", "alice")

	got, err := s.UserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	got, err = s.UserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Name)

	_, err = s.UserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.UserByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com", "alice")
	bob := seedUser(t, s, "bob@example.com", "")

	first := seedPost(t, s, alice, "Hello")
	second := seedPost(t, s, bob, "Second")

	posts, err := s.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID, "newest first")
	assert.Equal(t, "bob@example.com", posts[0].AuthorDisplay())
	assert.Equal(t, "alice", posts[1].AuthorDisplay())

	err = s.CreatePost(ctx, &Post{Title: "Hello", Subtitle: "s", Date: "d", Body: "b", ImgURL: "i", AuthorID: bob.ID})
	assert.ErrorIs(t, err, ErrTitleTaken)

	updated, err := s.UpdatePost(ctx, first.ID, PostFields{Title: "Hello again", Subtitle: "new", Body: "new body", ImgURL: "new.png"})
	require.NoError(t, err)
	assert.Equal(t, "Hello again", updated.Title)

	entry, err := s.PostByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello again", entry.Title)
	assert.Equal(t, "new", entry.Subtitle)
	assert.Equal(t, "new body", entry.Body)
	assert.Equal(t, "new.png", entry.ImgURL)
	assert.Equal(t, alice.ID, entry.AuthorID)
	assert.Equal(t, first.Date, entry.Date)

	_, err = s.UpdatePost(ctx, first.ID, PostFields{Title: "Second", Subtitle: "s", Body: "b", ImgURL: "i"})
	assert.ErrorIs(t, err, ErrTitleTaken)

	_, err = s.UpdatePost(ctx, 999, PostFields{Title: "x", Subtitle: "s", Body: "b", ImgURL: "i"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.PostByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletePostCascadesComments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com", "alice")
	post := seedPost(t, s, alice, "Hello")
	other := seedPost(t, s, alice, "Other")

	require.NoError(t, s.CreateComment(ctx, &Comment{Text: "Nice!", PostID: post.ID, AuthorID: alice.ID}))
	require.NoError(t, s.CreateComment(ctx, &Comment{Text: "Keep", PostID: other.ID, AuthorID: alice.ID}))

	require.NoError(t, s.DeletePost(ctx, post.ID))

	_, err := s.PostByID(ctx, post.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := s.CountComments(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	assert.ErrorIs(t, s.DeletePost(ctx, post.ID), ErrNotFound)
}

func TestComments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com", "alice")
	bob := seedUser(t, s, "bob@example.com", "bob")
	post := seedPost(t, s, alice, "Hello")
	other := seedPost(t, s, alice, "Other")

	require.NoError(t, s.CreateComment(ctx, &Comment{Text: "first", PostID: post.ID, AuthorID: bob.ID}))
	require.NoError(t, s.CreateComment(ctx, &Comment{Text: "second", PostID: post.ID, AuthorID: alice.ID}))
	require.NoError(t, s.CreateComment(ctx, &Comment{Text: "elsewhere", PostID: other.ID, AuthorID: alice.ID}))

	comments, err := s.CommentsForPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Text)
	assert.Equal(t, "bob", comments[0].AuthorDisplay())
	assert.Equal(t, "second", comments[1].Text)

	err = s.CreateComment(ctx, &Comment{Text: "orphan", PostID: 999, AuthorID: alice.ID})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentWritesOnFileDatabase(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "posts.db") + "?_foreign_keys=on"
	d, err := Open("sqlite3", dsn, logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, d.Migrate(context.Background(), nil))
	s := NewStore(d)

	const n = 20
	users := make([]*User, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			users[i] = &User{Email: fmt.Sprintf("user%d@example.com", i), Password: "x"}
			errs[i] = s.CreateUser(context.Background(), users[i])
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "user %d", i)
	}

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.CreatePost(context.Background(), &Post{
				Title:    fmt.Sprintf("post %d", i),
				Subtitle: "sub",
				Date:     "Monday, January 2, 2006",
				Body:     "body",
				ImgURL:   "https://example.com/img.png",
				AuthorID: users[i].ID,
			})
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "post %d", i)
	}

	nu, err := s.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(n), nu)
	np, err := s.CountPosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(n), np)
}
