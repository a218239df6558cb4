package html

import (
	"bytes"
	"html/template"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denizblog/blog/internal/db"
	"github.com/denizblog/blog/internal/forms"
	"github.com/denizblog/blog/internal/types"
)

func TestHomeListsPosts(t *testing.T) {
	var buf bytes.Buffer
	err := Home(&buf, HomePage{
		Page: Page{SiteTitle: "My Blog", Title: "My Blog", Flashes: []string{"Login Successfully!"}},
		Posts: []db.PostEntry{{
			Post:       db.Post{ID: 7, Title: "Hello", Subtitle: "World", Date: "Tuesday, March 5, 2024", AuthorID: 1},
			AuthorName: "alice",
		}},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `href="/post/7"`)
	assert.Contains(t, out, "Hello")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "Login Successfully!")
	assert.Contains(t, out, `href="/login"`)
	assert.NotContains(t, out, "/delete/7", "anonymous visitors get no delete link")
}

func TestPageCanEdit(t *testing.T) {
	author := &db.User{ID: 1}
	other := &db.User{ID: 2}

	assert.False(t, Page{}.CanEdit(1))
	assert.True(t, Page{User: other}.CanEdit(1))
	assert.False(t, Page{User: other, OwnerOnlyEdits: true}.CanEdit(1))
	assert.True(t, Page{User: author, OwnerOnlyEdits: true}.CanEdit(1))
}

func TestPostEscapesComments(t *testing.T) {
	var buf bytes.Buffer
	err := Post(&buf, PostPage{
		Page: Page{Title: "Hello", Subtitle: "World · Posted by bob@example.com on Tuesday, March 5, 2024"},
		Post: &db.PostEntry{Post: db.Post{ID: 3, Title: "Hello"}, AuthorEmail: "bob@example.com"},
		Body: template.HTML("<p>rich body</p>"),
		Comments: []db.CommentEntry{
			{Comment: db.Comment{Text: "<script>alert(1)</script>"}, AuthorName: "alice"},
		},
		Errors: forms.Errors{{Field: "comment", Message: "Comment is required."}},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "<p>rich body</p>")
	assert.Contains(t, out, "World · Posted by bob@example.com on Tuesday, March 5, 2024")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "Comment is required.")
}

func TestErrorHidesInternalDetails(t *testing.T) {
	var buf bytes.Buffer
	err := Error(&buf, ErrorPage{
		Page: Page{Title: "Internal Server Error"},
		Err:  types.Internal(assert.AnError),
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "500 Internal Server Error")
	assert.NotContains(t, buf.String(), assert.AnError.Error())
}
