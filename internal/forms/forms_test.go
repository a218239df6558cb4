package forms

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postRequest(values url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestParsePost(t *testing.T) {
	res := ParsePost(postRequest(url.Values{
		"title":    {"  Hello "},
		"subtitle": {"World"},
		"img_url":  {"https://example.com/a.png"},
		"body":     {"<p>body</p>"},
	}))
	require.True(t, res.OK())
	assert.Equal(t, "Hello", res.Value.Title)
	assert.Equal(t, "<p>body</p>", res.Value.Body)
}

func TestParsePostMissingFields(t *testing.T) {
	res := ParsePost(postRequest(url.Values{
		"title":    {"Hello"},
		"subtitle": {"   "},
	}))
	require.False(t, res.OK())
	assert.Len(t, res.Errors, 3)
	assert.Equal(t, "Subtitle is required.", res.Errors.For("subtitle"))
	assert.NotEmpty(t, res.Errors.For("img_url"))
	assert.NotEmpty(t, res.Errors.For("body"))
	assert.Empty(t, res.Errors.For("title"))
	assert.Equal(t, "Hello", res.Value.Title, "input is kept for re-rendering")
}

func TestParseComment(t *testing.T) {
	assert.True(t, ParseComment(postRequest(url.Values{"comment": {"Nice!"}})).OK())
	assert.False(t, ParseComment(postRequest(url.Values{})).OK())
}

func TestParseUser(t *testing.T) {
	res := ParseUser(postRequest(url.Values{
		"email":    {"alice@example.com"},
		"password": {" pw123 "},
	}))
	require.True(t, res.OK())
	assert.Empty(t, res.Value.Name, "name is optional")
	assert.Equal(t, " pw123 ", res.Value.Password, "passwords are not trimmed")

	res = ParseUser(postRequest(url.Values{"name": {"alice"}}))
	require.False(t, res.OK())
	assert.Equal(t, "E-mail is required.; Password is required.", res.Errors.Error())
}
