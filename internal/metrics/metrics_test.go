package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestSetupExposesRecordedMetrics(t *testing.T) {
	m, h, err := Setup("blog-test")
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordHTTPRequest(ctx, http.MethodGet, "/", http.StatusOK, 15*time.Millisecond)
	m.RecordLogin(ctx, "success")
	m.RecordRegistration(ctx, "created")
	m.RecordPostWrite(ctx, "create")
	m.RecordComment(ctx)

	body := scrape(t, h)
	assert.Contains(t, body, "blog_http_requests_total")
	assert.Contains(t, body, "blog_http_duration_seconds")
	assert.Contains(t, body, "blog_login_attempts_total")
	assert.Contains(t, body, `outcome="success"`)
	assert.Contains(t, body, "blog_post_writes_total")
	assert.Contains(t, body, "blog_comments_total")
}

func TestSetupTwice(t *testing.T) {
	_, _, err := Setup("first")
	require.NoError(t, err)
	_, _, err = Setup("second")
	require.NoError(t, err, "each setup registers into its own registry")
}
