package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/denizblog/blog/internal/types"
	"github.com/denizblog/blog/web/static/html"
)

const (
	flashCommentLogin  = "Please login or register to comment."
	flashEmailTaken    = "E-mail is already registered!"
	flashLoggedIn      = "Login Successfully!"
	flashWrongPassword = "Password is Wrong!"
	flashLoginRequired = "Please log in to access this page."
	flashRegistered    = "Registration complete, please log in."
)

// page builds the layout data and consumes the session's pending flashes.
// It may set a cookie, so it must run before anything is written.
func (s *Server) page(w http.ResponseWriter, r *http.Request, title, subtitle string, extra ...string) html.Page {
	rc := requestContext(r)
	flashes, err := s.sessions.PopFlashes(r.Context(), w, rc.Session)
	if err != nil {
		s.logger.Warnw("Failed to pop flashes", "error", err)
	}
	return html.Page{
		SiteTitle:      s.cfg.SiteTitle,
		Title:          title,
		Subtitle:       subtitle,
		User:           rc.User,
		Flashes:        append(flashes, extra...),
		OwnerOnlyEdits: s.cfg.Security.OwnerOnlyEdits,
	}
}

// render buffers the page so a template failure still yields a clean error response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, fn func(io.Writer) error) {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		s.logger.Errorw("Failed to render page",
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// fail renders the error page for se. Server errors are logged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, se types.StatusError) {
	if se.HTTPStatus() >= http.StatusInternalServerError {
		s.logger.Errorw("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", se.Unwrap(),
		)
	}
	data := html.ErrorPage{
		Page: s.page(w, r, se.StatusText(), ""),
		Err:  se,
	}
	s.render(w, r, se.HTTPStatus(), func(out io.Writer) error {
		return html.Error(out, data)
	})
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.fail(w, r, types.NotFound())
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.fail(w, r, types.NewStatusError(nil, http.StatusMethodNotAllowed))
}

// flashRedirect queues a notice for the next rendered page and redirects to target.
func (s *Server) flashRedirect(w http.ResponseWriter, r *http.Request, msg, target string) {
	rc := requestContext(r)
	if err := s.sessions.Flash(r.Context(), w, rc.Session, msg); err != nil {
		s.fail(w, r, types.Internal(err))
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.database.Ping(ctx); err != nil {
		s.logger.Errorw("Health check failed", "error", err)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}
