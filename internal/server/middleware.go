package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/denizblog/blog/internal/db"
	"github.com/denizblog/blog/internal/metrics"
	"github.com/denizblog/blog/internal/session"
	"github.com/denizblog/blog/internal/types"
	"github.com/denizblog/blog/pkg/utils"
)

type key int

const (
	requestKey key = iota
	postKey
)

// RequestContext is what handlers know about the request beyond its URL: the
// store to read and write through and the identity bound to the session.
type RequestContext struct {
	Store   *db.Store
	Session *session.Session
	User    *db.User // nil for anonymous visitors
}

func (rc *RequestContext) Authenticated() bool {
	return rc.User != nil
}

func requestContext(r *http.Request) *RequestContext {
	if rc, ok := r.Context().Value(requestKey).(*RequestContext); ok {
		return rc
	}
	return &RequestContext{Session: &session.Session{}}
}

func postFromContext(r *http.Request) *db.PostEntry {
	post, _ := r.Context().Value(postKey).(*db.PostEntry)
	return post
}

type Middleware struct {
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
	fail    func(http.ResponseWriter, *http.Request, types.StatusError)
}

func NewMiddleware(logger *zap.SugaredLogger, metrics *metrics.Metrics, fail func(http.ResponseWriter, *http.Request, types.StatusError)) *Middleware {
	return &Middleware{
		logger:  logger,
		metrics: metrics,
		fail:    fail,
	}
}

// Request logging middleware
func (m *Middleware) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			duration := time.Since(start)

			m.logger.Infow("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"size", ww.BytesWritten(),
				"duration", duration,
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)

			if m.metrics != nil {
				m.metrics.RecordHTTPRequest(r.Context(), r.Method, routePattern(r), ww.Status(), duration)
			}
		}()

		next.ServeHTTP(ww, r)
	})
}

// routePattern keeps metric labels bounded by reporting "/post/{postID}"
// rather than every concrete post path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// Recovery middleware with structured logging
func (m *Middleware) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				m.logger.Errorw("Panic recovered",
					"panic", rvr,
					"method", r.Method,
					"path", r.URL.Path,
					"request_id", middleware.GetReqID(r.Context()),
				)
				m.fail(w, r, types.Internal(errors.New("panic recovered")))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// RateLimit throttles each client address to rpm requests per minute.
// A non-positive rpm disables the limit.
func (m *Middleware) RateLimit(rpm int) func(http.Handler) http.Handler {
	if rpm <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	burst := rpm / 6 // Allow burst of 1/6th of rpm
	if burst < 1 {
		burst = 1
	}
	limiters := newLimiterSet(rpm, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiters.allow(clientAddr(r)) {
				m.logger.Warnw("Rate limit exceeded", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				m.fail(w, r, types.NewStatusError(errors.New("too many attempts, please wait a minute"), http.StatusTooManyRequests))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Security headers middleware
func (m *Middleware) SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// LoadIdentity resolves the session named by the verified cookie and the user
// bound to it, and stores both in the request context.
func (s *Server) LoadIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Load(r)
		if err != nil {
			s.fail(w, r, types.Internal(err))
			return
		}

		rc := &RequestContext{Store: s.store, Session: sess}
		if sess.Authenticated() {
			user, err := s.store.UserByID(r.Context(), sess.UserID)
			switch {
			case errors.Is(err, db.ErrNotFound):
				// the account is gone; carry on as anonymous
				sess.UserID = 0
			case err != nil:
				s.fail(w, r, types.Internal(err))
				return
			default:
				rc.User = user
			}
		}

		ctx := context.WithValue(r.Context(), requestKey, rc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth sends anonymous visitors to the login page with a notice.
func (s *Server) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requestContext(r).Authenticated() {
			s.flashRedirect(w, r, flashLoginRequired, "/login")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PostCtx adds the post named by {postID} to the context, or renders 404.
func (s *Server) PostCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := utils.ParseID(chi.URLParam(r, "postID"))
		if !ok {
			s.fail(w, r, types.NotFound())
			return
		}
		post, err := s.store.PostByID(r.Context(), id)
		if errors.Is(err, db.ErrNotFound) {
			s.fail(w, r, types.NotFound())
			return
		}
		if err != nil {
			s.fail(w, r, types.Internal(err))
			return
		}

		ctx := context.WithValue(r.Context(), postKey, post)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
