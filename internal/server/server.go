package server

import (
	"net/http"

	"github.com/aarol/reload"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/denizblog/blog/internal/auth"
	"github.com/denizblog/blog/internal/config"
	"github.com/denizblog/blog/internal/db"
	"github.com/denizblog/blog/internal/metrics"
	"github.com/denizblog/blog/internal/session"
	"github.com/denizblog/blog/web/static"
	"github.com/denizblog/blog/web/static/html"
)

type Server struct {
	cfg            *config.Config
	database       *db.Database
	store          *db.Store
	sessions       *session.Manager
	hasher         *auth.Hasher
	logger         *zap.SugaredLogger
	metrics        *metrics.Metrics
	metricsHandler http.Handler
}

func New(
	cfg *config.Config,
	database *db.Database,
	sessions *session.Manager,
	hasher *auth.Hasher,
	logger *zap.SugaredLogger,
	m *metrics.Metrics,
	metricsHandler http.Handler,
) *Server {
	return &Server{
		cfg:            cfg,
		database:       database,
		store:          db.NewStore(database),
		sessions:       sessions,
		hasher:         hasher,
		logger:         logger,
		metrics:        m,
		metricsHandler: metricsHandler,
	}
}

func (s *Server) Routes() http.Handler {
	mw := NewMiddleware(s.logger, s.metrics, s.fail)

	r := chi.NewRouter()
	r.Use(middleware.RequestID) // add unique id to each request context
	r.Use(middleware.RealIP)    // add request RemoteAddr to X-Real-IP
	r.Use(mw.RequestLogger)
	r.Use(mw.Recoverer)
	r.Use(mw.SecurityHeaders)
	r.Use(s.sessions.Verifier())
	r.Use(s.LoadIdentity)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.notFound(w, r)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.methodNotAllowed(w, r)
	})

	// handle static assets
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static.Assets))))
	if s.metricsHandler != nil {
		r.Handle("/metrics", s.metricsHandler)
	}
	r.Get("/healthz", s.handleHealth)

	// public routes
	r.Group(func(r chi.Router) {
		r.Get("/", s.handleHome)
		r.Post("/", s.handleHome)
		r.Get("/about", s.handleAbout)
		r.Post("/about", s.handleAbout)
		r.Get("/contact", s.handleContact)
		r.Post("/contact", s.handleContact)

		r.Route("/post/{postID}", func(r chi.Router) {
			r.Use(s.PostCtx)
			r.Get("/", s.handleShowPost)
			r.Post("/", s.handleComment)
		})

		limit := mw.RateLimit(s.cfg.Security.LoginRatePerMin)
		r.Get("/register", s.handleRegisterPage)
		r.With(limit).Post("/register", s.handleRegister)
		r.Get("/login", s.handleLoginPage)
		r.With(limit).Post("/login", s.handleLogin)
	})

	// protected routes
	r.Group(func(r chi.Router) {
		r.Use(s.RequireAuth)

		r.Get("/make_post", s.handleNewPost)
		r.Post("/make_post", s.handleCreatePost)

		r.Route("/edit-post/{postID}", func(r chi.Router) {
			r.Use(s.PostCtx)
			r.Get("/", s.handleEditPage)
			r.Post("/", s.handleEditPost)
		})

		r.Route("/delete/{postID}", func(r chi.Router) {
			r.Use(s.PostCtx)
			r.Get("/", s.handleDeletePost)
			r.Post("/", s.handleDeletePost)
		})

		r.Get("/logout", s.handleLogout)
		r.Post("/logout", s.handleLogout)
	})

	var handler http.Handler = r

	html.FromDisk = s.cfg.IsDev()
	if s.cfg.IsDev() {
		// list of directories to recursively watch
		reloader := reload.New("web/static/html/", "web/static/css/")
		handler = reloader.Handle(handler)
	}

	return handler
}
