package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"

	"github.com/denizblog/blog/pkg/utils"
)

// CookieName matches the cookie jwtauth.TokenFromCookie reads.
const CookieName = "jwt"

// Manager binds identities and flash notices to browser sessions. The cookie
// carries a signed token naming the session; the session itself lives in Store.
type Manager struct {
	store     Store
	tokenAuth *jwtauth.JWTAuth
	signKey   []byte
	ttl       time.Duration
	secure    bool
}

func NewManager(store Store, signKey string, ttl time.Duration, secure bool) *Manager {
	return &Manager{
		store:     store,
		tokenAuth: jwtauth.New("HS256", []byte(signKey), nil),
		signKey:   []byte(signKey),
		ttl:       ttl,
		secure:    secure,
	}
}

// Verifier decodes the session cookie into the request context.
func (m *Manager) Verifier() func(http.Handler) http.Handler {
	return jwtauth.Verify(m.tokenAuth, jwtauth.TokenFromCookie)
}

// Load resolves the session named by the verified cookie. Missing, invalid or
// expired cookies yield a fresh anonymous session that is only stored once written.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || claims == nil {
		return &Session{}, nil
	}
	sid, _ := claims["sid"].(string)
	if sid == "" {
		return &Session{}, nil
	}
	s, err := m.store.Get(r.Context(), sid)
	if errors.Is(err, ErrNotFound) {
		return &Session{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Login binds userID to the session under a new session id.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, s *Session, userID uint) error {
	if s.ID != "" {
		if err := m.store.Delete(ctx, s.ID); err != nil {
			return fmt.Errorf("drop old session: %w", err)
		}
	}
	s.ID = ""
	s.UserID = userID
	return m.save(ctx, w, s)
}

// Logout forgets the session server-side and clears the cookie.
func (m *Manager) Logout(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if s.ID != "" {
		if err := m.store.Delete(ctx, s.ID); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	*s = Session{}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
	})
	return nil
}

func (m *Manager) Flash(ctx context.Context, w http.ResponseWriter, s *Session, msg string) error {
	s.Flashes = append(s.Flashes, msg)
	return m.save(ctx, w, s)
}

// PopFlashes returns pending flash notices and removes them from the session.
func (m *Manager) PopFlashes(ctx context.Context, w http.ResponseWriter, s *Session) ([]string, error) {
	if len(s.Flashes) == 0 {
		return nil, nil
	}
	flashes := s.Flashes
	s.Flashes = nil
	if err := m.save(ctx, w, s); err != nil {
		return nil, err
	}
	return flashes, nil
}

func (m *Manager) save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if err := m.store.Save(ctx, s, m.ttl); err != nil {
		return err
	}
	token, err := utils.GenerateToken(m.signKey, s.ID, m.ttl)
	if err != nil {
		return fmt.Errorf("sign session token: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
