package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CookieName is the session id cookie
const CookieName = "nomadhub_sid"

// LoginPath is where unauthenticated admin requests are sent
const LoginPath = "/admin/login"

type ctxKey struct{}

type state struct {
	id   string
	data *Data
}

// Manager ties the Store to requests: it reads the cookie, loads the data
// into the request context and writes changes back.
type Manager struct {
	store  Store
	ttl    time.Duration
	secure bool
	log    *zap.Logger
}

// NewManager creates a session manager. secure marks the cookie Secure (production).
func NewManager(store Store, ttl time.Duration, secure bool, log *zap.Logger) *Manager {
	return &Manager{store: store, ttl: ttl, secure: secure, log: log.Named("session")}
}

// Load is middleware that attaches the caller's session, if any, to the request
// context and refreshes its TTL.
func (m *Manager) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := &state{}
		if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
			data, err := m.store.Get(r.Context(), c.Value)
			switch {
			case err == nil:
				st.id, st.data = c.Value, data
				if err := m.store.Set(r.Context(), st.id, data, m.ttl); err != nil {
					m.log.Warn("failed to refresh session", zap.Error(err))
				}
				m.writeCookie(w, st.id)
			case errors.Is(err, ErrNotFound):
				m.clearCookie(w)
			default:
				m.log.Error("failed to load session", zap.Error(err))
			}
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, st)))
	})
}

// RequireAdmin redirects callers without an admin session to the login page
func (m *Manager) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d := FromContext(r.Context()); d == nil || !d.IsAdmin {
			http.Redirect(w, r, LoginPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// FromContext returns the session data of the request, or nil when signed out
func FromContext(ctx context.Context) *Data {
	st, ok := ctx.Value(ctxKey{}).(*state)
	if !ok || st.data == nil {
		return nil
	}
	return st.data
}

// IsAdmin reports whether the request carries an admin session
func IsAdmin(ctx context.Context) bool {
	d := FromContext(ctx)
	return d != nil && d.IsAdmin
}

// Start replaces any existing session with a fresh one holding data
func (m *Manager) Start(w http.ResponseWriter, r *http.Request, data *Data) error {
	st := m.state(r)
	if st.id != "" {
		if err := m.store.Delete(r.Context(), st.id); err != nil {
			m.log.Warn("failed to drop previous session", zap.Error(err))
		}
	}

	id := uuid.NewString()
	if err := m.store.Set(r.Context(), id, data, m.ttl); err != nil {
		return err
	}
	st.id, st.data = id, data
	m.writeCookie(w, id)
	return nil
}

// Destroy removes the session and expires the cookie
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) error {
	st := m.state(r)
	m.clearCookie(w)
	if st.id == "" {
		return nil
	}
	id := st.id
	st.id, st.data = "", nil
	return m.store.Delete(r.Context(), id)
}

// AddFlash queues a message for the next render. Signed-out callers have no
// session to carry it, so the message is dropped.
func (m *Manager) AddFlash(r *http.Request, kind, message string) {
	st := m.state(r)
	if st.data == nil {
		return
	}
	st.data.Flash = append(st.data.Flash, Flash{Kind: kind, Message: message})
	if err := m.store.Set(r.Context(), st.id, st.data, m.ttl); err != nil {
		m.log.Warn("failed to save flash", zap.Error(err))
	}
}

// ConsumeFlash returns and clears the queued messages
func (m *Manager) ConsumeFlash(r *http.Request) []Flash {
	st := m.state(r)
	if st.data == nil || len(st.data.Flash) == 0 {
		return nil
	}
	flashes := st.data.Flash
	st.data.Flash = nil
	if err := m.store.Set(r.Context(), st.id, st.data, m.ttl); err != nil {
		m.log.Warn("failed to clear flash", zap.Error(err))
	}
	return flashes
}

func (m *Manager) state(r *http.Request) *state {
	if st, ok := r.Context().Value(ctxKey{}).(*state); ok {
		return st
	}
	return &state{}
}

func (m *Manager) writeCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
