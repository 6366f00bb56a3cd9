package session

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const cookieName = "stackzero_session"

type contextKey struct{}

// Manager attaches session handling to the request pipeline. The backend
// store is chosen once at construction; swapping it changes durability,
// not observable session semantics.
type Manager struct {
	store        Store
	ttl          time.Duration
	secureCookie bool
	logger       *slog.Logger
}

// NewManager builds a manager over the given store. Sessions expire after
// ttl of inactivity; cookies are Secure outside development.
func NewManager(store Store, ttl time.Duration, secureCookie bool, logger *slog.Logger) *Manager {
	if ttl == 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{store: store, ttl: ttl, secureCookie: secureCookie, logger: logger}
}

// Middleware loads the request's session (creating one lazily), exposes it
// via the context and persists it after the handler ran. Persisting resets
// the inactivity window, so every request slides the expiry forward.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, isNew := m.load(r)
		if sess == nil {
			m.logger.Error("session: failed to mint token")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		if isNew {
			http.SetCookie(w, m.cookie(sess.Token(), m.ttl))
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, sess)))

		if sess.needsSave() {
			if err := m.store.Save(r.Context(), sess.Token(), sess.snapshot(), m.ttl); err != nil {
				m.logger.Error("session: save failed", "error", err)
			}
		}
	})
}

// load resolves the incoming cookie to a session, or creates a fresh one.
func (m *Manager) load(r *http.Request) (sess *Session, isNew bool) {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		values, err := m.store.Load(r.Context(), cookie.Value)
		if err != nil {
			m.logger.Error("session: load failed", "error", err)
		}
		if values != nil {
			return newSession(cookie.Value, values, true), false
		}
		// Unknown or expired token: reuse it for a fresh session rather
		// than stacking cookies.
		return newSession(cookie.Value, nil, false), false
	}

	token, err := newToken()
	if err != nil {
		return nil, false
	}
	return newSession(token, nil, false), true
}

// Destroy deletes the session state and expires the browser cookie.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) error {
	sess := FromContext(r.Context())
	if sess == nil {
		return nil
	}
	sess.markDestroyed()
	http.SetCookie(w, m.cookie("", -time.Second))
	return m.store.Delete(r.Context(), sess.Token())
}

func (m *Manager) cookie(value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     cookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	}
}

// FromContext extracts the request's session. Returns nil outside the
// manager's middleware.
func FromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(contextKey{}).(*Session)
	return sess
}
