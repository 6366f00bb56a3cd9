package http

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"stackzero/internal/auth0"
	"stackzero/internal/identity"
	"stackzero/internal/session"
	"stackzero/internal/user"
)

const (
	// Session key holding the anti-CSRF nonce between /login and /callback.
	sessionStateKey = "oauth_state"
	// Session key holding the signed-in user's id.
	sessionUserKey = "user_id"
)

type authenticator interface {
	AuthCodeURL(state string) string
	Authenticate(ctx context.Context, code string) (*identity.VerifiedIdentity, error)
}

type userDirectory interface {
	GetOrCreate(ctx context.Context, name, email string, observedAt time.Time) (*user.User, error)
}

// AuthHandler orchestrates the two HTTP steps of the authorization code
// flow plus logout.
type AuthHandler struct {
	provider authenticator
	users    userDirectory
	sessions *session.Manager
	logger   *slog.Logger
}

// NewAuthHandler creates a handler.
func NewAuthHandler(provider authenticator, users userDirectory, sessions *session.Manager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{provider: provider, users: users, sessions: sessions, logger: logger}
}

// Login handles GET /login: stores a fresh nonce in the session and
// redirects the browser to the provider's consent screen.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		h.logger.Error("login: no session on request")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	state, err := generateState()
	if err != nil {
		h.logger.Error("login: failed to generate state", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	sess.Set(sessionStateKey, state)

	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// Callback handles GET /callback?code=...&state=...: verifies the nonce,
// exchanges the code, validates the identity assertion and reconciles the
// verified identity into a local user. Whatever goes wrong, the browser
// only ever sees a generic status; the cause is logged.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		h.logger.Error("callback: no session on request")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	query := r.URL.Query()

	expectedState := sess.Get(sessionStateKey)
	sess.Delete(sessionStateKey)
	if expectedState == "" {
		h.logger.Warn("callback: no pending login for this session")
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if subtle.ConstantTimeCompare([]byte(query.Get("state")), []byte(expectedState)) != 1 {
		h.logger.Warn("callback: state mismatch")
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if errParam := query.Get("error"); errParam != "" {
		h.logger.Warn("callback: provider returned error", "error", errParam, "description", query.Get("error_description"))
		writeError(w, http.StatusUnauthorized, "authentication failed")
		return
	}

	code := query.Get("code")
	if code == "" {
		h.logger.Warn("callback: missing authorization code")
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	verified, err := h.provider.Authenticate(r.Context(), code)
	if err != nil {
		h.failAuthentication(w, err)
		return
	}

	account, err := h.users.GetOrCreate(r.Context(), verified.DisplayName, verified.Email, verified.ObservedAt)
	if err != nil {
		h.logger.Error("callback: user reconciliation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	sess.Set(sessionUserKey, account.ID.String())
	h.logger.Info("login successful", "user_id", account.ID, "email", account.Email)

	writeJSON(w, http.StatusOK, map[string]string{"status": "signed_in"})
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(w, r); err != nil {
		h.logger.Error("logout: destroy session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// failAuthentication maps an authentication failure to a generic response.
// Provider error codes and validation detail stay in the log.
func (h *AuthHandler) failAuthentication(w http.ResponseWriter, err error) {
	var providerErr *auth0.ProviderError
	switch {
	case errors.As(err, &providerErr):
		h.logger.Warn("callback: token endpoint rejected code",
			"code", string(providerErr.Code), "known", providerErr.Code.Known())
		writeError(w, http.StatusUnauthorized, "authentication failed")
	case errors.Is(err, identity.ErrMalformedToken),
		errors.Is(err, identity.ErrUnknownSigningKey),
		errors.Is(err, identity.ErrBadSignature),
		errors.Is(err, identity.ErrInvalidClaims):
		h.logger.Warn("callback: identity assertion rejected", "error", err)
		writeError(w, http.StatusUnauthorized, "authentication failed")
	case errors.Is(err, identity.ErrKeySetUnavailable):
		h.logger.Error("callback: key set unavailable", "error", err)
		writeError(w, http.StatusBadGateway, "authentication unavailable")
	default:
		h.logger.Error("callback: token exchange failed", "error", err)
		writeError(w, http.StatusBadGateway, "authentication unavailable")
	}
}

// generateState mints a cryptographically random anti-CSRF nonce.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
