package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	stateCookie = "timetable_oauth_state"
	nextCookie  = "timetable_oauth_next"
	defaultNext = "/dashboard"
)

// Provider is the OAuth identity provider used for sign-in.
type Provider interface {
	AuthCodeURL(state string) (string, error)
	Exchange(ctx context.Context, code string) (GoogleAccount, error)
}

type Handler struct {
	provider Provider
	users    UserStore
	tokens   *Tokens
	secure   bool
	logger   *zap.Logger
}

func NewHandler(provider Provider, users UserStore, tokens *Tokens, secureCookies bool, logger *zap.Logger) *Handler {
	return &Handler{
		provider: provider,
		users:    users,
		tokens:   tokens,
		secure:   secureCookies,
		logger:   logger.Named("auth"),
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/auth/signin", h.handleSignIn)
	r.Get("/auth/login", h.handleLogin)
	r.Get("/auth/callback", h.handleCallback)
	r.Post("/auth/signout", h.handleSignOut)
	r.Get("/auth/user", h.handleUser)
}

// handleSignIn answers {redirectUrl} for the provider's consent page or {error}.
func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Provider string `json:"provider"`
		Next     string `json:"next"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Provider != "" && body.Provider != "google" {
		writeError(w, http.StatusBadRequest, "対応していないログイン方法です")
		return
	}

	redirectURL, err := h.begin(w, body.Next)
	if err != nil {
		h.logger.Warn("sign in", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "認証URLの取得に失敗しました")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"redirectUrl": redirectURL})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	redirectURL, err := h.begin(w, r.URL.Query().Get("next"))
	if err != nil {
		h.logger.Warn("login", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "認証URLの取得に失敗しました")
		return
	}
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

func (h *Handler) begin(w http.ResponseWriter, next string) (string, error) {
	state := randomToken(16)
	redirectURL, err := h.provider.AuthCodeURL(state)
	if err != nil {
		return "", err
	}
	h.setCookie(w, stateCookie, state, 10*time.Minute)
	h.setCookie(w, nextCookie, safeNext(next), 10*time.Minute)
	return redirectURL, nil
}

// handleCallback completes the provider handshake. Whatever happens the
// browser ends up at next; a failed exchange simply leaves it signed out.
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	next := q.Get("next")
	if next == "" {
		if c, err := r.Cookie(nextCookie); err == nil {
			next = c.Value
		}
	}
	next = safeNext(next)
	h.clearCookie(w, nextCookie)

	code := q.Get("code")
	if code == "" {
		http.Redirect(w, r, next, http.StatusFound)
		return
	}

	stateOK := false
	if c, err := r.Cookie(stateCookie); err == nil && c.Value != "" && c.Value == q.Get("state") {
		stateOK = true
	}
	h.clearCookie(w, stateCookie)
	if !stateOK {
		h.logger.Warn("callback: state mismatch")
		http.Redirect(w, r, next, http.StatusFound)
		return
	}

	ctx := r.Context()
	acct, err := h.provider.Exchange(ctx, code)
	if err != nil {
		h.logger.Error("callback: exchange", zap.Error(err))
		http.Redirect(w, r, next, http.StatusFound)
		return
	}

	user, err := h.users.UpsertGoogleUser(ctx, acct.Sub, User{
		Email:     acct.Email,
		FullName:  acct.Name,
		AvatarURL: acct.Picture,
	})
	if err != nil {
		h.logger.Error("callback: upsert user", zap.Error(err))
		http.Redirect(w, r, next, http.StatusFound)
		return
	}

	if err := h.users.EnsureProfile(ctx, user); err != nil {
		h.logger.Error("callback: ensure profile", zap.String("user_id", user.ID), zap.Error(err))
	}

	session, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.Error("callback: issue session", zap.Error(err))
		http.Redirect(w, r, next, http.StatusFound)
		return
	}
	h.setCookie(w, SessionCookie, session, h.tokens.TTL())

	http.Redirect(w, r, next, http.StatusFound)
}

func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, SessionCookie)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleUser reports the signed-in user, or null.
func (h *Handler) handleUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tokens.CurrentUser(r))
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// safeNext keeps redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return defaultNext
	}
	return next
}
