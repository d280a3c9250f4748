package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/KingRain/Parsec/internal/gateway/middleware"
	"github.com/KingRain/Parsec/internal/github"
)

const sessionMaxAge = 7 * 24 * time.Hour

func (h *Handler) setSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionMaxAge / time.Second),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func redirectError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, "/?error="+url.QueryEscape(code), http.StatusFound)
}

// Login sends the browser to GitHub's consent page.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.gh.AuthorizeURL(""), http.StatusFound)
}

// Callback finishes the OAuth flow and stores the token in the session
// cookie. A browser that already has a session goes straight on.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	if middleware.SessionToken(r) != "" {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		h.log.Warn("oauth callback without code")
		redirectError(w, r, "no_code")
		return
	}

	token, err := h.gh.ExchangeCode(r.Context(), code)
	if err != nil {
		var oe *github.OAuthError
		switch {
		case errors.As(err, &oe) && oe.Description != "":
			h.log.WithField("oauth_error", oe.Code).Warn("oauth exchange rejected")
			redirectError(w, r, oe.Description)
		case errors.Is(err, github.ErrNoAccessToken):
			h.log.Warn("oauth exchange returned no token")
			redirectError(w, r, "no_token")
		default:
			h.log.WithError(err).Error("oauth exchange failed")
			redirectError(w, r, "auth_failed")
		}
		return
	}
	h.setSession(w, token)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSession(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
