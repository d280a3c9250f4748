package middleware

import (
	"net/http"
	"strings"

	"github.com/KingRain/Parsec/internal/github"
)

// SessionCookie holds the user's GitHub access token.
const SessionCookie = "github_token"

// Session moves the session token, from the cookie or a bearer
// Authorization header, into the request context for the GitHub client.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok := SessionToken(r); tok != "" {
			r = r.WithContext(github.WithToken(r.Context(), tok))
		}
		next.ServeHTTP(w, r)
	})
}

func SessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && strings.TrimSpace(c.Value) != "" {
		return strings.TrimSpace(c.Value)
	}
	if tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(tok)
	}
	return ""
}
