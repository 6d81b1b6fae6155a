package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Session makes sure every request carries an opaque session key. The key is
// read from cookieName; a fresh random key is issued when the cookie is
// missing or malformed.
func Session(cookieName string, maxAge time.Duration, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ""
			if c, err := r.Cookie(cookieName); err == nil {
				if id, err := uuid.Parse(c.Value); err == nil {
					key = id.String()
				}
			}
			if key == "" {
				key = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    key,
					Path:     "/",
					MaxAge:   int(maxAge.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), sessionKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionKeyFromContext returns the session key set by Session, or "".
func SessionKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(sessionKey).(string)
	return key
}

// WithSessionKey stores key in ctx. Used by tests and non-HTTP callers.
func WithSessionKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, sessionKey, key)
}
