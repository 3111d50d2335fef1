package auth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// SessionCookie is the cookie the identity provider sets in browsers.
const SessionCookie = "__session"

// Middleware attaches the verified identity to the request context.
// Requests without a token, or with one that fails verification, continue
// as anonymous; handlers decide whether a viewer is required.
func Middleware(v *Verifier, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := v.Verify(token)
			if err != nil {
				logger.Debug("rejected session token", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}
