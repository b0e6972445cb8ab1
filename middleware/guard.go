package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/reachly/authguard"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the verified access claims injected by
// [RequireAuth].
func ClaimsFromContext(ctx context.Context) (*authguard.AccessClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*authguard.AccessClaims)
	return claims, ok
}

// ClientInfo records the client IP and user agent in the request context so
// engine audit events and suspicion heuristics can see them. Mount it ahead
// of login and refresh handlers. The IP comes from RemoteAddr; deployments
// behind a proxy wrap this with their own forwarded-header handling.
func ClientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := authguard.WithClientIP(r.Context(), clientIP(r))
		ctx = authguard.WithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects requests that do not carry a valid Bearer token.
// Verified claims land in the request context for [ClaimsFromContext].
// Every rejection is a plain 401 with no reason attached.
func RequireAuth(engine *authguard.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := engine.VerifyAccess(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
