package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/forumstack/auth-service/pkg/jwtx"
	"github.com/forumstack/auth-service/pkg/slogx"
)

// AuthnMiddleware rejects requests without a valid bearer token and injects
// the caller's Identity into the request context for downstream handlers.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := v.Verify(raw)
			if err != nil {
				writeBearerError(w, "token verification failed")
				log.Warn("jwt verify failed", "err", err)
				return
			}

			if err := claims.ValidateExpiryWithLeeway(jwtx.DefaultLeeway); err != nil {
				writeBearerError(w, "token expired")
				return
			}

			// Inject into context for downstream handlers.
			ctx = contextWithIdentity(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func contextWithIdentity(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.UID)
	ctx = context.WithValue(ctx, CtxKeyIdentity, Identity{
		UserID:   c.UID,
		Email:    c.Subject,
		Username: c.Username,
	})
	return ctx
}

// writeBearerError rejects a request with the RFC 6750 challenge header and
// the same {message, timestamp} body every other error path uses.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"message":   "Missing or invalid access token.",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
