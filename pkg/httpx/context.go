package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID   ctxKey = "user_id"
	CtxKeyIdentity ctxKey = "identity"
)

// Identity is the authenticated caller extracted from a verified access
// token. Handlers read it from the request context instead of re-parsing
// the Authorization header.
type Identity struct {
	UserID   string
	Email    string
	Username string
}

// IdentityFromContext returns the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(CtxKeyIdentity).(Identity)
	return id, ok
}
