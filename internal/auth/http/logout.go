package http

import (
	"net/http"

	"github.com/forumstack/auth-service/internal/auth/service"
	"github.com/forumstack/auth-service/pkg/authsdk"
	"github.com/forumstack/auth-service/pkg/httpx"
	"github.com/forumstack/auth-service/pkg/slogx"
)

type LogoutHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Logout Endpoint
//	@Description	Revoke the caller's refresh token. Idempotent. Outstanding access tokens remain valid until they expire.
//	@Tags			Tokens
//	@Produce		json
//	@Success		204	"refresh token revoked"
//	@Failure		401	{object}	authsdk.APIError	"message, timestamp"
//	@Security		BearerAuth
//	@Router			/auth/logout [post].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	id, ok := httpx.IdentityFromContext(ctx)
	if !ok {
		authsdk.ErrUnauthorized.WriteError(w)
		return
	}

	if err := h.TokenService.Logout(ctx, id.UserID); err != nil {
		log.Error("logout failed", "user_id", id.UserID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	log.Info("user logged out", "user_id", id.UserID)
	w.WriteHeader(http.StatusNoContent)
}
