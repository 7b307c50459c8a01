package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/forumstack/auth-service/internal/auth/service"
	"github.com/forumstack/auth-service/pkg/authsdk"
	"github.com/forumstack/auth-service/pkg/httpx"
	"github.com/forumstack/auth-service/pkg/slogx"
)

type RefreshHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Token Refresh Endpoint
//	@Description	Mint a new access token from a refresh token. The refresh token is echoed back unchanged.
//	@Tags			Tokens
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.AuthResponse	"username, accessToken, refreshToken"
//	@Failure		400		{object}	authsdk.APIError		"message, timestamp"
//	@Failure		404		{object}	authsdk.APIError		"message, timestamp"
//	@Router			/auth/token/refresh [post].
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidBody.WriteError(w)
		return
	}

	if fields := invalidFields(req); fields != nil {
		authsdk.NewValidationError(fields).WriteError(w)
		return
	}

	res, err := h.TokenService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRefreshNotFound):
			authsdk.ErrRefreshTokenNotFound.WriteError(w)
		case errors.Is(err, service.ErrRefreshInvalid):
			authsdk.ErrRefreshTokenInvalid.WriteError(w)
		default:
			log.Error("token refresh failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.AuthResponse{
		Username:     res.Username,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	})
}
