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

type AuthenticateHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Authenticate Endpoint
//	@Description	Exchange a username and password for an access/refresh token pair. Logging in replaces any previously issued refresh token for the user.
//	@Tags			Tokens
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.AuthResponse	"username, accessToken, refreshToken"
//	@Failure		400		{object}	authsdk.APIError		"message, timestamp"
//	@Failure		401		{object}	authsdk.APIError		"message, timestamp"
//	@Router			/auth/authenticate [post].
func (h *AuthenticateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidBody.WriteError(w)
		return
	}

	if fields := invalidFields(req); fields != nil {
		authsdk.NewValidationError(fields).WriteError(w)
		return
	}

	res, err := h.TokenService.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			authsdk.ErrInvalidCredentials.WriteError(w)
		case errors.Is(err, service.ErrAccountDisabled):
			authsdk.ErrAccountDisabled.WriteError(w)
		default:
			log.Error("authentication failed", "err", err)
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
