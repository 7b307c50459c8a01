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

type RegisterHandler struct {
	RegistrationService *service.RegistrationService
}

// ServeHTTP godoc
//
//	@Summary		Register Endpoint
//	@Description	Create a new user account. The account stays disabled until the emailed verification link is opened.
//	@Tags			Registration
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest	true	"Registration details"
//	@Success		200		{object}	authsdk.MessageResponse	"confirmation pending message"
//	@Failure		400		{object}	authsdk.APIError		"message, timestamp"
//	@Failure		409		{object}	authsdk.APIError		"message, timestamp"
//	@Router			/auth/register [post].
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidBody.WriteError(w)
		return
	}

	if fields := invalidFields(req); fields != nil {
		authsdk.NewValidationError(fields).WriteError(w)
		return
	}

	err := h.RegistrationService.Register(ctx, service.RegisterParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		Country:   req.Country,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailInUse):
			authsdk.ErrEmailAlreadyInUse.WriteError(w)
		case errors.Is(err, service.ErrUsernameTaken):
			authsdk.ErrUsernameNotAvailable.WriteError(w)
		case errors.Is(err, service.ErrVerificationSend):
			authsdk.ErrVerificationEmailSend.WriteError(w)
		default:
			log.Error("registration failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{
		Message: "Registration received. Check your email to confirm your account.",
	})
}
