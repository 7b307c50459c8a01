package http

import (
	"errors"
	"net/http"

	"github.com/forumstack/auth-service/internal/auth/service"
	"github.com/forumstack/auth-service/pkg/authsdk"
	"github.com/forumstack/auth-service/pkg/httpx"
	"github.com/forumstack/auth-service/pkg/slogx"
)

type ConfirmHandler struct {
	RegistrationService *service.RegistrationService
}

// ServeHTTP godoc
//
//	@Summary		Registration Confirmation Endpoint
//	@Description	Redeem the verification token from the registration email, enabling the account. Tokens are single use and expire after 24 hours.
//	@Tags			Registration
//	@Produce		json
//	@Param			token	query		string					true	"Verification token"
//	@Success		200		{object}	authsdk.MessageResponse	"confirmation message"
//	@Failure		404		{object}	authsdk.APIError		"message, timestamp"
//	@Router			/auth/registrationConfirm [get].
func (h *ConfirmHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	token := r.URL.Query().Get("token")
	if token == "" {
		// Absent token reads the same as an unknown one.
		authsdk.ErrVerificationNotFound.WriteError(w)
		return
	}

	if err := h.RegistrationService.Confirm(ctx, token); err != nil {
		switch {
		case errors.Is(err, service.ErrVerificationNotFound),
			errors.Is(err, service.ErrVerificationExpired):
			// Unknown and expired tokens are deliberately indistinguishable.
			authsdk.ErrVerificationNotFound.WriteError(w)
		default:
			log.Error("registration confirmation failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{
		Message: "Registration confirmed. You can now log in.",
	})
}
