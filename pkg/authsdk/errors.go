package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/forumstack/auth-service/pkg/httpx"
)

// APIError is the uniform error shape the service returns. Every failure
// crosses the HTTP boundary as `{message, timestamp}` with an appropriate
// status code; internal detail never leaks into the body.
// It implements the error interface and is used both by the server
// (to write HTTP responses) and by the SDK client (to represent errors).
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Message is a human-readable description of the error
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// WriteError writes this APIError to an HTTP response writer as the
// service's standard `{message, timestamp}` body.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"message":   e.Message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Predefined errors for the conditions the service distinguishes.
var (
	// ErrInvalidBody is returned when the request body cannot be parsed as JSON.
	ErrInvalidBody = &APIError{
		StatusCode: http.StatusBadRequest,
		Message:    "Invalid request body.",
	}

	// ErrInvalidCredentials is returned when the username or password is wrong.
	// The message deliberately does not reveal which of the two it was.
	ErrInvalidCredentials = &APIError{
		StatusCode: http.StatusUnauthorized,
		Message:    "Invalid username or password.",
	}

	// ErrAccountDisabled is returned when credentials are valid but the
	// account has not completed email verification.
	ErrAccountDisabled = &APIError{
		StatusCode: http.StatusUnauthorized,
		Message:    "Account is not enabled. Please confirm your registration first.",
	}

	// ErrEmailAlreadyInUse is returned when registering with a taken email.
	ErrEmailAlreadyInUse = &APIError{
		StatusCode: http.StatusConflict,
		Message:    "Email address is already in use.",
	}

	// ErrUsernameNotAvailable is returned when registering with a taken username.
	ErrUsernameNotAvailable = &APIError{
		StatusCode: http.StatusConflict,
		Message:    "Username is not available.",
	}

	// ErrVerificationNotFound covers both unknown and expired verification
	// tokens. The two are conflated on purpose so the response does not
	// reveal whether a token ever existed.
	ErrVerificationNotFound = &APIError{
		StatusCode: http.StatusNotFound,
		Message:    "Verification token not found or expired. Please register again.",
	}

	// ErrRefreshTokenNotFound is returned when the submitted refresh token
	// has no stored record (never issued, revoked by logout, or swept).
	ErrRefreshTokenNotFound = &APIError{
		StatusCode: http.StatusNotFound,
		Message:    "Refresh token not found.",
	}

	// ErrRefreshTokenInvalid is returned when a stored refresh token fails
	// verification (expired or tampered).
	ErrRefreshTokenInvalid = &APIError{
		StatusCode: http.StatusNotFound,
		Message:    "Refresh token is invalid or expired.",
	}

	// ErrVerificationEmailSend is returned when the account was created but
	// the verification email could not be dispatched. The account is NOT
	// rolled back; a repeated registration will report the email as in use.
	ErrVerificationEmailSend = &APIError{
		StatusCode: http.StatusBadGateway,
		Message:    "Account created but the verification email could not be sent.",
	}

	// ErrUnauthorized is returned when a protected endpoint is called
	// without a valid bearer token.
	ErrUnauthorized = &APIError{
		StatusCode: http.StatusUnauthorized,
		Message:    "Missing or invalid access token.",
	}

	// ErrMethodNotAllowed is returned when the HTTP method is not allowed.
	ErrMethodNotAllowed = &APIError{
		StatusCode: http.StatusMethodNotAllowed,
		Message:    "Method not allowed.",
	}

	// ErrServerError is returned for unexpected internal failures.
	ErrServerError = &APIError{
		StatusCode: http.StatusInternalServerError,
		Message:    "Internal server error.",
	}
)

// NewValidationError builds a 400 APIError listing the offending fields,
// comma-joined and terminated with a period.
func NewValidationError(fields []string) *APIError {
	msg := "Invalid value for fields: "
	for i, f := range fields {
		if i > 0 {
			msg += ", "
		}
		msg += f
	}
	return &APIError{
		StatusCode: http.StatusBadRequest,
		Message:    msg + ".",
	}
}

// NewAPIError creates an APIError with the given status code and message.
func NewAPIError(statusCode int, message string) *APIError {
	return &APIError{StatusCode: statusCode, Message: message}
}

// parseErrorResponse turns a non-2xx HTTP response into a typed *APIError.
// Returns nil for 2xx responses.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    errResp.Message,
		}
	}

	// Fallback: create generic error from status code
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
