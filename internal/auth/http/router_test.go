package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/forumstack/auth-service/internal/auth/service"
	"github.com/forumstack/auth-service/internal/auth/store/drivers/sqlite"
	"github.com/forumstack/auth-service/pkg/authsdk"
	"github.com/forumstack/auth-service/pkg/cryptox"
	"github.com/forumstack/auth-service/pkg/httpx"
	"github.com/forumstack/auth-service/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "forumstack-auth-test"

type captureMailer struct {
	mu   sync.Mutex
	urls []string
}

func (m *captureMailer) SendVerificationEmail(_ context.Context, _, confirmURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls = append(m.urls, confirmURL)
	return nil
}

func (m *captureMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.urls)
	u, err := url.Parse(m.urls[len(m.urls)-1])
	require.NoError(t, err)
	token := u.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}

func newTestServer(t *testing.T) (*httptest.Server, *captureMailer) {
	t.Helper()

	cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper.txt"))

	// Generous limits so tests aren't throttled.
	httpx.StrictLimit = httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
	httpx.ModerateLimit = httpx.StrictLimit

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA("test-key", pemKey)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))
	verifier := jwtx.NewVerifierEdDSA(keys, testIssuer)

	m := &captureMailer{}

	router := NewRouter(keys, verifier, testIssuer, "test", st, slog.Default())
	router.TokenService = &service.TokenService{
		Credentials: &service.CredentialService{Store: st},
		Signer:      signer,
		Verifier:    verifier,
		Store:       st,
		Issuer:      testIssuer,
		AccessTTL:   jwtx.DefaultAccessTokenTTL,
		RefreshTTL:  jwtx.DefaultRefreshTokenTTL,
	}
	router.RegistrationService = &service.RegistrationService{
		Store:           st,
		Mailer:          m,
		BaseURL:         "http://localhost:8080",
		VerificationTTL: service.DefaultVerificationTTL,
	}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, m
}

func postJSON(t *testing.T, srv *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := srv.Client().Post(srv.URL+path, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func registerBody() authsdk.RegisterRequest {
	return authsdk.RegisterRequest{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@example.com",
		Username:  "janedoe",
		Password:  "correct horse battery staple",
		Country:   "Australia",
	}
}

func TestFullAccountLifecycle(t *testing.T) {
	srv, m := newTestServer(t)

	// Register
	resp := postJSON(t, srv, "/auth/register", registerBody())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Login before confirmation is refused
	resp = postJSON(t, srv, "/auth/authenticate", authsdk.LoginRequest{
		Username: "janedoe", Password: "correct horse battery staple",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Confirm via the emailed token
	token := m.lastToken(t)
	httpResp, err := srv.Client().Get(srv.URL + "/auth/registrationConfirm?token=" + url.QueryEscape(token))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, httpResp.StatusCode)
	httpResp.Body.Close()

	// Confirming twice fails: tokens are single use
	httpResp, err = srv.Client().Get(srv.URL + "/auth/registrationConfirm?token=" + url.QueryEscape(token))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, httpResp.StatusCode)
	httpResp.Body.Close()

	// Authenticate
	resp = postJSON(t, srv, "/auth/authenticate", authsdk.LoginRequest{
		Username: "janedoe", Password: "correct horse battery staple",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	auth := decodeBody[authsdk.AuthResponse](t, resp)
	require.Equal(t, "janedoe", auth.Username)
	require.NotEmpty(t, auth.AccessToken)
	require.NotEmpty(t, auth.RefreshToken)

	// Refresh mints a fresh access token, echoing the refresh token
	resp = postJSON(t, srv, "/auth/token/refresh", authsdk.RefreshRequest{RefreshToken: auth.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	refreshed := decodeBody[authsdk.AuthResponse](t, resp)
	require.Equal(t, auth.RefreshToken, refreshed.RefreshToken)
	require.NotEmpty(t, refreshed.AccessToken)

	// Logout with the access token
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/auth/logout", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+refreshed.AccessToken)
	httpResp, err = srv.Client().Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, httpResp.StatusCode)
	httpResp.Body.Close()

	// The refresh token no longer works
	resp = postJSON(t, srv, "/auth/token/refresh", authsdk.RefreshRequest{RefreshToken: auth.RefreshToken})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestRegisterValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("missing fields are listed in the message", func(t *testing.T) {
		body := registerBody()
		body.Email = ""
		body.Password = ""

		resp := postJSON(t, srv, "/auth/register", body)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		msg := decodeBody[map[string]string](t, resp)
		require.Contains(t, msg["message"], "email")
		require.Contains(t, msg["message"], "password")
		require.True(t, strings.HasSuffix(msg["message"], "."))
		require.NotEmpty(t, msg["timestamp"])
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, err := srv.Client().Post(srv.URL+"/auth/register", "application/json", strings.NewReader("{not json"))
		require.NoError(t, err)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		resp := postJSON(t, srv, "/auth/register", registerBody())
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		dup := registerBody()
		dup.Username = "janedoe2"
		resp = postJSON(t, srv, "/auth/register", dup)
		require.Equal(t, http.StatusConflict, resp.StatusCode)
		resp.Body.Close()
	})
}

func TestAuthenticateFailures(t *testing.T) {
	srv, m := newTestServer(t)

	resp := postJSON(t, srv, "/auth/register", registerBody())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	httpResp, err := srv.Client().Get(srv.URL + "/auth/registrationConfirm?token=" + url.QueryEscape(m.lastToken(t)))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, httpResp.StatusCode)
	httpResp.Body.Close()

	t.Run("wrong password", func(t *testing.T) {
		resp := postJSON(t, srv, "/auth/authenticate", authsdk.LoginRequest{
			Username: "janedoe", Password: "nope",
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("unknown user", func(t *testing.T) {
		resp := postJSON(t, srv, "/auth/authenticate", authsdk.LoginRequest{
			Username: "ghost", Password: "whatever",
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("unknown refresh token", func(t *testing.T) {
		resp := postJSON(t, srv, "/auth/token/refresh", authsdk.RefreshRequest{RefreshToken: "bogus"})
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	})
}

func TestLogoutRequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("missing bearer token", func(t *testing.T) {
		resp, err := srv.Client().Post(srv.URL+"/auth/logout", "application/json", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")

		// The 401 carries the same body shape as every other error
		msg := decodeBody[map[string]string](t, resp)
		require.NotEmpty(t, msg["message"])
		require.NotEmpty(t, msg["timestamp"])
	})

	t.Run("garbage bearer token", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/auth/logout", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer garbage")
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		msg := decodeBody[map[string]string](t, resp)
		require.NotEmpty(t, msg["message"])
		require.NotEmpty(t, msg["timestamp"])
	})
}

func TestConfirmUnknownToken(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/auth/registrationConfirm?token=never-issued")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Absent token is treated the same as unknown
	resp, err = srv.Client().Get(srv.URL + "/auth/registrationConfirm")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestHealthAndJWKS(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/livez")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	health := decodeBody[authsdk.HealthResponse](t, resp)
	require.Equal(t, "ok", health.Status)

	resp, err = srv.Client().Get(srv.URL + "/readyz")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = srv.Client().Get(srv.URL + "/.well-known/jwks.json")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	jwks := decodeBody[authsdk.JWKSResponse](t, resp)
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "OKP", jwks.Keys[0].Kty)
}
