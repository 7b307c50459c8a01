package service

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/forumstack/auth-service/internal/auth/store"
	"github.com/forumstack/auth-service/internal/auth/store/drivers/sqlite"
	"github.com/forumstack/auth-service/pkg/cryptox"
	"github.com/forumstack/auth-service/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "forumstack-auth-test"

// fakeMailer records outgoing verification emails instead of sending them.
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

type sentMail struct {
	to         string
	confirmURL string
}

func (m *fakeMailer) SendVerificationEmail(_ context.Context, toEmail, confirmURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: toEmail, confirmURL: confirmURL})
	return nil
}

func (m *fakeMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

type testEnv struct {
	store    store.Store
	signer   jwtx.Signer
	verifier jwtx.Verifier
	mailer   *fakeMailer
	tokens   *TokenService
	reg      *RegistrationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper.txt"))

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

	m := &fakeMailer{}

	tokens := &TokenService{
		Credentials: &CredentialService{Store: st},
		Signer:      signer,
		Verifier:    verifier,
		Store:       st,
		Issuer:      testIssuer,
		AccessTTL:   jwtx.DefaultAccessTokenTTL,
		RefreshTTL:  jwtx.DefaultRefreshTokenTTL,
	}

	reg := &RegistrationService{
		Store:           st,
		Mailer:          m,
		BaseURL:         "http://localhost:8080",
		VerificationTTL: DefaultVerificationTTL,
	}

	return &testEnv{
		store:    st,
		signer:   signer,
		verifier: verifier,
		mailer:   m,
		tokens:   tokens,
		reg:      reg,
	}
}

// registerAndConfirm runs the full registration flow and returns the raw
// verification token that was emailed before confirming.
func (e *testEnv) registerAndConfirm(t *testing.T, username, email, password string) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, e.reg.Register(ctx, RegisterParams{
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
		Username:  username,
		Password:  password,
	}))

	token := tokenFromConfirmURL(t, e.mailer.last(t).confirmURL)
	require.NoError(t, e.reg.Confirm(ctx, token))
}

func tokenFromConfirmURL(t *testing.T, confirmURL string) string {
	t.Helper()
	i := strings.Index(confirmURL, "token=")
	require.GreaterOrEqual(t, i, 0, "confirm URL %q has no token", confirmURL)
	return confirmURL[i+len("token="):]
}

// userIDByUsername resolves a user's id for assertions.
func (e *testEnv) userIDByUsername(t *testing.T, username string) string {
	t.Helper()
	u, err := e.store.Users().GetUserByUsername(context.Background(), username)
	require.NoError(t, err)
	return u.ID
}
