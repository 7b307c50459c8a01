package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/forumstack/auth-service/pkg/cryptox"
	"github.com/forumstack/auth-service/pkg/idx"
	"github.com/forumstack/auth-service/pkg/jwtx"
)

// AuthKeys bundles the signing key material used by the token service
// and the JWKS endpoint.
type AuthKeys struct {
	Signer   jwtx.Signer
	KeySet   *jwtx.KeySet
	Verifier jwtx.Verifier
}

// InitAuthKeys loads the Ed25519 signing key for the service.
//
// If cfg.SigningKeyFile is set, the PKCS8 PEM key at that path is loaded
// and tokens survive service restarts. Otherwise an ephemeral key is
// generated on startup and every previously issued token becomes invalid.
func InitAuthKeys(cfg Config, logger *slog.Logger) (*AuthKeys, error) {
	var pemKey []byte

	if cfg.SigningKeyFile != "" {
		data, err := os.ReadFile(cfg.SigningKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read signing key file: %w", err)
		}
		pemKey = data
		logger.Info("signing key loaded", "path", cfg.SigningKeyFile, "issuer", cfg.Issuer)
	} else {
		data, err := cryptox.GenerateEd25519Key()
		if err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
		pemKey = data
		logger.Info("generated ephemeral signing key", "algorithm", "EdDSA", "issuer", cfg.Issuer)
		logger.Warn("all existing tokens are now invalid due to key rotation on startup")
	}

	signer, err := jwtx.NewSignerEdDSA(idx.New().String(), pemKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize signer: %w", err)
	}

	keys := jwtx.NewKeySet()
	if err := keys.AddSigner(signer); err != nil {
		return nil, fmt.Errorf("failed to register signing key: %w", err)
	}

	return &AuthKeys{
		Signer:   signer,
		KeySet:   keys,
		Verifier: jwtx.NewVerifierEdDSA(keys, cfg.Issuer),
	}, nil
}
