package authsdk

import (
	"context"
	"net/http"

	"github.com/forumstack/auth-service/pkg/jwtx"
)

// GetJWKS retrieves the JSON Web Key Set for token verification.
func (c *SDKClient) GetJWKS(ctx context.Context) (*JWKSResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/.well-known/jwks.json", nil, nil)
	if err != nil {
		return nil, err
	}

	var jwks JWKSResponse
	if err := decodeJSON(resp, &jwks, http.StatusOK); err != nil {
		return nil, err
	}

	return &jwks, nil
}

// NewVerifierFromJWKS fetches the service's JWKS and builds a local token
// verifier. Resource services call this at startup so they can authorize
// requests without contacting the auth service per request.
func (c *SDKClient) NewVerifierFromJWKS(ctx context.Context, issuer string) (jwtx.Verifier, error) {
	jwks, err := c.GetJWKS(ctx)
	if err != nil {
		return nil, err
	}

	keys := jwtx.NewKeySet()
	if err := keys.ResetFromJWKS(jwtx.JWKS{Keys: jwks.Keys}); err != nil {
		return nil, err
	}

	return jwtx.NewVerifierEdDSA(keys, issuer), nil
}
