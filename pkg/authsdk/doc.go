/*
Package authsdk provides a client SDK for the ForumStack authentication service.

# Overview

The SDK wraps the service's HTTP surface: registration, email confirmation,
login, token refresh, logout, JWKS retrieval and health checks. It also ships
the request/response DTOs and the error types the service itself uses, so the
server handlers and any Go consumers share a single wire contract.

# Usage

Create a client and drive the full account lifecycle:

	client := authsdk.NewSDKClient("https://auth.example.com")

	// Register a new account (stays disabled until confirmed)
	msg, err := client.Register(ctx, authsdk.RegisterRequest{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@example.com",
		Username:  "janedoe",
		Password:  "correct horse battery staple",
	})

	// Confirm using the token from the verification email
	msg, err = client.ConfirmRegistration(ctx, token)

	// Log in
	auth, err := client.Authenticate(ctx, authsdk.LoginRequest{
		Username: "janedoe",
		Password: "correct horse battery staple",
	})

	// Mint a fresh access token later
	auth, err = client.Refresh(ctx, auth.RefreshToken)

	// Revoke the refresh token
	err = client.Logout(ctx, auth.AccessToken)

# Verifying tokens in other services

Resource services verify access tokens locally, without calling back to the
auth service on every request. Fetch the JWKS once and build a verifier:

	verifier, err := client.NewVerifierFromJWKS(ctx, "forumstack-auth")
	mux.Handle("/posts", httpx.Chain(postsHandler, httpx.AuthnMiddleware(verifier)))

# Error Handling

Failed requests return an *APIError carrying the HTTP status code and the
service's message:

	if apiErr, ok := err.(*authsdk.APIError); ok {
		fmt.Println(apiErr.StatusCode, apiErr.Message)
	}
*/
package authsdk
