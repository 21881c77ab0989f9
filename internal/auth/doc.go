// Package auth logs in to HubSpace and keeps a request token fresh.
//
// HubSpace fronts its API with a Keycloak realm that only offers the
// authorization-code flow with PKCE to its mobile client. The login therefore
// mimics the app:
//
//  1. GET the OpenID authorization endpoint with a fresh S256 challenge and
//     scrape the login form (id kc-form-login) for session_code, execution
//     and tab_id.
//  2. POST the username and password to the login-actions endpoint without
//     following redirects. A 302 whose Location carries a code means success.
//  3. Exchange the code (plus the PKCE verifier) for a refresh token.
//  4. Use the refresh token to mint id tokens, which the API accepts as
//     bearer tokens. Tokens are treated as valid for TokenLifetime.
//
// An Authenticator serialises steps 1-4 so concurrent callers of Token share
// one login and one refresh.
package auth
