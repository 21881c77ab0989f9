// Package fakehub is an in-memory stand-in for the HubSpace cloud.
//
// It serves both halves of the real service from one http.Handler:
//
//	GET  /auth/realms/thd/protocol/openid-connect/auth
//	    Login page containing the kc-form-login form. Requires a PKCE S256
//	    challenge and sets a session cookie.
//
//	POST /auth/realms/thd/login-actions/authenticate
//	    Credential check. Success redirects (302) to the client redirect URI
//	    with a one-time code; bad credentials re-render the login form.
//
//	POST /auth/realms/thd/protocol/openid-connect/token
//	    authorization_code (PKCE verified) and refresh_token grants. Unknown
//	    refresh tokens fail with invalid_grant.
//
//	GET  /v1/users/me
//	GET  /v1/accounts/{account}/metadevices
//	GET  /v1/accounts/{account}/metadevices/{device}/state
//	PUT  /v1/accounts/{account}/metadevices/{device}/state
//	    Afero API; all require a bearer id token minted by the token endpoint.
//
// All state lives in memory. It backs the package tests of the HTTP layer and
// the fakehub command used for local development.
package fakehub
