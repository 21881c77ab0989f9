// Package main runs an in-memory HubSpace cloud for development and tests.
// It serves the Keycloak login flow and the Afero device API that the
// hubspace CLI talks to.
//
// HTTP API
//
//	GET  /auth/realms/thd/protocol/openid-connect/auth
//	    Login page for a PKCE authorization request. Sets the session cookie.
//
//	POST /auth/realms/thd/login-actions/authenticate
//	    Credential form. Redirects to the client redirect URI with a code, or
//	    re-renders the login page when the credentials are wrong.
//
//	POST /auth/realms/thd/protocol/openid-connect/token
//	    authorization_code and refresh_token grants.
//
//	GET  /v1/users/me
//	    Account access list of the logged in user.
//
//	GET  /v1/accounts/{account}/metadevices
//	GET  /v1/accounts/{account}/metadevices/{device}/state
//	PUT  /v1/accounts/{account}/metadevices/{device}/state
//	    Device documents and their state.
//
// Behaviour
//
//   - All state is held in memory and lost on process exit.
//   - Devices come from --devices (a JSON array of metadevice documents, for
//     example the output of "hubspace dump --anonymize") or a built-in sample
//     household.
//   - Point the CLI at it with auth_url and api_url in its config file.
//   - The default listen address is 127.0.0.1:8080.
package main
