// Package account owns the HubSpace login of one user.
//
// It hands out request tokens to the API client, persists the refresh token
// (sealed with a passphrase) whenever HubSpace rotates it, and resolves the
// account id that owns the user's devices, caching it on disk.
package account
