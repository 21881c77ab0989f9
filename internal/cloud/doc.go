// Package cloud provides an HTTP implementation of the domain.CloudClient
// interface against the Afero REST API that backs HubSpace.
//
// Supported operations include:
//   - Resolving the account id of the logged in user.
//   - Listing the metadevices of an account with their state expanded.
//   - Reading and writing the state of a single metadevice.
//
// Every request carries a bearer token from a domain.TokenProvider and the
// HubSpace user agent. Requests are rate limited on the client side and
// retried with exponential backoff on transport errors, 429 and 5xx answers.
// A 401 invalidates the token once before giving up. Other non-2xx statuses
// are returned as *StatusError with the HTTP method, full URL, and status text.
package cloud
