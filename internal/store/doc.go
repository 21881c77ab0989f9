// Package store provides file-based persistence for the hubspace CLI.
//
// It contains concrete implementations of the domain storage interfaces,
// serialising data as JSON on disk. All methods are concurrency-safe via
// internal locking. Stored files live under the configured home directory
// (~/.hubspace by default).
//
// The package includes stores for:
//   - Login sessions, sealed with a passphrase (SessionFileStore)
//   - Account profiles mapping a login to its account id (AccountFileStore)
package store
