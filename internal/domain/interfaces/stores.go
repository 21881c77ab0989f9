package interfaces

import domaintypes "hubspace/internal/domain/types"

// SessionStore persists the refresh token of a login, sealed with a passphrase.
type SessionStore interface {
	SaveSession(passphrase string, session domaintypes.Session) error
	LoadSession(
		passphrase string,
		username domaintypes.Username,
	) (domaintypes.Session, bool, error)
	DeleteSession(username domaintypes.Username) error
}
