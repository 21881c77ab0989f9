package interfaces

import domaintypes "hubspace/internal/domain/types"

// AccountStore persists the username to account id mapping.
type AccountStore interface {
	SaveAccountProfile(profile domaintypes.AccountProfile) error
	LoadAccountProfile(
		username domaintypes.Username,
	) (domaintypes.AccountProfile, bool, error)
	DeleteAccountProfile(username domaintypes.Username) error
}
