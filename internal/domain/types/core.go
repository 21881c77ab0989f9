package types

// Username is the HubSpace login (an e-mail address).
type Username string

// String returns the string form of the username.
func (u Username) String() string { return string(u) }

// AccountID identifies the Afero account that owns a user's devices.
type AccountID string

// String returns the string form of the account identifier.
func (id AccountID) String() string { return string(id) }

// Fingerprint is a short identifier derived from a username, used for on-disk names.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }
