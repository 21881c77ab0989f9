package store

import (
	"path/filepath"
	"strings"
	"sync"

	"hubspace/internal/domain"
)

const accountsFile = "accounts.json"

// AccountFileStore persists account profiles, keyed by username, to disk.
type AccountFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewAccountFileStore returns an AccountFileStore rooted at dir.
func NewAccountFileStore(dir string) *AccountFileStore {
	return &AccountFileStore{dir: dir}
}

func (s *AccountFileStore) load() (map[string]domain.AccountProfile, error) {
	profiles := make(map[string]domain.AccountProfile)
	if err := readJSON(filepath.Join(s.dir, accountsFile), &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// SaveAccountProfile stores or updates the given profile.
func (s *AccountFileStore) SaveAccountProfile(profile domain.AccountProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.load()
	if err != nil {
		return err
	}
	profiles[accountKey(profile.Username)] = profile
	return writeJSON(filepath.Join(s.dir, accountsFile), profiles, 0o600)
}

// LoadAccountProfile retrieves the profile of username.
func (s *AccountFileStore) LoadAccountProfile(
	username domain.Username,
) (domain.AccountProfile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.load()
	if err != nil {
		return domain.AccountProfile{}, false, err
	}
	profile, ok := profiles[accountKey(username)]
	return profile, ok, nil
}

// DeleteAccountProfile forgets username. Deleting an unknown user is a no-op.
func (s *AccountFileStore) DeleteAccountProfile(username domain.Username) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.load()
	if err != nil {
		return err
	}
	key := accountKey(username)
	if _, ok := profiles[key]; !ok {
		return nil
	}
	delete(profiles, key)
	return writeJSON(filepath.Join(s.dir, accountsFile), profiles, 0o600)
}

func accountKey(username domain.Username) string {
	return strings.ToLower(strings.TrimSpace(username.String()))
}

// Compile-time assertion that AccountFileStore implements domain.AccountStore.
var _ domain.AccountStore = (*AccountFileStore)(nil)
