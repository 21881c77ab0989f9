package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"hubspace/internal/crypto"
	"hubspace/internal/domain"
)

const sessionsDir = "sessions"

// SessionFileStore persists one sealed login session per username.
type SessionFileStore struct {
	dir string
	kdf kdfParams
	mu  sync.Mutex
}

// SessionOption configures a SessionFileStore.
type SessionOption func(*SessionFileStore)

// WithScrypt overrides the scrypt cost used for new session files.
func WithScrypt(N, r, p int) SessionOption {
	return func(s *SessionFileStore) { s.kdf = kdfParams{N: N, R: r, P: p} }
}

// NewSessionFileStore returns a SessionFileStore rooted at dir.
func NewSessionFileStore(dir string, opts ...SessionOption) *SessionFileStore {
	s := &SessionFileStore{dir: dir, kdf: defaultKDF}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SessionFileStore) path(username domain.Username) string {
	return filepath.Join(s.dir, sessionsDir, crypto.Fingerprint(username).String()+".json.enc")
}

// SaveSession seals session under passphrase, replacing any earlier one.
func (s *SessionFileStore) SaveSession(passphrase string, session domain.Session) error {
	if session.Username == "" {
		return fmt.Errorf("save session: empty username")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	ct, err := seal(passphrase, raw, s.kdf)
	if err != nil {
		return err
	}
	return writeFile(s.path(session.Username), ct, 0o600)
}

// LoadSession returns the session of username. A missing file yields
// (zero, false, nil); a wrong passphrase yields ErrWrongPassphrase.
func (s *SessionFileStore) LoadSession(
	passphrase string,
	username domain.Username,
) (domain.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := readFile(s.path(username))
	if err != nil || b == nil {
		return domain.Session{}, false, err
	}
	pt, err := open(passphrase, b)
	if err != nil {
		return domain.Session{}, false, err
	}
	var session domain.Session
	if err := json.Unmarshal(pt, &session); err != nil {
		return domain.Session{}, false, err
	}
	if crypto.Fingerprint(session.Username) != crypto.Fingerprint(username) {
		return domain.Session{}, false, fmt.Errorf("session file belongs to another user")
	}
	return session, true, nil
}

// DeleteSession removes the session of username, if any.
func (s *SessionFileStore) DeleteSession(username domain.Username) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeFile(s.path(username))
}

// Compile-time assertion that SessionFileStore implements domain.SessionStore.
var _ domain.SessionStore = (*SessionFileStore)(nil)
