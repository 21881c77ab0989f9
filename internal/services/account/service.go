package account

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"hubspace/internal/domain"
)

// ErrNoResolver is returned by AccountID before SetResolver is called.
var ErrNoResolver = errors.New("account id resolver not configured")

// Authenticator is the part of *auth.Authenticator the service drives.
type Authenticator interface {
	Token(ctx context.Context) (string, error)
	Relogin(ctx context.Context) (string, error)
	RefreshToken() string
	Invalidate()
}

// Resolver looks the account id up from the API.
type Resolver interface {
	AccountID(ctx context.Context) (domain.AccountID, error)
}

// Service implements domain.AccountService. It is safe for concurrent use.
type Service struct {
	username   domain.Username
	passphrase string
	auth       Authenticator
	sessions   domain.SessionStore
	accounts   domain.AccountStore
	log        *logrus.Entry
	now        func() time.Time

	mu        sync.Mutex
	resolver  Resolver
	accountID domain.AccountID
	saved     string // refresh token last written to the session store
}

// Config wires a Service.
type Config struct {
	Username domain.Username
	// Passphrase seals the session file.
	Passphrase string
	Auth       Authenticator
	Sessions   domain.SessionStore
	Accounts   domain.AccountStore
	Log        *logrus.Entry
	Now        func() time.Time
}

// New returns an account service. The refresh token the Authenticator
// starts with is assumed to be the one already on disk.
func New(cfg Config) *Service {
	if cfg.Log == nil {
		cfg.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		username:   cfg.Username,
		passphrase: cfg.Passphrase,
		auth:       cfg.Auth,
		sessions:   cfg.Sessions,
		accounts:   cfg.Accounts,
		log:        cfg.Log.WithField("component", "account"),
		now:        cfg.Now,
		saved:      cfg.Auth.RefreshToken(),
	}
}

// SetResolver sets where AccountID looks up unknown account ids. The API
// client needs the service as its token provider, so it is bound after New.
func (s *Service) SetResolver(r Resolver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolver = r
}

// Username returns the login this service manages.
func (s *Service) Username() domain.Username { return s.username }

// Token returns a valid request token, logging in or refreshing as needed.
func (s *Service) Token(ctx context.Context) (string, error) {
	token, err := s.auth.Token(ctx)
	if err != nil {
		return "", err
	}
	s.persist(false)
	return token, nil
}

// Invalidate drops the current request token after the API refused it.
func (s *Service) Invalidate() { s.auth.Invalidate() }

// Login performs a fresh web login, then resolves and records the account id.
func (s *Service) Login(ctx context.Context) (domain.AccountProfile, error) {
	if _, err := s.auth.Relogin(ctx); err != nil {
		return domain.AccountProfile{}, err
	}
	s.persist(true)

	s.mu.Lock()
	s.accountID = ""
	resolver := s.resolver
	s.mu.Unlock()
	if resolver == nil {
		return domain.AccountProfile{}, ErrNoResolver
	}
	id, err := resolver.AccountID(ctx)
	if err != nil {
		return domain.AccountProfile{}, err
	}
	return s.remember(id)
}

// Logout forgets the stored session and account profile.
func (s *Service) Logout() error {
	s.mu.Lock()
	s.accountID = ""
	s.saved = ""
	s.mu.Unlock()
	s.auth.Invalidate()

	var errs *multierror.Error
	if err := s.sessions.DeleteSession(s.username); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := s.accounts.DeleteAccountProfile(s.username); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

// AccountID returns the account id from memory, the profile store, or the API,
// in that order.
func (s *Service) AccountID(ctx context.Context) (domain.AccountID, error) {
	s.mu.Lock()
	id, resolver := s.accountID, s.resolver
	s.mu.Unlock()
	if id != "" {
		return id, nil
	}

	profile, ok, err := s.accounts.LoadAccountProfile(s.username)
	if err != nil {
		s.log.WithError(err).Warn("unable to read account profile")
	}
	if ok && profile.AccountID != "" {
		s.mu.Lock()
		s.accountID = profile.AccountID
		s.mu.Unlock()
		return profile.AccountID, nil
	}

	if resolver == nil {
		return "", ErrNoResolver
	}
	id, err = resolver.AccountID(ctx)
	if err != nil {
		return "", err
	}
	if _, err := s.remember(id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Service) remember(id domain.AccountID) (domain.AccountProfile, error) {
	profile := domain.AccountProfile{
		Username:  s.username,
		AccountID: id,
		UpdatedAt: s.now().UTC(),
	}
	s.mu.Lock()
	s.accountID = id
	s.mu.Unlock()
	if err := s.accounts.SaveAccountProfile(profile); err != nil {
		return domain.AccountProfile{}, err
	}
	s.log.WithField("account_id", id).Debug("account id resolved")
	return profile, nil
}

// persist writes the refresh token when it differs from the stored one.
// Failures are logged: the token in memory keeps working for this run.
func (s *Service) persist(force bool) {
	rt := s.auth.RefreshToken()
	s.mu.Lock()
	defer s.mu.Unlock()
	if rt == "" || (!force && rt == s.saved) {
		return
	}
	err := s.sessions.SaveSession(s.passphrase, domain.Session{
		Username:     s.username,
		RefreshToken: rt,
		SavedAt:      s.now().UTC(),
	})
	if err != nil {
		s.log.WithError(err).Warn("unable to save session")
		return
	}
	s.saved = rt
	s.log.Debug("session saved")
}

// Compile-time assertion that Service implements domain.AccountService.
var _ domain.AccountService = (*Service)(nil)
