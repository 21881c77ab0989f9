package app

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"hubspace/internal/auth"
	"hubspace/internal/cloud"
	"hubspace/internal/domain"
	"hubspace/internal/metrics"
	accountsvc "hubspace/internal/services/account"
	devicesvc "hubspace/internal/services/device"
	"hubspace/internal/store"
)

var (
	// ErrNoUsername is returned when no HubSpace login was configured.
	ErrNoUsername = errors.New("username required (--username or " + EnvUsername + ")")
	// ErrNoPassphrase is returned when neither a password nor a cache passphrase is known.
	ErrNoPassphrase = errors.New("password required (--password or " + EnvPassword + ")")
)

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	Log      *logrus.Logger
	Sessions domain.SessionStore
	Accounts domain.AccountStore
	Auth     *auth.Authenticator
	Account  *accountsvc.Service
	Cloud    *cloud.Client
	Devices  *devicesvc.Service
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	HTTP     *http.Client
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config, log *logrus.Logger) (*Wire, error) {
	if cfg.Username == "" {
		return nil, ErrNoUsername
	}
	if cfg.Passphrase() == "" {
		return nil, ErrNoPassphrase
	}
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, err
	}
	entry := logrus.NewEntry(log)
	username := domain.Username(cfg.Username)

	// File-based stores
	sessions := store.NewSessionFileStore(cfg.Home)
	accounts := store.NewAccountFileStore(cfg.Home)

	var refreshToken string
	sess, ok, err := sessions.LoadSession(cfg.Passphrase(), username)
	switch {
	case errors.Is(err, store.ErrWrongPassphrase):
		entry.Warn("cached session was sealed with another passphrase, ignoring it")
	case err != nil:
		entry.WithError(err).Warn("unable to read cached session")
	case ok:
		refreshToken = sess.RefreshToken
		entry.WithField("saved_at", sess.SavedAt).Debug("using cached session")
	}

	// Ensure an HTTP client is available for outbound calls
	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	authn, err := auth.New(cfg.Username, cfg.Password,
		auth.WithEndpoints(cfg.AuthEndpoints()),
		auth.WithHTTPClient(httpClient),
		auth.WithLogger(entry),
		auth.WithRefreshToken(refreshToken),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}

	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	// High-level services
	acct := accountsvc.New(accountsvc.Config{
		Username:   username,
		Passphrase: cfg.Passphrase(),
		Auth:       authn,
		Sessions:   sessions,
		Accounts:   accounts,
		Log:        entry,
	})
	burst := int(cfg.RateLimit)
	if burst < 1 {
		burst = 1
	}
	client := cloud.New(acct,
		cloud.WithEndpoints(cfg.CloudEndpoints()),
		cloud.WithHTTPClient(httpClient),
		cloud.WithLogger(entry),
		cloud.WithObserver(m),
		cloud.WithRateLimit(rate.Limit(cfg.RateLimit), burst),
	)
	acct.SetResolver(client)
	devices := devicesvc.New(acct, client,
		devicesvc.WithLogger(entry),
		devicesvc.WithConcurrency(cfg.Concurrency),
	)

	return &Wire{
		Log:      log,
		Sessions: sessions,
		Accounts: accounts,
		Auth:     authn,
		Account:  acct,
		Cloud:    client,
		Devices:  devices,
		Metrics:  m,
		Registry: registry,
		HTTP:     httpClient,
	}, nil
}
