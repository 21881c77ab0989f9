package auth

import (
	"errors"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
)

const (
	// DefaultClientID is the Keycloak client used by the HubSpace mobile app.
	DefaultClientID = "hubspace_android"
	// DefaultRedirectURI is where Keycloak sends the authorization code.
	DefaultRedirectURI = "hubspace-app://loginredirect"
	// DefaultUserAgent is sent with every request to the HubSpace cloud.
	DefaultUserAgent = "Dart/3.1 (dart:io)"

	// TokenLifetime is how long a freshly minted id token is trusted.
	TokenLifetime = 118 * time.Second

	loginScope   = "openid offline_access"
	refreshScope = "openid email offline_access profile"
)

var (
	// ErrInvalidAuth is returned when HubSpace rejects the username or password.
	ErrInvalidAuth = errors.New("unable to authenticate with the supplied username / password")

	// ErrInvalidResponse is returned when a HubSpace answer cannot be processed.
	ErrInvalidResponse = errors.New("invalid response from hubspace")
)

// Endpoints are the Keycloak URLs and client parameters used for login.
type Endpoints struct {
	AuthURL     string
	CodeURL     string
	TokenURL    string
	ClientID    string
	RedirectURI string
	UserAgent   string
}

// DefaultEndpoints returns the production HubSpace endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		AuthURL:     "https://accounts.hubspaceconnect.com/auth/realms/thd/protocol/openid-connect/auth",
		CodeURL:     "https://accounts.hubspaceconnect.com/auth/realms/thd/login-actions/authenticate",
		TokenURL:    "https://accounts.hubspaceconnect.com/auth/realms/thd/protocol/openid-connect/token",
		ClientID:    DefaultClientID,
		RedirectURI: DefaultRedirectURI,
		UserAgent:   DefaultUserAgent,
	}
}

// withDefaults fills unset fields from DefaultEndpoints.
func (e Endpoints) withDefaults() Endpoints {
	d := DefaultEndpoints()
	if e.AuthURL == "" {
		e.AuthURL = d.AuthURL
	}
	if e.CodeURL == "" {
		e.CodeURL = d.CodeURL
	}
	if e.TokenURL == "" {
		e.TokenURL = d.TokenURL
	}
	if e.ClientID == "" {
		e.ClientID = d.ClientID
	}
	if e.RedirectURI == "" {
		e.RedirectURI = d.RedirectURI
	}
	if e.UserAgent == "" {
		e.UserAgent = d.UserAgent
	}
	return e
}

// TokenData is a minted request token and the moment it stops being trusted.
type TokenData struct {
	Token      string
	Expiration time.Time
}

// Authenticator follows the HubSpace login workflow and caches its tokens.
type Authenticator struct {
	username  string
	password  string
	endpoints Endpoints
	log       *logrus.Entry
	now       func() time.Time

	// client keeps cookies across the login page and the credential POST.
	client *http.Client
	// noRedirect shares client's jar but hands 302s back to the caller.
	noRedirect *http.Client

	mu           sync.Mutex
	refreshToken string
	tokenData    *TokenData
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithEndpoints overrides the Keycloak endpoints; unset fields keep their defaults.
func WithEndpoints(e Endpoints) Option {
	return func(a *Authenticator) { a.endpoints = e.withDefaults() }
}

// WithHTTPClient uses base's transport and timeout for all login traffic.
func WithHTTPClient(base *http.Client) Option {
	return func(a *Authenticator) {
		if base == nil {
			return
		}
		a.client.Timeout = base.Timeout
		if base.Transport != nil {
			a.client.Transport = base.Transport
		}
	}
}

// WithLogger sets the logger; trace level logs every request.
func WithLogger(log *logrus.Entry) Option {
	return func(a *Authenticator) {
		if log != nil {
			a.log = log
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

// WithRefreshToken seeds a refresh token from an earlier login.
func WithRefreshToken(token string) Option {
	return func(a *Authenticator) { a.refreshToken = token }
}

// New returns an Authenticator for username/password.
func New(username, password string, opts ...Option) (*Authenticator, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	a := &Authenticator{
		username:  username,
		password:  password,
		endpoints: DefaultEndpoints(),
		log:       logrus.NewEntry(logrus.StandardLogger()),
		now:       time.Now,
		client:    &http.Client{Jar: jar, Transport: http.DefaultTransport},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.WithField("component", "auth")
	a.client.Transport = &userAgentTransport{base: a.client.Transport, userAgent: a.endpoints.UserAgent}
	a.noRedirect = &http.Client{
		Jar:       a.client.Jar,
		Transport: a.client.Transport,
		Timeout:   a.client.Timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return a, nil
}

// Username returns the login this Authenticator was built for.
func (a *Authenticator) Username() string { return a.username }

// RefreshToken returns the current refresh token, or "" before the first login.
func (a *Authenticator) RefreshToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refreshToken
}

// IsExpired reports whether a new token must be minted before the next request.
func (a *Authenticator) IsExpired() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.expiredLocked()
}

func (a *Authenticator) expiredLocked() bool {
	if a.tokenData == nil {
		return true
	}
	return !a.now().Before(a.tokenData.Expiration)
}

// Invalidate drops the cached request token so the next Token call refreshes.
func (a *Authenticator) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokenData = nil
}

// userAgentTransport stamps the HubSpace user agent on every request.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(r)
}
