package app

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"hubspace/internal/auth"
	"hubspace/internal/cloud"
)

// Environment variables read by ApplyEnv.
const (
	EnvUsername = "HUBSPACE_USERNAME"
	EnvPassword = "HUBSPACE_PASSWORD"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home string `yaml:"-"` // config directory, e.g. $HOME/.hubspace

	Username string `yaml:"username"`
	Password string `yaml:"password,omitempty"`
	// CachePassphrase seals the session file; defaults to Password.
	CachePassphrase string `yaml:"cache_passphrase,omitempty"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Concurrency  int           `yaml:"concurrency"`
	// RateLimit is the number of API requests allowed per second.
	RateLimit float64 `yaml:"rate_limit"`

	// AuthURL and APIURL replace the HubSpace hosts, e.g. with a fakehub.
	AuthURL string `yaml:"auth_url,omitempty"`
	APIURL  string `yaml:"api_url,omitempty"`

	HTTP *http.Client `yaml:"-"` // optional; built from Timeout when nil
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	return Config{
		LogLevel:     "info",
		LogFormat:    "text",
		Timeout:      30 * time.Second,
		PollInterval: 30 * time.Second,
		Concurrency:  4,
		RateLimit:    10,
	}
}

// LoadConfigFile overlays the YAML file at path onto cfg. A missing file is
// not an error; unknown keys are.
func LoadConfigFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays credentials from the environment onto cfg.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv(EnvUsername); v != "" {
		cfg.Username = v
	}
	if v := getenv(EnvPassword); v != "" {
		cfg.Password = v
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log format %q: must be text or json", c.LogFormat)
	}
	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	if c.Concurrency < 1 {
		return errors.New("concurrency must be at least 1")
	}
	if c.RateLimit <= 0 {
		return errors.New("rate limit must be positive")
	}
	for name, raw := range map[string]string{"auth url": c.AuthURL, "api url": c.APIURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s %q: must be an absolute URL", name, raw)
		}
	}
	return nil
}

// Passphrase returns the secret that seals the session file.
func (c Config) Passphrase() string {
	if c.CachePassphrase != "" {
		return c.CachePassphrase
	}
	return c.Password
}

// AuthEndpoints returns the login endpoints, honouring AuthURL.
func (c Config) AuthEndpoints() auth.Endpoints {
	e := auth.DefaultEndpoints()
	if c.AuthURL == "" {
		return e
	}
	e.AuthURL = rebase(c.AuthURL, e.AuthURL)
	e.CodeURL = rebase(c.AuthURL, e.CodeURL)
	e.TokenURL = rebase(c.AuthURL, e.TokenURL)
	return e
}

// CloudEndpoints returns the API endpoints, honouring APIURL. Host header
// overrides only apply to the production API.
func (c Config) CloudEndpoints() cloud.Endpoints {
	e := cloud.DefaultEndpoints()
	if c.APIURL == "" {
		return e
	}
	return cloud.Endpoints{
		AccountURL: rebase(c.APIURL, e.AccountURL),
		DataURL:    rebase(c.APIURL, e.DataURL),
		UserAgent:  e.UserAgent,
	}
}

// rebase keeps the path of endpoint and swaps in the scheme and host of base.
func rebase(base, endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	return strings.TrimRight(base, "/") + u.Path
}
