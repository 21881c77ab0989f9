package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"hubspace/internal/app"
	"hubspace/internal/util/memzero"
)

var (
	home            string
	configPath      string
	username        string
	password        string
	cachePassphrase string
	logLevel        string
	logFormat       string
	timeout         time.Duration

	cfg  app.Config
	wire *app.Wire
)

// Execute runs the CLI until it finishes or receives SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hubspace",
		Short:         "Control HubSpace devices from the command line",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			log, err := app.NewLogger(c.LogLevel, c.LogFormat, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if c.Passphrase() == "" && c.Username != "" {
				if c.Password, err = promptPassword(c.Username); err != nil {
					return err
				}
			}
			cfg = c
			wire, err = app.NewWire(c, log)
			return err
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&home, "home", "", "config dir (default ~/.hubspace)")
	pf.StringVar(&configPath, "config", "", "YAML config file (default <home>/config.yaml)")
	pf.StringVarP(&username, "username", "u", "", "HubSpace username (env "+app.EnvUsername+")")
	pf.StringVar(&password, "password", "", "HubSpace password (env "+app.EnvPassword+"; prompted when empty)")
	pf.StringVar(&cachePassphrase, "cache-passphrase", "", "passphrase sealing the cached session (default: the password)")
	pf.StringVar(&logLevel, "log-level", "", "trace|debug|info|warn|error")
	pf.StringVar(&logFormat, "log-format", "", "text|json")
	pf.DurationVar(&timeout, "timeout", 0, "HTTP timeout per request")

	root.AddCommand(
		loginCmd(),
		logoutCmd(),
		devicesCmd(),
		deviceCmd(),
		stateCmd(),
		dumpCmd(),
		watchCmd(),
		exportCmd(),
	)
	return root
}

// resolveConfig layers flags over environment over the config file over defaults.
func resolveConfig(cmd *cobra.Command) (app.Config, error) {
	c := app.DefaultConfig()
	c.Home = home
	if c.Home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return c, err
		}
		c.Home = filepath.Join(dir, ".hubspace")
	}
	path := configPath
	if path == "" {
		path = filepath.Join(c.Home, "config.yaml")
	}
	if err := app.LoadConfigFile(path, &c); err != nil {
		return c, err
	}
	app.ApplyEnv(&c, os.Getenv)

	flags := cmd.Flags()
	if flags.Changed("username") {
		c.Username = username
	}
	if flags.Changed("password") {
		c.Password = password
	}
	if flags.Changed("cache-passphrase") {
		c.CachePassphrase = cachePassphrase
	}
	if flags.Changed("log-level") {
		c.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		c.LogFormat = logFormat
	}
	if flags.Changed("timeout") {
		c.Timeout = timeout
	}
	return c, c.Validate()
}

// promptPassword reads the password without echo when stdin is a terminal.
func promptPassword(user string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}
	fmt.Fprintf(os.Stderr, "HubSpace password for %s: ", user)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return memzero.String(b), nil
}
