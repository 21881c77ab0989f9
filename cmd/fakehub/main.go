package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"hubspace/internal/app"
	"hubspace/internal/fakehub"
)

func main() {
	if err := newCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	var (
		addr      string
		username  string
		password  string
		accountID string
		devices   string
		logLevel  string
	)
	cmd := &cobra.Command{
		Use:          "fakehub",
		Short:        "Serve an in-memory HubSpace cloud",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := app.NewLogger(logLevel, "text", cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			seed, err := loadDevices(devices)
			if err != nil {
				return err
			}
			hub := fakehub.New(fakehub.Config{
				Username:  username,
				Password:  password,
				AccountID: accountID,
				Devices:   seed,
				Log:       logrus.NewEntry(log),
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			srv := &http.Server{Addr: addr, Handler: hub.Handler(), ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-ctx.Done()
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(sctx)
			}()

			log.WithFields(logrus.Fields{
				"address":    addr,
				"account_id": hub.AccountID(),
				"devices":    len(seed),
			}).Info("fakehub listening")
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	f.StringVar(&username, "username", "user@example.com", "accepted login")
	f.StringVar(&password, "password", "password", "accepted password")
	f.StringVar(&accountID, "account-id", "", "account id (random when empty)")
	f.StringVar(&devices, "devices", "", "JSON array of metadevice documents (default: sample household)")
	f.StringVar(&logLevel, "log-level", "info", "trace|debug|info|warn|error")
	return cmd
}

func loadDevices(path string) ([]json.RawMessage, error) {
	if path == "" {
		return fakehub.SampleDevices(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return nil, fmt.Errorf("devices %s: %w", path, err)
	}
	return raws, nil
}
