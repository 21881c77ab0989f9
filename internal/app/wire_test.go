package app_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubspace/internal/app"
	"hubspace/internal/domain"
	"hubspace/internal/fakehub"
)

const (
	testUser = "user@example.com"
	testPass = "hunter2"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func fakeConfig(t *testing.T) (app.Config, *fakehub.Server) {
	t.Helper()
	hub := fakehub.New(fakehub.Config{
		Username: testUser,
		Password: testPass,
		Devices:  fakehub.SampleDevices(),
		Log:      logrus.NewEntry(quietLogger()),
	})
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(srv.Close)

	cfg := app.DefaultConfig()
	cfg.Home = t.TempDir()
	cfg.Username = testUser
	cfg.Password = testPass
	cfg.AuthURL = srv.URL
	cfg.APIURL = srv.URL
	return cfg, hub
}

func TestNewWire_RequiresCredentials(t *testing.T) {
	cfg := app.DefaultConfig()
	cfg.Home = t.TempDir()
	_, err := app.NewWire(cfg, quietLogger())
	require.ErrorIs(t, err, app.ErrNoUsername)

	cfg.Username = testUser
	_, err = app.NewWire(cfg, quietLogger())
	require.ErrorIs(t, err, app.ErrNoPassphrase)
}

func TestNewWire_EndToEnd(t *testing.T) {
	cfg, hub := fakeConfig(t)
	ctx := context.Background()

	w, err := app.NewWire(cfg, quietLogger())
	require.NoError(t, err)
	profile, err := w.Account.Login(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountID(hub.AccountID()), profile.AccountID)

	devices, err := w.Devices.Devices(ctx)
	require.NoError(t, err)
	assert.Len(t, devices, 3)

	// A second run picks the session up from disk.
	w2, err := app.NewWire(cfg, quietLogger())
	require.NoError(t, err)
	assert.NotEmpty(t, w2.Auth.RefreshToken())
	_, err = w2.Devices.Devices(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, hub.Requests(fakehub.AuthPath))

	families, err := w2.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewWire_IgnoresSessionSealedWithOtherPassphrase(t *testing.T) {
	cfg, _ := fakeConfig(t)
	w, err := app.NewWire(cfg, quietLogger())
	require.NoError(t, err)
	_, err = w.Account.Login(context.Background())
	require.NoError(t, err)

	cfg.CachePassphrase = "different"
	w2, err := app.NewWire(cfg, quietLogger())
	require.NoError(t, err)
	assert.Empty(t, w2.Auth.RefreshToken())
}
