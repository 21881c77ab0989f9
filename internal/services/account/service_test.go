package account_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubspace/internal/auth"
	"hubspace/internal/cloud"
	"hubspace/internal/domain"
	"hubspace/internal/fakehub"
	"hubspace/internal/services/account"
	"hubspace/internal/store"
)

const (
	testUser = "user@example.com"
	testPass = "hunter2"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

// countingSessions records how often a session is written.
type countingSessions struct {
	domain.SessionStore
	mu    sync.Mutex
	saves int
}

func (c *countingSessions) SaveSession(passphrase string, s domain.Session) error {
	c.mu.Lock()
	c.saves++
	c.mu.Unlock()
	return c.SessionStore.SaveSession(passphrase, s)
}

func (c *countingSessions) Saves() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}

type countingResolver struct {
	id    domain.AccountID
	err   error
	calls int
}

func (r *countingResolver) AccountID(context.Context) (domain.AccountID, error) {
	r.calls++
	return r.id, r.err
}

type harness struct {
	hub      *fakehub.Server
	srv      *httptest.Server
	home     string
	sessions *countingSessions
	accounts *store.AccountFileStore
}

func newHarness(t *testing.T, opts ...func(*fakehub.Config)) *harness {
	t.Helper()
	cfg := fakehub.Config{Username: testUser, Password: testPass, Log: quietLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}
	hub := fakehub.New(cfg)
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(srv.Close)
	home := t.TempDir()
	return &harness{
		hub:      hub,
		srv:      srv,
		home:     home,
		sessions: &countingSessions{SessionStore: store.NewSessionFileStore(home, store.WithScrypt(1<<10, 8, 1))},
		accounts: store.NewAccountFileStore(home),
	}
}

func (h *harness) service(t *testing.T, refreshToken string) *account.Service {
	t.Helper()
	a, err := auth.New(testUser, testPass,
		auth.WithEndpoints(auth.Endpoints{
			AuthURL:  h.srv.URL + fakehub.AuthPath,
			CodeURL:  h.srv.URL + fakehub.CodePath,
			TokenURL: h.srv.URL + fakehub.TokenPath,
		}),
		auth.WithLogger(quietLogger()),
		auth.WithRefreshToken(refreshToken),
	)
	require.NoError(t, err)
	svc := account.New(account.Config{
		Username:   testUser,
		Passphrase: testPass,
		Auth:       a,
		Sessions:   h.sessions,
		Accounts:   h.accounts,
		Log:        quietLogger(),
	})
	svc.SetResolver(cloud.New(svc,
		cloud.WithEndpoints(cloud.Endpoints{
			AccountURL: h.srv.URL + fakehub.AccountPath,
			DataURL:    h.srv.URL + fakehub.AccountsPath,
		}),
		cloud.WithLogger(quietLogger()),
	))
	return svc
}

func TestLogin_PersistsSessionAndProfile(t *testing.T) {
	h := newHarness(t)
	svc := h.service(t, "")

	profile, err := svc.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Username(testUser), profile.Username)
	assert.Equal(t, domain.AccountID(h.hub.AccountID()), profile.AccountID)

	sess, ok, err := h.sessions.LoadSession(testPass, testUser)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, sess.RefreshToken)

	stored, ok, err := h.accounts.LoadAccountProfile(testUser)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, profile.AccountID, stored.AccountID)
}

func TestLogin_BadPassword(t *testing.T) {
	h := newHarness(t)
	a, err := auth.New(testUser, "wrong", auth.WithEndpoints(auth.Endpoints{
		AuthURL:  h.srv.URL + fakehub.AuthPath,
		CodeURL:  h.srv.URL + fakehub.CodePath,
		TokenURL: h.srv.URL + fakehub.TokenPath,
	}), auth.WithLogger(quietLogger()))
	require.NoError(t, err)
	svc := account.New(account.Config{Username: testUser, Auth: a, Sessions: h.sessions, Accounts: h.accounts, Log: quietLogger()})
	svc.SetResolver(&countingResolver{id: "x"})

	_, err = svc.Login(context.Background())
	require.ErrorIs(t, err, auth.ErrInvalidAuth)
	assert.Zero(t, h.sessions.Saves())
}

func TestToken_SavesOnlyWhenRefreshTokenChanges(t *testing.T) {
	h := newHarness(t)
	svc := h.service(t, "")
	ctx := context.Background()

	_, err := svc.Token(ctx)
	require.NoError(t, err)
	_, err = svc.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, h.sessions.Saves())
}

func TestToken_SavesRotatedRefreshToken(t *testing.T) {
	h := newHarness(t, func(c *fakehub.Config) { c.RotateRefreshTokens = true })
	svc := h.service(t, "")
	ctx := context.Background()

	_, err := svc.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, h.sessions.Saves())
	before, ok, err := h.sessions.LoadSession(testPass, testUser)
	require.NoError(t, err)
	require.True(t, ok)

	svc.Invalidate()
	_, err = svc.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, h.sessions.Saves())
	after, ok, err := h.sessions.LoadSession(testPass, testUser)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, after.RefreshToken)
	assert.NotEqual(t, before.RefreshToken, after.RefreshToken)

	// The saved token is the live one: a new service restored from it refreshes
	// without a web login.
	restored := h.service(t, after.RefreshToken)
	_, err = restored.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, h.hub.Requests(fakehub.AuthPath))
}

func TestRestoredSessionSkipsLogin(t *testing.T) {
	h := newHarness(t)
	_, err := h.service(t, "").Login(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, h.hub.Requests(fakehub.AuthPath))

	sess, ok, err := h.sessions.LoadSession(testPass, testUser)
	require.NoError(t, err)
	require.True(t, ok)

	restored := h.service(t, sess.RefreshToken)
	_, err = restored.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, h.hub.Requests(fakehub.AuthPath), "no second web login")

	id, err := restored.AccountID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.AccountID(h.hub.AccountID()), id)
	assert.Equal(t, 1, h.hub.Requests(fakehub.AccountPath), "account id read from the profile store")
}

func TestAccountID_ResolvesOnceThenCaches(t *testing.T) {
	h := newHarness(t)
	a, err := auth.New(testUser, testPass)
	require.NoError(t, err)
	svc := account.New(account.Config{Username: testUser, Auth: a, Sessions: h.sessions, Accounts: h.accounts, Log: quietLogger()})
	r := &countingResolver{id: "acct-9"}
	svc.SetResolver(r)

	for i := 0; i < 3; i++ {
		id, err := svc.AccountID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.AccountID("acct-9"), id)
	}
	assert.Equal(t, 1, r.calls)

	stored, ok, err := h.accounts.LoadAccountProfile(testUser)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.AccountID("acct-9"), stored.AccountID)
}

func TestAccountID_Errors(t *testing.T) {
	h := newHarness(t)
	a, err := auth.New(testUser, testPass)
	require.NoError(t, err)
	svc := account.New(account.Config{Username: testUser, Auth: a, Sessions: h.sessions, Accounts: h.accounts, Log: quietLogger()})

	_, err = svc.AccountID(context.Background())
	require.ErrorIs(t, err, account.ErrNoResolver)

	boom := errors.New("boom")
	svc.SetResolver(&countingResolver{err: boom})
	_, err = svc.AccountID(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	svc := h.service(t, "")
	_, err := svc.Login(context.Background())
	require.NoError(t, err)

	require.NoError(t, svc.Logout())

	_, ok, err := h.sessions.LoadSession(testPass, testUser)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = h.accounts.LoadAccountProfile(testUser)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.Logout(), "logging out twice is fine")
}
