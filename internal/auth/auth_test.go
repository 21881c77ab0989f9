package auth_test

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubspace/internal/auth"
	"hubspace/internal/fakehub"
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

func endpointsFor(base string) auth.Endpoints {
	return auth.Endpoints{
		AuthURL:  base + fakehub.AuthPath,
		CodeURL:  base + fakehub.CodePath,
		TokenURL: base + fakehub.TokenPath,
	}
}

// startFake runs a fakehub server for the duration of the test.
func startFake(t *testing.T, opts ...func(*fakehub.Config)) (*fakehub.Server, *httptest.Server) {
	t.Helper()
	cfg := fakehub.Config{
		Username: testUser,
		Password: testPass,
		Devices:  fakehub.SampleDevices(),
		Log:      quietLogger(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	hub := fakehub.New(cfg)
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(srv.Close)
	return hub, srv
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newAuthenticator(t *testing.T, base, user, pass string, opts ...auth.Option) *auth.Authenticator {
	t.Helper()
	opts = append([]auth.Option{
		auth.WithEndpoints(endpointsFor(base)),
		auth.WithLogger(quietLogger()),
	}, opts...)
	a, err := auth.New(user, pass, opts...)
	require.NoError(t, err)
	return a
}

func TestGenerateChallenge(t *testing.T) {
	ch, err := auth.GenerateChallenge()
	require.NoError(t, err)
	require.NotEmpty(t, ch.Verifier)

	sum := sha256.Sum256([]byte(ch.Verifier))
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(sum[:]), ch.Challenge)
	assert.NotContains(t, ch.Challenge, "=")

	other, err := auth.GenerateChallenge()
	require.NoError(t, err)
	assert.NotEqual(t, ch.Verifier, other.Verifier)
}

func TestExtractLoginData(t *testing.T) {
	tests := []struct {
		name    string
		page    string
		want    auth.LoginData
		wantErr string
	}{
		{
			name: "valid form",
			page: `<html><body><form id="kc-form-login" method="post"
				action="https://accounts.example/auth?session_code=sc&amp;execution=ex&amp;client_id=c&amp;tab_id=tab">
				</form></body></html>`,
			want: auth.LoginData{SessionCode: "sc", Execution: "ex", TabID: "tab"},
		},
		{
			name:    "no form",
			page:    `<html><body><p>maintenance</p></body></html>`,
			wantErr: "unable to parse login page",
		},
		{
			name:    "form without action",
			page:    `<form id="kc-form-login"></form>`,
			wantErr: "unable to extract login url",
		},
		{
			name:    "missing tab id",
			page:    `<form id="kc-form-login" action="/x?session_code=sc&amp;execution=ex"></form>`,
			wantErr: "unable to parse login url",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := auth.ExtractLoginData(strings.NewReader(tc.page))
			if tc.wantErr != "" {
				require.ErrorIs(t, err, auth.ErrInvalidResponse)
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestToken_LoginThenCache(t *testing.T) {
	hub, srv := startFake(t)
	a := newAuthenticator(t, srv.URL, testUser, testPass)

	require.True(t, a.IsExpired())
	tok, err := a.Token(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	require.NotEmpty(t, a.RefreshToken())
	require.False(t, a.IsExpired())

	again, err := a.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tok, again)

	assert.Equal(t, 1, hub.Requests(fakehub.AuthPath))
	assert.Equal(t, 1, hub.Requests(fakehub.CodePath))
	// One code exchange plus one refresh grant.
	assert.Equal(t, 2, hub.Requests(fakehub.TokenPath))
}

func TestToken_RefreshesAfterLifetime(t *testing.T) {
	hub, srv := startFake(t)
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	a := newAuthenticator(t, srv.URL, testUser, testPass, auth.WithClock(clock.Now))

	first, err := a.Token(context.Background())
	require.NoError(t, err)

	clock.Advance(auth.TokenLifetime - time.Second)
	require.False(t, a.IsExpired())

	clock.Advance(time.Second)
	require.True(t, a.IsExpired())

	second, err := a.Token(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 1, hub.Requests(fakehub.AuthPath), "refresh must not repeat the web login")
	assert.Equal(t, 3, hub.Requests(fakehub.TokenPath))
}

func TestToken_InvalidCredentials(t *testing.T) {
	_, srv := startFake(t)
	a := newAuthenticator(t, srv.URL, testUser, "wrong")

	_, err := a.Token(context.Background())
	require.ErrorIs(t, err, auth.ErrInvalidAuth)
	assert.Empty(t, a.RefreshToken())
}

func TestToken_RejectedRefreshTokenLogsInAgain(t *testing.T) {
	hub, srv := startFake(t)
	a := newAuthenticator(t, srv.URL, testUser, testPass, auth.WithRefreshToken("stale"))

	tok, err := a.Token(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	assert.NotEqual(t, "stale", a.RefreshToken())
	assert.Equal(t, 1, hub.Requests(fakehub.AuthPath))
}

func TestToken_SeededRefreshTokenSkipsLogin(t *testing.T) {
	hub, srv := startFake(t)
	first := newAuthenticator(t, srv.URL, testUser, testPass)
	_, err := first.Token(context.Background())
	require.NoError(t, err)

	second := newAuthenticator(t, srv.URL, testUser, testPass, auth.WithRefreshToken(first.RefreshToken()))
	_, err = second.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, hub.Requests(fakehub.AuthPath))
}

func TestToken_ConcurrentCallersShareOneLogin(t *testing.T) {
	hub, srv := startFake(t)
	a := newAuthenticator(t, srv.URL, testUser, testPass)

	var wg sync.WaitGroup
	tokens := make([]string, 8)
	errs := make([]error, 8)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = a.Token(context.Background())
		}(i)
	}
	wg.Wait()

	for i := range tokens {
		require.NoError(t, errs[i])
		assert.Equal(t, tokens[0], tokens[i])
	}
	assert.Equal(t, 1, hub.Requests(fakehub.AuthPath))
}

func TestRelogin(t *testing.T) {
	hub, srv := startFake(t)
	a := newAuthenticator(t, srv.URL, testUser, testPass)

	first, err := a.Token(context.Background())
	require.NoError(t, err)
	second, err := a.Relogin(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, hub.Requests(fakehub.AuthPath))
}

func TestGenerateCode_RedirectWithoutCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "hubspace-app://loginredirect?error=denied")
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()
	a := newAuthenticator(t, srv.URL, testUser, testPass)

	_, err := a.GenerateCode(context.Background(), auth.LoginData{SessionCode: "s", Execution: "e", TabID: "t"})
	require.ErrorIs(t, err, auth.ErrInvalidAuth)
}

func TestGenerateCode_UnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()
	a := newAuthenticator(t, srv.URL, testUser, testPass)

	_, err := a.GenerateCode(context.Background(), auth.LoginData{SessionCode: "s", Execution: "e", TabID: "t"})
	require.ErrorIs(t, err, auth.ErrInvalidResponse)
	require.ErrorContains(t, err, "500")
}

func TestGenerateCode_SendsFormAndUserAgent(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		got = r
		w.Header().Set("Location", "hubspace-app://loginredirect?state=&code=abc")
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()
	a := newAuthenticator(t, srv.URL, testUser, testPass)

	code, err := a.GenerateCode(context.Background(), auth.LoginData{SessionCode: "s", Execution: "e", TabID: "t"})
	require.NoError(t, err)
	assert.Equal(t, "abc", code)

	require.NotNil(t, got)
	assert.Equal(t, auth.DefaultUserAgent, got.Header.Get("User-Agent"))
	assert.Equal(t, "s", got.URL.Query().Get("session_code"))
	assert.Equal(t, "t", got.URL.Query().Get("tab_id"))
	assert.Equal(t, auth.DefaultClientID, got.URL.Query().Get("client_id"))
	assert.Equal(t, testUser, got.PostForm.Get("username"))
	assert.Equal(t, testPass, got.PostForm.Get("password"))
	_, hasCredential := got.PostForm["credentialId"]
	assert.True(t, hasCredential)
}

func TestGenerateToken_MissingIDToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"a","refresh_token":"r","token_type":"Bearer"}`))
	}))
	defer srv.Close()
	a := newAuthenticator(t, srv.URL, testUser, testPass)

	_, err := a.GenerateToken(context.Background(), "r")
	require.ErrorIs(t, err, auth.ErrInvalidResponse)
	require.ErrorContains(t, err, "unable to extract the token")
}

func TestGenerateToken_SendsRefreshForm(t *testing.T) {
	var (
		mu  sync.Mutex
		got url.Values
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		mu.Lock()
		got = r.PostForm
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id_token":"id-1","refresh_token":"r"}`))
	}))
	defer srv.Close()
	a := newAuthenticator(t, srv.URL, testUser, testPass, auth.WithRefreshToken("r"))

	tok, err := a.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "id-1", tok)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "refresh_token", got.Get("grant_type"))
	assert.Equal(t, "r", got.Get("refresh_token"))
	assert.Equal(t, auth.DefaultClientID, got.Get("client_id"))
	assert.Equal(t, "openid email offline_access profile", got.Get("scope"))
}

func TestGenerateToken_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()
	a := newAuthenticator(t, srv.URL, testUser, testPass)

	_, err := a.GenerateToken(context.Background(), "r")
	require.ErrorContains(t, err, "502")
}

func TestToken_RotatedRefreshTokenReplacesStored(t *testing.T) {
	hub, srv := startFake(t, func(c *fakehub.Config) { c.RotateRefreshTokens = true })
	first := newAuthenticator(t, srv.URL, testUser, testPass)
	_, err := first.Token(context.Background())
	require.NoError(t, err)
	seeded := first.RefreshToken()
	require.NotEmpty(t, seeded)

	second := newAuthenticator(t, srv.URL, testUser, testPass, auth.WithRefreshToken(seeded))
	_, err = second.Token(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, second.RefreshToken())
	assert.NotEqual(t, seeded, second.RefreshToken())
	assert.Equal(t, 1, hub.Requests(fakehub.AuthPath), "rotation must not trigger a web login")

	// The retired token is refused, so a client still holding it logs in again.
	third := newAuthenticator(t, srv.URL, testUser, testPass, auth.WithRefreshToken(seeded))
	_, err = third.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, hub.Requests(fakehub.AuthPath))
}

func TestGenerateRefreshToken_MissingRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"a","token_type":"Bearer"}`))
	}))
	defer srv.Close()
	a := newAuthenticator(t, srv.URL, testUser, testPass)

	_, err := a.GenerateRefreshToken(context.Background(), "code", auth.Challenge{Verifier: "v"})
	require.ErrorIs(t, err, auth.ErrInvalidResponse)
}

func TestGenerateToken_ExpirationFromClock(t *testing.T) {
	_, srv := startFake(t)
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	a := newAuthenticator(t, srv.URL, testUser, testPass, auth.WithClock(clock.Now))

	rt, err := a.PerformInitialLogin(context.Background())
	require.NoError(t, err)
	td, err := a.GenerateToken(context.Background(), rt)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(118*time.Second), td.Expiration)
}
