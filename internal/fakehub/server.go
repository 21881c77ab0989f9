package fakehub

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"hubspace/internal/domain"
)

// Paths served by the fake, relative to its base URL.
const (
	AuthPath     = "/auth/realms/thd/protocol/openid-connect/auth"
	CodePath     = "/auth/realms/thd/login-actions/authenticate"
	TokenPath    = "/auth/realms/thd/protocol/openid-connect/token"
	AccountPath  = "/v1/users/me"
	AccountsPath = "/v1/accounts"

	sessionCookie = "AUTH_SESSION_ID"
)

// Config seeds a Server.
type Config struct {
	Username  string
	Password  string
	AccountID string
	ClientID  string
	// Devices are metadevice documents as the Afero API returns them.
	Devices []json.RawMessage
	Log     *logrus.Entry
	// RotateRefreshTokens makes every refresh grant answer with a new refresh
	// token and retire the one presented.
	RotateRefreshTokens bool
}

type loginSession struct {
	cookie      string
	challenge   string
	redirectURI string
}

type grant struct {
	challenge   string
	redirectURI string
}

type device struct {
	raw    map[string]any
	states []domain.State
}

// Server is the fake cloud. It is safe for concurrent use.
type Server struct {
	cfg Config
	log *logrus.Entry

	mu            sync.Mutex
	sessions      map[string]loginSession // by session_code
	codes         map[string]grant
	refreshTokens map[string]bool
	idTokens      map[string]bool
	devices       map[string]*device
	order         []string
	failures      []int
	requests      map[string]int
}

// New returns a Server seeded from cfg. Devices that fail to decode are skipped.
func New(cfg Config) *Server {
	if cfg.ClientID == "" {
		cfg.ClientID = "hubspace_android"
	}
	if cfg.AccountID == "" {
		cfg.AccountID = uuid.NewString()
	}
	if cfg.Log == nil {
		cfg.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Server{
		cfg:           cfg,
		log:           cfg.Log.WithField("component", "fakehub"),
		sessions:      make(map[string]loginSession),
		codes:         make(map[string]grant),
		refreshTokens: make(map[string]bool),
		idTokens:      make(map[string]bool),
		devices:       make(map[string]*device),
		requests:      make(map[string]int),
	}
	for _, raw := range cfg.Devices {
		s.addDevice(raw)
	}
	return s
}

// AccountID returns the account that owns the seeded devices.
func (s *Server) AccountID() string { return s.cfg.AccountID }

// Handler returns the HTTP surface of the fake.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+AuthPath, s.handleAuth)
	mux.HandleFunc("POST "+CodePath, s.handleCode)
	mux.HandleFunc("POST "+TokenPath, s.handleToken)
	mux.HandleFunc("GET "+AccountPath, s.authorized(s.handleMe))
	mux.HandleFunc("GET "+AccountsPath+"/{account}/metadevices", s.authorized(s.handleMetadevices))
	mux.HandleFunc("GET "+AccountsPath+"/{account}/metadevices/{device}/state", s.authorized(s.handleGetState))
	mux.HandleFunc("PUT "+AccountsPath+"/{account}/metadevices/{device}/state", s.authorized(s.handlePutState))
	return s.logged(mux)
}

// FailNext makes the next len(statuses) API requests fail with those statuses.
func (s *Server) FailNext(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, statuses...)
}

// RevokeTokens forgets every issued refresh and id token.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens = make(map[string]bool)
	s.idTokens = make(map[string]bool)
}

// Requests returns how many requests hit path (without query).
func (s *Server) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

// States returns the current states of a device.
func (s *Server) States(deviceID string) []domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return nil
	}
	return append([]domain.State(nil), d.states...)
}

func (s *Server) logged(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.mu.Lock()
		s.requests[r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"remote":   r.RemoteAddr,
			"duration": time.Since(start),
		}).Debug("request")
	})
}

var loginPage = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html><head><title>Sign in to HubSpace</title></head>
<body>
{{if .Error}}<span id="input-error">{{.Error}}</span>{{end}}
<form id="kc-form-login" action="{{.Action}}" method="post">
<input id="username" name="username" type="text">
<input id="password" name="password" type="password">
<input type="hidden" id="id-hidden-input" name="credentialId">
<input type="submit" id="kc-login" value="Sign In">
</form>
</body></html>
`))

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, sessionCode, msg string) {
	action := url.Values{
		"session_code": {sessionCode},
		"execution":    {"execution-" + sessionCode},
		"client_id":    {s.cfg.ClientID},
		"tab_id":       {"tab-" + sessionCode},
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = loginPage.Execute(w, struct {
		Action string
		Error  string
	}{
		Action: baseURL(r) + CodePath + "?" + action.Encode(),
		Error:  msg,
	})
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("response_type") != "code" || q.Get("client_id") != s.cfg.ClientID {
		http.Error(w, "invalid client", http.StatusBadRequest)
		return
	}
	if q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
		http.Error(w, "pkce required", http.StatusBadRequest)
		return
	}
	sessionCode := uuid.NewString()
	sess := loginSession{
		cookie:      uuid.NewString(),
		challenge:   q.Get("code_challenge"),
		redirectURI: q.Get("redirect_uri"),
	}
	s.mu.Lock()
	s.sessions[sessionCode] = sess
	s.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: sess.cookie, Path: "/"})
	s.renderLogin(w, r, sessionCode, "")
}

func (s *Server) handleCode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionCode := q.Get("session_code")
	s.mu.Lock()
	sess, ok := s.sessions[sessionCode]
	s.mu.Unlock()
	if !ok || q.Get("execution") != "execution-"+sessionCode || q.Get("tab_id") != "tab-"+sessionCode {
		http.Error(w, "unknown login session", http.StatusBadRequest)
		return
	}
	if c, err := r.Cookie(sessionCookie); err != nil || c.Value != sess.cookie {
		http.Error(w, "cookie not found", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("username") != s.cfg.Username || r.PostForm.Get("password") != s.cfg.Password {
		s.renderLogin(w, r, sessionCode, "Invalid username or password.")
		return
	}

	code := uuid.NewString()
	s.mu.Lock()
	delete(s.sessions, sessionCode)
	s.codes[code] = grant{challenge: sess.challenge, redirectURI: sess.redirectURI}
	s.mu.Unlock()

	loc := sess.redirectURI + "?" + url.Values{"state": {""}, "code": {code}}.Encode()
	w.Header().Set("Location", loc)
	w.WriteHeader(http.StatusFound)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		tokenError(w, "invalid_request")
		return
	}
	if r.PostForm.Get("client_id") != s.cfg.ClientID {
		tokenError(w, "invalid_client")
		return
	}

	var refresh string
	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		code := r.PostForm.Get("code")
		s.mu.Lock()
		g, ok := s.codes[code]
		delete(s.codes, code)
		s.mu.Unlock()
		if !ok || g.redirectURI != r.PostForm.Get("redirect_uri") {
			tokenError(w, "invalid_grant")
			return
		}
		sum := sha256.Sum256([]byte(r.PostForm.Get("code_verifier")))
		if base64.RawURLEncoding.EncodeToString(sum[:]) != g.challenge {
			tokenError(w, "invalid_grant")
			return
		}
		refresh = "refresh-" + uuid.NewString()
	case "refresh_token":
		if !slices.Contains(strings.Fields(r.PostForm.Get("scope")), "openid") {
			tokenError(w, "invalid_scope")
			return
		}
		refresh = r.PostForm.Get("refresh_token")
		s.mu.Lock()
		ok := s.refreshTokens[refresh]
		if ok && s.cfg.RotateRefreshTokens {
			delete(s.refreshTokens, refresh)
			refresh = "refresh-" + uuid.NewString()
		}
		s.mu.Unlock()
		if !ok {
			tokenError(w, "invalid_grant")
			return
		}
	default:
		tokenError(w, "unsupported_grant_type")
		return
	}

	idToken := "id-" + uuid.NewString()
	s.mu.Lock()
	s.refreshTokens[refresh] = true
	s.idTokens[idToken] = true
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  "access-" + uuid.NewString(),
		"id_token":      idToken,
		"refresh_token": refresh,
		"token_type":    "Bearer",
		"expires_in":    120,
	})
}

func tokenError(w http.ResponseWriter, code string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": code})
}

// authorized checks the bearer token and injected failures before next runs.
func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		if len(s.failures) > 0 {
			status := s.failures[0]
			s.failures = s.failures[1:]
			s.mu.Unlock()
			http.Error(w, http.StatusText(status), status)
			return
		}
		const prefix = "Bearer "
		h := r.Header.Get("Authorization")
		ok := len(h) > len(prefix) && h[:len(prefix)] == prefix && s.idTokens[h[len(prefix):]]
		s.mu.Unlock()
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if account := r.PathValue("account"); account != "" && account != s.cfg.AccountID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"userId": uuid.NewSHA1(uuid.NameSpaceURL, []byte(s.cfg.Username)).String(),
		"accountAccess": []any{
			map[string]any{"account": map[string]any{"accountId": s.cfg.AccountID}},
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// baseURL reconstructs scheme://host of the incoming request.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}
