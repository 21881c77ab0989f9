package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// oauthConfig describes the HubSpace Keycloak client to x/oauth2.
func (a *Authenticator) oauthConfig(scopes ...string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    a.endpoints.ClientID,
		RedirectURL: a.endpoints.RedirectURI,
		Scopes:      scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   a.endpoints.AuthURL,
			TokenURL:  a.endpoints.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// oauthContext makes x/oauth2 use the login client for token requests.
func (a *Authenticator) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.client)
}

// WebAppLogin loads the login page for challenge and submits the credentials,
// returning the authorization code.
func (a *Authenticator) WebAppLogin(ctx context.Context, challenge Challenge) (string, error) {
	authURL := a.oauthConfig(strings.Fields(loginScope)...).AuthCodeURL("",
		oauth2.SetAuthURLParam("code_challenge", challenge.Challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
	a.log.WithField("url", authURL).Trace("requesting login page")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	a.log.WithField("status", resp.StatusCode).Trace("login page response")
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("auth get %s: %s", a.endpoints.AuthURL, resp.Status)
	}

	loginData, err := ExtractLoginData(resp.Body)
	if err != nil {
		return "", err
	}
	a.log.WithFields(logrus.Fields{
		"session_code": loginData.SessionCode,
		"execution":    loginData.Execution,
		"tab_id":       loginData.TabID,
	}).Trace("webapp login")
	return a.GenerateCode(ctx, loginData)
}

// GenerateCode finalises the login form and returns the authorization code
// carried by the redirect.
func (a *Authenticator) GenerateCode(ctx context.Context, loginData LoginData) (string, error) {
	a.log.Trace("generating code")
	params := url.Values{
		"session_code": {loginData.SessionCode},
		"execution":    {loginData.Execution},
		"client_id":    {a.endpoints.ClientID},
		"tab_id":       {loginData.TabID},
	}
	form := url.Values{
		"username":     {a.username},
		"password":     {a.password},
		"credentialId": {""},
	}
	codeURL := a.endpoints.CodeURL + "?" + params.Encode()
	a.log.WithFields(logrus.Fields{
		"url":      codeURL,
		"username": a.username,
		"password": "<redacted>",
	}).Trace("submitting credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, codeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := a.noRedirect.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	a.log.WithField("status", resp.StatusCode).Trace("credential response")

	if resp.StatusCode == http.StatusOK {
		// Keycloak re-renders the login form when it rejects the credentials.
		if _, err := ExtractLoginData(resp.Body); err == nil {
			return "", ErrInvalidAuth
		}
	}
	if resp.StatusCode != http.StatusFound {
		return "", fmt.Errorf("%w: unable to process the result from %s: %d",
			ErrInvalidResponse, a.endpoints.CodeURL, resp.StatusCode)
	}
	location := resp.Header.Get("Location")
	a.log.WithField("location", location).Trace("credential redirect")
	loc, err := url.Parse(location)
	if err != nil {
		return "", ErrInvalidAuth
	}
	code := loc.Query().Get("code")
	if code == "" {
		return "", ErrInvalidAuth
	}
	return code, nil
}
