package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// errRefreshRejected marks a refresh token Keycloak no longer accepts.
var errRefreshRejected = errors.New("refresh token rejected")

// GenerateRefreshToken exchanges an authorization code for a refresh token.
func (a *Authenticator) GenerateRefreshToken(ctx context.Context, code string, challenge Challenge) (string, error) {
	a.log.Trace("generating refresh token")
	tok, err := a.oauthConfig().Exchange(a.oauthContext(ctx), code, oauth2.VerifierOption(challenge.Verifier))
	if err != nil {
		return "", fmt.Errorf("exchange code: %w", err)
	}
	if tok.RefreshToken == "" {
		return "", fmt.Errorf("%w: unable to extract refresh token", ErrInvalidResponse)
	}
	return tok.RefreshToken, nil
}

// GenerateToken mints a request token from refreshToken.
func (a *Authenticator) GenerateToken(ctx context.Context, refreshToken string) (TokenData, error) {
	td, _, err := a.generateToken(ctx, refreshToken)
	return td, err
}

// tokenResponse is the part of a Keycloak token answer the refresh grant reads.
type tokenResponse struct {
	IDToken          string `json:"id_token"`
	RefreshToken     string `json:"refresh_token"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// generateToken also returns the refresh token to keep, which differs from the
// input when Keycloak rotates it.
func (a *Authenticator) generateToken(ctx context.Context, refreshToken string) (TokenData, string, error) {
	a.log.Trace("generating token")
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"scope":         {refreshScope},
		"client_id":     {a.endpoints.ClientID},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoints.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return TokenData{}, "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		return TokenData{}, "", fmt.Errorf("refresh token: %w", err)
	}
	defer resp.Body.Close()
	a.log.WithField("status", resp.StatusCode).Trace("token response")

	var body tokenResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode/100 != 2 {
		if body.Error == "invalid_grant" {
			return TokenData{}, "", fmt.Errorf("%w: %s", errRefreshRejected, body.ErrorDescription)
		}
		return TokenData{}, "", fmt.Errorf("refresh token: %s %s: %s %s",
			http.MethodPost, a.endpoints.TokenURL, resp.Status, body.Error)
	}
	if decodeErr != nil {
		return TokenData{}, "", fmt.Errorf("%w: %v", ErrInvalidResponse, decodeErr)
	}
	if body.IDToken == "" {
		return TokenData{}, "", fmt.Errorf("%w: unable to extract the token", ErrInvalidResponse)
	}
	keep := refreshToken
	if body.RefreshToken != "" {
		keep = body.RefreshToken
	}
	return TokenData{Token: body.IDToken, Expiration: a.now().Add(TokenLifetime)}, keep, nil
}

// PerformInitialLogin runs the full web-app login and returns a refresh token.
func (a *Authenticator) PerformInitialLogin(ctx context.Context) (string, error) {
	a.log.Debug("refresh token not present, generating a new refresh token")
	challenge, err := GenerateChallenge()
	if err != nil {
		return "", err
	}
	a.log.WithField("challenge", challenge.Challenge).Trace("challenge generated")
	code, err := a.WebAppLogin(ctx, challenge)
	if err != nil {
		return "", err
	}
	a.log.Debug("successfully generated an auth code")
	refreshToken, err := a.GenerateRefreshToken(ctx, code, challenge)
	if err != nil {
		return "", err
	}
	a.log.Debug("successfully generated a refresh token")
	return refreshToken, nil
}

// Token returns a valid request token, logging in or refreshing as needed.
func (a *Authenticator) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	loggedIn := false
	if a.refreshToken == "" {
		rt, err := a.PerformInitialLogin(ctx)
		if err != nil {
			return "", err
		}
		a.refreshToken = rt
		loggedIn = true
	}
	if !a.expiredLocked() {
		return a.tokenData.Token, nil
	}

	a.log.Debug("token has not been generated or is expired")
	td, rt, err := a.generateToken(ctx, a.refreshToken)
	if errors.Is(err, errRefreshRejected) && !loggedIn {
		a.log.WithError(err).Info("stored refresh token rejected, logging in again")
		a.refreshToken = ""
		if a.refreshToken, err = a.PerformInitialLogin(ctx); err != nil {
			return "", err
		}
		td, rt, err = a.generateToken(ctx, a.refreshToken)
	}
	if err != nil {
		return "", err
	}
	a.refreshToken = rt
	a.tokenData = &td
	a.log.Debug("token has been successfully generated")
	return td.Token, nil
}

// Relogin discards any cached tokens and performs a fresh login.
func (a *Authenticator) Relogin(ctx context.Context) (string, error) {
	a.mu.Lock()
	a.refreshToken = ""
	a.tokenData = nil
	a.mu.Unlock()
	return a.Token(ctx)
}
