package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"
	googleUserinfo = "https://openidconnect.googleapis.com/v1/userinfo"
	googleScope    = "openid email profile"
)

var ErrProviderNotConfigured = errors.New("google oauth not configured")

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func (c GoogleConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURL != ""
}

// GoogleAccount is what the userinfo endpoint tells us about the signed-in person.
type GoogleAccount struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

type googleTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
	IDToken     string `json:"id_token"`
}

type GoogleProvider struct {
	cfg    GoogleConfig
	client HTTPClient

	authURL     string
	tokenURL    string
	userinfoURL string
}

func NewGoogleProvider(cfg GoogleConfig, client HTTPClient) *GoogleProvider {
	return &GoogleProvider{
		cfg:         cfg,
		client:      client,
		authURL:     googleAuthURL,
		tokenURL:    googleTokenURL,
		userinfoURL: googleUserinfo,
	}
}

func (p *GoogleProvider) AuthCodeURL(state string) (string, error) {
	if !p.cfg.Configured() {
		return "", ErrProviderNotConfigured
	}
	v := url.Values{}
	v.Set("client_id", p.cfg.ClientID)
	v.Set("redirect_uri", p.cfg.RedirectURL)
	v.Set("response_type", "code")
	v.Set("scope", googleScope)
	v.Set("state", state)
	v.Set("access_type", "online")
	return p.authURL + "?" + v.Encode(), nil
}

// Exchange trades an authorization code for the account it was issued to.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (GoogleAccount, error) {
	if !p.cfg.Configured() {
		return GoogleAccount{}, ErrProviderNotConfigured
	}

	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_secret", p.cfg.ClientSecret)
	form.Set("redirect_uri", p.cfg.RedirectURL)
	form.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return GoogleAccount{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return GoogleAccount{}, fmt.Errorf("google token exchange: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return GoogleAccount{}, fmt.Errorf("google token exchange: status %d", resp.StatusCode)
	}

	var tr googleTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return GoogleAccount{}, fmt.Errorf("google token response: %w", err)
	}

	uReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userinfoURL, nil)
	if err != nil {
		return GoogleAccount{}, err
	}
	uReq.Header.Set("Authorization", "Bearer "+tr.AccessToken)

	uResp, err := p.client.Do(uReq)
	if err != nil {
		return GoogleAccount{}, fmt.Errorf("google userinfo: %w", err)
	}
	defer uResp.Body.Close()
	if uResp.StatusCode != http.StatusOK {
		return GoogleAccount{}, fmt.Errorf("google userinfo: status %d", uResp.StatusCode)
	}

	var acct GoogleAccount
	if err := json.NewDecoder(uResp.Body).Decode(&acct); err != nil {
		return GoogleAccount{}, fmt.Errorf("google userinfo response: %w", err)
	}
	acct.Email = strings.TrimSpace(strings.ToLower(acct.Email))
	if acct.Email == "" || acct.Sub == "" {
		return GoogleAccount{}, errors.New("google userinfo missing email or sub")
	}
	return acct, nil
}
