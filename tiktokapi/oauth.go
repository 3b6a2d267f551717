// Package tiktokapi contains minimal helpers to interact with TikTok's OAuth
// endpoints and the Content Posting API: authorize-URL construction with PKCE,
// code exchange, token refresh, creator info query, and chunked video upload.
package tiktokapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultAuthBaseURL = "https://www.tiktok.com/v2/auth/authorize/"
	defaultAPIBaseURL  = "https://open.tiktokapis.com"

	tokenPath = "/v2/oauth/token/"
)

// APIError carries a non-200 vendor response so callers can surface the
// vendor's error body verbatim.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tiktok api: HTTP %d: %s", e.StatusCode, e.Body)
}

// Client talks to TikTok's OAuth and Content Posting endpoints. Base URLs and
// the HTTP client are overridable for tests.
type Client struct {
	ClientKey    string
	ClientSecret string
	RedirectURI  string
	Scopes       string

	AuthBaseURL string
	APIBaseURL  string
	HTTPClient  *http.Client
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) authBase() string {
	if c.AuthBaseURL != "" {
		return c.AuthBaseURL
	}
	return defaultAuthBaseURL
}

func (c *Client) apiBase() string {
	if c.APIBaseURL != "" {
		return c.APIBaseURL
	}
	return defaultAPIBaseURL
}

// TokenResponse is the vendor token payload for both the authorization_code
// and refresh_token grants.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	Scope            string `json:"scope"`
	OpenID           string `json:"open_id"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`

	// TikTok reports some failures inside a 200 body.
	ErrorCode        string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// BuildAuthorizeURL constructs the user authorization URL for the OAuth code
// grant with a PKCE challenge.
func (c *Client) BuildAuthorizeURL(state, codeChallenge string) (string, error) {
	if c.ClientKey == "" || c.RedirectURI == "" {
		return "", errors.New("missing client key or redirect URI")
	}
	if state == "" || codeChallenge == "" {
		return "", errors.New("missing state or code challenge")
	}
	v := url.Values{}
	v.Set("client_key", c.ClientKey)
	v.Set("response_type", "code")
	if c.Scopes != "" {
		v.Set("scope", strings.TrimSpace(strings.ReplaceAll(c.Scopes, " ", ",")))
	}
	v.Set("redirect_uri", c.RedirectURI)
	v.Set("state", state)
	v.Set("code_challenge", codeChallenge)
	v.Set("code_challenge_method", "S256")
	return c.authBase() + "?" + v.Encode(), nil
}

// ExchangeAuthCode exchanges an authorization code plus the stored PKCE
// verifier for access and refresh tokens.
func (c *Client) ExchangeAuthCode(ctx context.Context, code, codeVerifier string) (*TokenResponse, error) {
	if c.ClientKey == "" || c.ClientSecret == "" || code == "" {
		return nil, errors.New("missing required parameter for auth code exchange")
	}
	form := url.Values{}
	form.Set("client_key", c.ClientKey)
	form.Set("client_secret", c.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", c.RedirectURI)
	form.Set("code_verifier", codeVerifier)
	return c.postTokenForm(ctx, form)
}

// RefreshToken exchanges a refresh token for a new access token. The refresh
// grant needs no redirect, just a form POST.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if c.ClientKey == "" || c.ClientSecret == "" || refreshToken == "" {
		return nil, errors.New("missing client key/secret/refresh token")
	}
	form := url.Values{}
	form.Set("client_key", c.ClientKey)
	form.Set("client_secret", c.ClientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.postTokenForm(ctx, form)
}

func (c *Client) postTokenForm(ctx context.Context, form url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase()+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cache-Control", "no-cache")
	resp, err := c.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	var res TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}
	if res.ErrorCode != "" {
		return nil, fmt.Errorf("tiktok token grant failed: %s: %s", res.ErrorCode, res.ErrorDescription)
	}
	if res.AccessToken == "" {
		return nil, errors.New("empty access_token in tiktok response")
	}
	return &res, nil
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		slog.Warn("failed to close response body", slog.Any("err", err))
	}
}
