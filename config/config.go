// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// Required TikTok credentials are only enforced when the OAuth flow needs them; use ValidateOAuthReady.
package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	// TikTok OAuth app credentials. TikTok calls the client id a "client key".
	ClientKey    string
	ClientSecret string
	RedirectURI  string
	Scopes       string

	// Token storage
	TokenFile string

	// Upload batch
	UploadQueue string

	// Refresh scheduling
	RefreshInterval time.Duration
}

// Load reads environment variables and applies defaults. It doesn't fail if TikTok creds
// are missing; use ValidateOAuthReady() when you require the login flow. A missing
// UPLOAD_QUEUE simply disables the periodic upload job.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.ClientKey = os.Getenv("TIKTOK_CLIENT_KEY")
	cfg.ClientSecret = os.Getenv("TIKTOK_CLIENT_SECRET")
	cfg.RedirectURI = os.Getenv("TIKTOK_REDIRECT_URI")
	cfg.Scopes = os.Getenv("TIKTOK_SCOPES")
	if cfg.Scopes == "" {
		// default scopes for direct posting
		cfg.Scopes = "user.info.basic,video.publish,video.upload"
	}

	cfg.TokenFile = os.Getenv("TOKEN_FILE")
	if cfg.TokenFile == "" {
		cfg.TokenFile = "user_tokens.json"
	}

	cfg.UploadQueue = os.Getenv("UPLOAD_QUEUE")

	cfg.RefreshInterval = 5 * time.Minute
	if v := os.Getenv("TOKEN_REFRESH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TOKEN_REFRESH_INTERVAL (duration): %w", err)
		}
		cfg.RefreshInterval = d
	}

	return cfg, nil
}

// ValidateOAuthReady checks required fields for the browser login flow.
func (c *Config) ValidateOAuthReady() error {
	if c.ClientKey == "" || c.ClientSecret == "" || c.RedirectURI == "" {
		return fmt.Errorf("missing tiktok env: require TIKTOK_CLIENT_KEY, TIKTOK_CLIENT_SECRET, TIKTOK_REDIRECT_URI")
	}
	return nil
}
