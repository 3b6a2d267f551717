// Package tokenstore persists per-user TikTok OAuth tokens keyed by open_id.
// The canonical implementation is a flat JSON file (FileStore); the Store
// interface exists so handlers, the refresher, and the upload batch can take
// test doubles instead of touching the filesystem.
package tokenstore

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrNotFound is returned when no record exists for an open_id.
var ErrNotFound = errors.New("tokenstore: record not found")

// Record is one user's token entry. The JSON field names mirror the vendor
// token response plus the two derived absolute expiries computed at save time.
type Record struct {
	OpenID           string    `json:"open_id"`
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type,omitempty"`
	Scope            string    `json:"scope,omitempty"`
	ExpiresIn        int64     `json:"expires_in,omitempty"`
	RefreshExpiresIn int64     `json:"refresh_expires_in,omitempty"`
	ExpiresAt        time.Time `json:"expires_in_datetime,omitzero"`
	RefreshExpiresAt time.Time `json:"refresh_expires_in_datetime,omitzero"`

	// 0 = plaintext tokens, 1 = AES-GCM encrypted token fields.
	EncryptionVersion int `json:"encryption_version,omitempty"`
}

// ComputeExpiries derives the absolute expiry timestamps from the relative
// seconds fields, anchored at now. A missing relative field is logged but
// never blocks the save; the corresponding absolute field stays zero.
func (r *Record) ComputeExpiries(now time.Time) {
	if r.ExpiresIn > 0 {
		r.ExpiresAt = now.Add(time.Duration(r.ExpiresIn) * time.Second)
	} else {
		slog.Warn("expires_in missing in token response", slog.String("open_id", r.OpenID))
	}
	if r.RefreshExpiresIn > 0 {
		r.RefreshExpiresAt = now.Add(time.Duration(r.RefreshExpiresIn) * time.Second)
	} else {
		slog.Warn("refresh_expires_in missing in token response", slog.String("open_id", r.OpenID))
	}
}

// NeedsRefresh reports whether the access token is expired while the refresh
// token is still usable.
func (r *Record) NeedsRefresh(now time.Time) bool {
	return !now.Before(r.ExpiresAt) && now.Before(r.RefreshExpiresAt)
}

// RefreshExpired reports whether the refresh token itself is past expiry,
// meaning the user must re-authenticate through the full flow.
func (r *Record) RefreshExpired(now time.Time) bool {
	return !now.Before(r.RefreshExpiresAt)
}

// Store is the token persistence contract. Put overwrites any existing record
// for the same open_id wholesale.
type Store interface {
	Get(ctx context.Context, openID string) (*Record, error)
	Put(ctx context.Context, rec *Record) error
	List(ctx context.Context) ([]*Record, error)
	Delete(ctx context.Context, openID string) error
}
