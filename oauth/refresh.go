// Package oauth drives the token refresh lifecycle over the token store.
// CheckAndRefreshAll walks every stored user once; StartRefresher runs it on
// a jittered schedule so access tokens are renewed before the upload batch
// needs them.
package oauth

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/onnwee/clip-tender/telemetry"
	"github.com/onnwee/clip-tender/tiktokapi"
	"github.com/onnwee/clip-tender/tokenstore"
)

// RefreshFunc performs the vendor refresh grant for one refresh token.
type RefreshFunc func(ctx context.Context, refreshToken string) (*tiktokapi.TokenResponse, error)

// Summary reports what one refresh sweep did.
type Summary struct {
	Checked   int `json:"checked"`
	Refreshed int `json:"refreshed"`
	Failed    int `json:"failed"`
	Expired   int `json:"expired"` // refresh token past expiry; user must re-authenticate
}

// CheckAndRefreshAll inspects every stored record and refreshes those whose
// access token is expired while the refresh token is still valid. The stored
// record is overwritten wholesale with the response, including recomputed
// derived expiries. An expired refresh token is logged and left alone; there
// is no way to recover it without the user going through the full flow again.
func CheckAndRefreshAll(ctx context.Context, store tokenstore.Store, fn RefreshFunc) (Summary, error) {
	recs, err := store.List(ctx)
	if err != nil {
		return Summary{}, err
	}
	var sum Summary
	sum.Checked = len(recs)
	for _, rec := range recs {
		now := time.Now()
		if !rec.NeedsRefresh(now) {
			if rec.RefreshExpired(now) {
				slog.Info("refresh token expired; re-authentication required", slog.String("open_id", rec.OpenID))
				sum.Expired++
			}
			continue
		}
		rctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		res, err := fn(rctx, rec.RefreshToken)
		cancel()
		if err != nil {
			slog.Warn("token refresh failed", slog.String("open_id", rec.OpenID), slog.Any("err", err))
			telemetry.Inc(telemetry.RefreshesFailed)
			sum.Failed++
			continue
		}
		updated := &tokenstore.Record{
			OpenID:           res.OpenID,
			AccessToken:      res.AccessToken,
			RefreshToken:     res.RefreshToken,
			TokenType:        res.TokenType,
			Scope:            res.Scope,
			ExpiresIn:        res.ExpiresIn,
			RefreshExpiresIn: res.RefreshExpiresIn,
		}
		if updated.OpenID == "" {
			updated.OpenID = rec.OpenID
		}
		updated.ComputeExpiries(time.Now())
		if err := store.Put(ctx, updated); err != nil {
			slog.Warn("token persist failed", slog.String("open_id", updated.OpenID), slog.Any("err", err))
			telemetry.Inc(telemetry.RefreshesFailed)
			sum.Failed++
			continue
		}
		slog.Info("token refreshed", slog.String("open_id", updated.OpenID))
		telemetry.Inc(telemetry.RefreshesSucceeded)
		sum.Refreshed++
	}
	return sum, nil
}

// StartRefresher launches a goroutine that periodically sweeps the store.
// interval: how often to wake up and check.
func StartRefresher(ctx context.Context, store tokenstore.Store, interval time.Duration, fn RefreshFunc) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	// Randomize initial delay to spread load across instances.
	//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
	initialJitter := time.Duration(rand.Int63n(int64(interval / 2)))
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(initialJitter):
		}
		for {
			// Per-iteration jitter (±20% of interval) for scheduling diversity.
			jitterRange := int64(interval / 5)
			//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
			jitter := time.Duration(rand.Int63n(jitterRange*2) - jitterRange)
			nextSleep := interval + jitter
			if nextSleep < interval/2 {
				nextSleep = interval / 2
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(nextSleep):
			}
			if _, err := CheckAndRefreshAll(ctx, store, fn); err != nil {
				slog.Warn("refresh sweep failed", slog.Any("err", err))
			}
		}
	}()
}
