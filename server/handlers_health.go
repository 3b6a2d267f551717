package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/onnwee/clip-tender/telemetry"
)

// HandleHealthz responds to liveness probe requests by checking that the
// token store is readable.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.List(r.Context()); err != nil {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests with detailed checks:
// the OAuth app must be configured, the token store readable, and at least
// one user must have completed a login.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"oauth_config", h.cfg.ValidateOAuthReady},
		{"token_store", func() error {
			_, err := h.store.List(r.Context())
			return err
		}},
		{"credentials", func() error {
			recs, err := h.store.List(r.Context())
			if err != nil {
				return err
			}
			if len(recs) < 1 {
				return fmt.Errorf("no users have logged in yet")
			}
			return nil
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// userStatus is the per-user slice of /status. Tokens themselves are never
// reported, only expiry metadata.
type userStatus struct {
	OpenID           string    `json:"open_id"`
	Scope            string    `json:"scope,omitempty"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	NeedsRefresh     bool      `json:"needs_refresh"`
	RefreshExpired   bool      `json:"refresh_expired"`
}

// HandleStatus reports stored users and their token lifecycle state.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	now := time.Now()
	users := make([]userStatus, 0, len(recs))
	for _, rec := range recs {
		users = append(users, userStatus{
			OpenID:           rec.OpenID,
			Scope:            rec.Scope,
			ExpiresAt:        rec.ExpiresAt,
			RefreshExpiresAt: rec.RefreshExpiresAt,
			NeedsRefresh:     rec.NeedsRefresh(now),
			RefreshExpired:   rec.RefreshExpired(now),
		})
	}
	telemetry.SetStoredUsers(len(users))
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"users":      users,
		"user_count": len(users),
	})
}
