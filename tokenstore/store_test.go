package tokenstore

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestComputeExpiries(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := &Record{OpenID: "u1", ExpiresIn: 86400, RefreshExpiresIn: 31536000}
	r.ComputeExpiries(now)
	if want := now.Add(86400 * time.Second); !r.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", r.ExpiresAt, want)
	}
	if want := now.Add(31536000 * time.Second); !r.RefreshExpiresAt.Equal(want) {
		t.Errorf("RefreshExpiresAt = %v, want %v", r.RefreshExpiresAt, want)
	}
}

func TestComputeExpiriesMissingFields(t *testing.T) {
	// Missing relative fields must not block the save path; derived fields stay zero.
	r := &Record{OpenID: "u1"}
	r.ComputeExpiries(time.Now())
	if !r.ExpiresAt.IsZero() || !r.RefreshExpiresAt.IsZero() {
		t.Errorf("derived expiries should stay zero, got %v / %v", r.ExpiresAt, r.RefreshExpiresAt)
	}
}

func TestDerivedExpirySerializedRFC3339(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := &Record{OpenID: "u1", ExpiresIn: 3600, RefreshExpiresIn: 7200}
	r.ComputeExpiries(now)
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"expires_in_datetime":"2025-06-01T13:00:00Z"`) {
		t.Errorf("expires_in_datetime not ISO-8601 in %s", data)
	}
	if !strings.Contains(string(data), `"refresh_expires_in_datetime":"2025-06-01T14:00:00Z"`) {
		t.Errorf("refresh_expires_in_datetime not ISO-8601 in %s", data)
	}
}

func TestNeedsRefresh(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := &Record{
		ExpiresAt:        base.Add(1 * time.Hour),
		RefreshExpiresAt: base.Add(24 * time.Hour),
	}
	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"access still valid", base, false},
		{"exactly at access expiry", base.Add(1 * time.Hour), true},
		{"between access and refresh expiry", base.Add(2 * time.Hour), true},
		{"exactly at refresh expiry", base.Add(24 * time.Hour), false},
		{"refresh expired", base.Add(48 * time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rec.NeedsRefresh(tt.now); got != tt.want {
				t.Errorf("NeedsRefresh(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestRefreshExpired(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := &Record{RefreshExpiresAt: base}
	if rec.RefreshExpired(base.Add(-time.Second)) {
		t.Error("RefreshExpired before expiry = true, want false")
	}
	if !rec.RefreshExpired(base) {
		t.Error("RefreshExpired at expiry = false, want true")
	}
}
