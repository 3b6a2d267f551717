package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/onnwee/clip-tender/config"
	"github.com/onnwee/clip-tender/testutil"
	"github.com/onnwee/clip-tender/tiktokapi"
	"github.com/onnwee/clip-tender/tokenstore"
)

func testConfig() *config.Config {
	return &config.Config{
		ClientKey:    "test-client-key",
		ClientSecret: "test-client-secret",
		RedirectURI:  "http://localhost:8080/callback/",
		Scopes:       "user.info.basic,video.publish,video.upload",
	}
}

func testMux(t *testing.T, mock *testutil.MockTikTokServer, store tokenstore.Store) http.Handler {
	t.Helper()
	cfg := testConfig()
	client := &tiktokapi.Client{
		ClientKey:    cfg.ClientKey,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		Scopes:       cfg.Scopes,
		APIBaseURL:   mock.URL,
	}
	return NewMux(context.Background(), cfg, client, store)
}

func TestCorrelationIDGenerated(t *testing.T) {
	mux := testMux(t, testutil.NewMockTikTokServer(t), testutil.SetupTestStore(t))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Error("expected a generated X-Correlation-ID header")
	}
}

func TestCorrelationIDEchoed(t *testing.T) {
	mux := testMux(t, testutil.NewMockTikTokServer(t), testutil.SetupTestStore(t))
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "corr-123")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Correlation-ID"); got != "corr-123" {
		t.Errorf("X-Correlation-ID = %q, want echoed corr-123", got)
	}
}

func TestIndexServesLoginLink(t *testing.T) {
	mux := testMux(t, testutil.NewMockTikTokServer(t), testutil.SetupTestStore(t))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / status = %d", rec.Code)
	}
	if body := rec.Body.String(); !containsAll(body, `href="/login"`) {
		t.Errorf("index body missing login link: %s", body)
	}
}

func TestIndexUnknownPath404(t *testing.T) {
	mux := testMux(t, testutil.NewMockTikTokServer(t), testutil.SetupTestStore(t))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /nope status = %d, want 404", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	mux := testMux(t, testutil.NewMockTikTokServer(t), testutil.SetupTestStore(t))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q, want 200 ok", rec.Code, rec.Body.String())
	}
}

func TestReadyzRequiresStoredUser(t *testing.T) {
	store := testutil.SetupTestStore(t)
	mux := testMux(t, testutil.NewMockTikTokServer(t), store)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with no users = %d, want 503", rec.Code)
	}
	if !containsAll(rec.Body.String(), `"failed_check":"credentials"`) {
		t.Errorf("readyz body = %s, want failed credentials check", rec.Body.String())
	}

	err := store.Put(context.Background(), &tokenstore.Record{OpenID: "u1", AccessToken: "a", RefreshToken: "r"})
	if err != nil {
		t.Fatal(err)
	}
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("readyz with a user = %d, want 200", rec.Code)
	}
}

func TestStatusReportsUsersWithoutTokens(t *testing.T) {
	store := testutil.SetupTestStore(t)
	err := store.Put(context.Background(), &tokenstore.Record{
		OpenID:           "u1",
		AccessToken:      "super-secret-access-token",
		RefreshToken:     "super-secret-refresh-token",
		Scope:            "video.upload",
		ExpiresAt:        time.Now().Add(-time.Hour),
		RefreshExpiresAt: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	mux := testMux(t, testutil.NewMockTikTokServer(t), store)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !containsAll(body, `"open_id":"u1"`, `"needs_refresh":true`, `"user_count":1`) {
		t.Errorf("status body = %s", body)
	}
	if containsAll(body, "super-secret-access-token") || containsAll(body, "super-secret-refresh-token") {
		t.Errorf("status body leaks token material: %s", body)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
