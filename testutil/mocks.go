// Package testutil provides shared test helpers: a mock TikTok API server
// and a temp-dir token store.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/onnwee/clip-tender/tokenstore"
)

// SetupTestStore returns a file store rooted in a per-test temp dir.
func SetupTestStore(t *testing.T) *tokenstore.FileStore {
	t.Helper()
	return tokenstore.NewFileStore(filepath.Join(t.TempDir(), "user_tokens.json"), nil)
}

// MockTikTokServer creates a test server that mocks TikTok OAuth and Content
// Posting API responses.
type MockTikTokServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc

	ChunkPuts atomic.Int64
}

// NewMockTikTokServer creates a new mock TikTok API server.
func NewMockTikTokServer(t *testing.T) *MockTikTokServer {
	t.Helper()
	m := &MockTikTokServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := m.Handlers[r.URL.Path]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockTokenResponse adds a handler for the token endpoint covering both the
// authorization_code and refresh_token grants.
func (m *MockTikTokServer) MockTokenResponse(openID, accessToken, refreshToken string, expiresIn, refreshExpiresIn int64) {
	m.Handlers["/v2/oauth/token/"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // test mock response
			"access_token":       accessToken,
			"refresh_token":      refreshToken,
			"token_type":         "Bearer",
			"scope":              "user.info.basic,video.publish,video.upload",
			"open_id":            openID,
			"expires_in":         expiresIn,
			"refresh_expires_in": refreshExpiresIn,
		})
	}
}

// MockTokenError makes the token endpoint fail with the given status and body.
func (m *MockTikTokServer) MockTokenError(status int, body string) {
	m.Handlers["/v2/oauth/token/"] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body)) //nolint:errcheck // test mock response
	}
}

// MockCreatorInfo adds a handler for the creator_info query endpoint.
func (m *MockTikTokServer) MockCreatorInfo(privacyOptions []string, duetDisabled, commentDisabled, stitchDisabled bool) {
	m.Handlers["/v2/post/publish/creator_info/query/"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // test mock response
			"data": map[string]any{
				"creator_username":            "mockuser",
				"privacy_level_options":       privacyOptions,
				"duet_disabled":               duetDisabled,
				"comment_disabled":            commentDisabled,
				"stitch_disabled":             stitchDisabled,
				"max_video_post_duration_sec": 600,
			},
			"error": map[string]any{"code": "ok"},
		})
	}
}

// MockUploadInit adds a handler for the video init endpoint returning an
// upload URL pointing back at this server's /upload path.
func (m *MockTikTokServer) MockUploadInit(publishID string) {
	m.Handlers["/v2/post/publish/video/init/"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // test mock response
			"data":  map[string]any{"publish_id": publishID, "upload_url": m.URL + "/upload"},
			"error": map[string]any{"code": "ok"},
		})
	}
}

// MockChunkPut adds a handler for chunk PUTs, counting calls.
func (m *MockTikTokServer) MockChunkPut(status int) {
	m.Handlers["/upload"] = func(w http.ResponseWriter, r *http.Request) {
		m.ChunkPuts.Add(1)
		w.WriteHeader(status)
	}
}
