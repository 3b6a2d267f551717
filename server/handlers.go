// Package server exposes the HTTP API: the TikTok login flow, token refresh,
// health, status, and metrics. It injects correlation IDs into request
// contexts for consistent logging.
package server

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/onnwee/clip-tender/config"
	"github.com/onnwee/clip-tender/tiktokapi"
	"github.com/onnwee/clip-tender/tokenstore"
)

const (
	// Maximum number of pending login attempts to keep in memory
	maxLoginAttempts = 10000

	// How long a login attempt stays valid between /login and /callback/
	loginAttemptTTL = 10 * time.Minute
)

var errTooManyAttempts = errors.New("too many pending login attempts")

// loginAttempt is the per-login state parked between the authorize redirect
// and the callback: the PKCE verifier, keyed by the CSRF state value.
type loginAttempt struct {
	CodeVerifier string `json:"code_verifier"`
}

// attemptStore holds pending login attempts keyed by CSRF state. Consume
// removes the attempt so each state value is usable exactly once; a second
// lookup returns nil.
type attemptStore interface {
	Save(ctx context.Context, state string, att loginAttempt, ttl time.Duration) error
	Consume(ctx context.Context, state string) (*loginAttempt, error)
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	cfg      *config.Config
	client   *tiktokapi.Client
	store    tokenstore.Store
	ctx      context.Context
	attempts attemptStore
}

// NewHandlers creates a new Handlers instance with the given dependencies.
// When SESSION_REDIS_ADDR is set, pending login state lives in Redis so the
// flow survives restarts; otherwise an in-memory store is used.
func NewHandlers(ctx context.Context, cfg *config.Config, client *tiktokapi.Client, store tokenstore.Store) *Handlers {
	var attempts attemptStore
	if addr := os.Getenv("SESSION_REDIS_ADDR"); addr != "" {
		attempts = newRedisAttemptStore(redis.NewClient(&redis.Options{Addr: addr}))
	} else {
		attempts = newMemoryAttemptStore()
	}
	return &Handlers{
		cfg:      cfg,
		client:   client,
		store:    store,
		ctx:      ctx,
		attempts: attempts,
	}
}

type memoryEntry struct {
	att    loginAttempt
	expiry time.Time
}

// memoryAttemptStore keeps pending login attempts in a bounded map.
type memoryAttemptStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func newMemoryAttemptStore() *memoryAttemptStore {
	return &memoryAttemptStore{entries: make(map[string]memoryEntry)}
}

// cleanExpired removes expired attempts. Callers must hold mu.
func (m *memoryAttemptStore) cleanExpired() {
	now := time.Now()
	for state, e := range m.entries {
		if now.After(e.expiry) {
			delete(m.entries, state)
		}
	}
}

func (m *memoryAttemptStore) Save(_ context.Context, state string, att loginAttempt, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Clean expired attempts periodically to prevent unbounded growth
	if len(m.entries)%100 == 0 {
		m.cleanExpired()
	}

	// If we're still over the limit after cleanup, refuse to add more.
	// Failing the login flow beats a memory exhaustion attack.
	if len(m.entries) >= maxLoginAttempts {
		return errTooManyAttempts
	}

	m.entries[state] = memoryEntry{att: att, expiry: time.Now().Add(ttl)}
	return nil
}

func (m *memoryAttemptStore) Consume(_ context.Context, state string) (*loginAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[state]
	if !ok {
		return nil, nil
	}
	delete(m.entries, state)
	if time.Now().After(e.expiry) {
		return nil, nil
	}
	att := e.att
	return &att, nil
}
