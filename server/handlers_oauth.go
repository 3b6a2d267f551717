package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/onnwee/clip-tender/oauth"
	"github.com/onnwee/clip-tender/telemetry"
	"github.com/onnwee/clip-tender/tiktokapi"
	"github.com/onnwee/clip-tender/tokenstore"
)

// HandleIndex serves a minimal landing page with the login link.
func (h *Handlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>clip-tender</title></head>
<body>
<h1>clip-tender</h1>
<p><a href="/login">Log in with TikTok</a></p>
</body>
</html>
`))
}

// HandleLogin starts the authorization flow: it generates a PKCE verifier and
// a CSRF state value, parks them, and redirects the browser to TikTok.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := h.cfg.ValidateOAuthReady(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	verifier, err := tiktokapi.GenerateCodeVerifier()
	if err != nil {
		http.Error(w, "verifier gen error", 500)
		return
	}
	// generate state
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		http.Error(w, "state gen error", 500)
		return
	}
	st := hex.EncodeToString(b)
	if err := h.attempts.Save(r.Context(), st, loginAttempt{CodeVerifier: verifier}, loginAttemptTTL); err != nil {
		slog.Error("failed to park login attempt", slog.Any("err", err))
		http.Error(w, "login unavailable", http.StatusServiceUnavailable)
		return
	}
	authURL, err := h.client.BuildAuthorizeURL(st, tiktokapi.CodeChallengeS256Hex(verifier))
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	telemetry.Inc(telemetry.LoginsStarted)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleCallback handles the OAuth redirect from TikTok: it validates the
// one-time CSRF state, exchanges the code with the parked PKCE verifier, and
// persists the resulting tokens keyed by open_id.
func (h *Handlers) HandleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	st := r.URL.Query().Get("state")
	if code == "" || st == "" {
		http.Error(w, "missing code/state", 400)
		return
	}
	ctx := r.Context()
	att, err := h.attempts.Consume(ctx, st)
	if err != nil {
		slog.Error("failed to load login attempt", slog.Any("err", err))
		http.Error(w, "login unavailable", http.StatusServiceUnavailable)
		return
	}
	if att == nil {
		telemetry.Inc(telemetry.LoginsFailed)
		http.Error(w, "invalid state", 400)
		return
	}
	res, err := h.client.ExchangeAuthCode(ctx, code, att.CodeVerifier)
	if err != nil {
		telemetry.Inc(telemetry.LoginsFailed)
		var apiErr *tiktokapi.APIError
		if errors.As(err, &apiErr) {
			http.Error(w, apiErr.Error(), 400)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}
	rec := &tokenstore.Record{
		OpenID:           res.OpenID,
		AccessToken:      res.AccessToken,
		RefreshToken:     res.RefreshToken,
		TokenType:        res.TokenType,
		Scope:            res.Scope,
		ExpiresIn:        res.ExpiresIn,
		RefreshExpiresIn: res.RefreshExpiresIn,
	}
	rec.ComputeExpiries(time.Now())
	if err := h.store.Put(ctx, rec); err != nil {
		telemetry.Inc(telemetry.LoginsFailed)
		http.Error(w, err.Error(), 500)
		return
	}
	telemetry.Inc(telemetry.LoginsCompleted)
	telemetry.LoggerWithCorr(ctx).Info("tokens stored",
		slog.String("open_id", res.OpenID),
		slog.String("scope", res.Scope),
		slog.String("component", "oauth"))
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"status":     "ok",
		"open_id":    res.OpenID,
		"scopes":     strings.Split(res.Scope, ","),
		"expires_in": res.ExpiresIn,
	}); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}

// HandleRefreshTokens sweeps every stored user once and refreshes tokens
// whose access expiry has passed.
func (h *Handlers) HandleRefreshTokens(w http.ResponseWriter, r *http.Request) {
	sum, err := oauth.CheckAndRefreshAll(r.Context(), h.store, h.client.RefreshToken)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sum); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}
