package tiktokapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const creatorInfoPath = "/v2/post/publish/creator_info/query/"

// CreatorInfo describes the per-account posting constraints the Content
// Posting API enforces. Uploads whose metadata violates these settings are
// rejected by the vendor, so callers must query this before posting.
type CreatorInfo struct {
	CreatorUsername         string   `json:"creator_username"`
	CreatorNickname         string   `json:"creator_nickname"`
	PrivacyLevelOptions     []string `json:"privacy_level_options"`
	CommentDisabled         bool     `json:"comment_disabled"`
	DuetDisabled            bool     `json:"duet_disabled"`
	StitchDisabled          bool     `json:"stitch_disabled"`
	MaxVideoPostDurationSec int      `json:"max_video_post_duration_sec"`
}

// vendorEnvelope is the common {"data":..., "error":...} wrapper on Content
// Posting API responses. An error code of "ok" means success.
type vendorEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		LogID   string `json:"log_id"`
	} `json:"error"`
}

func (e *vendorEnvelope) err() error {
	if e.Error.Code != "" && e.Error.Code != "ok" {
		return fmt.Errorf("tiktok api error %s: %s (log_id=%s)", e.Error.Code, e.Error.Message, e.Error.LogID)
	}
	return nil
}

// QueryCreatorInfo fetches the account's posting constraints.
func (c *Client) QueryCreatorInfo(ctx context.Context, accessToken string) (*CreatorInfo, error) {
	if accessToken == "" {
		return nil, errors.New("missing access token")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase()+creatorInfoPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	resp, err := c.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	var env vendorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	if err := env.err(); err != nil {
		return nil, err
	}
	var info CreatorInfo
	if err := json.Unmarshal(env.Data, &info); err != nil {
		return nil, fmt.Errorf("decode creator info: %w", err)
	}
	return &info, nil
}
