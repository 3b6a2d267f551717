package tiktokapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

const videoInitPath = "/v2/post/publish/video/init/"

// PostInfo holds the post metadata required by the direct-post init request.
type PostInfo struct {
	Title                 string `json:"title"`
	PrivacyLevel          string `json:"privacy_level"`
	DisableDuet           bool   `json:"disable_duet"`
	DisableComment        bool   `json:"disable_comment"`
	DisableStitch         bool   `json:"disable_stitch"`
	BrandContentToggle    bool   `json:"brand_content_toggle"`
	BrandOrganicToggle    bool   `json:"brand_organic_toggle"`
	IsAIGC                bool   `json:"is_aigc"`
	VideoCoverTimestampMS *int64 `json:"video_cover_timestamp_ms,omitempty"`
}

// SourceInfo describes the FILE_UPLOAD source and its chunking parameters.
type SourceInfo struct {
	Source          string `json:"source"`
	VideoSize       int64  `json:"video_size"`
	ChunkSize       int64  `json:"chunk_size"`
	TotalChunkCount int    `json:"total_chunk_count"`
}

// InitUploadResult is the vendor's answer to the init request: where to PUT
// the chunks and the publish id to track the post.
type InitUploadResult struct {
	PublishID string `json:"publish_id"`
	UploadURL string `json:"upload_url"`
}

// InitVideoUpload posts metadata plus the file-upload source descriptor and
// returns the vendor-issued upload URL.
func (c *Client) InitVideoUpload(ctx context.Context, accessToken string, post PostInfo, src SourceInfo) (*InitUploadResult, error) {
	if accessToken == "" {
		return nil, errors.New("missing access token")
	}
	if src.Source == "" {
		src.Source = "FILE_UPLOAD"
	}
	body, err := json.Marshal(struct {
		PostInfo   PostInfo   `json:"post_info"`
		SourceInfo SourceInfo `json:"source_info"`
	}{post, src})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase()+videoInitPath, bytes.NewReader(body))
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
	var res InitUploadResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		return nil, fmt.Errorf("decode upload init response: %w", err)
	}
	if res.UploadURL == "" {
		return nil, errors.New("upload init response missing upload_url")
	}
	return &res, nil
}

// UploadChunk PUTs one byte range to the upload URL. The media transfer
// endpoint answers 206 for intermediate chunks and 201 when the final chunk
// completes the file, so any 2xx is success.
func (c *Client) UploadChunk(ctx context.Context, uploadURL string, chunk io.Reader, start, end, totalSize int64) error {
	if uploadURL == "" {
		return errors.New("missing upload URL")
	}
	if start < 0 || end < start || end >= totalSize {
		return fmt.Errorf("invalid byte range %d-%d/%d", start, end, totalSize)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, chunk)
	if err != nil {
		return err
	}
	size := end - start + 1
	req.ContentLength = size
	req.Header.Set("Content-Type", "video/mp4")
	req.Header.Set("Content-Length", strconv.FormatInt(size, 10))
	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, totalSize))
	resp, err := c.http().Do(req)
	if err != nil {
		return err
	}
	defer closeBody(resp)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return nil
}
