package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/onnwee/clip-tender/telemetry"
)

// QueueEntry is one pending upload from the queue file.
type QueueEntry struct {
	OpenID      string   `json:"open_id"`
	VideoPath   string   `json:"video_path"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
}

// Title joins the description with the tags into the post title.
func (e QueueEntry) Title() string {
	if len(e.Tags) == 0 {
		return e.Description
	}
	return strings.TrimSpace(e.Description + " " + strings.Join(e.Tags, " "))
}

// BatchSummary reports what one batch run did.
type BatchSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// ReadQueue parses the pending-upload file: a JSON array of queue entries.
func ReadQueue(path string) ([]QueueEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read upload queue: %w", err)
	}
	var entries []QueueEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse upload queue %s: %w", path, err)
	}
	return entries, nil
}

// RunBatch uploads every entry, logging and continuing past per-entry
// failures so one bad entry never blocks the rest of the batch.
func (o *Orchestrator) RunBatch(ctx context.Context, entries []QueueEntry) BatchSummary {
	sum := BatchSummary{Total: len(entries)}
	telemetry.SetQueueDepth(len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			slog.Info("batch interrupted", slog.Any("err", err))
			return sum
		}
		if e.OpenID == "" || e.VideoPath == "" {
			slog.Warn("skipping malformed queue entry", slog.String("open_id", e.OpenID), slog.String("video_path", e.VideoPath))
			sum.Failed++
			continue
		}
		if err := o.UploadVideo(ctx, e.OpenID, e.VideoPath, e.Title()); err != nil {
			slog.Warn("batch entry failed", slog.String("open_id", e.OpenID), slog.String("video_path", e.VideoPath), slog.Any("err", err))
			sum.Failed++
			continue
		}
		sum.Succeeded++
	}
	telemetry.SetQueueDepth(0)
	return sum
}

// StartUploadJob runs a loop that drains the queue file at an interval.
// After a batch the queue file is archived next to itself so the same
// entries are not re-uploaded on the next tick. A missing queue file just
// means there is nothing to do.
func StartUploadJob(ctx context.Context, o *Orchestrator, queuePath string, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	slog.Info("upload job starting", slog.String("queue", queuePath), slog.Duration("interval", interval))
	// Kick an immediate run so we don't wait a full interval after boot.
	drainQueue(ctx, o, queuePath)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("upload job stopped")
			return
		case <-ticker.C:
			drainQueue(ctx, o, queuePath)
		}
	}
}

func drainQueue(ctx context.Context, o *Orchestrator, queuePath string) {
	entries, err := ReadQueue(queuePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("no upload queue present", slog.String("queue", queuePath))
			return
		}
		slog.Warn("read upload queue", slog.Any("err", err))
		return
	}
	if len(entries) == 0 {
		return
	}
	sum := o.RunBatch(ctx, entries)
	slog.Info("upload batch finished", slog.Int("total", sum.Total), slog.Int("succeeded", sum.Succeeded), slog.Int("failed", sum.Failed))
	archived := fmt.Sprintf("%s.%d.done", queuePath, time.Now().Unix())
	if err := os.Rename(queuePath, archived); err != nil {
		slog.Warn("archive upload queue", slog.Any("err", err))
	}
}
