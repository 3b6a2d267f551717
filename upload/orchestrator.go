package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/onnwee/clip-tender/telemetry"
	"github.com/onnwee/clip-tender/tiktokapi"
	"github.com/onnwee/clip-tender/tokenstore"
)

// Orchestrator drives one video through creator-info query, upload init, and
// the chunk PUT loop, pulling the user's access token from the store.
type Orchestrator struct {
	Client *tiktokapi.Client
	Store  tokenstore.Store
	Retry  Policy
}

// NewOrchestrator wires an orchestrator with the default whole-call retry
// policy (fixed attempt count, fatal errors short-circuit, no backoff).
func NewOrchestrator(client *tiktokapi.Client, store tokenstore.Store) *Orchestrator {
	return &Orchestrator{
		Client: client,
		Store:  store,
		Retry:  Policy{MaxAttempts: DefaultMaxAttempts, Classify: ClassifyUploadError},
	}
}

// UploadVideo uploads the file at videoPath on behalf of openID. The whole
// call is retried per the policy; individual chunk PUTs are not.
func (o *Orchestrator) UploadVideo(ctx context.Context, openID, videoPath, title string) error {
	ctx, span := telemetry.StartSpan(ctx, "upload", "UploadVideo")
	defer span.End()

	rec, err := o.Store.Get(ctx, openID)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("load token for %s: %w", openID, err)
	}

	logger := telemetry.LoggerWithCorr(ctx).With(slog.String("open_id", openID), slog.String("video_path", videoPath), slog.String("component", "upload"))
	telemetry.Inc(telemetry.UploadsStarted)
	var uploadErr error
	dur := telemetry.TimeFunc(telemetry.UploadDuration, func() {
		uploadErr = o.Retry.Do(ctx, "upload_video", func() error {
			return o.uploadOnce(ctx, logger, rec.AccessToken, videoPath, title)
		})
	})
	if uploadErr != nil {
		logger.Error("upload failed", slog.Any("err", uploadErr), slog.Duration("upload_duration", dur))
		telemetry.Inc(telemetry.UploadsFailed)
		telemetry.RecordError(span, uploadErr)
		return uploadErr
	}
	logger.Info("upload complete", slog.Duration("upload_duration", dur))
	telemetry.Inc(telemetry.UploadsSucceeded)
	return nil
}

func (o *Orchestrator) uploadOnce(ctx context.Context, logger *slog.Logger, accessToken, videoPath, title string) error {
	fi, err := os.Stat(videoPath)
	if err != nil || !fi.Mode().IsRegular() {
		return fmt.Errorf("invalid file %s: %w", videoPath, err)
	}

	// The vendor rejects uploads whose metadata violates account settings,
	// so posting constraints have to be fetched first.
	info, err := o.Client.QueryCreatorInfo(ctx, accessToken)
	if err != nil {
		return fmt.Errorf("query creator info: %w", err)
	}
	post := postInfoFromCreator(title, info)

	plan, err := PlanChunks(fi.Size())
	if err != nil {
		return err
	}
	res, err := o.Client.InitVideoUpload(ctx, accessToken, post, tiktokapi.SourceInfo{
		Source:          "FILE_UPLOAD",
		VideoSize:       plan.VideoSize,
		ChunkSize:       plan.ChunkSize,
		TotalChunkCount: plan.TotalChunkCount,
	})
	if err != nil {
		return fmt.Errorf("initialize upload: %w", err)
	}
	logger.Info("upload initialized",
		slog.String("publish_id", res.PublishID),
		slog.Int64("video_size", plan.VideoSize),
		slog.Int64("chunk_size", plan.ChunkSize),
		slog.Int("total_chunk_count", plan.TotalChunkCount))

	f, err := os.Open(videoPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", videoPath, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("failed to close video file", slog.Any("err", err))
		}
	}()

	// A failed PUT is logged and the loop moves on; there is no chunk-level
	// resume. The first failure is reported so the whole call can be retried
	// from the top.
	var firstErr error
	for i, r := range plan.Ranges() {
		section := io.NewSectionReader(f, r.Start, r.Len())
		if err := o.Client.UploadChunk(ctx, res.UploadURL, section, r.Start, r.End, plan.VideoSize); err != nil {
			logger.Warn("chunk upload failed",
				slog.Int("chunk_index", i),
				slog.Int64("start_byte", r.Start),
				slog.Int64("end_byte", r.End),
				slog.Any("err", err))
			telemetry.Inc(telemetry.ChunksFailed)
			if firstErr == nil {
				firstErr = fmt.Errorf("chunk %d (bytes %d-%d): %w", i, r.Start, r.End, err)
			}
			continue
		}
		telemetry.Inc(telemetry.ChunksUploaded)
		logger.Debug("chunk uploaded",
			slog.Int("chunk_index", i),
			slog.Int64("start_byte", r.Start),
			slog.Int64("end_byte", r.End))
	}
	return firstErr
}

// postInfoFromCreator builds post metadata that the account settings permit:
// the privacy level becomes the account's last-listed option and the
// duet/comment/stitch toggles follow whatever creator_info reports.
func postInfoFromCreator(title string, info *tiktokapi.CreatorInfo) tiktokapi.PostInfo {
	privacy := "SELF_ONLY"
	if len(info.PrivacyLevelOptions) > 0 {
		privacy = info.PrivacyLevelOptions[len(info.PrivacyLevelOptions)-1]
	}
	return tiktokapi.PostInfo{
		Title:          title,
		PrivacyLevel:   privacy,
		DisableDuet:    info.DuetDisabled,
		DisableComment: info.CommentDisabled,
		DisableStitch:  info.StitchDisabled,
	}
}
