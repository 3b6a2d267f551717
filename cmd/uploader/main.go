// Package main provides a CLI tool that runs the upload queue once and exits.
//
// It reads the queue file, uploads every entry with the stored tokens, and
// reports a summary. Unlike the long-running service it does not archive the
// queue file unless --archive is set, so a failed run can be retried as-is.
//
// Usage:
//   uploader [--queue FILE] [--archive]
//
// Flags:
//   --queue: Queue file to process (default: UPLOAD_QUEUE env or upload_queue.json)
//   --archive: Rename the queue file aside after a fully successful run
//
// Environment Variables:
//   TIKTOK_CLIENT_KEY / TIKTOK_CLIENT_SECRET: OAuth app credentials (for refresh)
//   TOKEN_FILE: Token store path (default: user_tokens.json)
//   ENCRYPTION_KEY: Base64-encoded 32-byte key when tokens are encrypted at rest
//
// Example:
//   ./uploader --queue pending.json
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/clip-tender/config"
	"github.com/onnwee/clip-tender/crypto"
	"github.com/onnwee/clip-tender/telemetry"
	"github.com/onnwee/clip-tender/tiktokapi"
	"github.com/onnwee/clip-tender/tokenstore"
	"github.com/onnwee/clip-tender/upload"
)

func main() {
	queuePath := flag.String("queue", "", "Queue file to process (default: UPLOAD_QUEUE env or upload_queue.json)")
	archive := flag.Bool("archive", false, "Rename the queue file aside after a fully successful run")
	flag.Parse()

	_ = godotenv.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	path := *queuePath
	if path == "" {
		path = cfg.UploadQueue
	}
	if path == "" {
		path = "upload_queue.json"
	}

	telemetry.Init()

	var enc crypto.Encryptor
	if key := os.Getenv("ENCRYPTION_KEY"); key != "" {
		enc, err = crypto.NewAESEncryptor(key)
		if err != nil {
			slog.Error("invalid ENCRYPTION_KEY", slog.Any("err", err))
			os.Exit(1)
		}
	}
	store := tokenstore.NewFileStore(cfg.TokenFile, enc)
	client := &tiktokapi.Client{
		ClientKey:    cfg.ClientKey,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		Scopes:       cfg.Scopes,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	entries, err := upload.ReadQueue(path)
	if err != nil {
		slog.Error("read queue failed", slog.String("queue", path), slog.Any("err", err))
		os.Exit(1)
	}
	if len(entries) == 0 {
		slog.Info("queue empty, nothing to do", slog.String("queue", path))
		return
	}

	orch := upload.NewOrchestrator(client, store)
	sum := orch.RunBatch(ctx, entries)
	slog.Info("batch finished",
		slog.Int("total", sum.Total),
		slog.Int("succeeded", sum.Succeeded),
		slog.Int("failed", sum.Failed))

	if *archive && sum.Failed == 0 {
		archived := fmt.Sprintf("%s.%d.done", path, time.Now().Unix())
		if err := os.Rename(path, archived); err != nil {
			slog.Warn("archive queue failed", slog.Any("err", err))
		} else {
			slog.Info("queue archived", slog.String("to", archived))
		}
	}
	if sum.Failed > 0 {
		os.Exit(1)
	}
}
