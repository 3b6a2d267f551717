// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	LoginsStarted      prometheus.Counter
	LoginsCompleted    prometheus.Counter
	LoginsFailed       prometheus.Counter
	RefreshesSucceeded prometheus.Counter
	RefreshesFailed    prometheus.Counter
	UploadsStarted     prometheus.Counter
	UploadsSucceeded   prometheus.Counter
	UploadsFailed      prometheus.Counter
	ChunksUploaded     prometheus.Counter
	ChunksFailed       prometheus.Counter

	// Histograms (seconds)
	UploadDuration prometheus.Observer

	// Gauges
	QueueDepthGauge  prometheus.Gauge
	StoredUsersGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		LoginsStarted = promauto.NewCounter(prometheus.CounterOpts{Name: "tiktok_logins_started_total", Help: "Number of OAuth login flows started"})
		LoginsCompleted = promauto.NewCounter(prometheus.CounterOpts{Name: "tiktok_logins_completed_total", Help: "Number of OAuth login flows completed (tokens stored)"})
		LoginsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "tiktok_logins_failed_total", Help: "Number of OAuth login flows that failed"})
		RefreshesSucceeded = promauto.NewCounter(prometheus.CounterOpts{Name: "tiktok_token_refreshes_succeeded_total", Help: "Number of token refreshes that succeeded"})
		RefreshesFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "tiktok_token_refreshes_failed_total", Help: "Number of token refreshes that failed"})
		UploadsStarted = promauto.NewCounter(prometheus.CounterOpts{Name: "tiktok_uploads_started_total", Help: "Number of video uploads started"})
		UploadsSucceeded = promauto.NewCounter(prometheus.CounterOpts{Name: "tiktok_uploads_succeeded_total", Help: "Number of video uploads succeeded"})
		UploadsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "tiktok_uploads_failed_total", Help: "Number of video uploads failed"})
		ChunksUploaded = promauto.NewCounter(prometheus.CounterOpts{Name: "tiktok_upload_chunks_total", Help: "Number of video chunks PUT successfully"})
		ChunksFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "tiktok_upload_chunks_failed_total", Help: "Number of video chunk PUTs that failed"})
		UploadDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "tiktok_upload_duration_seconds", Help: "Whole-video upload duration seconds", Buckets: prometheus.DefBuckets})
		QueueDepthGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "tiktok_upload_queue_depth", Help: "Current number of pending upload entries"})
		StoredUsersGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "tiktok_stored_users", Help: "Number of users with stored tokens"})
	})
}

// Inc increments a counter if metrics are initialized.
func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// SetQueueDepth records the current pending upload count.
func SetQueueDepth(n int) {
	if QueueDepthGauge != nil {
		QueueDepthGauge.Set(float64(n))
	}
}

// SetStoredUsers records the current token store population.
func SetStoredUsers(n int) {
	if StoredUsersGauge != nil {
		StoredUsersGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with a corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
