package upload

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/onnwee/clip-tender/testutil"
	"github.com/onnwee/clip-tender/tiktokapi"
)

func TestQueueEntryTitle(t *testing.T) {
	tests := []struct {
		name  string
		entry QueueEntry
		want  string
	}{
		{"description only", QueueEntry{Description: "my clip"}, "my clip"},
		{"with tags", QueueEntry{Description: "my clip", Tags: []string{"#go", "#oss"}}, "my clip #go #oss"},
		{"tags only", QueueEntry{Tags: []string{"#go"}}, "#go"},
		{"empty", QueueEntry{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Title(); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadQueue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	content := `[{"open_id":"u1","video_path":"/tmp/a.mp4","description":"first"},{"open_id":"u2","video_path":"/tmp/b.mp4","description":"second","tags":["#x"]}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	entries, err := ReadQueue(path)
	if err != nil {
		t.Fatalf("ReadQueue() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[1].OpenID != "u2" || entries[1].Title() != "second #x" {
		t.Errorf("entries[1] = %+v", entries[1])
	}
}

func TestReadQueueMissingFile(t *testing.T) {
	_, err := ReadQueue(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil {
		t.Fatal("ReadQueue() expected error for missing file")
	}
}

func TestReadQueueBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadQueue(path); err == nil {
		t.Fatal("ReadQueue() expected parse error")
	}
}

func TestRunBatchContinuesPastFailures(t *testing.T) {
	mock := testutil.NewMockTikTokServer(t)
	mock.MockCreatorInfo([]string{"SELF_ONLY"}, false, false, false)
	mock.MockUploadInit("pub-1")
	mock.MockChunkPut(http.StatusCreated)

	o := NewOrchestrator(&tiktokapi.Client{APIBaseURL: mock.URL}, storeWithUser(t, "u1"))
	good := writeVideo(t, 2000)
	entries := []QueueEntry{
		{OpenID: "u1", VideoPath: good, Description: "ok"},
		{OpenID: "u1", VideoPath: filepath.Join(t.TempDir(), "gone.mp4"), Description: "bad path"},
		{OpenID: "", VideoPath: good, Description: "malformed"},
		{OpenID: "u1", VideoPath: good, Description: "ok again"},
	}
	sum := o.RunBatch(context.Background(), entries)
	if sum.Total != 4 || sum.Succeeded != 2 || sum.Failed != 2 {
		t.Errorf("RunBatch() = %+v, want total 4, succeeded 2, failed 2", sum)
	}
}

func TestRunBatchStopsOnCancel(t *testing.T) {
	mock := testutil.NewMockTikTokServer(t)
	o := NewOrchestrator(&tiktokapi.Client{APIBaseURL: mock.URL}, testutil.SetupTestStore(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum := o.RunBatch(ctx, []QueueEntry{{OpenID: "u1", VideoPath: "/tmp/a.mp4"}})
	if sum.Succeeded != 0 || sum.Failed != 0 {
		t.Errorf("RunBatch() after cancel = %+v, want nothing attempted", sum)
	}
}

func TestDrainQueueArchivesFile(t *testing.T) {
	mock := testutil.NewMockTikTokServer(t)
	mock.MockCreatorInfo([]string{"SELF_ONLY"}, false, false, false)
	mock.MockUploadInit("pub-1")
	mock.MockChunkPut(http.StatusCreated)

	o := NewOrchestrator(&tiktokapi.Client{APIBaseURL: mock.URL}, storeWithUser(t, "u1"))
	dir := t.TempDir()
	queuePath := filepath.Join(dir, "queue.json")
	video := writeVideo(t, 1000)
	if err := os.WriteFile(queuePath, []byte(`[{"open_id":"u1","video_path":"`+video+`","description":"clip"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	drainQueue(context.Background(), o, queuePath)

	if _, err := os.Stat(queuePath); !os.IsNotExist(err) {
		t.Errorf("queue file still present after drain, err = %v", err)
	}
	matches, err := filepath.Glob(queuePath + ".*.done")
	if err != nil || len(matches) != 1 {
		t.Errorf("archived queue files = %v (err %v), want exactly one", matches, err)
	}
	if got := mock.ChunkPuts.Load(); got != 1 {
		t.Errorf("chunk PUTs = %d, want 1", got)
	}
}

func TestDrainQueueMissingFileIsQuiet(t *testing.T) {
	mock := testutil.NewMockTikTokServer(t)
	o := NewOrchestrator(&tiktokapi.Client{APIBaseURL: mock.URL}, testutil.SetupTestStore(t))
	// Must not panic or create anything.
	drainQueue(context.Background(), o, filepath.Join(t.TempDir(), "absent.json"))
}
