package upload

import "testing"

func TestPlanChunks(t *testing.T) {
	tests := []struct {
		name      string
		videoSize int64
		wantChunk int64
		wantCount int
	}{
		{"documented 100MB case", 100_000_000, 64_000_000, 1},
		{"exactly one chunk", 64_000_000, 64_000_000, 1},
		{"small single-chunk video", 10_000_000, 10_000_000, 1},
		{"two full chunks", 128_000_000, 64_000_000, 2},
		{"two chunks plus tail", 150_000_000, 64_000_000, 2},
		{"just over one chunk", 64_000_001, 64_000_000, 1},
		{"one byte", 1, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := PlanChunks(tt.videoSize)
			if err != nil {
				t.Fatalf("PlanChunks(%d) error = %v", tt.videoSize, err)
			}
			if plan.ChunkSize != tt.wantChunk {
				t.Errorf("ChunkSize = %d, want %d", plan.ChunkSize, tt.wantChunk)
			}
			if plan.TotalChunkCount != tt.wantCount {
				t.Errorf("TotalChunkCount = %d, want %d", plan.TotalChunkCount, tt.wantCount)
			}
		})
	}
}

func TestPlanChunksInvalidSize(t *testing.T) {
	for _, size := range []int64{0, -1} {
		if _, err := PlanChunks(size); err == nil {
			t.Errorf("PlanChunks(%d) expected error", size)
		}
	}
}

func TestRangesCoverFileExactly(t *testing.T) {
	sizes := []int64{1, 4_999_999, 10_000_000, 64_000_000, 64_000_001, 100_000_000, 128_000_000, 150_000_000, 300_000_000}
	for _, size := range sizes {
		plan, err := PlanChunks(size)
		if err != nil {
			t.Fatalf("PlanChunks(%d) error = %v", size, err)
		}
		ranges := plan.Ranges()
		if len(ranges) != plan.TotalChunkCount {
			t.Fatalf("size %d: %d ranges, want %d", size, len(ranges), plan.TotalChunkCount)
		}
		if ranges[0].Start != 0 {
			t.Errorf("size %d: first range starts at %d", size, ranges[0].Start)
		}
		// Last chunk always ends at the final byte.
		if last := ranges[len(ranges)-1]; last.End != size-1 {
			t.Errorf("size %d: last range ends at %d, want %d", size, last.End, size-1)
		}
		// Contiguous, no gaps or overlaps.
		var covered int64
		for i, r := range ranges {
			if r.Start != covered {
				t.Errorf("size %d: range %d starts at %d, want %d", size, i, r.Start, covered)
			}
			if r.End < r.Start {
				t.Errorf("size %d: range %d inverted: %+v", size, i, r)
			}
			covered = r.End + 1
		}
		if covered != size {
			t.Errorf("size %d: ranges cover %d bytes", size, covered)
		}
	}
}

func TestRangesTailMergedIntoLastChunk(t *testing.T) {
	// 150MB: two chunks, the 22MB tail merges into the second.
	plan, err := PlanChunks(150_000_000)
	if err != nil {
		t.Fatalf("PlanChunks error = %v", err)
	}
	ranges := plan.Ranges()
	if len(ranges) != 2 {
		t.Fatalf("len(ranges) = %d, want 2", len(ranges))
	}
	if ranges[0].Len() != 64_000_000 {
		t.Errorf("first chunk length = %d, want 64_000_000", ranges[0].Len())
	}
	if ranges[1].Len() != 86_000_000 {
		t.Errorf("merged last chunk length = %d, want 86_000_000", ranges[1].Len())
	}
}
