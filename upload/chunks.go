// Package upload orchestrates chunked video uploads against the Content
// Posting API: planning byte ranges, querying creator constraints, driving
// the init-then-PUT sequence, and running the pending-upload batch.
package upload

import "fmt"

// maxChunkSize is the vendor ceiling for a single chunk PUT.
const maxChunkSize = 64_000_000

// ByteRange is one inclusive chunk span within the video file.
type ByteRange struct {
	Start int64
	End   int64
}

// Len returns the number of bytes covered by the range.
func (r ByteRange) Len() int64 { return r.End - r.Start + 1 }

// ChunkPlan describes how a video file is split for upload.
type ChunkPlan struct {
	VideoSize       int64
	ChunkSize       int64
	TotalChunkCount int
}

// PlanChunks computes the chunking parameters for a video of the given size.
//
// chunk_size is min(64_000_000, videoSize). The chunk count is floor
// division: any tail smaller than one chunk merges into the final chunk,
// per the vendor media-transfer rules requiring the last chunk to be at
// least 5MB and the merged chunk under 128MB. Floor division keeps a
// single-chunk video at count 1 instead of 0.
func PlanChunks(videoSize int64) (ChunkPlan, error) {
	if videoSize <= 0 {
		return ChunkPlan{}, fmt.Errorf("invalid video size %d", videoSize)
	}
	chunkSize := int64(maxChunkSize)
	if videoSize < chunkSize {
		chunkSize = videoSize
	}
	return ChunkPlan{
		VideoSize:       videoSize,
		ChunkSize:       chunkSize,
		TotalChunkCount: int(videoSize / chunkSize),
	}, nil
}

// Ranges expands the plan into the byte ranges to PUT, in order. Ranges are
// contiguous from 0; the final range's end is always VideoSize-1 so the tail
// is carried by the last chunk.
func (p ChunkPlan) Ranges() []ByteRange {
	ranges := make([]ByteRange, 0, p.TotalChunkCount)
	for i := 0; i < p.TotalChunkCount; i++ {
		start := int64(i) * p.ChunkSize
		end := start + p.ChunkSize
		if end > p.VideoSize {
			end = p.VideoSize
		}
		end--
		if i == p.TotalChunkCount-1 {
			end = p.VideoSize - 1
		}
		ranges = append(ranges, ByteRange{Start: start, End: end})
	}
	return ranges
}
