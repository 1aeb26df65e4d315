package video

import (
	"context"
	"fmt"
	"time"

	"veritas-hq/sentinel/pkg/moderation"
)

const (
	// DefaultFrameCount balances thoroughness against cost and latency.
	// More frames catch more, cost more, and take longer; the tradeoff
	// is a caller decision, not a constant.
	DefaultFrameCount = 5

	// DefaultMaxDuration rejects videos longer than this before any
	// frame work.
	DefaultMaxDuration = 10 * time.Minute

	// DefaultMaxSize rejects videos larger than this, in bytes.
	DefaultMaxSize = 512 << 20 // 512 MiB

	// thumbnailPosition places the thumbnail near the start but past
	// any fade-in.
	thumbnailPosition = 0.10
)

// Source is one open video. Implementations wrap whatever decodes the
// container (a browser video element, an ffmpeg pipe, a GStreamer
// pipeline); this package only drives seeks.
//
// SeekCapture blocks until the frame at the requested position is
// captured. Callers never issue overlapping SeekCapture calls.
type Source interface {
	// Duration returns the video length.
	Duration() time.Duration

	// Size returns the file size in bytes, 0 if unknown.
	Size() int64

	// SeekCapture seeks to the position and captures one frame,
	// returning its payload (a data URL or an upload reference).
	SeekCapture(ctx context.Context, position time.Duration) (string, error)

	// Close releases the underlying video resource.
	Close() error
}

// ProgressFunc receives extraction progress: frames done out of total.
// Called once per captured frame, from the extracting goroutine.
type ProgressFunc func(done, total int)

// Sampler extracts evenly spaced frames from videos.
type Sampler struct {
	// FrameCount is how many frames to sample. Default 5.
	FrameCount int

	// MaxDuration and MaxSize bound what gets processed at all.
	MaxDuration time.Duration
	MaxSize     int64
}

// NewSampler creates a sampler with defaults filled in.
func NewSampler() *Sampler {
	return &Sampler{
		FrameCount:  DefaultFrameCount,
		MaxDuration: DefaultMaxDuration,
		MaxSize:     DefaultMaxSize,
	}
}

// validate rejects the video before any seek is issued.
func (s *Sampler) validate(src Source) error {
	maxDur := s.MaxDuration
	if maxDur <= 0 {
		maxDur = DefaultMaxDuration
	}
	maxSize := s.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	if d := src.Duration(); d <= 0 {
		return fmt.Errorf("video has no duration")
	} else if d > maxDur {
		return fmt.Errorf("video duration %s exceeds maximum %s", d, maxDur)
	}
	if size := src.Size(); size > maxSize {
		return fmt.Errorf("video size %d exceeds maximum %d bytes", size, maxSize)
	}
	return nil
}

// Sample extracts FrameCount frames at i*interval for i in [0,
// FrameCount), where interval = duration/FrameCount. Frames are captured
// strictly one at a time; progress (when non-nil) is reported after each
// capture.
//
// Cancelling the context stops further seeks and closes the source; the
// partial result is discarded and ctx.Err is returned.
func (s *Sampler) Sample(ctx context.Context, src Source, progress ProgressFunc) ([]moderation.ContentItem, error) {
	if err := s.validate(src); err != nil {
		return nil, err
	}

	count := s.FrameCount
	if count <= 0 {
		count = DefaultFrameCount
	}
	interval := src.Duration() / time.Duration(count)

	items := make([]moderation.ContentItem, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			src.Close()
			return nil, err
		}

		payload, err := src.SeekCapture(ctx, time.Duration(i)*interval)
		if err != nil {
			if ctx.Err() != nil {
				src.Close()
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}

		items = append(items, moderation.ContentItem{
			Kind:    moderation.KindVideoFrame,
			Payload: payload,
			Ordinal: i,
		})
		if progress != nil {
			progress(i+1, count)
		}
	}

	return items, nil
}

// Thumbnail captures a single representative frame near 10% of the
// duration, independent of the sampling set.
func (s *Sampler) Thumbnail(ctx context.Context, src Source) (moderation.ContentItem, error) {
	if err := s.validate(src); err != nil {
		return moderation.ContentItem{}, err
	}

	position := time.Duration(float64(src.Duration()) * thumbnailPosition)
	payload, err := src.SeekCapture(ctx, position)
	if err != nil {
		return moderation.ContentItem{}, fmt.Errorf("thumbnail: %w", err)
	}
	return moderation.ContentItem{Kind: moderation.KindVideoFrame, Payload: payload}, nil
}
