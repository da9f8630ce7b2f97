// Package fetch wraps the external tools on the data path: spotdl for
// resolving provider URLs to audio files, and ffmpeg for transcoding to the
// iPod-compatible AAC M4A container with embedded tags and artwork.
//
// Both tools are abstracted behind small interfaces ([Fetcher], [Converter])
// so the dispatch pipeline can be tested with fakes that write pre-canned
// files instead of performing real network or transcoding work.
package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// FinalExt is the only extension left in an output directory after a
// completed dispatch.
const FinalExt = ".m4a"

// LikedSource is the spotdl source argument for the authenticated user's
// saved-tracks collection.
const LikedSource = "saved"

// FetchRequest describes one invocation of the external download tool.
type FetchRequest struct {
	Source   string // provider URL, or [LikedSource]
	Template string // output path template, e.g. "/music/Artist - Album/{artists} - {title}.{output-ext}"
	Format   string // intermediate audio format (flac, mp3, ...)
	Bitrate  string // only meaningful for lossy formats
	Threads  int
	UserAuth bool // pass the user-auth flag for library-scoped sources
}

// FetchResult reports a completed invocation.
type FetchResult struct {
	Format   string // format actually delivered
	Attempts int    // total tool invocations across formats
	Output   string // combined stdout/stderr of the last invocation
}

// Fetcher is the capability interface over the external download/convert tool.
type Fetcher interface {
	// Check verifies the tool is installed and runnable.
	Check(ctx context.Context) error

	// Fetch runs a single download attempt, blocking until the tool exits.
	Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error)
}

// FallbackPlan controls retry and format-fallback behavior around a [Fetcher].
type FallbackPlan struct {
	Preferred string
	Fallback  string
	Bitrate   string // applied to the fallback format
	Retries   int    // extra attempts per format after the first
}

// DefaultPlan mirrors the historical defaults: lossless first, then mp3 at 320k.
func DefaultPlan() FallbackPlan {
	return FallbackPlan{Preferred: "flac", Fallback: "mp3", Bitrate: "320k", Retries: 2}
}

// sleepFn is replaced in tests to skip real backoff waits.
var sleepFn = time.Sleep

// FetchWithFallback runs the preferred format with exponential backoff
// retries, then falls back to the lossy format before giving up.
func FetchWithFallback(ctx context.Context, f Fetcher, req FetchRequest, plan FallbackPlan, logger *log.Logger) (*FetchResult, error) {
	attempts := 0
	formats := []struct {
		format  string
		bitrate string
	}{
		{plan.Preferred, ""},
		{plan.Fallback, plan.Bitrate},
	}

	var lastErr error
	for _, fm := range formats {
		if fm.format == "" {
			continue
		}
		for attempt := 1; attempt <= plan.Retries+1; attempt++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			attempts++
			attemptReq := req
			attemptReq.Format = fm.format
			attemptReq.Bitrate = fm.bitrate

			logger.Infof("spotdl attempt %d (%s)", attempt, fm.format)
			result, err := f.Fetch(ctx, attemptReq)
			if err == nil {
				result.Attempts = attempts
				return result, nil
			}

			lastErr = err
			logger.Warnf("attempt %d failed: %v", attempt, err)
			if attempt <= plan.Retries {
				sleepFn(time.Duration(1<<attempt) * time.Second)
			}
		}
		if fm.format == plan.Preferred && plan.Fallback != "" {
			logger.Warnf("preferred %s failed, falling back to %s", plan.Preferred, plan.Fallback)
		}
	}

	return nil, fmt.Errorf("all formats exhausted: %w", lastErr)
}
