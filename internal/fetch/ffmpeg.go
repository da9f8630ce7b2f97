package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/desertthunder/podspot/internal/models"
	"github.com/desertthunder/podspot/internal/shared"
)

// ConvertRequest describes one file-to-M4A conversion with tagging.
type ConvertRequest struct {
	SourcePath  string
	Track       models.TrackMeta
	ArtworkPath string // optional cover image to embed
	PadDigits   int    // zero-padding width for the track number prefix
}

// Converter is the capability interface over the transcode/tag step.
type Converter interface {
	// Convert transcodes the source to AAC M4A with embedded tags, removes
	// the source on success, and returns the output path.
	Convert(ctx context.Context, req ConvertRequest) (string, error)
}

// FFmpegConverter implements [Converter] with the ffmpeg binary.
type FFmpegConverter struct {
	binary string
	run    runCommand

	codecOnce sync.Once
	codec     string
}

// NewFFmpegConverter creates a converter for the ffmpeg binary on PATH.
func NewFFmpegConverter() *FFmpegConverter {
	return &FFmpegConverter{binary: "ffmpeg", run: defaultRun}
}

// aacCodec returns "aac_at" (the Apple AudioToolbox encoder) when ffmpeg
// reports it, otherwise the stock "aac" encoder. Detected once per process.
func (c *FFmpegConverter) aacCodec(ctx context.Context) string {
	c.codecOnce.Do(func() {
		c.codec = "aac"
		if output, err := c.run(ctx, c.binary, "-encoders"); err == nil {
			if strings.Contains(string(output), "aac_at") {
				c.codec = "aac_at"
			}
		}
	})
	return c.codec
}

// OutputName returns the final filename for a track: "NN - Title.m4a" with
// the number zero-padded to padDigits.
func OutputName(track models.TrackMeta, padDigits int) string {
	if padDigits < 2 {
		padDigits = 2
	}
	title := shared.SanitizeFilename(track.Title)
	return fmt.Sprintf("%0*d - %s%s", padDigits, track.Number, title, FinalExt)
}

// Convert transcodes one file to AAC M4A, embedding tags and optional artwork.
func (c *FFmpegConverter) Convert(ctx context.Context, req ConvertRequest) (string, error) {
	outputPath := filepath.Join(filepath.Dir(req.SourcePath), OutputName(req.Track, req.PadDigits))

	args := []string{"-y", "-i", req.SourcePath}
	if req.ArtworkPath != "" {
		if _, err := os.Stat(req.ArtworkPath); err == nil {
			args = append(args,
				"-i", req.ArtworkPath,
				"-map", "0:a", "-map", "1:v",
				"-c:v", "copy", "-disposition:v:0", "attached_pic",
			)
		} else {
			args = append(args, "-map", "0:a")
		}
	} else {
		args = append(args, "-map", "0:a")
	}

	args = append(args,
		"-c:a", c.aacCodec(ctx),
		"-b:a", "256k",
		"-movflags", "+faststart",
		"-metadata", fmt.Sprintf("artist=%s", req.Track.Artists),
		"-metadata", fmt.Sprintf("album=%s", req.Track.Album),
		"-metadata", fmt.Sprintf("title=%s", req.Track.Title),
		"-metadata", fmt.Sprintf("track=%d", req.Track.Number),
		outputPath,
	)

	if output, err := c.run(ctx, c.binary, args...); err != nil {
		return "", fmt.Errorf("%w for %s: %v\n%s", shared.ErrConvertFailed,
			filepath.Base(req.SourcePath), err, strings.TrimSpace(string(output)))
	}

	// The intermediate is replaced by the tagged M4A.
	if err := os.Remove(req.SourcePath); err != nil && !os.IsNotExist(err) {
		return outputPath, fmt.Errorf("converted but failed to remove source: %w", err)
	}

	return outputPath, nil
}
