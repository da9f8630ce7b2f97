package fetch

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/desertthunder/podspot/internal/shared"
)

// runCommand executes a binary and returns its combined output. Replaced in tests.
type runCommand func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// SpotdlFetcher implements [Fetcher] by shelling out to the spotdl binary.
type SpotdlFetcher struct {
	binary string
	run    runCommand
}

// NewSpotdlFetcher creates a fetcher for the spotdl binary on PATH.
func NewSpotdlFetcher() *SpotdlFetcher {
	return &SpotdlFetcher{binary: "spotdl", run: defaultRun}
}

// Check runs "spotdl --version" to verify the tool is installed.
func (s *SpotdlFetcher) Check(ctx context.Context) error {
	if _, err := s.run(ctx, s.binary, "--version"); err != nil {
		return fmt.Errorf("%w: install with `pip install spotdl`: %v", shared.ErrSpotdlNotFound, err)
	}
	return nil
}

// Fetch runs one spotdl download invocation, blocking until it exits.
func (s *SpotdlFetcher) Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	args := []string{"download", req.Source, "--output", req.Template, "--format", req.Format}
	if req.Threads > 0 {
		args = append(args, "--threads", strconv.Itoa(req.Threads))
	}
	if req.Bitrate != "" {
		args = append(args, "--bitrate", req.Bitrate)
	}
	if req.UserAuth {
		args = append(args, "--user-auth")
	}

	output, err := s.run(ctx, s.binary, args...)
	if err != nil {
		// spotdl's own stderr is the most useful diagnostic, surface it verbatim.
		return nil, fmt.Errorf("%w: %v\n%s", shared.ErrFetcherFailed, err, strings.TrimSpace(string(output)))
	}

	return &FetchResult{Format: req.Format, Attempts: 1, Output: string(output)}, nil
}
