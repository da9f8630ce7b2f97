// Package targets classifies a line of user input into a download target or a
// REPL control keyword.
//
// Classification is purely lexical: keywords are matched exactly
// (case-insensitively) and provider links are matched against the
// open.spotify.com URL shape. No network lookups or fuzzy matching are
// performed, so a link that merely lacks the expected path segment is
// reported as unrecognized rather than attempted.
package targets

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/desertthunder/podspot/internal/models"
	"github.com/desertthunder/podspot/internal/shared"
)

// linkPattern matches album, playlist, and track share links, tolerating
// query strings (e.g. ?si=...) after the resource ID.
var linkPattern = regexp.MustCompile(`^https?://open\.spotify\.com/(album|playlist|track)/([a-zA-Z0-9]+)`)

// Classify inspects a raw input line and returns the matching [models.Target].
//
// Rules, checked in order: "exit"/"quit" terminate, "liked" targets the
// saved-tracks collection, "history" requests the recent download log, and
// provider links map to their resource kind. Anything else returns
// [shared.ErrUnrecognizedInput].
func Classify(input string) (models.Target, error) {
	trimmed := strings.TrimSpace(input)

	switch strings.ToLower(trimmed) {
	case "exit", "quit":
		return models.Target{Kind: models.KindExit}, nil
	case "liked":
		return models.Target{Kind: models.KindLiked, ID: "liked"}, nil
	case "history":
		return models.Target{Kind: models.KindHistory}, nil
	}

	if match := linkPattern.FindStringSubmatch(trimmed); match != nil {
		return models.Target{
			Kind: models.Kind(match[1]),
			ID:   match[2],
			URL:  trimmed,
		}, nil
	}

	return models.Target{}, fmt.Errorf("%w: %q", shared.ErrUnrecognizedInput, trimmed)
}

// UsageHint is printed at the prompt when input is unrecognized.
const UsageHint = `Enter a Spotify album, playlist, or track link, or one of:
  liked    download your Liked Songs
  history  show the last 10 downloads
  exit     quit`
