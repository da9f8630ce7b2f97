package targets

import (
	"errors"
	"testing"

	"github.com/desertthunder/podspot/internal/models"
	"github.com/desertthunder/podspot/internal/shared"
)

func TestClassify(t *testing.T) {
	tc := []struct {
		name     string
		input    string
		wantKind models.Kind
		wantID   string
	}{
		{
			name:     "exit keyword",
			input:    "exit",
			wantKind: models.KindExit,
		},
		{
			name:     "quit alias",
			input:    "QUIT",
			wantKind: models.KindExit,
		},
		{
			name:     "liked keyword",
			input:    "liked",
			wantKind: models.KindLiked,
			wantID:   "liked",
		},
		{
			name:     "history keyword",
			input:    "History",
			wantKind: models.KindHistory,
		},
		{
			name:     "album link",
			input:    "https://open.spotify.com/album/4aawyAB9vmqN3uQ7FjRGTy",
			wantKind: models.KindAlbum,
			wantID:   "4aawyAB9vmqN3uQ7FjRGTy",
		},
		{
			name:     "playlist link",
			input:    "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M",
			wantKind: models.KindPlaylist,
			wantID:   "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "track link",
			input:    "https://open.spotify.com/track/abc123",
			wantKind: models.KindTrack,
			wantID:   "abc123",
		},
		{
			name:     "track link with query string",
			input:    "https://open.spotify.com/track/abc123?si=XYZ",
			wantKind: models.KindTrack,
			wantID:   "abc123",
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  https://open.spotify.com/album/xyz789  ",
			wantKind: models.KindAlbum,
			wantID:   "xyz789",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			target, err := Classify(tt.input)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if target.Kind != tt.wantKind {
				t.Errorf("expected kind %s, got %s", tt.wantKind, target.Kind)
			}
			if target.ID != tt.wantID {
				t.Errorf("expected id %q, got %q", tt.wantID, target.ID)
			}
		})
	}

	t.Run("unrecognized inputs", func(t *testing.T) {
		for _, input := range []string{
			"banana",
			"https://open.spotify.com/artist/abc123",
			"https://open.spotify.com/album/",
			"https://example.com/album/abc123",
			"",
		} {
			if _, err := Classify(input); !errors.Is(err, shared.ErrUnrecognizedInput) {
				t.Errorf("Classify(%q): expected ErrUnrecognizedInput, got %v", input, err)
			}
		}
	})

	t.Run("control targets flagged", func(t *testing.T) {
		target, _ := Classify("exit")
		if !target.Control() {
			t.Error("exit should be a control target")
		}

		target, _ = Classify("liked")
		if target.Control() {
			t.Error("liked should be dispatchable")
		}
	})
}
