package sweep

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/desertthunder/podspot/internal/shared"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("data"), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
}

func remaining(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestSweep(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("removes intermediates keeps finals", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir,
			"01 - Come Together.m4a",
			"02 - Something.m4a",
			"The Beatles - Come Together.flac",
			"The Beatles - Something.mp3",
			"cover.jpg",
		)

		result, err := Sweep(dir, logger)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Kept != 2 {
			t.Errorf("expected 2 kept, got %d", result.Kept)
		}
		if result.Removed != 3 {
			t.Errorf("expected 3 removed, got %d", result.Removed)
		}

		for _, name := range remaining(t, dir) {
			if filepath.Ext(name) != ".m4a" {
				t.Errorf("intermediate file survived sweep: %s", name)
			}
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, "01 - Song.m4a", "leftover.flac")

		if _, err := Sweep(dir, logger); err != nil {
			t.Fatalf("first sweep failed: %v", err)
		}

		second, err := Sweep(dir, logger)
		if err != nil {
			t.Fatalf("second sweep failed: %v", err)
		}
		if second.Removed != 0 {
			t.Errorf("second sweep removed %d files, expected 0", second.Removed)
		}
		if second.Kept != 1 {
			t.Errorf("expected 1 kept on second sweep, got %d", second.Kept)
		}
	})

	t.Run("case insensitive extension match", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, "01 - Song.M4A")

		result, err := Sweep(dir, logger)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Kept != 1 || result.Removed != 0 {
			t.Errorf("expected uppercase extension kept, got %+v", result)
		}
	})

	t.Run("subdirectories untouched", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.Mkdir(filepath.Join(dir, "nested.flac"), 0755); err != nil {
			t.Fatalf("failed to create subdir: %v", err)
		}

		result, err := Sweep(dir, logger)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Removed != 0 {
			t.Errorf("expected directories skipped, removed %d", result.Removed)
		}
		if _, err := os.Stat(filepath.Join(dir, "nested.flac")); err != nil {
			t.Error("expected subdirectory to survive")
		}
	})

	t.Run("missing directory errors", func(t *testing.T) {
		if _, err := Sweep(filepath.Join(t.TempDir(), "absent"), logger); err == nil {
			t.Error("expected error for missing directory")
		}
	})
}
