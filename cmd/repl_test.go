package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/podspot/internal/history"
	"github.com/desertthunder/podspot/internal/models"
	"github.com/desertthunder/podspot/internal/tasks"
)

// fakeEngine records dispatched targets and replies with a canned result.
type fakeEngine struct {
	targets []models.Target
	result  *models.DispatchResult
	err     error
}

func (f *fakeEngine) Dispatch(ctx context.Context, progress chan<- tasks.ProgressUpdate, target models.Target) (*models.DispatchResult, error) {
	f.targets = append(f.targets, target)
	if progress != nil {
		progress <- tasks.ProgressUpdate{Message: "Working on " + target.Describe()}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		result := *f.result
		result.Target = target
		return &result, nil
	}
	return &models.DispatchResult{
		Target:    target,
		Meta:      &models.TargetMeta{Artist: "Beach House", Album: "Bloom"},
		Converted: 10,
		Status:    models.StatusSuccess,
		Format:    "AAC M4A (from flac)",
	}, nil
}

func replFixture(t *testing.T, input string) (*Runner, *bytes.Buffer, *history.Log) {
	t.Helper()
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Output: output,
		Input:  strings.NewReader(input),
	})
	hist := history.NewLog(filepath.Join(t.TempDir(), "history.log"))
	return runner, output, hist
}

func TestREPL(t *testing.T) {
	ctx := context.Background()

	t.Run("exit terminates the session", func(t *testing.T) {
		runner, output, hist := replFixture(t, "exit\n")
		engine := &fakeEngine{}

		if err := runner.repl(ctx, engine, hist); err != nil {
			t.Fatalf("repl failed: %v", err)
		}
		if len(engine.targets) != 0 {
			t.Errorf("expected no dispatches, got %d", len(engine.targets))
		}
		if !strings.Contains(output.String(), "PodSpot") {
			t.Error("expected banner in output")
		}
	})

	t.Run("quit is an exit alias", func(t *testing.T) {
		runner, _, hist := replFixture(t, "quit\n")

		if err := runner.repl(ctx, &fakeEngine{}, hist); err != nil {
			t.Fatalf("repl failed: %v", err)
		}
	})

	t.Run("EOF terminates the session", func(t *testing.T) {
		runner, _, hist := replFixture(t, "")
		engine := &fakeEngine{}

		if err := runner.repl(ctx, engine, hist); err != nil {
			t.Fatalf("repl failed: %v", err)
		}
		if len(engine.targets) != 0 {
			t.Errorf("expected no dispatches, got %d", len(engine.targets))
		}
	})

	t.Run("blank lines are ignored", func(t *testing.T) {
		runner, output, hist := replFixture(t, "\n\nexit\n")

		if err := runner.repl(ctx, &fakeEngine{}, hist); err != nil {
			t.Fatalf("repl failed: %v", err)
		}
		if strings.Contains(output.String(), "Unrecognized") {
			t.Error("blank lines should not trigger the usage hint")
		}
	})

	t.Run("unrecognized input prints the usage hint", func(t *testing.T) {
		runner, output, hist := replFixture(t, "banana\nexit\n")
		engine := &fakeEngine{}

		if err := runner.repl(ctx, engine, hist); err != nil {
			t.Fatalf("repl failed: %v", err)
		}
		if !strings.Contains(output.String(), "Unrecognized input.") {
			t.Error("expected unrecognized input warning")
		}
		if !strings.Contains(output.String(), "Enter a Spotify album") {
			t.Error("expected usage hint in output")
		}
		if len(engine.targets) != 0 {
			t.Errorf("expected no dispatches, got %d", len(engine.targets))
		}
	})

	t.Run("album link dispatches and prints a summary", func(t *testing.T) {
		runner, output, hist := replFixture(t, "https://open.spotify.com/album/4uG8q3GPuWHQlRbswMIRS6\nexit\n")
		engine := &fakeEngine{}

		if err := runner.repl(ctx, engine, hist); err != nil {
			t.Fatalf("repl failed: %v", err)
		}
		if len(engine.targets) != 1 {
			t.Fatalf("expected 1 dispatch, got %d", len(engine.targets))
		}
		if engine.targets[0].Kind != models.KindAlbum {
			t.Errorf("expected album target, got %s", engine.targets[0].Kind)
		}
		if !strings.Contains(output.String(), "Working on album") {
			t.Error("expected progress message in output")
		}
		if !strings.Contains(output.String(), "✓ Finished: Beach House - Bloom (10 songs, AAC M4A (from flac))") {
			t.Errorf("expected success summary, got %q", output.String())
		}
	})

	t.Run("partial results are flagged", func(t *testing.T) {
		runner, output, hist := replFixture(t, "liked\nexit\n")
		engine := &fakeEngine{result: &models.DispatchResult{
			Meta:      &models.TargetMeta{Artist: "Various Artists", Album: "Liked Songs"},
			Converted: 3,
			Status:    models.StatusPartial,
			Format:    "AAC M4A (from mp3)",
		}}

		if err := runner.repl(ctx, engine, hist); err != nil {
			t.Fatalf("repl failed: %v", err)
		}
		if !strings.Contains(output.String(), "⚠ Partial: Various Artists - Liked Songs (3 songs, AAC M4A (from mp3))") {
			t.Errorf("expected partial summary, got %q", output.String())
		}
	})

	t.Run("dispatch errors keep the loop alive", func(t *testing.T) {
		runner, output, hist := replFixture(t, "https://open.spotify.com/track/abc123\nhistory\nexit\n")
		engine := &fakeEngine{err: errors.New("metadata lookup failed")}

		if err := runner.repl(ctx, engine, hist); err != nil {
			t.Fatalf("repl failed: %v", err)
		}
		if !strings.Contains(output.String(), "✗ track abc123: metadata lookup failed") {
			t.Errorf("expected dispatch error in output, got %q", output.String())
		}
		if !strings.Contains(output.String(), "No downloads recorded yet.") {
			t.Error("expected the loop to keep serving commands after a failure")
		}
	})

	t.Run("history prints recent entries", func(t *testing.T) {
		runner, output, hist := replFixture(t, "history\nexit\n")
		entry := models.HistoryEntry{
			Timestamp:   time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
			Status:      models.StatusSuccess,
			Description: "Radiohead - In Rainbows",
			SongCount:   10,
			Format:      "AAC M4A (from flac)",
		}
		if err := hist.Record(entry); err != nil {
			t.Fatalf("failed to seed history: %v", err)
		}

		if err := runner.repl(ctx, &fakeEngine{}, hist); err != nil {
			t.Fatalf("repl failed: %v", err)
		}
		if !strings.Contains(output.String(), "Radiohead - In Rainbows") {
			t.Errorf("expected history entry in output, got %q", output.String())
		}
	})

	t.Run("history on an empty log prints a placeholder", func(t *testing.T) {
		runner, output, hist := replFixture(t, "history\nexit\n")

		if err := runner.repl(ctx, &fakeEngine{}, hist); err != nil {
			t.Fatalf("repl failed: %v", err)
		}
		if !strings.Contains(output.String(), "No downloads recorded yet.") {
			t.Error("expected empty history placeholder")
		}
	})
}
