package tasks

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/podspot/internal/fetch"
	"github.com/desertthunder/podspot/internal/history"
	"github.com/desertthunder/podspot/internal/library"
	"github.com/desertthunder/podspot/internal/models"
	"github.com/desertthunder/podspot/internal/shared"
)

type mockMetadata struct {
	meta *models.TargetMeta
	err  error
}

func (m *mockMetadata) Name() string { return "mock" }

func (m *mockMetadata) ResolveTarget(ctx context.Context, target models.Target) (*models.TargetMeta, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.meta, nil
}

// mockFetcher drops intermediate files into the template's directory on
// success, simulating the external download tool.
type mockFetcher struct {
	mu       sync.Mutex
	calls    []fetch.FetchRequest
	failFmts map[string]error // per-format failure injection
	files    []string         // filenames to create, "{ext}" replaced by format
}

func (m *mockFetcher) Check(ctx context.Context) error { return nil }

func (m *mockFetcher) Fetch(ctx context.Context, req fetch.FetchRequest) (*fetch.FetchResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if err := m.failFmts[req.Format]; err != nil {
		return nil, err
	}

	dir := filepath.Dir(req.Template)
	for _, name := range m.files {
		full := strings.ReplaceAll(name, "{ext}", req.Format)
		if err := os.WriteFile(filepath.Join(dir, full), []byte("audio"), 0644); err != nil {
			return nil, err
		}
	}
	return &fetch.FetchResult{Format: req.Format, Attempts: 1}, nil
}

// mockConverter writes the final M4A and removes the source, like ffmpeg.
type mockConverter struct {
	mu         sync.Mutex
	requests   []fetch.ConvertRequest
	failTitles map[string]bool
}

func (m *mockConverter) Convert(ctx context.Context, req fetch.ConvertRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.failTitles[req.Track.Title] {
		return "", shared.ErrConvertFailed
	}

	out := filepath.Join(filepath.Dir(req.SourcePath), fetch.OutputName(req.Track, req.PadDigits))
	if err := os.WriteFile(out, []byte("m4a"), 0644); err != nil {
		return "", err
	}
	os.Remove(req.SourcePath)
	return out, nil
}

func albumMeta() *models.TargetMeta {
	return &models.TargetMeta{
		Artist: "The Beatles",
		Album:  "Abbey Road",
		Tracks: []models.TrackMeta{
			{Number: 1, Title: "Come Together", Artists: "The Beatles", Album: "Abbey Road"},
			{Number: 2, Title: "Something", Artists: "The Beatles", Album: "Abbey Road"},
		},
	}
}

func albumTarget() models.Target {
	return models.Target{
		Kind: models.KindAlbum,
		ID:   "abc123",
		URL:  "https://open.spotify.com/album/abc123",
	}
}

type engineFixture struct {
	engine  *Engine
	fetcher *mockFetcher
	conv    *mockConverter
	hist    *history.Log
	baseDir string
}

func newFixture(t *testing.T, meta *models.TargetMeta, fetcher *mockFetcher) *engineFixture {
	t.Helper()

	baseDir := t.TempDir()
	hist := history.NewLog(filepath.Join(baseDir, "download_log.txt"))
	conv := &mockConverter{}

	plan := fetch.FallbackPlan{Preferred: "flac", Fallback: "mp3", Bitrate: "320k", Retries: 0}
	engine := NewEngine(EngineOpts{
		Metadata:  &mockMetadata{meta: meta},
		Fetcher:   fetcher,
		Converter: conv,
		History:   hist,
		Downloads: shared.DownloadsConfig{BaseDir: baseDir, Threads: 2},
		Plan:      &plan,
		Logger:    shared.NewLogger(io.Discard),
	})

	return &engineFixture{engine: engine, fetcher: fetcher, conv: conv, hist: hist, baseDir: baseDir}
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("successful album dispatch", func(t *testing.T) {
		fetcher := &mockFetcher{files: []string{
			"The Beatles - Come Together.{ext}",
			"The Beatles - Something.{ext}",
		}}
		f := newFixture(t, albumMeta(), fetcher)

		progress := make(chan ProgressUpdate, 50)
		result, err := f.engine.Dispatch(ctx, progress, albumTarget())
		if err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}

		if result.Status != models.StatusSuccess {
			t.Errorf("expected SUCCESS, got %s", result.Status)
		}
		if result.Converted != 2 {
			t.Errorf("expected 2 converted, got %d", result.Converted)
		}
		if result.Format != "flac" {
			t.Errorf("expected flac, got %s", result.Format)
		}
		if len(result.Items) != 2 || result.Items[0].TrackNumber != 1 {
			t.Errorf("expected items sorted by track number, got %+v", result.Items)
		}

		folder := filepath.Join(f.baseDir, "The Beatles - Abbey Road")
		entries, _ := os.ReadDir(folder)
		for _, entry := range entries {
			if filepath.Ext(entry.Name()) != fetch.FinalExt {
				t.Errorf("intermediate file survived: %s", entry.Name())
			}
		}

		entries2, err := f.hist.Recent(10)
		if err != nil {
			t.Fatalf("failed to read history: %v", err)
		}
		if len(entries2) != 1 || entries2[0].Status != models.StatusSuccess {
			t.Errorf("expected one SUCCESS history entry, got %+v", entries2)
		}
		if entries2[0].Format != "AAC M4A (from flac)" {
			t.Errorf("unexpected history format: %s", entries2[0].Format)
		}

		close(progress)
		seen := map[Phase]bool{}
		for update := range progress {
			seen[update.Phase] = true
		}
		for _, phase := range []Phase{PhaseMetadata, PhaseFetch, PhaseConvert, PhaseSweep, PhaseRecord} {
			if !seen[phase] {
				t.Errorf("missing progress phase %s", phase)
			}
		}
	})

	t.Run("fetch failure recorded as FAILED", func(t *testing.T) {
		fetcher := &mockFetcher{failFmts: map[string]error{
			"flac": shared.ErrFetcherFailed,
			"mp3":  shared.ErrFetcherFailed,
		}}
		f := newFixture(t, albumMeta(), fetcher)

		result, err := f.engine.Dispatch(ctx, nil, albumTarget())
		if err == nil {
			t.Fatal("expected error")
		}
		if result.Status != models.StatusFailed {
			t.Errorf("expected FAILED, got %s", result.Status)
		}

		entries, _ := f.hist.Recent(10)
		if len(entries) != 1 || entries[0].Status != models.StatusFailed || entries[0].SongCount != 0 {
			t.Errorf("expected FAILED entry with 0 songs, got %+v", entries)
		}
	})

	t.Run("falls back to mp3", func(t *testing.T) {
		fetcher := &mockFetcher{
			failFmts: map[string]error{"flac": shared.ErrFetcherFailed},
			files: []string{
				"The Beatles - Come Together.{ext}",
				"The Beatles - Something.{ext}",
			},
		}
		f := newFixture(t, albumMeta(), fetcher)

		result, err := f.engine.Dispatch(ctx, nil, albumTarget())
		if err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}
		if result.Format != "mp3" {
			t.Errorf("expected mp3 fallback, got %s", result.Format)
		}
		if result.Status != models.StatusSuccess {
			t.Errorf("expected SUCCESS, got %s", result.Status)
		}

		entries, _ := f.hist.Recent(10)
		if entries[0].Format != "AAC M4A (from mp3)" {
			t.Errorf("unexpected history format: %s", entries[0].Format)
		}
	})

	t.Run("partial conversion recorded as PARTIAL", func(t *testing.T) {
		fetcher := &mockFetcher{files: []string{
			"The Beatles - Come Together.{ext}",
		}}
		f := newFixture(t, albumMeta(), fetcher)

		result, err := f.engine.Dispatch(ctx, nil, albumTarget())
		if err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}
		if result.Status != models.StatusPartial {
			t.Errorf("expected PARTIAL, got %s", result.Status)
		}
		if result.Converted != 1 {
			t.Errorf("expected 1 converted, got %d", result.Converted)
		}

		entries, _ := f.hist.Recent(10)
		if entries[0].Status != models.StatusPartial || entries[0].SongCount != 1 {
			t.Errorf("expected PARTIAL entry with 1 song, got %+v", entries)
		}
	})

	t.Run("conversion failure counts against status", func(t *testing.T) {
		fetcher := &mockFetcher{files: []string{
			"The Beatles - Come Together.{ext}",
			"The Beatles - Something.{ext}",
		}}
		f := newFixture(t, albumMeta(), fetcher)
		f.conv.failTitles = map[string]bool{"Something": true}

		result, err := f.engine.Dispatch(ctx, nil, albumTarget())
		if err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}
		if result.Status != models.StatusPartial {
			t.Errorf("expected PARTIAL, got %s", result.Status)
		}
	})

	t.Run("liked target uses saved source with user auth", func(t *testing.T) {
		meta := albumMeta()
		meta.Artist = "Liked Songs"
		meta.Album = "Spotify Liked Songs"
		fetcher := &mockFetcher{files: []string{
			"The Beatles - Come Together.{ext}",
			"The Beatles - Something.{ext}",
		}}
		f := newFixture(t, meta, fetcher)

		_, err := f.engine.Dispatch(ctx, nil, models.Target{Kind: models.KindLiked, ID: "liked"})
		if err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}

		if len(f.fetcher.calls) == 0 {
			t.Fatal("expected fetcher to be called")
		}
		call := f.fetcher.calls[0]
		if call.Source != fetch.LikedSource {
			t.Errorf("expected source %q, got %q", fetch.LikedSource, call.Source)
		}
		if !call.UserAuth {
			t.Error("expected user-auth flag for liked songs")
		}
	})

	t.Run("control targets rejected", func(t *testing.T) {
		f := newFixture(t, albumMeta(), &mockFetcher{})

		_, err := f.engine.Dispatch(ctx, nil, models.Target{Kind: models.KindExit})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("metadata failure aborts before fetch", func(t *testing.T) {
		f := newFixture(t, albumMeta(), &mockFetcher{})
		f.engine.metadata = &mockMetadata{err: shared.ErrAPIRequest}

		_, err := f.engine.Dispatch(ctx, nil, albumTarget())
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if len(f.fetcher.calls) != 0 {
			t.Errorf("expected no fetch calls, got %d", len(f.fetcher.calls))
		}

		entries, _ := f.hist.Recent(10)
		if len(entries) != 0 {
			t.Errorf("expected no history entries, got %+v", entries)
		}
	})

	t.Run("artwork passed to converter and cleaned up", func(t *testing.T) {
		meta := albumMeta()
		meta.ArtworkURL = "https://img.example.com/cover.jpg"
		fetcher := &mockFetcher{files: []string{
			"The Beatles - Come Together.{ext}",
			"The Beatles - Something.{ext}",
		}}
		f := newFixture(t, meta, fetcher)
		f.engine.fetchImage = func(url string) ([]byte, error) {
			return []byte("jpeg bytes"), nil
		}

		_, err := f.engine.Dispatch(ctx, nil, albumTarget())
		if err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}

		if len(f.conv.requests) == 0 {
			t.Fatal("expected conversions")
		}
		artPath := f.conv.requests[0].ArtworkPath
		if artPath == "" {
			t.Fatal("expected artwork path on convert request")
		}
		if _, err := os.Stat(artPath); !os.IsNotExist(err) {
			t.Errorf("expected temp artwork removed, stat err: %v", err)
		}
	})

	t.Run("artwork failure does not fail dispatch", func(t *testing.T) {
		meta := albumMeta()
		meta.ArtworkURL = "https://img.example.com/cover.jpg"
		fetcher := &mockFetcher{files: []string{
			"The Beatles - Come Together.{ext}",
			"The Beatles - Something.{ext}",
		}}
		f := newFixture(t, meta, fetcher)
		f.engine.fetchImage = func(url string) ([]byte, error) {
			return nil, errors.New("image host down")
		}

		result, err := f.engine.Dispatch(ctx, nil, albumTarget())
		if err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}
		if result.Status != models.StatusSuccess {
			t.Errorf("expected SUCCESS, got %s", result.Status)
		}
		if f.conv.requests[0].ArtworkPath != "" {
			t.Errorf("expected empty artwork path, got %s", f.conv.requests[0].ArtworkPath)
		}
	})

	t.Run("pad digits follow batch size", func(t *testing.T) {
		meta := &models.TargetMeta{Artist: "Various", Album: "Megamix"}
		var files []string
		for i := 1; i <= 12; i++ {
			title := "Track " + string(rune('A'+i-1))
			meta.Tracks = append(meta.Tracks, models.TrackMeta{Number: i, Title: title, Artists: "Various", Album: "Megamix"})
			files = append(files, "Various - "+title+".{ext}")
		}
		fetcher := &mockFetcher{files: files}
		f := newFixture(t, meta, fetcher)

		if _, err := f.engine.Dispatch(ctx, nil, albumTarget()); err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}
		for _, req := range f.conv.requests {
			if req.PadDigits != 2 {
				t.Errorf("expected pad digits 2 for 12 tracks, got %d", req.PadDigits)
			}
		}
	})

	t.Run("catalog records converted items", func(t *testing.T) {
		db, err := shared.NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()
		if err := shared.RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		fetcher := &mockFetcher{files: []string{
			"The Beatles - Come Together.{ext}",
			"The Beatles - Something.{ext}",
		}}
		f := newFixture(t, albumMeta(), fetcher)
		repo := library.NewRepository(db)
		f.engine.catalog = repo

		if _, err := f.engine.Dispatch(ctx, nil, albumTarget()); err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}

		count, err := repo.Count()
		if err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		if count != 2 {
			t.Errorf("expected 2 catalog rows, got %d", count)
		}
	})
}
