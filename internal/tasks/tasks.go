package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/podspot/internal/fetch"
	"github.com/desertthunder/podspot/internal/formatter"
	"github.com/desertthunder/podspot/internal/history"
	"github.com/desertthunder/podspot/internal/library"
	"github.com/desertthunder/podspot/internal/models"
	"github.com/desertthunder/podspot/internal/services"
	"github.com/desertthunder/podspot/internal/shared"
	"github.com/desertthunder/podspot/internal/sweep"
)

// convertJob pairs an intermediate file with the track metadata it matched.
type convertJob struct {
	SourcePath string
	Track      models.TrackMeta
}

// DispatchEngine defines the download pipeline for classified targets.
type DispatchEngine interface {
	// Dispatch runs the full pipeline for one target: metadata, fetch with
	// format fallback, convert/tag, sweep, and record. Blocks until done.
	Dispatch(ctx context.Context, progress chan<- ProgressUpdate, target models.Target) (*models.DispatchResult, error)
}

// Engine implements DispatchEngine for Spotify targets.
// Contains dependencies on the metadata service, external tools, and stores.
type Engine struct {
	metadata  services.MetadataService
	fetcher   fetch.Fetcher
	converter fetch.Converter
	history   *history.Log
	catalog   *library.Repository
	downloads shared.DownloadsConfig
	plan      fetch.FallbackPlan
	logger    *log.Logger

	// fetchImage is replaced in tests to avoid real HTTP calls.
	fetchImage func(url string) ([]byte, error)
}

// EngineOpts contains configuration for constructing an Engine.
type EngineOpts struct {
	Metadata  services.MetadataService
	Fetcher   fetch.Fetcher
	Converter fetch.Converter
	History   *history.Log
	Catalog   *library.Repository // optional; nil disables the catalog
	Downloads shared.DownloadsConfig
	Plan      *fetch.FallbackPlan // nil derives the plan from Downloads
	Logger    *log.Logger
}

// NewEngine creates an Engine with the provided dependencies.
func NewEngine(opts EngineOpts) *Engine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(os.Stderr)
	}

	plan := fetch.DefaultPlan()
	if opts.Plan != nil {
		plan = *opts.Plan
	} else if opts.Downloads.PreferredFormat != "" {
		plan.Preferred = opts.Downloads.PreferredFormat
		plan.Fallback = opts.Downloads.FallbackFormat
		if opts.Downloads.MP3Bitrate != "" {
			plan.Bitrate = opts.Downloads.MP3Bitrate
		}
	}

	return &Engine{
		metadata:   opts.Metadata,
		fetcher:    opts.Fetcher,
		converter:  opts.Converter,
		history:    opts.History,
		catalog:    opts.Catalog,
		downloads:  opts.Downloads,
		plan:       plan,
		logger:     opts.Logger,
		fetchImage: formatter.DownloadImage,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// Dispatch runs the full download pipeline for a single target.
//
// A fetch failure after format fallback is recorded as FAILED; fewer converted
// files than resolved tracks is recorded as PARTIAL. History and catalog write
// failures are logged and never fail the dispatch.
func (e *Engine) Dispatch(ctx context.Context, progress chan<- ProgressUpdate, target models.Target) (*models.DispatchResult, error) {
	if target.Control() {
		return nil, fmt.Errorf("%w: %q is not a dispatchable target", shared.ErrInvalidArgument, target.Kind)
	}
	if e.metadata == nil || e.fetcher == nil || e.converter == nil {
		return nil, fmt.Errorf("%w: engine missing dependencies", shared.ErrInvalidArgument)
	}

	result := &models.DispatchResult{Target: target, Status: models.StatusFailed}

	e.sendProgress(progress, resolvingUpdate(target))
	meta, err := e.metadata.ResolveTarget(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve metadata: %w", err)
	}
	result.Meta = meta
	e.sendProgress(progress, resolvedUpdate(meta))

	folder := filepath.Join(e.downloads.Dir(), shared.SanitizeFilename(fmt.Sprintf("%s - %s", meta.Artist, meta.Album)))
	if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	req := fetch.FetchRequest{
		Source:   target.URL,
		Template: filepath.Join(folder, "{artists} - {title}.{output-ext}"),
		Threads:  e.downloads.Threads,
	}
	if target.Kind == models.KindLiked {
		req.Source = fetch.LikedSource
		req.UserAuth = true
	}

	e.sendProgress(progress, fetchingUpdate(e.plan.Preferred))
	fetched, err := fetch.FetchWithFallback(ctx, e.fetcher, req, e.plan, e.logger)
	if err != nil {
		e.record(progress, models.HistoryEntry{
			Timestamp:   time.Now(),
			Status:      models.StatusFailed,
			Description: fmt.Sprintf("%s - %s", meta.Artist, meta.Album),
			SongCount:   0,
			Format:      "AAC M4A",
		})
		return result, fmt.Errorf("download failed: %w", err)
	}
	result.Format = fetched.Format
	e.sendProgress(progress, fetchedUpdate(fetched))

	var artworkPath string
	if meta.ArtworkURL != "" {
		artworkPath, err = e.saveArtwork(meta.ArtworkURL)
		if err != nil {
			e.logger.Warnf("failed to download album art: %v", err)
			artworkPath = ""
		} else {
			defer os.Remove(artworkPath)
		}
	}

	items := e.convertAll(ctx, progress, folder, meta, artworkPath)
	result.Items = items
	result.Converted = len(items)

	swept, err := sweep.Sweep(folder, e.logger)
	if err != nil {
		e.logger.Warnf("sweep failed for %s: %v", folder, err)
	}
	e.sendProgress(progress, sweepUpdate(swept))

	switch {
	case result.Converted == 0:
		result.Status = models.StatusFailed
	case result.Converted < len(meta.Tracks):
		result.Status = models.StatusPartial
	default:
		result.Status = models.StatusSuccess
	}

	e.record(progress, models.HistoryEntry{
		Timestamp:   time.Now(),
		Status:      result.Status,
		Description: fmt.Sprintf("%s - %s", meta.Artist, meta.Album),
		SongCount:   result.Converted,
		Format:      fmt.Sprintf("AAC M4A (from %s)", fetched.Format),
	})

	if e.catalog != nil && len(items) > 0 {
		if err := e.catalog.AddBatch(items); err != nil {
			e.logger.Warnf("failed to catalog downloads: %v", err)
		}
	}

	return result, nil
}

// record appends a history entry, logging failures instead of surfacing them.
func (e *Engine) record(progress chan<- ProgressUpdate, entry models.HistoryEntry) {
	if e.history == nil {
		return
	}
	if err := e.history.Record(entry); err != nil {
		e.logger.Warnf("failed to record history: %v", err)
		return
	}
	e.sendProgress(progress, recordUpdate(entry))
}

// saveArtwork downloads cover art to a temp file for ffmpeg embedding.
func (e *Engine) saveArtwork(url string) (string, error) {
	data, err := e.fetchImage(url)
	if err != nil {
		return "", err
	}

	path := filepath.Join(os.TempDir(), fmt.Sprintf("album_art_%s.jpg", shared.GenerateID()))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save album art: %w", err)
	}
	return path, nil
}

// convertAll matches intermediate files to track metadata by title and
// converts them on a bounded worker pool. Per-file failures are logged and
// skipped; the returned items are sorted by track number.
func (e *Engine) convertAll(ctx context.Context, progress chan<- ProgressUpdate, folder string, meta *models.TargetMeta, artworkPath string) []models.OutputItem {
	entries, err := os.ReadDir(folder)
	if err != nil {
		e.logger.Warnf("failed to read output directory: %v", err)
		return nil
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".mp3", ".flac", ".wav", ".ogg":
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	padDigits := len(strconv.Itoa(len(meta.Tracks)))

	var matched []convertJob
	for _, track := range meta.Tracks {
		for _, name := range files {
			stem := strings.TrimSuffix(name, filepath.Ext(name))
			if strings.Contains(strings.ToLower(stem), strings.ToLower(track.Title)) {
				matched = append(matched, convertJob{
					SourcePath: filepath.Join(folder, name),
					Track:      track,
				})
				break
			}
		}
	}

	workers := e.downloads.Threads
	if workers <= 0 {
		workers = 4
	}

	jobs := make(chan convertJob, len(matched))
	outputs := make(chan models.OutputItem, len(matched))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go e.convertWorker(ctx, &wg, jobs, outputs, meta, artworkPath, padDigits)
	}

	for i, job := range matched {
		e.sendProgress(progress, convertTrackUpdate(i+1, len(matched), job.Track))
		jobs <- job
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(outputs)
	}()

	var items []models.OutputItem
	for item := range outputs {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].TrackNumber < items[j].TrackNumber })

	e.sendProgress(progress, convertedUpdate(len(items), len(meta.Tracks)))
	return items
}

// convertWorker is a worker goroutine that converts files from the jobs channel.
func (e *Engine) convertWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan convertJob,
	outputs chan<- models.OutputItem,
	meta *models.TargetMeta,
	artworkPath string,
	padDigits int,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		outputPath, err := e.converter.Convert(ctx, fetch.ConvertRequest{
			SourcePath:  job.SourcePath,
			Track:       job.Track,
			ArtworkPath: artworkPath,
			PadDigits:   padDigits,
		})
		if err != nil {
			e.logger.Warnf("conversion failed for %s: %v", filepath.Base(job.SourcePath), err)
			continue
		}

		outputs <- models.OutputItem{
			Artist:      meta.Artist,
			Album:       meta.Album,
			Title:       job.Track.Title,
			TrackNumber: job.Track.Number,
			Path:        outputPath,
		}
	}
}
