// Package tasks orchestrates the download pipeline with real-time progress reporting.
//
// # Core Operation
//
// The [DispatchEngine] interface defines a single operation:
//
//	[DispatchEngine.Dispatch] : Full target download
//	  - Resolves target metadata from the streaming provider
//	  - Runs the external download tool with format fallback
//	  - Converts and tags every intermediate file to AAC M4A
//	  - Sweeps leftover intermediates from the output directory
//	  - Records the outcome in the history log and library catalog
//
// # Progress Reporting
//
// The operation emits non-blocking [ProgressUpdate] values on a channel read
// by the REPL or TUI layer. Updates carry a [Phase], step counters, a display
// message, and optional phase data. Sends use select with default so a slow
// reader never stalls the pipeline.
//
// # Implementation
//
// [Engine] implements [DispatchEngine] with dependencies on:
//   - [services.MetadataService] : Spotify Web API client
//   - [fetch.Fetcher] / [fetch.Converter] : spotdl and ffmpeg wrappers
//   - [history.Log] : append-only download log
//   - [library.Repository] : optional SQLite catalog of finished files
//
// Conversions run on a bounded worker pool. Provider API rate limiting lives
// inside the metadata service, which caps every request it issues.
package tasks
