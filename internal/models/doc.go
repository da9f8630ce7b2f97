// Package models defines the domain entities shared across the PodSpot download pipeline.
//
// The package contains two categories of types:
//
// 1. Pipeline values: inputs and outputs of a single dispatch
//   - [Target] : a classified user input (album, playlist, track, or liked songs)
//   - [TargetMeta] : resolved Spotify metadata driving folder names and tagging
//   - [TrackMeta] : per-track metadata (number, title, artists, album)
//   - [DispatchResult] : the outcome of one complete dispatch
//
// 2. Persistent records: rows written after a dispatch completes
//   - [OutputItem] : a playable file on disk, cataloged in the library database
//   - [HistoryEntry] : one line of the append-only download log
//
// Pipeline values are created per REPL iteration and discarded after dispatch.
// Persistent records are append-only and never mutated by the program.
package models
