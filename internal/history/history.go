// Package history maintains the append-only download log.
//
// Each completed dispatch appends exactly one line:
//
//	[2006-01-02 15:04:05] SUCCESS | Artist - Album | 12 songs | AAC M4A (from flac)
//
// The program is single-instance and single-threaded, so no file locking is
// used. A missing log file is treated as empty history; malformed lines are
// skipped when reading.
package history

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/podspot/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

// Log reads and appends entries of the download log file.
type Log struct {
	path string
}

// NewLog creates a Log over the file at path. The file need not exist yet.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Path returns the on-disk location of the log file.
func (l *Log) Path() string {
	return l.path
}

// Record appends a single entry line, creating the parent directory and file
// as needed.
func (l *Log) Record(entry models.HistoryEntry) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open history log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatEntry(entry) + "\n"); err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}

	return nil
}

// Recent returns the last n entries in on-disk order (oldest of the n first).
// A missing file yields an empty slice, not an error.
func (l *Log) Recent(n int) ([]models.HistoryEntry, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open history log: %w", err)
	}
	defer f.Close()

	var entries []models.HistoryEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		entry, err := ParseEntry(scanner.Text())
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history log: %w", err)
	}

	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

// FormatEntry renders an entry as one log line.
func FormatEntry(entry models.HistoryEntry) string {
	return fmt.Sprintf("[%s] %s | %s | %d songs | %s",
		entry.Timestamp.Format(timeLayout),
		entry.Status,
		entry.Description,
		entry.SongCount,
		entry.Format,
	)
}

// ParseEntry parses one log line back into an entry.
func ParseEntry(line string) (models.HistoryEntry, error) {
	var entry models.HistoryEntry

	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[") {
		return entry, fmt.Errorf("missing timestamp bracket")
	}

	end := strings.Index(line, "]")
	if end < 0 {
		return entry, fmt.Errorf("unterminated timestamp")
	}

	ts, err := time.Parse(timeLayout, line[1:end])
	if err != nil {
		return entry, fmt.Errorf("bad timestamp: %w", err)
	}

	// Descriptions come from provider metadata and may themselves contain
	// " | ", so only the outer fields are positional: status first, then
	// song count and format from the end, description rejoined from the rest.
	parts := strings.Split(strings.TrimSpace(line[end+1:]), " | ")
	if len(parts) < 4 {
		return entry, fmt.Errorf("expected 4 fields, got %d", len(parts))
	}

	count, err := strconv.Atoi(strings.TrimSuffix(parts[len(parts)-2], " songs"))
	if err != nil {
		return entry, fmt.Errorf("bad song count: %w", err)
	}

	entry.Timestamp = ts
	entry.Status = models.Status(parts[0])
	entry.Description = strings.Join(parts[1:len(parts)-2], " | ")
	entry.SongCount = count
	entry.Format = parts[len(parts)-1]
	return entry, nil
}
