// package formatter provides functions to export history and library data to
// various formats (CSV, plain text) and to fetch cover artwork.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/desertthunder/podspot/internal/library"
	"github.com/desertthunder/podspot/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

// HistoryToCSV converts history entries to CSV with columns: Timestamp, Status, Description, Songs, Format
func HistoryToCSV(entries []models.HistoryEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Timestamp", "Status", "Description", "Songs", "Format"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, entry := range entries {
		record := []string{
			entry.Timestamp.Format(timeLayout),
			string(entry.Status),
			entry.Description,
			strconv.Itoa(entry.SongCount),
			entry.Format,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// HistoryToText converts history entries to a numbered plain text listing.
func HistoryToText(entries []models.HistoryEntry) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Download history: %d entries\n\n", len(entries)))
	for i, entry := range entries {
		buf.WriteString(fmt.Sprintf("%d. [%s] %s | %s | %d songs | %s\n",
			i+1, entry.Timestamp.Format(timeLayout), entry.Status,
			entry.Description, entry.SongCount, entry.Format))
	}

	return buf.Bytes()
}

// LibraryToCSV converts catalog items to CSV with columns: Artist, Album, Track, Title, Path, Downloaded
func LibraryToCSV(items []library.Item) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Artist", "Album", "Track", "Title", "Path", "Downloaded"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range items {
		record := []string{
			item.Artist,
			item.Album,
			strconv.Itoa(item.TrackNumber),
			item.Title,
			item.Path,
			item.DownloadedAt.Format(timeLayout),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// LibraryToText converts catalog items to plain text grouped read order.
func LibraryToText(items []library.Item) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Library: %d tracks\n\n", len(items)))
	for _, item := range items {
		buf.WriteString(fmt.Sprintf("%s - %s / %02d %s\n", item.Artist, item.Album, item.TrackNumber, item.Title))
	}

	return buf.Bytes()
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// WriteHistoryExport exports history entries to a CSV file.
//
// Defaults to history_export.csv as the filename.
func WriteHistoryExport(entries []models.HistoryEntry, filepath string) (string, error) {
	if filepath == "" {
		filepath = "history_export.csv"
	}

	csvData, err := HistoryToCSV(entries)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}

	if err := os.WriteFile(filepath, csvData, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}

	return filepath, nil
}

// WriteLibraryExport exports catalog items to a CSV file.
//
// Defaults to library_export.csv as the filename.
func WriteLibraryExport(items []library.Item, filepath string) (string, error) {
	if filepath == "" {
		filepath = "library_export.csv"
	}

	csvData, err := LibraryToCSV(items)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}

	if err := os.WriteFile(filepath, csvData, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}

	return filepath, nil
}
