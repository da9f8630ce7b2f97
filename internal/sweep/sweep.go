// Package sweep removes intermediate download artifacts from an output
// directory, leaving only final-format audio files.
package sweep

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/podspot/internal/fetch"
)

// Result summarizes one pass over an output directory.
type Result struct {
	Kept    int // final-format files left untouched
	Removed int // intermediate files deleted
	Failed  int // deletions that errored and were skipped
}

// Sweep enumerates the files in dir and deletes every regular file whose
// extension is not the final container. A single failed deletion is logged
// and skipped; it never aborts the sweep. Running the sweep twice on the same
// directory produces no further deletions the second time.
func Sweep(dir string, logger *log.Logger) (Result, error) {
	var result Result

	entries, err := os.ReadDir(dir)
	if err != nil {
		return result, fmt.Errorf("failed to read output directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if strings.EqualFold(filepath.Ext(entry.Name()), fetch.FinalExt) {
			result.Kept++
			continue
		}

		if err := os.Remove(path); err != nil {
			result.Failed++
			logger.Warnf("failed to remove %s: %v", entry.Name(), err)
			continue
		}
		result.Removed++
	}

	return result, nil
}
