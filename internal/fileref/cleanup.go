package fileref

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pdftoolkit/internal/storage"
)

// CleanupTemps removes temp files left behind by downloads and staged
// uploads that are older than maxAge.
func CleanupTemps(maxAge time.Duration) int {
	dir := os.TempDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	now := time.Now()
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !isOurTemp(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) < maxAge {
			continue
		}
		if os.Remove(filepath.Join(dir, e.Name())) == nil {
			removed++
		}
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("cleaned up temp files")
	}
	return removed
}

func isOurTemp(name string) bool {
	for _, p := range []string{httpTempPrefix, outTempPrefix, storage.TempPrefix} {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
