package crawler

import (
	"bufio"
	"errors"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const catalogMarker = "/catalog/"

// DefaultSeeds are the root categories crawled when no seed file is given.
var DefaultSeeds = []string{
	"https://alkoteka.com/catalog/slaboalkogolnye-napitki-2",
	"https://alkoteka.com/catalog/krepkiy-alkogol",
	"https://alkoteka.com/catalog/vino",
}

// LoadSeeds reads category URLs from a line-delimited file, one per line.
// Blank lines are ignored. An empty path or a missing file yields DefaultSeeds.
func LoadSeeds(path string, logger *slog.Logger) []string {
	if path == "" {
		logger.Info("using default seed urls", "count", len(DefaultSeeds))
		return DefaultSeeds
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	f, err := os.Open(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Error("seed file not found, using defaults", "path", abs)
		} else {
			logger.Error("seed file unreadable, using defaults", "path", abs, "error", err)
		}
		return DefaultSeeds
	}
	defer f.Close()

	var seeds []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			seeds = append(seeds, line)
		}
	}
	if err := sc.Err(); err != nil {
		logger.Error("seed file read failed, using defaults", "path", abs, "error", err)
		return DefaultSeeds
	}

	logger.Info("loaded seed urls", "count", len(seeds), "path", abs)
	return seeds
}

// SlugFromURL extracts the category slug from a catalog URL: the path after
// "/catalog/", or the last path segment when that marker is absent.
func SlugFromURL(raw string) string {
	path := raw
	if u, err := url.Parse(raw); err == nil {
		path = u.Path
	}

	if i := strings.LastIndex(path, catalogMarker); i >= 0 {
		return strings.Trim(path[i+len(catalogMarker):], "/")
	}

	path = strings.TrimRight(path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
