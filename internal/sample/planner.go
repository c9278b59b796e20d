// Package sample selects a random subset of raster files for inspection.
package sample

import (
	"io/fs"
	"math"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/xtxerr/cloudconv/internal/errors"
	"github.com/xtxerr/cloudconv/internal/logging"
)

var log = logging.Component("sample")

// RasterExtensions is the allow-list used when walking a directory for
// qaqc candidates.
var RasterExtensions = []string{"tif", "tiff", "asc", "img", "vrt"}

// Planner walks a directory tree and samples a percentage of the
// matching files. Each invocation may select a different subset unless
// Seed is set.
type Planner struct {
	// Extensions is the case-insensitive allow-list. Empty means
	// RasterExtensions.
	Extensions []string

	// Seed pins the shuffle order. Nil uses a time-based source.
	Seed *int64
}

// Plan enumerates all matching regular files under root and returns
// ceil(pct/100 * total) of them, chosen uniformly at random. pct is
// clamped into [0, 100]. Returns ErrNoFilesFound when the walk matches
// nothing at all.
func (p *Planner) Plan(root string, pct float64) ([]string, error) {
	exts := p.Extensions
	if len(exts) == 0 {
		exts = RasterExtensions
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if MatchExtension(path, exts) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "walk %s", root)
	}

	if len(files) == 0 {
		return nil, errors.Wrap(errors.ErrNoFilesFound, "no raster files under %s", root)
	}

	pct = math.Min(math.Max(pct, 0), 100)
	n := int(math.Ceil(pct / 100.0 * float64(len(files))))

	rng := rand.New(rand.NewSource(p.seed()))
	rng.Shuffle(len(files), func(i, j int) {
		files[i], files[j] = files[j], files[i]
	})

	log.Debug("sampling plan", "total", len(files), "pct", pct, "selected", n)
	return files[:n], nil
}

func (p *Planner) seed() int64 {
	if p.Seed != nil {
		return *p.Seed
	}
	return time.Now().UnixNano()
}

// MatchExtension reports whether path's extension is in the
// case-insensitive allow-list.
func MatchExtension(path string, exts []string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
