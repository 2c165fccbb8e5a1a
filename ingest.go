package imagedup

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// imageExts are the filename extensions IngestDir and the watch command
// treat as images.
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// IsImagePath reports whether the filename extension looks like a
// registrable image.
func IsImagePath(p string) bool {
	return imageExts[strings.ToLower(filepath.Ext(p))]
}

// IngestStats tallies one bulk ingest run.
type IngestStats struct {
	Scanned    int // image files visited
	Registered int // accepted as unique
	Duplicates int // rejected as perceptual duplicates
	Failures   int // undecodable files and storage errors
}

// IngestDir walks dir recursively and registers every image file found,
// carrying opts into each registration. Duplicates and per-file failures
// are tallied rather than aborting the walk; only store-level scan errors
// and context cancellation stop it.
func (d *Detector) IngestDir(ctx context.Context, dir string, opts RegisterOpts) (IngestStats, error) {
	var stats IngestStats

	err := filepath.WalkDir(dir, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() || !IsImagePath(p) {
			return nil
		}
		stats.Scanned++

		data, err := os.ReadFile(p)
		if err != nil {
			d.log.Warn("skipping unreadable file", "path", p, "err", err)
			stats.Failures++
			return nil
		}

		fileOpts := opts
		fileOpts.OriginalName = filepath.Base(p)
		_, err = d.Register(ctx, data, fileOpts)
		switch {
		case err == nil:
			stats.Registered++
		case isDuplicateErr(err):
			stats.Duplicates++
		case errors.Is(err, ErrGridMismatch):
			// The whole index is unusable under this grid; no point
			// continuing the walk.
			return err
		default:
			// Store-level failures affect every remaining file too.
			var storeErr *StorageError
			if errors.As(err, &storeErr) {
				return err
			}
			d.log.Warn("skipping file", "path", p, "err", err)
			stats.Failures++
		}
		return nil
	})

	return stats, err
}

func isDuplicateErr(err error) bool {
	_, ok := AsDuplicate(err)
	return ok
}
