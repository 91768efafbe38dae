package trigger

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
)

// NewestChange returns the most recent modification time found under the
// given paths. Directories are walked recursively. Paths that don't exist are
// skipped since optional triggers (a not-yet-created manifest, for example)
// shouldn't fail the check.
func NewestChange(paths []string) (time.Time, error) {
	var newest time.Time

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if eris.Is(err, os.ErrNotExist) {
				continue
			}
			return newest, eris.Wrapf(err, "failed to check %s", path)
		}

		if !info.IsDir() {
			if info.ModTime().After(newest) {
				newest = info.ModTime()
			}
			continue
		}

		err = filepath.WalkDir(path, func(item string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			info, err := entry.Info()
			if err != nil {
				return err
			}

			if info.ModTime().After(newest) {
				newest = info.ModTime()
			}
			return nil
		})
		if err != nil {
			return newest, eris.Wrapf(err, "failed to walk %s", path)
		}
	}

	return newest, nil
}

// Stale reports whether the trigger paths changed after the given reference
// time. A zero reference (no previous run) is always stale.
func Stale(paths []string, since time.Time) (bool, error) {
	if since.IsZero() {
		return true, nil
	}

	newest, err := NewestChange(paths)
	if err != nil {
		return true, err
	}

	return newest.After(since), nil
}
