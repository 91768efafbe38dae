package trigger

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/mlskit/uniffi-tools/pkg/project"
)

// DefaultDebounce is how long the watcher waits after the last event before
// it triggers a re-run. Editors tend to fire several events per save.
const DefaultDebounce = 500 * time.Millisecond

// Watch monitors the given trigger paths and calls onChange after each burst
// of filesystem events. Directories are watched recursively, directories
// created while watching are picked up. Runs until the context is cancelled;
// onChange errors are logged but don't stop the watcher.
func Watch(ctx context.Context, paths []string, debounce time.Duration, onChange func(context.Context) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return eris.Wrap(err, "failed to create watcher")
	}
	defer watcher.Close()

	for _, path := range paths {
		err = addRecursive(watcher, path)
		if err != nil {
			return err
		}
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Op.Has(fsnotify.Create) {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if err := addRecursive(watcher, event.Name); err != nil {
						log(ctx).Warn().Err(err).Msgf("Failed to watch new directory %s", event.Name)
					}
				}
			}

			log(ctx).Debug().Str("path", event.Name).Msgf("Change detected (%s)", event.Op)
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log(ctx).Warn().Err(err).Msg("Watcher error")

		case <-timer.C:
			err := onChange(ctx)
			if err != nil {
				log(ctx).Error().Err(err).Msg("Re-run failed")
			}
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if eris.Is(err, os.ErrNotExist) {
			// optional trigger, same policy as the staleness check
			return nil
		}
		return eris.Wrapf(err, "failed to check %s", path)
	}

	if !info.IsDir() {
		return eris.Wrapf(watcher.Add(path), "failed to watch %s", path)
	}

	return filepath.WalkDir(path, func(item string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			err = watcher.Add(item)
			if err != nil {
				return eris.Wrapf(err, "failed to watch %s", item)
			}
		}
		return nil
	})
}

func log(ctx context.Context) *zerolog.Logger {
	return project.Log(ctx)
}
