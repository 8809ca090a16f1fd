package ingest

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch calls reload after each burst of changes under root, until ctx is
// done. reload runs on the calling goroutine, so it may mutate state the
// caller owns without locking.
func Watch(ctx context.Context, root string, delay time.Duration, logger *zap.Logger, reload func()) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addDirs(watcher, root, logger); err != nil {
		return err
	}

	trigger := make(chan struct{}, 1)
	debounced := debounce.New(delay)
	fire := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			rel, err := filepath.Rel(root, event.Name)
			if err != nil || Ignored(filepath.ToSlash(rel)) {
				continue
			}
			if event.Has(fsnotify.Create) {
				// New directories need their own watch.
				_ = addDirs(watcher, event.Name, logger)
			}
			logger.Debug("change detected", zap.String("path", rel), zap.String("op", event.Op.String()))
			debounced(fire)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))

		case <-trigger:
			reload()
		}
	}
}

func addDirs(watcher *fsnotify.Watcher, dir string, logger *zap.Logger) error {
	root := dir
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if rel, relErr := filepath.Rel(root, p); relErr == nil && rel != "." && Ignored(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		if err := watcher.Add(p); err != nil {
			logger.Warn("cannot watch directory", zap.String("dir", p), zap.Error(err))
		}
		return nil
	})
}
