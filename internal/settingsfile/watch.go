// File: internal/settingsfile/watch.go
package settingsfile

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	// debounceWindow coalesces the burst of events a single editor save produces.
	debounceWindow = 150 * time.Millisecond
	flushInterval  = 50 * time.Millisecond
)

// Watch blocks until ctx is done, calling onChange with the key of every
// document that is created, written, renamed or removed. The directory is
// watched rather than the files so editors that replace files are seen.
func (s *Store) Watch(ctx context.Context, onChange func(key string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create settings watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("failed to watch settings directory %s: %w", s.dir, err)
	}
	s.log.Info("Watching settings directory.", zap.String("dir", s.dir))

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Debug("Settings watcher stopped.")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if key, ok := keyForPath(event.Name); ok {
				pending[key] = time.Now()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("Settings watcher error", zap.Error(err))

		case now := <-ticker.C:
			for key, last := range pending {
				if now.Sub(last) < debounceWindow {
					continue
				}
				delete(pending, key)
				s.log.Debug("Settings document changed.", zap.String("key", key))
				onChange(key)
			}
		}
	}
}

// keyForPath maps a document file name back to its key. Temp files, history
// files and anything else in the directory are ignored.
func keyForPath(path string) (string, bool) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, historyExt) {
		return "", false
	}
	for _, ext := range documentExts {
		if key, found := strings.CutSuffix(base, ext); found && validateKey(key) == nil {
			return key, true
		}
	}
	return "", false
}
