// Package dev holds helpers for running eventsphere in development mode.
package dev

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const defaultDebounce = 100 * time.Millisecond

// DefaultAssetPatterns are the file names that trigger a reload of the page assets.
var DefaultAssetPatterns = []string{"*.wasm", "*.js", "*.html", "*.css"}

// DefaultAssetExcludes are skipped both as files and as directories.
var DefaultAssetExcludes = []string{".git", "node_modules", "*.tmp", "*~"}

// AssetWatcher reports changes to the frontend assets, typically a rebuilt
// main.wasm, so the web server can bump its asset version.
//
// Bursts of events are collapsed: onChange runs once per quiet period with the
// last matching path.
type AssetWatcher struct {
	watcher  *fsnotify.Watcher
	patterns []string
	exclude  []string
	debounce time.Duration
	logger   zerolog.Logger
	onChange func(path string, op fsnotify.Op)

	closeOnce sync.Once
}

// WatcherOption configures an AssetWatcher
type WatcherOption func(*AssetWatcher)

// WithPatterns replaces DefaultAssetPatterns
func WithPatterns(patterns ...string) WatcherOption {
	return func(w *AssetWatcher) {
		w.patterns = patterns
	}
}

// WithExcludes replaces DefaultAssetExcludes
func WithExcludes(exclude ...string) WatcherOption {
	return func(w *AssetWatcher) {
		w.exclude = exclude
	}
}

// WithDebounce sets the quiet period. Zero reports every event.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *AssetWatcher) {
		w.debounce = d
	}
}

// WithWatcherLogger sets the logger
func WithWatcherLogger(logger zerolog.Logger) WatcherOption {
	return func(w *AssetWatcher) {
		w.logger = logger
	}
}

// NewAssetWatcher creates a watcher calling onChange for matching files
func NewAssetWatcher(onChange func(path string, op fsnotify.Op), opts ...WatcherOption) (*AssetWatcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("onChange callback is required")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &AssetWatcher{
		watcher:  watcher,
		patterns: DefaultAssetPatterns,
		exclude:  DefaultAssetExcludes,
		debounce: defaultDebounce,
		logger:   zerolog.Nop(),
		onChange: onChange,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With().Str("component", "asset_watcher").Logger()

	return w, nil
}

// AddDirectory watches dir and every non-excluded directory below it
func (w *AssetWatcher) AddDirectory(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.excluded(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", path, err)
		}
		return nil
	})
}

// Start delivers changes until ctx is done or the watcher is closed
func (w *AssetWatcher) Start(ctx context.Context) error {
	var (
		timer    *time.Timer
		timerC   <-chan time.Time
		lastPath string
		lastOp   fsnotify.Op
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !w.excluded(event.Name) {
					if err := w.AddDirectory(event.Name); err != nil {
						w.logger.Warn().Err(err).Str("path", event.Name).Msg("failed to watch new directory")
					}
					continue
				}
			}

			if event.Has(fsnotify.Chmod) || !w.matches(event.Name) {
				continue
			}

			if w.debounce <= 0 {
				w.notify(event.Name, event.Op)
				continue
			}

			lastPath, lastOp = event.Name, event.Op
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.notify(lastPath, lastOp)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (w *AssetWatcher) notify(path string, op fsnotify.Op) {
	w.logger.Debug().Str("path", path).Str("op", op.String()).Msg("asset changed")
	w.onChange(path, op)
}

func (w *AssetWatcher) excluded(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.exclude {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

func (w *AssetWatcher) matches(path string) bool {
	if w.excluded(path) {
		return false
	}
	base := filepath.Base(path)
	for _, pattern := range w.patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// Close stops the watcher. It is safe to call more than once.
func (w *AssetWatcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.watcher.Close()
	})
	return err
}
