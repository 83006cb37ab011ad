package indexer

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the project root for program file changes and
// triggers reanalysis after a debounce window.
type Watcher struct {
	indexer      Indexer
	rootDir      string
	watcher      *fsnotify.Watcher
	debounceTime time.Duration
	onReindex    func(*Result)
	stopCh       chan struct{}
	doneCh       chan struct{}
	stopOnce     sync.Once
}

// NewWatcher creates a file watcher over the project root. onReindex is
// called with the fresh result after every debounced reanalysis.
func NewWatcher(ix Indexer, rootDir string, onReindex func(*Result)) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		indexer:      ix,
		rootDir:      rootDir,
		watcher:      watcher,
		debounceTime: 500 * time.Millisecond,
		onReindex:    onReindex,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}

	if err := w.addDirectoriesRecursively(rootDir); err != nil {
		watcher.Close()
		return nil, err
	}

	return w, nil
}

// Start begins watching for file changes.
func (w *Watcher) Start(ctx context.Context) {
	go w.watch(ctx)
}

// Stop stops the file watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		<-w.doneCh // Wait for goroutine to finish
		w.watcher.Close()
	})
}

// watch is the main event loop with debouncing logic.
func (w *Watcher) watch(ctx context.Context) {
	defer close(w.doneCh)

	var debounceTimer *time.Timer
	reindexCh := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.shouldProcessEvent(event) {
				continue
			}

			// New directories must be added to the watch set.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if w.shouldWatchDirectory(event.Name) {
						if err := w.addDirectoriesRecursively(event.Name); err != nil {
							log.Printf("Warning: failed to watch new directory %s: %v", event.Name, err)
						}
					}
				}
			}

			// Reset debounce timer - properly stop and drain
			if debounceTimer != nil {
				if !debounceTimer.Stop() {
					select {
					case <-debounceTimer.C:
					default:
					}
				}
			}
			debounceTimer = time.AfterFunc(w.debounceTime, func() {
				select {
				case reindexCh <- struct{}{}:
				default:
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Watcher error: %v", err)

		case <-reindexCh:
			result, err := w.indexer.Index(ctx)
			if err != nil {
				log.Printf("Reanalysis failed: %v", err)
				continue
			}
			if w.onReindex != nil {
				w.onReindex(result)
			}
		}
	}
}

// shouldProcessEvent filters events to writes, creates, removes and
// renames of program files and directories.
func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename
	if event.Op&relevant == 0 {
		return false
	}

	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}

	// Directory events pass through for watch-set maintenance; a removed
	// path cannot be stat'ed, so treat it as relevant.
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		return w.shouldWatchDirectory(event.Name)
	}

	return strings.HasSuffix(event.Name, ".lp")
}

// shouldWatchDirectory skips hidden directories.
func (w *Watcher) shouldWatchDirectory(path string) bool {
	base := filepath.Base(path)
	return !strings.HasPrefix(base, ".") || path == w.rootDir
}

func (w *Watcher) addDirectoriesRecursively(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if !w.shouldWatchDirectory(path) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}
