package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gnana997/phpindex/pkg/parser"
)

// watchDebounce groups rapid on-disk changes into a single reindex.
const watchDebounce = 200 * time.Millisecond

// Watcher reindexes files as they change on disk. Changes are debounced
// per-path so editors that write in bursts trigger one reindex.
type Watcher struct {
	ws      *Workspace
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer

	stopOnce sync.Once
	stopChan chan struct{}
}

// NewWatcher creates a watcher over the workspace.
func NewWatcher(ws *Workspace, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		ws:             ws,
		watcher:        fsw,
		logger:         logger,
		debounceTimers: make(map[string]*time.Timer),
		stopChan:       make(chan struct{}),
	}, nil
}

// Start watches rootPath and its subdirectories in a background goroutine.
func (w *Watcher) Start(rootPath string) error {
	err := filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				w.logger.Warn("failed to watch directory", "path", path, "error", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", rootPath, err)
	}

	go w.loop()
	w.logger.Info("file watcher started", "root", rootPath)
	return nil
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	// New directories need watching for their future files.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			_ = w.watcher.Add(path)
			return
		}
	}

	if parser.DetectLanguage(path, w.ws.config.Extensions...) == parser.LanguageUnknown {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		w.ws.RemoveDocument(URIFor(path))
	case event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create):
		w.debounce(path)
	}
}

// debounce schedules a reindex for path, resetting any pending timer.
func (w *Watcher) debounce(path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, ok := w.debounceTimers[path]; ok {
		timer.Stop()
	}
	w.debounceTimers[path] = time.AfterFunc(watchDebounce, func() {
		w.debounceMu.Lock()
		delete(w.debounceTimers, path)
		w.debounceMu.Unlock()

		// An editor-held document is authoritative; only reindex files the
		// editor does not have open.
		uri := URIFor(path)
		if w.ws.documents.Get(uri) != nil {
			return
		}
		w.ws.files.Invalidate(path)
		if err := w.ws.IndexFile(path); err != nil {
			w.logger.Warn("reindex after change failed", "path", path, "error", err)
		}
	})
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		w.watcher.Close()
		w.debounceMu.Lock()
		for _, t := range w.debounceTimers {
			t.Stop()
		}
		w.debounceTimers = make(map[string]*time.Timer)
		w.debounceMu.Unlock()
	})
}
