package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/gnana997/phpindex/pkg/util"
)

// ScanStats describes one bulk scan.
type ScanStats struct {
	FilesDiscovered int
	FilesIndexed    int
	FilesFailed     int
	SymbolCount     int
	TotalTime       time.Duration
	Cancelled       bool
	Errors          []FileError
}

// FileError pairs a path with its indexing failure.
type FileError struct {
	Path string
	Err  error
}

// ProgressFunc is called as files complete. indexed counts both phases.
type ProgressFunc func(indexed, total int, path string)

// Scan discovers and indexes every matching file under the workspace root.
//
// Two phases: first every file's symbol table registers (so cross-file
// resolution sees the whole workspace), then every file's reference table
// builds against the complete store. Both phases run on a worker pool and
// check ctx between files so interactive requests preempt bulk work.
func (ws *Workspace) Scan(ctx context.Context) (*ScanStats, error) {
	return ws.ScanWithProgress(ctx, nil)
}

// ScanWithProgress is Scan with a progress callback.
func (ws *Workspace) ScanWithProgress(ctx context.Context, progress ProgressFunc) (*ScanStats, error) {
	start := time.Now()
	stats := &ScanStats{}

	files, err := ws.discoverFiles()
	if err != nil {
		return nil, err
	}
	stats.FilesDiscovered = len(files)
	ws.logger.Info("workspace scan starting", "root", ws.root, "files", len(files))

	total := len(files) * 2
	done := 0

	run := func(phase func(string) error) {
		workers := util.GetOptimalPoolSizeWithOverride(ws.config.Workers)
		jobs := make(chan string)
		var wg sync.WaitGroup
		var mu sync.Mutex

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for path := range jobs {
					err := phase(path)
					mu.Lock()
					done++
					if err != nil {
						stats.FilesFailed++
						stats.Errors = append(stats.Errors, FileError{Path: path, Err: err})
					}
					if progress != nil {
						progress(done, total, path)
					}
					mu.Unlock()
				}
			}()
		}

	feed:
		for _, path := range files {
			select {
			case <-ctx.Done():
				stats.Cancelled = true
				break feed
			case jobs <- path:
			}
		}
		close(jobs)
		wg.Wait()
	}

	run(ws.symbolPass)
	if !stats.Cancelled {
		run(ws.referencePass)
	}

	stats.FilesIndexed = len(files) - stats.FilesFailed
	stats.SymbolCount = ws.symbols.Count()
	stats.TotalTime = time.Since(start)

	ws.logger.Info("workspace scan complete",
		"files_indexed", stats.FilesIndexed,
		"files_failed", stats.FilesFailed,
		"keys", stats.SymbolCount,
		"duration_ms", stats.TotalTime.Milliseconds(),
		"cancelled", stats.Cancelled)
	return stats, nil
}

// discoverFiles walks the root applying the include and exclude patterns.
func (ws *Workspace) discoverFiles() ([]string, error) {
	for _, pattern := range append(ws.config.Include, ws.config.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid scan pattern: %s", pattern)
		}
	}

	var files []string
	err := filepath.WalkDir(ws.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		rel, relErr := filepath.Rel(ws.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			for _, pattern := range ws.config.Exclude {
				if ok, _ := doublestar.Match(pattern, rel+"/"); ok {
					return filepath.SkipDir
				}
			}
			return nil
		}
		for _, pattern := range ws.config.Exclude {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				return nil
			}
		}
		for _, pattern := range ws.config.Include {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				files = append(files, path)
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
