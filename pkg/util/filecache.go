// FileCache provides read access to workspace source files using
// memory-mapped files.
//
// Bulk indexing reads every file in a workspace once; mapping the files
// avoids copying whole buffers through the heap and lets the OS page in only
// what the parser touches. If mmap fails for a file (special filesystems,
// zero-length files), the cache falls back to os.ReadFile transparently.
package util

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// FileCacheConfig controls FileCache behavior.
type FileCacheConfig struct {
	// MaxFiles is the maximum number of files to keep mapped.
	// 0 uses the default of 10000. When the limit is reached Get evicts
	// nothing; it reads through without caching.
	MaxFiles int
}

// DefaultFileCacheConfig returns the default configuration.
func DefaultFileCacheConfig() FileCacheConfig {
	return FileCacheConfig{MaxFiles: 10000}
}

// FileCacheStats reports cache effectiveness.
type FileCacheStats struct {
	CachedFiles  int
	Hits         int64
	Misses       int64
	MmapFailures int64
}

// MappedFile is one cached file. Data aliases the mapping; callers must not
// retain slices of it past Close of the cache.
type MappedFile struct {
	Path string
	Data []byte

	mapping mmap.MMap // nil when the fallback read path was used
}

// FileCache maps workspace files on first access and keeps them mapped until
// Close. Safe for concurrent use.
type FileCache struct {
	mu     sync.RWMutex
	files  map[string]*MappedFile
	config FileCacheConfig
	logger *slog.Logger

	hits         int64
	misses       int64
	mmapFailures int64
}

// NewFileCache creates a FileCache. Close must be called to unmap files.
func NewFileCache(config FileCacheConfig, logger *slog.Logger) *FileCache {
	if config.MaxFiles == 0 {
		config.MaxFiles = 10000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileCache{
		files:  make(map[string]*MappedFile),
		config: config,
		logger: logger,
	}
}

// Get returns the mapped file, loading it on first access.
func (fc *FileCache) Get(filePath string) (*MappedFile, error) {
	fc.mu.RLock()
	mf, ok := fc.files[filePath]
	fc.mu.RUnlock()
	if ok {
		fc.mu.Lock()
		fc.hits++
		fc.mu.Unlock()
		return mf, nil
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()

	// Double-check under the write lock.
	if mf, ok = fc.files[filePath]; ok {
		fc.hits++
		return mf, nil
	}
	fc.misses++

	mf, err := fc.load(filePath)
	if err != nil {
		return nil, err
	}
	if len(fc.files) < fc.config.MaxFiles {
		fc.files[filePath] = mf
	}
	return mf, nil
}

// ReadFile returns the file contents, mapped when possible.
func (fc *FileCache) ReadFile(filePath string) ([]byte, error) {
	mf, err := fc.Get(filePath)
	if err != nil {
		return nil, err
	}
	return mf.Data, nil
}

// FetchCode slices [startByte, endByte) out of the file. O(1) over the
// mapping.
func (fc *FileCache) FetchCode(filePath string, startByte, endByte uint32) (string, error) {
	mf, err := fc.Get(filePath)
	if err != nil {
		return "", err
	}
	if endByte <= startByte || int(endByte) > len(mf.Data) {
		return "", fmt.Errorf("invalid byte range [%d, %d) for %s (%d bytes)",
			startByte, endByte, filePath, len(mf.Data))
	}
	return string(mf.Data[startByte:endByte]), nil
}

// Invalidate drops a file from the cache (after an on-disk change).
func (fc *FileCache) Invalidate(filePath string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if mf, ok := fc.files[filePath]; ok {
		if mf.mapping != nil {
			_ = mf.mapping.Unmap()
		}
		delete(fc.files, filePath)
	}
}

// Size returns the number of currently cached files.
func (fc *FileCache) Size() int {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return len(fc.files)
}

// Stats returns current cache metrics.
func (fc *FileCache) Stats() FileCacheStats {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return FileCacheStats{
		CachedFiles:  len(fc.files),
		Hits:         fc.hits,
		Misses:       fc.misses,
		MmapFailures: fc.mmapFailures,
	}
}

// Close unmaps all files and releases resources.
func (fc *FileCache) Close() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	var firstErr error
	for path, mf := range fc.files {
		if mf.mapping == nil {
			continue
		}
		if err := mf.mapping.Unmap(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("unmap %s: %w", path, err)
		}
	}
	fc.files = make(map[string]*MappedFile)
	return firstErr
}

// load maps the file, falling back to a plain read when mmap fails.
func (fc *FileCache) load(filePath string) (*MappedFile, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		// mmap of an empty file fails on most platforms.
		return &MappedFile{Path: filePath, Data: []byte{}}, nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		fc.mmapFailures++
		fc.logger.Debug("mmap failed, falling back to read", "path", filePath, "error", err)
		data, rerr := os.ReadFile(filePath)
		if rerr != nil {
			return nil, fmt.Errorf("read %s after mmap failure: %w", filePath, rerr)
		}
		return &MappedFile{Path: filePath, Data: data}, nil
	}
	return &MappedFile{Path: filePath, Data: m, mapping: m}, nil
}
