// Package workspace orchestrates the indexing pipeline: it owns the parser
// manager, document store, symbol store, reference store and persistent
// index, and drives them on initialise, open, edit, close and bulk scan.
//
// Observable ordering per document: parse, then symbol-table swap, then
// reference-table swap. The document store's per-URI mutex guards the
// triple; cross-document queries read the symbol store without locking
// individual tables.
package workspace

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gnana997/phpindex/pkg/document"
	"github.com/gnana997/phpindex/pkg/extractor"
	"github.com/gnana997/phpindex/pkg/indexer"
	"github.com/gnana997/phpindex/pkg/parser"
	"github.com/gnana997/phpindex/pkg/util"
	"github.com/gnana997/phpindex/stubs"
)

// Config configures a workspace.
type Config struct {
	// Extensions recognized as source files. Empty uses the parser default.
	Extensions []string

	// Include / Exclude are doublestar glob patterns for the bulk scan.
	Include []string
	Exclude []string

	// IndexDir overrides the persistent index location. Empty derives
	// <home>/.phpindex/<md5(rootPath)>; "memory" keeps the index in RAM.
	IndexDir string

	// Debounce is the reparse window for edits. 0 uses the store default.
	Debounce time.Duration

	// Workers is the bulk-indexing worker count. 0 auto-sizes to the
	// parser pool.
	Workers int

	// SkipBuiltin disables installing the shipped language stubs (tests).
	SkipBuiltin bool
}

// DefaultConfig returns the recommended configuration.
func DefaultConfig() Config {
	return Config{
		Include: []string{"**/*.php"},
		Exclude: []string{
			"vendor/**/tests/**",
			"node_modules/**",
			".git/**",
			"cache/**",
		},
	}
}

// Workspace is the orchestrator. All state is owned here and passed down
// explicitly; there are no package-level stores.
type Workspace struct {
	root   string
	config Config
	logger *slog.Logger

	parsers   *parser.Manager
	documents *document.Store
	symbols   *indexer.SymbolStore
	refs      *indexer.ReferenceStore
	persist   *indexer.PersistentIndex
	files     *util.FileCache

	symReader *extractor.SymbolReader
	refReader *extractor.ReferenceReader

	watcher *Watcher
}

// New creates a workspace. Call Initialise before use and Shutdown when
// done.
func New(config Config, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.Default()
	}
	if len(config.Include) == 0 {
		config.Include = DefaultConfig().Include
	}
	pm := parser.NewManager(logger)
	ws := &Workspace{
		config:    config,
		logger:    logger,
		parsers:   pm,
		documents: document.NewStore(pm, document.StoreConfig{Debounce: config.Debounce}, logger),
		symbols:   indexer.NewSymbolStore(logger),
		refs:      indexer.NewReferenceStore(),
		files:     util.NewFileCache(util.DefaultFileCacheConfig(), logger),
		symReader: extractor.NewSymbolReader(logger),
		refReader: extractor.NewReferenceReader(logger),
	}
	ws.documents.OnChange(ws.onParsedChange)
	return ws
}

// Symbols exposes the symbol store for query layers.
func (ws *Workspace) Symbols() *indexer.SymbolStore { return ws.symbols }

// References exposes the reference store for query layers.
func (ws *Workspace) References() *indexer.ReferenceStore { return ws.refs }

// Documents exposes the parsed-document store.
func (ws *Workspace) Documents() *document.Store { return ws.documents }

// Persistent exposes the persistent index, nil before Initialise.
func (ws *Workspace) Persistent() *indexer.PersistentIndex { return ws.persist }

// Root returns the workspace root path.
func (ws *Workspace) Root() string { return ws.root }

// indexDir derives the per-workspace persistent index directory.
func (ws *Workspace) indexDir(rootPath string) (string, error) {
	switch ws.config.IndexDir {
	case "memory":
		return "", nil
	case "":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		sum := md5.Sum([]byte(rootPath))
		return filepath.Join(home, ".phpindex", hex.EncodeToString(sum[:])), nil
	default:
		return ws.config.IndexDir, nil
	}
}

// Initialise opens the persistent index for rootPath, installs the built-in
// symbol table and scans the workspace. Interactive requests preempt bulk
// work: the scan checks ctx between files.
func (ws *Workspace) Initialise(ctx context.Context, rootPath string) (*ScanStats, error) {
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, err
	}
	ws.root = abs

	dir, err := ws.indexDir(abs)
	if err != nil {
		return nil, err
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
	}
	ws.persist, err = indexer.OpenPersistentIndex(dir, ws.logger)
	if err != nil {
		return nil, err
	}

	if !ws.config.SkipBuiltin {
		builtin, err := stubs.Load()
		if err != nil {
			return nil, fmt.Errorf("load built-in stubs: %w", err)
		}
		ws.symbols.InstallBuiltin(builtin)
	}

	ws.logger.Info("initialising workspace", "root", abs, "index_dir", dir)
	return ws.Scan(ctx)
}

// Watch starts the file watcher over the workspace root.
func (ws *Workspace) Watch() error {
	w, err := NewWatcher(ws, ws.logger)
	if err != nil {
		return err
	}
	ws.watcher = w
	return w.Start(ws.root)
}

// URIFor converts a workspace file path into its document URI.
func URIFor(path string) string {
	return "file://" + filepath.ToSlash(path)
}

// PathFor converts a document URI back into a file path.
func PathFor(uri string) string {
	return filepath.FromSlash(strings.TrimPrefix(uri, "file://"))
}

// IndexFile indexes one on-disk file: parse, symbol table, persistent
// batch, reference table. Used by the scanner and the watcher.
func (ws *Workspace) IndexFile(path string) error {
	if parser.DetectLanguage(path, ws.config.Extensions...) == parser.LanguageUnknown {
		return fmt.Errorf("unsupported file: %s", path)
	}
	src, err := ws.files.ReadFile(path)
	if err != nil {
		return err
	}
	uri := URIFor(path)

	tree, err := ws.parsers.Parse(src, parser.LanguagePHP)
	if err != nil {
		return err
	}
	defer tree.Close()

	table := ws.symReader.Read(uri, src, tree)
	ws.symbols.Add(table)
	if ws.persist != nil {
		_ = ws.persist.PutTable(table) // degraded-to-memory on repeat failure
	}

	refTable, err := ws.refReader.Read(uri, src, tree, table, ws.symbols)
	if err != nil {
		// Torn reference tables are discarded; the symbol table stands.
		ws.logger.Warn("reference pass failed", "uri", uri, "error", err)
		ws.refs.Remove(uri)
		return nil
	}
	ws.refs.Add(refTable)
	if ws.persist != nil {
		_ = ws.persist.PutReferences(refTable)
	}
	return nil
}

// referencePass rebuilds just the reference table for an on-disk file,
// using the already-registered symbol table. Phase two of the bulk scan.
func (ws *Workspace) referencePass(path string) error {
	uri := URIFor(path)
	table := ws.symbols.Get(uri)
	if table == nil {
		return fmt.Errorf("no symbol table for %s", uri)
	}
	src, err := ws.files.ReadFile(path)
	if err != nil {
		return err
	}
	tree, err := ws.parsers.Parse(src, parser.LanguagePHP)
	if err != nil {
		return err
	}
	defer tree.Close()

	refTable, err := ws.refReader.Read(uri, src, tree, table, ws.symbols)
	if err != nil {
		ws.refs.Remove(uri)
		return err
	}
	ws.refs.Add(refTable)
	if ws.persist != nil {
		_ = ws.persist.PutReferences(refTable)
	}
	return nil
}

// symbolPass parses an on-disk file and registers its symbol table only.
// Phase one of the bulk scan.
func (ws *Workspace) symbolPass(path string) error {
	src, err := ws.files.ReadFile(path)
	if err != nil {
		return err
	}
	uri := URIFor(path)
	tree, err := ws.parsers.Parse(src, parser.LanguagePHP)
	if err != nil {
		return err
	}
	defer tree.Close()

	table := ws.symReader.Read(uri, src, tree)
	ws.symbols.Add(table)
	if ws.persist != nil {
		_ = ws.persist.PutTable(table)
	}
	return nil
}

// OpenDocument registers an editor document: parse, symbol table, reference
// table, all before returning.
func (ws *Workspace) OpenDocument(uri string, text []byte, version int32) error {
	doc, err := ws.documents.Open(uri, text, version)
	if err != nil {
		return err
	}
	// Re-opening a previously closed document lifts the freeze.
	ws.refs.Remove(uri)
	ws.reindexDocument(doc)
	return nil
}

// EditDocument applies content changes; the debounced reparse triggers the
// table swaps via the change event.
func (ws *Workspace) EditDocument(uri string, changes []document.ContentChange, version int32) error {
	return ws.documents.Edit(uri, changes, version)
}

// CloseDocument drops the live document. The symbol table persists so the
// workspace view stays complete; the reference table is frozen.
func (ws *Workspace) CloseDocument(uri string) {
	ws.documents.Close(uri)
	ws.refs.Close(uri)
}

// RemoveDocument removes every trace of a URI (file deleted).
func (ws *Workspace) RemoveDocument(uri string) {
	ws.documents.Remove(uri)
	ws.symbols.Remove(uri)
	ws.refs.Remove(uri)
	ws.files.Invalidate(PathFor(uri))
	if ws.persist != nil {
		_ = ws.persist.DeleteURI(uri)
	}
}

// onParsedChange runs after a debounced reparse, while the document's mutex
// is held: swap the symbol table, re-run the reference reader, swap the
// reference table.
func (ws *Workspace) onParsedChange(doc *document.Document) {
	ws.reindexDocument(doc)
}

func (ws *Workspace) reindexDocument(doc *document.Document) {
	tree := doc.Tree()
	if tree == nil {
		return
	}
	table := ws.symReader.Read(doc.URI, doc.Text(), tree)
	ws.symbols.Add(table)
	if ws.persist != nil {
		_ = ws.persist.PutTable(table)
	}

	refTable, err := ws.refReader.Read(doc.URI, doc.Text(), tree, table, ws.symbols)
	if err != nil {
		ws.logger.Warn("reference pass failed", "uri", doc.URI, "error", err)
		ws.refs.Remove(doc.URI)
		return
	}
	ws.refs.Add(refTable)
	if ws.persist != nil {
		_ = ws.persist.PutReferences(refTable)
	}
}

// Shutdown tears down every owned resource.
func (ws *Workspace) Shutdown() {
	if ws.watcher != nil {
		ws.watcher.Stop()
	}
	ws.documents.CloseAll()
	if ws.persist != nil {
		if err := ws.persist.Close(); err != nil {
			ws.logger.Warn("closing persistent index", "error", err)
		}
	}
	if err := ws.files.Close(); err != nil {
		ws.logger.Warn("closing file cache", "error", err)
	}
	ws.parsers.Close()
}
