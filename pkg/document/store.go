package document

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/phpindex/pkg/parser"
)

// DefaultDebounce is the reparse window: edits arriving within it are
// coalesced into a single reparse.
const DefaultDebounce = 250 * time.Millisecond

// ChangeHandler is invoked after a debounced reparse completes. The handler
// runs while the document's mutex is held so downstream table swaps observe
// a consistent triple.
type ChangeHandler func(doc *Document)

// StoreConfig configures the document store.
type StoreConfig struct {
	// Debounce is the reparse delay. 0 uses DefaultDebounce.
	Debounce time.Duration

	// MaxClosedTrees bounds the LRU of parse trees retained for documents
	// that were opened and then closed. 0 uses 128.
	MaxClosedTrees int
}

// DefaultStoreConfig returns the default configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{Debounce: DefaultDebounce, MaxClosedTrees: 128}
}

type entry struct {
	mu    sync.Mutex
	doc   *Document
	timer *time.Timer
}

// Store maps URIs to parsed documents. It owns the per-URI mutual exclusion
// that request handlers use to hold a document steady during a query.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry

	parser   *parser.Manager
	config   StoreConfig
	onChange []ChangeHandler
	logger   *slog.Logger

	// closedTrees retains recently parsed trees for closed documents so that
	// re-opening does not force an immediate reparse.
	closedTrees *lru.Cache[string, *Document]
}

// NewStore creates a document store backed by the given parser manager.
func NewStore(pm *parser.Manager, config StoreConfig, logger *slog.Logger) *Store {
	if config.Debounce == 0 {
		config.Debounce = DefaultDebounce
	}
	if config.MaxClosedTrees == 0 {
		config.MaxClosedTrees = 128
	}
	if logger == nil {
		logger = slog.Default()
	}
	cache, err := lru.NewWithEvict(config.MaxClosedTrees, func(_ string, doc *Document) {
		doc.Close()
	})
	if err != nil {
		panic(fmt.Sprintf("failed to create closed-tree cache: %v", err))
	}
	return &Store{
		entries:     make(map[string]*entry),
		parser:      pm,
		config:      config,
		logger:      logger,
		closedTrees: cache,
	}
}

// OnChange registers a handler fired after every debounced reparse.
func (s *Store) OnChange(h ChangeHandler) {
	s.onChange = append(s.onChange, h)
}

// Open parses text and registers the document. An already-open URI is
// replaced. A tree retained from a previous Close is reused when the text
// is unchanged, so re-opening skips the reparse. The parsed document is
// returned with its mutex NOT held.
func (s *Store) Open(uri string, text []byte, version int32) (*Document, error) {
	doc := NewDocument(uri, text, version)

	if tree := s.takeClosedTree(uri, text); tree != nil {
		doc.SetTree(tree)
	} else {
		tree, err := s.parser.Parse(text, parser.LanguagePHP)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", uri, err)
		}
		doc.SetTree(tree)
	}

	s.mu.Lock()
	e, ok := s.entries[uri]
	if !ok {
		e = &entry{}
		s.entries[uri] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if e.doc != nil {
		e.doc.Close()
	}
	e.doc = doc
	e.mu.Unlock()
	return doc, nil
}

// takeClosedTree detaches the retained tree for uri when the text is
// byte-identical, dropping the cache entry either way. The tree is detached
// before the entry is removed so the eviction callback does not close it.
func (s *Store) takeClosedTree(uri string, text []byte) *ts.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached, ok := s.closedTrees.Peek(uri)
	if !ok {
		return nil
	}
	var tree *ts.Tree
	if cached.tree != nil && bytes.Equal(cached.text, text) {
		tree = cached.tree
		cached.tree = nil
	}
	s.closedTrees.Remove(uri)
	return tree
}

// Get returns the document for uri, or nil.
func (s *Store) Get(uri string) *Document {
	s.mu.Lock()
	e, ok := s.entries[uri]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc
}

// Lock acquires the per-URI mutex and returns the document and an unlock
// function. Returns a nil document (and a no-op unlock) for unknown URIs.
func (s *Store) Lock(uri string) (*Document, func()) {
	s.mu.Lock()
	e, ok := s.entries[uri]
	s.mu.Unlock()
	if !ok {
		return nil, func() {}
	}
	e.mu.Lock()
	return e.doc, e.mu.Unlock
}

// Edit applies content changes and schedules a debounced reparse. The change
// handlers fire after the reparse completes.
func (s *Store) Edit(uri string, changes []ContentChange, version int32) error {
	s.mu.Lock()
	e, ok := s.entries[uri]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("edit of unopened document: %s", uri)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return fmt.Errorf("edit of closed document: %s", uri)
	}
	e.doc.ApplyChanges(changes, version)

	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(s.config.Debounce, func() {
		s.reparse(uri)
	})
	return nil
}

// reparse runs after the debounce window. It re-parses the current text and
// notifies change handlers under the entry mutex.
func (s *Store) reparse(uri string) {
	s.mu.Lock()
	e, ok := s.entries[uri]
	s.mu.Unlock()
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return
	}
	tree, err := s.parser.Parse(e.doc.Text(), parser.LanguagePHP)
	if err != nil {
		s.logger.Warn("reparse failed", "uri", uri, "error", err)
		return
	}
	e.doc.SetTree(tree)
	for _, h := range s.onChange {
		h(e.doc)
	}
}

// Flush forces any pending debounced reparse for uri to run now. Used by
// queries that must observe the latest edit, and by tests.
func (s *Store) Flush(uri string) {
	s.mu.Lock()
	e, ok := s.entries[uri]
	s.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Lock()
	pending := e.timer != nil
	if pending {
		e.timer.Stop()
		e.timer = nil
	}
	e.mu.Unlock()
	if pending {
		s.reparse(uri)
	}
}

// Close drops the open document, retaining its tree in the closed-tree LRU.
func (s *Store) Close(uri string) {
	s.mu.Lock()
	e, ok := s.entries[uri]
	if ok {
		delete(s.entries, uri)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	doc := e.doc
	e.doc = nil
	e.mu.Unlock()

	if doc != nil {
		s.mu.Lock()
		s.closedTrees.Add(uri, doc)
		s.mu.Unlock()
	}
}

// Remove drops the document and any retained tree entirely.
func (s *Store) Remove(uri string) {
	s.Close(uri)
	s.mu.Lock()
	s.closedTrees.Remove(uri)
	s.mu.Unlock()
}

// URIs returns the open document URIs.
func (s *Store) URIs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	uris := make([]string, 0, len(s.entries))
	for uri := range s.entries {
		uris = append(uris, uri)
	}
	return uris
}

// CloseAll releases every document and cached tree.
func (s *Store) CloseAll() {
	s.mu.Lock()
	entries := s.entries
	s.entries = make(map[string]*entry)
	s.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
		if e.timer != nil {
			e.timer.Stop()
		}
		if e.doc != nil {
			e.doc.Close()
		}
		e.mu.Unlock()
	}
	s.mu.Lock()
	s.closedTrees.Purge()
	s.mu.Unlock()
}
