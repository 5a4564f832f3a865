package indexer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode"

	badger "github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gnana997/phpindex/pkg/reference"
	"github.com/gnana997/phpindex/pkg/symbol"
)

// completionCacheSize bounds the LRU of completion range-scan results.
// Completion fires on every keystroke against the same few tokens, so even
// a small cache absorbs most scans between writes.
const completionCacheSize = 256

// Key sub-spaces of the persistent index. Keys within a sub-space are
// UTF-8 byte-ordered; enumeration uses [prefix, prefix+0xFF) range scans,
// which badger's prefix iterator provides directly.
const (
	prefixSymbols    = "symbols/"
	prefixByURI      = "by-uri/"
	prefixRefs       = "refs/"
	prefixCompletion = "completion/"
)

// CompletionEntry is the compact record stored per completion token.
type CompletionEntry struct {
	URI       string      `json:"uri"`
	Kind      symbol.Kind `json:"kind"`
	StartLine uint32      `json:"start_line"`
	StartChar uint32      `json:"start_char"`
	EndLine   uint32      `json:"end_line"`
	EndChar   uint32      `json:"end_char"`
	Name      string      `json:"name"`
}

// PersistentIndex is the on-disk keyed store behind the in-memory indices.
// Writes batch per document; failures retry once and then degrade that
// document to memory-only.
//
// Readers get snapshot isolation from badger transactions. The index takes
// no writer lock of its own; concurrent writes are not serialized here.
type PersistentIndex struct {
	db     *badger.DB
	logger *slog.Logger

	// completion caches MatchCompletion scan results; any write that can
	// touch the completion key space purges it.
	completion *lru.Cache[string, []CompletionEntry]

	mu       sync.Mutex
	degraded map[string]bool
}

// OpenPersistentIndex opens (or creates) the store at dir. An empty dir
// opens an in-memory store, used by tests and as the IndexIO degradation
// target.
func OpenPersistentIndex(dir string, logger *slog.Logger) (*PersistentIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open persistent index at %q: %w", dir, err)
	}
	cache, err := lru.New[string, []CompletionEntry](completionCacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create completion cache: %w", err)
	}
	return &PersistentIndex{
		db:         db,
		logger:     logger,
		completion: cache,
		degraded:   make(map[string]bool),
	}, nil
}

// Close releases the store.
func (pi *PersistentIndex) Close() error {
	return pi.db.Close()
}

// Degraded reports whether the document fell back to memory-only.
func (pi *PersistentIndex) Degraded(uri string) bool {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	return pi.degraded[uri]
}

// retryOnce runs op, retrying a single time before marking the document
// degraded.
func (pi *PersistentIndex) retryOnce(uri string, op func() error) error {
	err := op()
	if err == nil {
		return nil
	}
	if err = op(); err == nil {
		return nil
	}
	pi.mu.Lock()
	pi.degraded[uri] = true
	pi.mu.Unlock()
	pi.logger.Warn("persistent index write failed, degrading to memory-only",
		"uri", uri, "error", err)
	return err
}

// PutTable writes a document's symbols: the by-uri list, the per-symbol
// records and the completion entries, replacing whatever the URI stored
// before. One write batch per document.
func (pi *PersistentIndex) PutTable(table *symbol.Table) error {
	uri := table.URI
	// Even a failed batch may have replaced keys before erroring.
	defer pi.completion.Purge()
	return pi.retryOnce(uri, func() error {
		if err := pi.deleteURI(uri); err != nil {
			return err
		}
		wb := pi.db.NewWriteBatch()
		defer wb.Cancel()

		n := 0
		var walkErr error
		table.Traverse(func(s *symbol.Symbol) bool {
			if !indexable(s) {
				return true
			}
			data, err := json.Marshal(s)
			if err != nil {
				walkErr = err
				return false
			}
			key := s.Key()
			if err := wb.Set([]byte(prefixSymbols+key), data); err != nil {
				walkErr = err
				return false
			}
			if err := wb.Set([]byte(fmt.Sprintf("%s%s/%06d", prefixByURI, uri, n)), data); err != nil {
				walkErr = err
				return false
			}
			n++

			entry := CompletionEntry{
				URI:       uri,
				Kind:      s.Kind,
				StartLine: s.Location.Range.Start.Line,
				StartChar: s.Location.Range.Start.Character,
				EndLine:   s.Location.Range.End.Line,
				EndChar:   s.Location.Range.End.Character,
				Name:      s.Name,
			}
			compact, err := json.Marshal(entry)
			if err != nil {
				walkErr = err
				return false
			}
			for _, token := range CompletionTokens(s.Name, s.Kind) {
				ck := prefixCompletion + token + "#" + uri + "#" + key
				if err := wb.Set([]byte(ck), compact); err != nil {
					walkErr = err
					return false
				}
			}
			return true
		})
		if walkErr != nil {
			return walkErr
		}
		return wb.Flush()
	})
}

// PutReferences stores a document's reference table under refs/<uri>.
func (pi *PersistentIndex) PutReferences(table *reference.Table) error {
	data, err := json.Marshal(referenceRecords(table))
	if err != nil {
		return err
	}
	return pi.retryOnce(table.URI, func() error {
		return pi.db.Update(func(txn *badger.Txn) error {
			return txn.Set([]byte(prefixRefs+table.URI), data)
		})
	})
}

// referenceRecords flattens a table for storage.
func referenceRecords(table *reference.Table) []*reference.Reference {
	var out []*reference.Reference
	table.Walk(func(r *reference.Reference) bool {
		out = append(out, r)
		return true
	})
	return out
}

// GetReferences loads the stored reference records for uri.
func (pi *PersistentIndex) GetReferences(uri string) ([]*reference.Reference, error) {
	var out []*reference.Reference
	err := pi.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixRefs + uri))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	return out, err
}

// DeleteURI removes every record a document contributed.
func (pi *PersistentIndex) DeleteURI(uri string) error {
	defer pi.completion.Purge()
	return pi.retryOnce(uri, func() error {
		return pi.deleteURI(uri)
	})
}

func (pi *PersistentIndex) deleteURI(uri string) error {
	// Re-read the by-uri list to discover which symbol and completion keys
	// the document wrote.
	var stored []*symbol.Symbol
	var listKeys [][]byte
	err := pi.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefixByURI + uri + "/")})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var s symbol.Symbol
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &s)
			}); err != nil {
				return err
			}
			stored = append(stored, &s)
			listKeys = append(listKeys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}

	return pi.db.Update(func(txn *badger.Txn) error {
		for _, lk := range listKeys {
			if err := txn.Delete(lk); err != nil {
				return err
			}
		}
		for _, s := range stored {
			key := s.Key()
			if err := txn.Delete([]byte(prefixSymbols + key)); err != nil {
				return err
			}
			for _, token := range CompletionTokens(s.Name, s.Kind) {
				if err := txn.Delete([]byte(prefixCompletion + token + "#" + uri + "#" + key)); err != nil {
					return err
				}
			}
		}
		return txn.Delete([]byte(prefixRefs + uri))
	})
}

// GetSymbol loads the stored record under a symbol key.
func (pi *PersistentIndex) GetSymbol(key string) (*symbol.Symbol, error) {
	var s symbol.Symbol
	err := pi.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixSymbols + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &s)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// URISymbols loads the stored symbol list for a document.
func (pi *PersistentIndex) URISymbols(uri string) ([]*symbol.Symbol, error) {
	var out []*symbol.Symbol
	err := pi.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefixByURI + uri + "/")})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var s symbol.Symbol
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &s)
			}); err != nil {
				return err
			}
			out = append(out, &s)
		}
		return nil
	})
	return out, err
}

// MatchCompletion range-scans completion/<token> and returns the compact
// entries, capped at limit (0 = unlimited). Scan results are served from
// the LRU until the next document write.
func (pi *PersistentIndex) MatchCompletion(token string, limit int) ([]CompletionEntry, error) {
	cacheKey := fmt.Sprintf("%s#%d", token, limit)
	if cached, ok := pi.completion.Get(cacheKey); ok {
		return append([]CompletionEntry(nil), cached...), nil
	}

	var out []CompletionEntry
	err := pi.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefixCompletion + token)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var e CompletionEntry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return err
			}
			out = append(out, e)
			if limit > 0 && len(out) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	pi.completion.Add(cacheKey, append([]CompletionEntry(nil), out...))
	return out, nil
}

// CompletionTokens splits a name on word boundaries (case transitions, `_`,
// `\`, `$`) and returns the tokens to index it under. Tokens are
// case-folded for the case-insensitive kinds and preserved for constants
// and variables.
func CompletionTokens(name string, kind symbol.Kind) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	prevLower := false
	for _, r := range name {
		switch {
		case r == '\\' || r == '_' || r == '$':
			flush()
			prevLower = false
		case unicode.IsUpper(r) && prevLower:
			flush()
			current.WriteRune(r)
			prevLower = false
		default:
			current.WriteRune(r)
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		}
	}
	flush()

	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !kind.CaseSensitive() {
			t = strings.ToLower(t)
		}
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
