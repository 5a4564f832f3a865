package indexer

import (
	"sync"

	"github.com/gnana997/phpindex/pkg/reference"
	"github.com/gnana997/phpindex/pkg/symbol"
)

// ReferenceStore holds the per-document reference tables. Closing a URI
// freezes its table: the table stays queryable for workspace features but
// no longer swaps on reparse, until Remove drops it.
type ReferenceStore struct {
	mu      sync.RWMutex
	entries map[string]*refEntry
}

type refEntry struct {
	table  *reference.Table
	frozen bool
}

// NewReferenceStore creates an empty store.
func NewReferenceStore() *ReferenceStore {
	return &ReferenceStore{entries: make(map[string]*refEntry)}
}

// Add registers (or swaps) a document's reference table. A frozen URI
// ignores the swap.
func (rs *ReferenceStore) Add(table *reference.Table) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if e, ok := rs.entries[table.URI]; ok && e.frozen {
		return
	}
	rs.entries[table.URI] = &refEntry{table: table}
}

// Get returns the table for uri, or nil.
func (rs *ReferenceStore) Get(uri string) *reference.Table {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	if e, ok := rs.entries[uri]; ok {
		return e.table
	}
	return nil
}

// Close freezes the table for uri.
func (rs *ReferenceStore) Close(uri string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if e, ok := rs.entries[uri]; ok {
		e.frozen = true
	}
}

// Remove drops the table entirely.
func (rs *ReferenceStore) Remove(uri string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	delete(rs.entries, uri)
}

// ReferenceAtPosition returns the innermost reference at pos in uri.
func (rs *ReferenceStore) ReferenceAtPosition(uri string, pos symbol.Position) *reference.Reference {
	if t := rs.Get(uri); t != nil {
		return t.ReferenceAtPosition(pos)
	}
	return nil
}

// ScopeAtPosition returns the innermost scope at pos in uri.
func (rs *ReferenceStore) ScopeAtPosition(uri string, pos symbol.Position) *reference.Scope {
	if t := rs.Get(uri); t != nil {
		return t.ScopeAtPosition(pos)
	}
	return nil
}

// References scans every table for references matching pred.
func (rs *ReferenceStore) References(pred func(uri string, r *reference.Reference) bool) []*reference.Reference {
	rs.mu.RLock()
	tables := make(map[string]*reference.Table, len(rs.entries))
	for uri, e := range rs.entries {
		tables[uri] = e.table
	}
	rs.mu.RUnlock()

	var out []*reference.Reference
	for uri, t := range tables {
		out = append(out, t.Filter(func(r *reference.Reference) bool {
			return pred(uri, r)
		})...)
	}
	return out
}

// URIs returns the registered URIs.
func (rs *ReferenceStore) URIs() []string {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	uris := make([]string, 0, len(rs.entries))
	for uri := range rs.entries {
		uris = append(uris, uri)
	}
	return uris
}
