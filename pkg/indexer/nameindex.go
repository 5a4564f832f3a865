// Package indexer holds the workspace-wide stores: the symbol store with its
// keyed indices, the member aggregator, the per-document reference store,
// and the badger-backed persistent index.
package indexer

import (
	"sort"
	"strings"

	"github.com/gnana997/phpindex/pkg/symbol"
)

// NameIndex is the in-memory prefix-searchable index mapping name keys to
// symbols. Keys are kept in a sorted slice so prefix queries are binary
// search plus a linear scan; the matching iterator carries its own cursor.
//
// Not safe for concurrent use on its own; SymbolStore guards it with one
// lock taken briefly during add/remove.
type NameIndex struct {
	keys  []string
	byKey map[string][]*symbol.Symbol
}

// NewNameIndex creates an empty index.
func NewNameIndex() *NameIndex {
	return &NameIndex{byKey: make(map[string][]*symbol.Symbol)}
}

// Insert adds one (key, symbol) pair.
func (ix *NameIndex) Insert(key string, s *symbol.Symbol) {
	if key == "" {
		return
	}
	if _, exists := ix.byKey[key]; !exists {
		pos := sort.SearchStrings(ix.keys, key)
		ix.keys = append(ix.keys, "")
		copy(ix.keys[pos+1:], ix.keys[pos:])
		ix.keys[pos] = key
	}
	ix.byKey[key] = append(ix.byKey[key], s)
}

// Remove deletes one (key, symbol) pair; the key disappears once its last
// symbol is removed.
func (ix *NameIndex) Remove(key string, s *symbol.Symbol) {
	syms, exists := ix.byKey[key]
	if !exists {
		return
	}
	for i, candidate := range syms {
		if candidate == s {
			syms = append(syms[:i], syms[i+1:]...)
			break
		}
	}
	if len(syms) == 0 {
		delete(ix.byKey, key)
		pos := sort.SearchStrings(ix.keys, key)
		if pos < len(ix.keys) && ix.keys[pos] == key {
			ix.keys = append(ix.keys[:pos], ix.keys[pos+1:]...)
		}
		return
	}
	ix.byKey[key] = syms
}

// Find returns the symbols indexed under exactly key.
func (ix *NameIndex) Find(key string) []*symbol.Symbol {
	return ix.byKey[key]
}

// Len returns the number of distinct keys.
func (ix *NameIndex) Len() int {
	return len(ix.keys)
}

// MatchIterator walks every key starting with a prefix. The iterator owns
// its cursor; Next returns false when the scan leaves the prefix range.
type MatchIterator struct {
	ix     *NameIndex
	prefix string
	pos    int
}

// Match returns an iterator over keys with the given prefix.
func (ix *NameIndex) Match(prefix string) *MatchIterator {
	return &MatchIterator{
		ix:     ix,
		prefix: prefix,
		pos:    sort.SearchStrings(ix.keys, prefix),
	}
}

// Next advances to the next matching key. Returns the key and its symbols,
// or ("", nil, false) at the end of the range.
func (it *MatchIterator) Next() (string, []*symbol.Symbol, bool) {
	if it.pos >= len(it.ix.keys) {
		return "", nil, false
	}
	key := it.ix.keys[it.pos]
	if !strings.HasPrefix(key, it.prefix) {
		return "", nil, false
	}
	it.pos++
	return key, it.ix.byKey[key], true
}
