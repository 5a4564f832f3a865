package indexer

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/gnana997/phpindex/pkg/reference"
	"github.com/gnana997/phpindex/pkg/symbol"
	"github.com/gnana997/phpindex/pkg/typestring"
)

// SymbolStore is the workspace symbol store: per-URI symbol tables merged
// into keyed indices answering exact, prefix and kind-filtered queries.
//
// Add and Remove are atomic per URI: removal deletes every index entry the
// table contributed. A built-in symbol table (language stubs) is installed
// once and participates in every query but is never removed by URI.
//
// Thread Safety: one RWMutex guards the tables map and the name index,
// taken briefly during add/remove; queries take the read lock.
type SymbolStore struct {
	mu            sync.RWMutex
	tables        map[string]*symbol.Table
	index         *NameIndex
	contributions map[string][]indexEntry
	builtin       []*symbol.Symbol
	logger        *slog.Logger
}

type indexEntry struct {
	key string
	sym *symbol.Symbol
}

// NewSymbolStore creates an empty store.
func NewSymbolStore(logger *slog.Logger) *SymbolStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SymbolStore{
		tables:        make(map[string]*symbol.Table),
		index:         NewNameIndex(),
		contributions: make(map[string][]indexEntry),
		logger:        logger,
	}
}

// indexable reports whether a symbol may appear in workspace search.
// Parameters, file roots, use aliases and located variables never leak;
// built-in globals carry no location and remain searchable. Magic members
// are indexed: a @property is as real to completion as a declared one.
func indexable(s *symbol.Symbol) bool {
	switch s.Kind {
	case symbol.KindFile, symbol.KindParameter:
		return false
	case symbol.KindVariable:
		return s.Location.IsZero()
	}
	if s.Modifiers.Has(symbol.ModifierUse) {
		return false
	}
	return true
}

// indexKeys returns the key(s) a symbol is filed under. Namespaces
// contribute one key per segment so partial namespaces prefix-match.
func indexKeys(s *symbol.Symbol) []string {
	if s.Kind == symbol.KindNamespace {
		var keys []string
		for _, seg := range strings.Split(s.Name, symbol.Separator) {
			if seg != "" {
				keys = append(keys, strings.ToLower(seg))
			}
		}
		if full := symbol.KeyFor(s.Name, s.Kind); full != "" {
			keys = append(keys, full)
		}
		return keys
	}
	return []string{s.Key()}
}

// InstallBuiltin merges the shipped language-stub table into the indices.
func (st *SymbolStore) InstallBuiltin(table *symbol.Table) {
	st.mu.Lock()
	defer st.mu.Unlock()
	count := 0
	table.Traverse(func(s *symbol.Symbol) bool {
		if indexable(s) {
			for _, key := range indexKeys(s) {
				st.index.Insert(key, s)
			}
			st.builtin = append(st.builtin, s)
			count++
		}
		return true
	})
	st.logger.Info("installed built-in symbol table", "symbols", count)
}

// Add registers a document's table, replacing any prior table for the URI.
func (st *SymbolStore) Add(table *symbol.Table) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.removeLocked(table.URI)
	st.tables[table.URI] = table

	var entries []indexEntry
	table.Traverse(func(s *symbol.Symbol) bool {
		if indexable(s) {
			for _, key := range indexKeys(s) {
				st.index.Insert(key, s)
				entries = append(entries, indexEntry{key: key, sym: s})
			}
		}
		return true
	})
	st.contributions[table.URI] = entries
}

// Remove drops a document's table and every index entry it contributed.
func (st *SymbolStore) Remove(uri string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.removeLocked(uri)
}

func (st *SymbolStore) removeLocked(uri string) {
	for _, e := range st.contributions[uri] {
		st.index.Remove(e.key, e.sym)
	}
	delete(st.contributions, uri)
	delete(st.tables, uri)
}

// Get returns the table for uri, or nil.
func (st *SymbolStore) Get(uri string) *symbol.Table {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.tables[uri]
}

// URIs returns every registered document URI.
func (st *SymbolStore) URIs() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	uris := make([]string, 0, len(st.tables))
	for uri := range st.tables {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// Count returns the number of distinct index keys.
func (st *SymbolStore) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.index.Len()
}

// Find returns symbols whose key exactly matches text, filtered by pred.
// Case folding follows the kind rule: classes, interfaces, traits, methods
// and functions compare case-insensitively; constants and variables do not.
func (st *SymbolStore) Find(text string, pred func(*symbol.Symbol) bool) []*symbol.Symbol {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var out []*symbol.Symbol
	seen := make(map[*symbol.Symbol]bool)
	for _, key := range []string{text, strings.ToLower(text)} {
		for _, s := range st.index.Find(key) {
			if seen[s] {
				continue
			}
			if symbol.KeyFor(text, s.Kind) != s.Key() && s.Kind != symbol.KindNamespace {
				continue
			}
			if pred != nil && !pred(s) {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// rankedMatch pairs a symbol with its ranking data.
type rankedMatch struct {
	sym  *symbol.Symbol
	rank int
}

// Match returns symbols whose key starts with text, ranked: exact match,
// then prefix match ending at a word boundary, then other prefix matches;
// ties broken by shorter symbol name, then lexicographic order.
func (st *SymbolStore) Match(text string, pred func(*symbol.Symbol) bool) []*symbol.Symbol {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var matches []rankedMatch
	seen := make(map[*symbol.Symbol]bool)

	prefixes := []string{text}
	if lower := strings.ToLower(text); lower != text {
		prefixes = append(prefixes, lower)
	}
	for _, prefix := range prefixes {
		it := st.index.Match(prefix)
		for {
			key, syms, ok := it.Next()
			if !ok {
				break
			}
			rank := matchRank(key, prefix)
			for _, s := range syms {
				if seen[s] {
					continue
				}
				if pred != nil && !pred(s) {
					continue
				}
				seen[s] = true
				matches = append(matches, rankedMatch{sym: s, rank: rank})
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].rank != matches[j].rank {
			return matches[i].rank < matches[j].rank
		}
		ni, nj := matches[i].sym.Name, matches[j].sym.Name
		if len(ni) != len(nj) {
			return len(ni) < len(nj)
		}
		return ni < nj
	})

	out := make([]*symbol.Symbol, len(matches))
	for i, m := range matches {
		out[i] = m.sym
	}
	return out
}

// matchRank scores how a key matched the query prefix.
func matchRank(key, prefix string) int {
	if key == prefix {
		return 0
	}
	// Word boundary right after the prefix: separator, underscore or $.
	// Case transitions are not detected.
	rest := key[len(prefix):]
	switch {
	case rest == "":
		return 0
	case rest[0] == '\\' || rest[0] == '_' || rest[0] == '$':
		return 1
	default:
		return 2
	}
}

// EachKind visits every symbol of the given kind across all tables and the
// built-in set. Returning false stops the iteration.
func (st *SymbolStore) EachKind(kind symbol.Kind, visit func(*symbol.Symbol) bool) {
	st.mu.RLock()
	tables := make([]*symbol.Table, 0, len(st.tables))
	for _, t := range st.tables {
		tables = append(tables, t)
	}
	builtin := st.builtin
	st.mu.RUnlock()

	for _, s := range builtin {
		if s.Kind == kind && !visit(s) {
			return
		}
	}
	for _, t := range tables {
		stop := false
		t.Traverse(func(s *symbol.Symbol) bool {
			if s.Kind == kind && !visit(s) {
				stop = true
				return false
			}
			return true
		})
		if stop {
			return
		}
	}
}

// GlobalVariables returns the known global-variable symbols, built-ins
// included.
func (st *SymbolStore) GlobalVariables() []*symbol.Symbol {
	var out []*symbol.Symbol
	st.EachKind(symbol.KindGlobalVariable, func(s *symbol.Symbol) bool {
		out = append(out, s)
		return true
	})
	st.EachKind(symbol.KindVariable, func(s *symbol.Symbol) bool {
		// Built-in superglobals are location-less variables.
		if s.Location.IsZero() {
			out = append(out, s)
		}
		return true
	})
	return out
}

// LookupByName implements extractor.SymbolLookup: exact lookup filtered to
// one kind, with constructors answering method lookups.
func (st *SymbolStore) LookupByName(name string, kind symbol.Kind) []*symbol.Symbol {
	return st.Find(name, func(s *symbol.Symbol) bool {
		if s.Kind == kind {
			return true
		}
		return kind == symbol.KindMethod && s.Kind == symbol.KindConstructor
	})
}

// MemberSymbols implements extractor.SymbolLookup via the aggregator with
// the override strategy.
func (st *SymbolStore) MemberSymbols(classNames []string, memberName string, kind symbol.Kind) []*symbol.Symbol {
	agg := NewMemberAggregator(st)
	return agg.MembersNamed(classNames, memberName, kind, StrategyOverride)
}

// ClassLike returns the class-like symbols registered under the FQN.
func (st *SymbolStore) ClassLike(fqn string) []*symbol.Symbol {
	return st.Find(fqn, func(s *symbol.Symbol) bool { return s.Kind.IsClassLike() })
}

// FindSymbolsByReference resolves a reference to its candidate declarations.
// Member references resolve their scope type through the aggregator with the
// given strategy; name references look up by FQN with the global fallback.
func (st *SymbolStore) FindSymbolsByReference(ref *reference.Reference, strategy MergeStrategy) []*symbol.Symbol {
	switch ref.Kind {
	case symbol.KindClass, symbol.KindInterface, symbol.KindTrait:
		return st.ClassLike(ref.Name)

	case symbol.KindConstructor:
		classes := st.ClassLike(ref.Name)
		agg := NewMemberAggregator(st)
		var out []*symbol.Symbol
		for _, class := range classes {
			if ctor := agg.FirstMember(class, strategy, func(m *symbol.Symbol) bool {
				return m.Kind == symbol.KindConstructor
			}); ctor != nil {
				out = append(out, ctor)
			}
		}
		if len(out) == 0 {
			// No declared constructor: the class itself answers.
			return classes
		}
		return out

	case symbol.KindFunction:
		syms := st.LookupByName(ref.Name, symbol.KindFunction)
		if len(syms) == 0 && ref.AltName != "" {
			syms = st.LookupByName(ref.AltName, symbol.KindFunction)
		}
		return syms

	case symbol.KindConstant:
		syms := st.LookupByName(ref.Name, symbol.KindConstant)
		if len(syms) == 0 && ref.AltName != "" {
			syms = st.LookupByName(ref.AltName, symbol.KindConstant)
		}
		return syms

	case symbol.KindMethod, symbol.KindProperty, symbol.KindClassConstant:
		agg := NewMemberAggregator(st)
		return agg.MembersNamed(typestring.AtomicClassArray(ref.Scope), ref.Name, ref.Kind, strategy)

	case symbol.KindNamespace:
		return st.Find(ref.Name, func(s *symbol.Symbol) bool { return s.Kind == symbol.KindNamespace })

	default:
		return nil
	}
}
