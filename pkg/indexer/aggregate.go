package indexer

import (
	"strings"

	"github.com/gnana997/phpindex/pkg/symbol"
)

// MergeStrategy selects how inherited members are combined with a class's
// own declarations.
type MergeStrategy int

const (
	// StrategyNone yields own declared members only.
	StrategyNone MergeStrategy = iota

	// StrategyOverride yields own plus inherited members; on a name
	// collision the nearest declaration in linearization order wins
	// (own > traits > base > interfaces).
	StrategyOverride

	// StrategyDocumented is Override, except an overridden member is
	// retained when the overriding one carries no doc-comment and the
	// overridden one does (doc inheritance).
	StrategyDocumented

	// StrategyAll yields every accessible declaration with no shadowing,
	// de-duplicated by (kind, name, declaring scope).
	StrategyAll
)

// MemberAggregator resolves the observable members of class-like symbols
// across base classes, interfaces and traits with a deterministic
// linearization: depth-first over the associated list, traits first, then
// base classes, then interfaces, each group in declaration order,
// cycle-protected by a case-insensitive visited set of FQNs.
type MemberAggregator struct {
	store *SymbolStore
}

// NewMemberAggregator creates an aggregator over the given store.
func NewMemberAggregator(store *SymbolStore) *MemberAggregator {
	return &MemberAggregator{store: store}
}

// memberKey identifies a member for shadowing decisions.
type memberKey struct {
	kind symbol.Kind
	name string
}

func keyOf(m *symbol.Symbol) memberKey {
	kind := m.Kind
	if kind == symbol.KindConstructor {
		kind = symbol.KindMethod
	}
	return memberKey{kind: kind, name: symbol.KeyFor(m.Name, m.Kind)}
}

// Members returns the class's observable members under the strategy.
func (a *MemberAggregator) Members(class *symbol.Symbol, strategy MergeStrategy) []*symbol.Symbol {
	var out []*symbol.Symbol
	a.aggregate(class, strategy, func(m *symbol.Symbol) bool {
		out = append(out, m)
		return true
	})
	return out
}

// FirstMember short-circuits: it returns the first member (in linearization
// order) matching pred, or nil.
func (a *MemberAggregator) FirstMember(class *symbol.Symbol, strategy MergeStrategy, pred func(*symbol.Symbol) bool) *symbol.Symbol {
	var found *symbol.Symbol
	a.aggregate(class, strategy, func(m *symbol.Symbol) bool {
		if pred(m) {
			found = m
			return false
		}
		return true
	})
	return found
}

// MembersNamed aggregates the named member across several classes, kind
// filtered. Method lookups also accept constructors.
func (a *MemberAggregator) MembersNamed(classNames []string, memberName string, kind symbol.Kind, strategy MergeStrategy) []*symbol.Symbol {
	var out []*symbol.Symbol
	for _, fqn := range classNames {
		for _, class := range a.store.ClassLike(fqn) {
			a.aggregate(class, strategy, func(m *symbol.Symbol) bool {
				mk := m.Kind
				if mk == symbol.KindConstructor {
					mk = symbol.KindMethod
				}
				if mk != kind {
					return true
				}
				if symbol.KeyFor(m.Name, m.Kind) == symbol.KeyFor(memberName, m.Kind) {
					out = append(out, m)
				}
				return true
			})
		}
	}
	return out
}

// aggregate drives the strategy over the linearization, invoking visit for
// every surviving member in nearest-first order. Returning false stops.
func (a *MemberAggregator) aggregate(class *symbol.Symbol, strategy MergeStrategy, visit func(*symbol.Symbol) bool) {
	if class == nil {
		return
	}
	if strategy == StrategyNone {
		for _, m := range class.Children {
			if isMember(m) && !visit(m) {
				return
			}
		}
		return
	}

	type seenEntry struct {
		hasDoc bool
	}
	seen := make(map[memberKey]seenEntry)
	dedup := make(map[string]bool) // StrategyAll: kind|name|scope
	visited := make(map[string]bool)
	stopped := false

	emit := func(m *symbol.Symbol) bool {
		switch strategy {
		case StrategyAll:
			id := m.Kind.String() + "|" + symbol.KeyFor(m.Name, m.Kind) + "|" + strings.ToLower(m.Scope)
			if dedup[id] {
				return true
			}
			dedup[id] = true
			return visit(m)

		case StrategyDocumented:
			key := keyOf(m)
			prev, shadowed := seen[key]
			if !shadowed {
				seen[key] = seenEntry{hasDoc: hasDoc(m)}
				return visit(m)
			}
			if !prev.hasDoc && hasDoc(m) {
				// The nearer declaration is undocumented; surface the
				// documented ancestor so its doc can be inherited.
				seen[key] = seenEntry{hasDoc: true}
				return visit(m)
			}
			return true

		default: // StrategyOverride
			key := keyOf(m)
			if _, shadowed := seen[key]; shadowed {
				return true
			}
			seen[key] = seenEntry{hasDoc: hasDoc(m)}
			return visit(m)
		}
	}

	var walk func(*symbol.Symbol)
	walk = func(c *symbol.Symbol) {
		if stopped || c == nil {
			return
		}
		fqn := strings.ToLower(c.Name)
		if visited[fqn] {
			return
		}
		visited[fqn] = true

		for _, m := range c.Children {
			if isMember(m) && !emit(m) {
				stopped = true
				return
			}
		}

		// Linearization: traits, then base classes, then interfaces, each
		// depth-first in declaration order.
		for _, wanted := range [...]symbol.Kind{symbol.KindTrait, symbol.KindClass, symbol.KindInterface} {
			for _, assoc := range c.Associated {
				if assoc.Kind != wanted {
					continue
				}
				for _, next := range a.store.ClassLike(assoc.Name) {
					walk(next)
					if stopped {
						return
					}
				}
			}
		}
	}
	walk(class)
}

func isMember(s *symbol.Symbol) bool {
	switch s.Kind {
	case symbol.KindMethod, symbol.KindConstructor, symbol.KindProperty, symbol.KindClassConstant:
		return true
	default:
		return false
	}
}

func hasDoc(s *symbol.Symbol) bool {
	return s.Doc != nil && (s.Doc.Description != "" || s.Doc.Type != "")
}

// IsBaseClass reports whether name is the class itself or appears on its
// base-class chain.
func (a *MemberAggregator) IsBaseClass(class *symbol.Symbol, name string) bool {
	key := strings.ToLower(name)
	visited := make(map[string]bool)
	var walk func(*symbol.Symbol) bool
	walk = func(c *symbol.Symbol) bool {
		if c == nil || visited[strings.ToLower(c.Name)] {
			return false
		}
		visited[strings.ToLower(c.Name)] = true
		if strings.ToLower(c.Name) == key {
			return true
		}
		for _, assoc := range c.Associated {
			if assoc.Kind != symbol.KindClass {
				continue
			}
			if strings.ToLower(assoc.Name) == key {
				return true
			}
			for _, next := range a.store.ClassLike(assoc.Name) {
				if walk(next) {
					return true
				}
			}
		}
		return false
	}
	return walk(class)
}

// IsAssociated reports whether name appears anywhere on the class's
// association graph (base classes, interfaces, traits).
func (a *MemberAggregator) IsAssociated(class *symbol.Symbol, name string) bool {
	key := strings.ToLower(name)
	visited := make(map[string]bool)
	var walk func(*symbol.Symbol) bool
	walk = func(c *symbol.Symbol) bool {
		if c == nil || visited[strings.ToLower(c.Name)] {
			return false
		}
		visited[strings.ToLower(c.Name)] = true
		if strings.ToLower(c.Name) == key {
			return true
		}
		for _, assoc := range c.Associated {
			if strings.ToLower(assoc.Name) == key {
				return true
			}
			for _, next := range a.store.ClassLike(assoc.Name) {
				if walk(next) {
					return true
				}
			}
		}
		return false
	}
	return walk(class)
}
