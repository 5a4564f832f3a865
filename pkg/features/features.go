// Package features implements the editor-facing queries as thin reads over
// the symbol and reference stores: completion, signature help, hover,
// go-to-definition, find-references and symbol listings.
package features

import (
	"fmt"
	"strings"

	"github.com/gnana997/phpindex/pkg/indexer"
	"github.com/gnana997/phpindex/pkg/reference"
	"github.com/gnana997/phpindex/pkg/symbol"
	"github.com/gnana997/phpindex/pkg/typestring"
	"github.com/gnana997/phpindex/pkg/workspace"
)

// Service answers editor queries over a workspace.
type Service struct {
	ws *workspace.Workspace
}

// NewService creates a feature service over the workspace.
func NewService(ws *workspace.Workspace) *Service {
	return &Service{ws: ws}
}

// Item is one completion result.
type Item struct {
	Label         string      `json:"label"`
	Kind          symbol.Kind `json:"kind"`
	Detail        string      `json:"detail,omitempty"`
	Documentation string      `json:"documentation,omitempty"`
}

// Location is a resolved definition site.
type Location struct {
	URI   string       `json:"uri"`
	Range symbol.Range `json:"range"`
}

func itemFor(s *symbol.Symbol) Item {
	item := Item{Label: symbol.NotFqn(s.Name), Kind: s.Kind}
	if s.Kind.IsCallable() {
		item.Detail = symbol.NotFqn(s.Name) + s.SignatureString()
	} else if s.Type != "" {
		item.Detail = s.Type
	}
	if s.Doc != nil {
		item.Documentation = s.Doc.Description
	}
	return item
}

// Completion returns candidates at pos. prefix is the already-typed word
// ("$ab", "Use", "->na" written part without the arrow).
//
// Three contexts, tried in order: variables from the enclosing scope when
// the prefix is $-led, members when pos sits on a member reference, and
// workspace names otherwise.
func (svc *Service) Completion(uri string, pos symbol.Position, prefix string) []Item {
	refs := svc.ws.References()
	store := svc.ws.Symbols()

	if strings.HasPrefix(prefix, "$") {
		if scope := refs.ScopeAtPosition(uri, pos); scope != nil {
			var items []Item
			for _, v := range scope.VariableReferences() {
				if strings.HasPrefix(v.Name, prefix) {
					items = append(items, Item{Label: v.Name, Kind: symbol.KindVariable, Detail: v.Type})
				}
			}
			return items
		}
		return nil
	}

	if ref := refs.ReferenceAtPosition(uri, pos); ref != nil && isMemberKind(ref.Kind) {
		return svc.memberCompletion(uri, pos, ref, prefix)
	}

	matched := store.Match(prefix, func(s *symbol.Symbol) bool {
		switch s.Kind {
		case symbol.KindClass, symbol.KindInterface, symbol.KindTrait,
			symbol.KindFunction, symbol.KindConstant, symbol.KindNamespace:
			return true
		default:
			return false
		}
	})
	items := make([]Item, 0, len(matched))
	for _, s := range matched {
		items = append(items, itemFor(s))
	}
	return items
}

func isMemberKind(k symbol.Kind) bool {
	switch k {
	case symbol.KindMethod, symbol.KindProperty, symbol.KindClassConstant:
		return true
	default:
		return false
	}
}

// memberCompletion enumerates the scope type's members, access-filtered
// from the enclosing class.
func (svc *Service) memberCompletion(uri string, pos symbol.Position, ref *reference.Reference, prefix string) []Item {
	store := svc.ws.Symbols()
	agg := indexer.NewMemberAggregator(store)

	// The enclosing class governs protected/private visibility.
	var enclosing *symbol.Symbol
	if table := store.Get(uri); table != nil {
		if s := table.SymbolAtPosition(pos); s != nil {
			switch {
			case s.Kind.IsClassLike():
				enclosing = s
			case s.Scope != "":
				// Members and locals carry the owning entity in Scope,
				// "Class::method" for method locals.
				owner := strings.SplitN(s.Scope, "::", 2)[0]
				if candidates := store.ClassLike(owner); len(candidates) > 0 {
					enclosing = candidates[0]
				}
			}
		}
	}

	var items []Item
	seen := make(map[string]bool)
	for _, fqn := range typestring.AtomicClassArray(ref.Scope) {
		for _, class := range store.ClassLike(fqn) {
			for _, m := range agg.Members(class, indexer.StrategyOverride) {
				if !svc.accessible(agg, m, class, enclosing) {
					continue
				}
				label := strings.TrimPrefix(m.Name, "$")
				if prefix != "" && !strings.HasPrefix(strings.ToLower(label), strings.ToLower(prefix)) {
					continue
				}
				if seen[label] {
					continue
				}
				seen[label] = true
				item := itemFor(m)
				item.Label = label
				items = append(items, item)
			}
		}
	}
	return items
}

// accessible applies PHP visibility from the enclosing class's viewpoint.
func (svc *Service) accessible(agg *indexer.MemberAggregator, m *symbol.Symbol, owner, enclosing *symbol.Symbol) bool {
	switch {
	case m.Modifiers.Has(symbol.ModifierPrivate):
		return enclosing != nil && symbol.KeyFor(enclosing.Name, enclosing.Kind) == symbol.KeyFor(m.Scope, symbol.KindClass)
	case m.Modifiers.Has(symbol.ModifierProtected):
		return enclosing != nil &&
			(agg.IsBaseClass(enclosing, m.Scope) || agg.IsAssociated(enclosing, owner.Name))
	default:
		return true
	}
}

// SignatureHelp describes the callable under construction at pos.
type SignatureHelp struct {
	Label           string `json:"label"`
	Documentation   string `json:"documentation,omitempty"`
	Parameters      []Item `json:"parameters,omitempty"`
	ActiveParameter int    `json:"active_parameter"`
}

// SignatureHelp resolves the call expression enclosing pos and reports the
// callable's signature with the active parameter derived from the argument
// commas before pos.
func (svc *Service) SignatureHelp(uri string, pos symbol.Position) *SignatureHelp {
	doc, unlock := svc.ws.Documents().Lock(uri)
	defer unlock()
	if doc == nil || doc.Tree() == nil {
		return nil
	}

	offset := doc.OffsetAt(pos)
	call := enclosingCall(doc, offset)
	if call == nil {
		return nil
	}

	syms := svc.callTargets(uri, call)
	if len(syms) == 0 {
		return nil
	}
	target := syms[0]

	help := &SignatureHelp{
		Label:           signatureLabel(target),
		ActiveParameter: activeParameter(doc, call, offset),
	}
	if target.Doc != nil {
		help.Documentation = target.Doc.Description
	}
	for _, p := range target.Parameters() {
		help.Parameters = append(help.Parameters, Item{
			Label:  p.Name,
			Kind:   symbol.KindParameter,
			Detail: p.Type,
		})
	}
	return help
}

// signatureLabel renders "name($p1, $p2 = 1)".
func signatureLabel(fn *symbol.Symbol) string {
	name := symbol.NotFqn(fn.Name)
	if fn.Kind == symbol.KindConstructor {
		name = symbol.NotFqn(fn.Scope)
	}
	var parts []string
	for _, p := range fn.Parameters() {
		part := p.Name
		if p.Value != "" {
			part += " = " + p.Value
		}
		parts = append(parts, part)
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(parts, ", "))
}

// Hover renders the declaration under pos.
func (svc *Service) Hover(uri string, pos symbol.Position) string {
	ref := svc.ws.References().ReferenceAtPosition(uri, pos)
	if ref == nil {
		return ""
	}
	if ref.Kind == symbol.KindVariable {
		if ref.Type != "" {
			return fmt.Sprintf("%s: %s", ref.Name, ref.Type)
		}
		return ref.Name
	}
	syms := svc.ws.Symbols().FindSymbolsByReference(ref, indexer.StrategyDocumented)
	if len(syms) == 0 {
		if ref.Type != "" {
			return fmt.Sprintf("%s: %s", ref.Name, ref.Type)
		}
		return ""
	}
	s := syms[0]
	var b strings.Builder
	switch {
	case s.Kind.IsCallable():
		fmt.Fprintf(&b, "%s %s%s", s.Kind, symbol.NotFqn(s.Name), s.SignatureString())
	case s.Type != "":
		fmt.Fprintf(&b, "%s %s: %s", s.Kind, s.Name, s.Type)
	default:
		fmt.Fprintf(&b, "%s %s", s.Kind, s.Name)
	}
	for _, candidate := range syms {
		if candidate.Doc != nil && candidate.Doc.Description != "" {
			b.WriteString("\n\n")
			b.WriteString(candidate.Doc.Description)
			break
		}
	}
	return b.String()
}

// Definition returns the declaration sites of the reference at pos.
func (svc *Service) Definition(uri string, pos symbol.Position) []Location {
	ref := svc.ws.References().ReferenceAtPosition(uri, pos)
	if ref == nil {
		return nil
	}
	var out []Location
	for _, s := range svc.ws.Symbols().FindSymbolsByReference(ref, indexer.StrategyOverride) {
		if s.Location.IsZero() {
			continue
		}
		out = append(out, Location{URI: s.Location.URI, Range: s.Location.Range})
	}
	return out
}

// ReferencesOf returns every reference in the workspace resolving to the
// same declaration as the reference at pos.
func (svc *Service) ReferencesOf(uri string, pos symbol.Position) []Location {
	target := svc.ws.References().ReferenceAtPosition(uri, pos)
	if target == nil {
		return nil
	}
	matches := svc.ws.References().References(func(_ string, r *reference.Reference) bool {
		if r.Kind != target.Kind {
			// Constructor and class references both point at the class.
			if !(r.Kind == symbol.KindConstructor && target.Kind == symbol.KindClass) &&
				!(r.Kind == symbol.KindClass && target.Kind == symbol.KindConstructor) {
				return false
			}
		}
		if symbol.KeyFor(r.Name, r.Kind) != symbol.KeyFor(target.Name, target.Kind) {
			return false
		}
		if isMemberKind(target.Kind) {
			// Members additionally match on an overlapping scope type.
			return scopesOverlap(r.Scope, target.Scope)
		}
		return true
	})
	out := make([]Location, 0, len(matches))
	for _, r := range matches {
		out = append(out, Location{URI: r.Location.URI, Range: r.Location.Range})
	}
	return out
}

func scopesOverlap(a, b string) bool {
	if a == "" || b == "" {
		return a == b
	}
	set := make(map[string]bool)
	for _, atom := range typestring.AtomicClassArray(a) {
		set[strings.ToLower(atom)] = true
	}
	for _, atom := range typestring.AtomicClassArray(b) {
		if set[strings.ToLower(atom)] {
			return true
		}
	}
	return false
}

// DocumentSymbols returns the document's symbol tree (declarations only).
func (svc *Service) DocumentSymbols(uri string) []*symbol.Symbol {
	table := svc.ws.Symbols().Get(uri)
	if table == nil {
		return nil
	}
	return table.Filter(func(s *symbol.Symbol) bool {
		switch s.Kind {
		case symbol.KindFile, symbol.KindVariable, symbol.KindParameter:
			return false
		default:
			return !s.Modifiers.Has(symbol.ModifierUse)
		}
	})
}

// WorkspaceSymbols prefix-searches declarations across the workspace.
func (svc *Service) WorkspaceSymbols(query string, limit int) []*symbol.Symbol {
	matched := svc.ws.Symbols().Match(query, nil)
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}
