// Package reference defines the reference table: every identifier occurrence
// in a document bound to its resolved fully qualified name and inferred type,
// organized into a tree of lexical scopes.
package reference

import (
	"github.com/gnana997/phpindex/pkg/symbol"
)

// Reference is one textual occurrence. Name is the resolved FQN where
// applicable; AltName keeps the written form when it differs (self/parent/
// static, or the global fallback of an unqualified function or constant).
// An unresolvable occurrence still produces a Reference so that highlight
// and rename keep working.
type Reference struct {
	Kind     symbol.Kind     `json:"kind"`
	Name     string          `json:"name"`
	AltName  string          `json:"alt_name,omitempty"`
	Location symbol.Location `json:"location"`

	// Type is the inferred type-string of the expression, "" when unknown.
	Type string `json:"type,omitempty"`

	// Scope is the enclosing context: for member references the resolved
	// type-string of the accessed object or scope expression, otherwise the
	// FQN of the enclosing declarative entity.
	Scope string `json:"scope,omitempty"`
}

// Span returns the reference's range.
func (r *Reference) Span() symbol.Range {
	return r.Location.Range
}

// Element is a node in a scope tree: either a *Reference or a *Scope.
type Element interface {
	Span() symbol.Range
}

// Scope is a lexical region of a document. The root scope spans the whole
// file; function, method, closure and namespace bodies push nested scopes.
// Children hold sub-scopes and references interleaved in document order.
type Scope struct {
	Location symbol.Location `json:"location"`
	Children []Element       `json:"children,omitempty"`
}

// Span returns the scope's range.
func (s *Scope) Span() symbol.Range {
	return s.Location.Range
}

// Add appends an element; callers append in document order.
func (s *Scope) Add(el Element) {
	s.Children = append(s.Children, el)
}

// References returns the direct reference children only.
func (s *Scope) References() []*Reference {
	var out []*Reference
	for _, el := range s.Children {
		if ref, ok := el.(*Reference); ok {
			out = append(out, ref)
		}
	}
	return out
}

// VariableReferences returns the variable references visible in this scope,
// deduplicated by name, first occurrence wins. Used for variable completion.
func (s *Scope) VariableReferences() []*Reference {
	seen := make(map[string]bool)
	var out []*Reference
	for _, el := range s.Children {
		ref, ok := el.(*Reference)
		if !ok || ref.Kind != symbol.KindVariable {
			continue
		}
		if seen[ref.Name] {
			continue
		}
		seen[ref.Name] = true
		out = append(out, ref)
	}
	return out
}

// Table is the reference table for one document.
type Table struct {
	URI  string `json:"uri"`
	Root *Scope `json:"root"`
}

// NewTable creates a table with a root scope spanning [0, endByte).
func NewTable(uri string, end symbol.Position, endByte uint32) *Table {
	return &Table{
		URI: uri,
		Root: &Scope{
			Location: symbol.Location{
				URI: uri,
				Range: symbol.Range{
					End:     end,
					EndByte: endByte,
				},
			},
		},
	}
}

// ReferenceAtPosition returns the innermost reference whose location
// encloses pos, or nil.
func (t *Table) ReferenceAtPosition(pos symbol.Position) *Reference {
	if t.Root == nil {
		return nil
	}
	return refAt(t.Root, pos)
}

func refAt(s *Scope, pos symbol.Position) *Reference {
	var best *Reference
	for _, el := range s.Children {
		switch v := el.(type) {
		case *Reference:
			if v.Location.Range.Contains(pos) {
				// Later, narrower references win: member-access names nest
				// inside the range of their qualifier expression.
				if best == nil || best.Span().ContainsRange(v.Span()) {
					best = v
				}
			}
		case *Scope:
			if v.Location.Range.Contains(pos) {
				if inner := refAt(v, pos); inner != nil {
					return inner
				}
			}
		}
	}
	return best
}

// ScopeAtPosition returns the innermost scope enclosing pos. The root scope
// encloses every position in the document.
func (t *Table) ScopeAtPosition(pos symbol.Position) *Scope {
	if t.Root == nil {
		return nil
	}
	return scopeAt(t.Root, pos)
}

func scopeAt(s *Scope, pos symbol.Position) *Scope {
	for _, el := range s.Children {
		if sub, ok := el.(*Scope); ok && sub.Location.Range.Contains(pos) {
			return scopeAt(sub, pos)
		}
	}
	return s
}

// Walk visits every reference in document order. Returning false stops.
func (t *Table) Walk(visit func(*Reference) bool) {
	if t.Root == nil {
		return
	}
	walkScope(t.Root, visit)
}

func walkScope(s *Scope, visit func(*Reference) bool) bool {
	for _, el := range s.Children {
		switch v := el.(type) {
		case *Reference:
			if !visit(v) {
				return false
			}
		case *Scope:
			if !walkScope(v, visit) {
				return false
			}
		}
	}
	return true
}

// Filter returns every reference matching pred, document order.
func (t *Table) Filter(pred func(*Reference) bool) []*Reference {
	var out []*Reference
	t.Walk(func(r *Reference) bool {
		if pred(r) {
			out = append(out, r)
		}
		return true
	})
	return out
}

// Count returns the number of references in the table.
func (t *Table) Count() int {
	n := 0
	t.Walk(func(*Reference) bool { n++; return true })
	return n
}
