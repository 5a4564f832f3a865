// Package symbol defines the symbol model of the index: the Symbol record,
// its tree lifecycle, and the name resolver that applies PHP namespace and
// import rules.
//
// A Symbol is a compile-time declarative entity. Namespaced kinds (classes,
// interfaces, traits, functions, constants) carry their fully qualified name;
// members, parameters and variables carry their local identifier with the
// enclosing entity recorded in Scope.
package symbol

import (
	"fmt"
	"strings"
)

// Separator is the PHP namespace separator.
const Separator = "\\"

// Doc carries the documentation attached to a symbol: the summary text and
// the type the doc-comment declared, which may be richer than the code's own
// type declaration.
type Doc struct {
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
}

// Symbol is one declarative entity. Children are owned; Associated symbols
// are lightweight shadows (name + kind only) pointing at related entities:
// base class, implemented interfaces, used traits, or the target of a use
// alias.
type Symbol struct {
	Kind       Kind      `json:"kind"`
	Name       string    `json:"name"`
	Scope      string    `json:"scope,omitempty"`
	Modifiers  Modifier  `json:"modifiers,omitempty"`
	Type       string    `json:"type,omitempty"`
	Value      string    `json:"value,omitempty"`
	Doc        *Doc      `json:"doc,omitempty"`
	Location   Location  `json:"location,omitempty"`
	Associated []*Symbol `json:"associated,omitempty"`
	Children   []*Symbol `json:"children,omitempty"`
}

// NotFqn returns the substring after the last namespace separator.
func NotFqn(name string) string {
	if i := strings.LastIndex(name, Separator); i >= 0 {
		return name[i+len(Separator):]
	}
	return name
}

// Namespace returns the substring before the last namespace separator, or ""
// when the name has none.
func Namespace(name string) string {
	if i := strings.LastIndex(name, Separator); i >= 0 {
		return name[:i]
	}
	return ""
}

// ConcatNamespaceName joins a namespace and a name, tolerating an empty
// namespace.
func ConcatNamespaceName(ns, name string) string {
	if ns == "" {
		return name
	}
	if name == "" {
		return ns
	}
	return ns + Separator + name
}

// Key returns the index key for the symbol's name, folded to lowercase for
// case-insensitive kinds.
func (s *Symbol) Key() string {
	return KeyFor(s.Name, s.Kind)
}

// KeyFor folds name per the casing rule of kind.
func KeyFor(name string, kind Kind) string {
	if kind.CaseSensitive() {
		return name
	}
	return strings.ToLower(name)
}

// SignatureString renders a callable symbol as "(t1 $p1, t2 $p2 = d):ret".
func (s *Symbol) SignatureString() string {
	var b strings.Builder
	b.WriteByte('(')
	first := true
	for _, p := range s.Children {
		if p.Kind != KindParameter {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		if p.Type != "" {
			b.WriteString(p.Type)
			b.WriteByte(' ')
		}
		if p.Modifiers.Has(ModifierReference) {
			b.WriteByte('&')
		}
		if p.Modifiers.Has(ModifierVariadic) {
			b.WriteString("...")
		}
		b.WriteString(p.Name)
		if p.Value != "" {
			b.WriteString(" = ")
			b.WriteString(p.Value)
		}
	}
	b.WriteByte(')')
	if s.Type != "" {
		b.WriteByte(':')
		b.WriteString(s.Type)
	}
	return b.String()
}

// FilterChildren returns the direct children matching pred, in declaration
// order. Traversal does not descend.
func (s *Symbol) FilterChildren(pred func(*Symbol) bool) []*Symbol {
	var out []*Symbol
	for _, c := range s.Children {
		if pred(c) {
			out = append(out, c)
		}
	}
	return out
}

// FindChild returns the first direct child matching pred, or nil.
func (s *Symbol) FindChild(pred func(*Symbol) bool) *Symbol {
	for _, c := range s.Children {
		if pred(c) {
			return c
		}
	}
	return nil
}

// Parameters returns the symbol's parameter children in declaration order.
func (s *Symbol) Parameters() []*Symbol {
	return s.FilterChildren(func(c *Symbol) bool { return c.Kind == KindParameter })
}

// SetScope stamps every symbol in children with scope. Applied immediately
// after synthesis: class members get the owning class FQN, function locals
// the owning function FQN.
func SetScope(children []*Symbol, scope string) {
	for _, c := range children {
		c.Scope = scope
	}
}

// AnonymousName synthesizes the unique name of an anonymous class or
// function from its document and start offset.
func AnonymousName(uri string, startByte uint32) string {
	return fmt.Sprintf("#anon#%s#%d", uri, startByte)
}

// UseTarget returns the shadow symbol a use alias points at, or nil when the
// symbol is not a use declaration.
func (s *Symbol) UseTarget() *Symbol {
	if !s.Modifiers.Has(ModifierUse) || len(s.Associated) == 0 {
		return nil
	}
	return s.Associated[0]
}
