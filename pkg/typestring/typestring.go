// Package typestring implements the canonical textual representation of PHP
// types used throughout the index.
//
// A type-string is a `|`-separated union of atoms, e.g. "App\\User|null" or
// "int[]|string". A trailing "[]" on an atom denotes array-of. The empty
// string is the unknown type. All operations treat type-strings as atom sets:
// order-insensitive, duplicate-free, case-sensitive for object names as
// written.
package typestring

import "strings"

// Mixed is the type an indexable expression degrades to when nothing more
// precise is known.
const Mixed = "mixed"

// scalarAtoms are tokens the resolver must never touch: they are built-in
// type keywords, not class names.
var scalarAtoms = map[string]bool{
	"int":      true,
	"integer":  true,
	"string":   true,
	"bool":     true,
	"boolean":  true,
	"float":    true,
	"double":   true,
	"iterable": true,
	"void":     true,
	"self":     true,
	"static":   true,
	"parent":   true,
	"array":    true,
	"callable": true,
	"mixed":    true,
	"null":     true,
	"object":   true,
	"false":    true,
	"true":     true,
}

// IsScalar reports whether atom (with any "[]" suffix stripped) is a built-in
// type keyword rather than a class name.
func IsScalar(atom string) bool {
	return scalarAtoms[strings.TrimSuffix(atom, "[]")]
}

// Atoms splits a type-string into its atoms, dropping empty segments.
func Atoms(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "|")
	atoms := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			atoms = append(atoms, p)
		}
	}
	return atoms
}

// join re-assembles atoms into canonical form.
func join(atoms []string) string {
	return strings.Join(atoms, "|")
}

// Merge returns the set-union of two type-strings. It is commutative up to
// atom order, associative, and idempotent; exact-duplicate atoms are dropped.
// Merging with the empty string is the identity.
func Merge(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	seen := make(map[string]bool)
	var out []string
	for _, atom := range append(Atoms(a), Atoms(b)...) {
		if !seen[atom] {
			seen[atom] = true
			out = append(out, atom)
		}
	}
	return join(out)
}

// MergeAll folds Merge over any number of type-strings.
func MergeAll(types ...string) string {
	var out string
	for _, t := range types {
		out = Merge(out, t)
	}
	return out
}

// ArrayDereference strips one "[]" level from each atom. Atoms without an
// array suffix are not indexable and are dropped. If no atom survives the
// result is Mixed.
func ArrayDereference(s string) string {
	var out []string
	for _, atom := range Atoms(s) {
		if strings.HasSuffix(atom, "[]") {
			out = append(out, strings.TrimSuffix(atom, "[]"))
		}
	}
	if len(out) == 0 {
		return Mixed
	}
	return join(out)
}

// ArrayReference adds one "[]" level to each atom. The empty string stays
// empty: an unknown element type does not become a known array type.
func ArrayReference(s string) string {
	atoms := Atoms(s)
	if len(atoms) == 0 {
		return ""
	}
	out := make([]string, len(atoms))
	for i, atom := range atoms {
		out[i] = atom + "[]"
	}
	return join(out)
}

// AtomicClassArray returns the atoms that can name an object class: neither
// scalar keywords nor array-suffixed atoms. Used when looking up members on
// an expression's type.
func AtomicClassArray(s string) []string {
	var out []string
	for _, atom := range Atoms(s) {
		if strings.HasSuffix(atom, "[]") {
			continue
		}
		if IsScalar(atom) {
			continue
		}
		out = append(out, atom)
	}
	return out
}

// NameResolve maps every non-scalar atom through resolve, preserving any
// "[]" suffix. Scalar keywords pass through verbatim. A resolve result of ""
// keeps the written atom.
func NameResolve(s string, resolve func(atom string) string) string {
	atoms := Atoms(s)
	if len(atoms) == 0 {
		return s
	}
	out := make([]string, 0, len(atoms))
	for _, atom := range atoms {
		suffix := ""
		base := atom
		for strings.HasSuffix(base, "[]") {
			base = strings.TrimSuffix(base, "[]")
			suffix += "[]"
		}
		if scalarAtoms[base] || base == "" {
			out = append(out, atom)
			continue
		}
		resolved := resolve(base)
		if resolved == "" {
			resolved = base
		}
		out = append(out, resolved+suffix)
	}
	return join(out)
}
