package symbol

import "strings"

// Modifier is a bitset of symbol attributes.
type Modifier uint32

const (
	ModifierPublic Modifier = 1 << iota
	ModifierProtected
	ModifierPrivate
	ModifierFinal
	ModifierAbstract
	ModifierStatic
	ModifierReadOnly
	ModifierWriteOnly
	ModifierMagic
	ModifierAnonymous
	ModifierReference
	ModifierVariadic
	ModifierUse

	ModifierNone Modifier = 0
)

// Has reports whether every bit of m is set.
func (mod Modifier) Has(m Modifier) bool {
	return mod&m == m
}

// HasAny reports whether any bit of m is set.
func (mod Modifier) HasAny(m Modifier) bool {
	return mod&m != 0
}

// Visibility returns the visibility bits only.
func (mod Modifier) Visibility() Modifier {
	return mod & (ModifierPublic | ModifierProtected | ModifierPrivate)
}

// String renders the set modifiers space-separated, declaration order.
func (mod Modifier) String() string {
	var parts []string
	for _, e := range [...]struct {
		bit  Modifier
		name string
	}{
		{ModifierPublic, "public"},
		{ModifierProtected, "protected"},
		{ModifierPrivate, "private"},
		{ModifierFinal, "final"},
		{ModifierAbstract, "abstract"},
		{ModifierStatic, "static"},
		{ModifierReadOnly, "readonly"},
		{ModifierWriteOnly, "writeonly"},
		{ModifierMagic, "magic"},
		{ModifierAnonymous, "anonymous"},
		{ModifierReference, "reference"},
		{ModifierVariadic, "variadic"},
		{ModifierUse, "use"},
	} {
		if mod.Has(e.bit) {
			parts = append(parts, e.name)
		}
	}
	return strings.Join(parts, " ")
}

// ParseModifier maps a PHP modifier keyword to its bit. Unknown keywords
// return ModifierNone.
func ParseModifier(keyword string) Modifier {
	switch strings.ToLower(keyword) {
	case "public", "var":
		return ModifierPublic
	case "protected":
		return ModifierProtected
	case "private":
		return ModifierPrivate
	case "final":
		return ModifierFinal
	case "abstract":
		return ModifierAbstract
	case "static":
		return ModifierStatic
	case "readonly":
		return ModifierReadOnly
	default:
		return ModifierNone
	}
}
