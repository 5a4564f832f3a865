package typestring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerge_Identity(t *testing.T) {
	assert.Equal(t, "A", Merge("A", ""))
	assert.Equal(t, "A", Merge("", "A"))
	assert.Equal(t, "", Merge("", ""))
}

func TestMerge_Idempotent(t *testing.T) {
	assert.Equal(t, "A|B", Merge("A|B", "A|B"))
	assert.Equal(t, "A", Merge("A", "A"))
}

func TestMerge_Commutative(t *testing.T) {
	// Set equality: same atoms regardless of argument order.
	ab := Atoms(Merge("A|B", "C"))
	ba := Atoms(Merge("C", "A|B"))
	assert.ElementsMatch(t, ab, ba)
}

func TestMerge_DedupIsCaseSensitive(t *testing.T) {
	// Object names as written: "Foo" and "foo" are distinct atoms.
	assert.Equal(t, "Foo|foo", Merge("Foo", "foo"))
}

func TestMergeAll(t *testing.T) {
	assert.Equal(t, "A|B|C", MergeAll("A", "B", "A|C"))
}

func TestArrayDereference(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single array atom", "A[]", "A"},
		{"mixed union drops plain atoms", "A[]|B", "A"},
		{"nested arrays strip one level", "A[][]", "A[]"},
		{"nothing indexable", "A|B", "mixed"},
		{"empty", "", "mixed"},
		{"scalar arrays", "int[]|string", "int"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ArrayDereference(tt.in))
		})
	}
}

func TestArrayReference(t *testing.T) {
	assert.Equal(t, "A[]|B[]", ArrayReference("A|B"))
	assert.Equal(t, "", ArrayReference(""))
}

func TestArrayRoundTrip(t *testing.T) {
	for _, s := range []string{"A", "A|B", "int|Foo[]"} {
		assert.Equal(t, s, ArrayDereference(ArrayReference(s)), "round trip of %q", s)
	}
}

func TestAtomicClassArray(t *testing.T) {
	atoms := AtomicClassArray("App\\User|int|string[]|null|Other")
	assert.Equal(t, []string{"App\\User", "Other"}, atoms)
}

func TestAtomicClassArray_Empty(t *testing.T) {
	assert.Empty(t, AtomicClassArray("int|string|null"))
	assert.Empty(t, AtomicClassArray(""))
}

func TestNameResolve(t *testing.T) {
	resolve := func(atom string) string { return "App\\" + atom }

	assert.Equal(t, "App\\User|null", NameResolve("User|null", resolve))
	assert.Equal(t, "int|App\\User[]", NameResolve("int|User[]", resolve))
	// Scalars are preserved verbatim even when the resolver would rewrite them.
	assert.Equal(t, "self|static|parent", NameResolve("self|static|parent", resolve))
}

func TestNameResolve_EmptyResolverResultKeepsAtom(t *testing.T) {
	assert.Equal(t, "User", NameResolve("User", func(string) string { return "" }))
}

func TestIsScalar(t *testing.T) {
	assert.True(t, IsScalar("int"))
	assert.True(t, IsScalar("int[]"))
	assert.False(t, IsScalar("Integer\\Box"))
	assert.False(t, IsScalar("User"))
}

func TestAtoms_TrimsWhitespace(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, Atoms("A | B"))
	assert.Nil(t, Atoms(""))
	// No stray separators survive canonical form.
	assert.False(t, strings.Contains(Merge("A|", "|B"), "||"))
}
