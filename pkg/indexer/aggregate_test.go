package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/phpindex/pkg/symbol"
)

func method(name string, doc string) *symbol.Symbol {
	m := &symbol.Symbol{Kind: symbol.KindMethod, Name: name, Modifiers: symbol.ModifierPublic}
	if doc != "" {
		m.Doc = &symbol.Doc{Description: doc}
	}
	return m
}

// inheritanceStore builds: class B extends A; A implements I; B uses T.
func inheritanceStore(t *testing.T) (*SymbolStore, *symbol.Symbol) {
	t.Helper()
	st := NewSymbolStore(nil)

	iface := &symbol.Symbol{Kind: symbol.KindInterface, Name: "I",
		Children: []*symbol.Symbol{method("m", "interface doc"), method("onlyIface", "")}}
	symbol.SetScope(iface.Children, "I")

	a := classWith("A", method("m", "a doc"), method("onlyA", ""))
	a.Associated = []*symbol.Symbol{{Kind: symbol.KindInterface, Name: "I"}}

	trait := &symbol.Symbol{Kind: symbol.KindTrait, Name: "T",
		Children: []*symbol.Symbol{method("fromTrait", ""), method("m", "")}}
	symbol.SetScope(trait.Children, "T")

	b := classWith("B", method("m", ""))
	b.Associated = []*symbol.Symbol{
		{Kind: symbol.KindClass, Name: "A"},
		{Kind: symbol.KindTrait, Name: "T"},
	}

	st.Add(tableWith("file:///hier.php", iface, a, trait, b))
	return st, b
}

func memberNames(members []*symbol.Symbol) []string {
	var out []string
	for _, m := range members {
		out = append(out, m.Scope+"::"+m.Name)
	}
	return out
}

func TestAggregator_StrategyNone(t *testing.T) {
	st, b := inheritanceStore(t)
	agg := NewMemberAggregator(st)

	members := agg.Members(b, StrategyNone)
	assert.Equal(t, []string{"B::m"}, memberNames(members))
}

func TestAggregator_StrategyOverride(t *testing.T) {
	st, b := inheritanceStore(t)
	agg := NewMemberAggregator(st)

	members := agg.Members(b, StrategyOverride)
	names := memberNames(members)

	// Own m shadows trait/base/interface m; everything else surfaces once.
	assert.Contains(t, names, "B::m")
	assert.NotContains(t, names, "A::m")
	assert.NotContains(t, names, "T::m")
	assert.Contains(t, names, "T::fromTrait")
	assert.Contains(t, names, "A::onlyA")
	assert.Contains(t, names, "I::onlyIface")
}

func TestAggregator_OverrideNearestWins(t *testing.T) {
	st, _ := inheritanceStore(t)
	agg := NewMemberAggregator(st)

	ms := agg.MembersNamed([]string{"B"}, "m", symbol.KindMethod, StrategyOverride)
	require.Len(t, ms, 1)
	assert.Equal(t, "B", ms[0].Scope)
}

func TestAggregator_StrategyAll(t *testing.T) {
	st, _ := inheritanceStore(t)
	agg := NewMemberAggregator(st)

	ms := agg.MembersNamed([]string{"B"}, "m", symbol.KindMethod, StrategyAll)
	names := memberNames(ms)
	assert.Contains(t, names, "B::m")
	assert.Contains(t, names, "A::m")
	assert.Contains(t, names, "T::m")
	assert.Contains(t, names, "I::m")
	// Nearest declaration first.
	assert.Equal(t, "B::m", names[0])
}

func TestAggregator_StrategyDocumented(t *testing.T) {
	st, _ := inheritanceStore(t)
	agg := NewMemberAggregator(st)

	// B::m is undocumented; the documented A::m is retained for doc
	// inheritance (the trait m in between is undocumented and dropped).
	ms := agg.MembersNamed([]string{"B"}, "m", symbol.KindMethod, StrategyDocumented)
	names := memberNames(ms)
	assert.Contains(t, names, "B::m")
	assert.Contains(t, names, "A::m")
	assert.NotContains(t, names, "T::m")
}

func TestAggregator_CycleDetection(t *testing.T) {
	st := NewSymbolStore(nil)

	a := classWith("A", method("ma", ""))
	a.Associated = []*symbol.Symbol{{Kind: symbol.KindClass, Name: "B"}}
	b := classWith("B", method("mb", ""))
	b.Associated = []*symbol.Symbol{{Kind: symbol.KindClass, Name: "A"}}
	st.Add(tableWith("file:///cycle.php", a, b))

	agg := NewMemberAggregator(st)
	members := agg.Members(a, StrategyOverride)
	assert.Len(t, members, 2, "cyclic hierarchies terminate")
}

func TestAggregator_FirstMemberShortCircuits(t *testing.T) {
	st, b := inheritanceStore(t)
	agg := NewMemberAggregator(st)

	got := agg.FirstMember(b, StrategyOverride, func(m *symbol.Symbol) bool {
		return m.Name == "fromTrait"
	})
	require.NotNil(t, got)
	assert.Equal(t, "T", got.Scope)
}

func TestAggregator_IsBaseClassAndIsAssociated(t *testing.T) {
	st, b := inheritanceStore(t)
	agg := NewMemberAggregator(st)

	assert.True(t, agg.IsBaseClass(b, "B"))
	assert.True(t, agg.IsBaseClass(b, "a"), "base-chain test folds case")
	assert.False(t, agg.IsBaseClass(b, "I"), "interfaces are not base classes")
	assert.False(t, agg.IsBaseClass(b, "T"))

	assert.True(t, agg.IsAssociated(b, "I"), "interfaces reached through the base")
	assert.True(t, agg.IsAssociated(b, "T"))
	assert.False(t, agg.IsAssociated(b, "Unrelated"))
}

func TestAggregator_OverrideAndAllOrdering(t *testing.T) {
	// class B extends A, both declare m. Override returns B::m only;
	// All returns both, B::m first.
	st := NewSymbolStore(nil)
	a := classWith("A", method("m", ""))
	b := classWith("B", method("m", ""))
	b.Associated = []*symbol.Symbol{{Kind: symbol.KindClass, Name: "A"}}
	st.Add(tableWith("file:///ab.php", a, b))

	agg := NewMemberAggregator(st)

	override := agg.MembersNamed([]string{"B"}, "m", symbol.KindMethod, StrategyOverride)
	require.Len(t, override, 1)
	assert.Equal(t, "B", override[0].Scope)

	all := agg.MembersNamed([]string{"B"}, "m", symbol.KindMethod, StrategyAll)
	require.Len(t, all, 2)
	assert.Equal(t, "B", all[0].Scope)
	assert.Equal(t, "A", all[1].Scope)
}
