package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/phpindex/pkg/reference"
	"github.com/gnana997/phpindex/pkg/symbol"
)

func located(uri string, start uint32) symbol.Location {
	return symbol.Location{URI: uri, Range: symbol.Range{StartByte: start, EndByte: start + 1}}
}

// tableWith builds a one-file table from top-level symbols.
func tableWith(uri string, syms ...*symbol.Symbol) *symbol.Table {
	t := symbol.NewTable(uri, symbol.Position{Line: 100}, 10000)
	t.Root.Children = append(t.Root.Children, syms...)
	return t
}

func classWith(fqn string, members ...*symbol.Symbol) *symbol.Symbol {
	c := &symbol.Symbol{Kind: symbol.KindClass, Name: fqn, Children: members}
	symbol.SetScope(c.Children, fqn)
	return c
}

func TestNameIndex_InsertFindRemove(t *testing.T) {
	ix := NewNameIndex()
	a := &symbol.Symbol{Kind: symbol.KindClass, Name: "A"}
	b := &symbol.Symbol{Kind: symbol.KindClass, Name: "AB"}

	ix.Insert("a", a)
	ix.Insert("ab", b)
	assert.Equal(t, 2, ix.Len())
	assert.Equal(t, []*symbol.Symbol{a}, ix.Find("a"))

	ix.Remove("a", a)
	assert.Nil(t, ix.Find("a"))
	assert.Equal(t, 1, ix.Len())
}

func TestNameIndex_MatchIterator(t *testing.T) {
	ix := NewNameIndex()
	for _, k := range []string{"app\\user", "app\\util", "base", "app"} {
		ix.Insert(k, &symbol.Symbol{Kind: symbol.KindClass, Name: k})
	}

	it := ix.Match("app")
	var keys []string
	for {
		key, _, ok := it.Next()
		if !ok {
			break
		}
		keys = append(keys, key)
	}
	assert.Equal(t, []string{"app", "app\\user", "app\\util"}, keys)
}

func TestSymbolStore_AddRemoveRoundTrip(t *testing.T) {
	st := NewSymbolStore(nil)

	before := st.Count()
	table := tableWith("file:///a.php",
		classWith("App\\User"),
		&symbol.Symbol{Kind: symbol.KindFunction, Name: "App\\helper", Location: located("file:///a.php", 5)},
	)
	st.Add(table)
	assert.NotEmpty(t, st.Find("App\\User", nil))

	st.Remove("file:///a.php")
	assert.Equal(t, before, st.Count(), "removal restores the pre-add state")
	assert.Empty(t, st.Find("App\\User", nil))
	assert.Nil(t, st.Get("file:///a.php"))
}

func TestSymbolStore_AddReplacesPriorTable(t *testing.T) {
	st := NewSymbolStore(nil)
	st.Add(tableWith("file:///a.php", classWith("Old")))
	st.Add(tableWith("file:///a.php", classWith("New")))

	assert.Empty(t, st.Find("Old", nil))
	assert.NotEmpty(t, st.Find("New", nil))
}

func TestSymbolStore_ExclusionFilter(t *testing.T) {
	st := NewSymbolStore(nil)

	fn := &symbol.Symbol{Kind: symbol.KindFunction, Name: "f", Location: located("file:///a.php", 1)}
	fn.Children = []*symbol.Symbol{
		{Kind: symbol.KindParameter, Name: "$p"},
		{Kind: symbol.KindVariable, Name: "$local", Location: located("file:///a.php", 2)},
	}
	use := &symbol.Symbol{
		Kind: symbol.KindClass, Name: "Alias", Modifiers: symbol.ModifierUse,
		Associated: []*symbol.Symbol{{Kind: symbol.KindClass, Name: "Real\\Alias"}},
	}
	st.Add(tableWith("file:///a.php", fn, use))

	assert.Empty(t, st.Find("$p", nil), "parameters never leak into search")
	assert.Empty(t, st.Find("$local", nil), "located variables never leak into search")
	assert.Empty(t, st.Find("Alias", nil), "use aliases never leak into search")
	assert.NotEmpty(t, st.Find("f", nil))
}

func TestSymbolStore_CaseFolding(t *testing.T) {
	st := NewSymbolStore(nil)
	st.Add(tableWith("file:///a.php",
		classWith("App\\UserRepo"),
		&symbol.Symbol{Kind: symbol.KindConstant, Name: "VERSION", Location: located("file:///a.php", 3)},
	))

	assert.NotEmpty(t, st.Find("app\\userrepo", nil), "class lookup folds case")
	assert.NotEmpty(t, st.Find("App\\UserRepo", nil))
	assert.NotEmpty(t, st.Find("VERSION", nil))
	assert.Empty(t, st.Find("version", nil), "constant lookup preserves case")
}

func TestSymbolStore_KeyDiscipline(t *testing.T) {
	// Everything Find returns, Match on a prefix of the name also returns.
	st := NewSymbolStore(nil)
	st.Add(tableWith("file:///a.php",
		classWith("App\\User"),
		&symbol.Symbol{Kind: symbol.KindFunction, Name: "App\\load_user", Location: located("file:///a.php", 9)},
	))

	for _, name := range []string{"App\\User", "App\\load_user"} {
		found := st.Find(name, nil)
		require.NotEmpty(t, found, name)
		matched := st.Match(name[:4], nil)
		for _, f := range found {
			assert.Contains(t, matched, f, "match(prefix) must contain find(%s)", name)
		}
	}
}

func TestSymbolStore_MatchRanking(t *testing.T) {
	st := NewSymbolStore(nil)
	st.Add(tableWith("file:///a.php",
		classWith("Map"),
		classWith("Mapper"),
		classWith("Map\\Entry"),
	))

	got := st.Match("map", nil)
	require.NotEmpty(t, got)
	assert.Equal(t, "Map", got[0].Name, "exact match ranks first")
}

func TestSymbolStore_NamespaceSegmentKeys(t *testing.T) {
	st := NewSymbolStore(nil)
	st.Add(tableWith("file:///a.php",
		&symbol.Symbol{Kind: symbol.KindNamespace, Name: "Vendor\\Pkg\\Http", Location: located("file:///a.php", 0)},
	))

	assert.NotEmpty(t, st.Match("http", nil), "partial namespace segments prefix-match")
	assert.NotEmpty(t, st.Match("pkg", nil))
}

func TestSymbolStore_GlobalVariables(t *testing.T) {
	st := NewSymbolStore(nil)

	builtin := tableWith("phpindex://builtin",
		&symbol.Symbol{Kind: symbol.KindVariable, Name: "$_SERVER", Type: "array"},
		&symbol.Symbol{Kind: symbol.KindGlobalVariable, Name: "$shared", Type: "Db"},
	)
	st.InstallBuiltin(builtin)

	globals := st.GlobalVariables()
	names := map[string]string{}
	for _, g := range globals {
		names[g.Name] = g.Type
	}
	assert.Equal(t, "array", names["$_SERVER"], "location-less built-in variables stay visible")
	assert.Equal(t, "Db", names["$shared"])
}

func TestSymbolStore_FindSymbolsByReference(t *testing.T) {
	st := NewSymbolStore(nil)

	ctor := &symbol.Symbol{Kind: symbol.KindConstructor, Name: "__construct"}
	st.Add(tableWith("file:///a.php",
		classWith("F", ctor),
		&symbol.Symbol{Kind: symbol.KindFunction, Name: "A\\fn", Location: located("file:///a.php", 20)},
	))

	got := st.FindSymbolsByReference(&reference.Reference{Kind: symbol.KindConstructor, Name: "F"}, StrategyOverride)
	require.Len(t, got, 1)
	assert.Same(t, ctor, got[0])

	got = st.FindSymbolsByReference(&reference.Reference{Kind: symbol.KindFunction, Name: "A\\missing", AltName: "fn"}, StrategyOverride)
	assert.Empty(t, got, "global fallback only matches the global name")

	got = st.FindSymbolsByReference(&reference.Reference{Kind: symbol.KindClass, Name: "F"}, StrategyOverride)
	require.Len(t, got, 1)
}

func TestReferenceStore_FreezeSemantics(t *testing.T) {
	rs := NewReferenceStore()

	t1 := reference.NewTable("file:///a.php", symbol.Position{Line: 5}, 100)
	rs.Add(t1)
	assert.Same(t, t1, rs.Get("file:///a.php"))

	rs.Close("file:///a.php")
	t2 := reference.NewTable("file:///a.php", symbol.Position{Line: 9}, 200)
	rs.Add(t2)
	assert.Same(t, t1, rs.Get("file:///a.php"), "frozen tables ignore swaps")

	rs.Remove("file:///a.php")
	assert.Nil(t, rs.Get("file:///a.php"))
}
