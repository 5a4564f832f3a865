package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/phpindex/pkg/symbol"
)

func span(uri string, startLine, startChar, endLine, endChar uint32, startByte, endByte uint32) symbol.Location {
	return symbol.Location{URI: uri, Range: symbol.Range{
		Start:     symbol.Position{Line: startLine, Character: startChar},
		End:       symbol.Position{Line: endLine, Character: endChar},
		StartByte: startByte,
		EndByte:   endByte,
	}}
}

func buildTable() *Table {
	t := NewTable("file:///t.php", symbol.Position{Line: 20}, 500)

	classRef := &Reference{Kind: symbol.KindClass, Name: "A\\C", Location: span(t.URI, 1, 10, 1, 11, 25, 26)}
	t.Root.Add(classRef)

	fnScope := &Scope{Location: span(t.URI, 3, 0, 10, 1, 40, 200)}
	t.Root.Add(fnScope)

	varRef := &Reference{Kind: symbol.KindVariable, Name: "$x", Type: "A\\C", Location: span(t.URI, 4, 2, 4, 4, 50, 52)}
	fnScope.Add(varRef)
	fnScope.Add(&Reference{Kind: symbol.KindVariable, Name: "$x", Type: "A\\C", Location: span(t.URI, 5, 2, 5, 4, 60, 62)})
	fnScope.Add(&Reference{Kind: symbol.KindMethod, Name: "m", Scope: "A\\C", Location: span(t.URI, 6, 6, 6, 7, 80, 81)})

	return t
}

func TestReferenceAtPosition(t *testing.T) {
	tbl := buildTable()

	ref := tbl.ReferenceAtPosition(symbol.Position{Line: 1, Character: 10})
	require.NotNil(t, ref)
	assert.Equal(t, "A\\C", ref.Name)

	ref = tbl.ReferenceAtPosition(symbol.Position{Line: 4, Character: 3})
	require.NotNil(t, ref)
	assert.Equal(t, "$x", ref.Name)

	assert.Nil(t, tbl.ReferenceAtPosition(symbol.Position{Line: 15}))
}

func TestReferenceAtPosition_InnermostWins(t *testing.T) {
	tbl := NewTable("file:///t.php", symbol.Position{Line: 5}, 100)
	outer := &Reference{Kind: symbol.KindProperty, Name: "p", Location: span(tbl.URI, 0, 0, 0, 10, 0, 10)}
	inner := &Reference{Kind: symbol.KindVariable, Name: "$o", Location: span(tbl.URI, 0, 0, 0, 2, 0, 2)}
	tbl.Root.Add(outer)
	tbl.Root.Add(inner)

	got := tbl.ReferenceAtPosition(symbol.Position{Line: 0, Character: 1})
	require.NotNil(t, got)
	assert.Equal(t, "$o", got.Name)
}

func TestScopeAtPosition(t *testing.T) {
	tbl := buildTable()

	s := tbl.ScopeAtPosition(symbol.Position{Line: 5})
	require.NotNil(t, s)
	assert.NotSame(t, tbl.Root, s)

	s = tbl.ScopeAtPosition(symbol.Position{Line: 15})
	assert.Same(t, tbl.Root, s)
}

func TestVariableReferences_Dedup(t *testing.T) {
	tbl := buildTable()
	fnScope := tbl.ScopeAtPosition(symbol.Position{Line: 5})
	vars := fnScope.VariableReferences()
	require.Len(t, vars, 1)
	assert.Equal(t, "$x", vars[0].Name)
}

func TestFilterAndCount(t *testing.T) {
	tbl := buildTable()
	assert.Equal(t, 4, tbl.Count())

	methods := tbl.Filter(func(r *Reference) bool { return r.Kind == symbol.KindMethod })
	require.Len(t, methods, 1)
	assert.Equal(t, "A\\C", methods[0].Scope)
}
