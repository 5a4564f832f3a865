package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/phpindex/pkg/reference"
	"github.com/gnana997/phpindex/pkg/symbol"
)

func openTestIndex(t *testing.T) *PersistentIndex {
	t.Helper()
	pi, err := OpenPersistentIndex("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { pi.Close() })
	return pi
}

func TestPersistentIndex_PutGetSymbol(t *testing.T) {
	pi := openTestIndex(t)

	table := tableWith("file:///a.php",
		classWith("App\\UserRepo", method("findAll", "")),
		&symbol.Symbol{Kind: symbol.KindConstant, Name: "APP_MODE", Value: "'dev'", Location: located("file:///a.php", 40)},
	)
	require.NoError(t, pi.PutTable(table))

	s, err := pi.GetSymbol("app\\userrepo")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "App\\UserRepo", s.Name)
	assert.Equal(t, symbol.KindClass, s.Kind)

	// Constants keep their case in the key space.
	s, err = pi.GetSymbol("APP_MODE")
	require.NoError(t, err)
	require.NotNil(t, s)

	list, err := pi.URISymbols("file:///a.php")
	require.NoError(t, err)
	assert.NotEmpty(t, list)
}

func TestPersistentIndex_DeleteURI(t *testing.T) {
	pi := openTestIndex(t)

	table := tableWith("file:///a.php", classWith("Gone"))
	require.NoError(t, pi.PutTable(table))
	require.NoError(t, pi.DeleteURI("file:///a.php"))

	s, err := pi.GetSymbol("gone")
	require.NoError(t, err)
	assert.Nil(t, s)

	list, err := pi.URISymbols("file:///a.php")
	require.NoError(t, err)
	assert.Empty(t, list)

	entries, err := pi.MatchCompletion("gone", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPersistentIndex_PutTableReplaces(t *testing.T) {
	pi := openTestIndex(t)

	require.NoError(t, pi.PutTable(tableWith("file:///a.php", classWith("Old"))))
	require.NoError(t, pi.PutTable(tableWith("file:///a.php", classWith("New"))))

	s, err := pi.GetSymbol("old")
	require.NoError(t, err)
	assert.Nil(t, s)
	s, err = pi.GetSymbol("new")
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestPersistentIndex_CompletionScan(t *testing.T) {
	pi := openTestIndex(t)

	table := tableWith("file:///a.php", classWith("App\\UserRepo"))
	require.NoError(t, pi.PutTable(table))

	// "UserRepo" tokenizes into user + repo; both find the class.
	for _, token := range []string{"user", "repo", "app"} {
		entries, err := pi.MatchCompletion(token, 0)
		require.NoError(t, err)
		require.NotEmpty(t, entries, "token %q", token)
		assert.Equal(t, "App\\UserRepo", entries[0].Name)
		assert.Equal(t, "file:///a.php", entries[0].URI)
	}
}

func TestPersistentIndex_References(t *testing.T) {
	pi := openTestIndex(t)

	rt := reference.NewTable("file:///a.php", symbol.Position{Line: 9}, 100)
	rt.Root.Add(&reference.Reference{
		Kind: symbol.KindClass, Name: "App\\User",
		Location: symbol.Location{URI: rt.URI, Range: symbol.Range{StartByte: 10, EndByte: 14}},
	})
	require.NoError(t, pi.PutReferences(rt))

	got, err := pi.GetReferences("file:///a.php")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "App\\User", got[0].Name)

	missing, err := pi.GetReferences("file:///none.php")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPersistentIndex_CompletionCache(t *testing.T) {
	pi := openTestIndex(t)

	require.NoError(t, pi.PutTable(tableWith("file:///a.php", classWith("App\\UserRepo"))))

	first, err := pi.MatchCompletion("user", 0)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Served from cache, and the caller's copy is isolated.
	first[0].Name = "mutated"
	second, err := pi.MatchCompletion("user", 0)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "App\\UserRepo", second[0].Name)

	// A document write invalidates the cached scans.
	require.NoError(t, pi.PutTable(tableWith("file:///b.php", classWith("Lib\\UserMapper"))))
	third, err := pi.MatchCompletion("user", 0)
	require.NoError(t, err)
	assert.Len(t, third, 2)

	require.NoError(t, pi.DeleteURI("file:///b.php"))
	fourth, err := pi.MatchCompletion("user", 0)
	require.NoError(t, err)
	assert.Len(t, fourth, 1)
}

func TestCompletionTokens(t *testing.T) {
	tests := []struct {
		name string
		kind symbol.Kind
		want []string
	}{
		{"App\\UserRepo", symbol.KindClass, []string{"app", "user", "repo"}},
		{"load_user", symbol.KindFunction, []string{"load", "user"}},
		{"$maxCount", symbol.KindVariable, []string{"max", "Count"}},
		{"APP_MODE", symbol.KindConstant, []string{"APP", "MODE"}},
		{"XMLHttpRequest", symbol.KindClass, []string{"xmlhttp", "request"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompletionTokens(tt.name, tt.kind))
		})
	}
}

func TestCompletionTokens_Dedup(t *testing.T) {
	got := CompletionTokens("User\\User", symbol.KindClass)
	assert.Equal(t, []string{"user"}, got)
}
