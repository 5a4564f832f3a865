package features

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/phpindex/pkg/symbol"
	"github.com/gnana997/phpindex/pkg/workspace"
)

// openWorkspace builds a workspace with one open document.
func openWorkspace(t *testing.T, src string) (*Service, string) {
	t.Helper()
	ws := workspace.New(workspace.Config{}, nil)
	t.Cleanup(ws.Shutdown)

	uri := "file:///t.php"
	require.NoError(t, ws.OpenDocument(uri, []byte(src), 1))
	return NewService(ws), uri
}

// posOf returns the position of the first occurrence of needle in src,
// offset by delta characters.
func posOf(t *testing.T, src, needle string, delta int) symbol.Position {
	t.Helper()
	idx := strings.Index(src, needle)
	require.GreaterOrEqual(t, idx, 0, "needle %q", needle)
	idx += delta

	line := uint32(0)
	col := uint32(0)
	for i := 0; i < idx; i++ {
		if src[i] == '\n' {
			line++
			col = 0
		} else {
			col++
		}
	}
	return symbol.Position{Line: line, Character: col}
}

func TestSignatureHelp_Constructor(t *testing.T) {
	src := `<?php
class F { function __construct($p) {} }
new F();
`
	svc, uri := openWorkspace(t, src)

	// Cursor between the parentheses of new F(|).
	pos := posOf(t, src, "new F(", len("new F("))
	help := svc.SignatureHelp(uri, pos)
	require.NotNil(t, help)
	assert.Equal(t, "F($p)", help.Label)
	assert.Equal(t, 0, help.ActiveParameter)
	require.Len(t, help.Parameters, 1)
	assert.Equal(t, "$p", help.Parameters[0].Label)
}

func TestSignatureHelp_SecondParameter(t *testing.T) {
	src := `<?php
function fn1($p1, $p2 = 1) {}
fn1($x, );
`
	svc, uri := openWorkspace(t, src)

	pos := posOf(t, src, "fn1($x, ", len("fn1($x, "))
	help := svc.SignatureHelp(uri, pos)
	require.NotNil(t, help)
	assert.Equal(t, "fn1($p1, $p2 = 1)", help.Label)
	assert.Equal(t, 1, help.ActiveParameter)
}

func TestCompletion_Variables(t *testing.T) {
	src := `<?php
function f() {
    $apple = 1;
    $apricot = 2;
    $banana = 3;
    return $ap;
}
`
	svc, uri := openWorkspace(t, src)

	pos := posOf(t, src, "return $ap", len("return $ap"))
	items := svc.Completion(uri, pos, "$ap")
	labels := make([]string, 0, len(items))
	for _, it := range items {
		labels = append(labels, it.Label)
	}
	assert.Contains(t, labels, "$apple")
	assert.Contains(t, labels, "$apricot")
	assert.NotContains(t, labels, "$banana")
}

func TestCompletion_Members(t *testing.T) {
	src := `<?php
class Box {
    public $size = 1;
    private $secret = 2;
    public function open() {}
}
$b = new Box();
$b->open();
`
	svc, uri := openWorkspace(t, src)

	pos := posOf(t, src, "$b->open", len("$b->"))
	items := svc.Completion(uri, pos, "")
	labels := make([]string, 0, len(items))
	for _, it := range items {
		labels = append(labels, it.Label)
	}
	assert.Contains(t, labels, "open")
	assert.Contains(t, labels, "size")
	assert.NotContains(t, labels, "secret", "private members hidden outside the class")
}

func TestCompletion_WorkspaceNames(t *testing.T) {
	src := `<?php
class Mapper {}
class Mapping {}
function mapify() {}
`
	svc, uri := openWorkspace(t, src)

	items := svc.Completion(uri, symbol.Position{Line: 4}, "map")
	require.NotEmpty(t, items)
	labels := make([]string, 0, len(items))
	for _, it := range items {
		labels = append(labels, it.Label)
	}
	assert.Contains(t, labels, "Mapper")
	assert.Contains(t, labels, "mapify")
}

func TestDefinitionAndHover(t *testing.T) {
	src := `<?php
/** Greets someone. */
function greet(string $name): string { return $name; }
greet("hi");
`
	svc, uri := openWorkspace(t, src)

	callPos := posOf(t, src, `greet("hi")`, 2)
	defs := svc.Definition(uri, callPos)
	require.NotEmpty(t, defs)
	assert.Equal(t, uri, defs[0].URI)
	assert.Equal(t, uint32(2), defs[0].Range.Start.Line)

	hover := svc.Hover(uri, callPos)
	assert.Contains(t, hover, "greet")
	assert.Contains(t, hover, "string $name")
	assert.Contains(t, hover, "Greets someone.")
}

func TestReferencesOf(t *testing.T) {
	src := `<?php
class Target {}
$a = new Target();
$b = new Target();
`
	svc, uri := openWorkspace(t, src)

	pos := posOf(t, src, "class Target", len("class T"))
	locs := svc.ReferencesOf(uri, pos)
	// Declaration name plus two constructor references.
	assert.GreaterOrEqual(t, len(locs), 3)
}

func TestDocumentSymbols(t *testing.T) {
	src := `<?php
namespace App;
use Other\Thing;
class C { public function m($p) { $v = 1; } }
`
	svc, uri := openWorkspace(t, src)

	syms := svc.DocumentSymbols(uri)
	names := make([]string, 0, len(syms))
	for _, s := range syms {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "App")
	assert.Contains(t, names, "App\\C")
	assert.Contains(t, names, "m")
	assert.NotContains(t, names, "$v", "locals excluded")
	assert.NotContains(t, names, "$p", "parameters excluded")
	assert.NotContains(t, names, "Thing", "use aliases excluded")
}

func TestWorkspaceSymbols(t *testing.T) {
	src := `<?php
class Alpha {}
class Alphabet {}
`
	svc, _ := openWorkspace(t, src)

	syms := svc.WorkspaceSymbols("alpha", 0)
	require.Len(t, syms, 2)
	assert.Equal(t, "Alpha", syms[0].Name, "exact match first")

	limited := svc.WorkspaceSymbols("alpha", 1)
	assert.Len(t, limited, 1)
}
