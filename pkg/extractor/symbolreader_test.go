package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/phpindex/pkg/parser"
	"github.com/gnana997/phpindex/pkg/symbol"
)

func parsePHP(t *testing.T, src string) ([]byte, *symbol.Table) {
	t.Helper()
	pm := parser.NewManager(nil)
	t.Cleanup(func() { pm.Close() })

	tree, err := pm.Parse([]byte(src), parser.LanguagePHP)
	require.NoError(t, err)
	t.Cleanup(tree.Close)

	table := NewSymbolReader(nil).Read("file:///t.php", []byte(src), tree)
	require.NotNil(t, table)
	return []byte(src), table
}

func findByName(table *symbol.Table, name string) *symbol.Symbol {
	var found *symbol.Symbol
	table.Traverse(func(s *symbol.Symbol) bool {
		if s.Name == name {
			found = s
			return false
		}
		return true
	})
	return found
}

func TestSymbolReader_NamespaceUseVariable(t *testing.T) {
	_, table := parsePHP(t, `<?php
namespace A;
use B\C;
$x = new C();
`)
	root := table.Root
	require.Equal(t, symbol.KindFile, root.Kind)
	require.Len(t, root.Children, 1)

	ns := root.Children[0]
	assert.Equal(t, symbol.KindNamespace, ns.Kind)
	assert.Equal(t, "A", ns.Name)

	use := ns.FindChild(func(s *symbol.Symbol) bool { return s.Modifiers.Has(symbol.ModifierUse) })
	require.NotNil(t, use)
	assert.Equal(t, "C", use.Name)
	require.Len(t, use.Associated, 1)
	assert.Equal(t, symbol.KindClass, use.Associated[0].Kind)
	assert.Equal(t, "B\\C", use.Associated[0].Name)

	// $x is a file-level variable (the file root owns top-level locals).
	v := findByName(table, "$x")
	require.NotNil(t, v)
	assert.Equal(t, symbol.KindVariable, v.Kind)
}

func TestSymbolReader_ClassMembers(t *testing.T) {
	_, table := parsePHP(t, `<?php
namespace App;

class Repo extends Base implements Countable {
    use Helper;

    const LIMIT = 100;
    public static $shared;
    private ?string $name = 'x';

    public function fetch(int $id, array $opts = []): ?Item {
        $row = $id;
        return null;
    }

    function plain() {}
}
`)
	class := findByName(table, "App\\Repo")
	require.NotNil(t, class)
	assert.Equal(t, symbol.KindClass, class.Kind)

	// Associations: base, implemented interface, used trait, in order.
	require.Len(t, class.Associated, 3)
	assert.Equal(t, symbol.KindClass, class.Associated[0].Kind)
	assert.Equal(t, "App\\Base", class.Associated[0].Name)
	assert.Equal(t, symbol.KindInterface, class.Associated[1].Kind)
	assert.Equal(t, "App\\Countable", class.Associated[1].Name)
	assert.Equal(t, symbol.KindTrait, class.Associated[2].Kind)
	assert.Equal(t, "App\\Helper", class.Associated[2].Name)

	limit := class.FindChild(func(s *symbol.Symbol) bool { return s.Kind == symbol.KindClassConstant })
	require.NotNil(t, limit)
	assert.Equal(t, "LIMIT", limit.Name)
	assert.True(t, limit.Modifiers.Has(symbol.ModifierStatic), "class constants are implicitly static")
	assert.Equal(t, "100", limit.Value)
	assert.Equal(t, "int", limit.Type)
	assert.Equal(t, "App\\Repo", limit.Scope)

	shared := class.FindChild(func(s *symbol.Symbol) bool { return s.Name == "$shared" })
	require.NotNil(t, shared)
	assert.Equal(t, symbol.KindProperty, shared.Kind)
	assert.True(t, shared.Modifiers.Has(symbol.ModifierPublic|symbol.ModifierStatic))

	name := class.FindChild(func(s *symbol.Symbol) bool { return s.Name == "$name" })
	require.NotNil(t, name)
	assert.True(t, name.Modifiers.Has(symbol.ModifierPrivate))
	assert.Equal(t, "string|null", name.Type)
	assert.Equal(t, "'x'", name.Value)

	fetch := class.FindChild(func(s *symbol.Symbol) bool { return s.Name == "fetch" })
	require.NotNil(t, fetch)
	assert.Equal(t, symbol.KindMethod, fetch.Kind)
	assert.Equal(t, "App\\Item|null", fetch.Type)
	params := fetch.Parameters()
	require.Len(t, params, 2)
	assert.Equal(t, "$id", params[0].Name)
	assert.Equal(t, "int", params[0].Type)
	assert.Equal(t, "[]", params[1].Value)
	// Locals are stamped with the owning function scope.
	row := fetch.FindChild(func(s *symbol.Symbol) bool { return s.Name == "$row" })
	require.NotNil(t, row)
	assert.Equal(t, "App\\Repo::fetch", row.Scope)

	plain := class.FindChild(func(s *symbol.Symbol) bool { return s.Name == "plain" })
	require.NotNil(t, plain)
	assert.True(t, plain.Modifiers.Has(symbol.ModifierPublic), "methods default to public")
}

func TestSymbolReader_ConstructorKind(t *testing.T) {
	_, table := parsePHP(t, `<?php
class F { function __construct($p) {} }
`)
	class := findByName(table, "F")
	require.NotNil(t, class)
	ctor := class.FindChild(func(s *symbol.Symbol) bool { return s.Kind == symbol.KindConstructor })
	require.NotNil(t, ctor)
	assert.Equal(t, "__construct", ctor.Name)
	require.Len(t, ctor.Parameters(), 1)
	assert.Equal(t, "($p)", ctor.SignatureString())
}

func TestSymbolReader_DocComments(t *testing.T) {
	_, table := parsePHP(t, `<?php
/**
 * Loads things.
 * @param int|string $id which one
 * @return Item|null
 */
function load($id) {}

/** stale doc consumed by load, not attached here */
$unrelated = 1;
function bare() {}
`)
	load := findByName(table, "load")
	require.NotNil(t, load)
	require.NotNil(t, load.Doc)
	assert.Equal(t, "Loads things.", load.Doc.Description)
	assert.Equal(t, "Item|null", load.Doc.Type)

	p := load.Parameters()[0]
	require.NotNil(t, p.Doc)
	assert.Equal(t, "int|string", p.Doc.Type)
	assert.Equal(t, "int|string", p.Type)

	// The statement between the second doc and bare() invalidates it.
	bare := findByName(table, "bare")
	require.NotNil(t, bare)
	assert.Nil(t, bare.Doc)
}

func TestSymbolReader_MagicMembers(t *testing.T) {
	_, table := parsePHP(t, `<?php
/**
 * @property string $name
 * @property-read int $id
 * @method static self create(array $data)
 */
class Model {}
`)
	class := findByName(table, "Model")
	require.NotNil(t, class)

	name := class.FindChild(func(s *symbol.Symbol) bool { return s.Name == "$name" })
	require.NotNil(t, name)
	assert.True(t, name.Modifiers.Has(symbol.ModifierMagic|symbol.ModifierPublic))
	assert.Equal(t, "string", name.Type)

	id := class.FindChild(func(s *symbol.Symbol) bool { return s.Name == "$id" })
	require.NotNil(t, id)
	assert.True(t, id.Modifiers.Has(symbol.ModifierReadOnly))

	create := class.FindChild(func(s *symbol.Symbol) bool { return s.Name == "create" })
	require.NotNil(t, create)
	assert.Equal(t, symbol.KindMethod, create.Kind)
	assert.True(t, create.Modifiers.Has(symbol.ModifierMagic|symbol.ModifierStatic|symbol.ModifierPublic))
	require.Len(t, create.Parameters(), 1)
	assert.Equal(t, "$data", create.Parameters()[0].Name)
}

func TestSymbolReader_DefineConstant(t *testing.T) {
	_, table := parsePHP(t, `<?php
define('APP_VERSION', '1.2.3');
define("\\Vendor\\FLAG", true);
`)
	v := findByName(table, "APP_VERSION")
	require.NotNil(t, v)
	assert.Equal(t, symbol.KindConstant, v.Kind)
	assert.Equal(t, "'1.2.3'", v.Value)
	assert.Equal(t, "string", v.Type)

	flag := findByName(table, "Vendor\\FLAG")
	require.NotNil(t, flag, "leading separator stripped from define name")
}

func TestSymbolReader_AnonymousFunction(t *testing.T) {
	src := `<?php
$fn = function ($a) use ($outer) { $inner = $a; };
`
	_, table := parsePHP(t, src)

	var anon *symbol.Symbol
	table.Traverse(func(s *symbol.Symbol) bool {
		if s.Modifiers.Has(symbol.ModifierAnonymous) {
			anon = s
			return false
		}
		return true
	})
	require.NotNil(t, anon)
	assert.Equal(t, symbol.KindFunction, anon.Kind)
	assert.Contains(t, anon.Name, "#anon#file:///t.php#")

	capture := anon.FindChild(func(s *symbol.Symbol) bool { return s.Name == "$outer" })
	require.NotNil(t, capture)
	assert.Equal(t, symbol.KindVariable, capture.Kind)
	assert.True(t, capture.Modifiers.Has(symbol.ModifierUse))

	inner := anon.FindChild(func(s *symbol.Symbol) bool { return s.Name == "$inner" })
	require.NotNil(t, inner, "closure locals belong to the closure, not the file")
}

func TestSymbolReader_VariableDedupAndSuperglobals(t *testing.T) {
	_, table := parsePHP(t, `<?php
function f() {
    $x = 1;
    $x = 2;
    $y = $_POST;
    $z = $this;
}
`)
	fn := findByName(table, "f")
	require.NotNil(t, fn)

	var xs int
	for _, c := range fn.Children {
		if c.Name == "$x" {
			xs++
		}
	}
	assert.Equal(t, 1, xs, "repeated occurrences create one symbol")
	assert.Nil(t, fn.FindChild(func(s *symbol.Symbol) bool { return s.Name == "$_POST" }))
	assert.Nil(t, fn.FindChild(func(s *symbol.Symbol) bool { return s.Name == "$this" }))
}

func TestSymbolReader_CatchVariable(t *testing.T) {
	_, table := parsePHP(t, `<?php
try {} catch (\RuntimeException | \LogicException $e) {}
`)
	e := findByName(table, "$e")
	require.NotNil(t, e)
	assert.Equal(t, symbol.KindVariable, e.Kind)
	assert.Equal(t, "RuntimeException|LogicException", e.Type)
}

func TestSymbolReader_GlobalVariableDoc(t *testing.T) {
	_, table := parsePHP(t, `<?php
function f() {
    /** @global \Db $db shared handle */
    global $db;
}
`)
	g := findByName(table, "$db")
	require.NotNil(t, g)
	assert.Equal(t, symbol.KindGlobalVariable, g.Kind)
	assert.Equal(t, "Db", g.Type)
}

func TestSymbolReader_GroupedUse(t *testing.T) {
	_, table := parsePHP(t, `<?php
use Vendor\Pkg\{ClassA, Sub\ClassB as B, function helper};
`)
	a := findByName(table, "ClassA")
	require.NotNil(t, a)
	assert.Equal(t, "Vendor\\Pkg\\ClassA", a.Associated[0].Name)

	b := findByName(table, "B")
	require.NotNil(t, b)
	assert.Equal(t, "Vendor\\Pkg\\Sub\\ClassB", b.Associated[0].Name)

	h := findByName(table, "helper")
	require.NotNil(t, h)
	assert.Equal(t, symbol.KindFunction, h.Associated[0].Kind)
}

func TestSymbolReader_PartialOnParseError(t *testing.T) {
	_, table := parsePHP(t, `<?php
class Good { public function ok() {} }
class Broken {{{
`)
	assert.NotNil(t, findByName(table, "Good"), "clean declarations survive error recovery")
}

func TestSymbolReader_Idempotent(t *testing.T) {
	src := `<?php
namespace A;
use B\C;
class D extends C { public function m(int $p) { $v = $p; } }
`
	_, first := parsePHP(t, src)
	_, second := parsePHP(t, src)

	f := first.Preorder()
	s := second.Preorder()
	require.Equal(t, len(f), len(s))
	for i := range f {
		assert.Equal(t, f[i].Kind, s[i].Kind)
		assert.Equal(t, f[i].Name, s[i].Name)
		assert.Equal(t, f[i].Location, s[i].Location, "location-equality for %s", f[i].Name)
	}
}

func TestSymbolReader_BracedNamespaceRestores(t *testing.T) {
	_, table := parsePHP(t, `<?php
namespace A {
    class In {}
}
namespace {
    class Global0 {}
}
`)
	in := findByName(table, "A\\In")
	require.NotNil(t, in)
	g := findByName(table, "Global0")
	require.NotNil(t, g, "empty namespace block declares at global scope")
}
