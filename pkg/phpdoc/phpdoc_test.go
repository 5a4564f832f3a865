package phpdoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_NotDocComment(t *testing.T) {
	assert.Nil(t, Parse("// line comment"))
	assert.Nil(t, Parse("/* plain block */"))
}

func TestParse_SummaryOnly(t *testing.T) {
	b := Parse("/**\n * Returns the active user.\n */")
	require.NotNil(t, b)
	assert.Equal(t, "Returns the active user.", b.Summary)
	assert.Empty(t, b.Params)
}

func TestParse_ParamReturn(t *testing.T) {
	b := Parse(`/**
 * Loads a user.
 *
 * @param int|string $id the identifier
 * @param User $template
 * @return User|null the loaded user
 */`)
	require.NotNil(t, b)
	assert.Equal(t, "Loads a user.", b.Summary)

	require.Len(t, b.Params, 2)
	assert.Equal(t, Param{Type: "int|string", Name: "$id", Description: "the identifier"}, b.Params[0])
	assert.Equal(t, "User", b.Params[1].Type)

	require.NotNil(t, b.Returns)
	assert.Equal(t, "User|null", b.Returns.Type)
	assert.Equal(t, "the loaded user", b.Returns.Description)

	p := b.ParamTag("$id")
	require.NotNil(t, p)
	assert.Equal(t, "int|string", p.Type)
	assert.Nil(t, b.ParamTag("$missing"))
}

func TestParse_UntypedParam(t *testing.T) {
	b := Parse("/** @param $x plain */")
	require.Len(t, b.Params, 1)
	assert.Equal(t, "$x", b.Params[0].Name)
	assert.Empty(t, b.Params[0].Type)
}

func TestParse_Var(t *testing.T) {
	b := Parse("/** @var Foo[] $items loaded rows */")
	require.Len(t, b.Vars, 1)
	assert.Equal(t, Var{Type: "Foo[]", Name: "$items", Description: "loaded rows"}, b.Vars[0])

	// Unnamed @var applies to whatever follows.
	b = Parse("/** @var \\DateTime */")
	require.Len(t, b.Vars, 1)
	assert.Empty(t, b.Vars[0].Name)
	require.NotNil(t, b.VarTag("$anything"))
}

func TestParse_PropertyVariants(t *testing.T) {
	b := Parse(`/**
 * @property string $name
 * @property-read int $id immutable id
 * @property-write array $data
 */`)
	require.Len(t, b.Properties, 3)
	assert.False(t, b.Properties[0].ReadOnly)
	assert.True(t, b.Properties[1].ReadOnly)
	assert.Equal(t, "immutable id", b.Properties[1].Description)
	assert.True(t, b.Properties[2].WriteOnly)
}

func TestParse_Method(t *testing.T) {
	b := Parse(`/**
 * @method static User create(array $data, bool $flush = true) factory
 * @method string name()
 * @method magic()
 */`)
	require.Len(t, b.Methods, 3)

	m := b.Methods[0]
	assert.True(t, m.Static)
	assert.Equal(t, "User", m.ReturnType)
	assert.Equal(t, "create", m.Name)
	require.Len(t, m.Params, 2)
	assert.Equal(t, MethodParam{Type: "array", Name: "$data"}, m.Params[0])
	assert.Equal(t, MethodParam{Type: "bool", Name: "$flush"}, m.Params[1])
	assert.Contains(t, m.Description, "factory")

	assert.Equal(t, "name", b.Methods[1].Name)
	assert.Equal(t, "string", b.Methods[1].ReturnType)
	assert.False(t, b.Methods[1].Static)

	assert.Equal(t, "magic", b.Methods[2].Name)
	assert.Empty(t, b.Methods[2].ReturnType)
}

func TestParse_Global(t *testing.T) {
	b := Parse("/** @global \\wpdb $wpdb the db handle */")
	require.Len(t, b.Globals, 1)
	assert.Equal(t, "\\wpdb", b.Globals[0].Type)
	assert.Equal(t, "$wpdb", b.Globals[0].Name)
	require.NotNil(t, b.GlobalTag("$wpdb"))
	assert.Nil(t, b.GlobalTag("$other"))
}

func TestParse_MalformedTagsIgnored(t *testing.T) {
	b := Parse(`/**
 * @property string missingDollar
 * @global int noName
 */`)
	assert.Empty(t, b.Properties)
	assert.Empty(t, b.Globals)
}

func TestIsDocComment(t *testing.T) {
	assert.True(t, IsDocComment("/** x */"))
	assert.False(t, IsDocComment("/* x */"))
}
