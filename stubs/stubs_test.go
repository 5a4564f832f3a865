package stubs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/phpindex/pkg/symbol"
)

func TestLoad(t *testing.T) {
	table, err := Load()
	require.NoError(t, err)
	require.NotNil(t, table)
	assert.Equal(t, BuiltinURI, table.URI)
	assert.Greater(t, table.Count(), 50)
}

func TestLoad_ExceptionShape(t *testing.T) {
	table, err := Load()
	require.NoError(t, err)

	var exc *symbol.Symbol
	table.Traverse(func(s *symbol.Symbol) bool {
		if s.Name == "Exception" && s.Kind == symbol.KindClass {
			exc = s
			return false
		}
		return true
	})
	require.NotNil(t, exc)

	require.Len(t, exc.Associated, 1)
	assert.Equal(t, "Throwable", exc.Associated[0].Name)

	ctor := exc.FindChild(func(s *symbol.Symbol) bool { return s.Kind == symbol.KindConstructor })
	require.NotNil(t, ctor)
	assert.Len(t, ctor.Parameters(), 3)
	assert.True(t, ctor.Modifiers.Has(symbol.ModifierPublic), "callable members default to public")

	msg := exc.FindChild(func(s *symbol.Symbol) bool { return s.Name == "getMessage" })
	require.NotNil(t, msg)
	assert.Equal(t, "string", msg.Type)
	assert.Equal(t, "Exception", msg.Scope, "members are stamped with the owning class")
}

func TestLoad_SuperglobalsHaveNoLocation(t *testing.T) {
	table, err := Load()
	require.NoError(t, err)

	var server *symbol.Symbol
	table.Traverse(func(s *symbol.Symbol) bool {
		if s.Name == "$_SERVER" {
			server = s
			return false
		}
		return true
	})
	require.NotNil(t, server)
	assert.Equal(t, symbol.KindVariable, server.Kind)
	assert.True(t, server.Location.IsZero())
	assert.Equal(t, "array", server.Type)
}

func TestLoadBytes_Invalid(t *testing.T) {
	_, err := LoadBytes([]byte(`[{"kind":"wizard","name":"x"}]`))
	assert.Error(t, err)

	_, err = LoadBytes([]byte(`not json`))
	assert.Error(t, err)
}
