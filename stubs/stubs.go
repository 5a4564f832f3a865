// Package stubs provides the embedded built-in symbol table: core PHP
// classes, interfaces, functions, constants and superglobals, shipped with
// the indexer and installed into the symbol store at startup.
package stubs

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/gnana997/phpindex/pkg/symbol"
)

// BuiltinJSON is the bundled core-PHP stub set, embedded at build time.
//
//go:embed builtin.json
var BuiltinJSON []byte

// BuiltinURI identifies the synthetic document owning the stubs.
const BuiltinURI = "phpindex://builtin"

// stubRecord is the authoring schema of builtin.json: symbol kinds are
// written as strings, everything else mirrors the symbol model. Stubs carry
// no locations, which keeps built-in variables searchable.
type stubRecord struct {
	Kind       string       `json:"kind"`
	Name       string       `json:"name"`
	Modifiers  []string     `json:"modifiers,omitempty"`
	Type       string       `json:"type,omitempty"`
	Value      string       `json:"value,omitempty"`
	Doc        string       `json:"doc,omitempty"`
	Associated []stubRecord `json:"associated,omitempty"`
	Children   []stubRecord `json:"children,omitempty"`
}

var kindNames = map[string]symbol.Kind{
	"namespace":       symbol.KindNamespace,
	"class":           symbol.KindClass,
	"interface":       symbol.KindInterface,
	"trait":           symbol.KindTrait,
	"constant":        symbol.KindConstant,
	"class_constant":  symbol.KindClassConstant,
	"property":        symbol.KindProperty,
	"method":          symbol.KindMethod,
	"constructor":     symbol.KindConstructor,
	"function":        symbol.KindFunction,
	"parameter":       symbol.KindParameter,
	"variable":        symbol.KindVariable,
	"global_variable": symbol.KindGlobalVariable,
}

var modifierNames = map[string]symbol.Modifier{
	"public":    symbol.ModifierPublic,
	"protected": symbol.ModifierProtected,
	"private":   symbol.ModifierPrivate,
	"final":     symbol.ModifierFinal,
	"abstract":  symbol.ModifierAbstract,
	"static":    symbol.ModifierStatic,
	"readonly":  symbol.ModifierReadOnly,
	"magic":     symbol.ModifierMagic,
}

// Load parses the embedded stub set into a symbol table.
func Load() (*symbol.Table, error) {
	return LoadBytes(BuiltinJSON)
}

// LoadBytes parses a stub set from raw JSON.
func LoadBytes(data []byte) (*symbol.Table, error) {
	var records []stubRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse builtin stubs: %w", err)
	}

	table := symbol.NewTable(BuiltinURI, symbol.Position{}, 0)
	table.Root.Location = symbol.Location{}
	for i := range records {
		s, err := records[i].toSymbol("")
		if err != nil {
			return nil, err
		}
		table.Root.Children = append(table.Root.Children, s)
	}
	return table, nil
}

func (r *stubRecord) toSymbol(scope string) (*symbol.Symbol, error) {
	kind, ok := kindNames[r.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown stub kind %q for %q", r.Kind, r.Name)
	}
	s := &symbol.Symbol{
		Kind:  kind,
		Name:  r.Name,
		Scope: scope,
		Type:  r.Type,
		Value: r.Value,
	}
	for _, m := range r.Modifiers {
		mod, ok := modifierNames[m]
		if !ok {
			return nil, fmt.Errorf("unknown stub modifier %q on %q", m, r.Name)
		}
		s.Modifiers |= mod
	}
	if kind.IsCallable() && s.Modifiers.Visibility() == 0 && kind != symbol.KindFunction {
		s.Modifiers |= symbol.ModifierPublic
	}
	if kind == symbol.KindClassConstant {
		s.Modifiers |= symbol.ModifierStatic
	}
	if r.Doc != "" {
		s.Doc = &symbol.Doc{Description: r.Doc}
	}
	for i := range r.Associated {
		a, err := r.Associated[i].toSymbol("")
		if err != nil {
			return nil, err
		}
		s.Associated = append(s.Associated, a)
	}
	childScope := scope
	if kind.IsClassLike() {
		childScope = s.Name
	}
	for i := range r.Children {
		c, err := r.Children[i].toSymbol(childScope)
		if err != nil {
			return nil, err
		}
		s.Children = append(s.Children, c)
	}
	return s, nil
}
