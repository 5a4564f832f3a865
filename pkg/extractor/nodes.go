// Package extractor implements the two tree walks that turn a parsed PHP
// document into its symbol table and its reference table.
//
// The SymbolReader runs first and synthesizes the per-file symbol tree. The
// ReferenceReader runs second, consuming the same parse tree in lockstep
// with the symbol tree it produced, performing local flow-sensitive type
// inference and emitting a reference table organized by lexical scope.
package extractor

import (
	"errors"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/phpindex/pkg/symbol"
	"github.com/gnana997/phpindex/pkg/typestring"
)

// ErrTornTree is returned when the reference reader's next expected symbol
// does not match the tree position. The reference table for that document is
// discarded: symbol and reference tables must stay in lockstep.
var ErrTornTree = errors.New("symbol sequence does not match tree position")

// PHP grammar node kinds the readers dispatch on.
const (
	kindProgram              = "program"
	kindComment              = "comment"
	kindNamespaceDef         = "namespace_definition"
	kindNamespaceUse         = "namespace_use_declaration"
	kindNamespaceUseClause   = "namespace_use_clause"
	kindNamespaceUseGroup    = "namespace_use_group"
	kindNamespaceAliasing    = "namespace_aliasing_clause"
	kindNamespaceName        = "namespace_name"
	kindClassDecl            = "class_declaration"
	kindInterfaceDecl        = "interface_declaration"
	kindTraitDecl            = "trait_declaration"
	kindEnumDecl             = "enum_declaration"
	kindEnumCase             = "enum_case"
	kindBaseClause           = "base_clause"
	kindInterfaceClause      = "class_interface_clause"
	kindUseDecl              = "use_declaration"
	kindDeclarationList      = "declaration_list"
	kindMethodDecl           = "method_declaration"
	kindFunctionDef          = "function_definition"
	kindAnonymousFunction    = "anonymous_function"
	// Grammar versions before the 0.22 rename used the long form.
	kindAnonymousFunctionOld = "anonymous_function_creation_expression"
	kindArrowFunction        = "arrow_function"
	kindAnonFunctionUse      = "anonymous_function_use_clause"
	kindFormalParameters     = "formal_parameters"
	kindSimpleParameter      = "simple_parameter"
	kindVariadicParameter    = "variadic_parameter"
	kindPromotionParameter   = "property_promotion_parameter"
	kindPropertyDecl         = "property_declaration"
	kindPropertyElement      = "property_element"
	kindConstDecl            = "const_declaration"
	kindConstElement         = "const_element"
	kindGlobalDecl           = "global_declaration"
	kindCatchClause          = "catch_clause"
	kindTypeList             = "type_list"
	kindVariableName         = "variable_name"
	kindName                 = "name"
	kindQualifiedName        = "qualified_name"
	kindRelativeScope        = "relative_scope"
	kindObjectCreation       = "object_creation_expression"
	kindFunctionCall         = "function_call_expression"
	kindMemberAccess         = "member_access_expression"
	kindNullsafeMemberAccess = "nullsafe_member_access_expression"
	kindMemberCall           = "member_call_expression"
	kindNullsafeMemberCall   = "nullsafe_member_call_expression"
	kindScopedCall           = "scoped_call_expression"
	kindScopedProperty       = "scoped_property_access_expression"
	kindClassConstantAccess  = "class_constant_access_expression"
	kindSubscript            = "subscript_expression"
	kindAssignment           = "assignment_expression"
	kindAugmentedAssignment  = "augmented_assignment_expression"
	kindBinary               = "binary_expression"
	kindConditional          = "conditional_expression"
	kindIfStatement          = "if_statement"
	kindElseIfClause         = "else_if_clause"
	kindElseClause           = "else_clause"
	kindSwitchStatement      = "switch_statement"
	kindForeachStatement     = "foreach_statement"
	kindForeachPair          = "foreach_pair"
	kindArguments            = "arguments"
	kindArgument             = "argument"
	kindParenthesized        = "parenthesized_expression"
	kindCompoundStatement    = "compound_statement"
	kindExpressionStatement  = "expression_statement"
	kindReturnStatement      = "return_statement"
	kindErrorNode            = "ERROR"
)

// superglobals are never emitted as declared variables.
var superglobals = map[string]bool{
	"$GLOBALS":  true,
	"$_SERVER":  true,
	"$_GET":     true,
	"$_POST":    true,
	"$_FILES":   true,
	"$_COOKIE":  true,
	"$_SESSION": true,
	"$_REQUEST": true,
	"$_ENV":     true,
	"$this":     true,
}

// IsSuperglobal reports whether the $-prefixed variable name is a PHP
// superglobal (or $this).
func IsSuperglobal(name string) bool {
	return superglobals[name]
}

// nodeLocation converts a node's span into a symbol.Location.
func nodeLocation(uri string, node *ts.Node) symbol.Location {
	start := node.StartPosition()
	end := node.EndPosition()
	return symbol.Location{
		URI: uri,
		Range: symbol.Range{
			Start:     symbol.Position{Line: uint32(start.Row), Character: uint32(start.Column)},
			End:       symbol.Position{Line: uint32(end.Row), Character: uint32(end.Column)},
			StartByte: uint32(node.StartByte()),
			EndByte:   uint32(node.EndByte()),
		},
	}
}

// childOfKind returns the first direct child with the given kind, or nil.
func childOfKind(node *ts.Node, kind string) *ts.Node {
	for i := uint(0); i < node.ChildCount(); i++ {
		if c := node.Child(i); c.Kind() == kind {
			return c
		}
	}
	return nil
}

// childrenOfKind returns every direct child with the given kind.
func childrenOfKind(node *ts.Node, kind string) []*ts.Node {
	var out []*ts.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		if c := node.Child(i); c.Kind() == kind {
			out = append(out, c)
		}
	}
	return out
}

// hasChildToken reports whether a direct child's text equals token (used for
// the bare `function` / `const` keywords inside use declarations).
func hasChildToken(node *ts.Node, src []byte, token string) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		c := node.Child(i)
		if !c.IsNamed() && c.Utf8Text(src) == token {
			return true
		}
	}
	return false
}

// collectModifiers folds the *_modifier children of a declaration node into
// a bitset.
func collectModifiers(node *ts.Node, src []byte) symbol.Modifier {
	var mod symbol.Modifier
	for i := uint(0); i < node.ChildCount(); i++ {
		c := node.Child(i)
		switch c.Kind() {
		case "visibility_modifier", "static_modifier", "final_modifier",
			"abstract_modifier", "readonly_modifier", "var_modifier":
			mod |= symbol.ParseModifier(c.Utf8Text(src))
		}
	}
	return mod
}

// stripQuotes removes one layer of single or double quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// isStringLiteral reports whether the node is a plain string literal.
func isStringLiteral(node *ts.Node) bool {
	switch node.Kind() {
	case "string", "encapsed_string":
		return true
	default:
		return false
	}
}

// literalType maps a literal expression node to its scalar type, "" when the
// node is not a literal.
func literalType(node *ts.Node) string {
	switch node.Kind() {
	case "integer":
		return "int"
	case "float":
		return "float"
	case "string", "encapsed_string", "heredoc", "nowdoc", "shell_command_expression":
		return "string"
	case "boolean":
		return "bool"
	case "null":
		return "null"
	case "array_creation_expression":
		return "array"
	default:
		return ""
	}
}

// classBodyNode returns the member list of a class-like declaration. Enums
// use their own body kind.
func classBodyNode(node *ts.Node) *ts.Node {
	if body := childOfKind(node, kindDeclarationList); body != nil {
		return body
	}
	return childOfKind(node, "enum_declaration_list")
}

// lockstepSymbol reports whether a symbol participates in the symbol/
// reference lockstep sequence: the declarative kinds both readers visit at a
// tree node. Magic members have no tree node and are excluded; so are
// variables, global variables and file roots.
func lockstepSymbol(s *symbol.Symbol) bool {
	if s.Modifiers.Has(symbol.ModifierMagic) {
		return false
	}
	switch s.Kind {
	case symbol.KindNamespace, symbol.KindClass, symbol.KindInterface,
		symbol.KindTrait, symbol.KindFunction, symbol.KindMethod,
		symbol.KindConstructor, symbol.KindParameter, symbol.KindConstant,
		symbol.KindClassConstant, symbol.KindProperty:
		return true
	default:
		return false
	}
}

// defineArguments recognizes the define(literal, value) constant-declaration
// idiom. Returns the name literal and value expression nodes.
func defineArguments(node *ts.Node, src []byte) (name, value *ts.Node, ok bool) {
	fn := node.ChildByFieldName("function")
	if fn == nil || fn.Kind() != kindName || !strings.EqualFold(fn.Utf8Text(src), "define") {
		return nil, nil, false
	}
	args := node.ChildByFieldName("arguments")
	if args == nil {
		return nil, nil, false
	}
	var exprs []*ts.Node
	for _, arg := range childrenOfKind(args, kindArgument) {
		for i := uint(0); i < arg.ChildCount(); i++ {
			if c := arg.Child(i); c.IsNamed() {
				exprs = append(exprs, c)
			}
		}
	}
	if len(exprs) < 2 || !isStringLiteral(exprs[0]) {
		return nil, nil, false
	}
	return exprs[0], exprs[1], true
}

// declaredTypeString converts a type-declaration subtree into a type-string,
// resolving class atoms against the resolver. Primitive keywords pass
// through.
func declaredTypeString(node *ts.Node, src []byte, resolver *symbol.NameResolver) string {
	if node == nil {
		return ""
	}
	switch node.Kind() {
	case "optional_type":
		var inner string
		for i := uint(0); i < node.ChildCount(); i++ {
			c := node.Child(i)
			if c.IsNamed() {
				inner = declaredTypeString(c, src, resolver)
			}
		}
		return typestring.Merge(inner, "null")
	case "union_type", "intersection_type", "disjunctive_normal_form_type":
		var merged string
		for i := uint(0); i < node.ChildCount(); i++ {
			c := node.Child(i)
			if c.IsNamed() {
				merged = typestring.Merge(merged, declaredTypeString(c, src, resolver))
			}
		}
		return merged
	case "named_type":
		for i := uint(0); i < node.ChildCount(); i++ {
			c := node.Child(i)
			if c.IsNamed() {
				return declaredTypeString(c, src, resolver)
			}
		}
		return ""
	case "primitive_type":
		return node.Utf8Text(src)
	case kindName, kindQualifiedName:
		text := node.Utf8Text(src)
		if typestring.IsScalar(text) {
			return text
		}
		fqn, _ := resolver.Resolve(text, symbol.KindClass)
		return fqn
	case kindRelativeScope:
		return node.Utf8Text(src)
	default:
		// Bare return_type wrappers and future kinds: descend one level.
		for i := uint(0); i < node.ChildCount(); i++ {
			c := node.Child(i)
			if c.IsNamed() {
				return declaredTypeString(c, src, resolver)
			}
		}
		return strings.TrimSpace(node.Utf8Text(src))
	}
}
