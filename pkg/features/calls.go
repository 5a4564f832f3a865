package features

import (
	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/phpindex/pkg/document"
	"github.com/gnana997/phpindex/pkg/indexer"
	"github.com/gnana997/phpindex/pkg/symbol"
)

// callNode is the resolved call expression enclosing a position.
type callNode struct {
	node      *ts.Node // the call expression
	callee    *ts.Node // the name/designator child
	arguments *ts.Node // the arguments node, may be nil mid-typing
}

// enclosingCall ascends from the node at offset to the nearest call-like
// expression whose argument region contains the offset.
func enclosingCall(doc *document.Document, offset uint32) *callNode {
	root := doc.Tree().RootNode()
	at := root.NamedDescendantForByteRange(uint(offset), uint(offset))
	if at == nil {
		return nil
	}
	for node := at; node != nil; node = node.Parent() {
		var callee, args *ts.Node
		switch node.Kind() {
		case "function_call_expression", "member_call_expression",
			"scoped_call_expression", "nullsafe_member_call_expression":
			callee = node.ChildByFieldName("function")
			if callee == nil {
				callee = node.ChildByFieldName("name")
			}
			args = node.ChildByFieldName("arguments")
		case "object_creation_expression":
			for i := uint(0); i < node.ChildCount(); i++ {
				c := node.Child(i)
				switch c.Kind() {
				case "name", "qualified_name", "relative_scope":
					callee = c
				case "arguments":
					args = c
				}
			}
		default:
			continue
		}
		if callee == nil {
			continue
		}
		// Only a position inside the argument region asks for help.
		if args != nil && (uint(offset) < args.StartByte() || uint(offset) > args.EndByte()) {
			continue
		}
		if args == nil && uint(offset) <= callee.EndByte() {
			continue
		}
		return &callNode{node: node, callee: callee, arguments: args}
	}
	return nil
}

// callTargets resolves the callee to declaration symbols through the
// reference table built for the document.
func (svc *Service) callTargets(uri string, call *callNode) []*symbol.Symbol {
	start := call.callee.StartPosition()
	pos := symbol.Position{Line: uint32(start.Row), Character: uint32(start.Column)}
	ref := svc.ws.References().ReferenceAtPosition(uri, pos)
	if ref == nil {
		return nil
	}
	syms := svc.ws.Symbols().FindSymbolsByReference(ref, indexer.StrategyOverride)

	// Prefer callables: a constructor reference may resolve to the class
	// itself when no __construct is declared.
	var callables []*symbol.Symbol
	for _, s := range syms {
		if s.Kind.IsCallable() {
			callables = append(callables, s)
		}
	}
	if len(callables) > 0 {
		return callables
	}
	return syms
}

// activeParameter counts argument separators before offset.
func activeParameter(doc *document.Document, call *callNode, offset uint32) int {
	if call.arguments == nil {
		return 0
	}
	active := 0
	for i := uint(0); i < call.arguments.ChildCount(); i++ {
		c := call.arguments.Child(i)
		if c.IsNamed() {
			continue
		}
		if c.Utf8Text(doc.Text()) == "," && uint(offset) > c.StartByte() {
			active++
		}
	}
	return active
}
