package extractor

import (
	"fmt"
	"log/slog"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/phpindex/pkg/phpdoc"
	"github.com/gnana997/phpindex/pkg/reference"
	"github.com/gnana997/phpindex/pkg/symbol"
	"github.com/gnana997/phpindex/pkg/typestring"
)

// SymbolLookup is the slice of the workspace symbol store the reference
// reader needs: exact lookups by FQN and aggregated member enumeration.
// Implemented by indexer.SymbolStore.
type SymbolLookup interface {
	// LookupByName returns symbols whose key exactly matches name, filtered
	// to kind.
	LookupByName(name string, kind symbol.Kind) []*symbol.Symbol

	// MemberSymbols enumerates the named member across the given classes
	// with inherited members merged (override strategy).
	MemberSymbols(classNames []string, memberName string, kind symbol.Kind) []*symbol.Symbol

	// GlobalVariables returns the known global-variable symbols.
	GlobalVariables() []*symbol.Symbol
}

// ReferenceReader performs the second walk: it consumes the parse tree in
// lockstep with the symbol table built from it, reconstitutes the name
// resolver state from the symbol sequence, runs flow-sensitive variable
// typing, and emits the document's reference table.
//
// The lockstep invariant is load-bearing: whenever the reader enters a
// construct the symbol reader emitted a symbol for, it pops the next symbol
// from the pre-order list. Any mismatch means the tree and table are torn
// and the read fails with ErrTornTree.
type ReferenceReader struct {
	logger *slog.Logger
}

// NewReferenceReader creates a reference reader.
func NewReferenceReader(logger *slog.Logger) *ReferenceReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReferenceReader{logger: logger}
}

// Read builds the reference table for one document. table must be the
// symbol table previously produced from the same tree. Global-variable
// types are seeded from the store before the walk begins.
func (r *ReferenceReader) Read(uri string, src []byte, tree *ts.Tree, table *symbol.Table, store SymbolLookup) (*reference.Table, error) {
	root := tree.RootNode()
	end := root.EndPosition()
	refTable := reference.NewTable(uri,
		symbol.Position{Line: uint32(end.Row), Character: uint32(end.Column)},
		uint32(root.EndByte()))

	var expected []*symbol.Symbol
	table.Traverse(func(s *symbol.Symbol) bool {
		if lockstepSymbol(s) {
			expected = append(expected, s)
		}
		return true
	})

	w := &refWalker{
		uri:      uri,
		src:      src,
		store:    store,
		expected: expected,
		resolver: &symbol.NameResolver{},
		vt:       NewVariableTable(),
		table:    refTable,
		scopes:   []*reference.Scope{refTable.Root},
		logger:   r.logger,
	}
	w.seedGlobals()

	if err := w.statements(root); err != nil {
		return nil, err
	}
	if w.idx != len(w.expected) {
		return nil, fmt.Errorf("%w: %d of %d symbols consumed", ErrTornTree, w.idx, len(w.expected))
	}
	return refTable, nil
}

type refWalker struct {
	uri      string
	src      []byte
	store    SymbolLookup
	expected []*symbol.Symbol
	idx      int

	resolver *symbol.NameResolver
	vt       *VariableTable
	table    *reference.Table
	scopes   []*reference.Scope

	// scopeNames tracks the FQN of the enclosing declarative entity.
	scopeNames []string

	lastDoc *phpdoc.Block
	logger  *slog.Logger
}

// --- plumbing ---

func (w *refWalker) pop(node *ts.Node, kinds ...symbol.Kind) (*symbol.Symbol, error) {
	if w.idx >= len(w.expected) {
		return nil, fmt.Errorf("%w: ran out of symbols at byte %d", ErrTornTree, node.StartByte())
	}
	s := w.expected[w.idx]
	match := false
	for _, k := range kinds {
		if s.Kind == k {
			match = true
			break
		}
	}
	if !match || s.Location.Range.StartByte != uint32(node.StartByte()) {
		return nil, fmt.Errorf("%w: expected %s at byte %d, tree has %s at byte %d",
			ErrTornTree, s.Kind, s.Location.Range.StartByte, node.Kind(), node.StartByte())
	}
	w.idx++
	return s, nil
}

func (w *refWalker) scope() *reference.Scope {
	return w.scopes[len(w.scopes)-1]
}

func (w *refWalker) pushScope(node *ts.Node) {
	sub := &reference.Scope{Location: nodeLocation(w.uri, node)}
	w.scope().Add(sub)
	w.scopes = append(w.scopes, sub)
}

func (w *refWalker) popScope() {
	w.scopes = w.scopes[:len(w.scopes)-1]
}

func (w *refWalker) scopeName() string {
	if len(w.scopeNames) == 0 {
		return ""
	}
	return w.scopeNames[len(w.scopeNames)-1]
}

func (w *refWalker) emit(node *ts.Node, ref *reference.Reference) *reference.Reference {
	ref.Location = nodeLocation(w.uri, node)
	if ref.Scope == "" {
		ref.Scope = w.scopeName()
	}
	w.scope().Add(ref)
	return ref
}

// seedGlobals installs known global-variable types into the file-level
// scope of the variable table. Seeding happens once per read, after the
// document's own symbols registered with the store.
func (w *refWalker) seedGlobals() {
	for _, g := range w.store.GlobalVariables() {
		if g.Type != "" && !w.vt.Has(g.Name) {
			w.vt.SetVariable(g.Name, g.Type)
		}
	}
}

// --- statements ---

func (w *refWalker) statements(node *ts.Node) error {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if !child.IsNamed() {
			continue
		}
		if err := w.statement(child); err != nil {
			return err
		}
		if child.Kind() != kindComment {
			// A doc-comment only applies to the statement right after it.
			w.lastDoc = nil
		}
	}
	return nil
}

func (w *refWalker) statement(node *ts.Node) error {
	switch node.Kind() {
	case kindComment:
		w.handleComment(node)
		return nil
	case kindErrorNode:
		return nil
	case kindNamespaceDef:
		return w.namespaceDefinition(node)
	case kindNamespaceUse:
		return w.namespaceUse(node)
	case kindClassDecl:
		return w.classLike(node, symbol.KindClass)
	case kindInterfaceDecl:
		return w.classLike(node, symbol.KindInterface)
	case kindTraitDecl:
		return w.classLike(node, symbol.KindTrait)
	case kindEnumDecl:
		return w.classLike(node, symbol.KindClass)
	case kindFunctionDef:
		return w.functionDefinition(node)
	case kindConstDecl:
		return w.constDeclaration(node, nil)
	case kindGlobalDecl:
		return w.globalDeclaration(node)
	case kindCatchClause:
		return w.catchClause(node)
	case kindCompoundStatement:
		return w.statements(node)
	case kindIfStatement:
		return w.ifStatement(node)
	case kindSwitchStatement:
		return w.switchStatement(node)
	case kindForeachStatement:
		return w.foreachStatement(node)
	case kindExpressionStatement:
		for i := uint(0); i < node.ChildCount(); i++ {
			if c := node.Child(i); c.IsNamed() {
				if _, err := w.expr(c); err != nil {
					return err
				}
			}
		}
		return nil
	default:
		// Control statements and everything else: walk named children,
		// treating nested statements as statements and expressions as
		// expressions. Expression kinds are recognized by expr itself.
		if isExpressionNode(node) {
			_, err := w.expr(node)
			return err
		}
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if !child.IsNamed() {
				continue
			}
			if isExpressionNode(child) {
				if _, err := w.expr(child); err != nil {
					return err
				}
				continue
			}
			if err := w.statement(child); err != nil {
				return err
			}
		}
		return nil
	}
}

// isExpressionNode reports whether the node is an expression the reader
// types, as opposed to a statement it recurses through.
func isExpressionNode(node *ts.Node) bool {
	switch node.Kind() {
	case kindVariableName, kindObjectCreation, kindFunctionCall,
		kindMemberAccess, kindNullsafeMemberAccess, kindMemberCall,
		kindNullsafeMemberCall, kindScopedCall, kindScopedProperty,
		kindClassConstantAccess, kindSubscript, kindAssignment,
		kindAugmentedAssignment, kindBinary, kindConditional,
		kindParenthesized, kindAnonymousFunction, kindAnonymousFunctionOld, kindArrowFunction,
		kindName, kindQualifiedName,
		"integer", "float", "string", "encapsed_string", "boolean", "null",
		"array_creation_expression", "unary_op_expression", "cast_expression",
		"clone_expression", "update_expression", "throw_expression",
		"match_expression", "reference_assignment_expression":
		return true
	default:
		return false
	}
}

func (w *refWalker) handleComment(node *ts.Node) {
	if block := phpdoc.Parse(node.Utf8Text(w.src)); block != nil {
		w.lastDoc = block
	}
}

func (w *refWalker) namespaceDefinition(node *ts.Node) error {
	ns, err := w.pop(node, symbol.KindNamespace)
	if err != nil {
		return err
	}
	if n := node.ChildByFieldName("name"); n != nil {
		w.emit(n, &reference.Reference{Kind: symbol.KindNamespace, Name: ns.Name})
	}

	prevNamespace := w.resolver.Namespace
	prevRules := w.resolver.Rules
	w.resolver.Namespace = ns.Name
	w.resolver.Rules = nil

	if body := childOfKind(node, kindCompoundStatement); body != nil {
		w.pushScope(body)
		err := w.statements(body)
		w.popScope()
		w.resolver.Namespace = prevNamespace
		w.resolver.Rules = prevRules
		return err
	}
	return nil
}

func (w *refWalker) namespaceUse(node *ts.Node) error {
	clauses := childrenOfKind(node, kindNamespaceUseClause)
	if group := childOfKind(node, kindNamespaceUseGroup); group != nil {
		clauses = append(clauses, childrenOfKind(group, kindNamespaceUseClause)...)
	}
	for _, clause := range clauses {
		use, err := w.pop(clause, symbol.KindClass, symbol.KindFunction, symbol.KindConstant)
		if err != nil {
			return err
		}
		w.resolver.AddRule(use)
		target := use.UseTarget()
		for _, k := range []string{kindQualifiedName, kindName} {
			if n := childOfKind(clause, k); n != nil && target != nil {
				w.emit(n, &reference.Reference{Kind: target.Kind, Name: target.Name})
				break
			}
		}
	}
	return nil
}

func (w *refWalker) classLike(node *ts.Node, kind symbol.Kind) error {
	class, err := w.pop(node, kind)
	if err != nil {
		return err
	}
	if n := node.ChildByFieldName("name"); n != nil {
		w.emit(n, &reference.Reference{Kind: kind, Name: class.Name})
	}
	w.classClauseReferences(node)

	w.resolver.PushClass(class)
	w.scopeNames = append(w.scopeNames, class.Name)
	defer func() {
		w.resolver.PopClass()
		w.scopeNames = w.scopeNames[:len(w.scopeNames)-1]
	}()

	if body := classBodyNode(node); body != nil {
		return w.classBody(body, class)
	}
	return nil
}

// classClauseReferences emits references for base, implements and trait-use
// names.
func (w *refWalker) classClauseReferences(node *ts.Node) {
	emitNames := func(parent *ts.Node, kind symbol.Kind) {
		if parent == nil {
			return
		}
		for i := uint(0); i < parent.ChildCount(); i++ {
			c := parent.Child(i)
			switch c.Kind() {
			case kindName, kindQualifiedName:
				fqn, alt := w.resolver.Resolve(c.Utf8Text(w.src), symbol.KindClass)
				w.emit(c, &reference.Reference{Kind: kind, Name: fqn, AltName: alt})
			}
		}
	}
	emitNames(childOfKind(node, kindBaseClause), symbol.KindClass)
	emitNames(childOfKind(node, kindInterfaceClause), symbol.KindInterface)
	if body := classBodyNode(node); body != nil {
		for _, use := range childrenOfKind(body, kindUseDecl) {
			emitNames(use, symbol.KindTrait)
		}
	}
}

func (w *refWalker) classBody(body *ts.Node, class *symbol.Symbol) error {
	for i := uint(0); i < body.ChildCount(); i++ {
		child := body.Child(i)
		switch child.Kind() {
		case kindComment:
			w.handleComment(child)
		case kindMethodDecl:
			if err := w.methodDeclaration(child, class); err != nil {
				return err
			}
		case kindPropertyDecl:
			if err := w.propertyDeclaration(child, class); err != nil {
				return err
			}
		case kindConstDecl:
			if err := w.constDeclaration(child, class); err != nil {
				return err
			}
		case kindEnumCase:
			if _, err := w.pop(child, symbol.KindClassConstant); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *refWalker) functionDefinition(node *ts.Node) error {
	fn, err := w.pop(node, symbol.KindFunction)
	if err != nil {
		return err
	}
	if n := node.ChildByFieldName("name"); n != nil {
		w.emit(n, &reference.Reference{Kind: symbol.KindFunction, Name: fn.Name})
	}
	return w.callableBody(node, fn, fn.Name, nil)
}

func (w *refWalker) methodDeclaration(node *ts.Node, class *symbol.Symbol) error {
	method, err := w.pop(node, symbol.KindMethod, symbol.KindConstructor)
	if err != nil {
		return err
	}
	if n := node.ChildByFieldName("name"); n != nil {
		w.emit(n, &reference.Reference{
			Kind:  method.Kind,
			Name:  method.Name,
			Scope: class.Name,
		})
	}
	carry := []string(nil)
	if !method.Modifiers.Has(symbol.ModifierStatic) {
		carry = []string{"$this"}
	}
	return w.callableBody(node, method, class.Name+"::"+method.Name, carry)
}

// callableBody pushes the reference scope and variable scope for a
// function-like body, binds parameters, walks the body, and pops both.
func (w *refWalker) callableBody(node *ts.Node, sym *symbol.Symbol, scopeName string, carry []string) error {
	body := node.ChildByFieldName("body")

	w.vt.PushScope(carry...)
	if class := w.resolver.CurrentClass(); class != nil {
		for _, c := range carry {
			if c == "$this" {
				w.vt.SetVariable("$this", class.Name)
			}
		}
	}
	w.scopeNames = append(w.scopeNames, scopeName)

	// The scope spans the whole declaration so header references (parameter
	// names) are reachable from position queries.
	w.pushScope(node)

	err := w.parameterList(node.ChildByFieldName("parameters"))
	if err == nil && body != nil {
		err = w.statement(body)
	}

	w.popScope()
	w.scopeNames = w.scopeNames[:len(w.scopeNames)-1]
	w.vt.PopScope()
	return err
}

func (w *refWalker) parameterList(params *ts.Node) error {
	if params == nil {
		return nil
	}
	for i := uint(0); i < params.NamedChildCount(); i++ {
		child := params.NamedChild(i)
		switch child.Kind() {
		case kindSimpleParameter, kindVariadicParameter, kindPromotionParameter:
		default:
			continue
		}
		p, err := w.pop(child, symbol.KindParameter)
		if err != nil {
			return err
		}
		typ := p.Type
		if p.Doc != nil && p.Doc.Type != "" {
			typ = typestring.Merge(typ, p.Doc.Type)
		}
		if p.Modifiers.Has(symbol.ModifierVariadic) {
			typ = typestring.ArrayReference(typ)
		}
		w.vt.SetVariable(p.Name, typ)

		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			nameNode = childOfKind(child, kindVariableName)
		}
		if nameNode != nil {
			w.emit(nameNode, &reference.Reference{Kind: symbol.KindParameter, Name: p.Name, Type: typ})
		}
	}
	return nil
}

func (w *refWalker) constDeclaration(node *ts.Node, class *symbol.Symbol) error {
	kind := symbol.KindConstant
	if class != nil {
		kind = symbol.KindClassConstant
	}
	for _, el := range childrenOfKind(node, kindConstElement) {
		sym, err := w.pop(el, kind)
		if err != nil {
			return err
		}
		if n := childOfKind(el, kindName); n != nil {
			ref := &reference.Reference{Kind: kind, Name: sym.Name, Type: sym.Type}
			if class != nil {
				ref.Scope = class.Name
			}
			w.emit(n, ref)
		}
	}
	return nil
}

func (w *refWalker) propertyDeclaration(node *ts.Node, class *symbol.Symbol) error {
	for _, el := range childrenOfKind(node, kindPropertyElement) {
		sym, err := w.pop(el, symbol.KindProperty)
		if err != nil {
			return err
		}
		if n := childOfKind(el, kindVariableName); n != nil {
			typ := sym.Type
			if sym.Doc != nil && sym.Doc.Type != "" {
				typ = typestring.Merge(typ, sym.Doc.Type)
			}
			w.emit(n, &reference.Reference{
				Kind:  symbol.KindProperty,
				Name:  sym.Name,
				Scope: class.Name,
				Type:  typ,
			})
		}
	}
	return nil
}

// globalDeclaration binds each named variable to its workspace-level type,
// seeded into the file scope from the global-variable index.
func (w *refWalker) globalDeclaration(node *ts.Node) error {
	for _, v := range childrenOfKind(node, kindVariableName) {
		name := v.Utf8Text(w.src)
		typ := ""
		for _, g := range w.store.GlobalVariables() {
			if g.Name == name {
				typ = g.Type
				break
			}
		}
		w.vt.SetVariable(name, typ)
		w.emit(v, &reference.Reference{Kind: symbol.KindGlobalVariable, Name: name, Type: typ})
	}
	return nil
}

func (w *refWalker) catchClause(node *ts.Node) error {
	typ := ""
	if tl := childOfKind(node, kindTypeList); tl != nil {
		for i := uint(0); i < tl.ChildCount(); i++ {
			c := tl.Child(i)
			switch c.Kind() {
			case kindName, kindQualifiedName:
				fqn, alt := w.resolver.Resolve(c.Utf8Text(w.src), symbol.KindClass)
				w.emit(c, &reference.Reference{Kind: symbol.KindClass, Name: fqn, AltName: alt})
				typ = typestring.Merge(typ, fqn)
			}
		}
	}
	if v := childOfKind(node, kindVariableName); v != nil {
		name := v.Utf8Text(w.src)
		w.vt.SetVariable(name, typ)
		w.emit(v, &reference.Reference{Kind: symbol.KindVariable, Name: name, Type: typ})
	}
	if body := node.ChildByFieldName("body"); body != nil {
		return w.statement(body)
	}
	return nil
}

// --- branching statements ---

func (w *refWalker) ifStatement(node *ts.Node) error {
	// Condition refinements (instanceof) land in the arm's branch frame.
	w.vt.PushBranch()
	if cond := node.ChildByFieldName("condition"); cond != nil {
		if _, err := w.expr(cond); err != nil {
			w.vt.PopBranch()
			return err
		}
	}
	var err error
	if body := node.ChildByFieldName("body"); body != nil {
		err = w.statement(body)
	}
	w.vt.PopBranch()
	if err != nil {
		return err
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case kindElseIfClause:
			w.vt.PushBranch()
			if cond := child.ChildByFieldName("condition"); cond != nil {
				if _, err := w.expr(cond); err != nil {
					w.vt.PopBranch()
					return err
				}
			}
			if body := child.ChildByFieldName("body"); body != nil {
				err = w.statement(body)
			}
			w.vt.PopBranch()
			if err != nil {
				return err
			}
		case kindElseClause:
			w.vt.PushBranch()
			if body := child.ChildByFieldName("body"); body != nil {
				err = w.statement(body)
			}
			w.vt.PopBranch()
			if err != nil {
				return err
			}
		}
	}
	w.vt.PruneBranches()
	return nil
}

func (w *refWalker) switchStatement(node *ts.Node) error {
	if cond := node.ChildByFieldName("condition"); cond != nil {
		if _, err := w.expr(cond); err != nil {
			return err
		}
	}
	body := node.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	for i := uint(0); i < body.ChildCount(); i++ {
		child := body.Child(i)
		switch child.Kind() {
		case "case_statement", "default_statement":
			w.vt.PushBranch()
			err := w.statements(child)
			w.vt.PopBranch()
			if err != nil {
				return err
			}
		}
	}
	w.vt.PruneBranches()
	return nil
}

func (w *refWalker) foreachStatement(node *ts.Node) error {
	var collType string
	var seenAs bool
	var err error

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if !child.IsNamed() {
			if child.Utf8Text(w.src) == "as" {
				seenAs = true
			}
			continue
		}
		switch {
		case !seenAs && isExpressionNode(child):
			collType, err = w.expr(child)
			if err != nil {
				return err
			}
		case seenAs && child.Kind() == kindForeachPair:
			// foreach ($coll as $k => $v)
			vars := childrenOfKind(child, kindVariableName)
			if len(vars) > 0 {
				k := vars[0].Utf8Text(w.src)
				w.vt.SetVariable(k, "int|string")
				w.emit(vars[0], &reference.Reference{Kind: symbol.KindVariable, Name: k, Type: "int|string"})
			}
			if len(vars) > 1 {
				w.bindForeachValue(vars[1], collType)
			}
			seenAs = false
		case seenAs && child.Kind() == kindVariableName:
			w.bindForeachValue(child, collType)
			seenAs = false
		case child.Kind() == "by_ref" || child.Kind() == "list_literal":
			for _, v := range childrenOfKind(child, kindVariableName) {
				w.bindForeachValue(v, collType)
			}
			seenAs = false
		default:
			if err := w.statement(child); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *refWalker) bindForeachValue(v *ts.Node, collType string) {
	name := v.Utf8Text(w.src)
	typ := typestring.ArrayDereference(collType)
	w.vt.SetVariable(name, typ)
	w.emit(v, &reference.Reference{Kind: symbol.KindVariable, Name: name, Type: typ})
}
