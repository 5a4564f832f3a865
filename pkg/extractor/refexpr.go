package extractor

import (
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/phpindex/pkg/reference"
	"github.com/gnana997/phpindex/pkg/symbol"
	"github.com/gnana997/phpindex/pkg/typestring"
)

// expr types one expression, emitting references for every name-kind
// occurrence inside it. The returned type-string is "" when nothing is
// known; unresolved occurrences still produce references.
func (w *refWalker) expr(node *ts.Node) (string, error) {
	switch node.Kind() {
	case kindErrorNode:
		return "", nil

	case kindParenthesized:
		for i := uint(0); i < node.ChildCount(); i++ {
			if c := node.Child(i); c.IsNamed() {
				return w.expr(c)
			}
		}
		return "", nil

	case kindVariableName:
		return w.variableExpr(node), nil

	case kindName, kindQualifiedName:
		// A bare name in expression position is a constant reference.
		fqn, alt := w.resolver.Resolve(node.Utf8Text(w.src), symbol.KindConstant)
		ref := w.emit(node, &reference.Reference{Kind: symbol.KindConstant, Name: fqn, AltName: alt})
		ref.Type = w.constantType(fqn, alt)
		return ref.Type, nil

	case kindObjectCreation:
		return w.objectCreation(node)

	case kindFunctionCall:
		return w.functionCall(node)

	case kindMemberAccess, kindNullsafeMemberAccess:
		return w.memberAccess(node, symbol.KindProperty)

	case kindMemberCall, kindNullsafeMemberCall:
		return w.memberAccess(node, symbol.KindMethod)

	case kindScopedCall:
		return w.scopedAccess(node, symbol.KindMethod)

	case kindScopedProperty:
		return w.scopedAccess(node, symbol.KindProperty)

	case kindClassConstantAccess:
		return w.classConstantAccess(node)

	case kindSubscript:
		return w.subscript(node)

	case kindAssignment, "reference_assignment_expression":
		return w.assignment(node)

	case kindAugmentedAssignment:
		if left := node.ChildByFieldName("left"); left != nil {
			if _, err := w.expr(left); err != nil {
				return "", err
			}
		}
		if right := node.ChildByFieldName("right"); right != nil {
			if _, err := w.expr(right); err != nil {
				return "", err
			}
		}
		return "", nil

	case kindBinary:
		return w.binary(node)

	case kindConditional:
		return w.conditional(node)

	case kindAnonymousFunction, kindAnonymousFunctionOld, kindArrowFunction:
		return w.anonymousFunction(node)

	case "cast_expression":
		if t := node.ChildByFieldName("type"); t != nil {
			typ := t.Utf8Text(w.src)
			if v := node.ChildByFieldName("value"); v != nil {
				if _, err := w.expr(v); err != nil {
					return "", err
				}
			}
			return typ, nil
		}
		return w.exprChildren(node)

	case "clone_expression":
		for i := uint(0); i < node.ChildCount(); i++ {
			if c := node.Child(i); c.IsNamed() {
				return w.expr(c)
			}
		}
		return "", nil

	case "array_creation_expression":
		return w.arrayLiteral(node)

	default:
		if t := literalType(node); t != "" {
			return t, nil
		}
		return w.exprChildren(node)
	}
}

// exprChildren walks named children as expressions (or statements when they
// are statement kinds) and returns "".
func (w *refWalker) exprChildren(node *ts.Node) (string, error) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if !child.IsNamed() {
			continue
		}
		if isExpressionNode(child) || literalType(child) != "" {
			if _, err := w.expr(child); err != nil {
				return "", err
			}
			continue
		}
		if err := w.statement(child); err != nil {
			return "", err
		}
	}
	return "", nil
}

// arrayLiteral unions the element value types into an array type, so
// [new A(), new B()] is A[]|B[]. An empty or untyped literal is plain array.
func (w *refWalker) arrayLiteral(node *ts.Node) (string, error) {
	elemType := ""
	for _, el := range childrenOfKind(node, "array_element_initializer") {
		// key => value pairs type by the value, the last named child.
		var last string
		for i := uint(0); i < el.ChildCount(); i++ {
			child := el.Child(i)
			if !child.IsNamed() {
				continue
			}
			t, err := w.expr(child)
			if err != nil {
				return "", err
			}
			last = t
		}
		elemType = typestring.Merge(elemType, last)
	}
	if elemType == "" {
		return "array", nil
	}
	return typestring.ArrayReference(elemType), nil
}

func (w *refWalker) variableExpr(node *ts.Node) string {
	name := node.Utf8Text(w.src)
	typ := w.vt.GetType(name)
	if name == "$this" {
		if class := w.resolver.CurrentClass(); class != nil {
			typ = class.Name
		}
	}
	w.emit(node, &reference.Reference{Kind: symbol.KindVariable, Name: name, Type: typ})
	return typ
}

func (w *refWalker) objectCreation(node *ts.Node) (string, error) {
	// Anonymous class: new class(...) { ... }
	if childOfKind(node, kindDeclarationList) != nil {
		return w.anonymousClass(node)
	}

	typ := ""
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if !child.IsNamed() {
			continue
		}
		switch child.Kind() {
		case kindName, kindQualifiedName, kindRelativeScope:
			fqn, alt := w.resolver.Resolve(child.Utf8Text(w.src), symbol.KindClass)
			w.emit(child, &reference.Reference{Kind: symbol.KindConstructor, Name: fqn, AltName: alt})
			typ = fqn
		case kindVariableName:
			// new $class(...): the instantiated type is the variable's value,
			// unknowable statically.
			w.variableExpr(child)
		case kindArguments:
			if _, err := w.exprChildren(child); err != nil {
				return "", err
			}
		}
	}
	return typ, nil
}

func (w *refWalker) anonymousClass(node *ts.Node) (string, error) {
	class, err := w.pop(node, symbol.KindClass)
	if err != nil {
		return "", err
	}
	w.classClauseReferences(node)

	w.resolver.PushClass(class)
	w.scopeNames = append(w.scopeNames, class.Name)
	if body := classBodyNode(node); body != nil {
		err = w.classBody(body, class)
	}
	w.scopeNames = w.scopeNames[:len(w.scopeNames)-1]
	w.resolver.PopClass()
	if err != nil {
		return "", err
	}

	if args := childOfKind(node, kindArguments); args != nil {
		if _, err := w.exprChildren(args); err != nil {
			return "", err
		}
	}
	return class.Name, nil
}

func (w *refWalker) functionCall(node *ts.Node) (string, error) {
	if nameLit, value, ok := defineArguments(node, w.src); ok {
		sym, err := w.pop(node, symbol.KindConstant)
		if err != nil {
			return "", err
		}
		w.emit(nameLit, &reference.Reference{Kind: symbol.KindConstant, Name: sym.Name, Type: sym.Type})
		if _, err := w.expr(value); err != nil {
			return "", err
		}
		return "bool", nil
	}

	typ := ""
	fn := node.ChildByFieldName("function")
	if fn != nil {
		switch fn.Kind() {
		case kindName, kindQualifiedName:
			fqn, alt := w.resolver.Resolve(fn.Utf8Text(w.src), symbol.KindFunction)
			ref := w.emit(fn, &reference.Reference{Kind: symbol.KindFunction, Name: fqn, AltName: alt})
			typ = w.functionReturnType(fqn, alt)
			ref.Type = typ
		default:
			if _, err := w.expr(fn); err != nil {
				return "", err
			}
		}
	}
	if args := node.ChildByFieldName("arguments"); args != nil {
		if _, err := w.exprChildren(args); err != nil {
			return "", err
		}
	}
	return typ, nil
}

// memberAccess handles ->name and ->name(...) on an object expression.
func (w *refWalker) memberAccess(node *ts.Node, kind symbol.Kind) (string, error) {
	scopeType := ""
	if obj := node.ChildByFieldName("object"); obj != nil {
		var err error
		scopeType, err = w.expr(obj)
		if err != nil {
			return "", err
		}
	}

	typ := ""
	if name := node.ChildByFieldName("name"); name != nil {
		written := name.Utf8Text(w.src)
		memberName := written
		if kind == symbol.KindProperty && !strings.HasPrefix(written, "$") {
			// Property accesses are written without the declaration's $.
			memberName = "$" + written
		}
		typ = w.memberTypeOf(scopeType, memberName, kind)
		w.emit(name, &reference.Reference{
			Kind:  kind,
			Name:  memberName,
			Scope: scopeType,
			Type:  typ,
		})
	}
	if args := node.ChildByFieldName("arguments"); args != nil {
		if _, err := w.exprChildren(args); err != nil {
			return "", err
		}
	}
	return typ, nil
}

// scopedAccess handles Cls::$prop and Cls::method(...).
func (w *refWalker) scopedAccess(node *ts.Node, kind symbol.Kind) (string, error) {
	scopeType := w.scopeExprType(node.ChildByFieldName("scope"))

	typ := ""
	if name := node.ChildByFieldName("name"); name != nil {
		memberName := name.Utf8Text(w.src)
		typ = w.memberTypeOf(scopeType, memberName, kind)
		w.emit(name, &reference.Reference{
			Kind:  kind,
			Name:  memberName,
			Scope: scopeType,
			Type:  typ,
		})
	}
	if args := node.ChildByFieldName("arguments"); args != nil {
		if _, err := w.exprChildren(args); err != nil {
			return "", err
		}
	}
	return typ, nil
}

func (w *refWalker) classConstantAccess(node *ts.Node) (string, error) {
	var scopeType string
	var nameNode *ts.Node
	scopeSeen := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if !child.IsNamed() {
			continue
		}
		if !scopeSeen {
			scopeSeen = true
			scopeType = w.scopeExprType(child)
			continue
		}
		nameNode = child
	}
	if nameNode == nil {
		return "", nil
	}
	written := nameNode.Utf8Text(w.src)
	if written == "class" {
		// Cls::class is the class-name string.
		return "string", nil
	}
	typ := w.memberTypeOf(scopeType, written, symbol.KindClassConstant)
	w.emit(nameNode, &reference.Reference{
		Kind:  symbol.KindClassConstant,
		Name:  written,
		Scope: scopeType,
		Type:  typ,
	})
	return typ, nil
}

// scopeExprType resolves a :: scope designator and emits its reference.
func (w *refWalker) scopeExprType(node *ts.Node) string {
	if node == nil {
		return ""
	}
	switch node.Kind() {
	case kindName, kindQualifiedName, kindRelativeScope:
		fqn, alt := w.resolver.Resolve(node.Utf8Text(w.src), symbol.KindClass)
		w.emit(node, &reference.Reference{Kind: symbol.KindClass, Name: fqn, AltName: alt})
		return fqn
	case kindVariableName:
		return w.variableExpr(node)
	default:
		typ, _ := w.expr(node)
		return typ
	}
}

func (w *refWalker) subscript(node *ts.Node) (string, error) {
	obj := firstNamedChild(node)
	if obj == nil {
		return "", nil
	}
	objType, err := w.expr(obj)
	if err != nil {
		return "", err
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.IsNamed() && child.StartByte() != obj.StartByte() {
			if _, err := w.expr(child); err != nil {
				return "", err
			}
		}
	}
	return typestring.ArrayDereference(objType), nil
}

// assignment types the right-hand side, applies any pending @var override,
// and binds simple-variable and dereferenced-variable targets.
func (w *refWalker) assignment(node *ts.Node) (string, error) {
	right := node.ChildByFieldName("right")
	left := node.ChildByFieldName("left")

	var typ string
	var err error
	if right != nil {
		typ, err = w.expr(right)
		if err != nil {
			return "", err
		}
	}

	// An immediately preceding /** @var T */ overrides the inferred type.
	if w.lastDoc != nil && len(w.lastDoc.Vars) > 0 && left != nil && left.Kind() == kindVariableName {
		if tag := w.lastDoc.VarTag(left.Utf8Text(w.src)); tag != nil {
			typ = typestring.NameResolve(tag.Type, w.resolver.ResolveType)
		}
		w.lastDoc = nil
	}

	if left == nil {
		return typ, nil
	}
	switch left.Kind() {
	case kindVariableName:
		name := left.Utf8Text(w.src)
		w.vt.SetVariable(name, typ)
		w.emit(left, &reference.Reference{Kind: symbol.KindVariable, Name: name, Type: typ})
	case kindSubscript:
		// $arr[...] = v promotes the parent variable via array-reference.
		if obj := firstNamedChild(left); obj != nil && obj.Kind() == kindVariableName {
			name := obj.Utf8Text(w.src)
			promoted := typestring.Merge(w.vt.GetType(name), typestring.ArrayReference(typ))
			w.vt.SetVariable(name, promoted)
			w.emit(obj, &reference.Reference{Kind: symbol.KindVariable, Name: name, Type: promoted})
			// Index expressions still need walking.
			for i := uint(0); i < left.ChildCount(); i++ {
				child := left.Child(i)
				if child.IsNamed() && child.StartByte() != obj.StartByte() {
					if _, err := w.expr(child); err != nil {
						return "", err
					}
				}
			}
		} else if _, err := w.expr(left); err != nil {
			return "", err
		}
	case "list_literal":
		for _, v := range childrenOfKind(left, kindVariableName) {
			name := v.Utf8Text(w.src)
			elem := typestring.ArrayDereference(typ)
			w.vt.SetVariable(name, elem)
			w.emit(v, &reference.Reference{Kind: symbol.KindVariable, Name: name, Type: elem})
		}
	default:
		if _, err := w.expr(left); err != nil {
			return "", err
		}
	}
	return typ, nil
}

func (w *refWalker) binary(node *ts.Node) (string, error) {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	op := ""
	if opNode := node.ChildByFieldName("operator"); opNode != nil {
		op = opNode.Utf8Text(w.src)
	} else {
		for i := uint(0); i < node.ChildCount(); i++ {
			if c := node.Child(i); !c.IsNamed() {
				op = c.Utf8Text(w.src)
				break
			}
		}
	}

	switch op {
	case "instanceof":
		// Tree order: left operand first, keeping the lockstep sequence
		// aligned with the symbol reader's walk.
		var leftVar string
		if left != nil {
			if left.Kind() == kindVariableName {
				leftVar = left.Utf8Text(w.src)
				w.emit(left, &reference.Reference{Kind: symbol.KindVariable, Name: leftVar, Type: w.vt.GetType(leftVar)})
			} else if _, err := w.expr(left); err != nil {
				return "", err
			}
		}
		if right != nil {
			switch right.Kind() {
			case kindName, kindQualifiedName, kindRelativeScope:
				fqn, alt := w.resolver.Resolve(right.Utf8Text(w.src), symbol.KindClass)
				w.emit(right, &reference.Reference{Kind: symbol.KindClass, Name: fqn, AltName: alt})
				if leftVar != "" && fqn != "" {
					// The refinement lands in the current branch frame, so
					// the union with the unrefined type is restored when the
					// branch closes.
					w.vt.SetVariable(leftVar, fqn)
				}
			default:
				if _, err := w.expr(right); err != nil {
					return "", err
				}
			}
		}
		return "bool", nil

	case "??":
		var lt, rt string
		var err error
		if left != nil {
			if lt, err = w.expr(left); err != nil {
				return "", err
			}
		}
		if right != nil {
			if rt, err = w.expr(right); err != nil {
				return "", err
			}
		}
		return typestring.Merge(lt, rt), nil

	default:
		if left != nil {
			if _, err := w.expr(left); err != nil {
				return "", err
			}
		}
		if right != nil {
			if _, err := w.expr(right); err != nil {
				return "", err
			}
		}
		switch op {
		case ".":
			return "string", nil
		case "==", "===", "!=", "!==", "<", ">", "<=", ">=", "&&", "||":
			return "bool", nil
		}
		return "", nil
	}
}

func (w *refWalker) conditional(node *ts.Node) (string, error) {
	cond := node.ChildByFieldName("condition")
	body := node.ChildByFieldName("body")
	alt := node.ChildByFieldName("alternative")

	condType := ""
	var err error
	if cond != nil {
		if condType, err = w.expr(cond); err != nil {
			return "", err
		}
	}
	bodyType := condType // short ternary ?: reuses the condition value
	if body != nil {
		if bodyType, err = w.expr(body); err != nil {
			return "", err
		}
	}
	altType := ""
	if alt != nil {
		if altType, err = w.expr(alt); err != nil {
			return "", err
		}
	}
	return typestring.Merge(bodyType, altType), nil
}

func (w *refWalker) anonymousFunction(node *ts.Node) (string, error) {
	fn, err := w.pop(node, symbol.KindFunction)
	if err != nil {
		return "", err
	}

	// Closure use captures carry their current types into the new scope.
	var carry []string
	if use := childOfKind(node, kindAnonFunctionUse); use != nil {
		for _, v := range childrenOfKind(use, kindVariableName) {
			name := v.Utf8Text(w.src)
			w.emit(v, &reference.Reference{Kind: symbol.KindVariable, Name: name, Type: w.vt.GetType(name)})
			carry = append(carry, name)
		}
	}
	if w.resolver.CurrentClass() != nil {
		carry = append(carry, "$this")
	}

	if err := w.callableBody(node, fn, fn.Name, carry); err != nil {
		return "", err
	}
	return "Closure", nil
}

// firstNamedChild returns the first named child, or nil.
func firstNamedChild(node *ts.Node) *ts.Node {
	for i := uint(0); i < node.ChildCount(); i++ {
		if c := node.Child(i); c.IsNamed() {
			return c
		}
	}
	return nil
}

// --- store-backed type resolution ---
//
// Resolution is synchronous over the in-memory indices: the resolver and
// variable state a lazy closure would capture is already final at this point
// in the walk, and an eager query keeps the reference table plain data.

func (w *refWalker) symbolType(s *symbol.Symbol) string {
	if s.Doc != nil && s.Doc.Type != "" {
		return s.Doc.Type
	}
	return s.Type
}

func (w *refWalker) mergeTypes(syms []*symbol.Symbol) string {
	merged := ""
	for _, s := range syms {
		merged = typestring.Merge(merged, w.symbolType(s))
	}
	return merged
}

// memberTypeOf resolves the type of a named member over the class atoms of
// scopeType. self/static atoms in the declared type are bound to the first
// scope class.
func (w *refWalker) memberTypeOf(scopeType, memberName string, kind symbol.Kind) string {
	classes := typestring.AtomicClassArray(scopeType)
	if len(classes) == 0 {
		return ""
	}
	syms := w.store.MemberSymbols(classes, memberName, kind)
	merged := w.mergeTypes(syms)
	if merged == "" {
		return ""
	}
	out := ""
	for _, atom := range typestring.Atoms(merged) {
		base := strings.TrimSuffix(atom, "[]")
		switch strings.ToLower(base) {
		case "self", "static", "$this":
			atom = classes[0] + strings.TrimPrefix(atom, base)
		}
		out = typestring.Merge(out, atom)
	}
	return out
}

func (w *refWalker) functionReturnType(fqn, alt string) string {
	syms := w.store.LookupByName(fqn, symbol.KindFunction)
	if len(syms) == 0 && alt != "" {
		syms = w.store.LookupByName(alt, symbol.KindFunction)
	}
	return w.mergeTypes(syms)
}

func (w *refWalker) constantType(fqn, alt string) string {
	syms := w.store.LookupByName(fqn, symbol.KindConstant)
	if len(syms) == 0 && alt != "" {
		syms = w.store.LookupByName(alt, symbol.KindConstant)
	}
	return w.mergeTypes(syms)
}
