package extractor

import (
	"log/slog"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/phpindex/pkg/phpdoc"
	"github.com/gnana997/phpindex/pkg/symbol"
	"github.com/gnana997/phpindex/pkg/typestring"
)

// SymbolReader walks a syntax tree and produces the per-file symbol table.
//
// One symbol is emitted per declarative construct. The reader tracks the
// most recent doc-comment and applies it to the next declaration header; a
// doc-comment is consumed on attachment and invalidated once any other
// statement-level construct completes. Attribute lists between a doc-comment
// and its declaration do not invalidate it (they are children of the
// declaration node itself).
type SymbolReader struct {
	logger *slog.Logger
}

// NewSymbolReader creates a symbol reader.
func NewSymbolReader(logger *slog.Logger) *SymbolReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &SymbolReader{logger: logger}
}

// Read builds the symbol table for one parsed document. Error subtrees are
// skipped: a document always yields a table, even if partially empty.
func (r *SymbolReader) Read(uri string, src []byte, tree *ts.Tree) *symbol.Table {
	root := tree.RootNode()
	end := root.EndPosition()
	table := symbol.NewTable(uri,
		symbol.Position{Line: uint32(end.Row), Character: uint32(end.Column)},
		uint32(root.EndByte()))

	w := &symbolWalker{
		uri:      uri,
		src:      src,
		resolver: &symbol.NameResolver{},
		table:    table,
		logger:   r.logger,
	}
	w.pushOwner(table.Root, "")
	w.container = table.Root
	w.statementList(root)
	return table
}

// varOwner is the function-like symbol (or file root) that collects Variable
// children, with the de-duplication set for its body.
type varOwner struct {
	sym   *symbol.Symbol
	scope string
	seen  map[string]bool
}

type symbolWalker struct {
	uri      string
	src      []byte
	resolver *symbol.NameResolver
	table    *symbol.Table
	logger   *slog.Logger

	// container receives named declarations (file root, namespace, class).
	container *symbol.Symbol

	// owners is the variable-owner stack; top receives Variable symbols.
	owners []*varOwner

	lastDoc *phpdoc.Block
}

func (w *symbolWalker) pushOwner(sym *symbol.Symbol, scope string) {
	w.owners = append(w.owners, &varOwner{sym: sym, scope: scope, seen: make(map[string]bool)})
}

func (w *symbolWalker) popOwner() {
	w.owners = w.owners[:len(w.owners)-1]
}

func (w *symbolWalker) owner() *varOwner {
	return w.owners[len(w.owners)-1]
}

// takeDoc consumes the pending doc-comment.
func (w *symbolWalker) takeDoc() *phpdoc.Block {
	doc := w.lastDoc
	w.lastDoc = nil
	return doc
}

func (w *symbolWalker) clearDoc() {
	w.lastDoc = nil
}

// statementList walks the statement children of a block-like node. Every
// completed non-comment statement invalidates the pending doc-comment.
func (w *symbolWalker) statementList(node *ts.Node) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == kindComment {
			w.handleComment(child)
			continue
		}
		if !child.IsNamed() {
			continue
		}
		w.walk(child)
		w.clearDoc()
	}
}

func (w *symbolWalker) handleComment(node *ts.Node) {
	text := node.Utf8Text(w.src)
	if block := phpdoc.Parse(text); block != nil {
		w.lastDoc = block
	}
}

// walk dispatches one node. Declarative constructs synthesize symbols;
// everything else recurses looking for nested declarations and variables.
func (w *symbolWalker) walk(node *ts.Node) {
	switch node.Kind() {
	case kindComment:
		w.handleComment(node)
	case kindErrorNode:
		// Parse recovery: whatever is under an error node did not parse
		// cleanly and is skipped.
		w.clearDoc()
	case kindNamespaceDef:
		w.namespaceDefinition(node)
	case kindNamespaceUse:
		w.namespaceUse(node)
	case kindClassDecl:
		w.classLike(node, symbol.KindClass)
	case kindInterfaceDecl:
		w.classLike(node, symbol.KindInterface)
	case kindTraitDecl:
		w.classLike(node, symbol.KindTrait)
	case kindEnumDecl:
		w.classLike(node, symbol.KindClass)
	case kindFunctionDef:
		w.functionDefinition(node)
	case kindConstDecl:
		w.constDeclaration(node, nil)
	case kindGlobalDecl:
		w.globalDeclaration(node)
	case kindCatchClause:
		w.catchClause(node)
	case kindAnonymousFunction, kindAnonymousFunctionOld, kindArrowFunction:
		w.anonymousFunction(node)
	case kindObjectCreation:
		if childOfKind(node, kindDeclarationList) != nil {
			w.anonymousClass(node)
			return
		}
		w.walkChildren(node)
	case kindFunctionCall:
		if w.defineCall(node) {
			return
		}
		w.walkChildren(node)
	case kindVariableName:
		w.simpleVariable(node)
	case kindCompoundStatement:
		w.statementList(node)
	default:
		w.walkChildren(node)
	}
}

func (w *symbolWalker) walkChildren(node *ts.Node) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.IsNamed() {
			w.walk(child)
		}
	}
}

// --- namespaces and imports ---

func (w *symbolWalker) namespaceDefinition(node *ts.Node) {
	w.clearDoc()
	name := ""
	if n := node.ChildByFieldName("name"); n != nil {
		name = n.Utf8Text(w.src)
	}
	ns := &symbol.Symbol{
		Kind:     symbol.KindNamespace,
		Name:     name,
		Location: nodeLocation(w.uri, node),
	}
	w.table.Root.Children = append(w.table.Root.Children, ns)

	prevNamespace := w.resolver.Namespace
	prevRules := w.resolver.Rules
	w.resolver.Namespace = name
	w.resolver.Rules = nil

	if body := childOfKind(node, kindCompoundStatement); body != nil {
		// Braced form: the namespace scopes its block, then the previous
		// state is restored.
		prevContainer := w.container
		w.container = ns
		w.statementList(body)
		w.container = prevContainer
		w.resolver.Namespace = prevNamespace
		w.resolver.Rules = prevRules
		return
	}
	// Unbraced form: the namespace persists until the next definition.
	w.container = ns
}

func (w *symbolWalker) namespaceUse(node *ts.Node) {
	w.clearDoc()
	declKind := symbol.KindClass
	if hasChildToken(node, w.src, "function") {
		declKind = symbol.KindFunction
	} else if hasChildToken(node, w.src, "const") {
		declKind = symbol.KindConstant
	}

	if group := childOfKind(node, kindNamespaceUseGroup); group != nil {
		prefix := ""
		for _, kind := range []string{kindNamespaceName, kindQualifiedName, kindName} {
			if n := childOfKind(node, kind); n != nil {
				prefix = strings.TrimPrefix(n.Utf8Text(w.src), symbol.Separator)
				break
			}
		}
		for _, clause := range childrenOfKind(group, kindNamespaceUseClause) {
			w.useClause(clause, declKind, prefix)
		}
		return
	}

	for _, clause := range childrenOfKind(node, kindNamespaceUseClause) {
		w.useClause(clause, declKind, "")
	}
}

func (w *symbolWalker) useClause(clause *ts.Node, declKind symbol.Kind, prefix string) {
	kind := declKind
	if hasChildToken(clause, w.src, "function") {
		kind = symbol.KindFunction
	} else if hasChildToken(clause, w.src, "const") {
		kind = symbol.KindConstant
	}

	var target string
	for _, k := range []string{kindQualifiedName, kindName} {
		if n := childOfKind(clause, k); n != nil {
			target = strings.TrimPrefix(n.Utf8Text(w.src), symbol.Separator)
			break
		}
	}
	if target == "" {
		return
	}
	target = symbol.ConcatNamespaceName(prefix, target)

	alias := symbol.NotFqn(target)
	if an := clause.ChildByFieldName("alias"); an != nil {
		alias = an.Utf8Text(w.src)
	} else if ac := childOfKind(clause, kindNamespaceAliasing); ac != nil {
		if an := childOfKind(ac, kindName); an != nil {
			alias = an.Utf8Text(w.src)
		}
	}

	use := &symbol.Symbol{
		Kind:       kind,
		Name:       alias,
		Modifiers:  symbol.ModifierUse,
		Location:   nodeLocation(w.uri, clause),
		Associated: []*symbol.Symbol{{Kind: kind, Name: target}},
	}
	w.container.Children = append(w.container.Children, use)
	w.resolver.AddRule(use)
}

// --- class-like declarations ---

func (w *symbolWalker) classLike(node *ts.Node, kind symbol.Kind) {
	doc := w.takeDoc()

	name := ""
	if n := node.ChildByFieldName("name"); n != nil {
		name = n.Utf8Text(w.src)
	}
	fqn := symbol.ConcatNamespaceName(w.resolver.Namespace, name)

	sym := &symbol.Symbol{
		Kind:      kind,
		Name:      fqn,
		Modifiers: collectModifiers(node, w.src),
		Location:  nodeLocation(w.uri, node),
	}
	if doc != nil && doc.Summary != "" {
		sym.Doc = &symbol.Doc{Description: doc.Summary}
	}
	w.container.Children = append(w.container.Children, sym)

	w.classAssociations(node, sym, kind)
	w.resolver.PushClass(sym)
	if body := classBodyNode(node); body != nil {
		w.classBody(body, sym)
	}
	w.resolver.PopClass()

	if doc != nil {
		w.magicMembers(sym, doc)
	}
	symbol.SetScope(sym.Children, fqn)
}

// classAssociations fills sym.Associated from the base clause, implements
// clause and trait-use declarations, in declaration order.
func (w *symbolWalker) classAssociations(node *ts.Node, sym *symbol.Symbol, kind symbol.Kind) {
	if base := childOfKind(node, kindBaseClause); base != nil {
		baseKind := symbol.KindClass
		if kind == symbol.KindInterface {
			// interface A extends B, C: the bases are interfaces.
			baseKind = symbol.KindInterface
		}
		for _, shadow := range w.nameShadows(base, baseKind) {
			sym.Associated = append(sym.Associated, shadow)
			if kind == symbol.KindClass && baseKind == symbol.KindClass {
				// At most one base class.
				break
			}
		}
	}
	if impl := childOfKind(node, kindInterfaceClause); impl != nil {
		sym.Associated = append(sym.Associated, w.nameShadows(impl, symbol.KindInterface)...)
	}
	if body := classBodyNode(node); body != nil {
		for _, use := range childrenOfKind(body, kindUseDecl) {
			sym.Associated = append(sym.Associated, w.nameShadows(use, symbol.KindTrait)...)
		}
	}
}

// nameShadows resolves every name under node into a shadow symbol.
func (w *symbolWalker) nameShadows(node *ts.Node, kind symbol.Kind) []*symbol.Symbol {
	var out []*symbol.Symbol
	for i := uint(0); i < node.ChildCount(); i++ {
		c := node.Child(i)
		switch c.Kind() {
		case kindName, kindQualifiedName:
			fqn, _ := w.resolver.Resolve(c.Utf8Text(w.src), symbol.KindClass)
			out = append(out, &symbol.Symbol{Kind: kind, Name: fqn})
		}
	}
	return out
}

func (w *symbolWalker) classBody(body *ts.Node, class *symbol.Symbol) {
	for i := uint(0); i < body.ChildCount(); i++ {
		child := body.Child(i)
		switch child.Kind() {
		case kindComment:
			w.handleComment(child)
			continue
		case kindMethodDecl:
			w.methodDeclaration(child, class)
		case kindPropertyDecl:
			w.propertyDeclaration(child, class)
		case kindConstDecl:
			w.constDeclaration(child, class)
		case kindEnumCase:
			w.enumCase(child, class)
		case kindUseDecl:
			// Trait uses were already folded into Associated.
		case kindErrorNode:
			// Skip unparsed members.
		}
		if child.IsNamed() {
			w.clearDoc()
		}
	}
}

// magicMembers materializes @property and @method tags as Magic children.
func (w *symbolWalker) magicMembers(class *symbol.Symbol, doc *phpdoc.Block) {
	for _, p := range doc.Properties {
		mod := symbol.ModifierPublic | symbol.ModifierMagic
		if p.ReadOnly {
			mod |= symbol.ModifierReadOnly
		}
		if p.WriteOnly {
			mod |= symbol.ModifierWriteOnly
		}
		class.Children = append(class.Children, &symbol.Symbol{
			Kind:      symbol.KindProperty,
			Name:      p.Name,
			Modifiers: mod,
			Type:      typestring.NameResolve(p.Type, w.resolver.ResolveType),
			Doc:       &symbol.Doc{Description: p.Description},
		})
	}
	for _, m := range doc.Methods {
		mod := symbol.ModifierPublic | symbol.ModifierMagic
		if m.Static {
			mod |= symbol.ModifierStatic
		}
		method := &symbol.Symbol{
			Kind:      symbol.KindMethod,
			Name:      m.Name,
			Modifiers: mod,
			Type:      typestring.NameResolve(m.ReturnType, w.resolver.ResolveType),
			Doc:       &symbol.Doc{Description: m.Description},
		}
		for _, p := range m.Params {
			method.Children = append(method.Children, &symbol.Symbol{
				Kind:      symbol.KindParameter,
				Name:      p.Name,
				Modifiers: symbol.ModifierMagic,
				Type:      typestring.NameResolve(p.Type, w.resolver.ResolveType),
			})
		}
		class.Children = append(class.Children, method)
	}
}

// --- callables ---

func (w *symbolWalker) functionDefinition(node *ts.Node) {
	doc := w.takeDoc()

	name := ""
	if n := node.ChildByFieldName("name"); n != nil {
		name = n.Utf8Text(w.src)
	}
	fqn := symbol.ConcatNamespaceName(w.resolver.Namespace, name)

	sym := &symbol.Symbol{
		Kind:     symbol.KindFunction,
		Name:     fqn,
		Location: nodeLocation(w.uri, node),
	}
	w.container.Children = append(w.container.Children, sym)
	w.fillCallable(sym, node, doc, fqn)
}

func (w *symbolWalker) methodDeclaration(node *ts.Node, class *symbol.Symbol) {
	doc := w.takeDoc()

	name := ""
	if n := node.ChildByFieldName("name"); n != nil {
		name = n.Utf8Text(w.src)
	}
	kind := symbol.KindMethod
	if strings.EqualFold(name, "__construct") {
		kind = symbol.KindConstructor
	}
	mods := collectModifiers(node, w.src)
	if mods.Visibility() == 0 {
		mods |= symbol.ModifierPublic
	}

	sym := &symbol.Symbol{
		Kind:      kind,
		Name:      name,
		Modifiers: mods,
		Location:  nodeLocation(w.uri, node),
	}
	class.Children = append(class.Children, sym)
	w.fillCallable(sym, node, doc, class.Name+"::"+name)
}

// fillCallable shares the parameter, return type, doc and body handling of
// functions and methods. scope is the FQN locals are stamped with.
func (w *symbolWalker) fillCallable(sym *symbol.Symbol, node *ts.Node, doc *phpdoc.Block, scope string) {
	sym.Type = declaredTypeString(node.ChildByFieldName("return_type"), w.src, w.resolver)
	if doc != nil {
		sym.Doc = &symbol.Doc{Description: doc.Summary}
		if doc.Returns != nil {
			sym.Doc.Type = typestring.NameResolve(doc.Returns.Type, w.resolver.ResolveType)
		}
	}

	if params := node.ChildByFieldName("parameters"); params != nil {
		sym.Children = append(sym.Children, w.parameters(params, doc)...)
	}

	w.pushOwner(sym, scope)
	// Parameters are declared names within the body.
	for _, p := range sym.Parameters() {
		w.owner().seen[p.Name] = true
	}
	if body := node.ChildByFieldName("body"); body != nil {
		w.walk(body)
	}
	w.popOwner()
	w.clearDoc()
	symbol.SetScope(sym.Children, scope)
}

func (w *symbolWalker) parameters(params *ts.Node, doc *phpdoc.Block) []*symbol.Symbol {
	var out []*symbol.Symbol
	for i := uint(0); i < params.NamedChildCount(); i++ {
		child := params.NamedChild(i)
		switch child.Kind() {
		case kindSimpleParameter, kindVariadicParameter, kindPromotionParameter:
		default:
			continue
		}

		name := ""
		if n := child.ChildByFieldName("name"); n != nil {
			name = n.Utf8Text(w.src)
		} else if n := childOfKind(child, kindVariableName); n != nil {
			name = n.Utf8Text(w.src)
		}
		if name == "" {
			continue
		}

		p := &symbol.Symbol{
			Kind:      symbol.KindParameter,
			Name:      name,
			Modifiers: collectModifiers(child, w.src),
			Location:  nodeLocation(w.uri, child),
			Type:      declaredTypeString(child.ChildByFieldName("type"), w.src, w.resolver),
		}
		if child.Kind() == kindVariadicParameter {
			p.Modifiers |= symbol.ModifierVariadic
		}
		if childOfKind(child, "reference_modifier") != nil {
			p.Modifiers |= symbol.ModifierReference
		}
		if def := child.ChildByFieldName("default_value"); def != nil {
			p.Value = def.Utf8Text(w.src)
			if p.Type == "" {
				p.Type = literalType(def)
			}
		}
		if doc != nil {
			if tag := doc.ParamTag(name); tag != nil {
				p.Doc = &symbol.Doc{
					Description: tag.Description,
					Type:        typestring.NameResolve(tag.Type, w.resolver.ResolveType),
				}
				if p.Type == "" {
					p.Type = p.Doc.Type
				}
			}
		}
		out = append(out, p)
	}
	return out
}

func (w *symbolWalker) anonymousFunction(node *ts.Node) {
	doc := w.takeDoc()

	sym := &symbol.Symbol{
		Kind:      symbol.KindFunction,
		Name:      symbol.AnonymousName(w.uri, uint32(node.StartByte())),
		Modifiers: symbol.ModifierAnonymous,
		Location:  nodeLocation(w.uri, node),
	}
	owner := w.owner()
	owner.sym.Children = append(owner.sym.Children, sym)

	sym.Type = declaredTypeString(node.ChildByFieldName("return_type"), w.src, w.resolver)
	if doc != nil && doc.Summary != "" {
		sym.Doc = &symbol.Doc{Description: doc.Summary}
	}
	if params := node.ChildByFieldName("parameters"); params != nil {
		sym.Children = append(sym.Children, w.parameters(params, doc)...)
	}

	// Closure use clause: captures become Variable children with Use.
	if use := childOfKind(node, kindAnonFunctionUse); use != nil {
		for _, v := range childrenOfKind(use, kindVariableName) {
			sym.Children = append(sym.Children, &symbol.Symbol{
				Kind:      symbol.KindVariable,
				Name:      v.Utf8Text(w.src),
				Modifiers: symbol.ModifierUse,
				Location:  nodeLocation(w.uri, v),
			})
		}
	}

	w.pushOwner(sym, sym.Name)
	for _, c := range sym.Children {
		if c.Kind == symbol.KindParameter || c.Kind == symbol.KindVariable {
			w.owner().seen[c.Name] = true
		}
	}
	if body := node.ChildByFieldName("body"); body != nil {
		w.walk(body)
	}
	w.popOwner()
	symbol.SetScope(sym.Children, sym.Name)
}

func (w *symbolWalker) anonymousClass(node *ts.Node) {
	w.clearDoc()
	sym := &symbol.Symbol{
		Kind:      symbol.KindClass,
		Name:      symbol.AnonymousName(w.uri, uint32(node.StartByte())),
		Modifiers: symbol.ModifierAnonymous,
		Location:  nodeLocation(w.uri, node),
	}
	w.container.Children = append(w.container.Children, sym)

	w.classAssociations(node, sym, symbol.KindClass)
	w.resolver.PushClass(sym)
	if body := classBodyNode(node); body != nil {
		w.classBody(body, sym)
	}
	w.resolver.PopClass()
	symbol.SetScope(sym.Children, sym.Name)

	// Constructor arguments still reference enclosing variables.
	if args := childOfKind(node, kindArguments); args != nil {
		w.walkChildren(args)
	}
}

// --- constants, properties, globals, variables ---

// constDeclaration handles both namespace-level const statements (class is
// nil) and class constant declarations.
func (w *symbolWalker) constDeclaration(node *ts.Node, class *symbol.Symbol) {
	doc := w.takeDoc()

	mods := collectModifiers(node, w.src)
	kind := symbol.KindConstant
	if class != nil {
		kind = symbol.KindClassConstant
		// Class constants are implicitly static.
		mods |= symbol.ModifierStatic
		if mods.Visibility() == 0 {
			mods |= symbol.ModifierPublic
		}
	}

	for _, el := range childrenOfKind(node, kindConstElement) {
		nameNode := childOfKind(el, kindName)
		if nameNode == nil {
			continue
		}
		name := nameNode.Utf8Text(w.src)
		if class == nil {
			name = symbol.ConcatNamespaceName(w.resolver.Namespace, name)
		}

		sym := &symbol.Symbol{
			Kind:      kind,
			Name:      name,
			Modifiers: mods,
			Location:  nodeLocation(w.uri, el),
		}
		// The value expression is the last named child after the name.
		for i := el.NamedChildCount(); i > 0; i-- {
			c := el.NamedChild(i - 1)
			if c.Kind() != kindName {
				sym.Value = c.Utf8Text(w.src)
				sym.Type = literalType(c)
				break
			}
		}
		if doc != nil && doc.Summary != "" {
			sym.Doc = &symbol.Doc{Description: doc.Summary}
		}
		if class != nil {
			class.Children = append(class.Children, sym)
		} else {
			w.container.Children = append(w.container.Children, sym)
		}
	}
}

func (w *symbolWalker) enumCase(node *ts.Node, class *symbol.Symbol) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	sym := &symbol.Symbol{
		Kind:      symbol.KindClassConstant,
		Name:      nameNode.Utf8Text(w.src),
		Modifiers: symbol.ModifierPublic | symbol.ModifierStatic,
		Location:  nodeLocation(w.uri, node),
		Type:      class.Name,
	}
	if value := node.ChildByFieldName("value"); value != nil {
		sym.Value = value.Utf8Text(w.src)
	}
	class.Children = append(class.Children, sym)
}

func (w *symbolWalker) propertyDeclaration(node *ts.Node, class *symbol.Symbol) {
	doc := w.takeDoc()

	mods := collectModifiers(node, w.src)
	if mods.Visibility() == 0 {
		mods |= symbol.ModifierPublic
	}
	declaredType := declaredTypeString(node.ChildByFieldName("type"), w.src, w.resolver)

	for _, el := range childrenOfKind(node, kindPropertyElement) {
		nameNode := childOfKind(el, kindVariableName)
		if nameNode == nil {
			continue
		}
		sym := &symbol.Symbol{
			Kind:      symbol.KindProperty,
			Name:      nameNode.Utf8Text(w.src),
			Modifiers: mods,
			Location:  nodeLocation(w.uri, el),
			Type:      declaredType,
		}
		for i := el.NamedChildCount(); i > 0; i-- {
			c := el.NamedChild(i - 1)
			if c.Kind() != kindVariableName {
				sym.Value = c.Utf8Text(w.src)
				if sym.Type == "" {
					sym.Type = literalType(c)
				}
				break
			}
		}
		if doc != nil {
			sym.Doc = &symbol.Doc{Description: doc.Summary}
			if tag := doc.VarTag(sym.Name); tag != nil {
				sym.Doc.Type = typestring.NameResolve(tag.Type, w.resolver.ResolveType)
				if sym.Type == "" {
					sym.Type = sym.Doc.Type
				}
			}
		}
		class.Children = append(class.Children, sym)
	}
}

// globalDeclaration emits GlobalVariable symbols only when the preceding
// doc-comment carried matching @global tags.
func (w *symbolWalker) globalDeclaration(node *ts.Node) {
	doc := w.takeDoc()
	if doc == nil || len(doc.Globals) == 0 {
		return
	}
	for _, v := range childrenOfKind(node, kindVariableName) {
		name := v.Utf8Text(w.src)
		tag := doc.GlobalTag(name)
		if tag == nil {
			continue
		}
		w.container.Children = append(w.container.Children, &symbol.Symbol{
			Kind:     symbol.KindGlobalVariable,
			Name:     name,
			Location: nodeLocation(w.uri, v),
			Type:     typestring.NameResolve(tag.Type, w.resolver.ResolveType),
			Doc:      &symbol.Doc{Description: tag.Description},
		})
	}
}

// defineCall recognizes the define(literal, value) idiom and emits a
// Constant. Returns false when the call is not a define.
func (w *symbolWalker) defineCall(node *ts.Node) bool {
	nameLit, value, ok := defineArguments(node, w.src)
	if !ok {
		return false
	}

	name := stripQuotes(nameLit.Utf8Text(w.src))
	// A literal backslash is written \\ inside a PHP string literal.
	name = strings.ReplaceAll(name, `\\`, `\`)
	name = strings.TrimPrefix(name, symbol.Separator)
	sym := &symbol.Symbol{
		Kind:     symbol.KindConstant,
		Name:     name,
		Location: nodeLocation(w.uri, node),
		Value:    value.Utf8Text(w.src),
		Type:     literalType(value),
	}
	w.container.Children = append(w.container.Children, sym)
	// The value expression may still declare (closures, anonymous classes).
	w.walk(value)
	return true
}

func (w *symbolWalker) catchClause(node *ts.Node) {
	typeStr := ""
	if tl := childOfKind(node, kindTypeList); tl != nil {
		for i := uint(0); i < tl.ChildCount(); i++ {
			c := tl.Child(i)
			switch c.Kind() {
			case kindName, kindQualifiedName:
				fqn, _ := w.resolver.Resolve(c.Utf8Text(w.src), symbol.KindClass)
				typeStr = typestring.Merge(typeStr, fqn)
			case "named_type":
				typeStr = typestring.Merge(typeStr, declaredTypeString(c, w.src, w.resolver))
			}
		}
	}
	if v := childOfKind(node, kindVariableName); v != nil {
		name := v.Utf8Text(w.src)
		owner := w.owner()
		if !IsSuperglobal(name) && !owner.seen[name] {
			owner.seen[name] = true
			owner.sym.Children = append(owner.sym.Children, &symbol.Symbol{
				Kind:     symbol.KindVariable,
				Name:     name,
				Scope:    owner.scope,
				Location: nodeLocation(w.uri, v),
				Type:     typeStr,
			})
		}
	}
	if body := node.ChildByFieldName("body"); body != nil {
		w.walk(body)
	}
}

// simpleVariable de-duplicates: repeated occurrences of the same name within
// a function body do not create new symbols, and superglobals and $this are
// never emitted as declared variables.
func (w *symbolWalker) simpleVariable(node *ts.Node) {
	name := node.Utf8Text(w.src)
	if IsSuperglobal(name) || !strings.HasPrefix(name, "$") {
		return
	}
	owner := w.owner()
	if owner.seen[name] {
		return
	}
	owner.seen[name] = true
	owner.sym.Children = append(owner.sym.Children, &symbol.Symbol{
		Kind:     symbol.KindVariable,
		Name:     name,
		Scope:    owner.scope,
		Location: nodeLocation(w.uri, node),
	})
}
