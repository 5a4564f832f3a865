package symbol

import "strings"

// NameResolver applies the current namespace and import rules to convert a
// written name into its FQN. It reflects only declarations lexically
// preceding the query point: the readers mutate it as they pass namespace
// and use declarations.
type NameResolver struct {
	// Namespace is the FQN of the current namespace, "" at file scope.
	Namespace string

	// Rules is the ordered list of use-declaration symbols visible so far.
	// A given (kind, alias) has at most one binding at any point; later
	// declarations shadow earlier ones.
	Rules []*Symbol

	// classStack tracks enclosing class-like FQNs for self/parent/static.
	classStack []*Symbol
}

// Clone returns a snapshot of the resolver state; later mutation of the
// original never leaks into the clone.
func (r *NameResolver) Clone() *NameResolver {
	c := &NameResolver{Namespace: r.Namespace}
	c.Rules = append([]*Symbol(nil), r.Rules...)
	c.classStack = append([]*Symbol(nil), r.classStack...)
	return c
}

// AddRule appends a use-declaration symbol to the import list.
func (r *NameResolver) AddRule(use *Symbol) {
	r.Rules = append(r.Rules, use)
}

// PushClass and PopClass maintain the class stack around class-like bodies.
func (r *NameResolver) PushClass(class *Symbol) { r.classStack = append(r.classStack, class) }

func (r *NameResolver) PopClass() {
	if len(r.classStack) > 0 {
		r.classStack = r.classStack[:len(r.classStack)-1]
	}
}

// CurrentClass returns the innermost enclosing class-like symbol, or nil.
func (r *NameResolver) CurrentClass() *Symbol {
	if len(r.classStack) == 0 {
		return nil
	}
	return r.classStack[len(r.classStack)-1]
}

// isRelativeScope matches the keywords the resolver never resolves itself:
// they are bound against the class stack at query time.
func isRelativeScope(name string) bool {
	switch strings.ToLower(name) {
	case "self", "static", "parent":
		return true
	default:
		return false
	}
}

// Resolve converts a written name into its FQN given the identifier kind
// that selects the import-rule table (KindClass, KindFunction or
// KindConstant). altName is the written form when it matters downstream:
// self/parent/static pass through unresolved, and unqualified function or
// constant names record their global fallback.
func (r *NameResolver) Resolve(written string, kind Kind) (fqn, altName string) {
	if written == "" {
		return "", ""
	}
	if isRelativeScope(written) {
		return r.resolveRelativeScope(written)
	}

	// Fully qualified: leading separator, taken as-is.
	if strings.HasPrefix(written, Separator) {
		return written[len(Separator):], ""
	}

	// Relative: explicit namespace\ prefix replaced by the current namespace.
	lower := strings.ToLower(written)
	if strings.HasPrefix(lower, "namespace"+Separator) {
		return ConcatNamespaceName(r.Namespace, written[len("namespace"+Separator):]), ""
	}

	if i := strings.Index(written, Separator); i >= 0 {
		// Qualified: the first segment may match a class-kind import.
		head, rest := written[:i], written[i+len(Separator):]
		if rule := r.findRule(head, KindClass); rule != nil {
			return ConcatNamespaceName(rule.UseTarget().Name, rest), ""
		}
		return ConcatNamespaceName(r.Namespace, written), ""
	}

	// Unqualified.
	if rule := r.findRule(written, kind); rule != nil {
		return rule.UseTarget().Name, ""
	}
	fqn = ConcatNamespaceName(r.Namespace, written)
	if kind == KindFunction || kind == KindConstant {
		// The runtime falls back to the global name when the namespaced
		// form does not exist; keep the written form for that lookup.
		return fqn, written
	}
	return fqn, ""
}

// resolveRelativeScope maps self/static/parent through the class stack.
func (r *NameResolver) resolveRelativeScope(written string) (fqn, altName string) {
	class := r.CurrentClass()
	if class == nil {
		return "", written
	}
	switch strings.ToLower(written) {
	case "self", "static":
		return class.Name, written
	case "parent":
		for _, a := range class.Associated {
			if a.Kind == KindClass {
				return a.Name, written
			}
		}
		return "", written
	}
	return "", written
}

// findRule returns the last visible rule binding (kind, alias), matching the
// alias case-insensitively for class-kind imports.
func (r *NameResolver) findRule(alias string, kind Kind) *Symbol {
	ruleKind := kind
	switch kind {
	case KindFunction, KindConstant:
	default:
		ruleKind = KindClass
	}
	var found *Symbol
	for _, rule := range r.Rules {
		target := rule.UseTarget()
		if target == nil {
			continue
		}
		tk := target.Kind
		if tk != KindFunction && tk != KindConstant {
			tk = KindClass
		}
		if tk != ruleKind {
			continue
		}
		if KeyFor(rule.Name, ruleKind) == KeyFor(alias, ruleKind) {
			found = rule
		}
	}
	return found
}

// ResolveType runs Resolve over every atom of a type-string via the given
// mapper; exposed as a tiny adapter so typestring.NameResolve can stay
// ignorant of resolver internals.
func (r *NameResolver) ResolveType(atom string) string {
	fqn, _ := r.Resolve(atom, KindClass)
	return fqn
}
