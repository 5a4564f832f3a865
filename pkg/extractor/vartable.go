package extractor

import (
	"github.com/gnana997/phpindex/pkg/typestring"
)

// VariableTable tracks the inferred type of every variable while the
// reference reader walks a document.
//
// Structure: a stack of function scopes, each scope itself a stack of branch
// frames. Lookups search the current scope's frames inner-to-outer and stop
// at the scope boundary: PHP variables are function-scoped, not
// block-scoped. Branch frames are pushed around the arms of if/switch
// families; when the compound statement ends, PruneBranches merges every
// closed arm by type-union, so `if ($c) $x = new A(); else $x = new B();`
// leaves $x as A|B.
type VariableTable struct {
	scopes []*varScope
}

type varScope struct {
	base     map[string]string
	branches []map[string]string

	// pending collects closed sibling branch frames keyed by the depth they
	// were opened at, until PruneBranches folds them in. The depth key keeps
	// nested conditionals from mixing with their parents' arms.
	pending map[int][]map[string]string
}

func newVarScope() *varScope {
	return &varScope{
		base:    make(map[string]string),
		pending: make(map[int][]map[string]string),
	}
}

func (s *varScope) top() map[string]string {
	if len(s.branches) > 0 {
		return s.branches[len(s.branches)-1]
	}
	return s.base
}

func (s *varScope) lookup(name string) (string, bool) {
	for i := len(s.branches) - 1; i >= 0; i-- {
		if t, ok := s.branches[i][name]; ok {
			return t, true
		}
	}
	t, ok := s.base[name]
	return t, ok
}

// NewVariableTable creates a table with the file-level scope in place.
func NewVariableTable() *VariableTable {
	return &VariableTable{scopes: []*varScope{newVarScope()}}
}

func (t *VariableTable) current() *varScope {
	return t.scopes[len(t.scopes)-1]
}

// SetVariable writes name's type into the innermost branch frame of the
// current scope.
func (t *VariableTable) SetVariable(name, typ string) {
	t.current().top()[name] = typ
}

// GetType returns the visible type of name in the current scope, "" when
// unset. The search never crosses the scope boundary.
func (t *VariableTable) GetType(name string) string {
	typ, _ := t.current().lookup(name)
	return typ
}

// Has reports whether name is bound in the current scope.
func (t *VariableTable) Has(name string) bool {
	_, ok := t.current().lookup(name)
	return ok
}

// PushScope opens a new function scope. The current types of the carry
// names are copied in; everything else starts unbound (closure use captures
// and $this are the carry cases).
func (t *VariableTable) PushScope(carry ...string) {
	next := newVarScope()
	for _, name := range carry {
		if typ, ok := t.current().lookup(name); ok {
			next.base[name] = typ
		}
	}
	t.scopes = append(t.scopes, next)
}

// PopScope closes the innermost function scope. The file-level scope is
// never popped.
func (t *VariableTable) PopScope() {
	if len(t.scopes) > 1 {
		t.scopes = t.scopes[:len(t.scopes)-1]
	}
}

// PushBranch opens a branch frame for one arm of a conditional.
func (t *VariableTable) PushBranch() {
	s := t.current()
	s.branches = append(s.branches, make(map[string]string))
}

// PopBranch closes the innermost branch frame, holding its bindings aside
// for PruneBranches.
func (t *VariableTable) PopBranch() {
	s := t.current()
	if len(s.branches) == 0 {
		return
	}
	depth := len(s.branches)
	frame := s.branches[depth-1]
	s.branches = s.branches[:depth-1]
	s.pending[depth] = append(s.pending[depth], frame)
}

// PruneBranches merges every closed arm of the just-finished conditional
// into the enclosing frame by type-union. A name assigned in some arms and
// already bound outside keeps the union of both; a name bound only inside
// becomes the union of its arm types.
func (t *VariableTable) PruneBranches() {
	s := t.current()
	depth := len(s.branches) + 1
	frames := s.pending[depth]
	if len(frames) == 0 {
		return
	}
	delete(s.pending, depth)

	merged := make(map[string]string)
	for _, frame := range frames {
		for name, typ := range frame {
			merged[name] = typestring.Merge(merged[name], typ)
		}
	}
	target := s.top()
	for name, typ := range merged {
		if existing, ok := s.lookup(name); ok {
			typ = typestring.Merge(existing, typ)
		}
		target[name] = typ
	}
}

// ScopeDepth returns the number of open function scopes (file scope
// included).
func (t *VariableTable) ScopeDepth() int {
	return len(t.scopes)
}
