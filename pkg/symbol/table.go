package symbol

// Table owns the symbol tree for one document: a File-kind root spanning the
// whole text, with every declared symbol below it. Tables are created
// atomically per parse and replaced wholesale on reparse.
type Table struct {
	URI  string  `json:"uri"`
	Root *Symbol `json:"root"`
}

// NewTable creates a table with an empty File root covering [0, endByte).
func NewTable(uri string, end Position, endByte uint32) *Table {
	return &Table{
		URI: uri,
		Root: &Symbol{
			Kind: KindFile,
			Name: uri,
			Location: Location{
				URI: uri,
				Range: Range{
					Start:   Position{},
					End:     end,
					EndByte: endByte,
				},
			},
		},
	}
}

// Traverse visits every symbol pre-order. Returning false from visit stops
// the walk.
func (t *Table) Traverse(visit func(*Symbol) bool) {
	if t.Root == nil {
		return
	}
	preorder(t.Root, visit)
}

func preorder(s *Symbol, visit func(*Symbol) bool) bool {
	if !visit(s) {
		return false
	}
	for _, c := range s.Children {
		if !preorder(c, visit) {
			return false
		}
	}
	return true
}

// Preorder returns the flattened pre-order symbol list, root included.
func (t *Table) Preorder() []*Symbol {
	var out []*Symbol
	t.Traverse(func(s *Symbol) bool {
		out = append(out, s)
		return true
	})
	return out
}

// Count returns the number of symbols in the table, root included.
func (t *Table) Count() int {
	n := 0
	t.Traverse(func(*Symbol) bool { n++; return true })
	return n
}

// Filter returns every symbol matching pred, pre-order.
func (t *Table) Filter(pred func(*Symbol) bool) []*Symbol {
	var out []*Symbol
	t.Traverse(func(s *Symbol) bool {
		if pred(s) {
			out = append(out, s)
		}
		return true
	})
	return out
}

// SymbolAtPosition returns the innermost symbol whose location encloses pos.
func (t *Table) SymbolAtPosition(pos Position) *Symbol {
	if t.Root == nil {
		return nil
	}
	return innermostAt(t.Root, pos)
}

func innermostAt(s *Symbol, pos Position) *Symbol {
	if s.Location.IsZero() || !s.Location.Range.Contains(pos) {
		return nil
	}
	for _, c := range s.Children {
		if inner := innermostAt(c, pos); inner != nil {
			return inner
		}
	}
	return s
}
