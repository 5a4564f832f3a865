package symbol

// Position is a 0-based line/character pair, matching tree-sitter points.
type Position struct {
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
}

// Before reports whether p sorts strictly before q.
func (p Position) Before(q Position) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Character < q.Character
}

// Range is a half-open span of document text.
//
// Byte offsets are carried alongside the line/character pair so that code can
// be sliced directly from the source buffer: source[StartByte:EndByte].
type Range struct {
	Start     Position `json:"start"`
	End       Position `json:"end"`
	StartByte uint32   `json:"start_byte"`
	EndByte   uint32   `json:"end_byte"`
}

// Contains reports whether pos falls within the range (start inclusive, end
// inclusive so a cursor at the closing character still hits).
func (r Range) Contains(pos Position) bool {
	if pos.Before(r.Start) {
		return false
	}
	return !r.End.Before(pos)
}

// ContainsRange reports whether inner lies entirely within r.
func (r Range) ContainsRange(inner Range) bool {
	return r.StartByte <= inner.StartByte && inner.EndByte <= r.EndByte
}

// Location ties a range to a document.
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

// IsZero reports whether the location is unset. Built-in symbols shipped with
// the indexer have no location.
func (l Location) IsZero() bool {
	return l.URI == "" && l.Range.StartByte == 0 && l.Range.EndByte == 0
}
