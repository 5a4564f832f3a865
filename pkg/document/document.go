// Package document tracks open files: their text, version and syntax tree.
// Edits splice the text, reparses are debounced, and a change event fires
// once the new tree is available.
package document

import (
	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/phpindex/pkg/symbol"
)

// ContentChange is one edit. A nil Range means full-text replacement;
// otherwise Text replaces the range.
type ContentChange struct {
	Range *symbol.Range
	Text  string
}

// Document is one tracked file with its current text and latest parse tree.
// The tree may lag the text until the debounced reparse runs.
type Document struct {
	URI     string
	Version int32

	text        []byte
	tree        *ts.Tree
	lineOffsets []uint32
}

// NewDocument creates a document. The tree is attached by the store after
// the first parse.
func NewDocument(uri string, text []byte, version int32) *Document {
	d := &Document{URI: uri, text: text, Version: version}
	d.computeLineOffsets()
	return d
}

// Text returns the current text. Callers must not mutate it.
func (d *Document) Text() []byte {
	return d.text
}

// Tree returns the latest syntax tree, nil before the first parse.
func (d *Document) Tree() *ts.Tree {
	return d.tree
}

// SetTree replaces the tree, closing the previous one.
func (d *Document) SetTree(tree *ts.Tree) {
	if d.tree != nil {
		d.tree.Close()
	}
	d.tree = tree
}

// Close releases the parse tree.
func (d *Document) Close() {
	if d.tree != nil {
		d.tree.Close()
		d.tree = nil
	}
}

// ApplyChanges applies content changes in order and recomputes line offsets.
func (d *Document) ApplyChanges(changes []ContentChange, version int32) {
	for _, ch := range changes {
		if ch.Range == nil {
			d.text = []byte(ch.Text)
		} else {
			start := d.OffsetAt(ch.Range.Start)
			end := d.OffsetAt(ch.Range.End)
			if end < start {
				start, end = end, start
			}
			if int(end) > len(d.text) {
				end = uint32(len(d.text))
			}
			spliced := make([]byte, 0, len(d.text)-int(end-start)+len(ch.Text))
			spliced = append(spliced, d.text[:start]...)
			spliced = append(spliced, ch.Text...)
			spliced = append(spliced, d.text[end:]...)
			d.text = spliced
		}
		d.computeLineOffsets()
	}
	d.Version = version
}

// OffsetAt converts a position to a byte offset, clamping past-end values.
func (d *Document) OffsetAt(pos symbol.Position) uint32 {
	if int(pos.Line) >= len(d.lineOffsets) {
		return uint32(len(d.text))
	}
	off := d.lineOffsets[pos.Line] + pos.Character
	lineEnd := uint32(len(d.text))
	if int(pos.Line)+1 < len(d.lineOffsets) {
		lineEnd = d.lineOffsets[pos.Line+1]
	}
	if off > lineEnd {
		off = lineEnd
	}
	return off
}

// PositionAt converts a byte offset to a position.
func (d *Document) PositionAt(offset uint32) symbol.Position {
	if offset > uint32(len(d.text)) {
		offset = uint32(len(d.text))
	}
	// Binary search the greatest line start <= offset.
	lo, hi := 0, len(d.lineOffsets)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if d.lineOffsets[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return symbol.Position{Line: uint32(lo), Character: offset - d.lineOffsets[lo]}
}

// EndPosition returns the position one past the last byte.
func (d *Document) EndPosition() symbol.Position {
	return d.PositionAt(uint32(len(d.text)))
}

func (d *Document) computeLineOffsets() {
	offsets := []uint32{0}
	for i, b := range d.text {
		if b == '\n' {
			offsets = append(offsets, uint32(i+1))
		}
	}
	d.lineOffsets = offsets
}
