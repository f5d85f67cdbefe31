package xml

import (
	"fmt"
	"iter"
)

// Location identifies where a paragraph sits in the document.
type Location struct {
	// InTable is true for paragraphs inside a table cell
	InTable bool
	// Table, Row and Cell are zero-based and only meaningful when InTable is set
	Table int
	Row   int
	Cell  int
	// Paragraph is the index among the body's paragraphs, or among the
	// cell's paragraphs for table content
	Paragraph int
}

func (l Location) String() string {
	if !l.InTable {
		return fmt.Sprintf("paragraph %d", l.Paragraph)
	}
	return fmt.Sprintf("table %d row %d cell %d paragraph %d", l.Table, l.Row, l.Cell, l.Paragraph)
}

// Paragraphs returns a lazy sequence over the document's paragraphs: first
// every paragraph directly in the body, in order, then the paragraphs of each
// top-level table, row by row and cell by cell. Tables nested inside cells are
// not descended into.
//
// The sequence reads the tree as it is when each element is reached, so
// rewriting the yielded paragraph is safe; adding or removing body elements
// while iterating is not.
func (doc *Document) Paragraphs() iter.Seq2[*Paragraph, Location] {
	return func(yield func(*Paragraph, Location) bool) {
		if doc == nil || doc.Body == nil {
			return
		}
		idx := 0
		for _, el := range doc.Body.Elements {
			p, ok := el.(*Paragraph)
			if !ok {
				continue
			}
			if !yield(p, Location{Paragraph: idx}) {
				return
			}
			idx++
		}

		ti := 0
		for _, el := range doc.Body.Elements {
			t, ok := el.(*Table)
			if !ok {
				continue
			}
			for ri, row := range t.Rows() {
				for ci, cell := range row.Cells() {
					for pi, p := range cell.Paragraphs() {
						loc := Location{InTable: true, Table: ti, Row: ri, Cell: ci, Paragraph: pi}
						if !yield(p, loc) {
							return
						}
					}
				}
			}
			ti++
		}
	}
}
