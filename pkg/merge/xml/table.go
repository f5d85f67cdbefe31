package xml

import (
	"encoding/xml"
)

// Table represents a table in the document. Properties and grid definitions
// are kept as raw children alongside the rows, in document order.
type Table struct {
	XMLName  xml.Name
	Attrs    []xml.Attr
	Children []TableContent
}

// isBodyElement implements the BodyElement interface
func (t *Table) isBodyElement() {}

// isTableContent lets a table nest inside a cell
func (t *Table) isTableContent() {}

// NewTable creates a table holding the given rows.
func NewTable(rows ...*TableRow) *Table {
	t := &Table{XMLName: name(DefaultPrefix, "tbl")}
	for _, r := range rows {
		t.Children = append(t.Children, r)
	}
	return t
}

// Rows returns the table rows in order
func (t *Table) Rows() []*TableRow {
	var rows []*TableRow
	for _, c := range t.Children {
		if r, ok := c.(*TableRow); ok {
			rows = append(rows, r)
		}
	}
	return rows
}

func (t *Table) encode(e *xml.Encoder) error {
	if err := encodeStart(e, t.XMLName, t.Attrs); err != nil {
		return err
	}
	for _, c := range t.Children {
		if err := c.encode(e); err != nil {
			return err
		}
	}
	return encodeEnd(e, t.XMLName)
}

func (tr *tokenReader) decodeTable(start xml.StartElement) (*Table, error) {
	t := &Table{XMLName: start.Name, Attrs: start.Attr}
	for {
		tok, err := tr.next()
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "tr" {
				row, err := tr.decodeRow(el)
				if err != nil {
					return nil, err
				}
				t.Children = append(t.Children, row)
				continue
			}
			raw, err := tr.captureRaw(el)
			if err != nil {
				return nil, err
			}
			t.Children = append(t.Children, raw)
		case xml.EndElement:
			return t, nil
		}
	}
}

// TableRow represents a row in a table
type TableRow struct {
	XMLName  xml.Name
	Attrs    []xml.Attr
	Children []TableContent
}

func (r *TableRow) isTableContent() {}

// NewTableRow creates a row holding the given cells.
func NewTableRow(cells ...*TableCell) *TableRow {
	r := &TableRow{XMLName: name(DefaultPrefix, "tr")}
	for _, c := range cells {
		r.Children = append(r.Children, c)
	}
	return r
}

// Cells returns the cells of the row in order
func (r *TableRow) Cells() []*TableCell {
	var cells []*TableCell
	for _, c := range r.Children {
		if cell, ok := c.(*TableCell); ok {
			cells = append(cells, cell)
		}
	}
	return cells
}

func (r *TableRow) encode(e *xml.Encoder) error {
	if err := encodeStart(e, r.XMLName, r.Attrs); err != nil {
		return err
	}
	for _, c := range r.Children {
		if err := c.encode(e); err != nil {
			return err
		}
	}
	return encodeEnd(e, r.XMLName)
}

func (tr *tokenReader) decodeRow(start xml.StartElement) (*TableRow, error) {
	row := &TableRow{XMLName: start.Name, Attrs: start.Attr}
	for {
		tok, err := tr.next()
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "tc" {
				cell, err := tr.decodeCell(el)
				if err != nil {
					return nil, err
				}
				row.Children = append(row.Children, cell)
				continue
			}
			raw, err := tr.captureRaw(el)
			if err != nil {
				return nil, err
			}
			row.Children = append(row.Children, raw)
		case xml.EndElement:
			return row, nil
		}
	}
}

// TableCell represents a cell in a table row
type TableCell struct {
	XMLName  xml.Name
	Attrs    []xml.Attr
	Children []TableContent
}

func (c *TableCell) isTableContent() {}

// NewTableCell creates a cell holding the given paragraphs.
func NewTableCell(paras ...*Paragraph) *TableCell {
	c := &TableCell{XMLName: name(DefaultPrefix, "tc")}
	for _, p := range paras {
		c.Children = append(c.Children, p)
	}
	return c
}

// Paragraphs returns the paragraphs directly inside the cell. Paragraphs of
// nested tables are not included.
func (c *TableCell) Paragraphs() []*Paragraph {
	var paras []*Paragraph
	for _, child := range c.Children {
		if p, ok := child.(*Paragraph); ok {
			paras = append(paras, p)
		}
	}
	return paras
}

// GetText returns the text of all direct cell paragraphs joined by newlines
func (c *TableCell) GetText() string {
	var text string
	for i, p := range c.Paragraphs() {
		if i > 0 {
			text += "\n"
		}
		text += p.GetText()
	}
	return text
}

func (c *TableCell) encode(e *xml.Encoder) error {
	if err := encodeStart(e, c.XMLName, c.Attrs); err != nil {
		return err
	}
	for _, child := range c.Children {
		if err := child.encode(e); err != nil {
			return err
		}
	}
	return encodeEnd(e, c.XMLName)
}

func (tr *tokenReader) decodeCell(start xml.StartElement) (*TableCell, error) {
	cell := &TableCell{XMLName: start.Name, Attrs: start.Attr}
	for {
		tok, err := tr.next()
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "p":
				p, err := tr.decodeParagraph(el)
				if err != nil {
					return nil, err
				}
				cell.Children = append(cell.Children, p)
			case "tbl":
				t, err := tr.decodeTable(el)
				if err != nil {
					return nil, err
				}
				cell.Children = append(cell.Children, t)
			default:
				raw, err := tr.captureRaw(el)
				if err != nil {
					return nil, err
				}
				cell.Children = append(cell.Children, raw)
			}
		case xml.EndElement:
			return cell, nil
		}
	}
}
