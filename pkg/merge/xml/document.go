package xml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// Header is the declaration written at the top of every serialized part.
const Header = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// Document represents a Word document structure
type Document struct {
	XMLName xml.Name
	// Attrs preserves root element attributes (namespaces)
	Attrs []xml.Attr
	Body  *Body
	// Others keeps root children other than the body, such as w:background,
	// in their original position relative to it
	Others []*RawXMLElement
	// bodyIndex is the position of the body among the root children
	bodyIndex int
}

// Body represents the document body
type Body struct {
	XMLName xml.Name
	Attrs   []xml.Attr
	// Elements maintains the order of all body elements, including the final
	// section properties which stay raw
	Elements []BodyElement
}

// NewDocument creates an empty document with the main namespace declared.
func NewDocument() *Document {
	return &Document{
		XMLName: name(DefaultPrefix, "document"),
		Attrs: []xml.Attr{{
			Name:  name("xmlns", DefaultPrefix),
			Value: "http://schemas.openxmlformats.org/wordprocessingml/2006/main",
		}},
		Body: &Body{XMLName: name(DefaultPrefix, "body")},
	}
}

// Add appends elements to the body
func (b *Body) Add(elems ...BodyElement) {
	b.Elements = append(b.Elements, elems...)
}

// ParseDocument parses a Word document XML
func ParseDocument(r io.Reader) (*Document, error) {
	tr := newTokenReader(r)

	var start xml.StartElement
	for {
		tok, err := tr.d.RawToken()
		if err == io.EOF {
			return nil, errors.New("failed to parse document: no root element")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse document: %w", err)
		}
		if s, ok := tok.(xml.StartElement); ok {
			start = xml.CopyToken(s).(xml.StartElement)
			break
		}
	}
	if start.Name.Local != "document" {
		return nil, fmt.Errorf("failed to parse document: unexpected root element %q", start.Name.Local)
	}

	doc, err := tr.decodeDocument(start)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if doc.Body == nil {
		return nil, errors.New("failed to parse document: missing body")
	}
	return doc, nil
}

func (tr *tokenReader) decodeDocument(start xml.StartElement) (*Document, error) {
	doc := &Document{XMLName: start.Name, Attrs: start.Attr}
	for {
		tok, err := tr.next()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "body" && doc.Body == nil {
				body, err := tr.decodeBody(t)
				if err != nil {
					return nil, err
				}
				doc.Body = body
				doc.bodyIndex = len(doc.Others)
				continue
			}
			raw, err := tr.captureRaw(t)
			if err != nil {
				return nil, err
			}
			doc.Others = append(doc.Others, raw)
		case xml.EndElement:
			return doc, nil
		}
	}
}

func (tr *tokenReader) decodeBody(start xml.StartElement) (*Body, error) {
	b := &Body{XMLName: start.Name, Attrs: start.Attr}
	for {
		tok, err := tr.next()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				p, err := tr.decodeParagraph(t)
				if err != nil {
					return nil, err
				}
				b.Elements = append(b.Elements, p)
			case "tbl":
				table, err := tr.decodeTable(t)
				if err != nil {
					return nil, err
				}
				b.Elements = append(b.Elements, table)
			default:
				// sectPr, sdt, bookmarks and anything else stay as they are
				raw, err := tr.captureRaw(t)
				if err != nil {
					return nil, err
				}
				b.Elements = append(b.Elements, raw)
			}
		case xml.EndElement:
			return b, nil
		}
	}
}

func (b *Body) encode(e *xml.Encoder) error {
	if err := encodeStart(e, b.XMLName, b.Attrs); err != nil {
		return err
	}
	for _, el := range b.Elements {
		if err := el.encode(e); err != nil {
			return err
		}
	}
	return encodeEnd(e, b.XMLName)
}

// Marshal serializes the document, declaration included.
func (doc *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo writes the serialized document to w.
func (doc *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	if _, err := io.WriteString(cw, Header); err != nil {
		return cw.n, err
	}
	e := xml.NewEncoder(cw)
	if err := doc.encode(e); err != nil {
		return cw.n, fmt.Errorf("failed to marshal document: %w", err)
	}
	if err := e.Flush(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

func (doc *Document) encode(e *xml.Encoder) error {
	if err := encodeStart(e, doc.XMLName, doc.Attrs); err != nil {
		return err
	}
	bodyAt := min(doc.bodyIndex, len(doc.Others))
	for i := 0; i <= len(doc.Others); i++ {
		if i == bodyAt && doc.Body != nil {
			if err := doc.Body.encode(e); err != nil {
				return err
			}
		}
		if i < len(doc.Others) {
			if err := doc.Others[i].encode(e); err != nil {
				return err
			}
		}
	}
	return encodeEnd(e, doc.XMLName)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
