package xml

import (
	"encoding/xml"
)

// DefaultPrefix is the prefix conventionally bound to the WordprocessingML
// main namespace. It is used for elements created from scratch when no
// surrounding element tells us otherwise.
const DefaultPrefix = "w"

// BodyElement represents any element that can appear in a document body or
// a table cell
type BodyElement interface {
	isBodyElement()
	encode(e *xml.Encoder) error
}

// ParagraphContent represents any content that can appear in a paragraph
type ParagraphContent interface {
	isParagraphContent()
	encode(e *xml.Encoder) error
}

// RunContent represents any content that can appear inside a run
type RunContent interface {
	isRunContent()
	encode(e *xml.Encoder) error
}

// TableContent represents any child of a table, row or cell container that is
// not a cell paragraph
type TableContent interface {
	isTableContent()
	encode(e *xml.Encoder) error
}

// name builds a raw (prefix-in-Space) element name.
func name(prefix, local string) xml.Name {
	return xml.Name{Space: prefix, Local: local}
}

// flatten turns a raw name into the form the encoder writes verbatim.
func flatten(n xml.Name) xml.Name {
	if n.Space == "" {
		return n
	}
	return xml.Name{Local: n.Space + ":" + n.Local}
}

func flattenAttrs(attrs []xml.Attr) []xml.Attr {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]xml.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = xml.Attr{Name: flatten(a.Name), Value: a.Value}
	}
	return out
}

// attrValue returns the value of the attribute with the given local name,
// ignoring its prefix
func attrValue(attrs []xml.Attr, local string) (string, bool) {
	for _, a := range attrs {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// setAttr sets (or appends) the attribute with the given local name. An
// existing attribute keeps its prefix.
func setAttr(attrs []xml.Attr, prefix, local, value string) []xml.Attr {
	for i, a := range attrs {
		if a.Name.Local == local {
			attrs[i].Value = value
			return attrs
		}
	}
	return append(attrs, xml.Attr{Name: name(prefix, local), Value: value})
}

// removeAttr drops every attribute with the given local name.
func removeAttr(attrs []xml.Attr, local string) []xml.Attr {
	out := attrs[:0]
	for _, a := range attrs {
		if a.Name.Local != local {
			out = append(out, a)
		}
	}
	return out
}

func copyAttrs(attrs []xml.Attr) []xml.Attr {
	if attrs == nil {
		return nil
	}
	out := make([]xml.Attr, len(attrs))
	copy(out, attrs)
	return out
}

func encodeStart(e *xml.Encoder, n xml.Name, attrs []xml.Attr) error {
	return e.EncodeToken(xml.StartElement{Name: flatten(n), Attr: flattenAttrs(attrs)})
}

func encodeEnd(e *xml.Encoder, n xml.Name) error {
	return e.EncodeToken(xml.EndElement{Name: flatten(n)})
}
