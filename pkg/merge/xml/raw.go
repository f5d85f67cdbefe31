package xml

import (
	"encoding/xml"
	"io"
)

// RawXMLElement represents an XML element that we preserve but don't parse.
// Tokens holds the complete element, from its start tag to its matching end
// tag, exactly as returned by the raw decoder.
type RawXMLElement struct {
	XMLName xml.Name
	Tokens  []xml.Token
}

func (r *RawXMLElement) isBodyElement()      {}
func (r *RawXMLElement) isParagraphContent() {}
func (r *RawXMLElement) isRunContent()       {}
func (r *RawXMLElement) isTableContent()     {}

// NewElement creates an empty raw element such as <w:b/>.
func NewElement(prefix, local string, attrs ...xml.Attr) *RawXMLElement {
	n := name(prefix, local)
	return &RawXMLElement{
		XMLName: n,
		Tokens: []xml.Token{
			xml.StartElement{Name: n, Attr: attrs},
			xml.EndElement{Name: n},
		},
	}
}

// Attrs returns the attributes of the element's start tag.
func (r *RawXMLElement) Attrs() []xml.Attr {
	if len(r.Tokens) == 0 {
		return nil
	}
	if start, ok := r.Tokens[0].(xml.StartElement); ok {
		return start.Attr
	}
	return nil
}

// Attr returns the value of the start tag attribute with the given local name.
func (r *RawXMLElement) Attr(local string) (string, bool) {
	return attrValue(r.Attrs(), local)
}

// SetAttr sets an attribute on the start tag, keeping the prefix of an
// existing attribute with the same local name.
func (r *RawXMLElement) SetAttr(prefix, local, value string) {
	if len(r.Tokens) == 0 {
		return
	}
	start, ok := r.Tokens[0].(xml.StartElement)
	if !ok {
		return
	}
	start.Attr = setAttr(copyAttrs(start.Attr), prefix, local, value)
	r.Tokens[0] = start
}

// RemoveAttr removes start tag attributes with the given local name.
func (r *RawXMLElement) RemoveAttr(local string) {
	if len(r.Tokens) == 0 {
		return
	}
	start, ok := r.Tokens[0].(xml.StartElement)
	if !ok {
		return
	}
	start.Attr = removeAttr(copyAttrs(start.Attr), local)
	r.Tokens[0] = start
}

// Clone returns a deep copy of the element.
func (r *RawXMLElement) Clone() *RawXMLElement {
	if r == nil {
		return nil
	}
	tokens := make([]xml.Token, len(r.Tokens))
	for i, t := range r.Tokens {
		tokens[i] = xml.CopyToken(t)
	}
	return &RawXMLElement{XMLName: r.XMLName, Tokens: tokens}
}

func (r *RawXMLElement) encode(e *xml.Encoder) error {
	for _, tok := range r.Tokens {
		switch t := tok.(type) {
		case xml.StartElement:
			if err := encodeStart(e, t.Name, t.Attr); err != nil {
				return err
			}
		case xml.EndElement:
			if err := encodeEnd(e, t.Name); err != nil {
				return err
			}
		case xml.ProcInst:
			// Processing instructions other than the declaration are legal
			// anywhere; the declaration itself never reaches a raw element.
			if t.Target == "xml" {
				continue
			}
			if err := e.EncodeToken(t); err != nil {
				return err
			}
		default:
			if err := e.EncodeToken(tok); err != nil {
				return err
			}
		}
	}
	return nil
}

// tokenReader wraps a decoder and hands out copied raw tokens.
type tokenReader struct {
	d *xml.Decoder
}

func newTokenReader(r io.Reader) *tokenReader {
	return &tokenReader{d: xml.NewDecoder(r)}
}

// next returns the next raw token. Running out of input inside an element is
// reported as io.ErrUnexpectedEOF.
func (tr *tokenReader) next() (xml.Token, error) {
	tok, err := tr.d.RawToken()
	if err == io.EOF {
		return nil, io.ErrUnexpectedEOF
	}
	if err != nil {
		return nil, err
	}
	return xml.CopyToken(tok), nil
}

// captureRaw reads the rest of the element opened by start.
func (tr *tokenReader) captureRaw(start xml.StartElement) (*RawXMLElement, error) {
	raw := &RawXMLElement{
		XMLName: start.Name,
		Tokens:  []xml.Token{start},
	}
	depth := 1
	for depth > 0 {
		tok, err := tr.next()
		if err != nil {
			return nil, err
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
		raw.Tokens = append(raw.Tokens, tok)
	}
	return raw, nil
}
