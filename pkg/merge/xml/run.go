package xml

import (
	"encoding/xml"
	"strconv"
	"strings"
)

// Run represents a run of text with common properties
type Run struct {
	XMLName    xml.Name
	Attrs      []xml.Attr
	Properties *RunProperties
	// Content keeps text, tabs, breaks and preserved raw elements in order
	Content []RunContent
}

// isParagraphContent implements the ParagraphContent interface
func (r *Run) isParagraphContent() {}

// NewRun creates a plain run holding the given text.
func NewRun(text string) *Run {
	r := &Run{XMLName: name(DefaultPrefix, "r")}
	r.SetText(text)
	return r
}

func (r *Run) prefix() string {
	if r.XMLName.Space != "" {
		return r.XMLName.Space
	}
	return DefaultPrefix
}

// GetText returns the text content of a run. Tabs read as "\t" and line
// breaks as "\n".
func (r *Run) GetText() string {
	var sb strings.Builder
	for _, c := range r.Content {
		switch v := c.(type) {
		case *Text:
			sb.WriteString(v.Content)
		case *Tab:
			sb.WriteByte('\t')
		case *Break:
			if v.isLineBreak() {
				sb.WriteByte('\n')
			}
		}
	}
	return sb.String()
}

// SetText replaces the textual content of the run. Raw children such as
// drawings, and page or column breaks, stay where they were; the new text is
// placed where the first textual child used to be.
func (r *Run) SetText(text string) {
	var textAttrs []xml.Attr
	insertAt := -1
	kept := make([]RunContent, 0, len(r.Content))
	for _, c := range r.Content {
		switch v := c.(type) {
		case *Text:
			if insertAt < 0 {
				insertAt = len(kept)
				textAttrs = removeAttr(copyAttrs(v.Attrs), "space")
			}
		case *Break:
			if !v.isLineBreak() {
				kept = append(kept, c)
				continue
			}
			if insertAt < 0 {
				insertAt = len(kept)
			}
		case *Tab:
			if insertAt < 0 {
				insertAt = len(kept)
			}
		default:
			kept = append(kept, c)
		}
	}
	if insertAt < 0 {
		insertAt = len(kept)
	}

	built := r.buildTextContent(text, textAttrs)
	content := make([]RunContent, 0, len(kept)+len(built))
	content = append(content, kept[:insertAt]...)
	content = append(content, built...)
	content = append(content, kept[insertAt:]...)
	r.Content = content
}

// buildTextContent splits text on tabs and newlines into w:t, w:tab and w:br
// children.
func (r *Run) buildTextContent(text string, textAttrs []xml.Attr) []RunContent {
	p := r.prefix()
	var out []RunContent
	var sb strings.Builder
	flush := func() {
		if sb.Len() == 0 {
			return
		}
		out = append(out, newText(p, sb.String(), textAttrs))
		sb.Reset()
	}
	for _, ch := range text {
		switch ch {
		case '\t':
			flush()
			out = append(out, &Tab{XMLName: name(p, "tab")})
		case '\n':
			flush()
			out = append(out, &Break{XMLName: name(p, "br")})
		case '\r':
		default:
			sb.WriteRune(ch)
		}
	}
	flush()
	return out
}

// EnsureProperties returns the run properties, creating them if needed.
func (r *Run) EnsureProperties() *RunProperties {
	if r.Properties == nil {
		r.Properties = &RunProperties{XMLName: name(r.prefix(), "rPr")}
	}
	return r.Properties
}

// Clone returns a deep copy of the run.
func (r *Run) Clone() *Run {
	out := &Run{XMLName: r.XMLName, Attrs: copyAttrs(r.Attrs)}
	if r.Properties != nil {
		out.Properties = r.Properties.Clone()
	}
	for _, c := range r.Content {
		switch v := c.(type) {
		case *Text:
			out.Content = append(out.Content, &Text{XMLName: v.XMLName, Attrs: copyAttrs(v.Attrs), Content: v.Content})
		case *Tab:
			out.Content = append(out.Content, &Tab{XMLName: v.XMLName, Attrs: copyAttrs(v.Attrs)})
		case *Break:
			out.Content = append(out.Content, &Break{XMLName: v.XMLName, Attrs: copyAttrs(v.Attrs)})
		case *RawXMLElement:
			out.Content = append(out.Content, v.Clone())
		}
	}
	return out
}

func (r *Run) encode(e *xml.Encoder) error {
	if err := encodeStart(e, r.XMLName, r.Attrs); err != nil {
		return err
	}
	if r.Properties != nil {
		if err := r.Properties.encode(e); err != nil {
			return err
		}
	}
	for _, c := range r.Content {
		if err := c.encode(e); err != nil {
			return err
		}
	}
	return encodeEnd(e, r.XMLName)
}

func (tr *tokenReader) decodeRun(start xml.StartElement) (*Run, error) {
	r := &Run{XMLName: start.Name, Attrs: start.Attr}
	for {
		tok, err := tr.next()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "rPr":
				props, err := tr.decodeRunProperties(t)
				if err != nil {
					return nil, err
				}
				r.Properties = props
			case "t":
				text, err := tr.decodeText(t)
				if err != nil {
					return nil, err
				}
				r.Content = append(r.Content, text)
			case "tab":
				if _, err := tr.captureRaw(t); err != nil {
					return nil, err
				}
				r.Content = append(r.Content, &Tab{XMLName: t.Name, Attrs: t.Attr})
			case "br", "cr":
				if _, err := tr.captureRaw(t); err != nil {
					return nil, err
				}
				r.Content = append(r.Content, &Break{XMLName: t.Name, Attrs: t.Attr})
			default:
				// Preserve unknown elements as raw XML
				raw, err := tr.captureRaw(t)
				if err != nil {
					return nil, err
				}
				r.Content = append(r.Content, raw)
			}
		case xml.EndElement:
			return r, nil
		}
	}
}

// Text represents text content
type Text struct {
	XMLName xml.Name
	Attrs   []xml.Attr
	Content string
}

func (t *Text) isRunContent() {}

func newText(prefix, content string, attrs []xml.Attr) *Text {
	attrs = copyAttrs(attrs)
	if needsPreserve(content) {
		attrs = setAttr(attrs, "xml", "space", "preserve")
	}
	return &Text{XMLName: name(prefix, "t"), Attrs: attrs, Content: content}
}

// needsPreserve reports whether Word would collapse whitespace in s unless
// xml:space="preserve" is set.
func needsPreserve(s string) bool {
	return s != strings.TrimSpace(s) || strings.Contains(s, "  ")
}

func (t *Text) encode(e *xml.Encoder) error {
	if err := encodeStart(e, t.XMLName, t.Attrs); err != nil {
		return err
	}
	if t.Content != "" {
		if err := e.EncodeToken(xml.CharData(t.Content)); err != nil {
			return err
		}
	}
	return encodeEnd(e, t.XMLName)
}

func (tr *tokenReader) decodeText(start xml.StartElement) (*Text, error) {
	text := &Text{XMLName: start.Name, Attrs: start.Attr}
	var sb strings.Builder
	for {
		tok, err := tr.next()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			// w:t has no element children; skip anything malformed
			if _, err := tr.captureRaw(t); err != nil {
				return nil, err
			}
		case xml.EndElement:
			text.Content = sb.String()
			return text, nil
		}
	}
}

// Tab represents a tab character inside a run
type Tab struct {
	XMLName xml.Name
	Attrs   []xml.Attr
}

func (t *Tab) isRunContent() {}

func (t *Tab) encode(e *xml.Encoder) error {
	if err := encodeStart(e, t.XMLName, t.Attrs); err != nil {
		return err
	}
	return encodeEnd(e, t.XMLName)
}

// Break represents a line break (w:br or w:cr)
type Break struct {
	XMLName xml.Name
	Attrs   []xml.Attr
}

func (b *Break) isRunContent() {}

// isLineBreak reports whether the break reads as a newline; page and column
// breaks carry no text.
func (b *Break) isLineBreak() bool {
	typ, ok := attrValue(b.Attrs, "type")
	return !ok || typ == "textWrapping"
}

func (b *Break) encode(e *xml.Encoder) error {
	if err := encodeStart(e, b.XMLName, b.Attrs); err != nil {
		return err
	}
	return encodeEnd(e, b.XMLName)
}

// rPrOrder is the schema order of CT_RPr children. Word rejects run
// properties whose children are out of order.
var rPrOrder = map[string]int{
	"rStyle": 0, "rFonts": 1, "b": 2, "bCs": 3, "i": 4, "iCs": 5, "caps": 6,
	"smallCaps": 7, "strike": 8, "dstrike": 9, "outline": 10, "shadow": 11,
	"emboss": 12, "imprint": 13, "noProof": 14, "snapToGrid": 15, "vanish": 16,
	"webHidden": 17, "color": 18, "spacing": 19, "w": 20, "kern": 21,
	"position": 22, "sz": 23, "szCs": 24, "highlight": 25, "u": 26,
	"effect": 27, "bdr": 28, "shd": 29, "fitText": 30, "vertAlign": 31,
	"rtl": 32, "cs": 33, "em": 34, "lang": 35, "eastAsianLayout": 36,
	"specVanish": 37, "oMath": 38,
}

// RunProperties represents run formatting properties. Children are kept as
// raw elements in document order; the accessors below interpret the few
// properties the merge engine reads or writes.
type RunProperties struct {
	XMLName  xml.Name
	Attrs    []xml.Attr
	Children []*RawXMLElement
}

func (p *RunProperties) prefix() string {
	if p.XMLName.Space != "" {
		return p.XMLName.Space
	}
	return DefaultPrefix
}

// Child returns the first property element with the given local name.
func (p *RunProperties) Child(local string) *RawXMLElement {
	for _, c := range p.Children {
		if c.XMLName.Local == local {
			return c
		}
	}
	return nil
}

// SetChild replaces the property with the same local name or inserts it at
// its schema position.
func (p *RunProperties) SetChild(el *RawXMLElement) {
	local := el.XMLName.Local
	for i, c := range p.Children {
		if c.XMLName.Local == local {
			p.Children[i] = el
			return
		}
	}
	pos, known := rPrOrder[local]
	if !known {
		p.Children = append(p.Children, el)
		return
	}
	at := len(p.Children)
	for i, c := range p.Children {
		if o, ok := rPrOrder[c.XMLName.Local]; ok && o > pos {
			at = i
			break
		}
	}
	p.Children = append(p.Children, nil)
	copy(p.Children[at+1:], p.Children[at:])
	p.Children[at] = el
}

// Bold reports whether the run is explicitly bold.
func (p *RunProperties) Bold() bool {
	if p == nil {
		return false
	}
	b := p.Child("b")
	if b == nil {
		return false
	}
	val, ok := b.Attr("val")
	if !ok {
		return true
	}
	switch strings.ToLower(val) {
	case "0", "false", "off":
		return false
	}
	return true
}

// SetBold sets the bold toggle.
func (p *RunProperties) SetBold(on bool) {
	el := NewElement(p.prefix(), "b")
	if !on {
		el.SetAttr(p.prefix(), "val", "0")
	}
	p.SetChild(el)
}

// FontName returns the ASCII font family, if set.
func (p *RunProperties) FontName() string {
	if p == nil {
		return ""
	}
	f := p.Child("rFonts")
	if f == nil {
		return ""
	}
	v, _ := f.Attr("ascii")
	return v
}

// SetFontName sets the ASCII and high-ANSI font slots. Theme font references
// for those slots take precedence in Word, so they are removed.
func (p *RunProperties) SetFontName(font string) {
	f := p.Child("rFonts")
	if f == nil {
		f = NewElement(p.prefix(), "rFonts")
		p.SetChild(f)
	}
	f.SetAttr(p.prefix(), "ascii", font)
	f.SetAttr(p.prefix(), "hAnsi", font)
	f.RemoveAttr("asciiTheme")
	f.RemoveAttr("hAnsiTheme")
}

// SizeHalfPoints returns the font size in half-points, or 0 when unset.
func (p *RunProperties) SizeHalfPoints() int {
	if p == nil {
		return 0
	}
	sz := p.Child("sz")
	if sz == nil {
		return 0
	}
	v, _ := sz.Attr("val")
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// SetSizeHalfPoints sets the font size in half-points (11pt = 22).
func (p *RunProperties) SetSizeHalfPoints(halfPoints int) {
	el := NewElement(p.prefix(), "sz")
	el.SetAttr(p.prefix(), "val", strconv.Itoa(halfPoints))
	p.SetChild(el)
}

// Clone returns a deep copy of the properties.
func (p *RunProperties) Clone() *RunProperties {
	out := &RunProperties{XMLName: p.XMLName, Attrs: copyAttrs(p.Attrs)}
	for _, c := range p.Children {
		out.Children = append(out.Children, c.Clone())
	}
	return out
}

func (p *RunProperties) encode(e *xml.Encoder) error {
	if err := encodeStart(e, p.XMLName, p.Attrs); err != nil {
		return err
	}
	for _, c := range p.Children {
		if err := c.encode(e); err != nil {
			return err
		}
	}
	return encodeEnd(e, p.XMLName)
}

func (tr *tokenReader) decodeRunProperties(start xml.StartElement) (*RunProperties, error) {
	props := &RunProperties{XMLName: start.Name, Attrs: start.Attr}
	for {
		tok, err := tr.next()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			raw, err := tr.captureRaw(t)
			if err != nil {
				return nil, err
			}
			props.Children = append(props.Children, raw)
		case xml.EndElement:
			return props, nil
		}
	}
}
