package xml

import (
	"encoding/xml"
	"strings"
)

// Paragraph represents a paragraph in the document
type Paragraph struct {
	XMLName xml.Name
	Attrs   []xml.Attr
	// Properties holds w:pPr untouched
	Properties *RawXMLElement
	// Content maintains the order of runs and preserved elements such as
	// hyperlinks, bookmarks and fields
	Content []ParagraphContent
}

// isBodyElement implements the BodyElement interface
func (p *Paragraph) isBodyElement() {}

// isTableContent lets a paragraph sit inside a table cell
func (p *Paragraph) isTableContent() {}

// NewParagraph creates a paragraph holding the given runs.
func NewParagraph(runs ...*Run) *Paragraph {
	p := &Paragraph{XMLName: name(DefaultPrefix, "p")}
	for _, r := range runs {
		p.Content = append(p.Content, r)
	}
	return p
}

// Runs returns the direct runs of the paragraph in order. Runs nested in
// preserved elements (hyperlinks, content controls) are not included.
func (p *Paragraph) Runs() []*Run {
	var runs []*Run
	for _, c := range p.Content {
		if r, ok := c.(*Run); ok {
			runs = append(runs, r)
		}
	}
	return runs
}

// GetText returns the concatenated text of the paragraph's direct runs
func (p *Paragraph) GetText() string {
	var sb strings.Builder
	for _, r := range p.Runs() {
		sb.WriteString(r.GetText())
	}
	return sb.String()
}

// AddRun appends a run to the paragraph
func (p *Paragraph) AddRun(r *Run) {
	p.Content = append(p.Content, r)
}

func (p *Paragraph) encode(e *xml.Encoder) error {
	if err := encodeStart(e, p.XMLName, p.Attrs); err != nil {
		return err
	}
	if p.Properties != nil {
		if err := p.Properties.encode(e); err != nil {
			return err
		}
	}
	for _, c := range p.Content {
		if err := c.encode(e); err != nil {
			return err
		}
	}
	return encodeEnd(e, p.XMLName)
}

func (tr *tokenReader) decodeParagraph(start xml.StartElement) (*Paragraph, error) {
	p := &Paragraph{XMLName: start.Name, Attrs: start.Attr}
	for {
		tok, err := tr.next()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "pPr":
				props, err := tr.captureRaw(t)
				if err != nil {
					return nil, err
				}
				p.Properties = props
			case "r":
				run, err := tr.decodeRun(t)
				if err != nil {
					return nil, err
				}
				p.Content = append(p.Content, run)
			default:
				raw, err := tr.captureRaw(t)
				if err != nil {
					return nil, err
				}
				p.Content = append(p.Content, raw)
			}
		case xml.EndElement:
			return p, nil
		}
	}
}
