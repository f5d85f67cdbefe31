package merge

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/benjaminschreck/go-finiquito/pkg/merge/xml"
)

// Template is a parsed severance template. It keeps the package bytes and
// hands out a fresh Document for every record; the template itself is never
// modified and may be shared between goroutines.
type Template struct {
	Name        string
	source      []byte
	reader      *DocxReader
	documentXML []byte
	report      *TemplateReport
}

// LoadTemplate reads a .docx template from r.
func LoadTemplate(r io.Reader) (*Template, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, NewDocumentError("read", "", err)
	}
	return ParseTemplate(data)
}

// LoadTemplateFile reads a .docx template from disk.
func LoadTemplateFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewDocumentError("read", path, err)
	}
	t, err := ParseTemplate(data)
	if err != nil {
		var de *DocumentError
		if errors.As(err, &de) && de.Path == "" {
			de.Path = path
		}
		return nil, err
	}
	t.Name = filepath.Base(path)
	return t, nil
}

// ParseTemplate validates the package bytes and indexes its placeholders.
func ParseTemplate(data []byte) (*Template, error) {
	reader, err := NewDocxReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, NewDocumentError("open", "", err)
	}
	documentXML, err := reader.GetDocumentXML()
	if err != nil {
		return nil, NewDocumentError("open", "", err)
	}

	t := &Template{
		source:      data,
		reader:      reader,
		documentXML: documentXML,
	}

	doc, err := t.parse()
	if err != nil {
		return nil, err
	}
	t.report = Inspect(doc)
	return t, nil
}

func (t *Template) parse() (*xml.Document, error) {
	doc, err := xml.ParseDocument(bytes.NewReader(t.documentXML))
	if err != nil {
		return nil, NewDocumentError("parse", DocumentPartName, err)
	}
	return doc, nil
}

// Digest returns a hex sha256 of the template bytes.
func (t *Template) Digest() string {
	sum := sha256.Sum256(t.source)
	return hex.EncodeToString(sum[:])
}

// Size returns the size of the template package in bytes.
func (t *Template) Size() int {
	return len(t.source)
}

// Report describes the placeholders found in the template.
func (t *Template) Report() *TemplateReport {
	return t.report
}

// Validate returns a *ValidationError listing the template's error-level
// issues, or nil when every known placeholder can be substituted.
func (t *Template) Validate() error {
	var issues []TemplateIssue
	for _, issue := range t.report.Issues {
		if issue.Severity == IssueSeverityError {
			issues = append(issues, issue)
		}
	}
	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Template: t.Name, Issues: issues}
}

// NewDocument parses a fresh copy of the template body.
func (t *Template) NewDocument() (*Document, error) {
	doc, err := t.parse()
	if err != nil {
		return nil, err
	}
	return &Document{template: t, XML: doc}, nil
}

// Document is one output document under construction.
type Document struct {
	template *Template
	XML      *xml.Document
}

// WriteTo writes the complete .docx package: the rewritten main part plus
// every other template part unchanged.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	body, err := d.XML.Marshal()
	if err != nil {
		return 0, NewDocumentError("serialize", DocumentPartName, err)
	}
	cw := &countWriter{w: w}
	if err := d.template.reader.WritePackage(cw, map[string][]byte{DocumentPartName: body}); err != nil {
		return cw.n, NewDocumentError("serialize", "", err)
	}
	return cw.n, nil
}

// Bytes returns the serialized .docx package.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d *Document) String() string {
	name := d.template.Name
	if name == "" {
		name = "template"
	}
	return fmt.Sprintf("document from %s", name)
}
