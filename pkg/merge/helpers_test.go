package merge

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/benjaminschreck/go-finiquito/pkg/merge/xml"
)

const testStyles = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:docDefaults/></w:styles>`

// createDOCXBytes builds a minimal package whose body is the given
// WordprocessingML fragment.
func createDOCXBytes(body string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	ct, _ := w.Create("[Content_Types].xml")
	io.WriteString(ct, `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`)

	rels, _ := w.Create("_rels/.rels")
	io.WriteString(rels, `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`)

	doc, _ := w.Create("word/document.xml")
	io.WriteString(doc, `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`+body+`</w:body></w:document>`)

	styles, _ := w.Create("word/styles.xml")
	io.WriteString(styles, testStyles)

	w.Close()
	return buf.Bytes()
}

func mustTemplate(t *testing.T, body string) *Template {
	t.Helper()
	tmpl, err := ParseTemplate(createDOCXBytes(body))
	if err != nil {
		t.Fatalf("ParseTemplate failed: %v", err)
	}
	return tmpl
}

func mustDocument(t *testing.T, body string) *xml.Document {
	t.Helper()
	doc, err := mustTemplate(t, body).NewDocument()
	if err != nil {
		t.Fatalf("NewDocument failed: %v", err)
	}
	return doc.XML
}

// readPart returns a part of a serialized package.
func readPart(t *testing.T, data []byte, name string) string {
	t.Helper()
	dr, err := NewDocxReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewDocxReader failed: %v", err)
	}
	content, err := dr.GetPart(name)
	if err != nil {
		t.Fatalf("GetPart(%s) failed: %v", name, err)
	}
	return string(content)
}

// paragraphTexts lists the text of every paragraph in traversal order.
func paragraphTexts(doc *xml.Document) []string {
	var out []string
	for p := range doc.Paragraphs() {
		out = append(out, p.GetText())
	}
	return out
}

func para(runs ...string) string {
	var sb strings.Builder
	sb.WriteString("<w:p>")
	for _, r := range runs {
		sb.WriteString(r)
	}
	sb.WriteString("</w:p>")
	return sb.String()
}

func run(text string) string {
	return `<w:r><w:t xml:space="preserve">` + text + `</w:t></w:r>`
}

func cellTable(cells ...string) string {
	var sb strings.Builder
	sb.WriteString("<w:tbl><w:tr>")
	for _, c := range cells {
		sb.WriteString("<w:tc>" + c + "</w:tc>")
	}
	sb.WriteString("</w:tr></w:tbl>")
	return sb.String()
}

// quietLogger discards output so tests stay readable.
func quietLogger() *Logger {
	return NewLogger(io.Discard, LogOff)
}
