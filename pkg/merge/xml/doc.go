// Package xml provides the in-memory WordprocessingML model the merge engine
// reads and rewrites.
//
// A DOCX file is a ZIP archive; its main part, word/document.xml, describes the
// document body. This package parses that part into a small typed tree:
//
//   - document.go: Document and Body, parsing and serialisation
//   - paragraph.go: Paragraph
//   - run.go: Run, RunProperties, Text, Tab and Break
//   - table.go: Table, TableRow and TableCell
//   - raw.go: RawXMLElement, the verbatim holder for everything not modelled
//   - walk.go: the paragraph sequence used by the substitution engine
//
// # Key Concepts
//
// Run: a contiguous piece of text with uniform formatting. Runs are the
// atomic unit the merge engine rewrites; a placeholder is only substituted
// when a single run holds all of its characters.
//
// RawXMLElement: any element the model does not interpret (drawings,
// bookmarks, field codes, section properties, paragraph properties). Raw
// elements keep their original token stream, including namespace prefixes,
// so they are written back with identical content.
//
// # Namespaces
//
// Decoding uses xml.Decoder.RawToken, so element and attribute names keep the
// prefix exactly as written in the source (w:, r:, wp:, mc:, ...). Encoding
// writes those prefixed names back unchanged, which keeps the root element's
// xmlns declarations valid for the whole tree.
//
// Example of building a paragraph by hand:
//
//	p := xml.NewParagraph(xml.NewRun("Hola «Nombre_completo»"))
//	for para, loc := range doc.Paragraphs() {
//	    fmt.Println(loc.InTable, para.GetText())
//	}
package xml
