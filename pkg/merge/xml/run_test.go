package xml

import (
	"strings"
	"testing"
)

func firstRun(t *testing.T, runXML string) *Run {
	t.Helper()
	doc := mustParse(t, `<w:p>`+runXML+`</w:p>`)
	runs := doc.Body.Elements[0].(*Paragraph).Runs()
	if len(runs) == 0 {
		t.Fatal("no run parsed")
	}
	return runs[0]
}

func childOrder(p *RunProperties) string {
	var names []string
	for _, c := range p.Children {
		names = append(names, c.XMLName.Local)
	}
	return strings.Join(names, ",")
}

func TestRunGetText(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		want string
	}{
		{"plain", `<w:r><w:t>hola</w:t></w:r>`, "hola"},
		{"split texts", `<w:r><w:t>ho</w:t><w:t>la</w:t></w:r>`, "hola"},
		{"tab and break", `<w:r><w:t>a</w:t><w:tab/><w:t>b</w:t><w:br/><w:t>c</w:t></w:r>`, "a\tb\nc"},
		{"page break has no text", `<w:r><w:t>a</w:t><w:br w:type="page"/></w:r>`, "a"},
		{"drawing ignored", `<w:r><w:drawing><w:x/></w:drawing><w:t>x</w:t></w:r>`, "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := firstRun(t, tt.xml).GetText(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRunSetText(t *testing.T) {
	r := firstRun(t, `<w:r><w:rPr><w:i/></w:rPr><w:lastRenderedPageBreak/><w:t>«NETO»</w:t><w:drawing/></w:r>`)
	r.SetText("1 234.50")

	if got := r.GetText(); got != "1 234.50" {
		t.Fatalf("expected new text, got %q", got)
	}
	var kinds []string
	for _, c := range r.Content {
		switch v := c.(type) {
		case *Text:
			kinds = append(kinds, "t")
		case *RawXMLElement:
			kinds = append(kinds, v.XMLName.Local)
		}
	}
	if got := strings.Join(kinds, ","); got != "lastRenderedPageBreak,t,drawing" {
		t.Errorf("raw children moved: %s", got)
	}
	if r.Properties == nil || r.Properties.Child("i") == nil {
		t.Error("existing properties were lost")
	}
}

func TestRunSetTextKeepsPageBreaks(t *testing.T) {
	r := firstRun(t, `<w:r><w:t>Neto «NETO»</w:t><w:br w:type="page"/><w:t>after</w:t><w:br/><w:br w:type="column"/></w:r>`)
	r.SetText("Neto 10.00")

	var kinds []string
	for _, c := range r.Content {
		switch v := c.(type) {
		case *Text:
			kinds = append(kinds, "t:"+v.Content)
		case *Break:
			typ, _ := attrValue(v.Attrs, "type")
			kinds = append(kinds, "br:"+typ)
		}
	}
	if got := strings.Join(kinds, ","); got != "t:Neto 10.00,br:page,br:column" {
		t.Errorf("unexpected run content %s", got)
	}
	if got := r.GetText(); got != "Neto 10.00" {
		t.Errorf("expected %q, got %q", "Neto 10.00", got)
	}
}

func TestRunSetTextWhitespace(t *testing.T) {
	r := NewRun(" a  b ")
	text := r.Content[0].(*Text)
	if v, ok := attrValue(text.Attrs, "space"); !ok || v != "preserve" {
		t.Errorf("expected xml:space=preserve, got %v", text.Attrs)
	}

	r.SetText("ab")
	text = r.Content[0].(*Text)
	if _, ok := attrValue(text.Attrs, "space"); ok {
		t.Errorf("xml:space should be dropped for plain text, got %v", text.Attrs)
	}
}

func TestRunSetTextSpecialCharacters(t *testing.T) {
	r := NewRun("a\tb\nc")
	if len(r.Content) != 5 {
		t.Fatalf("expected 5 content items, got %d", len(r.Content))
	}
	if _, ok := r.Content[1].(*Tab); !ok {
		t.Errorf("expected tab, got %T", r.Content[1])
	}
	if _, ok := r.Content[3].(*Break); !ok {
		t.Errorf("expected break, got %T", r.Content[3])
	}
	if got := r.GetText(); got != "a\tb\nc" {
		t.Errorf("round trip text mismatch: %q", got)
	}
}

func TestRunPropertiesSchemaOrder(t *testing.T) {
	r := firstRun(t, `<w:r><w:rPr><w:i/><w:color w:val="FF0000"/><w:sz w:val="18"/><w:lang w:val="es-MX"/></w:rPr><w:t>x</w:t></w:r>`)
	props := r.EnsureProperties()

	props.SetBold(true)
	props.SetFontName("Verdana")
	props.SetSizeHalfPoints(22)

	if got := childOrder(props); got != "rFonts,b,i,color,sz,lang" {
		t.Errorf("unexpected property order %s", got)
	}
	if !props.Bold() {
		t.Error("expected bold")
	}
	if got := props.FontName(); got != "Verdana" {
		t.Errorf("expected Verdana, got %q", got)
	}
	if got := props.SizeHalfPoints(); got != 22 {
		t.Errorf("expected size 22, got %d", got)
	}
}

func TestRunPropertiesFontReplacesTheme(t *testing.T) {
	r := firstRun(t, `<w:r><w:rPr><w:rFonts w:asciiTheme="minorHAnsi" w:hAnsiTheme="minorHAnsi" w:cs="Arial"/></w:rPr></w:r>`)
	r.Properties.SetFontName("Verdana")

	f := r.Properties.Child("rFonts")
	for _, attr := range []string{"asciiTheme", "hAnsiTheme"} {
		if _, ok := f.Attr(attr); ok {
			t.Errorf("%s should be removed", attr)
		}
	}
	for attr, want := range map[string]string{"ascii": "Verdana", "hAnsi": "Verdana", "cs": "Arial"} {
		if got, _ := f.Attr(attr); got != want {
			t.Errorf("%s: expected %q, got %q", attr, want, got)
		}
	}
}

func TestRunPropertiesBold(t *testing.T) {
	tests := []struct {
		xml  string
		want bool
	}{
		{`<w:r><w:t>x</w:t></w:r>`, false},
		{`<w:r><w:rPr><w:b/></w:rPr></w:r>`, true},
		{`<w:r><w:rPr><w:b w:val="1"/></w:rPr></w:r>`, true},
		{`<w:r><w:rPr><w:b w:val="0"/></w:rPr></w:r>`, false},
		{`<w:r><w:rPr><w:b w:val="false"/></w:rPr></w:r>`, false},
	}

	for _, tt := range tests {
		if got := firstRun(t, tt.xml).Properties.Bold(); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.xml, tt.want, got)
		}
	}
}

func TestRunPropertiesUsesRunPrefix(t *testing.T) {
	src := `<x:document xmlns:x="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<x:body><x:p><x:r><x:t>a</x:t></x:r></x:p></x:body></x:document>`
	doc, err := ParseDocument(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	r := doc.Body.Elements[0].(*Paragraph).Runs()[0]
	r.EnsureProperties().SetBold(true)

	out, err := doc.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(out), `<x:r><x:rPr><x:b></x:b></x:rPr><x:t>a</x:t></x:r>`) {
		t.Errorf("unexpected output %s", out)
	}
}

func TestRunClone(t *testing.T) {
	r := firstRun(t, `<w:r><w:rPr><w:b/></w:rPr><w:t>a</w:t></w:r>`)
	c := r.Clone()
	c.SetText("b")
	c.Properties.SetSizeHalfPoints(30)

	if r.GetText() != "a" {
		t.Error("clone shares text with the original")
	}
	if r.Properties.SizeHalfPoints() != 0 {
		t.Error("clone shares properties with the original")
	}
}
