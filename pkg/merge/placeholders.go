package merge

import (
	"regexp"
	"strings"
)

// FieldName is the record field that identifies the employee. Records
// without it are skipped and its value names the output file.
const FieldName = "Nombre completo"

// Placeholder ties a template token to the record field that fills it.
// Rule is nil for fields rendered with Normalize.
type Placeholder struct {
	Token string
	Field string
	Rule  *FieldRule
}

// Placeholders is the fixed set of tokens a severance template may contain,
// in binding order.
var Placeholders = []Placeholder{
	{Token: "«Nombre_completo»", Field: FieldName},
	{Token: "«Puesto»", Field: "Puesto"},
	{Token: "«Salario_por_día»", Field: "Salario por día", Rule: DailyRateRule},
	{Token: "«Fecha_de_alta»", Field: "Fecha de alta"},
	{Token: "«Fecha_de_baja»", Field: "Fecha de baja"},
	{Token: "«SUELDO»", Field: "SUELDO"},
	{Token: "«IMPORTE_AGUINALDO»", Field: "IMPORTE AGUINALDO"},
	{Token: "«IMPORTE_VACACIONES»", Field: "IMPORTE VACACIONES"},
	{Token: "«GRATIFICACION»", Field: "GRATIFICACION"},
	{Token: "«IMPORTE_PRIMA_VACACIONAL»", Field: "IMPORTE PRIMA VACACIONAL"},
	{Token: "«Total_de_Percepciones»", Field: "TOTAL PERCEPCIONES"},
	{Token: "«TOTAL_ISR»", Field: "ISR MENSUAL"},
	{Token: "«IMSS»", Field: "IMSS"},
	{Token: "«TOTAL_DEDUCCIONES»", Field: "TOTAL DEDUCCIONES"},
	{Token: "«NETO»", Field: "NETO", Rule: NetAmountRule},
	{Token: "«Banco»", Field: "Banco"},
	{Token: "«CUENTA»", Field: "cuenta"},
}

// LookupPlaceholder finds a placeholder by its token.
func LookupPlaceholder(token string) (Placeholder, bool) {
	for _, p := range Placeholders {
		if p.Token == token {
			return p, true
		}
	}
	return Placeholder{}, false
}

// Binding is a placeholder paired with the value of one record.
type Binding struct {
	Placeholder
	Value Value
}

// Render formats the binding for a paragraph with the given strategy. For
// plain fields the strategy is ignored.
func (b Binding) Render(s Strategy) (string, *Wording) {
	if b.Rule == nil {
		return Normalize(b.Value), nil
	}
	return b.Rule.Render(b.Value, s)
}

// Bind pairs every placeholder with its value in the record.
func Bind(rec *Record) []Binding {
	bindings := make([]Binding, len(Placeholders))
	for i, p := range Placeholders {
		bindings[i] = Binding{Placeholder: p, Value: rec.Get(p.Field)}
	}
	return bindings
}

var markerPattern = regexp.MustCompile(`«[^«»]+»`)

// FindMarkers returns every «...» marker in text, in order.
func FindMarkers(text string) []string {
	return markerPattern.FindAllString(text, -1)
}

// SanitizeFileName turns an employee name into a file name stem by replacing
// path separators and colons with "-".
func SanitizeFileName(name string) string {
	return strings.NewReplacer("/", "-", ":", "-", "\\", "-").Replace(strings.TrimSpace(name))
}
