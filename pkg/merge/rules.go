package merge

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/benjaminschreck/go-finiquito/pkg/merge/xml"
)

// Strategy selects how an amount is rendered in a given context.
type Strategy int

const (
	// NumericOnly renders "1 234.56"
	NumericOnly Strategy = iota
	// NumericWithWords renders "1 234.56 (MIL ... PESOS 56/100 M.N.)"
	NumericWithWords
)

func (s Strategy) String() string {
	switch s {
	case NumericOnly:
		return "numeric"
	case NumericWithWords:
		return "numeric+words"
	default:
		return "unknown"
	}
}

// Pattern matches the text surrounding a placeholder. Exactly one of Literal
// or Regexp is set.
type Pattern struct {
	Literal  string
	Regexp   *regexp.Regexp
	FoldCase bool
}

// Literal returns a case-sensitive substring pattern.
func Literal(s string) Pattern {
	return Pattern{Literal: normalizeContext(s)}
}

// LiteralFold returns a case-insensitive substring pattern.
func LiteralFold(s string) Pattern {
	return Pattern{Literal: foldCase(normalizeContext(s)), FoldCase: true}
}

// Regex returns a pattern matching the compiled expression. It panics if expr
// does not compile; patterns are declared at package level.
func Regex(expr string) Pattern {
	return Pattern{Regexp: regexp.MustCompile(expr)}
}

// Match reports whether the pattern occurs in text, which must already be
// normalized with normalizeContext.
func (p Pattern) Match(text string) bool {
	if p.Regexp != nil {
		return p.Regexp.MatchString(text)
	}
	if p.Literal == "" {
		return false
	}
	if p.FoldCase {
		return strings.Contains(foldCase(text), p.Literal)
	}
	return strings.Contains(text, p.Literal)
}

func (p Pattern) String() string {
	if p.Regexp != nil {
		return p.Regexp.String()
	}
	return p.Literal
}

// ContextRule maps a pattern to the strategy used when it matches.
type ContextRule struct {
	Pattern  Pattern
	Strategy Strategy
}

// FieldRule renders a monetary placeholder whose form depends on the
// paragraph around it. Rules are tried in order and the first match wins.
type FieldRule struct {
	Name          string
	Rules         []ContextRule
	Default       Strategy
	TableStrategy Strategy
}

// Classify picks the strategy for a paragraph with the given text at loc.
func (f *FieldRule) Classify(text string, loc xml.Location) Strategy {
	if loc.InTable {
		return f.TableStrategy
	}
	normalized := normalizeContext(text)
	for _, r := range f.Rules {
		if r.Pattern.Match(normalized) {
			return r.Strategy
		}
	}
	return f.Default
}

// Render coerces v to an amount and formats it with strategy s. The wording
// is returned when words were produced so callers can report degraded ones.
func (f *FieldRule) Render(v Value, s Strategy) (string, *Wording) {
	amount := CoerceAmount(v)
	if s != NumericWithWords {
		return Normalize(Number(amount)), nil
	}
	w := Wordify(amount)
	return parenthesize(amount, w), &w
}

// NetAmountRule governs «NETO». Receipt-style totals stay numeric; sentences
// stating the amount received carry the words form.
var NetAmountRule = &FieldRule{
	Name: "net-amount",
	Rules: []ContextRule{
		{Literal("BUENO POR: $ «NETO»"), NumericOnly},
		{Literal("Total neto a recibir $ «NETO»"), NumericOnly},
		{Regex(`(?i)neto\s+a\s+recibir:?\s*\$\s*«NETO»`), NumericOnly},
		{Literal("Recibí la cantidad de $ «NETO»"), NumericWithWords},
		{Literal("se realizará por $ «NETO»"), NumericWithWords},
		{Regex(`(?i)(?:cantidad|suma)\s+de\s+\$\s*«NETO»`), NumericWithWords},
	},
	Default:       NumericOnly,
	TableStrategy: NumericOnly,
}

// DailyRateRule governs «Salario_por_día».
var DailyRateRule = &FieldRule{
	Name: "daily-rate",
	Rules: []ContextRule{
		{LiteralFold("SALARIO DIARIO: $ «Salario_por_día»"), NumericWithWords},
		{LiteralFold("salario diario por la cantidad de $ «Salario_por_día»"), NumericWithWords},
	},
	Default:       NumericOnly,
	TableStrategy: NumericOnly,
}

var (
	whitespace   = regexp.MustCompile(`\s+`)
	nbspReplacer = strings.NewReplacer("\u00a0", " ", "\u202f", " ")
)

// normalizeContext puts paragraph text in the form patterns are written in:
// NFC composed, non-breaking spaces as plain spaces, whitespace runs
// collapsed to one space.
func normalizeContext(s string) string {
	s = norm.NFC.String(s)
	s = nbspReplacer.Replace(s)
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func foldCase(s string) string {
	return cases.Fold().String(s)
}
