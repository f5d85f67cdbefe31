package merge

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// ZeroPhrase is the wording of a zero or missing amount.
	ZeroPhrase = "CERO PESOS 00/100 M.N."

	currencyWord = "PESOS"
	centsSuffix  = "/100 M.N."

	// maxWordsAmount bounds the integer part the converter can spell: up to
	// 999 999 billones in the long scale.
	maxWordsAmount = 1_000_000_000_000_000
)

// Wording is the outcome of converting an amount to words. A degraded
// wording omits the integer words and carries the reason in Cause.
type Wording struct {
	Phrase   string
	Degraded bool
	Cause    error
}

// Wordify converts an amount into "<WORDS> PESOS <cc>/100 M.N.". Amounts
// whose integer part cannot be spelled degrade to "PESOS <cc>/100 M.N.".
func Wordify(amount float64) Wording {
	if math.IsNaN(amount) || amount == 0 {
		return Wording{Phrase: ZeroPhrase}
	}
	if math.IsInf(amount, 0) {
		return Wording{
			Phrase:   currencyWord + " 00" + centsSuffix,
			Degraded: true,
			Cause:    fmt.Errorf("%w: %v", ErrAmountOutOfRange, amount),
		}
	}

	intPart, cents := splitCents(amount)
	tail := fmt.Sprintf("%s %s%s", currencyWord, cents, centsSuffix)

	integer, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil || integer >= maxWordsAmount {
		return Wording{
			Phrase:   tail,
			Degraded: true,
			Cause:    fmt.Errorf("%w: %s", ErrAmountOutOfRange, FormatAmount(amount)),
		}
	}

	words := spellInteger(integer)
	if amount < 0 && (integer > 0 || cents != "00") {
		words = "menos " + words
	}
	upper := cases.Upper(language.Spanish)
	return Wording{Phrase: upper.String(words) + " " + tail}
}

// splitCents rounds |amount| to two decimals exactly as FormatAmount does and
// returns the integer digits and the two cent digits.
func splitCents(amount float64) (string, string) {
	rounded := strconv.FormatFloat(math.Abs(amount), 'f', 2, 64)
	intPart, cents, _ := strings.Cut(rounded, ".")
	return intPart, cents
}

// ToWords returns the wording phrase of an amount, degraded or not.
func ToWords(amount float64) string {
	return Wordify(amount).Phrase
}

// ToWordsParenthesized returns "<numeric> (<words>)", e.g.
// "1 234.56 (MIL DOSCIENTOS TREINTA Y CUATRO PESOS 56/100 M.N.)".
func ToWordsParenthesized(amount float64) string {
	return parenthesize(amount, Wordify(amount))
}

func parenthesize(amount float64, w Wording) string {
	return Normalize(Number(amount)) + " (" + w.Phrase + ")"
}

var (
	unitWords = [...]string{
		"cero", "uno", "dos", "tres", "cuatro", "cinco", "seis", "siete", "ocho", "nueve",
		"diez", "once", "doce", "trece", "catorce", "quince", "dieciséis", "diecisiete", "dieciocho", "diecinueve",
		"veinte", "veintiuno", "veintidós", "veintitrés", "veinticuatro", "veinticinco", "veintiséis", "veintisiete", "veintiocho", "veintinueve",
	}
	tensWords = [...]string{
		"", "", "", "treinta", "cuarenta", "cincuenta", "sesenta", "setenta", "ochenta", "noventa",
	}
	hundredsWords = [...]string{
		"", "ciento", "doscientos", "trescientos", "cuatrocientos", "quinientos",
		"seiscientos", "setecientos", "ochocientos", "novecientos",
	}
)

// spellInteger spells a non-negative integer below 10^15 in Spanish, long
// scale: 10^6 millón, 10^12 billón.
func spellInteger(n int64) string {
	if n == 0 {
		return unitWords[0]
	}
	billions := n / 1_000_000_000_000
	millions := (n / 1_000_000) % 1_000_000
	rest := n % 1_000_000

	var parts []string
	if billions > 0 {
		parts = append(parts, scaled(billions, "billón", "billones"))
	}
	if millions > 0 {
		parts = append(parts, scaled(millions, "millón", "millones"))
	}
	if rest > 0 {
		parts = append(parts, belowMillion(rest, false))
	}
	return strings.Join(parts, " ")
}

// scaled spells count (below a million) followed by a scale noun.
func scaled(count int64, singular, plural string) string {
	if count == 1 {
		return "un " + singular
	}
	return belowMillion(count, true) + " " + plural
}

// belowMillion spells 1..999999. With apocope the trailing "uno" becomes
// "un" as it does before a masculine noun.
func belowMillion(n int64, apocope bool) string {
	thousands := n / 1000
	rest := n % 1000

	var parts []string
	switch {
	case thousands == 1:
		parts = append(parts, "mil")
	case thousands > 1:
		parts = append(parts, belowThousand(int(thousands), true)+" mil")
	}
	if rest > 0 {
		parts = append(parts, belowThousand(int(rest), apocope))
	}
	return strings.Join(parts, " ")
}

// belowThousand spells 1..999.
func belowThousand(n int, apocope bool) string {
	hundreds := n / 100
	rest := n % 100

	var parts []string
	if hundreds > 0 {
		if hundreds == 1 && rest == 0 {
			parts = append(parts, "cien")
		} else {
			parts = append(parts, hundredsWords[hundreds])
		}
	}
	if rest > 0 {
		parts = append(parts, belowHundred(rest, apocope))
	}
	return strings.Join(parts, " ")
}

// belowHundred spells 1..99.
func belowHundred(n int, apocope bool) string {
	if n < 30 {
		w := unitWords[n]
		if apocope {
			switch n {
			case 1:
				w = "un"
			case 21:
				w = "veintiún"
			}
		}
		return w
	}
	w := tensWords[n/10]
	if u := n % 10; u > 0 {
		unit := unitWords[u]
		if apocope && u == 1 {
			unit = "un"
		}
		w += " y " + unit
	}
	return w
}
