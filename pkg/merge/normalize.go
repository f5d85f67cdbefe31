package merge

import (
	"math"
	"strconv"
	"strings"
)

// DateLayout is the display form of date values.
const DateLayout = "2006-01-02"

// Normalize renders a value as the text placed into a document. It never
// fails: missing values and NaN read as "0.00", numbers get two decimals and
// space-grouped thousands, dates use DateLayout and text is trimmed.
func Normalize(v Value) string {
	switch x := v.(type) {
	case NumberValue:
		return FormatAmount(float64(x))
	case DateValue:
		return x.Format(DateLayout)
	case TextValue:
		return strings.TrimSpace(string(x))
	default:
		return "0.00"
	}
}

// FormatAmount formats f with two decimals and a space every three integer
// digits, e.g. 1234.5 -> "1 234.50".
func FormatAmount(f float64) string {
	if math.IsNaN(f) {
		return "0.00"
	}
	if math.IsInf(f, 0) {
		if f < 0 {
			return "-Inf"
		}
		return "Inf"
	}

	result := strconv.FormatFloat(f, 'f', 2, 64)
	intPart, decPart, _ := strings.Cut(result, ".")

	negative := false
	if strings.HasPrefix(intPart, "-") {
		negative = true
		intPart = intPart[1:]
	}
	// -0.001 rounds to zero and should not keep its sign
	if negative && strings.Trim(intPart+decPart, "0") == "" {
		negative = false
	}

	var formatted strings.Builder
	if negative {
		formatted.WriteByte('-')
	}
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			formatted.WriteByte(' ')
		}
		formatted.WriteRune(digit)
	}
	formatted.WriteByte('.')
	formatted.WriteString(decPart)
	return formatted.String()
}
