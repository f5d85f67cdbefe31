package merge

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindMissing Kind = iota
	KindNumber
	KindDate
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Value is a raw field value as read from the data source. It is one of
// MissingValue, NumberValue, DateValue or TextValue.
type Value interface {
	Kind() Kind
	isValue()
}

// MissingValue stands for an empty cell or an absent field.
type MissingValue struct{}

// NumberValue is a numeric cell.
type NumberValue float64

// DateValue is a calendar date cell.
type DateValue struct {
	time.Time
}

// TextValue is any other cell, kept as written.
type TextValue string

// Missing is the shared missing value.
var Missing Value = MissingValue{}

func (MissingValue) Kind() Kind { return KindMissing }
func (NumberValue) Kind() Kind  { return KindNumber }
func (DateValue) Kind() Kind    { return KindDate }
func (TextValue) Kind() Kind    { return KindText }

func (MissingValue) isValue() {}
func (NumberValue) isValue()  {}
func (DateValue) isValue()    {}
func (TextValue) isValue()    {}

// Number returns a number value.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Missing
	}
	return NumberValue(f)
}

// Date returns a date value; the zero time is treated as missing.
func Date(t time.Time) Value {
	if t.IsZero() {
		return Missing
	}
	return DateValue{t}
}

// Text returns a text value; blank strings are treated as missing.
func Text(s string) Value {
	if strings.TrimSpace(s) == "" {
		return Missing
	}
	return TextValue(s)
}

// ValueOf converts a loosely typed input into a Value. nil, blank strings and
// NaN become Missing; Go numeric kinds and booleans become numbers;
// time.Time becomes a date; everything else is formatted as text.
func ValueOf(v interface{}) Value {
	switch x := v.(type) {
	case nil:
		return Missing
	case Value:
		return x
	case float64:
		return Number(x)
	case float32:
		return Number(float64(x))
	case int:
		return NumberValue(x)
	case int8:
		return NumberValue(x)
	case int16:
		return NumberValue(x)
	case int32:
		return NumberValue(x)
	case int64:
		return NumberValue(x)
	case uint:
		return NumberValue(x)
	case uint8:
		return NumberValue(x)
	case uint16:
		return NumberValue(x)
	case uint32:
		return NumberValue(x)
	case uint64:
		return NumberValue(x)
	case bool:
		if x {
			return NumberValue(1)
		}
		return NumberValue(0)
	case time.Time:
		return Date(x)
	case *time.Time:
		if x == nil {
			return Missing
		}
		return Date(*x)
	case string:
		return Text(x)
	case []byte:
		return Text(string(x))
	case fmt.Stringer:
		return Text(x.String())
	default:
		return Text(fmt.Sprintf("%v", v))
	}
}

// Record is one row of the data source: an ordered mapping from trimmed
// field names to values. Absent fields read as Missing.
type Record struct {
	names  []string
	values map[string]Value
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]Value)}
}

// RecordOf builds a record from alternating name/value pairs, converting
// each value with ValueOf.
func RecordOf(pairs ...interface{}) *Record {
	r := NewRecord()
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(fmt.Sprint(pairs[i]), ValueOf(pairs[i+1]))
	}
	return r
}

// Set stores v under the trimmed name. A repeated name keeps its original
// position and takes the new value.
func (r *Record) Set(name string, v Value) {
	name = strings.TrimSpace(name)
	if v == nil {
		v = Missing
	}
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}
	r.values[name] = v
}

// Get returns the value of the field, or Missing when absent.
func (r *Record) Get(name string) Value {
	if r == nil {
		return Missing
	}
	if v, ok := r.values[strings.TrimSpace(name)]; ok {
		return v
	}
	return Missing
}

// Has reports whether the field is present and not missing.
func (r *Record) Has(name string) bool {
	return r.Get(name).Kind() != KindMissing
}

// Fields returns the field names in insertion order.
func (r *Record) Fields() []string {
	return append([]string(nil), r.names...)
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.names)
}

var amountCleaner = strings.NewReplacer(",", "", " ", "", "\u00a0", "", "$", "")

// CoerceAmount reads a value as a monetary amount. Text is parsed after
// removing thousands commas and spaces; anything unparseable is 0.
func CoerceAmount(v Value) float64 {
	switch x := v.(type) {
	case NumberValue:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	case TextValue:
		s := amountCleaner.Replace(strings.TrimSpace(string(x)))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	default:
		return 0
	}
}
