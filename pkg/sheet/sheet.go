// Package sheet reads severance records from an Excel workbook.
package sheet

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/benjaminschreck/go-finiquito/pkg/merge"
)

// Options locate the records inside the workbook.
type Options struct {
	// Sheet is the worksheet name
	Sheet string
	// HeaderRow is the 1-based row holding the column names. Rows above it
	// are report metadata and are ignored.
	HeaderRow int
}

// DefaultOptions returns the sheet settings of the global configuration.
func DefaultOptions() Options {
	cfg := merge.GetGlobalConfig()
	return Options{Sheet: cfg.Sheet.Name, HeaderRow: cfg.Sheet.HeaderRow}
}

// Table is the data read from a worksheet.
type Table struct {
	Sheet   string
	Headers []string
	Records []*merge.Record
	// RowNumbers holds the 1-based worksheet row of each record
	RowNumbers []int
}

// Loader turns worksheet rows into records.
type Loader struct {
	opts   Options
	logger *zap.Logger
}

// NewLoader creates a loader. A nil logger discards output.
func NewLoader(opts Options, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.HeaderRow < 1 {
		opts.HeaderRow = 1
	}
	return &Loader{opts: opts, logger: logger}
}

// LoadFile reads the workbook at path.
func (l *Loader) LoadFile(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()
	return l.load(f)
}

// Load reads a workbook from r.
func (l *Loader) Load(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return l.load(f)
}

func (l *Loader) load(f *excelize.File) (*Table, error) {
	sheet := l.opts.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found (available: %s)", sheet, strings.Join(f.GetSheetList(), ", "))
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) < l.opts.HeaderRow {
		return nil, fmt.Errorf("sheet %q has %d rows, header expected on row %d", sheet, len(rows), l.opts.HeaderRow)
	}

	headers := uniqueHeaders(rows[l.opts.HeaderRow-1])
	c := &cellReader{f: f, sheet: sheet, logger: l.logger, date1904: date1904(f)}
	table := &Table{Sheet: sheet, Headers: compact(headers)}

	for i := l.opts.HeaderRow; i < len(rows); i++ {
		rowNum := i + 1
		rec := merge.NewRecord()
		blank := true
		for col, header := range headers {
			if header == "" {
				continue
			}
			raw := ""
			if col < len(rows[i]) {
				raw = rows[i][col]
			}
			v := c.value(col+1, rowNum, raw)
			if v.Kind() != merge.KindMissing {
				blank = false
			}
			rec.Set(header, v)
		}
		if blank {
			continue
		}
		table.Records = append(table.Records, rec)
		table.RowNumbers = append(table.RowNumbers, rowNum)
	}

	l.logger.Info("Workbook loaded",
		zap.String("sheet", sheet),
		zap.Int("header_row", l.opts.HeaderRow),
		zap.Int("columns", len(table.Headers)),
		zap.Int("records", len(table.Records)))
	return table, nil
}

// uniqueHeaders trims column names and suffixes repeated ones with ".1",
// ".2", ... Blank names stay blank and their columns are ignored.
func uniqueHeaders(row []string) []string {
	out := make([]string, len(row))
	seen := make(map[string]int)
	for i, h := range row {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if n := seen[h]; n > 0 {
			out[i] = fmt.Sprintf("%s.%d", h, n)
		} else {
			out[i] = h
		}
		seen[h]++
	}
	return out
}

func compact(headers []string) []string {
	var out []string
	for _, h := range headers {
		if h != "" {
			out = append(out, h)
		}
	}
	return out
}

func date1904(f *excelize.File) bool {
	props, err := f.GetWorkbookProps()
	if err != nil || props.Date1904 == nil {
		return false
	}
	return *props.Date1904
}

type cellReader struct {
	f        *excelize.File
	sheet    string
	logger   *zap.Logger
	date1904 bool
}

// value types one raw cell: numbers stay numbers unless their number format
// is a date format, text is trimmed and empty cells are missing.
func (c *cellReader) value(col, row int, raw string) merge.Value {
	if strings.TrimSpace(raw) == "" {
		return merge.Missing
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return merge.Text(raw)
	}
	typ, err := c.f.GetCellType(c.sheet, cell)
	if err != nil {
		c.logger.Debug("Failed to read cell type", zap.String("cell", cell), zap.Error(err))
		return merge.Text(raw)
	}

	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return merge.Text(raw)
	case excelize.CellTypeBool:
		return merge.ValueOf(raw == "1" || strings.EqualFold(raw, "true"))
	case excelize.CellTypeError:
		c.logger.Warn("Cell holds an error value", zap.String("cell", cell), zap.String("value", raw))
		return merge.Missing
	case excelize.CellTypeDate:
		if t, err := parseISODate(raw); err == nil {
			return merge.Date(t)
		}
		return merge.Text(raw)
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return merge.Text(raw)
	}
	if c.isDateFormatted(cell) {
		t, err := excelize.ExcelDateToTime(f, c.date1904)
		if err == nil {
			return merge.Date(t)
		}
		c.logger.Debug("Date serial out of range", zap.String("cell", cell), zap.Float64("value", f))
	}
	return merge.Number(f)
}

func (c *cellReader) isDateFormatted(cell string) bool {
	styleID, err := c.f.GetCellStyle(c.sheet, cell)
	if err != nil || styleID == 0 {
		return false
	}
	style, err := c.f.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}
	if style.CustomNumFmt != nil && *style.CustomNumFmt != "" {
		return IsDateFormat(*style.CustomNumFmt)
	}
	return isBuiltInDateFormat(style.NumFmt)
}

// isBuiltInDateFormat reports whether a built-in number format id displays a
// date or time.
func isBuiltInDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22:
		return true
	case id >= 27 && id <= 36:
		return true
	case id >= 45 && id <= 47:
		return true
	case id >= 50 && id <= 58:
		return true
	}
	return false
}

// IsDateFormat reports whether a custom number format code displays a date
// or time. Quoted literals, escaped characters and bracketed sections such
// as colours or locales are ignored.
func IsDateFormat(code string) bool {
	var sb strings.Builder
	inQuote, inBracket, escaped := false, false, false
	for _, r := range code {
		switch {
		case escaped:
			escaped = false
		case inQuote:
			inQuote = r != '"'
		case inBracket:
			inBracket = r != ']'
		case r == '\\' || r == '_' || r == '*':
			escaped = true
		case r == '"':
			inQuote = true
		case r == '[':
			inBracket = true
		default:
			sb.WriteRune(r)
		}
	}
	stripped := strings.ToLower(sb.String())
	if stripped == "general" {
		return false
	}
	return strings.ContainsAny(stripped, "ymdhs")
}

var isoLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func parseISODate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognised date " + strconv.Quote(s))
}
