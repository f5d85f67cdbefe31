package merge

import (
	"sort"
	"strings"

	"github.com/benjaminschreck/go-finiquito/pkg/merge/xml"
)

// IssueSeverity indicates template issue severity.
type IssueSeverity string

const (
	IssueSeverityError   IssueSeverity = "error"
	IssueSeverityWarning IssueSeverity = "warning"
)

// IssueCode classifies template issues.
type IssueCode string

const (
	// IssueCodeSplitToken: a known token spans several runs and will not be
	// substituted
	IssueCodeSplitToken IssueCode = "SPLIT_TOKEN"
	// IssueCodeUnknownToken: a «...» marker that is not a known placeholder
	IssueCodeUnknownToken IssueCode = "UNKNOWN_TOKEN"
)

// TemplateIssue is one problem found in a template.
type TemplateIssue struct {
	Severity IssueSeverity `json:"severity"`
	Code     IssueCode     `json:"code"`
	Token    string        `json:"token"`
	Location xml.Location  `json:"location"`
	Message  string        `json:"message"`
}

// TokenUse counts where a known placeholder appears.
type TokenUse struct {
	Token       string `json:"token"`
	Field       string `json:"field"`
	Occurrences int    `json:"occurrences"`
	InTables    int    `json:"inTables"`
}

// TemplateReport summarises the placeholders of a template.
type TemplateReport struct {
	Used    []TokenUse      `json:"used"`
	Missing []string        `json:"missing"`
	Issues  []TemplateIssue `json:"issues"`
}

// Valid reports whether the template has no error-level issues.
func (r *TemplateReport) Valid() bool {
	for _, issue := range r.Issues {
		if issue.Severity == IssueSeverityError {
			return false
		}
	}
	return true
}

// Inspect lists known placeholders used by doc, the ones it lacks, and
// tokens that cannot be substituted.
func Inspect(doc *xml.Document) *TemplateReport {
	uses := make(map[string]*TokenUse)
	report := &TemplateReport{}

	for p, loc := range doc.Paragraphs() {
		text := p.GetText()
		if !strings.Contains(text, "«") {
			continue
		}
		for _, marker := range FindMarkers(text) {
			ph, known := LookupPlaceholder(marker)
			if !known {
				report.Issues = append(report.Issues, TemplateIssue{
					Severity: IssueSeverityWarning,
					Code:     IssueCodeUnknownToken,
					Token:    marker,
					Location: loc,
					Message:  "unknown placeholder is left as written",
				})
				continue
			}
			u, ok := uses[marker]
			if !ok {
				u = &TokenUse{Token: marker, Field: ph.Field}
				uses[marker] = u
			}
			u.Occurrences++
			if loc.InTable {
				u.InTables++
			}
		}

		for _, ph := range Placeholders {
			want := strings.Count(text, ph.Token)
			if want == 0 {
				continue
			}
			got := 0
			for _, r := range p.Runs() {
				got += strings.Count(r.GetText(), ph.Token)
			}
			if got < want {
				report.Issues = append(report.Issues, TemplateIssue{
					Severity: IssueSeverityError,
					Code:     IssueCodeSplitToken,
					Token:    ph.Token,
					Location: loc,
					Message:  "placeholder is split across formatting runs; retype it in one go",
				})
			}
		}
	}

	for _, ph := range Placeholders {
		if u, ok := uses[ph.Token]; ok {
			report.Used = append(report.Used, *u)
		} else {
			report.Missing = append(report.Missing, ph.Token)
		}
	}

	sort.SliceStable(report.Issues, func(i, j int) bool {
		return report.Issues[i].Severity == IssueSeverityError && report.Issues[j].Severity != IssueSeverityError
	})
	return report
}
