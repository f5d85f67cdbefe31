package merge

import (
	"strings"

	"github.com/benjaminschreck/go-finiquito/pkg/merge/xml"
)

// Engine substitutes bound placeholders throughout a document.
type Engine struct {
	Overlay Overlay
	// Strict reports markers left after substitution as an error
	Strict bool
	Logger *Logger
}

// NewEngine creates an engine using the global configuration for the overlay
// and strict mode.
func NewEngine() *Engine {
	cfg := GetGlobalConfig()
	return &Engine{
		Overlay: cfg.FormattingOverlay(),
		Strict:  cfg.StrictMode,
	}
}

// SplitToken is a known token present in a paragraph's text that no single
// run holds, so it could not be substituted.
type SplitToken struct {
	Token    string
	Location xml.Location
}

// DegradedWording records an amount whose words could not be produced.
type DegradedWording struct {
	Token    string
	Location xml.Location
	Wording  Wording
}

// Stats summarises one Apply call.
type Stats struct {
	Paragraphs int
	// RunsTouched counts runs rewritten at least once
	RunsTouched int
	// Replaced counts substituted occurrences per token
	Replaced   map[string]int
	Split      []SplitToken
	Degraded   []DegradedWording
	Unresolved []string
}

func (e *Engine) logger() *Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return GetLogger()
}

// Apply rewrites doc in place. Paragraphs are visited in document order, top
// level first and then table cells. For each paragraph the context rules read
// its text as it was before any substitution, then every binding present is
// substituted in a single pass over each run.
func (e *Engine) Apply(doc *xml.Document, bindings []Binding) (Stats, error) {
	stats := Stats{Replaced: make(map[string]int)}
	log := e.logger()

	for p, loc := range doc.Paragraphs() {
		stats.Paragraphs++
		text := p.GetText()
		if !strings.Contains(text, "«") {
			continue
		}

		runs := p.Runs()
		var subs []Substitution
		for _, b := range bindings {
			if !strings.Contains(text, b.Token) {
				continue
			}

			occurrences := 0
			for _, r := range runs {
				occurrences += strings.Count(r.GetText(), b.Token)
			}
			if occurrences < strings.Count(text, b.Token) {
				stats.Split = append(stats.Split, SplitToken{Token: b.Token, Location: loc})
				log.Warn("placeholder %s is split across runs at %s and was not replaced", b.Token, loc)
			}
			if occurrences == 0 {
				continue
			}

			strategy := NumericOnly
			if b.Rule != nil {
				strategy = b.Rule.Classify(text, loc)
			}
			replacement, wording := b.Render(strategy)
			if wording != nil && wording.Degraded {
				stats.Degraded = append(stats.Degraded, DegradedWording{Token: b.Token, Location: loc, Wording: *wording})
				log.Warn("amount for %s has no words form at %s: %v", b.Token, loc, wording.Cause)
			}
			if b.Rule != nil {
				log.Debug("%s rendered as %s at %s", b.Token, strategy, loc)
			}

			subs = append(subs, Substitution{Token: b.Token, Replacement: replacement})
			stats.Replaced[b.Token] += occurrences
		}

		stats.RunsTouched += RewriteAll(p, subs, e.Overlay)
	}

	stats.Unresolved = Unresolved(doc)
	if len(stats.Unresolved) > 0 {
		if e.Strict {
			return stats, &UnresolvedPlaceholderError{Tokens: stats.Unresolved}
		}
		log.Debug("placeholders left in document: %s", strings.Join(stats.Unresolved, ", "))
	}
	return stats, nil
}

// Unresolved lists the distinct «...» markers still present in the document,
// in order of first appearance.
func Unresolved(doc *xml.Document) []string {
	var out []string
	seen := make(map[string]bool)
	for p := range doc.Paragraphs() {
		for _, m := range FindMarkers(p.GetText()) {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}
