package merge

import (
	"strings"

	"github.com/benjaminschreck/go-finiquito/pkg/merge/xml"
)

const (
	// DefaultOverlayFont is the font family forced onto rewritten runs
	DefaultOverlayFont = "Verdana"
	// DefaultOverlaySize is 11pt expressed in half-points
	DefaultOverlaySize = 22
)

// Overlay is the formatting applied to every run the rewriter touches.
type Overlay struct {
	Bold bool
	// Font is applied to the ascii and hAnsi font slots; empty leaves the
	// font alone
	Font string
	// SizeHalfPoints is the font size in half-points; 0 leaves the size alone
	SizeHalfPoints int
}

// DefaultOverlay returns bold 11pt Verdana.
func DefaultOverlay() Overlay {
	return Overlay{Bold: true, Font: DefaultOverlayFont, SizeHalfPoints: DefaultOverlaySize}
}

// Apply sets the overlay on a run. Applying it again changes nothing.
func (o Overlay) Apply(r *xml.Run) {
	if !o.Bold && o.Font == "" && o.SizeHalfPoints <= 0 {
		return
	}
	props := r.EnsureProperties()
	if o.Bold {
		props.SetBold(true)
	}
	if o.Font != "" {
		props.SetFontName(o.Font)
	}
	if o.SizeHalfPoints > 0 {
		props.SetSizeHalfPoints(o.SizeHalfPoints)
	}
}

// Substitution replaces every occurrence of Token with Replacement.
type Substitution struct {
	Token       string
	Replacement string
}

// Rewrite replaces token inside each direct run of p that contains it and
// applies the overlay to those runs. Runs without the token are left
// untouched. A token split across runs is not found. It returns the number
// of runs rewritten.
func Rewrite(p *xml.Paragraph, token, replacement string, overlay Overlay) int {
	return RewriteAll(p, []Substitution{{Token: token, Replacement: replacement}}, overlay)
}

// RewriteAll applies several substitutions in one left-to-right pass over
// each run, so replacement text is never scanned for further tokens. When two
// tokens start at the same position the earlier substitution wins.
func RewriteAll(p *xml.Paragraph, subs []Substitution, overlay Overlay) int {
	if p == nil || len(subs) == 0 {
		return 0
	}
	pairs := make([]string, 0, 2*len(subs))
	for _, s := range subs {
		if s.Token == "" {
			continue
		}
		pairs = append(pairs, s.Token, s.Replacement)
	}
	if len(pairs) == 0 {
		return 0
	}
	replacer := strings.NewReplacer(pairs...)

	touched := 0
	for _, r := range p.Runs() {
		text := r.GetText()
		if !containsAny(text, subs) {
			continue
		}
		r.SetText(replacer.Replace(text))
		overlay.Apply(r)
		touched++
	}
	return touched
}

func containsAny(text string, subs []Substitution) bool {
	for _, s := range subs {
		if s.Token != "" && strings.Contains(text, s.Token) {
			return true
		}
	}
	return false
}
