// Package header parses human-authored survey column headers into a
// normalized (gene, disease, track, kind) schema.
//
// Survey tools export one column per gene x question x track with headers
// such as
//
//	Gen: BRCA1 Erkrankung: Hereditary breast cancer "... nationalen Screening ..." [Kommentar]
//
// The format is not under our control, so parsing is plain substring search
// around fixed marker tokens and tolerates alternate whitespace (space,
// non-breaking space, tab) around them. Headers that do not carry the
// markers are not survey columns; that is never an error.
package header

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/model"
)

// Markers are the literal tokens that identify survey columns.
type Markers struct {
	Gene     string // precedes the gene symbol, e.g. "Gen:"
	Disease  string // precedes the disease name, e.g. "Erkrankung:"
	National string // keyword of the national screening track
	Study    string // keyword of the scientific study track
	Comment  string // tag of free-text comment columns
}

// DefaultMarkers returns the markers used by the gNBS expert survey export.
func DefaultMarkers() Markers {
	return Markers{
		Gene:     "Gen:",
		Disease:  "Erkrankung:",
		National: "nationalen",
		Study:    "wissenschaftlicher",
		Comment:  "[Kommentar]",
	}
}

// withDefaults fills empty markers from DefaultMarkers.
func (m Markers) withDefaults() Markers {
	d := DefaultMarkers()
	if m.Gene == "" {
		m.Gene = d.Gene
	}
	if m.Disease == "" {
		m.Disease = d.Disease
	}
	if m.National == "" {
		m.National = d.National
	}
	if m.Study == "" {
		m.Study = d.Study
	}
	if m.Comment == "" {
		m.Comment = d.Comment
	}
	return m
}

// Runes that end the disease name. Two consecutive whitespace runes also end it.
var diseaseTerminators = map[rune]struct{}{
	'"':  {},
	'“':  {},
	'„':  {},
	'[':  {},
	'(':  {},
	'\n': {},
	'\r': {},
	'\t': {},
}

// Option applies a configuration option to the Parser.
type Option func(*Parser)

// WithMarkers overrides the marker tokens. Empty fields keep their defaults.
func WithMarkers(m Markers) Option {
	return func(p *Parser) {
		p.markers = m.withDefaults()
	}
}

// Parser extracts ParsedColumns from header strings. It is stateless and
// safe for concurrent use.
type Parser struct {
	markers Markers
}

// NewParser creates a Parser with the default markers unless overridden.
func NewParser(opts ...Option) *Parser {
	p := &Parser{markers: DefaultMarkers()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Markers returns the marker tokens in use.
func (p *Parser) Markers() Markers { return p.markers }

// Parse returns the schema of one header, or ok=false when the header is
// not a survey column.
func (p *Parser) Parse(h string) (col model.ParsedColumn, ok bool) {
	m := p.markers

	gi := indexAtBoundary(h, m.Gene)
	if gi < 0 {
		return model.ParsedColumn{}, false
	}
	geneStart := skipSpace(h, gi+len(m.Gene))

	rel := strings.Index(h[geneStart:], m.Disease)
	if rel < 0 {
		return model.ParsedColumn{}, false
	}
	di := geneStart + rel

	hasNational := strings.Contains(h, m.National)
	hasStudy := strings.Contains(h, m.Study)
	if !hasNational && !hasStudy {
		return model.ParsedColumn{}, false
	}

	gene := strings.TrimFunc(h[geneStart:di], unicode.IsSpace)
	if gene == "" {
		return model.ParsedColumn{}, false
	}

	col = model.ParsedColumn{
		Header:  h,
		Gene:    gene,
		Disease: diseaseAt(h, skipSpace(h, di+len(m.Disease))),
		Track:   model.TrackScientificStudy,
		Kind:    model.KindResponse,
	}
	if hasNational {
		col.Track = model.TrackNational
		col.Ambiguous = hasStudy
	}
	if strings.Contains(h, m.Comment) {
		col.Kind = model.KindComment
	}
	return col, true
}

// Parse parses h with the default markers.
func Parse(h string) (model.ParsedColumn, bool) {
	return defaultParser.Parse(h)
}

var defaultParser = NewParser()

// indexAtBoundary finds the first occurrence of marker in s that is not
// preceded by a letter or digit, so "Gen:" does not match inside "XGen:".
func indexAtBoundary(s, marker string) int {
	from := 0
	for from <= len(s) {
		rel := strings.Index(s[from:], marker)
		if rel < 0 {
			return -1
		}
		i := from + rel
		if i == 0 {
			return i
		}
		prev, _ := utf8.DecodeLastRuneInString(s[:i])
		if !unicode.IsLetter(prev) && !unicode.IsDigit(prev) {
			return i
		}
		from = i + len(marker)
	}
	return -1
}

// skipSpace advances i past whitespace variants (space, NBSP, tab, ...).
func skipSpace(s string, i int) int {
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == '\n' || r == '\r' || !unicode.IsSpace(r) {
			break
		}
		i += size
	}
	return i
}

// diseaseAt reads the disease name starting at i up to the first terminator.
func diseaseAt(s string, i int) string {
	rest := s[i:]
	end := len(rest)
	prevSpace := false
	for j, r := range rest {
		if _, stop := diseaseTerminators[r]; stop {
			end = j
			break
		}
		space := unicode.IsSpace(r)
		if space && prevSpace {
			end = j
			break
		}
		prevSpace = space
	}
	return strings.TrimFunc(rest[:end], unicode.IsSpace)
}
