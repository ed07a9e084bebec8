// Package projection flattens schema, stats, recommendations and reviews
// into one export row per gene.
package projection

import (
	"strings"

	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/aggregate"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/consensus"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/model"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/schema"
	"github.com/montanaflynn/stats"
)

// Defaults for the row contract.
const (
	DefaultDelimiter       = " | "
	DefaultUnreviewedLabel = "unreviewed"
	pctPlaces              = 1
)

// ExportRow is the per-gene record behind CSV and JSON exports. Field
// order is the column order of the export.
type ExportRow struct {
	Gene             string                   `json:"gene"`
	Disease          string                   `json:"disease"`
	NationalYesPct   float64                  `json:"national_yes_pct"`
	NationalN        int                      `json:"national_n"`
	StudyYesPct      float64                  `json:"study_yes_pct"`
	StudyN           int                      `json:"study_n"`
	National80       bool                     `json:"national_80"`
	NationalComments string                   `json:"national_comments"`
	StudyComments    string                   `json:"study_comments"`
	Recommendation   consensus.Recommendation `json:"recommendation"`
	ReviewDecision   string                   `json:"review_decision"`
	ReviewNotes      string                   `json:"review_notes"`
	// TotalResponses is the respondent count of the dataset, carried on
	// every row for the optional leading export column.
	TotalResponses int `json:"total_responses"`
}

// Option applies a configuration option to the Projector.
type Option func(*Projector)

// WithDelimiter sets the separator used to join comments.
func WithDelimiter(d string) Option {
	return func(p *Projector) {
		p.delimiter = d
	}
}

// WithUnreviewedLabel sets the decision text for genes without a review.
func WithUnreviewedLabel(label string) Option {
	return func(p *Projector) {
		if label != "" {
			p.unreviewed = label
		}
	}
}

// WithClassifier sets the classifier used for recommendations and the
// national cut-off flag.
func WithClassifier(c *consensus.Classifier) Option {
	return func(p *Projector) {
		if c != nil {
			p.classifier = c
		}
	}
}

// Projector builds ExportRows. It is stateless between calls.
type Projector struct {
	delimiter  string
	unreviewed string
	classifier *consensus.Classifier
}

// New creates a Projector with the default delimiter and sentinel.
func New(opts ...Option) *Projector {
	p := &Projector{
		delimiter:  DefaultDelimiter,
		unreviewed: DefaultUnreviewedLabel,
		classifier: consensus.NewClassifier(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Project returns one row per gene of idx in ascending gene order.
// Genes missing from reviews get the unreviewed sentinel; a nil map is
// allowed.
func (p *Projector) Project(idx *schema.Index, byGene aggregate.ByGene, reviews map[string]model.Review, totalResponses int) []ExportRow {
	genes := idx.Genes()
	rows := make([]ExportRow, 0, len(genes))
	for _, gene := range genes {
		nat := byGene.Get(gene, model.TrackNational)
		stud := byGene.Get(gene, model.TrackScientificStudy)

		row := ExportRow{
			Gene:             gene,
			Disease:          idx.Disease(gene),
			NationalYesPct:   RoundShare(nat.YesCount, nat.Total),
			NationalN:        nat.Total,
			StudyYesPct:      RoundShare(stud.YesCount, stud.Total),
			StudyN:           stud.Total,
			National80:       p.classifier.Meets(nat.YesPct),
			NationalComments: strings.Join(nat.Comments, p.delimiter),
			StudyComments:    strings.Join(stud.Comments, p.delimiter),
			Recommendation:   p.classifier.Classify(nat, stud),
			ReviewDecision:   p.unreviewed,
			TotalResponses:   totalResponses,
		}
		if r, ok := reviews[gene]; ok {
			row.ReviewDecision = string(r.Decision)
			row.ReviewNotes = r.Notes
		}
		rows = append(rows, row)
	}
	return rows
}

// Round rounds a percentage to one decimal, half away from zero.
func Round(pct float64) float64 {
	r, err := stats.Round(pct, pctPlaces)
	if err != nil {
		return 0
	}
	return r
}

// RoundShare returns part/total as a percentage rounded to one decimal, half
// away from zero. Rounding happens in integer tenths, so no count pair is
// pushed across a .x5 boundary by float error.
func RoundShare(part, total int) float64 {
	if total <= 0 || part <= 0 {
		return 0
	}
	tenths := (2000*part + total) / (2 * total)
	return Round(float64(tenths) / 10)
}

// Project uses a Projector with default options.
func Project(idx *schema.Index, byGene aggregate.ByGene, reviews map[string]model.Review, totalResponses int) []ExportRow {
	return New().Project(idx, byGene, reviews, totalResponses)
}
