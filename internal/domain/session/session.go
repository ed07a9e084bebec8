// Package session builds the immutable per-dataset review state.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/aggregate"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/consensus"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/header"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/model"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/projection"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/schema"
)

// Diagnostics are the non-fatal findings of a dataset load.
type Diagnostics struct {
	SchemaEmpty      bool     `json:"schema_empty"`
	SurveyColumns    int      `json:"survey_columns"`
	IgnoredColumns   int      `json:"ignored_columns"`
	AmbiguousHeaders []string `json:"ambiguous_headers"`
	DroppedValues    int      `json:"dropped_values"`
}

// ReviewSession is everything derived from one uploaded dataset. A new
// dataset produces a new session; sessions are never mutated.
type ReviewSession struct {
	ID              string
	Source          string
	LoadedAt        time.Time
	TotalResponses  int
	Schema          *schema.Index
	Stats           aggregate.ByGene
	Recommendations map[string]consensus.Recommendation
	Diagnostics     Diagnostics

	projector  *projection.Projector
	classifier *consensus.Classifier
}

// Option applies a configuration option to Build.
type Option func(*builder)

type builder struct {
	source     string
	now        func() time.Time
	parser     *header.Parser
	aggregator *aggregate.Aggregator
	classifier *consensus.Classifier
	projector  *projection.Projector
}

// WithSource records where the dataset came from, e.g. a file name.
func WithSource(name string) Option {
	return func(b *builder) { b.source = name }
}

// WithClock sets the time source for LoadedAt.
func WithClock(now func() time.Time) Option {
	return func(b *builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithParser sets the header parser.
func WithParser(p *header.Parser) Option {
	return func(b *builder) {
		if p != nil {
			b.parser = p
		}
	}
}

// WithAggregator sets the response aggregator.
func WithAggregator(a *aggregate.Aggregator) Option {
	return func(b *builder) {
		if a != nil {
			b.aggregator = a
		}
	}
}

// WithClassifier sets the consensus classifier.
func WithClassifier(c *consensus.Classifier) Option {
	return func(b *builder) {
		if c != nil {
			b.classifier = c
		}
	}
}

// WithProjector sets the export projector used by Rows.
func WithProjector(p *projection.Projector) Option {
	return func(b *builder) {
		if p != nil {
			b.projector = p
		}
	}
}

// Build runs parse, index, aggregate and classify over table.
func Build(table model.Table, opts ...Option) *ReviewSession {
	b := &builder{now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	if b.parser == nil {
		b.parser = header.NewParser()
	}
	if b.aggregator == nil {
		b.aggregator = aggregate.New()
	}
	if b.classifier == nil {
		b.classifier = consensus.NewClassifier()
	}
	if b.projector == nil {
		b.projector = projection.New(projection.WithClassifier(b.classifier))
	}

	idx := schema.Build(table.Headers, schema.WithParser(b.parser))
	byGene := b.aggregator.Aggregate(table, idx)

	recs := make(map[string]consensus.Recommendation, idx.Len())
	for _, gene := range idx.Genes() {
		recs[gene] = b.classifier.Classify(
			byGene.Get(gene, model.TrackNational),
			byGene.Get(gene, model.TrackScientificStudy),
		)
	}

	return &ReviewSession{
		ID:              uuid.NewString(),
		Source:          b.source,
		LoadedAt:        b.now().UTC(),
		TotalResponses:  table.Len(),
		Schema:          idx,
		Stats:           byGene,
		Recommendations: recs,
		Diagnostics: Diagnostics{
			SchemaEmpty:      idx.Empty(),
			SurveyColumns:    len(idx.Columns()),
			IgnoredColumns:   idx.Ignored(),
			AmbiguousHeaders: idx.Ambiguous(),
			DroppedValues:    byGene.Dropped(),
		},
		projector:  b.projector,
		classifier: b.classifier,
	}
}

// Genes returns the session's genes in ascending order.
func (s *ReviewSession) Genes() []string { return s.Schema.Genes() }

// Recommendation returns the recommendation of gene.
func (s *ReviewSession) Recommendation(gene string) (consensus.Recommendation, bool) {
	r, ok := s.Recommendations[gene]
	return r, ok
}

// Rows projects the session with the given reviews. Reviews are looked up
// at call time, so edits show up without rebuilding the session.
func (s *ReviewSession) Rows(reviews map[string]model.Review) []projection.ExportRow {
	return s.projector.Project(s.Schema, s.Stats, reviews, s.TotalResponses)
}

// Meets reports whether pct reaches the session's consensus threshold.
func (s *ReviewSession) Meets(pct float64) bool {
	return s.classifier.Meets(pct)
}
