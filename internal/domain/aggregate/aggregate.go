// Package aggregate computes per-gene, per-track response statistics.
package aggregate

import (
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/model"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/schema"
)

// Labels are the canonical answer strings. Cells are compared by exact
// string equality.
type Labels struct {
	Yes     string
	No      string
	Abstain string
}

// DefaultLabels returns the answer options of the gNBS survey.
func DefaultLabels() Labels {
	return Labels{
		Yes:     "Ja",
		No:      "Nein",
		Abstain: "Ich kann diese Frage nicht beantworten",
	}
}

// GeneStats holds the counts for one gene and track.
// YesCount+NoCount+AbstainCount == Total always holds.
type GeneStats struct {
	YesCount     int      `json:"yes"`
	NoCount      int      `json:"no"`
	AbstainCount int      `json:"abstain"`
	Total        int      `json:"total"`
	YesPct       float64  `json:"yes_pct"`
	Comments     []string `json:"comments"`
	// Dropped counts non-blank response values that matched no label.
	Dropped int `json:"dropped"`
}

// ByGene maps gene -> track -> stats.
type ByGene map[string]map[model.Track]GeneStats

// Get returns the stats of gene and track, or zero stats when absent.
func (b ByGene) Get(gene string, track model.Track) GeneStats {
	if s, ok := b[gene][track]; ok {
		return s
	}
	return GeneStats{Comments: []string{}}
}

// Dropped returns the total number of unrecognized response values.
func (b ByGene) Dropped() int {
	n := 0
	for _, tracks := range b {
		for _, s := range tracks {
			n += s.Dropped
		}
	}
	return n
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithLabels overrides the answer labels. Empty fields keep their defaults.
func WithLabels(l Labels) Option {
	return func(a *Aggregator) {
		if l.Yes != "" {
			a.labels.Yes = l.Yes
		}
		if l.No != "" {
			a.labels.No = l.No
		}
		if l.Abstain != "" {
			a.labels.Abstain = l.Abstain
		}
	}
}

// Aggregator counts responses against a fixed set of labels.
type Aggregator struct {
	labels Labels
}

// New creates an Aggregator with the default labels unless overridden.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{labels: DefaultLabels()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Labels returns the labels in use.
func (a *Aggregator) Labels() Labels { return a.labels }

// Aggregate computes stats for every gene in idx and both tracks. The
// table is only read.
func (a *Aggregator) Aggregate(t model.Table, idx *schema.Index) ByGene {
	out := make(ByGene, idx.Len())
	for _, gene := range idx.Genes() {
		tracks := make(map[model.Track]GeneStats, len(model.Tracks))
		for _, track := range model.Tracks {
			s := a.count(t, idx.PositionsFor(gene, track, model.KindResponse))
			s.Comments = comments(t, idx.PositionsFor(gene, track, model.KindComment))
			tracks[track] = s
		}
		out[gene] = tracks
	}
	return out
}

func (a *Aggregator) count(t model.Table, cols []int) GeneStats {
	var s GeneStats
	if len(cols) == 0 {
		return s
	}
	for r := 0; r < t.Len(); r++ {
		for _, c := range cols {
			cell := t.At(r, c)
			if model.IsBlank(cell) {
				continue
			}
			switch cell.String {
			case a.labels.Yes:
				s.YesCount++
			case a.labels.No:
				s.NoCount++
			case a.labels.Abstain:
				s.AbstainCount++
			default:
				s.Dropped++
			}
		}
	}
	s.Total = s.YesCount + s.NoCount + s.AbstainCount
	s.YesPct = Percent(s.YesCount, s.Total)
	return s
}

// comments gathers non-blank values row-major, keeping the original text.
func comments(t model.Table, cols []int) []string {
	out := []string{}
	if len(cols) == 0 {
		return out
	}
	for r := 0; r < t.Len(); r++ {
		for _, c := range cols {
			cell := t.At(r, c)
			if model.IsBlank(cell) {
				continue
			}
			out = append(out, cell.String)
		}
	}
	return out
}

// Percent returns part/total*100, or 0 when total is 0. The result is a
// single correctly rounded division, so exact halves like 23/80 = 28.75
// are represented exactly.
func Percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part*100) / float64(total)
}

// Aggregate runs an Aggregator with the default labels.
func Aggregate(t model.Table, idx *schema.Index) ByGene {
	return New().Aggregate(t, idx)
}
