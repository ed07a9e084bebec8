// Package schema groups parsed survey columns by gene, track and kind.
package schema

import (
	"sort"

	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/header"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/model"
)

// Option applies a configuration option to Build.
type Option func(*builder)

// WithParser sets the header parser. Defaults to header.NewParser().
func WithParser(p *header.Parser) Option {
	return func(b *builder) {
		if p != nil {
			b.parser = p
		}
	}
}

type builder struct {
	parser *header.Parser
}

type groupKey struct {
	gene  string
	track model.Track
	kind  model.Kind
}

// Column is a parsed survey column together with its position in the table.
type Column struct {
	model.ParsedColumn
	Position int
}

// Index is the schema of one dataset. It is immutable after Build.
type Index struct {
	genes     []string
	diseases  map[string]string
	groups    map[groupKey][]Column
	columns   []Column
	ambiguous []string
	ignored   int
}

// diseasePriority ranks candidate columns for the canonical disease name:
// national response columns first, then any response column, then anything.
func diseasePriority(c model.ParsedColumn) int {
	switch {
	case c.Kind == model.KindResponse && c.Track == model.TrackNational:
		return 0
	case c.Kind == model.KindResponse:
		return 1
	default:
		return 2
	}
}

// Build parses every header and indexes the survey columns. Headers that
// are not survey columns are counted as ignored. Zero matching headers
// yield an empty Index, never an error.
func Build(headers []string, opts ...Option) *Index {
	b := &builder{parser: header.NewParser()}
	for _, opt := range opts {
		opt(b)
	}

	idx := &Index{
		diseases: make(map[string]string),
		groups:   make(map[groupKey][]Column),
	}
	rank := make(map[string]int)

	for pos, h := range headers {
		pc, ok := b.parser.Parse(h)
		if !ok {
			idx.ignored++
			continue
		}
		col := Column{ParsedColumn: pc, Position: pos}
		idx.columns = append(idx.columns, col)
		if pc.Ambiguous {
			idx.ambiguous = append(idx.ambiguous, h)
		}

		k := groupKey{gene: pc.Gene, track: pc.Track, kind: pc.Kind}
		idx.groups[k] = append(idx.groups[k], col)

		// strictly better priority replaces, so the first column of each rank wins
		p := diseasePriority(pc)
		if prev, seen := rank[pc.Gene]; !seen || p < prev {
			rank[pc.Gene] = p
			idx.diseases[pc.Gene] = pc.Disease
		}
	}

	idx.genes = make([]string, 0, len(rank))
	for g := range rank {
		idx.genes = append(idx.genes, g)
	}
	sort.Strings(idx.genes)

	return idx
}

// Genes returns the distinct genes in ascending ordinal order.
func (x *Index) Genes() []string {
	return append([]string(nil), x.genes...)
}

// Len returns the number of distinct genes.
func (x *Index) Len() int { return len(x.genes) }

// Empty reports whether no survey columns were recognized.
func (x *Index) Empty() bool { return len(x.genes) == 0 }

// Has reports whether gene is part of the schema.
func (x *Index) Has(gene string) bool {
	_, ok := x.diseases[gene]
	return ok
}

// Disease returns the canonical disease name for gene.
func (x *Index) Disease(gene string) string { return x.diseases[gene] }

// GeneDict returns a copy of the gene to disease map.
func (x *Index) GeneDict() map[string]string {
	out := make(map[string]string, len(x.diseases))
	for g, d := range x.diseases {
		out[g] = d
	}
	return out
}

// ColumnsFor returns the original headers matching the triple, in table order.
func (x *Index) ColumnsFor(gene string, track model.Track, kind model.Kind) []string {
	cols := x.groups[groupKey{gene: gene, track: track, kind: kind}]
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Header
	}
	return out
}

// PositionsFor returns the table positions matching the triple, in table
// order. Positions stay correct when a header text occurs twice.
func (x *Index) PositionsFor(gene string, track model.Track, kind model.Kind) []int {
	cols := x.groups[groupKey{gene: gene, track: track, kind: kind}]
	out := make([]int, len(cols))
	for i, c := range cols {
		out[i] = c.Position
	}
	return out
}

// Columns returns every recognized survey column in table order.
func (x *Index) Columns() []Column {
	return append([]Column(nil), x.columns...)
}

// Ambiguous returns headers that carried both track keywords.
func (x *Index) Ambiguous() []string {
	return append([]string{}, x.ambiguous...)
}

// Ignored returns how many headers were not survey columns.
func (x *Index) Ignored() int { return x.ignored }
