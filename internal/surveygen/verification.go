package surveygen

import (
	"context"
	"fmt"
	"sync"

	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/types"
	"github.com/HeikoBre/screening-dashboard-sandbox/pkg/logger"
)

// Mismatch is one disagreement between the service and the generated survey.
type Mismatch struct {
	Gene   string
	Reason string
}

func (m Mismatch) String() string { return m.Gene + ": " + m.Reason }

// Verify checks that the service recognized every generated gene and counted
// the same responses. It fetches gene details with config.Workers workers.
func Verify(ctx context.Context, client *HTTPClient, config *Config, survey *Survey, ds types.Dataset, stats *Stats) error {
	logger.Get().Info(ctx, "verifying uploaded survey", logger.String("dataset", ds.ID))

	var mismatches []Mismatch
	if ds.Genes != len(survey.Genes) {
		mismatches = append(mismatches, Mismatch{
			Gene:   "*",
			Reason: fmt.Sprintf("dataset reports %d genes, generated %d", ds.Genes, len(survey.Genes)),
		})
	}
	if ds.TotalResponses != len(survey.Rows) {
		mismatches = append(mismatches, Mismatch{
			Gene:   "*",
			Reason: fmt.Sprintf("dataset reports %d responses, generated %d", ds.TotalResponses, len(survey.Rows)),
		})
	}

	previews, err := client.Genes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list genes: %w", err)
	}
	listed := make(map[string]bool, len(previews))
	for _, p := range previews {
		listed[p.Gene] = true
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		jobs = make(chan Gene, config.Workers*2)
	)
	report := func(m Mismatch) {
		mu.Lock()
		mismatches = append(mismatches, m)
		mu.Unlock()
	}

	for w := 0; w < config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for g := range jobs {
				if !listed[g.Symbol] {
					report(Mismatch{Gene: g.Symbol, Reason: "missing from gene list"})
					continue
				}
				detail, err := client.Gene(ctx, g.Symbol)
				if err != nil {
					report(Mismatch{Gene: g.Symbol, Reason: err.Error()})
					continue
				}
				for _, m := range compareGene(g, detail) {
					report(m)
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, g := range survey.Genes {
			select {
			case <-ctx.Done():
				return
			case jobs <- g:
			}
		}
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled during verification: %w", err)
	}

	stats.GenesVerified = len(survey.Genes)
	stats.GenesMismatched = len(mismatches)
	if len(mismatches) == 0 {
		logger.Get().Info(ctx, "verification passed", logger.Int("genes", len(survey.Genes)))
		return nil
	}

	for i, m := range mismatches {
		if i == maxMismatchesLogged {
			break
		}
		logger.Get().Warn(ctx, "verification mismatch", logger.String("gene", m.Gene), logger.String("reason", m.Reason))
	}
	return fmt.Errorf("%w: %d problems, first: %s", ErrMismatch, len(mismatches), mismatches[0])
}

// compareGene compares expected tallies with the service detail view.
func compareGene(g Gene, d types.GeneDetail) []Mismatch {
	var out []Mismatch
	if d.Disease != g.Disease {
		out = append(out, Mismatch{Gene: g.Symbol, Reason: fmt.Sprintf("disease %q, want %q", d.Disease, g.Disease)})
	}
	for _, tr := range []struct {
		name string
		want Tally
		got  types.Track
	}{
		{"national", g.National, d.National},
		{"study", g.Study, d.Study},
	} {
		if tr.got.YesCount != tr.want.Yes || tr.got.NoCount != tr.want.No || tr.got.AbstainCount != tr.want.Abstain {
			out = append(out, Mismatch{
				Gene: g.Symbol,
				Reason: fmt.Sprintf("%s counts %d/%d/%d, want %d/%d/%d", tr.name,
					tr.got.YesCount, tr.got.NoCount, tr.got.AbstainCount,
					tr.want.Yes, tr.want.No, tr.want.Abstain),
			})
		}
		if len(tr.got.Comments) != tr.want.Comments {
			out = append(out, Mismatch{
				Gene:   g.Symbol,
				Reason: fmt.Sprintf("%s comments %d, want %d", tr.name, len(tr.got.Comments), tr.want.Comments),
			})
		}
	}
	return out
}
