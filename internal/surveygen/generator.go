package surveygen

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"sync"

	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/aggregate"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/header"
	"github.com/HeikoBre/screening-dashboard-sandbox/pkg/logger"
)

// columnsPerGene is national response, national comment, study response, study comment.
const columnsPerGene = 4

// knownGenes seeds the survey with real newborn screening targets before
// falling back to synthetic symbols.
var knownGenes = []struct{ symbol, disease string }{
	{"CFTR", "Mukoviszidose"},
	{"PAH", "Phenylketonurie"},
	{"ACADM", "MCAD-Mangel"},
	{"SMN1", "Spinale Muskelatrophie"},
	{"GALT", "Galaktosämie"},
	{"BTD", "Biotinidase-Mangel"},
	{"HBB", "Sichelzellkrankheit"},
	{"GAA", "Morbus Pompe"},
	{"IDUA", "Mukopolysaccharidose Typ I"},
	{"ADA", "ADA-SCID"},
	{"CYP21A2", "Adrenogenitales Syndrom"},
	{"TSHR", "Kongenitale Hypothyreose"},
}

// geneName returns the symbol and disease of the i-th gene.
func geneName(i int) (string, string) {
	if i < len(knownGenes) {
		return knownGenes[i].symbol, knownGenes[i].disease
	}
	return fmt.Sprintf(syntheticGenePattern, i), "Synthetische Erkrankung " + strconv.Itoa(i)
}

// Generate builds a survey from config. The output depends only on the
// configuration, so equal seeds give byte-identical files.
func Generate(ctx context.Context, config *Config) (*Survey, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	logger.Get().Info(ctx, "generating synthetic survey",
		logger.Int("genes", config.Genes),
		logger.Int("respondents", config.Respondents),
		logger.Any("seed", config.Seed))

	markers := header.DefaultMarkers()
	labels := aggregate.DefaultLabels()

	survey := &Survey{
		Header: make([]string, 1+config.Genes*columnsPerGene),
		Rows:   make([][]string, config.Respondents),
		Genes:  make([]Gene, config.Genes),
	}
	survey.Header[0] = respondentIDColumn
	for r := range survey.Rows {
		survey.Rows[r] = make([]string, len(survey.Header))
		survey.Rows[r][0] = strconv.Itoa(r + 1)
	}

	// Each gene owns a disjoint column range and its own random source.
	jobs := make(chan int, config.Workers*2)
	var wg sync.WaitGroup
	for w := 0; w < min(config.Workers, config.Genes); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				survey.Genes[i] = fillGene(config, markers, labels, survey, i)
			}
		}()
	}

	var err error
	for i := 0; i < config.Genes; i++ {
		select {
		case <-ctx.Done():
			err = fmt.Errorf("context cancelled during survey generation: %w", ctx.Err())
		case jobs <- i:
		}
		if err != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()
	if err != nil {
		return nil, err
	}

	logger.Get().Info(ctx, "generated synthetic survey", logger.Int("columns", len(survey.Header)))
	return survey, nil
}

// fillGene writes the header and cells of gene i.
func fillGene(config *Config, m header.Markers, l aggregate.Labels, s *Survey, i int) Gene {
	rng := rand.New(rand.NewPCG(config.Seed, config.Seed^uint64(i+1)*seedStride))
	symbol, disease := geneName(i)
	g := Gene{Symbol: symbol, Disease: disease}

	prefix := fmt.Sprintf("%s %s %s %s ", m.Gene, symbol, m.Disease, disease)
	base := 1 + i*columnsPerGene
	s.Header[base] = prefix + nationalQuestion
	s.Header[base+1] = prefix + nationalQuestion + " " + m.Comment
	s.Header[base+2] = prefix + studyQuestion
	s.Header[base+3] = prefix + studyQuestion + " " + m.Comment

	nationalYes := minYesProbability + rng.Float64()*yesProbabilityRange
	studyYes := minYesProbability + rng.Float64()*yesProbabilityRange

	for r, row := range s.Rows {
		row[base], row[base+1] = answer(config, l, rng, nationalYes, &g.National, symbol, r)
		row[base+2], row[base+3] = answer(config, l, rng, studyYes, &g.Study, symbol, r)
	}
	return g
}

// answer draws one response and optional comment, updating the tally.
func answer(config *Config, l aggregate.Labels, rng *rand.Rand, yes float64, t *Tally, symbol string, row int) (string, string) {
	var response, comment string
	switch {
	case rng.Float64() < config.BlankRate:
	case rng.Float64() < config.AbstainRate:
		response = l.Abstain
		t.Abstain++
	case rng.Float64() < yes:
		response = l.Yes
		t.Yes++
	default:
		response = l.No
		t.No++
	}
	if rng.Float64() < config.CommentRate {
		comment = fmt.Sprintf("Anmerkung %d zu %s", row+1, symbol)
		t.Comments++
	}
	return response, comment
}

// Write encodes the survey as delimited text.
func Write(w io.Writer, s *Survey, delimiter rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delimiter
	if err := cw.Write(s.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(s.Rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}
