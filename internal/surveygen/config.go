package surveygen

import (
	"fmt"
	"time"
)

// Config holds configuration for a synthetic survey run.
type Config struct {
	BaseURL     string        // Base URL of the review service
	Genes       int           // Number of genes in the survey
	Respondents int           // Number of response rows
	Seed        uint64        // Seed for the deterministic generator
	CommentRate float64       // Probability that a respondent leaves a comment per gene and track
	BlankRate   float64       // Probability that a response cell is left empty
	AbstainRate float64       // Probability that a given answer is the abstain label
	Delimiter   rune          // Field delimiter of the written file
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	OutputFile  string        // Output file for the generated survey
	Upload      bool          // Upload to BaseURL and verify the result
	Verbose     bool          // Enable verbose logging
}

// DefaultConfig returns a configuration producing a small survey.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "http://localhost:9080",
		Genes:       12,
		Respondents: 40,
		Seed:        1,
		CommentRate: 0.1,
		BlankRate:   0.05,
		AbstainRate: 0.05,
		Delimiter:   ',',
		Workers:     4,
		Timeout:     30 * time.Second,
	}
}

// Validate checks the configuration for values the generator cannot use.
func (c *Config) Validate() error {
	if c.Genes <= 0 {
		return fmt.Errorf("%w: genes must be positive", ErrInvalidConfig)
	}
	if c.Respondents < 0 {
		return fmt.Errorf("%w: respondents must not be negative", ErrInvalidConfig)
	}
	for name, rate := range map[string]float64{
		"comment rate": c.CommentRate,
		"blank rate":   c.BlankRate,
		"abstain rate": c.AbstainRate,
	} {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("%w: %s must be within [0,1]", ErrInvalidConfig, name)
		}
	}
	switch c.Delimiter {
	case ',', ';', '\t':
	default:
		return fmt.Errorf("%w: unsupported delimiter %q", ErrInvalidConfig, c.Delimiter)
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	return nil
}

// Tally holds the expected response counts of one gene and track.
type Tally struct {
	Yes      int
	No       int
	Abstain  int
	Comments int
}

// N is the number of valid responses.
func (t Tally) N() int { return t.Yes + t.No + t.Abstain }

// Gene describes one synthetic gene and the answers written for it.
type Gene struct {
	Symbol   string
	Disease  string
	National Tally
	Study    Tally
}

// Survey is a generated survey export.
type Survey struct {
	Header []string
	Rows   [][]string
	Genes  []Gene
}

// Stats holds run statistics.
type Stats struct {
	GenesGenerated  int
	RowsGenerated   int
	GenesVerified   int
	GenesMismatched int
	BytesWritten    int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
