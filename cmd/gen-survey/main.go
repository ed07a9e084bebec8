package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/HeikoBre/screening-dashboard-sandbox/internal/surveygen"
)

// Default configuration constants.
const (
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	defaults := surveygen.DefaultConfig()
	var (
		baseURL     = flag.String("url", defaults.BaseURL, "Base URL of the service")
		genes       = flag.Int("genes", defaults.Genes, "Number of genes")
		respondents = flag.Int("respondents", defaults.Respondents, "Number of response rows")
		seed        = flag.Uint64("seed", defaults.Seed, "Generator seed")
		comments    = flag.Float64("comments", defaults.CommentRate, "Comment probability per gene and track")
		blank       = flag.Float64("blank", defaults.BlankRate, "Probability of an empty response cell")
		abstain     = flag.Float64("abstain", defaults.AbstainRate, "Probability of the abstain answer")
		delimiter   = flag.String("delimiter", ",", `Field delimiter: "," ";" or "tab"`)
		workers     = flag.Int("workers", defaults.Workers, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", defaults.Timeout, "HTTP request timeout")
		outputFile  = flag.String("output", "", "Output file for the generated survey")
		upload      = flag.Bool("upload", false, "Upload the survey and verify it")
		logFile     = flag.String("log", "", "Additional log file")
		verbose     = flag.Bool("verbose", false, "Enable debug logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		surveygen.ShowHelp()
		return
	}

	if err := surveygen.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &surveygen.Config{
		BaseURL:     *baseURL,
		Genes:       *genes,
		Respondents: *respondents,
		Seed:        *seed,
		CommentRate: *comments,
		BlankRate:   *blank,
		AbstainRate: *abstain,
		Delimiter:   parseDelimiter(*delimiter),
		Workers:     *workers,
		Timeout:     *timeout,
		OutputFile:  *outputFile,
		Upload:      *upload,
		Verbose:     *verbose,
	}

	if config.OutputFile == "" && !config.Upload {
		config.OutputFile = "synthetic_survey_" + time.Now().Format("20060102_150405") + ".csv"
	}

	if _, err := surveygen.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Run failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// parseDelimiter maps the flag value to a rune; "tab" selects '\t'.
func parseDelimiter(s string) rune {
	switch s {
	case "tab", `\t`:
		return '\t'
	case "":
		return ','
	}
	return []rune(s)[0]
}
