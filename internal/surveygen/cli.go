package surveygen

import (
	"fmt"
	"io"
	"os"

	"github.com/HeikoBre/screening-dashboard-sandbox/pkg/logger"
)

// SetupLogging configures logging to stdout and, when logFile is set, to
// that file as well.
func SetupLogging(logFile string, verbose bool) error {
	var out io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, file)
	}
	if err := logger.Init(logger.WithOutput(out)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the survey generator.
func ShowHelp() {
	os.Stdout.WriteString(`gNBS Synthetic Survey Generator
===============================

Writes a deterministic synthetic expert survey export and optionally uploads
it to a running review service, checking every gene's counts afterwards.

Usage:
  go run ./cmd/gen-survey [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -genes int
        Number of genes (default 12)
  -respondents int
        Number of response rows (default 40)
  -seed uint
        Generator seed (default 1)
  -comments float
        Comment probability per gene and track (default 0.1)
  -blank float
        Probability of an empty response cell (default 0.05)
  -abstain float
        Probability of the abstain answer (default 0.05)
  -delimiter string
        Field delimiter: "," ";" or "tab" (default ",")
  -workers int
        Number of concurrent workers (default 4)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for the generated survey
  -upload
        Upload the survey and verify the service's view of it
  -log string
        Additional log file
  -verbose
        Enable debug logging
  -help
        Show this help message

Examples:
  # Write a survey file
  go run ./cmd/gen-survey -output survey.csv

  # Upload a large semicolon-delimited survey and verify it
  go run ./cmd/gen-survey -genes 200 -respondents 500 -delimiter ";" -upload
`)
}
