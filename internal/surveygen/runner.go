package surveygen

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/HeikoBre/screening-dashboard-sandbox/pkg/logger"
)

// Run generates a survey, writes it to disk and, when configured, uploads it
// to the service and verifies the result.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting synthetic survey run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("genes", config.Genes),
		logger.Int("respondents", config.Respondents),
		logger.Bool("upload", config.Upload),
		logger.Any("verbose", config.Verbose))

	// Step 1: Generate survey
	survey, err := Generate(ctx, config)
	if err != nil {
		return stats, fmt.Errorf("survey generation failed: %w", err)
	}
	stats.GenesGenerated = len(survey.Genes)
	stats.RowsGenerated = len(survey.Rows)

	var buf bytes.Buffer
	if err := Write(&buf, survey, config.Delimiter); err != nil {
		return stats, fmt.Errorf("survey encoding failed: %w", err)
	}
	stats.BytesWritten = buf.Len()

	// Step 2: Save survey to file
	if config.OutputFile != "" {
		if err := saveSurvey(ctx, config.OutputFile, buf.Bytes()); err != nil {
			return stats, err
		}
	}

	if config.Upload {
		client := NewHTTPClient(config.BaseURL, config.Timeout)

		// Step 3: Check service health
		if err := checkServiceHealth(ctx, client); err != nil {
			return stats, fmt.Errorf("service health check failed: %w", err)
		}

		// Step 4: Upload
		name := defaultUploadName
		if config.OutputFile != "" {
			name = filepath.Base(config.OutputFile)
		}
		ds, err := client.Upload(ctx, name, buf.Bytes())
		if err != nil {
			return stats, fmt.Errorf("survey upload failed: %w", err)
		}
		logger.Get().Info(ctx, "survey uploaded",
			logger.String("dataset", ds.ID),
			logger.Int("genes", ds.Genes),
			logger.String("delimiter", ds.Delimiter))

		// Step 5: Verify results
		if err := Verify(ctx, client, config, survey, ds, stats); err != nil {
			return stats, fmt.Errorf("result verification failed: %w", err)
		}
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// checkServiceHealth polls the health endpoint a few times before giving up.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	var err error
	for attempt := 0; attempt < healthCheckAttempts; attempt++ {
		if err = client.Health(ctx); err == nil {
			logger.Get().Info(ctx, "service is healthy")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(healthCheckRetry):
		}
	}
	return fmt.Errorf("%w: %w", ErrUnhealthy, err)
}

// saveSurvey writes the encoded survey, creating parent directories.
func saveSurvey(ctx context.Context, filename string, data []byte) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(filename, data, logFilePermission); err != nil {
		return fmt.Errorf("failed to write survey: %w", err)
	}
	logger.Get().Info(ctx, "survey saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	logger.Get().Info(ctx, "final statistics",
		logger.Int("genesGenerated", stats.GenesGenerated),
		logger.Int("rowsGenerated", stats.RowsGenerated),
		logger.Int("bytesWritten", stats.BytesWritten),
		logger.Int("genesVerified", stats.GenesVerified),
		logger.Int("genesMismatched", stats.GenesMismatched),
		logger.String("duration", stats.Duration.String()))
}
