// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keys are flat and match the koanf tags below.
// - New returns defaults; Load layers a YAML file and GNBS_ env vars on top.
// - Load failures wrap ErrLoadConfig, validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/HeikoBre/screening-dashboard-sandbox/internal/adapters/repository"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/aggregate"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/header"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/projection"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// MaxUploadBytes caps the size of an uploaded survey export.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// Header markers recognized in survey column headers.
	GeneMarker     string `koanf:"gene_marker"`
	DiseaseMarker  string `koanf:"disease_marker"`
	NationalMarker string `koanf:"national_marker"`
	StudyMarker    string `koanf:"study_marker"`
	CommentMarker  string `koanf:"comment_marker"`

	// Response labels counted by the aggregator.
	YesLabel     string `koanf:"yes_label"`
	NoLabel      string `koanf:"no_label"`
	AbstainLabel string `koanf:"abstain_label"`

	// Threshold is the consensus cut-off in percent.
	Threshold float64 `koanf:"threshold"`

	// CommentDelimiter joins comments in the export.
	CommentDelimiter string `koanf:"comment_delimiter"`

	// UnreviewedLabel is exported for genes without a review.
	UnreviewedLabel string `koanf:"unreviewed_label"`

	// LedgerBackend is one of memory, tsv, sqlite.
	LedgerBackend string `koanf:"ledger_backend"`

	// LedgerPath is the file for tsv and sqlite ledgers.
	LedgerPath string `koanf:"ledger_path"`

	// ResetReviewsOnLoad clears the ledger whenever a new dataset is loaded.
	ResetReviewsOnLoad bool `koanf:"reset_reviews_on_load"`

	// ExportIncludeTotal prepends the Gesamt_Responses column to CSV exports.
	ExportIncludeTotal bool `koanf:"export_include_total"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	m := header.DefaultMarkers()
	l := aggregate.DefaultLabels()
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		MaxUploadBytes:     32 << 20,
		GeneMarker:         m.Gene,
		DiseaseMarker:      m.Disease,
		NationalMarker:     m.National,
		StudyMarker:        m.Study,
		CommentMarker:      m.Comment,
		YesLabel:           l.Yes,
		NoLabel:            l.No,
		AbstainLabel:       l.Abstain,
		Threshold:          80.0,
		CommentDelimiter:   projection.DefaultDelimiter,
		UnreviewedLabel:    projection.DefaultUnreviewedLabel,
		LedgerBackend:      repository.BackendMemory,
		ResetReviewsOnLoad: true,
	}
}

// Markers returns the configured header markers.
func (c *Config) Markers() header.Markers {
	return header.Markers{
		Gene:     c.GeneMarker,
		Disease:  c.DiseaseMarker,
		National: c.NationalMarker,
		Study:    c.StudyMarker,
		Comment:  c.CommentMarker,
	}
}

// Labels returns the configured response labels.
func (c *Config) Labels() aggregate.Labels {
	return aggregate.Labels{Yes: c.YesLabel, No: c.NoLabel, Abstain: c.AbstainLabel}
}

// Validate checks the config for values no component can work with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	required := []struct{ key, val string }{
		{"gene_marker", c.GeneMarker},
		{"disease_marker", c.DiseaseMarker},
		{"national_marker", c.NationalMarker},
		{"study_marker", c.StudyMarker},
		{"comment_marker", c.CommentMarker},
		{"yes_label", c.YesLabel},
		{"no_label", c.NoLabel},
		{"abstain_label", c.AbstainLabel},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			return fmt.Errorf("%w: %s must not be empty", ErrInvalidConfig, r.key)
		}
	}
	if c.Threshold < 0 || c.Threshold > 100 {
		return fmt.Errorf("%w: threshold %.2f outside [0,100]", ErrInvalidConfig, c.Threshold)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("%w: max_upload_bytes must be positive", ErrInvalidConfig)
	}
	switch c.LedgerBackend {
	case repository.BackendMemory:
	case repository.BackendTSV, repository.BackendSQLite:
		if strings.TrimSpace(c.LedgerPath) == "" {
			return fmt.Errorf("%w: ledger_path required for %s ledger", ErrInvalidConfig, c.LedgerBackend)
		}
	default:
		return fmt.Errorf("%w: unknown ledger_backend %q", ErrInvalidConfig, c.LedgerBackend)
	}
	return nil
}
