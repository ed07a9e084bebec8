// Package types contains the read shapes served by the API.
package types

import (
	"fmt"
	"time"
)

// Track is the survey statistics of one gene in one track.
type Track struct {
	YesCount       int      `json:"yes_count"`
	NoCount        int      `json:"no_count"`
	AbstainCount   int      `json:"abstain_count"`
	N              int      `json:"n"`
	YesPct         float64  `json:"yes_pct"`
	MeetsThreshold bool     `json:"meets_threshold"`
	Comments       []string `json:"comments"`
	Dropped        int      `json:"dropped"`
}

// Review is a stored reviewer decision.
type Review struct {
	Gene      string    `json:"gene"`
	Decision  string    `json:"decision"`
	Notes     string    `json:"notes"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GenePreview is one line of the gene overview.
type GenePreview struct {
	Gene           string  `json:"gene"`
	Disease        string  `json:"disease"`
	NationalYesPct float64 `json:"national_yes_pct"`
	StudyYesPct    float64 `json:"study_yes_pct"`
	National80     bool    `json:"national_80"`
	Recommendation string  `json:"recommendation"`
	Reviewed       bool    `json:"reviewed"`
}

// GeneDetail is the full view of one gene.
type GeneDetail struct {
	Gene           string  `json:"gene"`
	Disease        string  `json:"disease"`
	National       Track   `json:"national"`
	Study          Track   `json:"scientific_study"`
	Recommendation string  `json:"recommendation"`
	Review         *Review `json:"review,omitempty"`
}

// Progress counts reviewed genes of the current dataset.
type Progress struct {
	Reviewed int `json:"reviewed"`
	Total    int `json:"total"`
}

// Label renders progress the way the review screen shows it.
func (p Progress) Label() string {
	return fmt.Sprintf("%d/%d Gene kommentiert", p.Reviewed, p.Total)
}

// Done reports whether every gene has a review.
func (p Progress) Done() bool {
	return p.Total > 0 && p.Reviewed >= p.Total
}

// ReviewList is the ledger content with progress.
type ReviewList struct {
	Reviews  []Review `json:"reviews"`
	Progress Progress `json:"progress"`
}

// Diagnostics are the non-fatal findings of a dataset load.
type Diagnostics struct {
	SchemaEmpty      bool     `json:"schema_empty"`
	SurveyColumns    int      `json:"survey_columns"`
	IgnoredColumns   int      `json:"ignored_columns"`
	AmbiguousHeaders []string `json:"ambiguous_headers"`
	DroppedValues    int      `json:"dropped_values"`
}

// Dataset describes the loaded dataset.
type Dataset struct {
	ID             string      `json:"id"`
	Source         string      `json:"source"`
	LoadedAt       time.Time   `json:"loaded_at"`
	Encoding       string      `json:"encoding"`
	Delimiter      string      `json:"delimiter"`
	TotalResponses int         `json:"total_responses"`
	Genes          int         `json:"genes"`
	Diagnostics    Diagnostics `json:"diagnostics"`
}
