// Package consensus classifies genes against the approval threshold.
package consensus

import "github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/aggregate"

// DefaultThreshold is the inclusive yes-percentage needed for consensus.
const DefaultThreshold = 80.0

// Recommendation is the disposition derived from survey consensus.
type Recommendation int

// Recommendations in priority order.
const (
	NationalScreening Recommendation = iota
	ScientificStudyOnly
	NotRecommended
)

// Recommendations lists every category.
var Recommendations = []Recommendation{NationalScreening, ScientificStudyOnly, NotRecommended}

// String returns the export label.
func (r Recommendation) String() string {
	switch r {
	case NationalScreening:
		return "national_screening"
	case ScientificStudyOnly:
		return "scientific_study_only"
	case NotRecommended:
		return "not_recommended"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Recommendation) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithThreshold sets the inclusive threshold in percent. Values outside
// [0,100] are ignored.
func WithThreshold(pct float64) Option {
	return func(c *Classifier) {
		if pct >= 0 && pct <= 100 {
			c.threshold = pct
		}
	}
}

// Classifier applies the threshold policy. It has no state besides its
// threshold and is safe for concurrent use.
type Classifier struct {
	threshold float64
}

// NewClassifier creates a Classifier with DefaultThreshold unless overridden.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Threshold returns the threshold in percent.
func (c *Classifier) Threshold() float64 { return c.threshold }

// Meets reports whether pct reaches the threshold.
func (c *Classifier) Meets(pct float64) bool { return pct >= c.threshold }

// Classify checks the national track first, then the study track.
func (c *Classifier) Classify(national, study aggregate.GeneStats) Recommendation {
	switch {
	case c.Meets(national.YesPct):
		return NationalScreening
	case c.Meets(study.YesPct):
		return ScientificStudyOnly
	default:
		return NotRecommended
	}
}

// Classify uses DefaultThreshold.
func Classify(national, study aggregate.GeneStats) Recommendation {
	return defaultClassifier.Classify(national, study)
}

var defaultClassifier = NewClassifier()
