package model

import (
	"fmt"
	"strings"
	"time"
)

// Decision is the reviewer's categorical outcome for a gene.
type Decision string

// Review decisions. DecisionNone marks a review that only carries notes.
const (
	DecisionNone              Decision = ""
	DecisionNationalScreening Decision = "national_screening"
	DecisionScientificStudy   Decision = "scientific_study"
	DecisionNotRecommended    Decision = "not_recommended"
	DecisionDeferred          Decision = "deferred"
)

// Decisions lists the selectable decisions.
var Decisions = []Decision{
	DecisionNationalScreening,
	DecisionScientificStudy,
	DecisionNotRecommended,
	DecisionDeferred,
}

// ParseDecision accepts a decision name case-insensitively. An empty string
// yields DecisionNone.
func ParseDecision(s string) (Decision, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DecisionNone, nil
	}
	for _, d := range Decisions {
		if string(d) == s {
			return d, nil
		}
	}
	return DecisionNone, fmt.Errorf("%w: %q", ErrInvalidDecision, s)
}

// Review is a reviewer-entered decision plus free-text notes for one gene.
type Review struct {
	Gene      string    `json:"gene" db:"gene"`
	Decision  Decision  `json:"decision" db:"decision"`
	Notes     string    `json:"notes" db:"notes"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsEmpty reports whether the review carries neither a decision nor notes.
// Saving an empty review is equivalent to clearing it.
func (r Review) IsEmpty() bool {
	return r.Decision == DecisionNone && strings.TrimSpace(r.Notes) == ""
}
