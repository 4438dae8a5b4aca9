package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DropReason explains why a raw record was excluded from the clean set.
type DropReason string

const (
	ReasonNone            DropReason = ""
	ReasonMissingCategory DropReason = "missing_category"
	ReasonMissingWeight   DropReason = "missing_weight"
	ReasonInvalidWeight   DropReason = "invalid_weight"
	ReasonNegativeWeight  DropReason = "negative_weight"
	ReasonMissingYear     DropReason = "missing_year"
	ReasonInvalidYear     DropReason = "invalid_year"
)

// MaxDropSamples caps how many dropped rows are kept for display.
const MaxDropSamples = 20

// DroppedRecord is a sample of a rejected row.
type DroppedRecord struct {
	Line   int        `json:"line"`
	Reason DropReason `json:"reason"`
	Raw    RawRecord  `json:"raw"`
}

// ValidationSummary counts kept and dropped records per load.
type ValidationSummary struct {
	Total    int                `json:"total"`
	Kept     int                `json:"kept"`
	Dropped  int                `json:"dropped"`
	ByReason map[DropReason]int `json:"by_reason"`
	Samples  []DroppedRecord    `json:"samples"`
}

// ReasonCount is one entry of a summary breakdown.
type ReasonCount struct {
	Reason DropReason
	Count  int
}

// NewValidationSummary returns an empty summary.
func NewValidationSummary() ValidationSummary {
	return ValidationSummary{ByReason: make(map[DropReason]int)}
}

func (s *ValidationSummary) observe(raw RawRecord, reason DropReason) {
	s.Total++
	if reason == ReasonNone {
		s.Kept++
		return
	}
	s.Dropped++
	s.ByReason[reason]++
	if len(s.Samples) < MaxDropSamples {
		s.Samples = append(s.Samples, DroppedRecord{Line: raw.Line, Reason: reason, Raw: raw})
	}
}

// Reasons returns the breakdown sorted by descending count, then reason.
func (s ValidationSummary) Reasons() []ReasonCount {
	out := make([]ReasonCount, 0, len(s.ByReason))
	for r, n := range s.ByReason {
		out = append(out, ReasonCount{Reason: r, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

// String renders e.g. "3 records dropped: invalid_weight=2, missing_year=1".
func (s ValidationSummary) String() string {
	if s.Dropped == 0 {
		return "0 records dropped"
	}
	parts := make([]string, 0, len(s.ByReason))
	for _, rc := range s.Reasons() {
		parts = append(parts, fmt.Sprintf("%s=%d", rc.Reason, rc.Count))
	}
	return fmt.Sprintf("%d records dropped: %s", s.Dropped, strings.Join(parts, ", "))
}

func reasonFor(err error) DropReason {
	switch {
	case errors.Is(err, ErrMissingWeight):
		return ReasonMissingWeight
	case errors.Is(err, ErrNegativeWeight):
		return ReasonNegativeWeight
	case errors.Is(err, ErrInvalidWeight):
		return ReasonInvalidWeight
	case errors.Is(err, ErrMissingYear):
		return ReasonMissingYear
	case errors.Is(err, ErrInvalidYear):
		return ReasonInvalidYear
	case errors.Is(err, ErrMissingCategory):
		return ReasonMissingCategory
	default:
		return ReasonInvalidWeight
	}
}
