// Package core holds the waste record model and the rules that turn raw
// source rows into clean records.
//
// This file contains the coercion helpers. They never fail a whole load:
// each one reports why a single value was rejected.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	minYear = 1
	maxYear = 9999
)

// NormalizeCategory trims surrounding whitespace and title-cases the label,
// so "paper", " Paper" and "PAPER " all become "Paper". Every rune that is
// not a letter starts a new word: "food_waste" becomes "Food_Waste" and
// "o'brien" becomes "O'Brien".
//
// A fresh Caser is used per call because cases.Caser is not safe for
// concurrent use.
func NormalizeCategory(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	caser := cases.Title(language.Und)
	var b strings.Builder
	b.Grow(len(s))
	word := -1
	for i, r := range s {
		switch {
		case unicode.IsLetter(r) && word == -1:
			word = i
		case !unicode.IsLetter(r):
			if word != -1 {
				b.WriteString(caser.String(s[word:i]))
				word = -1
			}
			b.WriteRune(r)
		}
	}
	if word != -1 {
		b.WriteString(caser.String(s[word:]))
	}
	return b.String()
}

// ParseWeight converts a weight field to a float.
//
// Examples:
//
//	ParseWeight("12.5")  -> 12.5, nil
//	ParseWeight(" 3 ")   -> 3, nil
//	ParseWeight("")      -> 0, ErrMissingWeight
//	ParseWeight("n/a")   -> 0, ErrInvalidWeight
//	ParseWeight("-4")    -> 0, ErrNegativeWeight
func ParseWeight(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMissingWeight
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidWeight
	}
	if v < 0 {
		return 0, ErrNegativeWeight
	}
	return v, nil
}

// ParseYear converts a year field to an int. Integral floats such as
// "2020.0" are accepted because spreadsheet exports often write years that way.
func ParseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMissingYear
	}
	if y, err := strconv.Atoi(s); err == nil {
		if y < minYear || y > maxYear {
			return 0, ErrInvalidYear
		}
		return y, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, ErrInvalidYear
	}
	if v < minYear || v > maxYear {
		return 0, ErrInvalidYear
	}
	return int(v), nil
}

// CleanRecord validates a single raw row. It returns ReasonNone when the
// record is kept.
func CleanRecord(raw RawRecord) (Record, DropReason) {
	category := NormalizeCategory(raw.Category)
	if category == "" {
		return Record{}, ReasonMissingCategory
	}
	weight, err := ParseWeight(raw.Weight)
	if err != nil {
		return Record{}, reasonFor(err)
	}
	year, err := ParseYear(raw.Year)
	if err != nil {
		return Record{}, reasonFor(err)
	}
	return Record{Year: year, Category: category, Weight: weight}, ReasonNone
}

// Clean validates raws in order and returns the kept records together with
// a summary of what was dropped and why.
func Clean(raws []RawRecord) ([]Record, ValidationSummary) {
	records := make([]Record, 0, len(raws))
	summary := NewValidationSummary()
	for _, raw := range raws {
		rec, reason := CleanRecord(raw)
		summary.observe(raw, reason)
		if reason != ReasonNone {
			continue
		}
		records = append(records, rec)
	}
	return records, summary
}
