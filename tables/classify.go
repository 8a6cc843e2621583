// Package tables classifies detected tables by header and extracts
// deduplicated value lists from the relevant ones.
package tables

import (
	"strings"

	"github.com/pslima001/govy-function-current-sub002/model"
	"github.com/pslima001/govy-function-current-sub002/pkg/textnorm"
)

// HeaderMatch counts how each required term matched a header row.
type HeaderMatch struct {
	Exact   int
	Partial int
	Missing []string
}

// Complete reports whether every required term matched.
func (m HeaderMatch) Complete() bool {
	return len(m.Missing) == 0
}

// Points scores the match: 10 per exact cell, 5 per substring match.
func (m HeaderMatch) Points() int {
	return 10*m.Exact + 5*m.Partial
}

// MatchHeader compares required terms against a header row. A term matches
// exactly when a normalized cell equals it, partially when a cell contains it.
func MatchHeader(header []string, required []string) HeaderMatch {
	cells := make([]string, len(header))
	for i, h := range header {
		cells[i] = textnorm.Normalize(h)
	}

	var m HeaderMatch
	for _, term := range required {
		t := textnorm.Normalize(term)
		if t == "" {
			continue
		}
		exact, partial := false, false
		for _, c := range cells {
			if c == t {
				exact = true
				break
			}
			if strings.Contains(c, t) {
				partial = true
			}
		}
		switch {
		case exact:
			m.Exact++
		case partial:
			m.Partial++
		default:
			m.Missing = append(m.Missing, term)
		}
	}
	return m
}

// Classify returns the tables whose header row matches all required terms,
// in their original order. It never returns nil.
func Classify(tables []model.DetectedTable, required []string) []model.DetectedTable {
	out := make([]model.DetectedTable, 0, len(tables))
	for _, t := range tables {
		if MatchHeader(t.HeaderRow(), required).Complete() {
			out = append(out, t)
		}
	}
	return out
}

// FindColumn returns the index of the first header cell containing any of
// the terms, or -1.
func FindColumn(header []string, terms ...string) int {
	for i, h := range header {
		n := textnorm.Normalize(h)
		if n == "" {
			continue
		}
		for _, t := range terms {
			if t = textnorm.Normalize(t); t != "" && strings.Contains(n, t) {
				return i
			}
		}
	}
	return -1
}
