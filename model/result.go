package model

import (
	"encoding/json"
	"fmt"
	"math"
)

// ExtractResult is a scalar extraction outcome. A nil Value means not found.
type ExtractResult struct {
	Value    *string `json:"value"`
	Evidence *string `json:"evidence"`
	Score    int     `json:"score"`
}

// NotFound returns the empty scalar result.
func NotFound() ExtractResult {
	return ExtractResult{}
}

// Found builds a scalar result. Negative scores are clamped to zero.
func Found(value, evidence string, score int) ExtractResult {
	if score < 0 {
		score = 0
	}
	return ExtractResult{Value: &value, Evidence: &evidence, Score: score}
}

// IsFound reports whether the result carries a value.
func (r ExtractResult) IsFound() bool {
	return r.Value != nil
}

// Candidate is one ranked alternative for a scalar parameter.
type Candidate struct {
	Value    string `json:"value"`
	Evidence string `json:"evidence"`
	Score    int    `json:"score"`
}

// ExtractResultList is a list extraction outcome with one aggregate evidence and score.
type ExtractResultList struct {
	Values   []string `json:"values"`
	Evidence string   `json:"evidence"`
	Score    int      `json:"score"`
}

// EmptyList returns a list result with no values.
func EmptyList() ExtractResultList {
	return ExtractResultList{Values: []string{}}
}

// ExportResult describes a capped list and where the full list was written.
type ExportResult struct {
	Total    int      `json:"total"`
	Shown    []string `json:"shown"`
	FilePath *string  `json:"file_path"`
}

// ResultKind discriminates Result.
type ResultKind string

const (
	KindScalar ResultKind = "scalar"
	KindList   ResultKind = "list"
)

// Result is the per-parameter outcome returned to callers. Exactly one of
// Scalar or List is set, according to Kind.
type Result struct {
	Parameter  string
	Label      string
	Kind       ResultKind
	Scalar     *ExtractResult
	List       *ExtractResultList
	Candidates []Candidate
	Total      int
	Overflow   *string
}

// NewScalarResult wraps a scalar outcome.
func NewScalarResult(parameter, label string, r ExtractResult) Result {
	return Result{Parameter: parameter, Label: label, Kind: KindScalar, Scalar: &r}
}

// NewListResult wraps a list outcome. Total defaults to the number of values.
func NewListResult(parameter, label string, r ExtractResultList) Result {
	return Result{Parameter: parameter, Label: label, Kind: KindList, List: &r, Total: len(r.Values)}
}

// Found reports whether the parameter produced a value.
func (r Result) Found() bool {
	switch r.Kind {
	case KindScalar:
		return r.Scalar != nil && r.Scalar.IsFound()
	case KindList:
		return r.List != nil && len(r.List.Values) > 0
	}
	return false
}

// Confidence maps the raw score to [0, 1].
func (r Result) Confidence() float64 {
	var c float64
	switch r.Kind {
	case KindScalar:
		if r.Scalar == nil {
			return 0
		}
		c = float64(r.Scalar.Score) / 15
	case KindList:
		if r.List == nil {
			return 0
		}
		c = float64(r.List.Score) / 100
	}
	return math.Round(math.Min(1, c)*100) / 100
}

type scalarEnvelope struct {
	Parameter  string      `json:"parameter"`
	Label      string      `json:"label,omitempty"`
	Kind       ResultKind  `json:"kind"`
	Found      bool        `json:"found"`
	Value      *string     `json:"value"`
	Evidence   *string     `json:"evidence"`
	Score      int         `json:"score"`
	Confidence float64     `json:"confidence"`
	Candidates []Candidate `json:"candidates,omitempty"`
}

type listEnvelope struct {
	Parameter    string     `json:"parameter"`
	Label        string     `json:"label,omitempty"`
	Kind         ResultKind `json:"kind"`
	Found        bool       `json:"found"`
	Values       []string   `json:"values"`
	Total        int        `json:"total"`
	Evidence     string     `json:"evidence"`
	Score        int        `json:"score"`
	Confidence   float64    `json:"confidence"`
	OverflowFile *string    `json:"overflow_file"`
}

// MarshalJSON renders {value, evidence, score} for scalars and
// {values, evidence, score, overflow_file} for lists.
func (r Result) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case KindScalar:
		s := NotFound()
		if r.Scalar != nil {
			s = *r.Scalar
		}
		return json.Marshal(scalarEnvelope{
			Parameter:  r.Parameter,
			Label:      r.Label,
			Kind:       r.Kind,
			Found:      r.Found(),
			Value:      s.Value,
			Evidence:   s.Evidence,
			Score:      s.Score,
			Confidence: r.Confidence(),
			Candidates: r.Candidates,
		})
	case KindList:
		l := EmptyList()
		if r.List != nil {
			l = *r.List
		}
		if l.Values == nil {
			l.Values = []string{}
		}
		return json.Marshal(listEnvelope{
			Parameter:    r.Parameter,
			Label:        r.Label,
			Kind:         r.Kind,
			Found:        r.Found(),
			Values:       l.Values,
			Total:        r.Total,
			Evidence:     l.Evidence,
			Score:        l.Score,
			Confidence:   r.Confidence(),
			OverflowFile: r.Overflow,
		})
	}
	return nil, fmt.Errorf("unknown result kind %q", r.Kind)
}
