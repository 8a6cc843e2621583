// Package extract implements the text-based extractors: term-scored
// scalars, heading-delimited sections and free-text address lists.
package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pslima001/govy-function-current-sub002/model"
	"github.com/pslima001/govy-function-current-sub002/pkg/textnorm"
)

// Scoring defaults applied when a TermRule leaves a weight at zero.
const (
	DefaultPatternWeight  = 1
	DefaultPositiveWeight = 2
	DefaultNegativeWeight = 3
	DefaultMinScore       = 1
	DefaultWindow         = 250
	DefaultMaxEvidence    = 300
	candidateSimilarity   = 0.75
)

// TermRule configures one scalar parameter. Pattern is matched against
// normalized text (accent-free, lower-case, single-spaced).
type TermRule struct {
	ID            string   `yaml:"id" json:"id"`
	Label         string   `yaml:"label" json:"label"`
	Pattern       string   `yaml:"pattern" json:"pattern"`
	ValueTemplate string   `yaml:"value_template,omitempty" json:"value_template,omitempty"`
	PositiveTerms []string `yaml:"positive_terms" json:"positive_terms"`
	NegativeTerms []string `yaml:"negative_terms" json:"negative_terms"`
	Boosts        []Boost  `yaml:"boosts,omitempty" json:"boosts,omitempty"`

	PatternWeight  int `yaml:"pattern_weight,omitempty" json:"pattern_weight,omitempty"`
	PositiveWeight int `yaml:"positive_weight,omitempty" json:"positive_weight,omitempty"`
	NegativeWeight int `yaml:"negative_weight,omitempty" json:"negative_weight,omitempty"`
	MinScore       int `yaml:"min_score,omitempty" json:"min_score,omitempty"`
	Window         int `yaml:"window,omitempty" json:"window,omitempty"`
	MaxEvidence    int `yaml:"max_evidence,omitempty" json:"max_evidence,omitempty"`
}

// Boost adds Weight (which may be negative) when every term co-occurs in the window.
type Boost struct {
	Terms  []string `yaml:"terms" json:"terms"`
	Weight int      `yaml:"weight" json:"weight"`
}

func (r TermRule) withDefaults() TermRule {
	if r.PatternWeight == 0 {
		r.PatternWeight = DefaultPatternWeight
	}
	if r.PositiveWeight == 0 {
		r.PositiveWeight = DefaultPositiveWeight
	}
	if r.NegativeWeight == 0 {
		r.NegativeWeight = DefaultNegativeWeight
	}
	if r.MinScore == 0 {
		r.MinScore = DefaultMinScore
	}
	if r.Window == 0 {
		r.Window = DefaultWindow
	}
	if r.MaxEvidence == 0 {
		r.MaxEvidence = DefaultMaxEvidence
	}
	return r
}

// Scalar is a compiled TermRule. It holds no per-call state and is safe
// for concurrent use.
type Scalar struct {
	rule     TermRule
	re       *regexp.Regexp
	positive *termSet
	negative *termSet
	boost    *termSet
	boosts   [][]string
}

// NewScalar compiles rule. An invalid pattern is reported here, never per document.
func NewScalar(rule TermRule) (*Scalar, error) {
	if rule.ID == "" {
		return nil, fmt.Errorf("term rule: missing id")
	}
	if strings.TrimSpace(rule.Pattern) == "" {
		return nil, fmt.Errorf("term rule %s: missing pattern", rule.ID)
	}
	re, err := regexp.Compile(rule.Pattern)
	if err != nil {
		return nil, fmt.Errorf("term rule %s: invalid pattern: %w", rule.ID, err)
	}

	rule = rule.withDefaults()
	s := &Scalar{
		rule:     rule,
		re:       re,
		positive: newTermSet(rule.PositiveTerms),
		negative: newTermSet(rule.NegativeTerms),
	}

	var vocab []string
	for _, b := range rule.Boosts {
		terms := make([]string, 0, len(b.Terms))
		for _, t := range b.Terms {
			if n := textnorm.Normalize(t); n != "" {
				terms = append(terms, n)
			}
		}
		if len(terms) == 0 {
			return nil, fmt.Errorf("term rule %s: boost without terms", rule.ID)
		}
		s.boosts = append(s.boosts, terms)
		vocab = append(vocab, terms...)
	}
	s.boost = newTermSet(vocab)
	return s, nil
}

// ID returns the parameter id.
func (s *Scalar) ID() string { return s.rule.ID }

// Label returns the human-readable parameter name.
func (s *Scalar) Label() string { return s.rule.Label }

// Rule returns the effective rule, defaults applied.
func (s *Scalar) Rule() TermRule { return s.rule }

type scored struct {
	value    string
	evidence string
	score    int
}

// Extract returns the best-scoring pattern match in raw. Ties go to the
// earliest match. No accepted match yields model.NotFound.
func (s *Scalar) Extract(raw string) model.ExtractResult {
	matches := s.scan(raw)
	if len(matches) == 0 {
		return model.NotFound()
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if m.score > best.score {
			best = m
		}
	}
	return model.Found(best.value, best.evidence, best.score)
}

// Candidates returns up to n accepted matches ranked by score, skipping
// matches whose evidence is near-identical to a higher-ranked one.
func (s *Scalar) Candidates(raw string, n int) []model.Candidate {
	if n <= 0 {
		return nil
	}
	matches := s.scan(raw)
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	out := make([]model.Candidate, 0, n)
	for _, m := range matches {
		duplicate := false
		for _, c := range out {
			if textnorm.Jaccard(c.Evidence, m.evidence) >= candidateSimilarity {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		out = append(out, model.Candidate{Value: m.value, Evidence: m.evidence, Score: m.score})
		if len(out) == n {
			break
		}
	}
	return out
}

// scan returns every accepted match in document order.
func (s *Scalar) scan(raw string) []scored {
	var out []scored
	for _, seg := range Segments(raw) {
		normalized := textnorm.Normalize(seg)
		if normalized == "" {
			continue
		}
		locs := s.re.FindAllStringSubmatchIndex(normalized, -1)
		if len(locs) == 0 {
			continue
		}
		evidence := textnorm.Truncate(textnorm.Clean(seg), s.rule.MaxEvidence)
		for _, loc := range locs {
			score := s.score(window(normalized, loc[0], loc[1], s.rule.Window))
			if score < s.rule.MinScore {
				continue
			}
			value := s.value(normalized, loc)
			if value == "" {
				continue
			}
			out = append(out, scored{value: value, evidence: evidence, score: score})
		}
	}
	return out
}

func (s *Scalar) score(ctx string) int {
	score := s.rule.PatternWeight +
		s.rule.PositiveWeight*s.positive.count(ctx) -
		s.rule.NegativeWeight*s.negative.count(ctx)

	if len(s.boosts) > 0 {
		present := s.boost.hits(ctx)
		for i, terms := range s.boosts {
			all := true
			for _, t := range terms {
				if _, ok := present[t]; !ok {
					all = false
					break
				}
			}
			if all {
				score += s.rule.Boosts[i].Weight
			}
		}
	}
	return score
}

func (s *Scalar) value(normalized string, loc []int) string {
	var v string
	switch {
	case s.rule.ValueTemplate != "":
		v = string(s.re.ExpandString(nil, s.rule.ValueTemplate, normalized, loc))
	case s.re.SubexpIndex("value") > 0:
		i := s.re.SubexpIndex("value")
		if loc[2*i] >= 0 {
			v = normalized[loc[2*i]:loc[2*i+1]]
		}
	case len(loc) > 2 && loc[2] >= 0:
		v = normalized[loc[2]:loc[3]]
	default:
		v = normalized[loc[0]:loc[1]]
	}
	return textnorm.CollapseSpaces(v)
}

// window returns text[start-n:end+n] clipped to the text and to rune boundaries.
func window(text string, start, end, n int) string {
	lo, hi := start-n, end+n
	if lo < 0 {
		lo = 0
	}
	if hi > len(text) {
		hi = len(text)
	}
	for lo < start && !utf8.RuneStart(text[lo]) {
		lo++
	}
	for hi > end && hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi--
	}
	return text[lo:hi]
}

var segmentBoundary = regexp.MustCompile(`[.;!?]+(?:\s+|$)|\n[ \t]*\n`)

// Segments splits raw into sentence-like segments. A period only ends a
// segment when followed by whitespace, so "5.1" and "1.500,00" stay intact.
func Segments(raw string) []string {
	var out []string
	last := 0
	for _, loc := range segmentBoundary.FindAllStringIndex(raw, -1) {
		if seg := strings.TrimSpace(raw[last:loc[1]]); seg != "" {
			out = append(out, seg)
		}
		last = loc[1]
	}
	if seg := strings.TrimSpace(raw[last:]); seg != "" {
		out = append(out, seg)
	}
	return out
}
