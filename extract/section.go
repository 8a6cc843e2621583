package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pslima001/govy-function-current-sub002/model"
	"github.com/pslima001/govy-function-current-sub002/pkg/textnorm"
)

// SectionRule locates a heading-delimited passage, such as the contract object.
// Headings are regular expressions over folded (lower-case, accent-free) text.
type SectionRule struct {
	ID           string   `yaml:"id" json:"id"`
	Label        string   `yaml:"label" json:"label"`
	Headings     []string `yaml:"headings" json:"headings"`
	StopMarkers  []string `yaml:"stop_markers" json:"stop_markers"`
	BonusTerms   []string `yaml:"bonus_terms" json:"bonus_terms"`
	BaseScore    int      `yaml:"base_score,omitempty" json:"base_score,omitempty"`
	HeadingBonus int      `yaml:"heading_bonus,omitempty" json:"heading_bonus,omitempty"`
	TermBonus    int      `yaml:"term_bonus,omitempty" json:"term_bonus,omitempty"`
	MinLength    int      `yaml:"min_length,omitempty" json:"min_length,omitempty"`
	MaxLength    int      `yaml:"max_length,omitempty" json:"max_length,omitempty"`
	MaxEvidence  int      `yaml:"max_evidence,omitempty" json:"max_evidence,omitempty"`
}

var (
	blankLine   = regexp.MustCompile(`\n[ \t]*\n`)
	lineLeader  = regexp.MustCompile(`^[\s\d.\-)–]*$`)
	leadingTrim = " \t\r\n:-–.)"
)

// Section is a compiled SectionRule.
type Section struct {
	rule     SectionRule
	headings []*regexp.Regexp
	stop     *regexp.Regexp
	bonus    *termSet
}

// NewSection compiles rule.
func NewSection(rule SectionRule) (*Section, error) {
	if rule.ID == "" {
		return nil, fmt.Errorf("section rule: missing id")
	}
	if len(rule.Headings) == 0 {
		return nil, fmt.Errorf("section rule %s: no headings", rule.ID)
	}
	if rule.BaseScore == 0 {
		rule.BaseScore = 10
	}
	if rule.HeadingBonus == 0 {
		rule.HeadingBonus = 3
	}
	if rule.TermBonus == 0 {
		rule.TermBonus = 2
	}
	if rule.MinLength == 0 {
		rule.MinLength = 40
	}
	if rule.MaxLength == 0 {
		rule.MaxLength = 700
	}
	if rule.MaxEvidence == 0 {
		rule.MaxEvidence = 500
	}

	s := &Section{rule: rule, bonus: newTermSet(rule.BonusTerms)}
	for _, h := range rule.Headings {
		re, err := regexp.Compile(h)
		if err != nil {
			return nil, fmt.Errorf("section rule %s: invalid heading %q: %w", rule.ID, h, err)
		}
		s.headings = append(s.headings, re)
	}

	if len(rule.StopMarkers) > 0 {
		quoted := make([]string, 0, len(rule.StopMarkers))
		for _, m := range rule.StopMarkers {
			if n := textnorm.Normalize(m); n != "" {
				quoted = append(quoted, strings.ReplaceAll(regexp.QuoteMeta(n), " ", `\s+`))
			}
		}
		s.stop = regexp.MustCompile(`(?m)^[ \t]*(?:\d+(?:\.\d+)*[ \t]*[.\-)–]?[ \t]*)?(?:` + strings.Join(quoted, "|") + `)\b`)
	}
	return s, nil
}

// ID returns the parameter id.
func (s *Section) ID() string { return s.rule.ID }

// Label returns the human-readable parameter name.
func (s *Section) Label() string { return s.rule.Label }

// Extract returns the best-scoring section body following a heading.
func (s *Section) Extract(raw string) model.ExtractResult {
	folded, offsets := textnorm.FoldOffsets(raw)

	best := model.NotFound()
	for _, re := range s.headings {
		for _, loc := range re.FindAllStringIndex(folded, -1) {
			value, evidence, score, ok := s.body(raw, folded, offsets, loc[0], loc[1])
			if !ok {
				continue
			}
			if !best.IsFound() || score > best.Score {
				best = model.Found(value, evidence, score)
			}
		}
	}
	return best
}

func (s *Section) body(raw, folded string, offsets []int, hStart, hEnd int) (string, string, int, bool) {
	start := hEnd
	for start < len(folded) {
		r, size := utf8.DecodeRuneInString(folded[start:])
		if !strings.ContainsRune(leadingTrim, r) {
			break
		}
		start += size
	}
	if start >= len(folded) {
		return "", "", 0, false
	}

	rest := folded[start:]
	end := len(rest)
	if loc := blankLine.FindStringIndex(rest); loc != nil && loc[0] < end {
		end = loc[0]
	}
	if s.stop != nil {
		if loc := s.stop.FindStringIndex(rest); loc != nil && loc[0] < end {
			end = loc[0]
		}
	}

	value := textnorm.Clean(raw[offsets[start]:offsets[start+end]])
	value = cutWords(value, s.rule.MaxLength)
	if utf8.RuneCountInString(value) < s.rule.MinLength {
		return "", "", 0, false
	}

	score := s.rule.BaseScore + s.rule.TermBonus*s.bonus.count(textnorm.Normalize(rest[:end]))
	lineStart := strings.LastIndexByte(folded[:hStart], '\n') + 1
	if lineLeader.MatchString(folded[lineStart:hStart]) {
		score += s.rule.HeadingBonus
	}

	evidence := textnorm.Truncate(textnorm.Clean(raw[offsets[hStart]:offsets[start+end]]), s.rule.MaxEvidence)
	return value, evidence, score, true
}

// cutWords trims s to at most n runes, backing off to the last word break.
func cutWords(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	head := string([]rune(s)[:n])
	if i := strings.LastIndexFunc(head, unicode.IsSpace); i > len(head)/2 {
		return strings.TrimSpace(head[:i])
	}
	return strings.TrimSpace(head)
}
