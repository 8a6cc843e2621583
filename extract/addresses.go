package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pslima001/govy-function-current-sub002/model"
	"github.com/pslima001/govy-function-current-sub002/pkg/textnorm"
)

// AddressRule configures the free-text location fallback used when no
// location table is found.
type AddressRule struct {
	Triggers  []string `yaml:"triggers" json:"triggers"`
	Reject    []string `yaml:"reject" json:"reject"`
	Before    int      `yaml:"before,omitempty" json:"before,omitempty"`
	After     int      `yaml:"after,omitempty" json:"after,omitempty"`
	MinLength int      `yaml:"min_length,omitempty" json:"min_length,omitempty"`
}

var (
	streetPattern = regexp.MustCompile(`(?i)\b(?:rua|r\.|av\.?|avenida|rodovia|rod\.|estrada|travessa|tv\.|pra[çc]a|alameda|al\.)\s+[^\n;]{10,220}`)
	addressMarker = regexp.MustCompile(`\d|\bkm\b|\bs/n`)
)

// Addresses extracts street addresses near delivery trigger phrases.
type Addresses struct {
	rule     AddressRule
	triggers *termSet
	reject   *termSet
}

// NewAddresses compiles rule.
func NewAddresses(rule AddressRule) (*Addresses, error) {
	if len(rule.Triggers) == 0 {
		return nil, fmt.Errorf("address rule: no triggers")
	}
	if rule.Before == 0 {
		rule.Before = 8
	}
	if rule.After == 0 {
		rule.After = 12
	}
	if rule.MinLength == 0 {
		rule.MinLength = 20
	}
	return &Addresses{
		rule:     rule,
		triggers: newTermSet(rule.Triggers),
		reject:   newTermSet(rule.Reject),
	}, nil
}

// Extract returns up to limit distinct addresses in document order.
func (a *Addresses) Extract(raw string, limit int) model.ExtractResultList {
	lines := strings.Split(raw, "\n")
	normalized := make([]string, len(lines))
	for i, l := range lines {
		normalized[i] = textnorm.Normalize(l)
	}

	result := model.EmptyList()
	seen := make(map[string]struct{})
	visited := make([]bool, len(lines))
	evidence := ""

	for i := range lines {
		if a.triggers.count(normalized[i]) == 0 {
			continue
		}
		lo, hi := i-a.rule.Before, i+a.rule.After
		if lo < 0 {
			lo = 0
		}
		if hi >= len(lines) {
			hi = len(lines) - 1
		}

		for j := lo; j <= hi; j++ {
			if visited[j] {
				continue
			}
			visited[j] = true
			for _, m := range streetPattern.FindAllString(lines[j], -1) {
				addr := strings.TrimRight(textnorm.Clean(m), " .,-")
				if !a.accept(addr) {
					continue
				}
				key := textnorm.Normalize(addr)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				result.Values = append(result.Values, addr)
				if evidence == "" {
					evidence = textnorm.Truncate(textnorm.Clean(lines[i]), DefaultMaxEvidence)
				}
				if limit > 0 && len(result.Values) >= limit {
					return a.finish(result, evidence)
				}
			}
		}
	}
	return a.finish(result, evidence)
}

func (a *Addresses) accept(addr string) bool {
	if utf8.RuneCountInString(addr) < a.rule.MinLength {
		return false
	}
	n := textnorm.Normalize(addr)
	if !addressMarker.MatchString(n) {
		return false
	}
	return a.reject.count(n) == 0
}

func (a *Addresses) finish(r model.ExtractResultList, evidence string) model.ExtractResultList {
	if len(r.Values) == 0 {
		return model.EmptyList()
	}
	r.Evidence = evidence
	r.Score = 5 + min(10, 2*len(r.Values))
	return r
}
