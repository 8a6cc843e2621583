package extract

import (
	"sync"

	ahocorasick "github.com/cloudflare/ahocorasick"

	"github.com/pslima001/govy-function-current-sub002/pkg/textnorm"
)

// termSet matches a fixed dictionary of normalized terms in a single pass.
// The underlying matcher keeps per-call state, so Match is serialized.
type termSet struct {
	mu      sync.Mutex
	terms   []string
	matcher *ahocorasick.Matcher
}

func newTermSet(terms []string) *termSet {
	seen := make(map[string]struct{}, len(terms))
	normalized := make([]string, 0, len(terms))
	for _, t := range terms {
		n := textnorm.Normalize(t)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		normalized = append(normalized, n)
	}

	s := &termSet{terms: normalized}
	if len(normalized) > 0 {
		s.matcher = ahocorasick.NewStringMatcher(normalized)
	}
	return s
}

// hits returns the distinct terms found in normalized text.
func (s *termSet) hits(text string) map[string]struct{} {
	found := make(map[string]struct{})
	if s == nil || s.matcher == nil || text == "" {
		return found
	}

	s.mu.Lock()
	idx := s.matcher.Match([]byte(text))
	s.mu.Unlock()

	for _, i := range idx {
		if i >= 0 && i < len(s.terms) {
			found[s.terms[i]] = struct{}{}
		}
	}
	return found
}

// count returns how many distinct terms occur in normalized text.
func (s *termSet) count(text string) int {
	return len(s.hits(text))
}

func (s *termSet) size() int {
	if s == nil {
		return 0
	}
	return len(s.terms)
}
