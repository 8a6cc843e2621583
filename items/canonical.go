package items

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pslima001/govy-function-current-sub002/pkg/textnorm"
)

const trailingNoise = " .,;:-–()/"

// Canonicalizer maps item descriptions to grouping keys.
type Canonicalizer struct {
	suffix *regexp.Regexp
}

// NewCanonicalizer compiles the dosage/size suffix pattern. The pattern is
// applied to normalized text and everything it matches is removed.
func NewCanonicalizer(suffixPattern string) (*Canonicalizer, error) {
	re, err := regexp.Compile(suffixPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid suffix pattern: %w", err)
	}
	return &Canonicalizer{suffix: re}, nil
}

// Key returns the base-name key, so "PARACETAMOL 500MG" and "Paracetamol"
// share one. Falls back to the full normalized text if stripping empties it.
func (c *Canonicalizer) Key(description string) string {
	n := textnorm.Normalize(description)
	if n == "" {
		return ""
	}
	stripped := strings.TrimRight(c.suffix.ReplaceAllString(n, ""), trailingNoise)
	if stripped == "" {
		return strings.TrimRight(n, trailingNoise)
	}
	return stripped
}
