// Package textnorm canonicalizes extracted document text for matching.
//
// Normalized text is only ever used for comparisons. Values and evidence
// shown to users come from the original text, passed through Clean.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Ellipsis marks truncated evidence.
const Ellipsis = "..."

// Normalize folds accents, lower-cases and collapses whitespace.
// It never fails; empty input yields "".
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	return CollapseSpaces(Fold(s))
}

// Fold strips diacritics and lower-cases s, leaving whitespace untouched.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}
	return strings.ToLower(result)
}

// FoldOffsets folds s like Fold and also returns, for every byte of the
// folded string plus one trailing entry, the byte offset in s it came from.
func FoldOffsets(s string) (string, []int) {
	var b strings.Builder
	b.Grow(len(s))
	offsets := make([]int, 0, len(s)+1)
	for i, r := range s {
		var f string
		if r < utf8.RuneSelf {
			f = string(unicode.ToLower(r))
		} else {
			f = Fold(string(r))
		}
		for j := 0; j < len(f); j++ {
			offsets = append(offsets, i)
		}
		b.WriteString(f)
	}
	offsets = append(offsets, len(s))
	return b.String(), offsets
}

// CollapseSpaces replaces every whitespace run with a single space and trims.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Clean prepares original text for display: control characters and
// replacement runes become spaces, whitespace is collapsed. Case and
// accents are kept.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	mapped := strings.Map(func(r rune) rune {
		if r == utf8.RuneError || (unicode.IsControl(r) && !unicode.IsSpace(r)) {
			return ' '
		}
		return r
	}, s)
	return CollapseSpaces(mapped)
}

// Truncate cuts s to at most n runes, appending Ellipsis when cut.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimRightFunc(string(r[:n]), unicode.IsSpace) + Ellipsis
}

// Tokens returns the distinct normalized word tokens of s.
func Tokens(s string) map[string]struct{} {
	fields := strings.FieldsFunc(Normalize(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Jaccard returns the token-set similarity of a and b in [0, 1].
func Jaccard(a, b string) float64 {
	ta, tb := Tokens(a), Tokens(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	inter := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

// ContainsAny reports whether normalized s contains any of the normalized terms.
func ContainsAny(s string, terms []string) bool {
	n := Normalize(s)
	for _, t := range terms {
		if t = Normalize(t); t != "" && strings.Contains(n, t) {
			return true
		}
	}
	return false
}
