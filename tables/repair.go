package tables

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/pslima001/govy-function-current-sub002/pkg/textnorm"
)

// DefaultFragmentPattern matches a lone letter optionally followed by stray
// punctuation, such as "A(" left behind by a column split.
const DefaultFragmentPattern = `^\p{L}\p{P}*$`

var punctuationOnly = regexp.MustCompile(`^\p{P}+$`)

// RepairRule configures how split cells are rejoined.
type RepairRule struct {
	Fragment string `yaml:"fragment,omitempty" json:"fragment,omitempty"`
	Join     string `yaml:"join,omitempty" json:"join,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty" json:"disabled,omitempty"`
}

// Repairer rejoins name fragments that a table detector split across cells.
type Repairer struct {
	fragment *regexp.Regexp
	join     string
	disabled bool
}

// NewRepairer compiles rule.
func NewRepairer(rule RepairRule) (*Repairer, error) {
	pattern := rule.Fragment
	if pattern == "" {
		pattern = DefaultFragmentPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid fragment pattern %q: %w", pattern, err)
	}
	return &Repairer{fragment: re, join: rule.Join, disabled: rule.Disabled}, nil
}

func squeeze(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// IsFragment reports whether cell, ignoring whitespace, is a split fragment.
func (r *Repairer) IsFragment(cell string) bool {
	if r.disabled {
		return false
	}
	s := squeeze(cell)
	return s != "" && r.fragment.MatchString(s)
}

// IsFragmentRow reports whether every non-empty cell of row is a fragment
// or bare punctuation, with at least one fragment present.
func (r *Repairer) IsFragmentRow(row []string) bool {
	if r.disabled {
		return false
	}
	fragments := 0
	for _, c := range row {
		s := squeeze(c)
		switch {
		case s == "":
		case r.fragment.MatchString(s):
			fragments++
		case punctuationOnly.MatchString(s):
		default:
			return false
		}
	}
	return fragments > 0
}

// FragmentText concatenates the squeezed cells of a fragment row.
func (r *Repairer) FragmentText(row []string) string {
	var b strings.Builder
	for _, c := range row {
		b.WriteString(squeeze(c))
	}
	return b.String()
}

// Cell returns the cleaned value of row[col], merged with a neighbouring
// cell when one side is a fragment and the other starts with a letter. The
// neighbour must sit under an empty header cell or one carrying the same
// label as header[col]; a distinct column is never merged.
func (r *Repairer) Cell(header, row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	cell := textnorm.Clean(row[col])
	if r.disabled {
		return cell
	}
	if r.IsFragment(cell) && col+1 < len(row) && splitColumn(header, col, col+1) {
		if next := textnorm.Clean(row[col+1]); startsWithLetter(next) {
			return squeeze(cell) + r.join + next
		}
	}
	if col > 0 && startsWithLetter(cell) && !r.IsFragment(cell) && splitColumn(header, col, col-1) {
		if prev := row[col-1]; r.IsFragment(prev) {
			return squeeze(prev) + r.join + cell
		}
	}
	return cell
}

// splitColumn reports whether column other looks like the spill-over of
// column col rather than a column of its own.
func splitColumn(header []string, col, other int) bool {
	if other < 0 || other >= len(header) {
		return true
	}
	label := textnorm.Normalize(header[other])
	if label == "" {
		return true
	}
	return col < len(header) && label == textnorm.Normalize(header[col])
}

// Prefix joins a pending fragment onto value.
func (r *Repairer) Prefix(fragment, value string) string {
	if fragment == "" || value == "" {
		return value
	}
	return fragment + r.join + value
}

func startsWithLetter(s string) bool {
	for _, c := range s {
		return unicode.IsLetter(c)
	}
	return false
}
