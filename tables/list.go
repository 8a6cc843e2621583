package tables

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/pslima001/govy-function-current-sub002/model"
	"github.com/pslima001/govy-function-current-sub002/pkg/textnorm"
)

// ListRule configures a table-backed list parameter.
type ListRule struct {
	ID        string     `yaml:"id" json:"id"`
	Label     string     `yaml:"label" json:"label"`
	Required  []string   `yaml:"required" json:"required"`
	Columns   []string   `yaml:"columns" json:"columns"`
	Reject    []string   `yaml:"reject,omitempty" json:"reject,omitempty"`
	MinLength int        `yaml:"min_length,omitempty" json:"min_length,omitempty"`
	Repair    RepairRule `yaml:"repair,omitempty" json:"repair,omitempty"`
}

// ListExtractor pulls one value per data row out of relevant tables.
type ListExtractor struct {
	rule   ListRule
	repair *Repairer
}

// NewListExtractor validates and compiles rule.
func NewListExtractor(rule ListRule) (*ListExtractor, error) {
	if rule.ID == "" {
		return nil, fmt.Errorf("list rule: missing id")
	}
	if len(rule.Columns) == 0 {
		rule.Columns = rule.Required
	}
	if len(rule.Columns) == 0 {
		return nil, fmt.Errorf("list rule %s: no target columns", rule.ID)
	}
	repair, err := NewRepairer(rule.Repair)
	if err != nil {
		return nil, fmt.Errorf("list rule %s: %w", rule.ID, err)
	}
	return &ListExtractor{rule: rule, repair: repair}, nil
}

// ID returns the parameter id.
func (x *ListExtractor) ID() string { return x.rule.ID }

// Label returns the human-readable parameter name.
func (x *ListExtractor) Label() string { return x.rule.Label }

// Relevant classifies tables against the rule's required header terms.
func (x *ListExtractor) Relevant(tables []model.DetectedTable) []model.DetectedTable {
	return Classify(tables, x.rule.Required)
}

// ClassifyAndExtract runs classification and extraction as two separate phases.
func (x *ListExtractor) ClassifyAndExtract(tables []model.DetectedTable, maxValues int) model.ExtractResultList {
	return x.Extract(x.Relevant(tables), maxValues)
}

// Extract reads the target column(s) of already classified tables. Values
// are deduplicated ignoring case and accents, in first-seen order, and
// capped at maxValues when positive. It never fails.
func (x *ListExtractor) Extract(tables []model.DetectedTable, maxValues int) model.ExtractResultList {
	result := model.EmptyList()
	seen := make(map[string]struct{})
	var evidence []string
	best := 0

	for _, t := range tables {
		header := t.HeaderRow()
		cols := x.columns(header)
		if len(cols) == 0 {
			continue
		}

		added := 0
		pending := ""
		for _, row := range t.DataRows() {
			if maxValues > 0 && len(result.Values) >= maxValues {
				break
			}
			if x.repair.IsFragmentRow(row) {
				pending += x.repair.FragmentText(row)
				continue
			}
			value := x.rowValue(header, row, cols)
			if value == "" {
				continue
			}
			value = x.repair.Prefix(pending, value)
			pending = ""

			if !x.accept(value) {
				continue
			}
			key := textnorm.Normalize(value)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			result.Values = append(result.Values, value)
			added++
		}

		if added > 0 {
			evidence = append(evidence, tableLabel(t, header))
			if s := x.score(header); s > best {
				best = s
			}
		}
		if maxValues > 0 && len(result.Values) >= maxValues {
			break
		}
	}

	if len(result.Values) == 0 {
		return model.EmptyList()
	}
	result.Evidence = strings.Join(evidence, "\n")
	result.Score = best
	return result
}

func (x *ListExtractor) columns(header []string) []int {
	var cols []int
	for _, term := range x.rule.Columns {
		if c := FindColumn(header, term); c >= 0 {
			cols = append(cols, c)
		}
	}
	return cols
}

func (x *ListExtractor) rowValue(header, row []string, cols []int) string {
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		if v := x.repair.Cell(header, row, c); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " - ")
}

func (x *ListExtractor) accept(value string) bool {
	if x.rule.MinLength > 0 && utf8.RuneCountInString(value) < x.rule.MinLength {
		return false
	}
	return len(x.rule.Reject) == 0 || !textnorm.ContainsAny(value, x.rule.Reject)
}

// score is 100 when every required term names a header cell exactly and
// 50 when all only match as substrings.
func (x *ListExtractor) score(header []string) int {
	terms := x.rule.Required
	if len(terms) == 0 {
		terms = x.rule.Columns
	}
	m := MatchHeader(header, terms)
	return int(math.Round(100 * float64(m.Points()) / float64(10*len(terms))))
}

func tableLabel(t model.DetectedTable, header []string) string {
	labels := make([]string, 0, len(header))
	for _, h := range header {
		if c := textnorm.Clean(h); c != "" {
			labels = append(labels, c)
		}
	}
	return fmt.Sprintf("Tabela p%d#%d: %s", t.Page, t.Index, strings.Join(labels, " | "))
}
