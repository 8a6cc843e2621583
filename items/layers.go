package items

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pslima001/govy-function-current-sub002/model"
	"github.com/pslima001/govy-function-current-sub002/pkg/textnorm"
	"github.com/pslima001/govy-function-current-sub002/tables"
)

// TableSource yields the tables one detector found in a document. No tables
// is an empty slice, not an error.
type TableSource interface {
	Tables(ctx context.Context, doc model.Document) ([]model.DetectedTable, error)
}

// TextSource yields the flat reading-order text of a document.
type TextSource interface {
	Text(ctx context.Context, doc model.Document) (string, error)
}

// PageTextSource is implemented by table sources that also know the text
// of each page, keyed by 1-based page number.
type PageTextSource interface {
	PageTexts(ctx context.Context, doc model.Document) (map[int]string, error)
}

// Strategy is one independent item extraction pass.
type Strategy interface {
	Candidates(ctx context.Context, doc model.Document) ([]model.ItemCandidate, error)
}

const headerSearchRows = 5

var bareNumber = regexp.MustCompile(`^\d{1,3}$`)

// TableLayer reads items from the tables of one TableSource.
type TableLayer struct {
	layer  model.Layer
	source TableSource
	cfg    Config
	repair *tables.Repairer
}

// NewTableLayer builds a table layer tagged with layer.
func NewTableLayer(layer model.Layer, source TableSource, cfg Config) (*TableLayer, error) {
	cfg = cfg.withDefaults()
	repair, err := tables.NewRepairer(cfg.Repair)
	if err != nil {
		return nil, err
	}
	return &TableLayer{layer: layer, source: source, cfg: cfg, repair: repair}, nil
}

type itemColumns struct {
	number, description, unit, quantity int
}

// Candidates returns one candidate per numbered item row, in table order.
// Rows without an item number between 1 and MaxNumber are skipped, as are
// tables on or after the proposal-model page. The numbers must then form
// the same 1, 2, ... run the text layer requires.
func (l *TableLayer) Candidates(ctx context.Context, doc model.Document) ([]model.ItemCandidate, error) {
	if l.source == nil {
		return nil, fmt.Errorf("%s: no table source: %w", l.layer, model.ErrProviderUnavailable)
	}
	detected, err := l.source.Tables(ctx, doc)
	if err != nil {
		return nil, err
	}
	limit := l.proposalPage(ctx, doc)

	var out []model.ItemCandidate
	for _, t := range detected {
		if limit > 0 && t.Page >= limit {
			continue
		}
		header, rows, ok := l.locateHeader(t)
		if !ok {
			continue
		}
		cols := l.columns(header)
		headerDesc := textnorm.Normalize(header[cols.description])

		pending := ""
		for _, row := range rows {
			if l.repair.IsFragmentRow(row) {
				pending += l.repair.FragmentText(row)
				continue
			}
			desc := l.repair.Prefix(pending, l.repair.Cell(header, row, cols.description))
			pending = ""
			if utf8.RuneCountInString(desc) < l.cfg.MinDescription || textnorm.Normalize(desc) == headerDesc {
				continue
			}
			n := l.anchor(row, cols)
			if n == 0 {
				continue
			}
			out = append(out, model.ItemCandidate{
				Number:      n,
				Description: desc,
				Quantity:    cell(row, cols.quantity),
				Unit:        cell(row, cols.unit),
				Layer:       l.layer,
				Position:    len(out),
			})
		}
	}

	if !l.cfg.SkipSequenceCheck {
		out = FilterSequence(out)
	}
	return out, nil
}

// proposalPage returns the first page holding a proposal marker, or 0 when
// the source has no page text or no page qualifies.
func (l *TableLayer) proposalPage(ctx context.Context, doc model.Document) int {
	pt, ok := l.source.(PageTextSource)
	if !ok {
		return 0
	}
	pages, err := pt.PageTexts(ctx, doc)
	if err != nil {
		return 0
	}
	return ProposalPage(pages, l.cfg.ProposalMarkers, l.cfg.CutoffMinFraction)
}

// ProposalPage returns the first page, past minFraction of the page count,
// whose text contains one of markers. It returns 0 when none does.
func ProposalPage(pages map[int]string, markers []string, minFraction float64) int {
	nums := make([]int, 0, len(pages))
	for n := range pages {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	from := min(int(float64(len(nums))*minFraction), len(nums))
	for _, n := range nums[from:] {
		if textnorm.ContainsAny(pages[n], markers) {
			return n
		}
	}
	return 0
}

// anchor returns the item number of row: the number column when the header
// names one, otherwise the first bare 1 to 3 digit cell.
func (l *TableLayer) anchor(row []string, cols itemColumns) int {
	if cols.number >= 0 {
		return l.number(cell(row, cols.number))
	}
	for i, c := range row {
		if i == cols.description {
			continue
		}
		if c = textnorm.Clean(c); bareNumber.MatchString(c) {
			if n := l.number(c); n > 0 {
				return n
			}
		}
	}
	return 0
}

// locateHeader uses the declared header when it names a description column,
// otherwise searches the first rows for one.
func (l *TableLayer) locateHeader(t model.DetectedTable) ([]string, [][]string, bool) {
	if len(t.Header) > 0 && tables.FindColumn(t.Header, l.cfg.Header.Description...) >= 0 {
		return t.Header, t.Rows, true
	}
	rows := t.Rows
	if len(t.Header) > 0 {
		rows = append([][]string{t.Header}, t.Rows...)
	}
	for i := 0; i < len(rows) && i < headerSearchRows; i++ {
		if tables.FindColumn(rows[i], l.cfg.Header.Description...) >= 0 {
			return rows[i], rows[i+1:], true
		}
	}
	return nil, nil, false
}

func (l *TableLayer) columns(header []string) itemColumns {
	cols := itemColumns{number: -1, description: -1, unit: -1, quantity: -1}
	used := make(map[int]bool)
	pick := func(match func(cell, term string) bool, terms []string) int {
		for i, h := range header {
			if used[i] {
				continue
			}
			n := textnorm.Normalize(h)
			for _, t := range terms {
				if t = textnorm.Normalize(t); t != "" && match(n, t) {
					used[i] = true
					return i
				}
			}
		}
		return -1
	}
	cols.number = pick(leadingWord, l.cfg.Header.Number)
	cols.description = pick(strings.Contains, l.cfg.Header.Description)
	cols.quantity = pick(strings.Contains, l.cfg.Header.Quantity)
	cols.unit = pick(strings.HasPrefix, l.cfg.Header.Unit)
	if cols.description < 0 {
		// locateHeader found a description cell; it was claimed as the number column.
		cols.description = cols.number
		cols.number = -1
	}
	return cols
}

func (l *TableLayer) number(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n < 1 || n > l.cfg.MaxNumber {
		return 0
	}
	return n
}

func leadingWord(cell, term string) bool {
	if !strings.HasPrefix(cell, term) {
		return false
	}
	next, _ := utf8.DecodeRuneInString(cell[len(term):])
	return len(cell) == len(term) || !unicode.IsLetter(next)
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return textnorm.Clean(row[i])
}

// TextLayer reads numbered item lines from flat text.
type TextLayer struct {
	source   TextSource
	cfg      Config
	patterns []*regexp.Regexp
}

// NewTextLayer compiles the configured line patterns. Each pattern must
// capture the item number and the description, in that order.
func NewTextLayer(source TextSource, cfg Config) (*TextLayer, error) {
	cfg = cfg.withDefaults()
	l := &TextLayer{source: source, cfg: cfg}
	for _, p := range cfg.TextPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid text pattern %q: %w", p, err)
		}
		if re.NumSubexp() < 2 {
			return nil, fmt.Errorf("text pattern %q must capture number and description", p)
		}
		l.patterns = append(l.patterns, re)
	}
	return l, nil
}

// Candidates scans item-like lines before the proposal model section.
func (l *TextLayer) Candidates(ctx context.Context, doc model.Document) ([]model.ItemCandidate, error) {
	if l.source == nil {
		return nil, fmt.Errorf("text: no text source: %w", model.ErrProviderUnavailable)
	}
	text, err := l.source.Text(ctx, doc)
	if err != nil {
		return nil, err
	}
	text = CutAtMarkers(text, l.cfg.ProposalMarkers, l.cfg.CutoffMinFraction)

	var out []model.ItemCandidate
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t\r")
		for _, re := range l.patterns {
			m := re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			n, err := strconv.Atoi(m[1])
			desc := textnorm.Clean(m[2])
			if err != nil || n < 1 || n > l.cfg.MaxNumber || utf8.RuneCountInString(desc) < l.cfg.MinDescription {
				continue
			}
			out = append(out, model.ItemCandidate{
				Number:      n,
				Description: desc,
				Layer:       model.TextLayer,
				Position:    len(out),
			})
			break
		}
	}

	if !l.cfg.SkipSequenceCheck {
		out = FilterSequence(out)
	}
	return out, nil
}

// CutAtMarkers truncates text at the first marker found past minFraction of
// its length. Earlier hits are usually a table of contents.
func CutAtMarkers(text string, markers []string, minFraction float64) string {
	if len(markers) == 0 || text == "" {
		return text
	}
	folded, offsets := textnorm.FoldOffsets(text)
	from := int(float64(len(folded)) * minFraction)
	cut := -1
	for _, m := range markers {
		m = textnorm.Normalize(m)
		if m == "" {
			continue
		}
		if i := strings.Index(folded[from:], m); i >= 0 && (cut < 0 || from+i < cut) {
			cut = from + i
		}
	}
	if cut < 0 {
		return text
	}
	return text[:offsets[cut]]
}

// FilterSequence keeps candidates whose numbers form a run starting at 1,
// tolerating single gaps. Without both 1 and 2 nothing is kept.
func FilterSequence(cands []model.ItemCandidate) []model.ItemCandidate {
	present := make(map[int]bool)
	maxN := 0
	for _, c := range cands {
		present[c.Number] = true
		if c.Number > maxN {
			maxN = c.Number
		}
	}
	if !present[1] || !present[2] {
		return nil
	}

	reachable := map[int]bool{1: true, 2: true}
	for n := 3; n <= maxN; n++ {
		if present[n] && (reachable[n-1] || reachable[n-2]) {
			reachable[n] = true
		}
	}

	out := make([]model.ItemCandidate, 0, len(cands))
	for _, c := range cands {
		if reachable[c.Number] {
			c.Position = len(out)
			out = append(out, c)
		}
	}
	return out
}
