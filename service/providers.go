package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pslima001/govy-function-current-sub002/items"
	"github.com/pslima001/govy-function-current-sub002/model"
	"github.com/pslima001/govy-function-current-sub002/pkg/logger"
	"github.com/pslima001/govy-function-current-sub002/pkg/textnorm"
)

// Table sources, as recorded in model.DetectedTable.Source.
const (
	SourceContentList = "content_list"
	SourceLayout      = "layout"
	SourceDocx        = "docx"
)

// LayoutSuffix replaces a document's extension to name its parsed layout.
const LayoutSuffix = "_parsed.json"

type contentBlock struct {
	Type         string   `json:"type"`
	Text         string   `json:"text"`
	TextLevel    int      `json:"text_level,omitempty"`
	PageIdx      int      `json:"page_idx"`
	TableBody    string   `json:"table_body,omitempty"`
	TableCaption []string `json:"table_caption,omitempty"`
}

// ContentListProvider serves text and tables from a stored MinerU content
// list.
type ContentListProvider struct {
	objects ObjectReader
}

func NewContentListProvider(objects ObjectReader) *ContentListProvider {
	return &ContentListProvider{objects: objects}
}

// ContentListKey names the stored content list for a document.
func ContentListKey(ref string) string {
	return ref + ContentListSuffix
}

func (p *ContentListProvider) blocks(ctx context.Context, doc model.Document) ([]contentBlock, error) {
	data, err := p.objects.GetObject(ctx, ContentListKey(doc.Ref))
	if err != nil {
		return nil, err
	}
	var blocks []contentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return nil, fmt.Errorf("content list %s: %w", doc.Ref, err)
	}
	return blocks, nil
}

// Text joins text blocks in reading order, one paragraph per block. Table
// rows are rendered as lines with cells separated by spaces.
func (p *ContentListProvider) Text(ctx context.Context, doc model.Document) (string, error) {
	blocks, err := p.blocks(ctx, doc)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, blk := range blocks {
		switch blk.Type {
		case "text", "title", "list":
			if strings.TrimSpace(blk.Text) == "" {
				continue
			}
			b.WriteString(blk.Text)
			b.WriteString("\n\n")
		case "table":
			rows, err := ParseHTMLTable(blk.TableBody)
			if err != nil {
				continue
			}
			for _, row := range rows {
				b.WriteString(strings.Join(row, " "))
				b.WriteByte('\n')
			}
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

// PageTexts groups the text blocks by 1-based page number.
func (p *ContentListProvider) PageTexts(ctx context.Context, doc model.Document) (map[int]string, error) {
	blocks, err := p.blocks(ctx, doc)
	if err != nil {
		return nil, err
	}
	pages := make(map[int]string)
	for _, blk := range blocks {
		page := blk.PageIdx + 1
		if _, ok := pages[page]; !ok {
			pages[page] = ""
		}
		switch blk.Type {
		case "text", "title", "list":
			pages[page] += blk.Text + "\n"
		}
	}
	return pages, nil
}

// Tables parses every table block. The first row is the header.
func (p *ContentListProvider) Tables(ctx context.Context, doc model.Document) ([]model.DetectedTable, error) {
	blocks, err := p.blocks(ctx, doc)
	if err != nil {
		return nil, err
	}
	out := make([]model.DetectedTable, 0)
	for _, blk := range blocks {
		if blk.Type != "table" || blk.TableBody == "" {
			continue
		}
		rows, err := ParseHTMLTable(blk.TableBody)
		if err != nil {
			logger.Warn(ctx, "skipping unreadable table", "document_ref", doc.Ref, "page", blk.PageIdx+1, "error", err)
			continue
		}
		if len(rows) == 0 {
			continue
		}
		out = append(out, model.DetectedTable{
			Source: SourceContentList,
			Page:   blk.PageIdx + 1,
			Index:  len(out),
			Header: rows[0],
			Rows:   rows[1:],
		})
	}
	return out, nil
}

// ParseHTMLTable reads the rows of an HTML table. Cells spanning several
// columns are followed by empty cells so columns stay aligned.
func ParseHTMLTable(html string) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse table html: %w", err)
	}
	var rows [][]string
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var row []string
		tr.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			row = append(row, textnorm.CollapseSpaces(cell.Text()))
			if span, err := strconv.Atoi(cell.AttrOr("colspan", "1")); err == nil {
				for i := 1; i < span && i < 50; i++ {
					row = append(row, "")
				}
			}
		})
		if len(row) > 0 {
			rows = append(rows, row)
		}
	})
	return rows, nil
}

type layoutCell struct {
	Row  int    `json:"row"`
	Col  int    `json:"col"`
	Text string `json:"text"`
}

type layoutTable struct {
	TableIndex int          `json:"table_index"`
	PageNumber int          `json:"page_number,omitempty"`
	Cells      []layoutCell `json:"cells"`
}

type layoutDocument struct {
	Text         string        `json:"texto_completo"`
	ContentClean string        `json:"content_clean"`
	ContentRaw   string        `json:"content_raw"`
	Tables       []layoutTable `json:"tables_norm"`
}

// LayoutProvider serves the parsed layout JSON produced by a document
// intelligence pass, stored next to the document.
type LayoutProvider struct {
	objects ObjectReader
}

func NewLayoutProvider(objects ObjectReader) *LayoutProvider {
	return &LayoutProvider{objects: objects}
}

// LayoutKey names the parsed layout for a document.
func LayoutKey(ref string) string {
	return strings.TrimSuffix(ref, path.Ext(ref)) + LayoutSuffix
}

func (p *LayoutProvider) load(ctx context.Context, doc model.Document) (*layoutDocument, error) {
	data, err := p.objects.GetObject(ctx, LayoutKey(doc.Ref))
	if err != nil {
		return nil, err
	}
	return ParseLayout(data)
}

// ParseLayout decodes a parsed layout document.
func ParseLayout(data []byte) (*layoutDocument, error) {
	var d layoutDocument
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	return &d, nil
}

func (d *layoutDocument) text() string {
	switch {
	case d.Text != "":
		return d.Text
	case d.ContentClean != "":
		return d.ContentClean
	}
	return d.ContentRaw
}

func (d *layoutDocument) tables(ctx context.Context) []model.DetectedTable {
	out := make([]model.DetectedTable, 0, len(d.Tables))
	for _, t := range d.Tables {
		rows, err := cellGrid(t.Cells)
		if err != nil {
			logger.Warn(ctx, "skipping oversized layout table", "table_index", t.TableIndex, "page", t.PageNumber, "error", err)
			continue
		}
		if len(rows) == 0 {
			continue
		}
		out = append(out, model.DetectedTable{
			Source: SourceLayout,
			Page:   t.PageNumber,
			Index:  t.TableIndex,
			Header: rows[0],
			Rows:   rows[1:],
		})
	}
	return out
}

func (p *LayoutProvider) Text(ctx context.Context, doc model.Document) (string, error) {
	d, err := p.load(ctx, doc)
	if err != nil {
		return "", err
	}
	return d.text(), nil
}

func (p *LayoutProvider) Tables(ctx context.Context, doc model.Document) ([]model.DetectedTable, error) {
	d, err := p.load(ctx, doc)
	if err != nil {
		return nil, err
	}
	return d.tables(ctx), nil
}

// Layout grid bounds. Tables with cells beyond them are skipped.
const (
	maxLayoutRows = 5000
	maxLayoutCols = 100
)

// cellGrid turns sparse (row, col) cells into dense rows. It fails when a
// cell lies outside the layout grid bounds.
func cellGrid(cells []layoutCell) ([][]string, error) {
	if len(cells) == 0 {
		return nil, nil
	}
	maxRow, maxCol := 0, 0
	for _, c := range cells {
		if c.Row < 0 || c.Col < 0 {
			continue
		}
		if c.Row >= maxLayoutRows || c.Col >= maxLayoutCols {
			return nil, fmt.Errorf("cell (%d, %d) outside %dx%d grid", c.Row, c.Col, maxLayoutRows, maxLayoutCols)
		}
		maxRow = max(maxRow, c.Row)
		maxCol = max(maxCol, c.Col)
	}
	grid := make([][]string, maxRow+1)
	for i := range grid {
		grid[i] = make([]string, maxCol+1)
	}
	for _, c := range cells {
		if c.Row < 0 || c.Col < 0 {
			continue
		}
		grid[c.Row][c.Col] = textnorm.CollapseSpaces(c.Text)
	}
	return grid, nil
}

// TextChain returns the text of the first source that yields any.
type TextChain []items.TextSource

func (c TextChain) Text(ctx context.Context, doc model.Document) (string, error) {
	var errs []error
	answered := false
	for _, src := range c {
		if src == nil {
			continue
		}
		text, err := src.Text(ctx, doc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		answered = true
		if strings.TrimSpace(text) != "" {
			return text, nil
		}
	}
	if !answered {
		if len(errs) == 0 {
			return "", fmt.Errorf("no text source for %s: %w", doc.Ref, model.ErrProviderUnavailable)
		}
		return "", fmt.Errorf("no text source for %s: %w", doc.Ref, errors.Join(errs...))
	}
	return "", nil
}
