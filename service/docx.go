package service

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/pslima001/govy-function-current-sub002/model"
	"github.com/pslima001/govy-function-current-sub002/pkg/textnorm"
)

const docxBody = "word/document.xml"

// DocxProvider reads text and tables straight from a .docx object.
type DocxProvider struct {
	objects ObjectReader
}

func NewDocxProvider(objects ObjectReader) *DocxProvider {
	return &DocxProvider{objects: objects}
}

// IsDocx reports whether ref names a Word document.
func IsDocx(ref string) bool {
	return strings.EqualFold(path.Ext(ref), ".docx")
}

type docxContent struct {
	text   string
	tables [][][]string
}

func (p *DocxProvider) load(ctx context.Context, doc model.Document) (*docxContent, error) {
	if !IsDocx(doc.Ref) {
		return nil, fmt.Errorf("%s is not a docx document: %w", doc.Ref, model.ErrProviderUnavailable)
	}
	data, err := p.objects.GetObject(ctx, doc.Ref)
	if err != nil {
		return nil, err
	}
	return ParseDocx(data)
}

func (p *DocxProvider) Text(ctx context.Context, doc model.Document) (string, error) {
	c, err := p.load(ctx, doc)
	if err != nil {
		return "", err
	}
	return c.text, nil
}

func (p *DocxProvider) Tables(ctx context.Context, doc model.Document) ([]model.DetectedTable, error) {
	c, err := p.load(ctx, doc)
	if err != nil {
		return nil, err
	}
	out := make([]model.DetectedTable, 0, len(c.tables))
	for i, rows := range c.tables {
		out = append(out, model.DetectedTable{
			Source: SourceDocx,
			Index:  i,
			Header: rows[0],
			Rows:   rows[1:],
		})
	}
	return out, nil
}

// ParseDocx walks word/document.xml once. Paragraphs outside tables become
// text; top-level tables become rows of cells and are also rendered into the
// text, one line per row. Nested tables are flattened into their cell.
func ParseDocx(data []byte) (*docxContent, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBody {
			body = f
			break
		}
	}
	if body == nil {
		return nil, errors.New("docx has no " + docxBody)
	}
	rc, err := body.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", docxBody, err)
	}
	defer rc.Close()

	var (
		out    docxContent
		text   strings.Builder
		para   strings.Builder
		inText bool
		depth  int
		table  [][]string
		row    []string
		cell   []string
		span   int
	)
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", docxBody, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				depth++
				if depth == 1 {
					table = nil
				}
			case "tr":
				if depth == 1 {
					row = nil
				}
			case "tc":
				if depth == 1 {
					cell, span = nil, 1
				}
			case "gridSpan":
				if depth == 1 {
					span = attrInt(t, "val", 1)
				}
			case "p":
				para.Reset()
			case "t":
				inText = true
			case "tab", "br", "cr":
				para.WriteByte(' ')
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				line := textnorm.CollapseSpaces(para.String())
				if line == "" {
					continue
				}
				if depth > 0 {
					cell = append(cell, line)
				} else {
					text.WriteString(line)
					text.WriteString("\n\n")
				}
			case "tc":
				if depth == 1 {
					row = append(row, strings.Join(cell, " "))
					for i := 1; i < span && i < 50; i++ {
						row = append(row, "")
					}
				}
			case "tr":
				if depth == 1 && len(row) > 0 {
					table = append(table, row)
					text.WriteString(strings.Join(row, " "))
					text.WriteByte('\n')
				}
			case "tbl":
				if depth == 1 && len(table) > 0 {
					out.tables = append(out.tables, table)
					text.WriteByte('\n')
				}
				depth--
			}
		}
	}
	out.text = text.String()
	return &out, nil
}

func attrInt(el xml.StartElement, name string, fallback int) int {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			if n, err := strconv.Atoi(a.Value); err == nil && n > 0 {
				return n
			}
		}
	}
	return fallback
}
