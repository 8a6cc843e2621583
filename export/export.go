// Package export caps long value lists for inline display and writes the
// complete list to a sink when the cap is exceeded.
package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pslima001/govy-function-current-sub002/model"
)

// Sink stores an exported file and returns where it can be found.
type Sink interface {
	Write(ctx context.Context, name string, content []byte) (string, error)
}

// Encoder renders a full value list as a file.
type Encoder interface {
	Encode(values []string) ([]byte, error)
	Ext() string
}

// WithCap returns the first cap values. When there are more, the full list is
// encoded and written to sink as prefix+"_all"+ext. A failed write still
// returns the capped values, with FilePath nil, alongside the error.
func WithCap(ctx context.Context, values []string, limit int, sink Sink, prefix string, enc Encoder) (model.ExportResult, error) {
	res := model.ExportResult{Total: len(values), Shown: values}
	if limit <= 0 || len(values) <= limit {
		if res.Shown == nil {
			res.Shown = []string{}
		}
		return res, nil
	}
	res.Shown = values[:limit:limit]

	if sink == nil {
		return res, fmt.Errorf("export %s: no sink configured", prefix)
	}
	if enc == nil {
		enc = TextEncoder{}
	}
	content, err := enc.Encode(values)
	if err != nil {
		return res, fmt.Errorf("encode %s: %w", prefix, err)
	}
	locator, err := sink.Write(ctx, prefix+"_all"+enc.Ext(), content)
	if err != nil {
		return res, fmt.Errorf("write %s: %w", prefix, err)
	}
	res.FilePath = &locator
	return res, nil
}

// EncoderFor returns the encoder for a configured format name.
func EncoderFor(format string) (Encoder, error) {
	switch strings.ToLower(format) {
	case "", "txt", "text":
		return TextEncoder{}, nil
	case "xlsx":
		return XLSXEncoder{}, nil
	}
	return nil, fmt.Errorf("unknown export format %q", format)
}

// TextEncoder writes one value per line.
type TextEncoder struct{}

func (TextEncoder) Encode(values []string) ([]byte, error) {
	return []byte(strings.Join(values, "\n") + "\n"), nil
}

func (TextEncoder) Ext() string { return ".txt" }

// XLSXEncoder writes a single-column workbook.
type XLSXEncoder struct {
	Sheet  string
	Header string
}

func (e XLSXEncoder) Encode(values []string) ([]byte, error) {
	sheet := e.Sheet
	if sheet == "" {
		sheet = "Valores"
	}
	header := e.Header
	if header == "" {
		header = "valor"
	}

	f := excelize.NewFile()
	defer f.Close()
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if sheet != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	if err := f.SetCellValue(sheet, "A1", header); err != nil {
		return nil, err
	}
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 80)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func (XLSXEncoder) Ext() string { return ".xlsx" }

// DirSink writes files under a local directory.
type DirSink struct {
	Dir string
}

func (s DirSink) Write(_ context.Context, name string, content []byte) (string, error) {
	path := filepath.Join(s.Dir, filepath.FromSlash(name))
	if rel, err := filepath.Rel(s.Dir, path); err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("export name %q escapes %s", name, s.Dir)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// MemorySink keeps written files in memory.
type MemorySink struct {
	Files map[string][]byte
}

func (s *MemorySink) Write(_ context.Context, name string, content []byte) (string, error) {
	if s.Files == nil {
		s.Files = make(map[string][]byte)
	}
	s.Files[name] = bytes.Clone(content)
	return "mem://" + name, nil
}
