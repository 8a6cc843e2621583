package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pslima001/govy-function-current-sub002/model"
)

const sampleDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>TERMO DE</w:t></w:r><w:r><w:t xml:space="preserve"> REFERÊNCIA</w:t></w:r></w:p>
    <w:p></w:p>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Item</w:t></w:r></w:p></w:tc>
        <w:tc><w:tcPr><w:gridSpan w:val="2"/></w:tcPr><w:p><w:r><w:t>Descrição</w:t></w:r></w:p></w:tc>
      </w:tr>
      <w:tr>
        <w:tc><w:p><w:r><w:t>1</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>Luva de</w:t></w:r></w:p><w:p><w:r><w:t>procedimento</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>cx</w:t></w:r></w:p></w:tc>
      </w:tr>
    </w:tbl>
    <w:p><w:r><w:t>Prazo de entrega:</w:t><w:tab/><w:t>10 dias</w:t></w:r></w:p>
  </w:body>
</w:document>`

func sampleDocx(t *testing.T) []byte {
	return buildZip(t, map[string]string{
		"[Content_Types].xml": `<Types/>`,
		"word/document.xml":   sampleDocumentXML,
	})
}

func TestParseDocx(t *testing.T) {
	content, err := ParseDocx(sampleDocx(t))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(content.tables) != 1 {
		t.Fatalf("Expected 1 table, got %d", len(content.tables))
	}
	rows := content.tables[0]
	if strings.Join(rows[0], "|") != "Item|Descrição|" {
		t.Errorf("Expected spanned header, got %v", rows[0])
	}
	if rows[1][1] != "Luva de procedimento" {
		t.Errorf("Expected cell paragraphs joined, got %q", rows[1][1])
	}

	want := "TERMO DE REFERÊNCIA\n\nItem Descrição \n1 Luva de procedimento cx\n\nPrazo de entrega: 10 dias\n\n"
	if content.text != want {
		t.Errorf("Expected %q, got %q", want, content.text)
	}
}

func TestParseDocxInvalid(t *testing.T) {
	if _, err := ParseDocx([]byte("not a zip")); err == nil {
		t.Error("Expected error for invalid archive")
	}
	if _, err := ParseDocx(buildZip(t, map[string]string{"word/styles.xml": "<x/>"})); err == nil {
		t.Error("Expected error when document.xml is missing")
	}
}

func TestDocxProvider(t *testing.T) {
	p := NewDocxProvider(fakeObjects{"sp/tr.docx": sampleDocx(t)})
	ctx := context.Background()

	tables, err := p.Tables(ctx, model.Document{Ref: "sp/tr.docx"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(tables) != 1 || tables[0].Source != SourceDocx {
		t.Fatalf("Expected one docx table, got %v", tables)
	}
	if len(tables[0].Rows) != 1 {
		t.Errorf("Expected 1 data row, got %d", len(tables[0].Rows))
	}

	if _, err := p.Tables(ctx, model.Document{Ref: "sp/edital.pdf"}); !errors.Is(err, model.ErrProviderUnavailable) {
		t.Errorf("Expected ErrProviderUnavailable for a pdf, got %v", err)
	}
	if _, err := p.Text(ctx, model.Document{Ref: "sp/missing.docx"}); !errors.Is(err, model.ErrProviderUnavailable) {
		t.Errorf("Expected ErrProviderUnavailable for a missing object, got %v", err)
	}
}

func TestIsDocx(t *testing.T) {
	if !IsDocx("a/B.DOCX") {
		t.Error("Expected .DOCX to match")
	}
	if IsDocx("a/b.doc") {
		t.Error("Expected .doc not to match")
	}
}
