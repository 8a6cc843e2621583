package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pslima001/govy-function-current-sub002/config"
	"github.com/pslima001/govy-function-current-sub002/export"
	"github.com/pslima001/govy-function-current-sub002/items"
	"github.com/pslima001/govy-function-current-sub002/model"
	"github.com/pslima001/govy-function-current-sub002/pkg/logger"
)

const editalRef = "sp/pregao-12.pdf"

var itemRows = [][]string{
	{"1", "Arroz tipo 1 pacote 5kg", "100"},
	{"2", "Feijão carioca pacote 1kg", "80"},
	{"3", "Óleo de soja refinado 900ml", "60"},
}

func htmlTable(header []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString("<table><tr>")
	for _, h := range header {
		b.WriteString("<td>" + h + "</td>")
	}
	b.WriteString("</tr>")
	for _, r := range rows {
		b.WriteString("<tr>")
		for _, c := range r {
			b.WriteString("<td>" + c + "</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table>")
	return b.String()
}

func schoolRows(n int) [][]string {
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("EM Escola %d", i+1), fmt.Sprintf("Rua %d, %d", i+1, 100+i)}
	}
	return rows
}

func editalObjects(t *testing.T, schools int) fakeObjects {
	t.Helper()
	blocks := []map[string]any{
		{"type": "text", "page_idx": 0, "text": "1. DO OBJETO: O presente pregão tem por objeto a aquisição de gêneros alimentícios para a merenda escolar da rede municipal de ensino."},
		{"type": "text", "page_idx": 1, "text": "O prazo de entrega dos produtos será de 10 (dez) dias corridos, contados do recebimento da ordem de fornecimento."},
		{"type": "text", "page_idx": 1, "text": "O pagamento será efetuado em até 30 (trinta) dias após o atesto da nota fiscal."},
		{"type": "table", "page_idx": 2, "table_body": htmlTable([]string{"Item", "Descrição", "Qtd"}, itemRows)},
		{"type": "table", "page_idx": 3, "table_body": htmlTable([]string{"Escola", "Endereço"}, schoolRows(schools))},
	}
	contentList, err := json.Marshal(blocks)
	if err != nil {
		t.Fatalf("Failed to marshal content list: %v", err)
	}

	var cells []map[string]any
	for c, h := range []string{"Item", "Descrição", "Qtd"} {
		cells = append(cells, map[string]any{"row": 0, "col": c, "text": h})
	}
	for r, row := range itemRows {
		for c, v := range row {
			cells = append(cells, map[string]any{"row": r + 1, "col": c, "text": v})
		}
	}
	layout, err := json.Marshal(map[string]any{
		"texto_completo": "EDITAL",
		"tables_norm":    []map[string]any{{"table_index": 0, "page_number": 3, "cells": cells}},
	})
	if err != nil {
		t.Fatalf("Failed to marshal layout: %v", err)
	}

	return fakeObjects{
		ContentListKey(editalRef): contentList,
		LayoutKey(editalRef):      layout,
	}
}

func newTestExtraction(t *testing.T, objects ObjectReader, sink export.Sink) *Extraction {
	t.Helper()
	rules, err := config.LoadRules("")
	if err != nil {
		t.Fatalf("Failed to load rules: %v", err)
	}
	cfg := config.Default().Extraction
	e, err := NewExtraction(rules, cfg, DefaultSources(objects), sink)
	if err != nil {
		t.Fatalf("Failed to build extraction: %v", err)
	}
	return e
}

func resultByID(results []model.Result, id string) *model.Result {
	for i := range results {
		if results[i].Parameter == id {
			return &results[i]
		}
	}
	return nil
}

func TestExtractionAllParameters(t *testing.T) {
	e := newTestExtraction(t, editalObjects(t, 3), &export.MemorySink{})

	results, err := e.Extract(context.Background(), model.Document{Ref: editalRef, Tenant: "sp"}, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(results) != len(e.Parameters()) {
		t.Fatalf("Expected %d results, got %d", len(e.Parameters()), len(results))
	}
	for i, id := range e.Parameters() {
		if results[i].Parameter != id {
			t.Errorf("Expected parameter %s at %d, got %s", id, i, results[i].Parameter)
		}
	}

	e001 := resultByID(results, "e001")
	if !e001.Found() || *e001.Scalar.Value != "10 dias corridos" {
		t.Errorf("Expected e001 '10 dias corridos', got %+v", e001.Scalar)
	}
	pg001 := resultByID(results, "pg001")
	if !pg001.Found() || *pg001.Scalar.Value != "30 dias" {
		t.Errorf("Expected pg001 '30 dias', got %+v", pg001.Scalar)
	}
	if o001 := resultByID(results, "o001"); !o001.Found() || !strings.Contains(*o001.Scalar.Value, "gêneros alimentícios") {
		t.Errorf("Expected o001 to contain the object, got %+v", o001.Scalar)
	}
	if v := resultByID(results, "validade_proposta"); v.Found() {
		t.Errorf("Expected validade_proposta not found, got %q", *v.Scalar.Value)
	}

	l001 := resultByID(results, "l001")
	if len(l001.List.Values) != 3 || l001.Total != 3 || l001.Overflow != nil {
		t.Errorf("Expected 3 locations without overflow, got %+v total=%d", l001.List.Values, l001.Total)
	}
	if l001.List.Values[0] != "EM Escola 1 - Rua 1, 100" {
		t.Errorf("Expected joined school and address, got %q", l001.List.Values[0])
	}

	itens := resultByID(results, config.ItemsParameter)
	if itens.Total != 3 {
		t.Errorf("Expected 3 consensus items, got %d (%s)", itens.Total, itens.List.Evidence)
	}
}

func TestExtractionNotFoundRendersNullValue(t *testing.T) {
	e := newTestExtraction(t, editalObjects(t, 3), &export.MemorySink{})

	results, err := e.Extract(context.Background(), model.Document{Ref: editalRef}, []string{"vigencia_contrato"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	data, err := json.Marshal(results[0])
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(string(data), `"value":null`) {
		t.Errorf("Expected null value, got %s", data)
	}
}

func TestExtractionLocationOverflow(t *testing.T) {
	sink := &export.MemorySink{}
	e := newTestExtraction(t, editalObjects(t, 25), sink)
	ctx := context.WithValue(context.Background(), logger.RequestIDKey, "req-1")

	results, err := e.Extract(ctx, model.Document{Ref: editalRef, Tenant: "sp"}, []string{"l001"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	l001 := results[0]

	if len(l001.List.Values) != 20 {
		t.Errorf("Expected 20 shown values, got %d", len(l001.List.Values))
	}
	if l001.Total != 25 {
		t.Errorf("Expected total 25, got %d", l001.Total)
	}
	if l001.Overflow == nil || *l001.Overflow != "mem://sp/req-1_l001_all.txt" {
		t.Fatalf("Expected overflow file, got %v", l001.Overflow)
	}
	content := string(sink.Files["sp/req-1_l001_all.txt"])
	if strings.Count(content, "\n") != 25 {
		t.Errorf("Expected 25 lines in export, got %q", content)
	}
}

type failingSink struct{}

func (failingSink) Write(context.Context, string, []byte) (string, error) {
	return "", errors.New("bucket offline")
}

func TestExtractionOverflowWriteFailureKeepsShown(t *testing.T) {
	e := newTestExtraction(t, editalObjects(t, 25), failingSink{})

	results, err := e.Extract(context.Background(), model.Document{Ref: editalRef}, []string{"l001"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(results[0].List.Values) != 20 || results[0].Overflow != nil {
		t.Errorf("Expected 20 shown values and no file, got %d, %v", len(results[0].List.Values), results[0].Overflow)
	}
}

func TestExtractionLocationFallbackToText(t *testing.T) {
	blocks := `[{"type":"text","page_idx":0,"text":"7. DA ENTREGA\nOs produtos deverão ser entregues no local de entrega abaixo:\nRua das Flores, 123 - Centro, CEP 12345-000"}]`
	e := newTestExtraction(t, fakeObjects{ContentListKey("a.pdf"): []byte(blocks)}, nil)

	results, err := e.Extract(context.Background(), model.Document{Ref: "a.pdf"}, []string{"l001"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	values := results[0].List.Values
	if len(values) != 1 || values[0] != "Rua das Flores, 123 - Centro, CEP 12345-000" {
		t.Errorf("Expected address from text, got %v", values)
	}
}

func TestExtractionInputErrors(t *testing.T) {
	e := newTestExtraction(t, fakeObjects{}, nil)
	ctx := context.Background()

	if _, err := e.Extract(ctx, model.Document{}, nil); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if _, err := e.Extract(ctx, model.Document{Ref: "a.pdf"}, []string{"e001", "x999"}); !errors.Is(err, model.ErrUnknownParameter) {
		t.Errorf("Expected ErrUnknownParameter, got %v", err)
	}
	if _, err := e.ExtractItems(ctx, model.Document{Ref: " "}); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for items, got %v", err)
	}
}

func TestExtractionMissingDocument(t *testing.T) {
	e := newTestExtraction(t, fakeObjects{}, nil)

	_, err := e.Extract(context.Background(), model.Document{Ref: "missing.pdf"}, []string{"e001"})
	if !errors.Is(err, model.ErrProviderUnavailable) {
		t.Errorf("Expected ErrProviderUnavailable, got %v", err)
	}

	res, err := e.ExtractItems(context.Background(), model.Document{Ref: "missing.pdf"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.Status != items.StatusProvidersUnavailable {
		t.Errorf("Expected providers_unavailable, got %s", res.Status)
	}
}

func TestExtractionItems(t *testing.T) {
	e := newTestExtraction(t, editalObjects(t, 3), nil)

	res, err := e.ExtractItems(context.Background(), model.Document{Ref: editalRef})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.Status != items.StatusFound {
		t.Fatalf("Expected found, got %s", res.Status)
	}
	if len(res.Items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(res.Items))
	}
	if res.Items[0].Number != 1 || res.Items[0].Description != "Arroz tipo 1 pacote 5kg" {
		t.Errorf("Expected first item arroz, got %+v", res.Items[0])
	}
	if len(res.Items[0].SupportingLayers) != 2 {
		t.Errorf("Expected support from both table layers, got %v", res.Items[0].SupportingLayers)
	}
}

func TestItemLine(t *testing.T) {
	got := itemLine(model.ConsensusItem{Number: 4, Description: "Luva nitrílica", Quantity: "10", Unit: "cx"})
	if got != "4 - Luva nitrílica | 10 cx" {
		t.Errorf("Expected '4 - Luva nitrílica | 10 cx', got %q", got)
	}
	if got := itemLine(model.ConsensusItem{Description: "Luva nitrílica"}); got != "Luva nitrílica" {
		t.Errorf("Expected bare description, got %q", got)
	}
}

func TestOverflowPrefix(t *testing.T) {
	ctx := context.WithValue(context.Background(), logger.RequestIDKey, "abc")
	if got := overflowPrefix(ctx, model.Document{Tenant: "rj"}, "l001"); got != "rj/abc_l001" {
		t.Errorf("Expected rj/abc_l001, got %s", got)
	}
	got := overflowPrefix(context.Background(), model.Document{}, "l001")
	if !strings.HasPrefix(got, "default/") || !strings.HasSuffix(got, "_l001") {
		t.Errorf("Expected default/<uuid>_l001, got %s", got)
	}
}
