package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleText = `1. DO OBJETO: O presente pregão tem por objeto a aquisição de gêneros alimentícios para a merenda escolar.

O prazo de entrega dos produtos será de 10 (dez) dias corridos, contados do recebimento da ordem de fornecimento.

O pagamento será efetuado em até 30 (trinta) dias após o atesto da nota fiscal.
`

var sampleItems = [][]string{
	{"1", "Arroz tipo 1 pacote 5kg", "100"},
	{"2", "Feijão carioca pacote 1kg", "80"},
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func htmlRows(header []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString("<table>")
	for _, r := range append([][]string{header}, rows...) {
		b.WriteString("<tr><td>" + strings.Join(r, "</td><td>") + "</td></tr>")
	}
	b.WriteString("</table>")
	return b.String()
}

func contentListFile(t *testing.T, dir string, schools int) string {
	t.Helper()
	var schoolRows [][]string
	for i := 1; i <= schools; i++ {
		schoolRows = append(schoolRows, []string{fmt.Sprintf("EM Escola %d", i), fmt.Sprintf("Rua %d, %d", i, 100+i)})
	}
	blocks := []map[string]any{
		{"type": "text", "page_idx": 0, "text": "EDITAL DE PREGÃO"},
		{"type": "table", "page_idx": 1, "table_body": htmlRows([]string{"Item", "Descrição", "Qtd"}, sampleItems)},
		{"type": "table", "page_idx": 2, "table_body": htmlRows([]string{"Escola", "Endereço"}, schoolRows)},
	}
	data, err := json.Marshal(blocks)
	require.NoError(t, err)
	return writeFile(t, dir, "edital.content_list.json", data)
}

func layoutFile(t *testing.T, dir string) string {
	t.Helper()
	var cells []map[string]any
	for c, h := range []string{"Item", "Descrição", "Qtd"} {
		cells = append(cells, map[string]any{"row": 0, "col": c, "text": h})
	}
	for r, row := range sampleItems {
		for c, v := range row {
			cells = append(cells, map[string]any{"row": r + 1, "col": c, "text": v})
		}
	}
	data, err := json.Marshal(map[string]any{
		"texto_completo": "EDITAL",
		"tables_norm":    []map[string]any{{"table_index": 0, "page_number": 2, "cells": cells}},
	})
	require.NoError(t, err)
	return writeFile(t, dir, "edital_parsed.json", data)
}

func TestExtractFromText(t *testing.T) {
	dir := t.TempDir()
	text := writeFile(t, dir, "edital.txt", []byte(sampleText))

	stdout, _, err := run(t, "extract", "--text", text, "--params", "e001,pg001", "--out", filepath.Join(dir, "out"))
	require.NoError(t, err)

	var out struct {
		DocumentRef string `json:"document_ref"`
		Results     []struct {
			Parameter string  `json:"parameter"`
			Found     bool    `json:"found"`
			Value     *string `json:"value"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "local/edital.pdf", out.DocumentRef)
	require.Len(t, out.Results, 2)

	assert.Equal(t, "e001", out.Results[0].Parameter)
	require.NotNil(t, out.Results[0].Value)
	assert.Equal(t, "10 dias corridos", *out.Results[0].Value)

	assert.Equal(t, "pg001", out.Results[1].Parameter)
	require.NotNil(t, out.Results[1].Value)
	assert.Equal(t, "30 dias", *out.Results[1].Value)
}

func TestExtractWritesOverflowFile(t *testing.T) {
	dir := t.TempDir()
	list := contentListFile(t, dir, 25)
	outDir := filepath.Join(dir, "out")

	stdout, _, err := run(t, "extract", "--content-list", list, "--params", "l001", "--out", outDir)
	require.NoError(t, err)

	var out struct {
		Results []struct {
			Values       []string `json:"values"`
			Total        int      `json:"total"`
			OverflowFile *string  `json:"overflow_file"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out.Results, 1)
	assert.Len(t, out.Results[0].Values, 20)
	assert.Equal(t, 25, out.Results[0].Total)
	require.NotNil(t, out.Results[0].OverflowFile)

	data, err := os.ReadFile(*out.Results[0].OverflowFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "EM Escola 25")
	assert.True(t, strings.HasPrefix(*out.Results[0].OverflowFile, outDir))
}

func TestExtractErrors(t *testing.T) {
	dir := t.TempDir()
	text := writeFile(t, dir, "edital.txt", []byte(sampleText))

	_, _, err := run(t, "extract")
	assert.ErrorContains(t, err, "--text")

	_, _, err = run(t, "extract", "--text", text, "--params", "x999")
	assert.ErrorContains(t, err, "x999")

	_, _, err = run(t, "extract", "--text", filepath.Join(dir, "missing.txt"), "--params", "e001")
	assert.Error(t, err)
}

func TestItemsConsensus(t *testing.T) {
	dir := t.TempDir()
	list := contentListFile(t, dir, 1)
	layout := layoutFile(t, dir)

	stdout, stderr, err := run(t, "items", "--content-list", list, "--layout", layout, "--trace")
	require.NoError(t, err)

	var out struct {
		Status string `json:"status"`
		Items  []struct {
			Number           int      `json:"number"`
			SupportingLayers []string `json:"supporting_layers"`
		} `json:"items"`
		Layers []struct {
			Layer     string `json:"layer"`
			Available bool   `json:"available"`
		} `json:"layers"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "found", out.Status)
	require.Len(t, out.Items, 2)
	assert.Equal(t, 1, out.Items[0].Number)
	assert.Contains(t, out.Items[0].SupportingLayers, "table_a")
	assert.Contains(t, out.Items[0].SupportingLayers, "table_b")
	assert.Len(t, out.Layers, 3)
	assert.Contains(t, stderr, "trace: init")
}

func TestItemsWithoutSources(t *testing.T) {
	_, _, err := run(t, "items")
	assert.Error(t, err)
}

func TestRulesValidate(t *testing.T) {
	stdout, _, err := run(t, "rules", "validate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "embedded rules: ok")
	assert.Contains(t, stdout, "e001")

	dir := t.TempDir()
	bad := writeFile(t, dir, "rules.yaml", []byte("scalars: 12\n"))
	_, _, err = run(t, "--rules", bad, "rules", "validate")
	assert.ErrorContains(t, err, "invalid rules")
}

func TestRulesShow(t *testing.T) {
	stdout, _, err := run(t, "rules", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "e001")
}
