// Package items extracts procurement line items by running independent
// table and text layers over one document and keeping only the items at
// least two layers agree on.
package items

import (
	"github.com/pslima001/govy-function-current-sub002/tables"
)

// Defaults used when Config leaves a field empty.
const (
	DefaultMaxItems          = 800
	DefaultMinDescription    = 10
	DefaultMaxNumber         = 500
	DefaultCutoffMinFraction = 0.3
	DefaultSuffixPattern     = `\s+\d+(?:[.,]\d+)?\s*(?:%|(?:mg|mcg|g|kg|ml|l|ui|cm|mm|m|un|und|cp|comp|caps)\b).*$`
)

// DefaultTextPatterns capture (number, description) from item-like lines.
var DefaultTextPatterns = []string{
	`^\s*(\d{1,3})\s*[.\-)–]\s+(\p{L}.{9,})$`,
	`(?i)^\s*item\s*(\d{1,3})\s*[:\-–.]\s*(\p{L}.{9,})$`,
	`^\s*(\d{1,3})\s+(\p{Lu}{3,}.{7,})$`,
}

// DefaultProposalMarkers start the proposal-model or contract-draft part of
// an edital, where item lists are repeated as blank templates.
var DefaultProposalMarkers = []string{
	"modelo de proposta",
	"modelo da proposta",
	"proposta comercial modelo",
	"minuta de contrato",
	"minuta do contrato",
	"minuta da ata",
}

// HeaderTerms name the item table columns. Number terms must be the leading
// word of a header cell, unit terms any prefix of it, and description and
// quantity terms any substring.
type HeaderTerms struct {
	Number      []string `yaml:"number" json:"number"`
	Description []string `yaml:"description" json:"description"`
	Unit        []string `yaml:"unit" json:"unit"`
	Quantity    []string `yaml:"quantity" json:"quantity"`
}

// DefaultHeaderTerms covers the column names seen in municipal editais.
var DefaultHeaderTerms = HeaderTerms{
	Number:      []string{"item", "itens", "nº", "n°", "no", "n", "#", "seq", "num", "numero", "lote"},
	Description: []string{"descri", "especifica", "produto", "material", "servico", "objeto", "denomina", "medicamento", "nome"},
	Unit:        []string{"unid", "und", "un", "medida"},
	Quantity:    []string{"qtd", "quant", "qde", "qtde"},
}

// Config is the immutable item extraction configuration.
type Config struct {
	MaxItems          int               `yaml:"max_items,omitempty" json:"max_items,omitempty"`
	SuffixPattern     string            `yaml:"suffix_pattern,omitempty" json:"suffix_pattern,omitempty"`
	Concurrent        bool              `yaml:"concurrent,omitempty" json:"concurrent,omitempty"`
	MinDescription    int               `yaml:"min_description,omitempty" json:"min_description,omitempty"`
	MaxNumber         int               `yaml:"max_number,omitempty" json:"max_number,omitempty"`
	Header            HeaderTerms       `yaml:"header,omitempty" json:"header,omitempty"`
	TextPatterns      []string          `yaml:"text_patterns,omitempty" json:"text_patterns,omitempty"`
	ProposalMarkers   []string          `yaml:"proposal_markers,omitempty" json:"proposal_markers,omitempty"`
	CutoffMinFraction float64           `yaml:"cutoff_min_fraction,omitempty" json:"cutoff_min_fraction,omitempty"`
	SkipSequenceCheck bool              `yaml:"skip_sequence_check,omitempty" json:"skip_sequence_check,omitempty"`
	Repair            tables.RepairRule `yaml:"repair,omitempty" json:"repair,omitempty"`
}

func (c Config) withDefaults() Config {
	if c.MaxItems <= 0 {
		c.MaxItems = DefaultMaxItems
	}
	if c.SuffixPattern == "" {
		c.SuffixPattern = DefaultSuffixPattern
	}
	if c.MinDescription <= 0 {
		c.MinDescription = DefaultMinDescription
	}
	if c.MaxNumber <= 0 {
		c.MaxNumber = DefaultMaxNumber
	}
	if len(c.Header.Number) == 0 {
		c.Header.Number = DefaultHeaderTerms.Number
	}
	if len(c.Header.Description) == 0 {
		c.Header.Description = DefaultHeaderTerms.Description
	}
	if len(c.Header.Unit) == 0 {
		c.Header.Unit = DefaultHeaderTerms.Unit
	}
	if len(c.Header.Quantity) == 0 {
		c.Header.Quantity = DefaultHeaderTerms.Quantity
	}
	if len(c.TextPatterns) == 0 {
		c.TextPatterns = DefaultTextPatterns
	}
	if c.ProposalMarkers == nil {
		c.ProposalMarkers = DefaultProposalMarkers
	}
	if c.CutoffMinFraction <= 0 {
		c.CutoffMinFraction = DefaultCutoffMinFraction
	}
	return c
}
