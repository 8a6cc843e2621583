package model

import (
	"fmt"
	"strings"
)

// Layer identifies one independent item extraction strategy.
type Layer int

const (
	TableLayerA Layer = iota
	TableLayerB
	TextLayer
)

// Layers lists every layer in reconciliation order.
var Layers = []Layer{TableLayerA, TableLayerB, TextLayer}

func (l Layer) String() string {
	switch l {
	case TableLayerA:
		return "table_a"
	case TableLayerB:
		return "table_b"
	case TextLayer:
		return "text"
	}
	return fmt.Sprintf("layer(%d)", int(l))
}

// MarshalText encodes the layer by name.
func (l Layer) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText decodes a layer name.
func (l *Layer) UnmarshalText(b []byte) error {
	for _, candidate := range Layers {
		if strings.EqualFold(string(b), candidate.String()) {
			*l = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown layer %q", string(b))
}

// ItemCandidate is one line item proposed by a single layer.
type ItemCandidate struct {
	Number      int    `json:"number,omitempty"`
	Description string `json:"description"`
	Quantity    string `json:"quantity,omitempty"`
	Unit        string `json:"unit,omitempty"`
	Layer       Layer  `json:"layer"`
	Position    int    `json:"position"`
}

// ConsensusItem is a line item confirmed by at least two layers.
type ConsensusItem struct {
	Key              string  `json:"key"`
	Number           int     `json:"number,omitempty"`
	Description      string  `json:"description"`
	Quantity         string  `json:"quantity,omitempty"`
	Unit             string  `json:"unit,omitempty"`
	SupportingLayers []Layer `json:"supporting_layers"`
}
