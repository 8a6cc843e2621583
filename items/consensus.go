package items

import (
	"sort"
	"unicode/utf8"

	"github.com/pslima001/govy-function-current-sub002/model"
	"github.com/pslima001/govy-function-current-sub002/pkg/textnorm"
)

// MinLayers is the number of distinct layers that must agree on an item.
const MinLayers = 2

type group struct {
	key     string
	first   int
	byLayer map[model.Layer]model.ItemCandidate
}

// order is the group's sort position. Layers number positions
// independently, so the text layer's reading order is preferred and the
// earliest table position only orders groups the text layer missed.
func (g *group) order() (int, int) {
	if c, ok := g.byLayer[model.TextLayer]; ok {
		return 0, c.Position
	}
	return 1, g.first
}

// Reconcile groups candidates by canonical key and keeps groups supported by
// at least MinLayers distinct layers. Within one layer only the first
// candidate per key counts. Items the text layer saw come first in text
// order, then the rest by earliest table position. The output does not
// depend on the order layers finished in.
func Reconcile(candidates map[model.Layer][]model.ItemCandidate, canon *Canonicalizer) []model.ConsensusItem {
	groups := make(map[string]*group)
	for _, layer := range model.Layers {
		for _, c := range candidates[layer] {
			key := canon.Key(c.Description)
			if key == "" {
				continue
			}
			g, ok := groups[key]
			if !ok {
				g = &group{key: key, first: c.Position, byLayer: make(map[model.Layer]model.ItemCandidate)}
				groups[key] = g
			}
			if _, seen := g.byLayer[layer]; seen {
				continue
			}
			g.byLayer[layer] = c
			if c.Position < g.first {
				g.first = c.Position
			}
		}
	}

	accepted := make([]*group, 0, len(groups))
	for _, g := range groups {
		if len(g.byLayer) >= MinLayers {
			accepted = append(accepted, g)
		}
	}
	sort.Slice(accepted, func(i, j int) bool {
		ri, pi := accepted[i].order()
		rj, pj := accepted[j].order()
		if ri != rj {
			return ri < rj
		}
		if pi != pj {
			return pi < pj
		}
		return accepted[i].key < accepted[j].key
	})

	out := make([]model.ConsensusItem, 0, len(accepted))
	for _, g := range accepted {
		out = append(out, g.item())
	}
	return out
}

func (g *group) item() model.ConsensusItem {
	item := model.ConsensusItem{Key: g.key}
	var descriptions []string
	for _, layer := range model.Layers {
		c, ok := g.byLayer[layer]
		if !ok {
			continue
		}
		item.SupportingLayers = append(item.SupportingLayers, layer)
		descriptions = append(descriptions, textnorm.Clean(c.Description))
		if item.Number == 0 {
			item.Number = c.Number
		}
		if item.Quantity == "" {
			item.Quantity = c.Quantity
		}
		if item.Unit == "" {
			item.Unit = c.Unit
		}
	}
	item.Description = chooseDescription(descriptions)
	return item
}

// chooseDescription returns the strict-majority description, else the
// longest one, earlier layers winning ties.
func chooseDescription(descriptions []string) string {
	counts := make(map[string]int, len(descriptions))
	for _, d := range descriptions {
		counts[d]++
	}
	for _, d := range descriptions {
		if counts[d]*2 > len(descriptions) {
			return d
		}
	}
	best := ""
	for _, d := range descriptions {
		if utf8.RuneCountInString(d) > utf8.RuneCountInString(best) {
			best = d
		}
	}
	return best
}
