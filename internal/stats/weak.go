package stats

import (
	"sort"

	"github.com/verte-zerg/wordflash/internal/model"
	"github.com/verte-zerg/wordflash/internal/selection"
)

// Hardest returns up to top cards ordered by selection weight, highest
// first. Cards without valid statistics are skipped.
func Hardest(cards []*model.Card, top int) []*model.Card {
	type weighted struct {
		card   *model.Card
		weight float64
	}
	candidates := make([]weighted, 0, len(cards))
	for _, card := range cards {
		w, err := selection.Weight(card)
		if err != nil {
			continue
		}
		candidates = append(candidates, weighted{card: card, weight: w})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].weight == candidates[j].weight {
			return candidates[i].card.Word < candidates[j].card.Word
		}
		return candidates[i].weight > candidates[j].weight
	})
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	out := make([]*model.Card, 0, top)
	for i := 0; i < top; i++ {
		out = append(out, candidates[i].card)
	}
	return out
}
