package stats

import (
	"sort"

	"github.com/verte-zerg/wordflash/internal/model"
)

// TagCount is the number of cards carrying a tag.
type TagCount struct {
	Tag   string
	Cards int
}

// TopTags returns the n most used tags.
func TopTags(cards []*model.Card, n int) []TagCount {
	if n <= 0 || len(cards) == 0 {
		return nil
	}
	counts := map[string]int{}
	for _, card := range cards {
		for _, tag := range card.Tags {
			counts[tag]++
		}
	}
	items := make([]TagCount, 0, len(counts))
	for tag, total := range counts {
		items = append(items, TagCount{Tag: tag, Cards: total})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Cards == items[j].Cards {
			return items[i].Tag < items[j].Tag
		}
		return items[i].Cards > items[j].Cards
	})
	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}
