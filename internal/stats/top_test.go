package stats

import (
	"testing"

	"github.com/verte-zerg/wordflash/internal/model"
)

func TestTopTags(t *testing.T) {
	cards := []*model.Card{
		{Word: "a", Tags: []string{"verbs", "basic"}},
		{Word: "b", Tags: []string{"nouns"}},
		{Word: "c", Tags: []string{"basic", "nouns"}},
		{Word: "d"},
	}
	top := TopTags(cards, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(top))
	}
	if top[0] != (TagCount{Tag: "basic", Cards: 2}) || top[1] != (TagCount{Tag: "nouns", Cards: 2}) {
		t.Fatalf("unexpected order: %v", top)
	}
	if TopTags(cards, 0) != nil {
		t.Fatalf("expected nil for n=0")
	}
}

func TestHardest(t *testing.T) {
	cards := []*model.Card{
		{Word: "easy", Statistics: &model.Statistics{KnowCount: 9}},
		{Word: "hard", Statistics: &model.Statistics{DontKnowCount: 4}},
		{Word: "broken"},
		{Word: "fresh", Statistics: &model.Statistics{}},
		{Word: "mid", Statistics: &model.Statistics{KnowCount: 1, DontKnowCount: 1}},
	}
	got := Hardest(cards, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(got))
	}
	words := []string{got[0].Word, got[1].Word, got[2].Word}
	want := []string{"fresh", "hard", "mid"}
	for i := range want {
		if words[i] != want[i] {
			t.Fatalf("unexpected order: %v", words)
		}
	}
	if len(Hardest(cards, 0)) != 4 {
		t.Fatalf("expected every valid card when top is 0")
	}
}
