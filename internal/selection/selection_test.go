package selection

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/wordflash/internal/model"
)

const tolerance = 1e-9

type sequence struct {
	values []float64
	next   int
}

func (s *sequence) Float64() float64 {
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

func card(id string, know, dontKnow int) *model.Card {
	return &model.Card{
		ID:          id,
		Word:        id,
		Translation: id,
		Statistics:  &model.Statistics{KnowCount: know, DontKnowCount: dontKnow},
	}
}

func TestWeightFormula(t *testing.T) {
	for k := 0; k <= 40; k++ {
		for d := 0; d <= 40; d++ {
			got, err := Weight(card("c", k, d))
			require.NoError(t, err)
			want := 1 / (1 + float64(k)/float64(d+1))
			assert.InDelta(t, want, got, tolerance, "know=%d dontKnow=%d", k, d)
		}
	}
}

func TestWeightBounds(t *testing.T) {
	rnd := NewSeeded(7)
	for i := 0; i < 500; i++ {
		k := int(rnd.Float64() * 10000)
		d := int(rnd.Float64() * 10000)
		w, err := Weight(card("c", k, d))
		require.NoError(t, err)
		assert.Greater(t, w, 0.0)
		assert.LessOrEqual(t, w, 1.0)
		if k == 0 {
			assert.Equal(t, 1.0, w)
		} else {
			assert.Less(t, w, 1.0)
		}
	}
}

func TestWeightFreshCardIsMaximal(t *testing.T) {
	w, err := Weight(card("fresh", 0, 0))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, w, tolerance)
}

func TestWeightMonotonicity(t *testing.T) {
	for d := 0; d < 20; d++ {
		prev := math.Inf(1)
		for k := 0; k < 50; k++ {
			w, err := Weight(card("c", k, d))
			require.NoError(t, err)
			assert.Less(t, w, prev, "weight must fall as know grows (k=%d d=%d)", k, d)
			prev = w
		}
	}
	for k := 1; k < 20; k++ {
		prev := 0.0
		for d := 0; d < 50; d++ {
			w, err := Weight(card("c", k, d))
			require.NoError(t, err)
			assert.Greater(t, w, prev, "weight must rise as dontKnow grows (k=%d d=%d)", k, d)
			prev = w
		}
	}
}

func TestWeightInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		card *model.Card
	}{
		{name: "nil card", card: nil},
		{name: "missing statistics", card: &model.Card{ID: "x"}},
		{name: "negative know", card: card("x", -1, 0)},
		{name: "negative dont know", card: card("x", 0, -3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Weight(tt.card)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}

func TestSelectNextEmpty(t *testing.T) {
	s := New(NewSeeded(1))
	got, err := s.SelectNext(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.SelectNext([]*model.Card{})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSelectNextSingleton(t *testing.T) {
	only := card("only", 12, 3)
	s := New(NewSeeded(1))
	for i := 0; i < 100; i++ {
		got, err := s.SelectNext([]*model.Card{only})
		require.NoError(t, err)
		assert.Same(t, only, got)
	}
}

func TestSelectNextAbortsOnInvalidCard(t *testing.T) {
	s := New(NewSeeded(1))
	cards := []*model.Card{card("a", 0, 0), {ID: "broken"}, card("c", 0, 0)}
	got, err := s.SelectNext(cards)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Nil(t, got)
}

func TestSelectNextBoundaryGoesToEarlierCard(t *testing.T) {
	a, b := card("a", 0, 0), card("b", 0, 0)
	// total = 2, r = 1: after subtracting a's weight r is exactly 0.
	s := New(&sequence{values: []float64{0.5}})
	got, err := s.SelectNext([]*model.Card{a, b})
	require.NoError(t, err)
	assert.Same(t, a, got)
}

func TestSelectNextWalk(t *testing.T) {
	cards := []*model.Card{card("a", 0, 0), card("b", 1, 0), card("c", 0, 0)}
	// weights 1, 0.5, 1; total 2.5
	tests := []struct {
		draw float64
		want string
	}{
		{draw: 0, want: "a"},
		{draw: 0.3, want: "a"},
		{draw: 0.41, want: "b"},
		{draw: 0.55, want: "b"},
		{draw: 0.61, want: "c"},
		{draw: 0.99, want: "c"},
	}
	for _, tt := range tests {
		s := New(&sequence{values: []float64{tt.draw}})
		got, err := s.SelectNext(cards)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.ID, "draw %v", tt.draw)
	}
}

func TestSelectNextUpperBoundFallsBackToLast(t *testing.T) {
	cards := []*model.Card{card("a", 3, 1), card("b", 7, 2), card("c", 1, 9)}
	s := New(&sequence{values: []float64{1}})
	got, err := s.SelectNext(cards)
	require.NoError(t, err)
	assert.Equal(t, "c", got.ID)
}

func TestSelectNextSkewsTowardHardCards(t *testing.T) {
	cards := []*model.Card{
		card("easy", 100, 10),
		card("medium", 50, 50),
		card("hard", 10, 100),
	}
	for name, rnd := range map[string]Random{"seeded": NewSeeded(42), "real": NewRandom()} {
		t.Run(name, func(t *testing.T) {
			s := New(rnd)
			counts := map[string]int{}
			for i := 0; i < 1000; i++ {
				got, err := s.SelectNext(cards)
				require.NoError(t, err)
				counts[got.ID]++
			}
			assert.Greater(t, counts["hard"], counts["medium"])
			assert.Greater(t, counts["medium"], counts["easy"])
		})
	}
}

func TestSelectNextIsStateless(t *testing.T) {
	cards := []*model.Card{card("a", 0, 4), card("b", 9, 0), card("c", 2, 2)}
	first := New(NewSeeded(99))
	second := New(NewSeeded(99))
	for i := 0; i < 50; i++ {
		x, err := first.SelectNext(cards)
		require.NoError(t, err)
		y, err := second.SelectNext(cards)
		require.NoError(t, err)
		assert.Same(t, x, y)
	}
}
