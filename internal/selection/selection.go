// Package selection picks the next card to study, biased toward difficult cards.
package selection

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/verte-zerg/wordflash/internal/model"
)

// ErrInvalidInput reports a card that cannot be weighted.
var ErrInvalidInput = errors.New("selection: invalid input")

// Random yields uniform floats in [0, 1).
type Random interface {
	Float64() float64
}

// NewRandom returns a Random seeded with the current time.
func NewRandom() Random {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// NewSeeded returns a deterministic Random.
func NewSeeded(seed int64) Random {
	return rand.New(rand.NewSource(seed))
}

// Weight returns the selection weight of a card:
//
//	ratio  = know / (dontKnow + 1)
//	weight = 1 / (1 + ratio)
//
// The result is always in (0, 1], and exactly 1 for a card never marked known.
func Weight(card *model.Card) (float64, error) {
	if card == nil {
		return 0, fmt.Errorf("%w: card is nil", ErrInvalidInput)
	}
	st := card.Statistics
	if st == nil {
		return 0, fmt.Errorf("%w: card %s has no statistics", ErrInvalidInput, card.ID)
	}
	if st.KnowCount < 0 || st.DontKnowCount < 0 {
		return 0, fmt.Errorf("%w: card %s has negative counters", ErrInvalidInput, card.ID)
	}
	ratio := float64(st.KnowCount) / float64(st.DontKnowCount+1)
	return 1 / (1 + ratio), nil
}

// Weights computes the weight of every card, preserving input order.
func Weights(cards []*model.Card) ([]float64, error) {
	weights := make([]float64, len(cards))
	for i, card := range cards {
		w, err := Weight(card)
		if err != nil {
			return nil, err
		}
		weights[i] = w
	}
	return weights, nil
}

// Selector draws cards with probability proportional to their weight.
// It keeps no state between calls apart from its random source.
type Selector struct {
	rnd Random
}

// New returns a Selector using rnd, or a time-seeded source when rnd is nil.
func New(rnd Random) *Selector {
	if rnd == nil {
		rnd = NewRandom()
	}
	return &Selector{rnd: rnd}
}

// SelectNext returns the next card to present, or nil for an empty input.
//
// The draw r in [0, total) is walked in input order, subtracting each weight;
// the first card at which r drops to <= 0 wins. A draw landing exactly on a
// boundary therefore goes to the earlier card. If rounding leaves r positive
// after the last card, the last card is returned.
func (s *Selector) SelectNext(cards []*model.Card) (*model.Card, error) {
	if len(cards) == 0 {
		return nil, nil
	}
	weights, err := Weights(cards)
	if err != nil {
		return nil, err
	}
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return cards[int(s.rnd.Float64()*float64(len(cards)))%len(cards)], nil
	}

	r := s.rnd.Float64() * total
	for i, w := range weights {
		r -= w
		if r <= 0 {
			return cards[i], nil
		}
	}
	return cards[len(cards)-1], nil
}
