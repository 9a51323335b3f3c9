package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/verte-zerg/wordflash/internal/model"
	"github.com/verte-zerg/wordflash/internal/selection"
)

type fakeDeck struct {
	cards   []*model.Card
	loads   int
	gotTags []string
}

func (d *fakeDeck) ByTags(_ context.Context, tags []string) ([]*model.Card, error) {
	d.loads++
	d.gotTags = tags
	out := make([]*model.Card, 0, len(d.cards))
	for _, c := range d.cards {
		if len(tags) == 0 || c.HasTag(tags) {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

type fakeRecorder struct {
	deck  *fakeDeck
	calls []string
	err   error
}

func (r *fakeRecorder) record(id string, known bool) error {
	if r.err != nil {
		return r.err
	}
	r.calls = append(r.calls, fmt.Sprintf("%s:%t", id, known))
	for _, c := range r.deck.cards {
		if c.ID == id {
			if known {
				c.Statistics.KnowCount++
			} else {
				c.Statistics.DontKnowCount++
			}
			return nil
		}
	}
	return model.ErrNotFound
}

func (r *fakeRecorder) RecordKnown(_ context.Context, id string) error {
	return r.record(id, true)
}

func (r *fakeRecorder) RecordDontKnow(_ context.Context, id string) error {
	return r.record(id, false)
}

func newCard(id, word string, tags ...string) *model.Card {
	return &model.Card{ID: id, Word: word, Translation: word + "-tr", Tags: tags, Statistics: &model.Statistics{}}
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(deck *fakeDeck, rec *fakeRecorder, tags []string) *Model {
	return NewModel(context.Background(), deck, rec, selection.New(selection.NewSeeded(7)), tags, zap.NewNop())
}

func TestModelRevealAndAnswer(t *testing.T) {
	deck := &fakeDeck{cards: []*model.Card{newCard("a", "Haus")}}
	rec := &fakeRecorder{deck: deck}
	m := newTestModel(deck, rec, nil)

	require.NotNil(t, m.Current())
	assert.Contains(t, m.View(), "space to reveal")
	assert.NotContains(t, m.View(), "Haus-tr")

	// Answers are ignored until the translation is shown.
	m.Update(keyRunes("k"))
	assert.Empty(t, rec.calls)

	m.Update(tea.KeyMsg{Type: tea.KeySpace})
	assert.Contains(t, m.View(), "Haus-tr")

	m.Update(keyRunes("k"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, []string{"a:true", "a:false"}, rec.calls)
	assert.Equal(t, 1, m.known)
	assert.Equal(t, 1, m.dontKnow)
	assert.Equal(t, 1, m.Current().Statistics.KnowCount)
	assert.Equal(t, 1, m.Current().Statistics.DontKnowCount)
	assert.False(t, m.revealed)
	assert.Equal(t, 3, deck.loads)
}

func TestModelQuitKeys(t *testing.T) {
	deck := &fakeDeck{}
	m := newTestModel(deck, &fakeRecorder{deck: deck}, nil)
	for _, msg := range []tea.KeyMsg{keyRunes("q"), {Type: tea.KeyCtrlC}} {
		_, cmd := m.Update(msg)
		require.NotNil(t, cmd)
		_, ok := cmd().(tea.QuitMsg)
		assert.True(t, ok)
	}
}

func TestModelEmptyDeck(t *testing.T) {
	deck := &fakeDeck{cards: []*model.Card{newCard("a", "Haus", "nouns")}}
	m := newTestModel(deck, &fakeRecorder{deck: deck}, []string{"verbs"})
	assert.Nil(t, m.Current())
	assert.Equal(t, []string{"verbs"}, deck.gotTags)
	assert.Contains(t, m.View(), "No cards tagged verbs.")

	m.Update(tea.KeyMsg{Type: tea.KeySpace})
	assert.False(t, m.revealed)
}

func TestModelRecordErrorIsShown(t *testing.T) {
	deck := &fakeDeck{cards: []*model.Card{newCard("a", "Haus")}}
	rec := &fakeRecorder{deck: deck, err: errors.New("disk full")}
	m := newTestModel(deck, rec, nil)

	m.Update(tea.KeyMsg{Type: tea.KeySpace})
	m.Update(keyRunes("j"))
	assert.Equal(t, 0, m.dontKnow)
	require.Error(t, m.err)
	assert.Contains(t, m.View(), "disk full")
}

func TestModelInvalidCardReportsError(t *testing.T) {
	broken := newCard("a", "Haus")
	broken.Statistics = nil
	deck := &fakeDeck{cards: []*model.Card{broken}}
	m := newTestModel(deck, &fakeRecorder{deck: deck}, nil)
	assert.Nil(t, m.Current())
	require.Error(t, m.err)
	assert.True(t, errors.Is(m.err, selection.ErrInvalidInput))
}

func TestRenderFooterFormats(t *testing.T) {
	card := newCard("a", "Haus")
	card.Statistics.KnowCount = 2
	card.Statistics.DontKnowCount = 1
	m := &Model{current: card, cards: []*model.Card{card}, known: 3, dontKnow: 4}
	out := m.renderFooter()
	for _, needle := range []string{"Session 3 known · 4 not known", "Card 2/1", "Weight 0.50", "Deck 1"} {
		if !strings.Contains(out, needle) {
			t.Fatalf("footer missing %q: %s", needle, out)
		}
	}
}
