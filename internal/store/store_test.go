package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/wordflash/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "wordflash.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func testCard(id, word string, tags ...string) *model.Card {
	now := time.UnixMilli(1_700_000_000_000)
	return &model.Card{
		ID:          id,
		Word:        word,
		Translation: word + "-t",
		Tags:        tags,
		Language:    "en",
		Statistics:  &model.Statistics{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestInsertAndLoadCardsKeepsOrder(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertCards(ctx, testCard("b", "beta", "x", "y"), testCard("a", "alpha")))
	require.NoError(t, st.InsertCards(ctx, testCard("c", "gamma", "y")))

	cards, err := st.LoadCards(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{cards[0].ID, cards[1].ID, cards[2].ID})
	assert.Equal(t, []string{"x", "y"}, cards[0].Tags)
	assert.Empty(t, cards[1].Tags)
	require.NotNil(t, cards[0].Statistics)
	assert.Nil(t, cards[0].Statistics.LastReviewed)
	assert.True(t, cards[0].CreatedAt.Equal(time.UnixMilli(1_700_000_000_000)))
}

func TestGetCardNotFound(t *testing.T) {
	st := openTestStore(t)
	_, err := st.GetCard(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestRecordAnswer(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.InsertCards(ctx, testCard("a", "alpha"), testCard("b", "beta")))

	at := time.UnixMilli(1_700_000_100_000)
	require.NoError(t, st.RecordAnswer(ctx, "a", true, at))
	require.NoError(t, st.RecordAnswer(ctx, "a", false, at.Add(time.Second)))
	require.NoError(t, st.RecordAnswer(ctx, "a", true, at.Add(2*time.Second)))

	got, err := st.GetCard(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Statistics.KnowCount)
	assert.Equal(t, 1, got.Statistics.DontKnowCount)
	require.NotNil(t, got.Statistics.LastReviewed)
	assert.True(t, got.Statistics.LastReviewed.Equal(at.Add(2*time.Second)))
	assert.True(t, got.UpdatedAt.Equal(at.Add(2*time.Second)))

	other, err := st.GetCard(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, model.Statistics{}, *other.Statistics)

	reviews, err := st.ListReviews(ctx, nil)
	require.NoError(t, err)
	require.Len(t, reviews, 3)
	assert.True(t, reviews[0].Known)
	assert.False(t, reviews[1].Known)

	since := at.Add(time.Second)
	recent, err := st.ListReviews(ctx, &since)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestRecordAnswerNotFound(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.InsertCards(ctx, testCard("a", "alpha")))

	err := st.RecordAnswer(ctx, "missing", true, time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotFound))

	reviews, err := st.ListReviews(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestUpdateCardPreservesStatistics(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.InsertCards(ctx, testCard("a", "alpha", "old")))
	require.NoError(t, st.RecordAnswer(ctx, "a", false, time.UnixMilli(1_700_000_200_000)))

	edited := testCard("a", "ALPHA", "new")
	edited.Statistics = nil
	edited.UpdatedAt = time.UnixMilli(1_700_000_300_000)
	require.NoError(t, st.UpdateCard(ctx, edited))

	got, err := st.GetCard(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "ALPHA", got.Word)
	assert.Equal(t, []string{"new"}, got.Tags)
	assert.Equal(t, 1, got.Statistics.DontKnowCount)
	assert.True(t, got.CreatedAt.Equal(time.UnixMilli(1_700_000_000_000)))

	err = st.UpdateCard(ctx, testCard("missing", "x"))
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestDeleteCardCascades(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.InsertCards(ctx, testCard("a", "alpha", "t"), testCard("b", "beta")))
	require.NoError(t, st.RecordAnswer(ctx, "a", true, time.Now()))

	removed, err := st.DeleteCard(ctx, "a")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = st.DeleteCard(ctx, "a")
	require.NoError(t, err)
	assert.False(t, removed)

	reviews, err := st.ListReviews(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, reviews)

	cards, err := st.LoadCards(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "b", cards[0].ID)
}

func TestSaveCardsReplacesCollection(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.InsertCards(ctx, testCard("a", "alpha"), testCard("b", "beta")))
	require.NoError(t, st.RecordAnswer(ctx, "a", true, time.Now()))
	require.NoError(t, st.RecordAnswer(ctx, "b", true, time.Now()))

	cards, err := st.LoadCards(ctx)
	require.NoError(t, err)
	cards[0].Word = "alpha2"
	next := []*model.Card{testCard("c", "gamma", "z"), cards[0]}
	require.NoError(t, st.SaveCards(ctx, next))

	loaded, err := st.LoadCards(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "c", loaded[0].ID)
	assert.Equal(t, "alpha2", loaded[1].Word)
	assert.Equal(t, 1, loaded[1].Statistics.KnowCount)

	reviews, err := st.ListReviews(ctx, nil)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "a", reviews[0].CardID)

	require.NoError(t, st.SaveCards(ctx, nil))
	loaded, err = st.LoadCards(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSaveCardsLargeCollection(t *testing.T) {
	if testing.Short() {
		t.Skip("large collection")
	}
	st := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.InsertCards(ctx, testCard("old", "old")))

	const count = 33000
	cards := make([]*model.Card, 0, count)
	for i := 0; i < count; i++ {
		cards = append(cards, testCard(fmt.Sprintf("id-%05d", i), fmt.Sprintf("word-%05d", i)))
	}
	require.NoError(t, st.SaveCards(ctx, cards))

	loaded, err := st.LoadCards(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, count)
	assert.Equal(t, "id-00000", loaded[0].ID)
	assert.Equal(t, "id-32999", loaded[count-1].ID)
	_, err = st.GetCard(ctx, "old")
	assert.True(t, errors.Is(err, model.ErrNotFound))

	require.NoError(t, st.SaveCards(ctx, cards[:2]))
	loaded, err = st.LoadCards(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

func TestSettingsDefaultsAndRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	settings, err := st.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(), settings)

	want := model.Settings{Language: "de", SelectedTags: []string{"verbs", "food"}}
	require.NoError(t, st.SaveSettings(ctx, want))
	got, err := st.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, st.ClearAll(ctx))
	got, err = st.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(), got)
}

func TestClearAllRemovesEverything(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.InsertCards(ctx, testCard("a", "alpha", "t")))
	require.NoError(t, st.RecordAnswer(ctx, "a", true, time.Now()))

	require.NoError(t, st.ClearAll(ctx))

	cards, err := st.LoadCards(ctx)
	require.NoError(t, err)
	assert.Empty(t, cards)
	reviews, err := st.ListReviews(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, reviews)
}
