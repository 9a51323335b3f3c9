package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/wordflash/internal/model"
)

func TestSummarize(t *testing.T) {
	cards := []*model.Card{
		{Word: "a", Statistics: &model.Statistics{}},
		{Word: "b", Statistics: &model.Statistics{KnowCount: 3, DontKnowCount: 1}},
		{Word: "c", Statistics: &model.Statistics{KnowCount: 1, DontKnowCount: 2}},
		{Word: "d", Statistics: &model.Statistics{KnowCount: 2, DontKnowCount: 2}},
		{Word: "e"},
	}
	s := Summarize(cards)
	assert.Equal(t, Summary{Cards: 5, Fresh: 2, Mastered: 1, Struggling: 1, Known: 6, DontKnow: 5}, s)
	assert.Equal(t, 11, s.Reviews())
	assert.InDelta(t, 6.0/11.0, s.Accuracy(), 1e-9)
}

func TestAccuracyWithoutAnswers(t *testing.T) {
	assert.Equal(t, 0.0, Accuracy(0, 0))
	assert.Equal(t, 1.0, Accuracy(2, 0))
}

func TestDailyAccuracyGroupsByDay(t *testing.T) {
	loc := time.UTC
	day1 := time.Date(2024, 3, 1, 9, 0, 0, 0, loc)
	day2 := time.Date(2024, 3, 3, 23, 59, 0, 0, loc)
	reviews := []model.Review{
		{CardID: "a", Known: true, ReviewedAt: day1},
		{CardID: "b", Known: false, ReviewedAt: day1.Add(time.Hour)},
		{CardID: "a", Known: true, ReviewedAt: day2},
	}
	days := DailyAccuracy(reviews, loc)
	require.Len(t, days, 3)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, loc), days[0].Day)
	assert.Equal(t, 1, days[0].Known)
	assert.Equal(t, 1, days[0].DontKnow)
	assert.Equal(t, model.DailyAccuracy{Day: time.Date(2024, 3, 2, 0, 0, 0, 0, loc)}, days[1])
	assert.Equal(t, time.Date(2024, 3, 3, 0, 0, 0, 0, loc), days[2].Day)
	assert.Equal(t, 1, days[2].Known)
	assert.Empty(t, DailyAccuracy(nil, loc))
}

func TestWindowAccuracyCountsCalendarDays(t *testing.T) {
	day := func(known, dontKnow int) model.DailyAccuracy {
		return model.DailyAccuracy{Known: known, DontKnow: dontKnow}
	}
	days := []model.DailyAccuracy{day(1, 0), day(0, 1), day(0, 0), day(0, 0), day(3, 1)}

	got := WindowAccuracy(days, 2)
	assert.Equal(t, []float64{1, 0.5, 0, 0, 0.75}, got)

	got = WindowAccuracy(days, 3)
	assert.Equal(t, []float64{1, 0.5, 0.5, 0, 0.75}, got)

	same := WindowAccuracy(days[:2], 1)
	assert.Equal(t, []float64{1, 0}, same)
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, "", Sparkline(nil))
	line := Sparkline([]float64{0, 0.5, 1})
	require.Len(t, line, 3)
	assert.Equal(t, byte(' '), line[0])
	assert.Equal(t, byte('@'), line[2])
	assert.Equal(t, "++", Sparkline([]float64{0.4, 0.4}))
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	err := RenderSummary(&buf, Summary{Cards: 2, Fresh: 1, Mastered: 1, Known: 3, DontKnow: 1})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Cards: 2")
	assert.Contains(t, out, "Accuracy: 75.0%")
}

func TestRenderCardTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderCardTable(&buf, nil, 0))
	assert.Equal(t, "No cards found.\n", buf.String())

	buf.Reset()
	cards := []*model.Card{{
		ID:          "id-1",
		Word:        "Haus",
		Translation: "house",
		Tags:        []string{"nouns", "basic"},
		Statistics:  &model.Statistics{KnowCount: 1},
	}}
	require.NoError(t, RenderCardTable(&buf, cards, 0))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Word"))
	assert.Contains(t, lines[1], "nouns,basic")
	assert.Contains(t, lines[1], "0.500")

	buf.Reset()
	require.NoError(t, RenderCardTable(&buf, cards, 10))
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.LessOrEqual(t, displayWidth(line), 10)
	}
}

func TestCardRowsWeights(t *testing.T) {
	cards := []*model.Card{
		{ID: "1", Word: "Haus", Translation: "house", Statistics: &model.Statistics{KnowCount: 2, DontKnowCount: 1}},
		{ID: "2", Word: "Baum", Translation: "tree", Statistics: &model.Statistics{}},
	}
	_, rows := CardRows(cards)
	require.Len(t, rows, 2)
	assert.Equal(t, "0.500", rows[0][5])
	assert.Equal(t, "1.000", rows[1][5])

	cards = append(cards, &model.Card{ID: "3", Word: "Tisch", Translation: "table"})
	_, rows = CardRows(cards)
	require.Len(t, rows, 3)
	assert.Equal(t, "0.500", rows[0][5])
	assert.Equal(t, "-", rows[2][5])
	assert.Equal(t, "-", rows[2][3])
}
