// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/wordflash/internal/model"
	"github.com/verte-zerg/wordflash/internal/selection"
)

const sparkChars = " .:-=+*#%@"

// Summary aggregates statistics over a set of cards.
type Summary struct {
	Cards      int
	Fresh      int
	Mastered   int
	Struggling int
	Known      int
	DontKnow   int
}

// Reviews returns the number of recorded answers.
func (s Summary) Reviews() int {
	return s.Known + s.DontKnow
}

// Accuracy returns the share of "knew it" answers in [0, 1].
func (s Summary) Accuracy() float64 {
	return Accuracy(s.Known, s.DontKnow)
}

// Accuracy returns known / (known + dontKnow), or 0 without answers.
func Accuracy(known, dontKnow int) float64 {
	total := known + dontKnow
	if total <= 0 {
		return 0
	}
	return float64(known) / float64(total)
}

// Summarize computes a Summary. A card is mastered when it was known more
// often than not, struggling when the opposite holds.
func Summarize(cards []*model.Card) Summary {
	var s Summary
	for _, card := range cards {
		s.Cards++
		st := card.Statistics
		if st == nil || st.Reviews() == 0 {
			s.Fresh++
			continue
		}
		s.Known += st.KnowCount
		s.DontKnow += st.DontKnowCount
		switch {
		case st.KnowCount > st.DontKnowCount:
			s.Mastered++
		case st.KnowCount < st.DontKnowCount:
			s.Struggling++
		}
	}
	return s
}

// DailyAccuracy groups reviews by calendar day in loc, oldest first.
// Days without reviews between the first and last review are included empty.
func DailyAccuracy(reviews []model.Review, loc *time.Location) []model.DailyAccuracy {
	if loc == nil {
		loc = time.Local
	}
	var days []model.DailyAccuracy
	for _, r := range reviews {
		t := r.ReviewedAt.In(loc)
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		if len(days) == 0 {
			days = append(days, model.DailyAccuracy{Day: day})
		}
		for days[len(days)-1].Day.Before(day) {
			prev := days[len(days)-1].Day
			next := time.Date(prev.Year(), prev.Month(), prev.Day()+1, 0, 0, 0, 0, loc)
			days = append(days, model.DailyAccuracy{Day: next})
		}
		last := &days[len(days)-1]
		if r.Known {
			last.Known++
		} else {
			last.DontKnow++
		}
	}
	return days
}

// WindowAccuracy returns, for each day, the accuracy of all answers given in
// the window of calendar days ending on it. days must be contiguous.
func WindowAccuracy(days []model.DailyAccuracy, window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(days))
	var known, dontKnow int
	for i, d := range days {
		known += d.Known
		dontKnow += d.DontKnow
		if i >= window {
			known -= days[i-window].Known
			dontKnow -= days[i-window].DontKnow
		}
		out[i] = Accuracy(known, dontKnow)
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	last := len(sparkChars) - 1
	for _, v := range values {
		idx := int(math.Round((v - lo) / (hi - lo) * float64(last)))
		idx = max(0, min(idx, last))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints a plain-text summary.
func RenderSummary(w io.Writer, s Summary) error {
	lines := []string{
		"Summary",
		fmt.Sprintf("Cards: %d", s.Cards),
		fmt.Sprintf("Not yet reviewed: %d", s.Fresh),
		fmt.Sprintf("Mastered: %d", s.Mastered),
		fmt.Sprintf("Struggling: %d", s.Struggling),
		fmt.Sprintf("Answers: %d (%d known, %d not known)", s.Reviews(), s.Known, s.DontKnow),
		fmt.Sprintf("Accuracy: %.1f%%", s.Accuracy()*100),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// CardRows formats cards as table rows: word, translation, tags, known,
// not known and selection weight.
func CardRows(cards []*model.Card) (headers []string, rows [][]string) {
	headers = []string{"Word", "Translation", "Tags", "Known", "Not known", "Weight", "ID"}
	rows = make([][]string, 0, len(cards))
	weights, werr := selection.Weights(cards)
	for i, card := range cards {
		known, dontKnow, weight := "-", "-", "-"
		if st := card.Statistics; st != nil {
			known = fmt.Sprintf("%d", st.KnowCount)
			dontKnow = fmt.Sprintf("%d", st.DontKnowCount)
		}
		// One invalid card fails the batch; fall back to per-card weights.
		if werr == nil {
			weight = fmt.Sprintf("%.3f", weights[i])
		} else if w, err := selection.Weight(card); err == nil {
			weight = fmt.Sprintf("%.3f", w)
		}
		rows = append(rows, []string{
			card.Word,
			card.Translation,
			strings.Join(card.Tags, ","),
			known,
			dontKnow,
			weight,
			card.ID,
		})
	}
	return headers, rows
}

// RenderCardTable prints cards as an aligned table no wider than width
// (unbounded when width <= 0).
func RenderCardTable(w io.Writer, cards []*model.Card, width int) error {
	if len(cards) == 0 {
		_, err := fmt.Fprintln(w, "No cards found.")
		return err
	}
	headers, rows := CardRows(cards)
	rightAlign := map[int]bool{3: true, 4: true, 5: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, truncate(line, width)); err != nil {
			return err
		}
	}
	return nil
}
