package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/verte-zerg/wordflash/internal/cards"
	"github.com/verte-zerg/wordflash/internal/model"
)

const (
	defaultCurveWindow = 7
	hardestCount       = 10
	topTagCount        = 5
)

// Source provides the data a report is built from.
type Source interface {
	LoadCards(ctx context.Context) ([]*model.Card, error)
	ListReviews(ctx context.Context, since *time.Time) ([]model.Review, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Cards   []*model.Card
	Summary Summary
	Days    []model.DailyAccuracy
	Curve   []float64
	Hardest []*model.Card
	TopTags []TagCount
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, src Source, cfg model.StatsConfig) (Report, error) {
	all, err := src.LoadCards(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load cards: %w", err)
	}
	selected := cards.FilterByTags(all, cfg.Tags)

	reviews, err := src.ListReviews(ctx, cfg.Since)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list reviews: %w", err)
	}
	if len(cfg.Tags) > 0 {
		reviews = reviewsFor(reviews, selected)
	}

	days := DailyAccuracy(reviews, time.Local)
	window := cfg.CurveWindow
	if window <= 0 {
		window = defaultCurveWindow
	}

	return Report{
		Cards:   selected,
		Summary: Summarize(selected),
		Days:    days,
		Curve:   WindowAccuracy(days, window),
		Hardest: Hardest(selected, hardestCount),
		TopTags: TopTags(selected, topTagCount),
	}, nil
}

func reviewsFor(reviews []model.Review, selected []*model.Card) []model.Review {
	ids := make(map[string]struct{}, len(selected))
	for _, card := range selected {
		ids[card.ID] = struct{}{}
	}
	out := make([]model.Review, 0, len(reviews))
	for _, r := range reviews {
		if _, ok := ids[r.CardID]; ok {
			out = append(out, r)
		}
	}
	return out
}
