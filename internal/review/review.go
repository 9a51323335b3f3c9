// Package review records know/don't-know answers against card statistics.
package review

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/wordflash/internal/model"
)

//go:generate mockgen -source=review.go -destination=mock/store_mock.go -package=mock_review

// Store is the persistence needed by the Tracker.
type Store interface {
	GetCard(ctx context.Context, id string) (*model.Card, error)
	RecordAnswer(ctx context.Context, id string, known bool, at time.Time) error
}

// Tracker mutates and reads per-card statistics.
type Tracker struct {
	store Store
	now   func() time.Time
	log   *zap.Logger
}

// NewTracker returns a Tracker using the wall clock.
func NewTracker(store Store, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{store: store, now: time.Now, log: log}
}

// WithClock replaces the clock used to stamp answers.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// RecordKnown increments the know counter of the card.
func (t *Tracker) RecordKnown(ctx context.Context, id string) error {
	return t.record(ctx, id, true)
}

// RecordDontKnow increments the don't-know counter of the card.
func (t *Tracker) RecordDontKnow(ctx context.Context, id string) error {
	return t.record(ctx, id, false)
}

// ReadStatistics returns a copy of the card's statistics.
func (t *Tracker) ReadStatistics(ctx context.Context, id string) (model.Statistics, error) {
	card, err := t.store.GetCard(ctx, id)
	if err != nil {
		return model.Statistics{}, err
	}
	if card.Statistics == nil {
		return model.Statistics{}, nil
	}
	return card.Statistics.Clone(), nil
}

func (t *Tracker) record(ctx context.Context, id string, known bool) error {
	card, err := t.store.GetCard(ctx, id)
	if err != nil {
		return err
	}
	at := t.now().Truncate(time.Millisecond)
	// Keep LastReviewed and UpdatedAt non-decreasing across clock adjustments.
	if st := card.Statistics; st != nil && st.LastReviewed != nil && at.Before(*st.LastReviewed) {
		at = *st.LastReviewed
	}
	if at.Before(card.UpdatedAt) {
		at = card.UpdatedAt
	}
	if err := t.store.RecordAnswer(ctx, id, known, at); err != nil {
		return err
	}
	t.log.Debug("answer recorded",
		zap.String("card_id", id),
		zap.Bool("known", known),
		zap.Time("at", at),
	)
	return nil
}
