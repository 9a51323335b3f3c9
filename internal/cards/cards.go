// Package cards manages flashcard creation, editing, deletion and imports.
package cards

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/wordflash/internal/model"
	"github.com/verte-zerg/wordflash/internal/validator"
)

// ErrInvalidMode is returned for an unknown import mode.
var ErrInvalidMode = errors.New("cards: mode must be either \"merge\" or \"overwrite\"")

// Mode selects how imported cards are combined with the existing ones.
type Mode string

const (
	// ModeMerge keeps existing cards and appends imported ones whose
	// word|translation pair is not present yet.
	ModeMerge Mode = "merge"
	// ModeOverwrite replaces the whole collection.
	ModeOverwrite Mode = "overwrite"
)

// ParseMode validates a user-supplied mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeMerge, ModeOverwrite:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrInvalidMode, s)
	}
}

// Store is the persistence needed by the Manager.
type Store interface {
	LoadCards(ctx context.Context) ([]*model.Card, error)
	SaveCards(ctx context.Context, cards []*model.Card) error
	InsertCards(ctx context.Context, cards ...*model.Card) error
	GetCard(ctx context.Context, id string) (*model.Card, error)
	UpdateCard(ctx context.Context, card *model.Card) error
	DeleteCard(ctx context.Context, id string) (bool, error)
}

// Manager implements card CRUD on top of a Store.
type Manager struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
	newID func() string
}

// NewManager returns a Manager generating UUIDv4 identifiers.
func NewManager(store Store, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		store: store,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// WithClock replaces the clock used for timestamps.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// NewCard builds a validated card with zeroed statistics without storing it.
func (m *Manager) NewCard(input model.CardInput) (*model.Card, error) {
	input = input.Normalize()
	if err := validator.ValidateStruct(input); err != nil {
		return nil, fmt.Errorf("card %w", err)
	}
	now := m.timestamp()
	return &model.Card{
		ID:          m.newID(),
		Word:        input.Word,
		Translation: input.Translation,
		Tags:        input.Tags,
		Language:    input.Language,
		Statistics:  &model.Statistics{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Create validates input and stores a new card.
func (m *Manager) Create(ctx context.Context, input model.CardInput) (*model.Card, error) {
	card, err := m.NewCard(input)
	if err != nil {
		return nil, err
	}
	if err := m.store.InsertCards(ctx, card); err != nil {
		return nil, fmt.Errorf("failed to save card: %w", err)
	}
	m.log.Info("card created", zap.String("card_id", card.ID), zap.String("word", card.Word))
	return card, nil
}

// Update replaces the editable fields of a card. Statistics and CreatedAt
// are preserved.
func (m *Manager) Update(ctx context.Context, id string, input model.CardInput) (*model.Card, error) {
	input = input.Normalize()
	if err := validator.ValidateStruct(input); err != nil {
		return nil, fmt.Errorf("card %w", err)
	}
	existing, err := m.store.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := existing.Clone()
	updated.Word = input.Word
	updated.Translation = input.Translation
	updated.Tags = input.Tags
	updated.Language = input.Language
	updated.UpdatedAt = m.timestamp()
	if updated.UpdatedAt.Before(existing.UpdatedAt) {
		updated.UpdatedAt = existing.UpdatedAt
	}
	if err := m.store.UpdateCard(ctx, updated); err != nil {
		return nil, err
	}
	m.log.Info("card updated", zap.String("card_id", id))
	return updated, nil
}

// Delete removes a card. It reports false when no card had the identifier.
func (m *Manager) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := m.store.DeleteCard(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete card: %w", err)
	}
	if removed {
		m.log.Info("card deleted", zap.String("card_id", id))
	}
	return removed, nil
}

// Get returns a single card.
func (m *Manager) Get(ctx context.Context, id string) (*model.Card, error) {
	return m.store.GetCard(ctx, id)
}

// All returns every card.
func (m *Manager) All(ctx context.Context) ([]*model.Card, error) {
	return m.store.LoadCards(ctx)
}

// ByTags returns cards carrying at least one of tags. An empty tag list
// returns every card.
func (m *Manager) ByTags(ctx context.Context, tags []string) ([]*model.Card, error) {
	all, err := m.store.LoadCards(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByTags(all, tags), nil
}

// FilterByTags keeps cards carrying at least one of tags.
func FilterByTags(cards []*model.Card, tags []string) []*model.Card {
	if len(tags) == 0 {
		return cards
	}
	out := make([]*model.Card, 0, len(cards))
	for _, card := range cards {
		if card.HasTag(tags) {
			out = append(out, card)
		}
	}
	return out
}

// Tags returns the sorted set of tags used by any card.
func (m *Manager) Tags(ctx context.Context) ([]string, error) {
	all, err := m.store.LoadCards(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	for _, card := range all {
		for _, tag := range card.Tags {
			seen[tag] = struct{}{}
		}
	}
	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags, nil
}

// Append stores cards after the existing ones without de-duplication.
func (m *Manager) Append(ctx context.Context, cards []*model.Card) error {
	for _, card := range cards {
		m.prepare(card)
	}
	if err := m.store.InsertCards(ctx, cards...); err != nil {
		return fmt.Errorf("failed to save cards: %w", err)
	}
	m.log.Info("cards appended", zap.Int("count", len(cards)))
	return nil
}

// Import combines cards with the stored collection according to mode and
// returns the resulting collection.
func (m *Manager) Import(ctx context.Context, imported []*model.Card, mode Mode) ([]*model.Card, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	for _, card := range imported {
		m.prepare(card)
	}

	var result []*model.Card
	if mode == ModeOverwrite {
		result = Dedupe(imported)
	} else {
		existing, err := m.store.LoadCards(ctx)
		if err != nil {
			return nil, err
		}
		result = Merge(existing, imported)
	}
	if err := m.store.SaveCards(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to save cards: %w", err)
	}
	m.log.Info("cards imported",
		zap.String("mode", string(mode)),
		zap.Int("imported", len(imported)),
		zap.Int("total", len(result)),
	)
	return result, nil
}

// Merge appends imported cards whose word|translation pair is not already
// present, keeping existing cards first. Imported cards reusing an existing
// identifier are skipped as well.
func Merge(existing, imported []*model.Card) []*model.Card {
	merged := make([]*model.Card, 0, len(existing)+len(imported))
	merged = append(merged, existing...)
	keys := make(map[string]struct{}, len(existing)+len(imported))
	ids := make(map[string]struct{}, len(existing)+len(imported))
	for _, card := range existing {
		keys[card.Key()] = struct{}{}
		ids[card.ID] = struct{}{}
	}
	for _, card := range imported {
		key := card.Key()
		if _, ok := keys[key]; ok {
			continue
		}
		if _, ok := ids[card.ID]; ok {
			continue
		}
		keys[key] = struct{}{}
		ids[card.ID] = struct{}{}
		merged = append(merged, card)
	}
	return merged
}

// Dedupe drops cards whose identifier already appeared earlier in the slice.
func Dedupe(cards []*model.Card) []*model.Card {
	seen := make(map[string]struct{}, len(cards))
	out := make([]*model.Card, 0, len(cards))
	for _, card := range cards {
		if _, ok := seen[card.ID]; ok {
			continue
		}
		seen[card.ID] = struct{}{}
		out = append(out, card)
	}
	return out
}

// prepare fills in what older or hand-written imports may lack.
func (m *Manager) prepare(card *model.Card) {
	if card.ID == "" {
		card.ID = m.newID()
	}
	if card.Statistics == nil {
		card.Statistics = &model.Statistics{}
	}
	if card.CreatedAt.IsZero() {
		card.CreatedAt = m.timestamp()
	}
	if card.UpdatedAt.Before(card.CreatedAt) {
		card.UpdatedAt = card.CreatedAt
	}
}

func (m *Manager) timestamp() time.Time {
	return m.now().Truncate(time.Millisecond)
}
