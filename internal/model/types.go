// Package model defines shared data structures.
package model

import (
	"strings"
	"time"
)

// Card is a single word/translation learning unit.
type Card struct {
	ID          string
	Word        string
	Translation string
	Tags        []string
	Language    string
	Statistics  *Statistics
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Statistics holds the review counters of a card.
type Statistics struct {
	KnowCount     int
	DontKnowCount int
	LastReviewed  *time.Time
}

// Clone returns a deep copy of the statistics.
func (s Statistics) Clone() Statistics {
	out := Statistics{
		KnowCount:     s.KnowCount,
		DontKnowCount: s.DontKnowCount,
	}
	if s.LastReviewed != nil {
		t := *s.LastReviewed
		out.LastReviewed = &t
	}
	return out
}

// Reviews returns the total number of recorded answers.
func (s Statistics) Reviews() int {
	return s.KnowCount + s.DontKnowCount
}

// Key identifies a card for de-duplication during imports.
func (c *Card) Key() string {
	return c.Word + "|" + c.Translation
}

// HasTag reports whether the card carries any of the given tags.
func (c *Card) HasTag(tags []string) bool {
	for _, have := range c.Tags {
		for _, want := range tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy of the card.
func (c *Card) Clone() *Card {
	out := *c
	out.Tags = append([]string(nil), c.Tags...)
	if c.Statistics != nil {
		stats := c.Statistics.Clone()
		out.Statistics = &stats
	}
	return &out
}

// CardInput carries the user-editable fields of a card.
type CardInput struct {
	Word        string   `validate:"required"`
	Translation string   `validate:"required"`
	Tags        []string `validate:"dive,required"`
	Language    string
}

// Normalize trims surrounding whitespace from every field.
func (in CardInput) Normalize() CardInput {
	out := CardInput{
		Word:        strings.TrimSpace(in.Word),
		Translation: strings.TrimSpace(in.Translation),
		Language:    strings.TrimSpace(in.Language),
	}
	if len(in.Tags) > 0 {
		out.Tags = make([]string, 0, len(in.Tags))
		for _, tag := range in.Tags {
			out.Tags = append(out.Tags, strings.TrimSpace(tag))
		}
	}
	return out
}

// Review is a single recorded answer.
type Review struct {
	CardID     string
	Known      bool
	ReviewedAt time.Time
}

// Settings stores user preferences kept alongside the cards.
type Settings struct {
	Language     string
	SelectedTags []string
}

// DefaultSettings returns the settings used when none are stored.
func DefaultSettings() Settings {
	return Settings{Language: "en"}
}

// StudyConfig defines study session settings.
type StudyConfig struct {
	Tags []string
	Seed int64
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Tags        []string
	Since       *time.Time
	CurveWindow int
}

// DailyAccuracy aggregates answers for one calendar day.
type DailyAccuracy struct {
	Day      time.Time
	Known    int
	DontKnow int
}
