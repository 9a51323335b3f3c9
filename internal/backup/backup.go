// Package backup writes and reads JSON backups of the card collection.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/verte-zerg/wordflash/internal/model"
)

// Version is written into every backup.
const Version = "1.0"

// ErrInvalidFormat is returned for documents that are not card backups.
var ErrInvalidFormat = errors.New("backup: invalid format")

// Backup is a decoded backup document.
type Backup struct {
	Version   string
	Timestamp time.Time
	Cards     []*model.Card
}

type document struct {
	Version   string      `json:"version"`
	Timestamp int64       `json:"timestamp"`
	Cards     *[]cardJSON `json:"cards"`
}

type cardJSON struct {
	ID          string          `json:"id"`
	Word        string          `json:"word"`
	Translation string          `json:"translation"`
	Tags        []string        `json:"tags"`
	Language    string          `json:"language"`
	Statistics  *statisticsJSON `json:"statistics,omitempty"`
	CreatedAt   int64           `json:"createdAt"`
	UpdatedAt   int64           `json:"updatedAt"`
}

type statisticsJSON struct {
	KnowCount     int    `json:"knowCount"`
	DontKnowCount int    `json:"dontKnowCount"`
	LastReviewed  *int64 `json:"lastReviewed"`
}

// Write encodes cards as an indented backup document stamped with now.
func Write(w io.Writer, cards []*model.Card, now time.Time) error {
	out := make([]cardJSON, 0, len(cards))
	for _, card := range cards {
		out = append(out, toJSON(card))
	}
	doc := document{
		Version:   Version,
		Timestamp: now.UnixMilli(),
		Cards:     &out,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

// Read decodes a backup document. Cards without statistics are returned with
// nil Statistics so the caller decides how to fill them in.
func Read(r io.Reader) (Backup, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Backup{}, fmt.Errorf("failed to parse backup file: %w", err)
	}
	if doc.Cards == nil {
		return Backup{}, fmt.Errorf("%w: missing or invalid cards array", ErrInvalidFormat)
	}
	b := Backup{
		Version: doc.Version,
		Cards:   make([]*model.Card, 0, len(*doc.Cards)),
	}
	if doc.Timestamp > 0 {
		b.Timestamp = time.UnixMilli(doc.Timestamp)
	}
	for i, c := range *doc.Cards {
		card, err := fromJSON(c)
		if err != nil {
			return Backup{}, fmt.Errorf("%w: card %d: %v", ErrInvalidFormat, i+1, err)
		}
		b.Cards = append(b.Cards, card)
	}
	return b, nil
}

func toJSON(card *model.Card) cardJSON {
	tags := card.Tags
	if tags == nil {
		tags = []string{}
	}
	out := cardJSON{
		ID:          card.ID,
		Word:        card.Word,
		Translation: card.Translation,
		Tags:        tags,
		Language:    card.Language,
		CreatedAt:   card.CreatedAt.UnixMilli(),
		UpdatedAt:   card.UpdatedAt.UnixMilli(),
	}
	if st := card.Statistics; st != nil {
		out.Statistics = &statisticsJSON{
			KnowCount:     st.KnowCount,
			DontKnowCount: st.DontKnowCount,
		}
		if st.LastReviewed != nil {
			ms := st.LastReviewed.UnixMilli()
			out.Statistics.LastReviewed = &ms
		}
	}
	return out
}

func fromJSON(c cardJSON) (*model.Card, error) {
	word := strings.TrimSpace(c.Word)
	translation := strings.TrimSpace(c.Translation)
	if word == "" || translation == "" {
		return nil, errors.New("missing word or translation")
	}
	card := &model.Card{
		ID:          c.ID,
		Word:        word,
		Translation: translation,
		Tags:        c.Tags,
		Language:    c.Language,
	}
	if len(card.Tags) == 0 {
		card.Tags = nil
	}
	if c.CreatedAt > 0 {
		card.CreatedAt = time.UnixMilli(c.CreatedAt)
	}
	if c.UpdatedAt > 0 {
		card.UpdatedAt = time.UnixMilli(c.UpdatedAt)
	}
	if st := c.Statistics; st != nil {
		if st.KnowCount < 0 || st.DontKnowCount < 0 {
			return nil, errors.New("negative statistics counter")
		}
		answered := st.KnowCount+st.DontKnowCount > 0
		if answered != (st.LastReviewed != nil) {
			return nil, errors.New("lastReviewed must be set exactly when an answer was recorded")
		}
		card.Statistics = &model.Statistics{
			KnowCount:     st.KnowCount,
			DontKnowCount: st.DontKnowCount,
		}
		if st.LastReviewed != nil {
			t := time.UnixMilli(*st.LastReviewed)
			card.Statistics.LastReviewed = &t
		}
	}
	return card, nil
}
