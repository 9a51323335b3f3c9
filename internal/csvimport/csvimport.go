// Package csvimport reads flashcards from CSV files.
//
// The first row is a header naming the columns. "word" and "translation" are
// required; "tags" (semicolon separated) and "language" are optional. Column
// names are matched case-insensitively and may appear in any order.
package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/wordflash/internal/model"
)

// DefaultLanguage is assigned to rows without a language value.
const DefaultLanguage = "en"

var (
	// ErrEmpty is returned for a file without any rows.
	ErrEmpty = errors.New("csv: file is empty")
	// ErrMissingColumns is returned when the header lacks word or translation.
	ErrMissingColumns = errors.New(`csv: must contain "word" and "translation" columns`)
	// ErrNoCards is returned when no data row produced a valid card.
	ErrNoCards = errors.New("csv: no valid cards found")
)

// Parser turns CSV rows into new cards with zeroed statistics.
type Parser struct {
	log   *zap.Logger
	now   func() time.Time
	newID func() string
}

// NewParser returns a Parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log, now: time.Now, newID: uuid.NewString}
}

type columns struct {
	word        int
	translation int
	tags        int
	language    int
}

// Parse reads every card from r. Rows missing a word or translation are
// skipped with a warning.
func (p *Parser) Parse(r io.Reader) ([]*model.Card, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	cols := parseHeader(header)
	if cols.word < 0 || cols.translation < 0 {
		return nil, ErrMissingColumns
	}

	now := p.now().Truncate(time.Millisecond)
	var cards []*model.Card
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		line, _ := reader.FieldPos(0)
		word := field(record, cols.word)
		translation := field(record, cols.translation)
		if word == "" || translation == "" {
			p.log.Warn("skipping CSV row: missing word or translation", zap.Int("line", line))
			continue
		}
		language := field(record, cols.language)
		if language == "" {
			language = DefaultLanguage
		}
		cards = append(cards, &model.Card{
			ID:          p.newID(),
			Word:        word,
			Translation: translation,
			Tags:        splitTags(field(record, cols.tags)),
			Language:    language,
			Statistics:  &model.Statistics{},
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if len(cards) == 0 {
		return nil, ErrNoCards
	}
	return cards, nil
}

func parseHeader(header []string) columns {
	cols := columns{word: -1, translation: -1, tags: -1, language: -1}
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		switch name {
		case "word":
			if cols.word < 0 {
				cols.word = i
			}
		case "translation":
			if cols.translation < 0 {
				cols.translation = i
			}
		case "tags":
			if cols.tags < 0 {
				cols.tags = i
			}
		case "language":
			if cols.language < 0 {
				cols.language = i
			}
		}
	}
	return cols
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func splitTags(value string) []string {
	if value == "" {
		return nil
	}
	var tags []string
	for _, tag := range strings.Split(value, ";") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
