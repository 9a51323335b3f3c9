// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/verte-zerg/wordflash/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

const driverName = "sqlite"

func init() {
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

// Store wraps SQLite access for cards, reviews and settings.
type Store struct {
	db *sqlx.DB
}

type cardRow struct {
	ID            string        `db:"id"`
	Position      int64         `db:"position"`
	Word          string        `db:"word"`
	Translation   string        `db:"translation"`
	Language      string        `db:"language"`
	KnowCount     int           `db:"know_count"`
	DontKnowCount int           `db:"dont_know_count"`
	LastReviewed  sql.NullInt64 `db:"last_reviewed"`
	CreatedAt     int64         `db:"created_at"`
	UpdatedAt     int64         `db:"updated_at"`
}

type tagRow struct {
	CardID   string `db:"card_id"`
	Position int    `db:"position"`
	Tag      string `db:"tag"`
}

type reviewRow struct {
	CardID     string `db:"card_id"`
	Known      bool   `db:"known"`
	ReviewedAt int64  `db:"reviewed_at"`
}

const cardColumns = `id, position, word, translation, language, know_count, dont_know_count, last_reviewed, created_at, updated_at`

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sqlx.Open(driverName, path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases and transactions consistent.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cards (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			word TEXT NOT NULL,
			translation TEXT NOT NULL,
			language TEXT NOT NULL,
			know_count INTEGER NOT NULL DEFAULT 0 CHECK (know_count >= 0),
			dont_know_count INTEGER NOT NULL DEFAULT 0 CHECK (dont_know_count >= 0),
			last_reviewed INTEGER,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS card_tags (
			card_id TEXT NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			tag TEXT NOT NULL,
			PRIMARY KEY (card_id, position)
		);`,
		`CREATE TABLE IF NOT EXISTS reviews (
			id INTEGER PRIMARY KEY,
			card_id TEXT NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
			known INTEGER NOT NULL,
			reviewed_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_cards_position ON cards(position);`,
		`CREATE INDEX IF NOT EXISTS idx_card_tags_tag ON card_tags(tag);`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_reviewed_at ON reviews(reviewed_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// LoadCards returns every card in insertion order.
func (s *Store) LoadCards(ctx context.Context) ([]*model.Card, error) {
	var rows []cardRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+cardColumns+` FROM cards ORDER BY position ASC`); err != nil {
		return nil, err
	}
	var tags []tagRow
	if err := s.db.SelectContext(ctx, &tags, `SELECT card_id, position, tag FROM card_tags ORDER BY card_id, position`); err != nil {
		return nil, err
	}
	byCard := map[string][]string{}
	for _, t := range tags {
		byCard[t.CardID] = append(byCard[t.CardID], t.Tag)
	}
	cards := make([]*model.Card, 0, len(rows))
	for _, row := range rows {
		cards = append(cards, row.toCard(byCard[row.ID]))
	}
	return cards, nil
}

// SaveCards replaces the whole card collection in a single transaction.
// Reviews of cards that are no longer present are dropped.
func (s *Store) SaveCards(ctx context.Context, cards []*model.Card) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM card_tags`); err != nil {
		return err
	}
	// Kept identifiers are staged in a temp table; SQLite caps the number of
	// bound variables per statement.
	if _, err = tx.ExecContext(ctx, `CREATE TEMP TABLE IF NOT EXISTS keep_ids (id TEXT PRIMARY KEY)`); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM keep_ids`); err != nil {
		return err
	}
	for _, card := range cards {
		if _, err = tx.ExecContext(ctx, `INSERT OR IGNORE INTO keep_ids (id) VALUES (?)`, card.ID); err != nil {
			return err
		}
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM reviews WHERE card_id NOT IN (SELECT id FROM keep_ids)`); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM cards WHERE id NOT IN (SELECT id FROM keep_ids)`); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM keep_ids`); err != nil {
		return err
	}
	for i, card := range cards {
		if err = upsertCard(ctx, tx, card, int64(i)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// InsertCards appends cards after the existing ones.
func (s *Store) InsertCards(ctx context.Context, cards ...*model.Card) (err error) {
	if len(cards) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	var next int64
	if err = tx.GetContext(ctx, &next, `SELECT COALESCE(MAX(position) + 1, 0) FROM cards`); err != nil {
		return err
	}
	for i, card := range cards {
		if err = insertCard(ctx, tx, card, next+int64(i)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetCard returns a single card or model.ErrNotFound.
func (s *Store) GetCard(ctx context.Context, id string) (*model.Card, error) {
	var row cardRow
	err := s.db.GetContext(ctx, &row, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var tags []string
	if err := s.db.SelectContext(ctx, &tags, `SELECT tag FROM card_tags WHERE card_id = ? ORDER BY position`, id); err != nil {
		return nil, err
	}
	return row.toCard(tags), nil
}

// UpdateCard stores the editable fields of a card and its UpdatedAt timestamp.
// Statistics and CreatedAt are left untouched.
func (s *Store) UpdateCard(ctx context.Context, card *model.Card) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.NamedExecContext(ctx,
		`UPDATE cards SET word = :word, translation = :translation, language = :language, updated_at = :updated_at
		 WHERE id = :id`,
		fromCard(card, 0))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		err = fmt.Errorf("%w: %s", model.ErrNotFound, card.ID)
		return err
	}
	if err = replaceTags(ctx, tx, card.ID, card.Tags); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteCard removes a card with its tags and reviews. It reports whether a card was removed.
func (s *Store) DeleteCard(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RecordAnswer increments one counter of a card, stamps it with at and
// appends a review row. It returns model.ErrNotFound without changes when the
// card does not exist.
func (s *Store) RecordAnswer(ctx context.Context, id string, known bool, at time.Time) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	knowInc, dontKnowInc := 0, 1
	if known {
		knowInc, dontKnowInc = 1, 0
	}
	ms := at.UnixMilli()
	res, err := tx.ExecContext(ctx,
		`UPDATE cards SET know_count = know_count + ?, dont_know_count = dont_know_count + ?,
			last_reviewed = ?, updated_at = ?
		 WHERE id = ?`,
		knowInc, dontKnowInc, ms, ms, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		err = fmt.Errorf("%w: %s", model.ErrNotFound, id)
		return err
	}
	if _, err = tx.NamedExecContext(ctx,
		`INSERT INTO reviews (card_id, known, reviewed_at) VALUES (:card_id, :known, :reviewed_at)`,
		reviewRow{CardID: id, Known: known, ReviewedAt: ms}); err != nil {
		return err
	}
	return tx.Commit()
}

// ListReviews returns recorded answers in chronological order, optionally
// limited to those at or after since.
func (s *Store) ListReviews(ctx context.Context, since *time.Time) ([]model.Review, error) {
	var from int64
	if since != nil {
		from = since.UnixMilli()
	}
	var rows []reviewRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT card_id, known, reviewed_at FROM reviews WHERE reviewed_at >= ? ORDER BY reviewed_at ASC, id ASC`,
		from); err != nil {
		return nil, err
	}
	reviews := make([]model.Review, 0, len(rows))
	for _, row := range rows {
		reviews = append(reviews, model.Review{
			CardID:     row.CardID,
			Known:      row.Known,
			ReviewedAt: time.UnixMilli(row.ReviewedAt),
		})
	}
	return reviews, nil
}

const (
	settingLanguage     = "language"
	settingSelectedTags = "selected_tags"
)

// LoadSettings returns stored settings, falling back to defaults for missing keys.
func (s *Store) LoadSettings(ctx context.Context) (model.Settings, error) {
	settings := model.DefaultSettings()
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT key, value FROM settings`); err != nil {
		return settings, err
	}
	for _, row := range rows {
		switch row.Key {
		case settingLanguage:
			settings.Language = row.Value
		case settingSelectedTags:
			var tags []string
			if err := json.Unmarshal([]byte(row.Value), &tags); err != nil {
				return model.DefaultSettings(), fmt.Errorf("failed to decode selected tags: %w", err)
			}
			settings.SelectedTags = tags
		}
	}
	return settings, nil
}

// SaveSettings persists settings.
func (s *Store) SaveSettings(ctx context.Context, settings model.Settings) (err error) {
	tags, err := json.Marshal(settings.SelectedTags)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()
	const upsert = `INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err = tx.ExecContext(ctx, upsert, settingLanguage, settings.Language); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, upsert, settingSelectedTags, string(tags)); err != nil {
		return err
	}
	return tx.Commit()
}

// ClearAll removes every card, review and setting in one transaction.
func (s *Store) ClearAll(ctx context.Context) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	for _, stmt := range []string{
		`DELETE FROM reviews`,
		`DELETE FROM card_tags`,
		`DELETE FROM cards`,
		`DELETE FROM settings`,
	} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertCard(ctx context.Context, tx *sqlx.Tx, card *model.Card, position int64) error {
	if _, err := tx.NamedExecContext(ctx,
		`INSERT INTO cards (`+cardColumns+`)
		 VALUES (:id, :position, :word, :translation, :language, :know_count, :dont_know_count, :last_reviewed, :created_at, :updated_at)`,
		fromCard(card, position)); err != nil {
		return err
	}
	return replaceTags(ctx, tx, card.ID, card.Tags)
}

func upsertCard(ctx context.Context, tx *sqlx.Tx, card *model.Card, position int64) error {
	if _, err := tx.NamedExecContext(ctx,
		`INSERT INTO cards (`+cardColumns+`)
		 VALUES (:id, :position, :word, :translation, :language, :know_count, :dont_know_count, :last_reviewed, :created_at, :updated_at)
		 ON CONFLICT(id) DO UPDATE SET
			position = excluded.position,
			word = excluded.word,
			translation = excluded.translation,
			language = excluded.language,
			know_count = excluded.know_count,
			dont_know_count = excluded.dont_know_count,
			last_reviewed = excluded.last_reviewed,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		fromCard(card, position)); err != nil {
		return err
	}
	return replaceTags(ctx, tx, card.ID, card.Tags)
}

func replaceTags(ctx context.Context, tx *sqlx.Tx, cardID string, tags []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM card_tags WHERE card_id = ?`, cardID); err != nil {
		return err
	}
	for i, tag := range tags {
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO card_tags (card_id, position, tag) VALUES (:card_id, :position, :tag)`,
			tagRow{CardID: cardID, Position: i, Tag: tag}); err != nil {
			return err
		}
	}
	return nil
}

func fromCard(card *model.Card, position int64) cardRow {
	row := cardRow{
		ID:          card.ID,
		Position:    position,
		Word:        card.Word,
		Translation: card.Translation,
		Language:    card.Language,
		CreatedAt:   card.CreatedAt.UnixMilli(),
		UpdatedAt:   card.UpdatedAt.UnixMilli(),
	}
	if st := card.Statistics; st != nil {
		row.KnowCount = st.KnowCount
		row.DontKnowCount = st.DontKnowCount
		if st.LastReviewed != nil {
			row.LastReviewed = sql.NullInt64{Int64: st.LastReviewed.UnixMilli(), Valid: true}
		}
	}
	return row
}

func (r cardRow) toCard(tags []string) *model.Card {
	stats := &model.Statistics{
		KnowCount:     r.KnowCount,
		DontKnowCount: r.DontKnowCount,
	}
	if r.LastReviewed.Valid {
		t := time.UnixMilli(r.LastReviewed.Int64)
		stats.LastReviewed = &t
	}
	return &model.Card{
		ID:          r.ID,
		Word:        r.Word,
		Translation: r.Translation,
		Tags:        tags,
		Language:    r.Language,
		Statistics:  stats,
		CreatedAt:   time.UnixMilli(r.CreatedAt),
		UpdatedAt:   time.UnixMilli(r.UpdatedAt),
	}
}
