package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"

	"notion2anki/internal/models"
)

// ErrCardNotFound is returned when a card id does not exist in the store.
var ErrCardNotFound = errors.New("card not found")

// CardStore keeps imported flashcards in SQLite with FSRS scheduling state.
// It is the local alternative to AnkiConnect.
type CardStore struct {
	db     *sql.DB
	deck   string
	model  string
	source string
	params fsrs.Parameters
}

func NewCardStore(db *sql.DB, deck, model string) *CardStore {
	return &CardStore{db: db, deck: deck, model: model, params: fsrs.DefaultParam()}
}

// WithSource returns a store that tags inserted cards with documentID.
func (s *CardStore) WithSource(documentID string) CardSink {
	scoped := *s
	scoped.source = documentID
	return &scoped
}

// AddCard inserts the flashcard as a new, unreviewed card due now.
func (s *CardStore) AddCard(ctx context.Context, card models.Flashcard) error {
	if card.Question == "" || card.Answer == "" {
		return fmt.Errorf("card %q: question and answer are required", card.Question)
	}

	now := time.Now().UTC()
	c := models.Card{
		Deck:        s.deck,
		Model:       s.model,
		SourceDocID: sql.NullString{String: s.source, Valid: s.source != ""},
		Front:       card.Question,
		Back:        card.Answer,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	c.ApplyFSRSCard(fsrs.Card{Due: now, State: fsrs.New})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO cards (deck, model, source_doc_id, front, back, due, stability, difficulty, elapsed_days,
		                   scheduled_days, reps, lapses, state, last_review, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`,
		c.Deck,
		c.Model,
		nullStringPtr(c.SourceDocID),
		c.Front,
		c.Back,
		nullTimePtr(c.Due),
		c.Stability,
		c.Difficulty,
		c.ElapsedDays,
		c.ScheduledDays,
		c.Reps,
		c.Lapses,
		c.State,
		nullTimePtr(c.LastReview),
		c.CreatedAt,
		c.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert card %q: %w", card.Question, err)
	}
	return nil
}

const cardColumns = `id, deck, model, source_doc_id, front, back, due, stability, difficulty,
	elapsed_days, scheduled_days, reps, lapses, state, last_review, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanCard(row scanner) (*models.Card, error) {
	card := &models.Card{}
	if err := row.Scan(
		&card.ID,
		&card.Deck,
		&card.Model,
		&card.SourceDocID,
		&card.Front,
		&card.Back,
		&card.Due,
		&card.Stability,
		&card.Difficulty,
		&card.ElapsedDays,
		&card.ScheduledDays,
		&card.Reps,
		&card.Lapses,
		&card.State,
		&card.LastReview,
		&card.CreatedAt,
		&card.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return card, nil
}

// ListCards returns stored cards in insertion order.
func (s *CardStore) ListCards(ctx context.Context, limit int) ([]models.Card, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+cardColumns+` FROM cards ORDER BY id ASC LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, *card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return cards, nil
}

// CountCards returns the total number of stored cards.
func (s *CardStore) CountCards(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cards;").Scan(&count); err != nil {
		return 0, fmt.Errorf("count cards: %w", err)
	}
	return count, nil
}

// ReviewCard reschedules a stored card with FSRS according to rating.
func (s *CardStore) ReviewCard(ctx context.Context, cardID int64, rating fsrs.Rating) (*models.Card, error) {
	card, err := scanCard(s.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?;`, cardID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("load card %d: %w", cardID, err)
	}

	now := time.Now().UTC()
	scheduling := s.params.Repeat(card.ToFSRSCard(), now)
	info, ok := scheduling[rating]
	if !ok {
		return nil, fmt.Errorf("rating %d not supported", rating)
	}
	card.ApplyFSRSCard(info.Card)
	card.UpdatedAt = now

	if _, err := s.db.ExecContext(ctx, `
		UPDATE cards
		SET due = ?, stability = ?, difficulty = ?, elapsed_days = ?, scheduled_days = ?,
		    reps = ?, lapses = ?, state = ?, last_review = ?, updated_at = ?
		WHERE id = ?;
	`,
		nullTimePtr(card.Due),
		card.Stability,
		card.Difficulty,
		card.ElapsedDays,
		card.ScheduledDays,
		card.Reps,
		card.Lapses,
		card.State,
		nullTimePtr(card.LastReview),
		card.UpdatedAt,
		card.ID,
	); err != nil {
		return nil, fmt.Errorf("update card %d: %w", card.ID, err)
	}
	return card, nil
}

func nullTimePtr(t sql.NullTime) any {
	if t.Valid {
		return t.Time
	}
	return nil
}

func nullStringPtr(v sql.NullString) any {
	if v.Valid {
		return v.String
	}
	return nil
}
