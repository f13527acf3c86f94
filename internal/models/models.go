package models

import (
	"database/sql"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"
)

// BlockType names a content block kind. Values match Notion's block type names.
type BlockType string

const (
	BlockHeading1   BlockType = "heading_1"
	BlockHeading2   BlockType = "heading_2"
	BlockHeading3   BlockType = "heading_3"
	BlockParagraph  BlockType = "paragraph"
	BlockBulletItem BlockType = "bulleted_list_item"
	BlockCode       BlockType = "code"
)

// RichText is a single inline text run.
type RichText struct {
	PlainText string `json:"plain_text"`
}

// Block is an immutable snapshot of one content block from a document source.
type Block struct {
	Type     BlockType
	RichText []RichText
	Language string // code blocks only
}

// Text is a convenience constructor for a block holding a single text run.
func Text(t BlockType, text string) Block {
	return Block{Type: t, RichText: []RichText{{PlainText: text}}}
}

// DocumentRef identifies a document that is ready to be imported.
type DocumentRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Flashcard is a finished question/answer pair.
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunComplete RunStatus = "complete"
	RunFailed   RunStatus = "failed"
)

// ImportRun records one pass over the ready documents of a source.
type ImportRun struct {
	ID          string
	Source      string
	Sink        string
	Status      RunStatus
	Documents   int
	CardsFound  int
	CardsAdded  int
	CardsFailed int
	Error       sql.NullString
	StartedAt   time.Time
	FinishedAt  sql.NullTime
	Results     []RunDocument
}

// RunDocument is the outcome for a single document inside a run.
type RunDocument struct {
	RunID       string
	DocumentID  string
	Title       string
	CardsFound  int
	CardsAdded  int
	CardsFailed int
	Error       sql.NullString
}

// Card is a flashcard kept in the local store, carrying FSRS scheduling state.
type Card struct {
	ID            int64
	Deck          string
	Model         string
	SourceDocID   sql.NullString
	Front         string
	Back          string
	Due           sql.NullTime
	Stability     float64
	Difficulty    float64
	ElapsedDays   int
	ScheduledDays int
	Reps          int
	Lapses        int
	State         int
	LastReview    sql.NullTime
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (c *Card) ToFSRSCard() fsrs.Card {
	card := fsrs.Card{
		Stability:     c.Stability,
		Difficulty:    c.Difficulty,
		ElapsedDays:   uint64(max(c.ElapsedDays, 0)),
		ScheduledDays: uint64(max(c.ScheduledDays, 0)),
		Reps:          uint64(max(c.Reps, 0)),
		Lapses:        uint64(max(c.Lapses, 0)),
		State:         fsrs.State(max(c.State, 0)),
	}
	if c.Due.Valid {
		card.Due = c.Due.Time
	}
	if c.LastReview.Valid {
		card.LastReview = c.LastReview.Time
	}
	return card
}

func (c *Card) ApplyFSRSCard(f fsrs.Card) {
	c.Due = sql.NullTime{Time: f.Due, Valid: !f.Due.IsZero()}
	c.Stability = f.Stability
	c.Difficulty = f.Difficulty
	c.ElapsedDays = int(f.ElapsedDays)
	c.ScheduledDays = int(f.ScheduledDays)
	c.Reps = int(f.Reps)
	c.Lapses = int(f.Lapses)
	c.State = int(f.State)
	c.LastReview = sql.NullTime{Time: f.LastReview, Valid: !f.LastReview.IsZero()}
}
