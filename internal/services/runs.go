package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"notion2anki/internal/models"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("import run not found")

// RunService persists the history of import runs.
type RunService struct {
	db *sql.DB
}

func NewRunService(db *sql.DB) *RunService {
	return &RunService{db: db}
}

// Start records a new running import and returns it.
func (s *RunService) Start(ctx context.Context, source, sink string) (*models.ImportRun, error) {
	run := &models.ImportRun{
		ID:        uuid.NewString(),
		Source:    source,
		Sink:      sink,
		Status:    models.RunRunning,
		StartedAt: time.Now().UTC(),
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO import_runs (id, source, sink, status, started_at)
		VALUES (?, ?, ?, ?, ?);
	`, run.ID, run.Source, run.Sink, run.Status, run.StartedAt); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// Finish stores the totals and per-document results of run.
func (s *RunService) Finish(ctx context.Context, run *models.ImportRun) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		UPDATE import_runs
		SET status = ?, documents = ?, cards_found = ?, cards_added = ?, cards_failed = ?, error = ?, finished_at = ?
		WHERE id = ?;
	`,
		run.Status,
		run.Documents,
		run.CardsFound,
		run.CardsAdded,
		run.CardsFailed,
		nullStringPtr(run.Error),
		nullTimePtr(run.FinishedAt),
		run.ID,
	); err != nil {
		return fmt.Errorf("update run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_documents (run_id, position, document_id, title, cards_found, cards_added, cards_failed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("prepare document insert: %w", err)
	}
	defer stmt.Close()

	for i, doc := range run.Results {
		if _, err = stmt.ExecContext(ctx,
			run.ID, i, doc.DocumentID, doc.Title, doc.CardsFound, doc.CardsAdded, doc.CardsFailed, nullStringPtr(doc.Error),
		); err != nil {
			return fmt.Errorf("insert run document %s: %w", doc.DocumentID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// Get loads a run together with its per-document results.
func (s *RunService) Get(ctx context.Context, id string) (*models.ImportRun, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM import_runs WHERE id = ?;`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, document_id, title, cards_found, cards_added, cards_failed, error
		FROM run_documents
		WHERE run_id = ?
		ORDER BY position ASC;
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query run documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var doc models.RunDocument
		if err := rows.Scan(&doc.RunID, &doc.DocumentID, &doc.Title, &doc.CardsFound, &doc.CardsAdded, &doc.CardsFailed, &doc.Error); err != nil {
			return nil, fmt.Errorf("scan run document: %w", err)
		}
		run.Results = append(run.Results, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run documents: %w", err)
	}
	return run, nil
}

// List returns the most recent runs first, without per-document results.
func (s *RunService) List(ctx context.Context, limit int) ([]models.ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM import_runs ORDER BY started_at DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.ImportRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

const runColumns = `id, source, sink, status, documents, cards_found, cards_added, cards_failed, error, started_at, finished_at`

func scanRun(row scanner) (*models.ImportRun, error) {
	run := &models.ImportRun{}
	if err := row.Scan(
		&run.ID,
		&run.Source,
		&run.Sink,
		&run.Status,
		&run.Documents,
		&run.CardsFound,
		&run.CardsAdded,
		&run.CardsFailed,
		&run.Error,
		&run.StartedAt,
		&run.FinishedAt,
	); err != nil {
		return nil, err
	}
	return run, nil
}
