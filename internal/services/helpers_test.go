package services

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"notion2anki/internal/db"
	"notion2anki/internal/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type fakeSource struct {
	docs    []models.DocumentRef
	blocks  map[string][]models.Block
	listErr error
	failing map[string]error
}

func (f *fakeSource) ListReadyDocuments(ctx context.Context) ([]models.DocumentRef, error) {
	return f.docs, f.listErr
}

func (f *fakeSource) GetBlocks(ctx context.Context, id string) ([]models.Block, error) {
	if err := f.failing[id]; err != nil {
		return nil, err
	}
	return f.blocks[id], nil
}

// recordingSink records every submission and fails questions listed in reject.
type recordingSink struct {
	got    []models.Flashcard
	reject map[string]bool
}

func (s *recordingSink) AddCard(ctx context.Context, card models.Flashcard) error {
	s.got = append(s.got, card)
	if s.reject[card.Question] {
		return errors.New("rejected")
	}
	return nil
}

func paragraphs(lines ...string) []models.Block {
	blocks := make([]models.Block, 0, len(lines))
	for _, l := range lines {
		blocks = append(blocks, models.Text(models.BlockParagraph, l))
	}
	return blocks
}
