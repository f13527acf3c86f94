package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notion2anki/internal/extract"
	"notion2anki/internal/models"
)

func TestImportServiceRun(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{
		docs: []models.DocumentRef{
			{ID: "page-1", Title: "Arithmetic"},
			{ID: "page-2", Title: "Broken"},
			{ID: "page-3", Title: "Colors"},
		},
		blocks: map[string][]models.Block{
			"page-1": paragraphs("问题：What is 2+2?", "答案：4"),
			"page-3": paragraphs("问题：Name a primary color.", "答案：Red", "It is also a stop-light color.", "Question: Rejected?", "Answer: yes"),
		},
		failing: map[string]error{"page-2": errors.New("notion timeout")},
	}
	sink := &recordingSink{reject: map[string]bool{"Rejected?": true}}
	runs := NewRunService(openTestDB(t))

	var steps []string
	svc := NewImportService(source, sink, runs, ImportOptions{SourceName: "notion", SinkName: "anki"}, nil)
	run, err := svc.Run(ctx, func(step, message string, current, total int) {
		steps = append(steps, step)
	})
	require.NoError(t, err)

	assert.Equal(t, []models.Flashcard{
		{Question: "What is 2+2?", Answer: "4"},
		{Question: "Name a primary color.", Answer: "Red\nIt is also a stop-light color."},
		{Question: "Rejected?", Answer: "yes"},
	}, sink.got)

	assert.Equal(t, models.RunComplete, run.Status)
	assert.Equal(t, 3, run.Documents)
	assert.Equal(t, 3, run.CardsFound)
	assert.Equal(t, 2, run.CardsAdded)
	assert.Equal(t, 1, run.CardsFailed)
	require.Len(t, run.Results, 3)
	assert.Equal(t, "notion timeout", run.Results[1].Error.String)
	assert.Equal(t, []string{"list", "document", "document", "document", "complete"}, steps)

	stored, err := runs.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunComplete, stored.Status)
	assert.Len(t, stored.Results, 3)
}

func TestImportServiceListFailure(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{listErr: errors.New("unauthorized")}
	runs := NewRunService(openTestDB(t))

	run, err := NewImportService(source, &recordingSink{}, runs, ImportOptions{}, nil).Run(ctx, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
	assert.Equal(t, models.RunFailed, run.Status)

	stored, err := runs.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunFailed, stored.Status)
	assert.Contains(t, stored.Error.String, "unauthorized")
}

func TestImportServiceFenceOnlyWithStore(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{
		docs: []models.DocumentRef{{ID: "page-1"}},
		blocks: map[string][]models.Block{
			"page-1": {
				models.Text(models.BlockParagraph, "问题：outside"),
				{Type: models.BlockCode, RichText: []models.RichText{{PlainText: "问题：inside\n答案：kept"}}},
				models.Text(models.BlockParagraph, "答案：outside"),
			},
		},
	}
	store := NewCardStore(openTestDB(t), "Deck", "Basic")

	svc := NewImportService(source, store, nil, ImportOptions{Extract: extract.Options{FenceOnly: true}}, nil)
	run, err := svc.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, run.CardsAdded)

	cards, err := store.ListCards(ctx, 10)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "inside", cards[0].Front)
	assert.Equal(t, "kept", cards[0].Back)
	assert.Equal(t, "page-1", cards[0].SourceDocID.String)
}

func TestImportServiceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	source := &fakeSource{docs: []models.DocumentRef{{ID: "page-1"}}}

	run, err := NewImportService(source, &recordingSink{}, nil, ImportOptions{}, nil).Run(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.RunFailed, run.Status)
}
