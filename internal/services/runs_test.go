package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notion2anki/internal/models"
)

func TestRunServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	runs := NewRunService(openTestDB(t))

	run, err := runs.Start(ctx, "notion", "anki")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, models.RunRunning, run.Status)

	run.Status = models.RunComplete
	run.Documents = 2
	run.CardsFound = 3
	run.CardsAdded = 2
	run.CardsFailed = 1
	run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	run.Results = []models.RunDocument{
		{RunID: run.ID, DocumentID: "page-1", Title: "One", CardsFound: 3, CardsAdded: 2, CardsFailed: 1},
		{RunID: run.ID, DocumentID: "page-2", Error: sql.NullString{String: "timeout", Valid: true}},
	}
	require.NoError(t, runs.Finish(ctx, run))

	got, err := runs.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunComplete, got.Status)
	assert.Equal(t, 2, got.Documents)
	assert.Equal(t, 2, got.CardsAdded)
	assert.True(t, got.FinishedAt.Valid)
	assert.Equal(t, run.Results, got.Results)

	list, err := runs.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, run.ID, list[0].ID)

	_, err = runs.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
