package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobManagerSingleActiveJob(t *testing.T) {
	m := NewJobManager()

	first, ok := m.CreateJob()
	require.True(t, ok)
	assert.Equal(t, JobStatusPending, first.Status)

	again, ok := m.CreateJob()
	assert.False(t, ok)
	assert.Equal(t, first.ID, again.ID)

	m.MarkProcessing(first.ID)
	m.UpdateProgress(first.ID, "document", "Arithmetic", 1, 4)
	got, ok := m.GetJob(first.ID)
	require.True(t, ok)
	assert.Equal(t, JobStatusProcessing, got.Status)
	assert.Equal(t, 25, got.Percent)
	assert.Equal(t, "Arithmetic", got.Message)

	m.MarkFailed(first.ID, "run-9", "   ")
	got, _ = m.GetJob(first.ID)
	assert.Equal(t, JobStatusFailed, got.Status)
	assert.Equal(t, "import error", got.Error)
	assert.Equal(t, "run-9", got.RunID)

	second, ok := m.CreateJob()
	require.True(t, ok)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestJobManagerReturnsCopies(t *testing.T) {
	m := NewJobManager()
	job, _ := m.CreateJob()
	m.MarkCompleted(job.ID, "run-1", RunSummary{Documents: 2, CardsAdded: 3})

	got, _ := m.GetJob(job.ID)
	got.Result.CardsAdded = 99
	got.Status = JobStatusFailed

	fresh, _ := m.GetJob(job.ID)
	assert.Equal(t, JobStatusComplete, fresh.Status)
	assert.Equal(t, 3, fresh.Result.CardsAdded)

	_, ok := m.GetJob("missing")
	assert.False(t, ok)
}
