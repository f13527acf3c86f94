package api

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusComplete   = "complete"
	JobStatusFailed     = "failed"
)

// ImportJob tracks the progress of one asynchronous import run.
type ImportJob struct {
	ID        string      `json:"jobId"`
	RunID     string      `json:"runId,omitempty"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Step      string      `json:"step,omitempty"`
	Message   string      `json:"message,omitempty"`
	Current   int         `json:"current"`
	Total     int         `json:"total"`
	Percent   int         `json:"percent"`
	Result    *RunSummary `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// RunSummary is the totals of a finished run as reported to clients.
type RunSummary struct {
	Documents   int `json:"documents"`
	CardsFound  int `json:"cardsFound"`
	CardsAdded  int `json:"cardsAdded"`
	CardsFailed int `json:"cardsFailed"`
}

type JobManager struct {
	mu   sync.RWMutex
	jobs map[string]*ImportJob
}

func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*ImportJob),
	}
}

// CreateJob registers a pending job unless another job is still running.
func (m *JobManager) CreateJob() (*ImportJob, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, job := range m.jobs {
		if job.Status == JobStatusPending || job.Status == JobStatusProcessing {
			return job.clone(), false
		}
	}

	now := time.Now().UTC()
	job := &ImportJob{
		ID:        uuid.NewString(),
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.jobs[job.ID] = job
	return job.clone(), true
}

func (m *JobManager) GetJob(id string) (*ImportJob, bool) {
	m.mu.RLock()
	job, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return job.clone(), true
}

func (m *JobManager) MarkProcessing(id string) {
	m.withJob(id, func(job *ImportJob) {
		job.Status = JobStatusProcessing
	})
}

func (m *JobManager) UpdateProgress(id string, step, message string, current, total int) {
	m.withJob(id, func(job *ImportJob) {
		job.Step = step
		job.Message = message
		job.Current = current
		job.Total = total
		job.Percent = percent(current, total)
	})
}

func (m *JobManager) MarkCompleted(id, runID string, summary RunSummary) {
	m.withJob(id, func(job *ImportJob) {
		job.Status = JobStatusComplete
		job.RunID = runID
		job.Step = "complete"
		job.Percent = 100
		job.Result = &summary
	})
}

func (m *JobManager) MarkFailed(id, runID string, msg string) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = "import error"
	}
	m.withJob(id, func(job *ImportJob) {
		job.Status = JobStatusFailed
		job.RunID = runID
		job.Step = "error"
		job.Error = msg
	})
}

func (m *JobManager) withJob(id string, fn func(job *ImportJob)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return
	}
	fn(job)
	job.UpdatedAt = time.Now().UTC()
}

func (job *ImportJob) clone() *ImportJob {
	if job == nil {
		return nil
	}
	copyJob := *job
	if job.Result != nil {
		res := *job.Result
		copyJob.Result = &res
	}
	return &copyJob
}

func percent(current, total int) int {
	if total <= 0 {
		return 0
	}
	if current <= 0 {
		return 0
	}
	if current >= total {
		return 100
	}
	return int((float64(current) / float64(total)) * 100)
}
