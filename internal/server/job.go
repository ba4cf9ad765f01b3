package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/croplab/paddyfield/internal/config"
	"github.com/croplab/paddyfield/internal/pfa"
)

// JobState represents the current state of an optimization job.
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
)

// Job tracks one optimization run managed by the server.
type Job struct {
	ID          string          `json:"id"`
	State       JobState        `json:"state"`
	Objective   string          `json:"objective"`
	Config      pfa.Config      `json:"config"`
	Generations int             `json:"generations"`
	BestFitness float64         `json:"bestFitness"`
	BestValues  []float64       `json:"bestValues,omitempty"`
	StartTime   time.Time       `json:"startTime"`
	EndTime     *time.Time      `json:"endTime,omitempty"`
	Error       string          `json:"error,omitempty"`
	RunFile     *config.RunFile `json:"-"`
	Runner      *pfa.Runner     `json:"-"`
}

// JobManager owns the lifecycle of jobs.
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	broadcaster *EventBroadcaster
}

// NewJobManager creates an empty JobManager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateJob registers a pending job for the given run file.
func (jm *JobManager) CreateJob(rf *config.RunFile) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		State:     StatePending,
		Objective: rf.Objective,
		Config:    rf.Run,
		RunFile:   rf,
		StartTime: time.Now(),
	}
	jm.jobs[job.ID] = job
	return job
}

// GetJob retrieves a job by ID.
func (jm *JobManager) GetJob(id string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	return job, exists
}

// ListJobs returns all jobs.
func (jm *JobManager) ListJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]*Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// UpdateJob atomically updates a job through the provided function.
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}
	updateFn(job)
	return nil
}
