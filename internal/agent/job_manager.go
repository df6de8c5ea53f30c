package agent

import (
	"context"
	"sync"
	"time"
)

type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusRunning JobStatus = "running"
	JobStatusSuccess JobStatus = "success"
	JobStatusFailed  JobStatus = "failed"
)

// Job is long-running leaf work (a conversation turn) executed off the tick
// goroutine. Leaves start a job and then poll it tick by tick.
type Job struct {
	ID        string
	Type      string
	Data      []byte
	Status    JobStatus
	Error     string
	Result    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type JobManager struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	// currentJob is a pointer to the currently running job, if any
	currentJob *Job
	ctx        context.Context
}

func NewJobManager() *JobManager {
	return NewJobManagerWithContext(context.Background())
}

// NewJobManagerWithContext ties every job's context to ctx.
func NewJobManagerWithContext(ctx context.Context) *JobManager {
	return &JobManager{
		jobs: make(map[string]*Job),
		ctx:  ctx,
	}
}

// StartJob runs action in a goroutine. It reports false without starting
// anything while another job is still running.
func (jm *JobManager) StartJob(id, jobType string, data []byte, action func(ctx context.Context) (string, error)) bool {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	if jm.currentJob != nil && jm.currentJob.Status == JobStatusRunning {
		return false
	}

	now := time.Now()
	job := &Job{
		ID:        id,
		Type:      jobType,
		Data:      data,
		Status:    JobStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	jm.jobs[id] = job
	jm.currentJob = job

	go func() {
		result, err := action(jm.ctx)
		jm.mu.Lock()
		defer jm.mu.Unlock()

		job.UpdatedAt = time.Now()
		job.Result = result
		if err != nil {
			job.Status = JobStatusFailed
			job.Error = err.Error()
		} else {
			job.Status = JobStatusSuccess
		}

		if jm.currentJob == job {
			jm.currentJob = nil
		}
	}()
	return true
}

// GetJob returns a copy of the job, or nil.
func (jm *JobManager) GetJob(id string) *Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	job, ok := jm.jobs[id]
	if !ok {
		return nil
	}
	cp := *job
	return &cp
}

// GetCurrentJob returns a copy of the running job, or nil.
func (jm *JobManager) GetCurrentJob() *Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	if jm.currentJob == nil {
		return nil
	}
	cp := *jm.currentJob
	return &cp
}

// Forget drops a finished job from the table.
func (jm *JobManager) Forget(id string) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	if job, ok := jm.jobs[id]; ok && job.Status != JobStatusRunning {
		delete(jm.jobs, id)
	}
}
