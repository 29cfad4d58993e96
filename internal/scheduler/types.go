// Package scheduler implements component G: a priority job queue and
// bounded worker pool that drains proxies through the validator, with
// durable JSON persistence and crash recovery (spec.md §4.6).
package scheduler

import (
	"context"
	"time"

	"github.com/proxymesh/harvester/internal/store"
	"github.com/proxymesh/harvester/internal/validator"
)

// JobState is the four-state machine spec.md §4.6 names:
// pending -> running -> (completed | failed).
type JobState string

const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// Job is one validation batch: a set of proxies to run through the
// validator at a given level, with its own priority and schedule time.
type Job struct {
	ID              string          `json:"id"`
	Proxies         []store.Proxy   `json:"proxies"`
	Level           validator.Level `json:"level"`
	Priority        int             `json:"priority"`
	ScheduledAt     time.Time       `json:"scheduled_at"`
	CreatedAt       time.Time       `json:"created_at"`
	State           JobState        `json:"state"`
	MaxRetries      int             `json:"max_retries"`
	AutoRetryFailed bool            `json:"auto_retry_failed"`
	RetryDepth      int             `json:"retry_depth"`
	StartedAt       time.Time       `json:"started_at,omitempty"`
	CompletedAt     time.Time       `json:"completed_at,omitempty"`
	Error           string          `json:"error,omitempty"`
	Processed       int             `json:"processed"`
	Succeeded       int             `json:"succeeded"`
	Failed          int             `json:"failed"`

	// heapIndex records this job's position in the queue heap; Swap, Push,
	// Pop and the persistence loader keep it current. dequeueEligible does
	// not read it: it passes its own scan index to heap.Remove.
	heapIndex int `json:"-"`

	cancel context.CancelFunc
}

// Status is the read-only snapshot GetStatus returns — a Job copy
// without the unexported scheduling/cancellation internals.
type Status struct {
	ID              string          `json:"id"`
	Level           validator.Level `json:"level"`
	Priority        int             `json:"priority"`
	ScheduledAt     time.Time       `json:"scheduled_at"`
	CreatedAt       time.Time       `json:"created_at"`
	State           JobState        `json:"state"`
	StartedAt       time.Time       `json:"started_at,omitempty"`
	CompletedAt     time.Time       `json:"completed_at,omitempty"`
	Error           string          `json:"error,omitempty"`
	TotalProxies    int             `json:"total_proxies"`
	Processed       int             `json:"processed"`
	Succeeded       int             `json:"succeeded"`
	Failed          int             `json:"failed"`
}

func (j *Job) status() Status {
	return Status{
		ID: j.ID, Level: j.Level, Priority: j.Priority,
		ScheduledAt: j.ScheduledAt, CreatedAt: j.CreatedAt, State: j.State,
		StartedAt: j.StartedAt, CompletedAt: j.CompletedAt, Error: j.Error,
		TotalProxies: len(j.Proxies), Processed: j.Processed,
		Succeeded: j.Succeeded, Failed: j.Failed,
	}
}

// SystemStatus answers GetSystemStatus (spec.md §4.6).
type SystemStatus struct {
	QueueSize int           `json:"queue_size"`
	Running   int           `json:"running"`
	Completed int64         `json:"completed"`
	Failed    int64         `json:"failed"`
	Uptime    time.Duration `json:"uptime"`
	AvgJobMs  float64       `json:"avg_job_duration_ms"`
}
