package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/proxymesh/harvester/internal/config"
	harvesterErrors "github.com/proxymesh/harvester/internal/errors"
	"github.com/proxymesh/harvester/internal/scoring"
	"github.com/proxymesh/harvester/internal/store"
	"github.com/proxymesh/harvester/internal/utils"
	"github.com/proxymesh/harvester/internal/validator"
)

const dequeuePollInterval = 200 * time.Millisecond

// maxAutoResubmitDepth bounds how many times a failed batch can chain
// into its own auto-resubmission (scheduler.go runJob). Without a bound
// a persistently-failing proxy set would regenerate jobs forever,
// relying only on JobQueueSize back-pressure to ever stop.
const maxAutoResubmitDepth = 3

// Scheduler is the bounded worker pool + priority queue of spec.md §4.6.
// Concurrency model: a fixed set of worker goroutines dequeue eligible
// jobs; within one job, per-proxy validations run up to ConcurrentLimit
// at a time (§5's "distinct proxies within one job run concurrently up
// to concurrent_limit").
type Scheduler struct {
	cfg     config.SchedulerConfig
	weights config.ScoringWeights
	minScore float64

	store store.Store
	val   *validator.Validator

	mu      sync.Mutex
	queue   jobHeap
	jobs    map[string]*Job
	running map[string]*Job

	metrics   *utils.PerformanceMetrics
	startedAt time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func New(cfg config.SchedulerConfig, weights config.ScoringWeights, minScore float64, st store.Store, val *validator.Validator) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		weights:  weights,
		minScore: minScore,
		store:    st,
		val:      val,
		jobs:     make(map[string]*Job),
		running:  make(map[string]*Job),
		metrics:  utils.NewPerformanceMetrics(),
		stopCh:   make(chan struct{}),
	}
}

// Start loads the durable job log (reviving crash-interrupted running
// jobs to pending) and spins up MaxConcurrentJobs worker goroutines.
func (s *Scheduler) Start(ctx context.Context) error {
	s.startedAt = time.Now()

	restored, err := load(s.cfg.PersistencePath)
	if err != nil {
		return harvesterErrors.Wrap(harvesterErrors.KindScheduler, "scheduler.Start", err)
	}

	s.mu.Lock()
	for _, j := range restored {
		s.jobs[j.ID] = j
		heap.Push(&s.queue, j)
	}
	s.mu.Unlock()

	workers := s.cfg.MaxConcurrentJobs
	if workers <= 0 {
		workers = 3
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.workerLoop(ctx)
	}
	return nil
}

// Submit enqueues a new validation job, returning QueueFull (via
// harvesterErrors.KindScheduler) when the queue is already at capacity
// (spec.md §4.6 back-pressure rule). autoRetryFailed controls whether
// proxies that fail validation get automatically resubmitted at a
// lower priority (runJob); callers that just want a one-shot check
// (e.g. the on-demand recheck endpoint) should pass false.
func (s *Scheduler) Submit(proxies []store.Proxy, level validator.Level, priority int, scheduleDelay time.Duration, autoRetryFailed bool) (string, error) {
	return s.submit(proxies, level, priority, scheduleDelay, autoRetryFailed, 0)
}

func (s *Scheduler) submit(proxies []store.Proxy, level validator.Level, priority int, scheduleDelay time.Duration, autoRetryFailed bool, retryDepth int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := s.cfg.JobQueueSize
	if limit <= 0 {
		limit = 100
	}
	if len(s.queue) >= limit {
		return "", harvesterErrors.New(harvesterErrors.KindScheduler, "scheduler.Submit", "job queue full")
	}

	now := time.Now()
	job := &Job{
		ID:              uuid.NewString(),
		Proxies:         proxies,
		Level:           level,
		Priority:        priority,
		ScheduledAt:     now.Add(scheduleDelay),
		CreatedAt:       now,
		State:           JobPending,
		MaxRetries:      s.cfg.RetryCount,
		AutoRetryFailed: autoRetryFailed,
		RetryDepth:      retryDepth,
	}
	s.jobs[job.ID] = job
	heap.Push(&s.queue, job)
	return job.ID, nil
}

func (s *Scheduler) GetStatus(jobID string) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return Status{}, false
	}
	return j.status(), true
}

func (s *Scheduler) GetSystemStatus() SystemStatus {
	s.mu.Lock()
	queueSize := len(s.queue)
	running := len(s.running)
	var completed, failed int64
	for _, j := range s.jobs {
		switch j.State {
		case JobCompleted:
			completed++
		case JobFailed:
			failed++
		}
	}
	s.mu.Unlock()

	snapshot := s.metrics.GetSnapshot()
	return SystemStatus{
		QueueSize: queueSize,
		Running:   running,
		Completed: completed,
		Failed:    failed,
		Uptime:    time.Since(s.startedAt),
		AvgJobMs:  float64(snapshot.AverageLatency.Milliseconds()),
	}
}

// Shutdown signals workers to stop taking new jobs, waits up to
// ShutdownGrace for in-flight jobs to finish, cancels whatever is still
// running, and flushes pending + in-flight jobs back to the durable log.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	close(s.stopCh)

	grace := s.cfg.ShutdownGrace
	if grace <= 0 {
		grace = 5 * time.Minute
	}

	done := make(chan struct{})
	go func() { s.wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(grace):
		s.mu.Lock()
		for _, j := range s.running {
			if j.cancel != nil {
				j.cancel()
			}
		}
		s.mu.Unlock()
	}

	return s.persist()
}

func (s *Scheduler) persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var toSave []*Job
	for _, j := range s.jobs {
		if j.State == JobPending || j.State == JobRunning {
			toSave = append(toSave, j)
		}
	}
	return save(s.cfg.PersistencePath, toSave)
}

func (s *Scheduler) workerLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(dequeuePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		job := s.dequeueEligible()
		if job == nil {
			continue
		}
		s.runJob(ctx, job)
	}
}

// dequeueEligible linear-scans the heap for the highest-priority job
// whose scheduled_at has arrived, per spec.md §4.6's eligibility rule.
func (s *Scheduler) dequeueEligible() *Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	best := -1
	for i, j := range s.queue {
		if j.ScheduledAt.After(now) {
			continue
		}
		if best == -1 || lessJob(j, s.queue[best]) {
			best = i
		}
	}
	if best == -1 {
		return nil
	}
	return heap.Remove(&s.queue, best).(*Job)
}

func (s *Scheduler) runJob(parent context.Context, job *Job) {
	timeout := s.cfg.ValidationTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	job.cancel = cancel
	defer cancel()

	s.mu.Lock()
	job.State = JobRunning
	job.StartedAt = time.Now()
	s.running[job.ID] = job
	s.mu.Unlock()

	start := time.Now()
	concurrentLimit := s.cfg.ConcurrentLimit
	if concurrentLimit <= 0 {
		concurrentLimit = 10
	}
	sem := make(chan struct{}, concurrentLimit)

	var wg sync.WaitGroup
	var resultMu sync.Mutex
	var failedProxies []store.Proxy

	for i := range job.Proxies {
		proxy := job.Proxies[i]
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			ok := s.validateOne(ctx, &proxy, job.Level, job.MaxRetries)

			resultMu.Lock()
			job.Processed++
			if ok {
				job.Succeeded++
			} else {
				job.Failed++
				failedProxies = append(failedProxies, proxy)
			}
			resultMu.Unlock()
		}()
	}
	wg.Wait()
	duration := time.Since(start)

	s.mu.Lock()
	delete(s.running, job.ID)
	if ctx.Err() != nil {
		job.State = JobFailed
		job.Error = ctx.Err().Error()
	} else {
		job.State = JobCompleted
	}
	job.CompletedAt = time.Now()
	s.mu.Unlock()

	s.metrics.RecordOperation(duration, job.State == JobCompleted)

	if job.AutoRetryFailed && len(failedProxies) > 0 && ctx.Err() == nil && job.RetryDepth < maxAutoResubmitDepth {
		s.submit(failedProxies, job.Level, job.Priority-1, 0, job.AutoRetryFailed, job.RetryDepth+1)
	}

	s.persist()
}

// validateOne runs one proxy through the validator, retrying transient
// validation failures with the shared exponential-backoff policy
// (spec.md §4.6 step 3), then writes the outcome to the store.
func (s *Scheduler) validateOne(ctx context.Context, proxy *store.Proxy, level validator.Level, maxRetries int) bool {
	policy := harvesterErrors.RetryPolicy{
		MaxAttempts: maxRetries + 1,
		BaseDelay:   2 * time.Second,
		MaxDelay:    30 * time.Second,
	}

	var result *validator.ValidationResult
	err := policy.Do(ctx, "scheduler.validateOne", func() error {
		history, _ := s.store.History(ctx, proxy.ID, time.Hour, 100)
		historicalScores := make([]float64, 0, len(history))
		for _, h := range history {
			historicalScores = append(historicalScores, h.CompositeScore)
		}
		result = s.val.Validate(ctx, proxy, level, history, historicalScores)
		if !result.Successful {
			return harvesterErrors.New(harvesterErrors.KindTransientNetwork, "scheduler.validateOne", "connectivity failed")
		}
		return nil
	})

	sc := scoring.Compute(result, proxy, s.weights, s.minScore)

	checkResult := store.CheckResult{
		ProxyID:        proxy.ID,
		IsSuccessful:   result.Successful,
		CheckType:      string(level),
		CompositeScore: sc.Composite,
		CheckedAt:      time.Now().UTC(),
	}
	if ms, ok := result.Connectivity.Details["response_time_ms"].(int64); ok {
		checkResult.ResponseTimeMs = ms
	}
	if result.Connectivity.Error != "" {
		checkResult.ErrorMessage = result.Connectivity.Error
	}

	if updateErr := s.store.UpdateStatus(ctx, proxy.ID, checkResult, sc.Composite, sc.IsActive); updateErr != nil {
		return false
	}

	return err == nil
}
