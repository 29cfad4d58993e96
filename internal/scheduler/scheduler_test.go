package scheduler

import (
	"container/heap"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/proxymesh/harvester/internal/config"
	"github.com/proxymesh/harvester/internal/geoip"
	"github.com/proxymesh/harvester/internal/store"
	"github.com/proxymesh/harvester/internal/validator"
)

type fakeStore struct {
	updates []store.CheckResult
}

func (f *fakeStore) Upsert(ctx context.Context, p *store.Proxy) error { return nil }
func (f *fakeStore) GetByID(ctx context.Context, id int64) (*store.Proxy, error) {
	return nil, nil
}
func (f *fakeStore) GetByAddr(ctx context.Context, ip string, port int) (*store.Proxy, error) {
	return nil, nil
}
func (f *fakeStore) Query(ctx context.Context, filter store.Filter) (*store.Page, error) {
	return nil, nil
}
func (f *fakeStore) Random(ctx context.Context, filter store.Filter) (*store.Proxy, error) {
	return nil, nil
}
func (f *fakeStore) UpdateStatus(ctx context.Context, proxyID int64, result store.CheckResult, qualityScore float64, isActive bool) error {
	f.updates = append(f.updates, result)
	return nil
}
func (f *fakeStore) Delete(ctx context.Context, id int64) error { return nil }
func (f *fakeStore) Cleanup(ctx context.Context, inactiveSince time.Time) (int, error) {
	return 0, nil
}
func (f *fakeStore) Stats(ctx context.Context) (*store.Stats, error) { return nil, nil }
func (f *fakeStore) History(ctx context.Context, proxyID int64, window time.Duration, limit int) ([]store.CheckResult, error) {
	return nil, nil
}
func (f *fakeStore) AppendCrawlLog(ctx context.Context, log store.CrawlLog) error { return nil }
func (f *fakeStore) CrawlHistory(ctx context.Context, source string, onlySuccess *bool, limit, offset int) ([]store.CrawlLog, error) {
	return nil, nil
}
func (f *fakeStore) Close() error { return nil }

var _ store.Store = (*fakeStore)(nil)

func newTestScheduler(t *testing.T) (*Scheduler, *fakeStore) {
	t.Helper()
	fs := &fakeStore{}
	val := validator.New(config.ValidatorConfig{
		Timeout:      50 * time.Millisecond,
		HistorySize:  10,
		EchoEndpoints: []string{"http://127.0.0.1:1/ip"},
	}, geoip.NewCache(time.Hour))

	cfg := config.SchedulerConfig{
		MaxConcurrentJobs: 1,
		JobQueueSize:      2,
		ConcurrentLimit:   2,
		RetryCount:        0,
		ValidationTimeout: time.Second,
		ShutdownGrace:     time.Second,
		PersistencePath:   filepath.Join(t.TempDir(), "jobs.json"),
	}
	weights := config.ScoringWeights{
		ConnectionSuccess: 0.3, ResponseTime: 0.2, AnonymityLevel: 0.2,
		Stability: 0.15, Geolocation: 0.1, Speed: 0.05,
	}
	return New(cfg, weights, 50, fs, val), fs
}

func TestSubmitEnqueuesAndEnforcesBackPressure(t *testing.T) {
	s, _ := newTestScheduler(t)

	id1, err := s.Submit([]store.Proxy{{ID: 1, IP: "1.1.1.1", Port: 8080}}, validator.LevelBasic, 0, 0, true)
	if err != nil || id1 == "" {
		t.Fatalf("unexpected error on first submit: %v", err)
	}
	if _, err := s.Submit([]store.Proxy{{ID: 2}}, validator.LevelBasic, 0, 0, true); err != nil {
		t.Fatalf("unexpected error on second submit: %v", err)
	}
	if _, err := s.Submit([]store.Proxy{{ID: 3}}, validator.LevelBasic, 0, 0, true); err == nil {
		t.Fatal("expected queue-full error on third submit")
	}
}

func TestDequeueEligibleSkipsFutureScheduledJobs(t *testing.T) {
	s, _ := newTestScheduler(t)

	future := &Job{ID: "future", Priority: 10, ScheduledAt: time.Now().Add(time.Hour), CreatedAt: time.Now(), State: JobPending}
	ready := &Job{ID: "ready", Priority: 1, ScheduledAt: time.Now().Add(-time.Second), CreatedAt: time.Now(), State: JobPending}

	s.mu.Lock()
	heap.Push(&s.queue, future)
	heap.Push(&s.queue, ready)
	s.jobs[future.ID] = future
	s.jobs[ready.ID] = ready
	s.mu.Unlock()

	got := s.dequeueEligible()
	if got == nil || got.ID != "ready" {
		t.Fatalf("expected to dequeue the ready job, got %+v", got)
	}

	s.mu.Lock()
	remaining := len(s.queue)
	s.mu.Unlock()
	if remaining != 1 {
		t.Fatalf("expected 1 job left in queue, got %d", remaining)
	}
}

func TestDequeueEligibleOrdersByPriorityThenScheduleThenCreation(t *testing.T) {
	s, _ := newTestScheduler(t)

	now := time.Now()
	low := &Job{ID: "low", Priority: 1, ScheduledAt: now, CreatedAt: now}
	high := &Job{ID: "high", Priority: 5, ScheduledAt: now, CreatedAt: now}

	s.mu.Lock()
	heap.Push(&s.queue, low)
	heap.Push(&s.queue, high)
	s.mu.Unlock()

	got := s.dequeueEligible()
	if got.ID != "high" {
		t.Fatalf("expected higher-priority job first, got %s", got.ID)
	}

	older := &Job{ID: "older", Priority: 1, ScheduledAt: now, CreatedAt: now.Add(-time.Minute)}
	earlier := &Job{ID: "earlier", Priority: 1, ScheduledAt: now.Add(-time.Minute), CreatedAt: now}
	s.mu.Lock()
	heap.Push(&s.queue, older)
	heap.Push(&s.queue, earlier)
	s.mu.Unlock()
	for _, want := range []string{"earlier", "older", "low"} {
		if got := s.dequeueEligible(); got == nil || got.ID != want {
			t.Fatalf("expected %s next, got %+v", want, got)
		}
	}
}

func TestPersistenceRoundTripAndCrashRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")

	jobs := []*Job{
		{ID: "a", State: JobPending, Priority: 1, CreatedAt: time.Now(), ScheduledAt: time.Now()},
		{ID: "b", State: JobRunning, Priority: 2, CreatedAt: time.Now(), ScheduledAt: time.Now(), StartedAt: time.Now()},
	}
	if err := save(path, jobs); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(loaded))
	}

	var revived *Job
	for _, j := range loaded {
		if j.ID == "b" {
			revived = j
		}
	}
	if revived == nil {
		t.Fatal("job b missing after load")
	}
	if revived.State != JobPending {
		t.Fatalf("expected crash-interrupted running job revived to pending, got %s", revived.State)
	}
	if !revived.StartedAt.IsZero() {
		t.Fatal("expected revived job's StartedAt to be reset")
	}
}

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	loaded, err := load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded != nil {
		t.Fatalf("expected nil jobs for missing file, got %v", loaded)
	}
}

func TestRunJobMarksUnreachableProxyFailedAndResubmits(t *testing.T) {
	s, fs := newTestScheduler(t)

	job := &Job{
		ID:              "j1",
		Proxies:         []store.Proxy{{ID: 42, IP: "203.0.113.1", Port: 9, Protocol: store.ProtocolHTTP}},
		Level:           validator.LevelBasic,
		Priority:        5,
		CreatedAt:       time.Now(),
		ScheduledAt:     time.Now(),
		State:           JobPending,
		AutoRetryFailed: true,
	}
	s.jobs[job.ID] = job

	s.runJob(context.Background(), job)

	if job.State != JobCompleted {
		t.Fatalf("expected job to finish as completed (workers ran, even though proxy failed), got %s", job.State)
	}
	if job.Failed != 1 || job.Succeeded != 0 {
		t.Fatalf("expected 1 failed proxy, got succeeded=%d failed=%d", job.Succeeded, job.Failed)
	}
	if len(fs.updates) != 1 {
		t.Fatalf("expected one store update, got %d", len(fs.updates))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for _, j := range s.jobs {
		if j.ID != job.ID && j.Priority == job.Priority-1 {
			found = true
		}
	}
	if !found {
		t.Fatal("expected auto-retry-failed to resubmit a lower-priority job")
	}
}

func TestRunJobStopsAutoRetryAtDepthBound(t *testing.T) {
	s, _ := newTestScheduler(t)

	job := &Job{
		ID:              "j2",
		Proxies:         []store.Proxy{{ID: 43, IP: "203.0.113.2", Port: 9, Protocol: store.ProtocolHTTP}},
		Level:           validator.LevelBasic,
		Priority:        5,
		CreatedAt:       time.Now(),
		ScheduledAt:     time.Now(),
		State:           JobPending,
		AutoRetryFailed: true,
		RetryDepth:      maxAutoResubmitDepth,
	}
	s.jobs[job.ID] = job

	s.runJob(context.Background(), job)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.ID != job.ID && j.Priority == job.Priority-1 {
			t.Fatal("expected no further resubmission once the retry depth bound is reached")
		}
	}
}
