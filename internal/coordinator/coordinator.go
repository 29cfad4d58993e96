// Package coordinator implements component H: a single global timer
// that drives periodic ETL runs across every configured source, piping
// extracted candidates through the transformer into the store and
// handing validation off to the scheduler (spec.md §4.7).
package coordinator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/proxymesh/harvester/internal/config"
	harvesterErrors "github.com/proxymesh/harvester/internal/errors"
	"github.com/proxymesh/harvester/internal/extractor"
	"github.com/proxymesh/harvester/internal/scheduler"
	"github.com/proxymesh/harvester/internal/store"
	"github.com/proxymesh/harvester/internal/transform"
	"github.com/proxymesh/harvester/internal/utils"
	"github.com/proxymesh/harvester/internal/validator"
)

// defaultTick is how often the coordinator re-checks which sources are
// due. spec.md §4.7: "A single global timer drives the per-source
// schedule" — one cron entry ticks this fine-grained, and each source
// carries its own CrawlInterval / last-run bookkeeping rather than one
// cron entry per source.
const defaultTick = "@every 1m"

// Run is one pass's outcome for a single source, the shape CrawlLog
// rows and /crawl/status responses are built from.
type Run struct {
	Source     string
	Extracted  int
	Transformed int
	Upserted   int
	JobID      string
	Err        error
}

// Coordinator owns the registry of configured extractors and drives them
// on their configured interval, failure-isolated per source.
type Coordinator struct {
	sources    []config.SourceConfig
	registry   *extractor.Registry
	transform  *transform.Transformer
	store      store.Store
	sched      *scheduler.Scheduler
	maxInFlight int

	logger utils.Logger

	mu      sync.Mutex
	lastRun map[string]time.Time
	sem     chan struct{}

	cron *cron.Cron
}

func New(sources []config.SourceConfig, registry *extractor.Registry, tr *transform.Transformer, st store.Store, sched *scheduler.Scheduler, maxConcurrentRequests int, logger utils.Logger) *Coordinator {
	if maxConcurrentRequests <= 0 {
		maxConcurrentRequests = 20
	}
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &Coordinator{
		sources:     sources,
		registry:    registry,
		transform:   tr,
		store:       st,
		sched:       sched,
		maxInFlight: maxConcurrentRequests,
		logger:      logger.WithField("component", "coordinator"),
		lastRun:     make(map[string]time.Time),
		sem:         make(chan struct{}, maxConcurrentRequests),
		cron:        cron.New(),
	}
}

// Start begins the global tick. Each tick runs every enabled source
// whose CrawlInterval has elapsed since its last run, highest priority
// first.
func (c *Coordinator) Start(ctx context.Context) error {
	_, err := c.cron.AddFunc(defaultTick, func() { c.tick(ctx) })
	if err != nil {
		return harvesterErrors.Wrap(harvesterErrors.KindConfiguration, "coordinator.Start", err)
	}
	c.cron.Start()

	go func() {
		<-ctx.Done()
		c.cron.Stop()
	}()
	return nil
}

func (c *Coordinator) Stop() {
	stopCtx := c.cron.Stop()
	<-stopCtx.Done()
}

func (c *Coordinator) tick(ctx context.Context) {
	due := c.dueSources()
	for _, src := range due {
		src := src
		go func() {
			run := c.runSource(ctx, src)
			if run.Err != nil {
				c.logger.Errorf("source %s run failed: %v", src.Name, run.Err)
			} else {
				c.logger.Infof("source %s run completed: extracted=%d transformed=%d upserted=%d job_id=%s",
					src.Name, run.Extracted, run.Transformed, run.Upserted, run.JobID)
			}
		}()
	}
}

// dueSources returns enabled sources whose CrawlInterval has elapsed,
// ordered by priority descending per spec.md §4.7 step 1.
func (c *Coordinator) dueSources() []config.SourceConfig {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var due []config.SourceConfig
	for _, s := range c.sources {
		if !s.Enabled {
			continue
		}
		interval := s.CrawlInterval
		if interval <= 0 {
			interval = time.Hour
		}
		last, ok := c.lastRun[s.Name]
		if ok && now.Sub(last) < interval {
			continue
		}
		due = append(due, s)
		c.lastRun[s.Name] = now
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].Priority > due[j].Priority })
	return due
}

// runSource executes one source's full extract -> transform -> upsert ->
// submit pipeline, never propagating its error to the caller — failure
// isolation is spec.md §4.7's explicit requirement.
func (c *Coordinator) runSource(ctx context.Context, src config.SourceConfig) Run {
	run := Run{Source: src.Name}

	ext, ok := c.registry.Get(src.Name)
	if !ok {
		run.Err = harvesterErrors.New(harvesterErrors.KindConfiguration, "coordinator.runSource", "no extractor registered for source "+src.Name)
		c.appendCrawlLog(ctx, run)
		return run
	}

	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		run.Err = ctx.Err()
		return run
	}

	result, err := ext.Extract(ctx)
	if err != nil {
		run.Err = err
		c.appendCrawlLog(ctx, run)
		return run
	}
	run.Extracted = len(result.Proxies)

	proxies := c.transform.Transform(result)
	run.Transformed = len(proxies)

	for i := range proxies {
		p := proxies[i]
		if err := c.store.Upsert(ctx, &p); err != nil {
			c.logger.Warnf("upsert failed for %s:%d from %s: %v", p.IP, p.Port, src.Name, err)
			continue
		}
		run.Upserted++
	}

	if run.Upserted > 0 && c.sched != nil {
		level := validator.ParseLevel(src.DefaultLevel)
		jobID, err := c.sched.Submit(proxies, level, src.Priority, 0, true)
		if err != nil {
			c.logger.Warnf("scheduler submit failed for source %s: %v", src.Name, err)
		} else {
			run.JobID = jobID
		}
	}

	if !result.Success {
		if result.Error != nil {
			run.Err = result.Error
		} else {
			run.Err = harvesterErrors.New(harvesterErrors.KindParse, "coordinator.runSource", "extraction reported failure for source "+src.Name)
		}
	}
	c.appendCrawlLog(ctx, run)
	return run
}

func (c *Coordinator) appendCrawlLog(ctx context.Context, run Run) {
	entry := store.CrawlLog{
		Source:     run.Source,
		TotalFound: run.Extracted,
		Success:    run.Err == nil,
		CrawledAt:  time.Now().UTC(),
	}
	if run.Err != nil {
		entry.ErrorMessage = run.Err.Error()
	}
	if err := c.store.AppendCrawlLog(ctx, entry); err != nil {
		c.logger.Warnf("failed to append crawl log for source %s: %v", run.Source, err)
	}
}

// RunOnce triggers an immediate out-of-band run of the named source,
// bypassing its CrawlInterval gate — backs POST /crawl/sources/{name}/test.
func (c *Coordinator) RunOnce(ctx context.Context, name string) Run {
	for _, s := range c.sources {
		if s.Name == name {
			return c.runSource(ctx, s)
		}
	}
	return Run{Source: name, Err: harvesterErrors.New(harvesterErrors.KindConfiguration, "coordinator.RunOnce", "unknown source "+name)}
}
