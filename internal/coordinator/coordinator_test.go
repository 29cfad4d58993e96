package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/proxymesh/harvester/internal/config"
	"github.com/proxymesh/harvester/internal/extractor"
	"github.com/proxymesh/harvester/internal/store"
	"github.com/proxymesh/harvester/internal/transform"
)

type fakeExtractor struct {
	source string
	result *extractor.Result
	err    error
}

func (f *fakeExtractor) Source() string { return f.source }
func (f *fakeExtractor) Extract(ctx context.Context) (*extractor.Result, error) {
	return f.result, f.err
}

type fakeStore struct {
	upserts   []store.Proxy
	crawlLogs []store.CrawlLog
}

func (f *fakeStore) Upsert(ctx context.Context, p *store.Proxy) error {
	f.upserts = append(f.upserts, *p)
	return nil
}
func (f *fakeStore) GetByID(ctx context.Context, id int64) (*store.Proxy, error)  { return nil, nil }
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
func (f *fakeStore) AppendCrawlLog(ctx context.Context, log store.CrawlLog) error {
	f.crawlLogs = append(f.crawlLogs, log)
	return nil
}
func (f *fakeStore) CrawlHistory(ctx context.Context, source string, onlySuccess *bool, limit, offset int) ([]store.CrawlLog, error) {
	return nil, nil
}
func (f *fakeStore) Close() error { return nil }

var _ store.Store = (*fakeStore)(nil)

func newTestCoordinator(t *testing.T, sources []config.SourceConfig, ext extractor.Extractor) (*Coordinator, *fakeStore) {
	t.Helper()
	reg := extractor.NewRegistry()
	if ext != nil {
		reg.Register(ext)
	}
	fs := &fakeStore{}
	tr := transform.New(transform.Allowlist{})
	c := New(sources, reg, tr, fs, nil, 5, nil)
	return c, fs
}

func TestRunSourceExtractsTransformsUpsertsAndLogsSuccess(t *testing.T) {
	ext := &fakeExtractor{
		source: "freeproxylist",
		result: &extractor.Result{
			Source:  "freeproxylist",
			Success: true,
			Proxies: []extractor.Candidate{
				{IP: "203.0.113.1", Port: "8080", Protocol: "http"},
				{IP: "203.0.113.2", Port: "3128", Protocol: "http"},
			},
		},
	}
	src := config.SourceConfig{Name: "freeproxylist", Enabled: true, Priority: 5}
	c, fs := newTestCoordinator(t, []config.SourceConfig{src}, ext)

	run := c.runSource(context.Background(), src)

	if run.Err != nil {
		t.Fatalf("unexpected error: %v", run.Err)
	}
	if run.Extracted != 2 || run.Transformed != 2 || run.Upserted != 2 {
		t.Fatalf("unexpected run stats: %+v", run)
	}
	if len(fs.upserts) != 2 {
		t.Fatalf("expected 2 upserts, got %d", len(fs.upserts))
	}
	if len(fs.crawlLogs) != 1 || !fs.crawlLogs[0].Success {
		t.Fatalf("expected one successful crawl log, got %+v", fs.crawlLogs)
	}
}

func TestRunSourceIsolatesExtractorFailure(t *testing.T) {
	ext := &fakeExtractor{source: "broken", err: errors.New("boom")}
	src := config.SourceConfig{Name: "broken", Enabled: true}
	c, fs := newTestCoordinator(t, []config.SourceConfig{src}, ext)

	run := c.runSource(context.Background(), src)

	if run.Err == nil {
		t.Fatal("expected error to be captured on the run, not panic or propagate")
	}
	if len(fs.crawlLogs) != 1 || fs.crawlLogs[0].Success {
		t.Fatalf("expected one failed crawl log, got %+v", fs.crawlLogs)
	}
	if len(fs.upserts) != 0 {
		t.Fatalf("expected no upserts on extraction failure, got %d", len(fs.upserts))
	}
}

func TestRunSourceMissingExtractorRecordsFailure(t *testing.T) {
	src := config.SourceConfig{Name: "unregistered", Enabled: true}
	c, fs := newTestCoordinator(t, []config.SourceConfig{src}, nil)

	run := c.runSource(context.Background(), src)

	if run.Err == nil {
		t.Fatal("expected error for unregistered source")
	}
	if len(fs.crawlLogs) != 1 {
		t.Fatalf("expected a crawl log entry even when no extractor is registered, got %d", len(fs.crawlLogs))
	}
}

func TestDueSourcesRespectsCrawlIntervalAndPriorityOrder(t *testing.T) {
	fast := config.SourceConfig{Name: "fast", Enabled: true, Priority: 1, CrawlInterval: time.Millisecond}
	slow := config.SourceConfig{Name: "slow", Enabled: true, Priority: 10, CrawlInterval: time.Hour}
	disabled := config.SourceConfig{Name: "off", Enabled: false, Priority: 100}

	c, _ := newTestCoordinator(t, []config.SourceConfig{fast, slow, disabled}, nil)

	first := c.dueSources()
	if len(first) != 2 {
		t.Fatalf("expected both enabled sources due on first check, got %d", len(first))
	}
	if first[0].Name != "slow" {
		t.Fatalf("expected higher-priority source first, got %s", first[0].Name)
	}

	second := c.dueSources()
	for _, s := range second {
		if s.Name == "slow" {
			t.Fatal("slow source should not be due again immediately after running")
		}
	}
}

func TestRunOnceUnknownSourceReturnsError(t *testing.T) {
	c, _ := newTestCoordinator(t, nil, nil)
	run := c.RunOnce(context.Background(), "nope")
	if run.Err == nil {
		t.Fatal("expected error for unknown source")
	}
}
