package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "proxies.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertInsertsNewProxy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &Proxy{IP: "1.2.3.4", Port: 8080, Protocol: ProtocolHTTP, Anonymity: AnonymityElite, Source: "test"}
	if err := s.Upsert(ctx, p); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if p.ID == 0 {
		t.Fatal("expected assigned ID after insert")
	}

	got, err := s.GetByAddr(ctx, "1.2.3.4", 8080)
	if err != nil {
		t.Fatalf("GetByAddr: %v", err)
	}
	if got == nil || got.Source != "test" {
		t.Fatalf("GetByAddr returned %+v", got)
	}
}

func TestUpsertMergesExistingProxy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &Proxy{IP: "5.6.7.8", Port: 3128, Protocol: ProtocolHTTP, Anonymity: AnonymityAnonymous,
		Metadata: map[string]string{"isp": "example-net"}}
	if err := s.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert (first): %v", err)
	}
	firstSuccess := time.Now().UTC().Add(-time.Hour)
	first.LastSuccessAt = firstSuccess
	if err := s.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert (record success): %v", err)
	}

	second := &Proxy{IP: "5.6.7.8", Port: 3128, Protocol: ProtocolHTTP, Anonymity: AnonymityUnknown,
		Metadata: map[string]string{"region": "eu"}}
	if err := s.Upsert(ctx, second); err != nil {
		t.Fatalf("Upsert (second): %v", err)
	}

	got, err := s.GetByAddr(ctx, "5.6.7.8", 3128)
	if err != nil {
		t.Fatalf("GetByAddr: %v", err)
	}
	if got.Anonymity != AnonymityAnonymous {
		t.Errorf("expected merge to preserve prior anonymity tier, got %s", got.Anonymity)
	}
	if got.Metadata["isp"] != "example-net" || got.Metadata["region"] != "eu" {
		t.Errorf("expected unioned metadata, got %+v", got.Metadata)
	}
	if !got.LastSuccessAt.Equal(firstSuccess) {
		t.Errorf("expected last_success_at preserved at %v, got %v", firstSuccess, got.LastSuccessAt)
	}
}

func TestQueryFiltersAndPaginates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		active := i%2 == 0
		p := &Proxy{IP: "10.0.0.1", Port: 9000 + i, Protocol: ProtocolHTTP, Anonymity: AnonymityElite, IsActive: active}
		if err := s.Upsert(ctx, p); err != nil {
			t.Fatalf("Upsert %d: %v", i, err)
		}
	}

	active := true
	page, err := s.Query(ctx, Filter{IsActive: &active, PageSize: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if page.Total != 3 {
		t.Errorf("expected 3 active proxies, got %d", page.Total)
	}

	small, err := s.Query(ctx, Filter{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("Query (paged): %v", err)
	}
	if len(small.Proxies) != 2 || small.TotalPages != 3 {
		t.Errorf("expected 2 proxies across 3 pages, got %d proxies / %d pages", len(small.Proxies), small.TotalPages)
	}
}

func TestRandomReturnsErrPoolEmptyWhenNoneActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, &Proxy{IP: "1.1.1.1", Port: 80, Protocol: ProtocolHTTP, IsActive: false}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if _, err := s.Random(ctx, Filter{}); err != ErrPoolEmpty {
		t.Errorf("expected ErrPoolEmpty, got %v", err)
	}
}

func TestUpdateStatusAppendsCheckResultAndUpdatesProxy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &Proxy{IP: "2.2.2.2", Port: 1080, Protocol: ProtocolSOCKS5}
	if err := s.Upsert(ctx, p); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	result := CheckResult{IsSuccessful: true, ResponseTimeMs: 120, CheckType: "connectivity", TargetURL: "https://example.com", StatusCode: 200, CompositeScore: 0.9}
	if err := s.UpdateStatus(ctx, p.ID, result, 0.87, true); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	got, err := s.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.IsActive || got.QualityScore != 0.87 {
		t.Errorf("expected updated proxy fields, got %+v", got)
	}

	history, err := s.History(ctx, p.ID, time.Hour, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].CheckType != "connectivity" {
		t.Errorf("expected one connectivity check result, got %+v", history)
	}
}

func TestCleanupRemovesLongInactiveProxies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stale := &Proxy{IP: "3.3.3.3", Port: 80, Protocol: ProtocolHTTP, IsActive: false}
	if err := s.Upsert(ctx, stale); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	n, err := s.Cleanup(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 proxy cleaned up, got %d", n)
	}

	if got, err := s.GetByID(ctx, stale.ID); err != nil || got != nil {
		t.Errorf("expected proxy deleted, got %+v (err %v)", got, err)
	}
}

func TestAppendCrawlLogAndHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AppendCrawlLog(ctx, CrawlLog{Source: "free-proxy-list", TotalFound: 42, Success: true}); err != nil {
		t.Fatalf("AppendCrawlLog: %v", err)
	}
	if err := s.AppendCrawlLog(ctx, CrawlLog{Source: "free-proxy-list", TotalFound: 0, Success: false, ErrorMessage: "timeout"}); err != nil {
		t.Fatalf("AppendCrawlLog: %v", err)
	}

	onlySuccess := true
	logs, err := s.CrawlHistory(ctx, "free-proxy-list", &onlySuccess, 10, 0)
	if err != nil {
		t.Fatalf("CrawlHistory: %v", err)
	}
	if len(logs) != 1 || logs[0].TotalFound != 42 {
		t.Fatalf("expected one successful crawl log, got %+v", logs)
	}
}
