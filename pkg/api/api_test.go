package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/proxymesh/harvester/internal/config"
	"github.com/proxymesh/harvester/internal/extractor"
	"github.com/proxymesh/harvester/internal/store"
)

type fakeStore struct {
	proxies map[int64]*store.Proxy
	stats   *store.Stats
}

func newFakeStore() *fakeStore {
	return &fakeStore{proxies: make(map[int64]*store.Proxy)}
}

func (f *fakeStore) Upsert(ctx context.Context, p *store.Proxy) error { return nil }
func (f *fakeStore) GetByID(ctx context.Context, id int64) (*store.Proxy, error) {
	return f.proxies[id], nil
}
func (f *fakeStore) GetByAddr(ctx context.Context, ip string, port int) (*store.Proxy, error) {
	return nil, nil
}
func (f *fakeStore) Query(ctx context.Context, filter store.Filter) (*store.Page, error) {
	var proxies []store.Proxy
	for _, p := range f.proxies {
		proxies = append(proxies, *p)
	}
	return &store.Page{Proxies: proxies, Total: len(proxies), PageNum: 1, PageSize: len(proxies), TotalPages: 1}, nil
}
func (f *fakeStore) Random(ctx context.Context, filter store.Filter) (*store.Proxy, error) {
	for _, p := range f.proxies {
		return p, nil
	}
	return nil, store.ErrPoolEmpty
}
func (f *fakeStore) UpdateStatus(ctx context.Context, proxyID int64, result store.CheckResult, qualityScore float64, isActive bool) error {
	return nil
}
func (f *fakeStore) Delete(ctx context.Context, id int64) error {
	delete(f.proxies, id)
	return nil
}
func (f *fakeStore) Cleanup(ctx context.Context, inactiveSince time.Time) (int, error) {
	return 0, nil
}
func (f *fakeStore) Stats(ctx context.Context) (*store.Stats, error) { return f.stats, nil }
func (f *fakeStore) History(ctx context.Context, proxyID int64, window time.Duration, limit int) ([]store.CheckResult, error) {
	return nil, nil
}
func (f *fakeStore) AppendCrawlLog(ctx context.Context, log store.CrawlLog) error { return nil }
func (f *fakeStore) CrawlHistory(ctx context.Context, source string, onlySuccess *bool, limit, offset int) ([]store.CrawlLog, error) {
	return nil, nil
}
func (f *fakeStore) Close() error { return nil }

var _ store.Store = (*fakeStore)(nil)

func newTestServer(t *testing.T, fs *fakeStore) *Server {
	t.Helper()
	return NewServer(Deps{
		Config:   config.APIConfig{VerboseErrors: true},
		Store:    fs,
		Registry: extractor.NewRegistry(),
	})
}

func TestHandleGetProxyNotFound(t *testing.T) {
	fs := newFakeStore()
	s := newTestServer(t, fs)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/proxies/42", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}

	var envelope map[string]map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope["error"]["code"] != "PROXY_NOT_FOUND" {
		t.Fatalf("expected PROXY_NOT_FOUND, got %v", envelope["error"]["code"])
	}
}

func TestHandleGetProxyFound(t *testing.T) {
	fs := newFakeStore()
	fs.proxies[1] = &store.Proxy{ID: 1, IP: "203.0.113.9", Port: 8080, Protocol: store.ProtocolHTTP}
	s := newTestServer(t, fs)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/proxies/1", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var proxy store.Proxy
	if err := json.Unmarshal(rec.Body.Bytes(), &proxy); err != nil {
		t.Fatalf("decode proxy: %v", err)
	}
	if proxy.IP != "203.0.113.9" {
		t.Fatalf("unexpected proxy: %+v", proxy)
	}
}

func TestHandleDeleteProxy(t *testing.T) {
	fs := newFakeStore()
	fs.proxies[7] = &store.Proxy{ID: 7, IP: "203.0.113.7", Port: 80}
	s := newTestServer(t, fs)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/proxies/7", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if _, ok := fs.proxies[7]; ok {
		t.Fatal("expected proxy to be deleted from store")
	}
}

func TestHandleRandomProxyPoolEmpty(t *testing.T) {
	fs := newFakeStore()
	s := newTestServer(t, fs)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/proxies/random", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var envelope map[string]map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &envelope)
	if envelope["error"]["code"] != "PROXY_POOL_EMPTY" {
		t.Fatalf("expected PROXY_POOL_EMPTY, got %v", envelope["error"]["code"])
	}
}

func TestHandleListProxiesAndExport(t *testing.T) {
	fs := newFakeStore()
	fs.proxies[1] = &store.Proxy{ID: 1, IP: "203.0.113.1", Port: 8080, Protocol: store.ProtocolHTTP}
	s := newTestServer(t, fs)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/proxies", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/proxies/export?format=csv", nil)
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for export, got %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("expected non-empty CSV export body")
	}
}

func TestHandleProxyStats(t *testing.T) {
	fs := newFakeStore()
	fs.stats = &store.Stats{Total: 5, Active: 3, ByProtocol: map[string]int{"http": 5}}
	s := newTestServer(t, fs)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/proxies/stats", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var stats store.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Total != 5 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestHandleHealthDefaultsHealthyWithoutChecker(t *testing.T) {
	fs := newFakeStore()
	s := newTestServer(t, fs)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandleCrawlSourcesEnumeratesRegistry(t *testing.T) {
	fs := newFakeStore()
	s := newTestServer(t, fs)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/crawl/sources", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string][]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["sources"] == nil {
		t.Fatal("expected a sources array, even if empty")
	}
}

func TestHandleCrawlStartWithNoConfiguredSourcesCompletesImmediately(t *testing.T) {
	fs := newFakeStore()
	s := newTestServer(t, fs)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/crawl/start", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	taskID, _ := body["task_id"].(string)
	if taskID == "" {
		t.Fatal("expected a task_id in response")
	}

	deadline := time.After(time.Second)
	for {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/crawl/status/"+taskID, nil)
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)
		var status map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &status)
		if status["status"] == "completed" {
			return
		}
		select {
		case <-deadline:
			t.Fatal("task never completed")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestHandleCrawlStatusUnknownTask(t *testing.T) {
	fs := newFakeStore()
	s := newTestServer(t, fs)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/crawl/status/does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
