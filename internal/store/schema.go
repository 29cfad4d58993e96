// internal/store/schema.go
package store

// Table and index definitions mirror spec.md §6.2 exactly. Each backend
// keeps its own DDL (see sqlite.go / postgres.go) the way the teacher's
// internal/output/sqlite.go and postgresql.go each own their table
// creation logic rather than sharing one generic builder.

const (
	TableProxies       = "proxies"
	TableProxySources  = "proxy_sources"
	TableCheckResults  = "proxy_check_results"
	TableCrawlLogs     = "proxy_crawl_logs"
)

var proxySQLiteSchema = `
CREATE TABLE IF NOT EXISTS proxies (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ip TEXT NOT NULL,
	port INTEGER NOT NULL,
	protocol TEXT NOT NULL DEFAULT 'http',
	country TEXT,
	region TEXT,
	city TEXT,
	anonymity TEXT NOT NULL DEFAULT 'unknown',
	source TEXT,
	response_time_ms INTEGER NOT NULL DEFAULT 0,
	success_rate REAL NOT NULL DEFAULT 0,
	quality_score REAL NOT NULL DEFAULT 0,
	is_active INTEGER NOT NULL DEFAULT 0,
	metadata TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_checked_at DATETIME,
	last_success_at DATETIME,
	UNIQUE(ip, port)
);
CREATE INDEX IF NOT EXISTS idx_proxies_status_protocol ON proxies(is_active, protocol);
CREATE INDEX IF NOT EXISTS idx_proxies_quality_score ON proxies(quality_score);
CREATE INDEX IF NOT EXISTS idx_proxies_last_checked ON proxies(last_checked_at);

CREATE TABLE IF NOT EXISTS proxy_check_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	proxy_id INTEGER NOT NULL,
	is_successful INTEGER NOT NULL,
	response_time_ms INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	check_type TEXT NOT NULL,
	target_url TEXT,
	status_code INTEGER,
	composite_score REAL NOT NULL DEFAULT 0,
	checked_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_check_results_proxy_time ON proxy_check_results(proxy_id, checked_at);

CREATE TABLE IF NOT EXISTS proxy_crawl_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source TEXT NOT NULL,
	total_found INTEGER NOT NULL DEFAULT 0,
	success INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	crawled_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_crawl_logs_source ON proxy_crawl_logs(source);
`

var proxyPostgresSchema = `
CREATE TABLE IF NOT EXISTS proxies (
	id BIGSERIAL PRIMARY KEY,
	ip TEXT NOT NULL,
	port INTEGER NOT NULL,
	protocol TEXT NOT NULL DEFAULT 'http',
	country TEXT,
	region TEXT,
	city TEXT,
	anonymity TEXT NOT NULL DEFAULT 'unknown',
	source TEXT,
	response_time_ms BIGINT NOT NULL DEFAULT 0,
	success_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
	quality_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT FALSE,
	metadata JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_checked_at TIMESTAMPTZ,
	last_success_at TIMESTAMPTZ,
	UNIQUE(ip, port)
);
CREATE INDEX IF NOT EXISTS idx_proxies_status_protocol ON proxies(is_active, protocol);
CREATE INDEX IF NOT EXISTS idx_proxies_quality_score ON proxies(quality_score);
CREATE INDEX IF NOT EXISTS idx_proxies_last_checked ON proxies(last_checked_at);

CREATE TABLE IF NOT EXISTS proxy_check_results (
	id BIGSERIAL PRIMARY KEY,
	proxy_id BIGINT NOT NULL REFERENCES proxies(id) ON DELETE CASCADE,
	is_successful BOOLEAN NOT NULL,
	response_time_ms BIGINT NOT NULL DEFAULT 0,
	error_message TEXT,
	check_type TEXT NOT NULL,
	target_url TEXT,
	status_code INTEGER,
	composite_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	checked_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_check_results_proxy_time ON proxy_check_results(proxy_id, checked_at);

CREATE TABLE IF NOT EXISTS proxy_crawl_logs (
	id BIGSERIAL PRIMARY KEY,
	source TEXT NOT NULL,
	total_found INTEGER NOT NULL DEFAULT 0,
	success BOOLEAN NOT NULL DEFAULT FALSE,
	error_message TEXT,
	crawled_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_crawl_logs_source ON proxy_crawl_logs(source);
`
