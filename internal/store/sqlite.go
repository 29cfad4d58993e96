// internal/store/sqlite.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	harvesterErrors "github.com/proxymesh/harvester/internal/errors"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLite connection tuning, adapted from the teacher's
// internal/output/sqlite.go connection-parameter constants.
const (
	sqliteBusyTimeoutMs = 5000
	sqliteJournalMode   = "WAL"
	sqliteSynchronous   = "NORMAL"
	sqliteCacheSize     = 10000
)

// SQLiteStore implements Store against a single-writer SQLite file,
// grounded on the teacher's SQLiteWriter connection setup and pragma
// tuning in internal/output/sqlite.go.
type SQLiteStore struct {
	db *sql.DB

	keyLocksMu sync.Mutex
	keyLocks   map[string]*sync.Mutex
}

// NewSQLiteStore opens (creating if necessary) a SQLite-backed proxy
// store at path and applies the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, harvesterErrors.Wrap(harvesterErrors.KindStorage, "store.NewSQLiteStore", err)
		}
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=%s&_foreign_keys=on", path, sqliteBusyTimeoutMs, sqliteJournalMode)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, harvesterErrors.Wrap(harvesterErrors.KindStorage, "store.NewSQLiteStore", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, harvesterErrors.Wrap(harvesterErrors.KindStorage, "store.NewSQLiteStore", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		fmt.Sprintf("PRAGMA synchronous = %s", sqliteSynchronous),
		fmt.Sprintf("PRAGMA cache_size = %d", sqliteCacheSize),
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, harvesterErrors.Wrap(harvesterErrors.KindStorage, "store.NewSQLiteStore", err)
		}
	}

	if _, err := db.Exec(proxySQLiteSchema); err != nil {
		db.Close()
		return nil, harvesterErrors.Wrap(harvesterErrors.KindStorage, "store.NewSQLiteStore", err)
	}

	return &SQLiteStore{db: db, keyLocks: make(map[string]*sync.Mutex)}, nil
}

// lockFor returns the per-(ip,port) mutex serializing mutations to one
// row, matching spec.md §4.5's row-level-locking concurrency rule.
func (s *SQLiteStore) lockFor(key string) *sync.Mutex {
	s.keyLocksMu.Lock()
	defer s.keyLocksMu.Unlock()
	m, ok := s.keyLocks[key]
	if !ok {
		m = &sync.Mutex{}
		s.keyLocks[key] = m
	}
	return m
}

func (s *SQLiteStore) Upsert(ctx context.Context, p *Proxy) error {
	mu := s.lockFor(p.Key())
	mu.Lock()
	defer mu.Unlock()

	existing, err := s.GetByAddr(ctx, p.IP, p.Port)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	metaJSON, _ := json.Marshal(p.Metadata)

	if existing == nil {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO proxies (ip, port, protocol, country, region, city, anonymity, source,
				response_time_ms, success_rate, quality_score, is_active, metadata,
				created_at, updated_at, last_checked_at, last_success_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.IP, p.Port, string(p.Protocol), p.Country, p.Region, p.City, string(p.Anonymity), p.Source,
			p.ResponseTimeMs, p.SuccessRate, p.QualityScore, p.IsActive, string(metaJSON),
			now, now, nullTime(p.LastCheckedAt), nullTime(p.LastSuccessAt))
		if err != nil {
			return harvesterErrors.Wrap(harvesterErrors.KindStorage, "store.Upsert", err)
		}
		id, _ := res.LastInsertId()
		p.ID = id
		p.CreatedAt, p.UpdatedAt = now, now
		return nil
	}

	merged := mergeProxy(*existing, *p)
	merged.ID = existing.ID
	merged.CreatedAt = existing.CreatedAt
	merged.UpdatedAt = now
	mergedMetaJSON, _ := json.Marshal(merged.Metadata)

	_, err = s.db.ExecContext(ctx, `
		UPDATE proxies SET protocol=?, country=?, region=?, city=?, anonymity=?, source=?,
			response_time_ms=?, success_rate=?, quality_score=?, is_active=?, metadata=?,
			updated_at=?, last_checked_at=?, last_success_at=?
		WHERE id=?`,
		string(merged.Protocol), merged.Country, merged.Region, merged.City, string(merged.Anonymity), merged.Source,
		merged.ResponseTimeMs, merged.SuccessRate, merged.QualityScore, merged.IsActive, string(mergedMetaJSON),
		now, nullTime(merged.LastCheckedAt), nullTime(merged.LastSuccessAt), merged.ID)
	if err != nil {
		return harvesterErrors.Wrap(harvesterErrors.KindStorage, "store.Upsert", err)
	}

	*p = merged
	return nil
}

func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (*Proxy, error) {
	row := s.db.QueryRowContext(ctx, proxySelectColumns+" FROM proxies WHERE id = ?", id)
	return scanProxy(row)
}

// GetByAddr returns nil, nil when no proxy matches (ip, port) — not found
// is a normal outcome here, used by Upsert to decide insert vs. merge.
func (s *SQLiteStore) GetByAddr(ctx context.Context, ip string, port int) (*Proxy, error) {
	row := s.db.QueryRowContext(ctx, proxySelectColumns+" FROM proxies WHERE ip = ? AND port = ?", ip, port)
	return scanProxy(row)
}

func (s *SQLiteStore) Query(ctx context.Context, f Filter) (*Page, error) {
	where, args := buildFilterWhere(f, sqliteHolder)
	page, pageSize, offset := normalizePage(f)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM proxies"+where, args...).Scan(&total); err != nil {
		return nil, harvesterErrors.Wrap(harvesterErrors.KindStorage, "store.Query", err)
	}

	queryArgs := append(append([]interface{}{}, args...), pageSize, offset)
	rows, err := s.db.QueryContext(ctx, proxySelectColumns+" FROM proxies"+where+" ORDER BY quality_score DESC LIMIT ? OFFSET ?", queryArgs...)
	if err != nil {
		return nil, harvesterErrors.Wrap(harvesterErrors.KindStorage, "store.Query", err)
	}
	defer rows.Close()

	proxies, err := scanProxies(rows)
	if err != nil {
		return nil, err
	}

	totalPages := (total + pageSize - 1) / pageSize
	return &Page{Proxies: proxies, Total: total, PageNum: page, PageSize: pageSize, TotalPages: totalPages}, nil
}

func (s *SQLiteStore) Random(ctx context.Context, f Filter) (*Proxy, error) {
	active := true
	f.IsActive = &active
	where, args := buildFilterWhere(f, sqliteHolder)

	row := s.db.QueryRowContext(ctx, proxySelectColumns+" FROM proxies"+where+" ORDER BY RANDOM() LIMIT 1", args...)
	p, err := scanProxy(row)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPoolEmpty
	}
	return p, nil
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, proxyID int64, result CheckResult, qualityScore float64, isActive bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return harvesterErrors.Wrap(harvesterErrors.KindStorage, "store.UpdateStatus", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO proxy_check_results (proxy_id, is_successful, response_time_ms, error_message, check_type, target_url, status_code, composite_score, checked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		proxyID, result.IsSuccessful, result.ResponseTimeMs, result.ErrorMessage, result.CheckType, result.TargetURL, result.StatusCode, result.CompositeScore, now)
	if err != nil {
		return harvesterErrors.Wrap(harvesterErrors.KindStorage, "store.UpdateStatus", err)
	}

	setLastSuccess := ""
	if result.IsSuccessful {
		setLastSuccess = ", last_success_at = ?"
	}
	query := "UPDATE proxies SET quality_score = ?, is_active = ?, response_time_ms = ?, last_checked_at = ?, updated_at = ?" + setLastSuccess + " WHERE id = ?"
	args := []interface{}{qualityScore, isActive, result.ResponseTimeMs, now, now}
	if result.IsSuccessful {
		args = append(args, now)
	}
	args = append(args, proxyID)

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return harvesterErrors.Wrap(harvesterErrors.KindStorage, "store.UpdateStatus", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM proxies WHERE id = ?", id)
	if err != nil {
		return harvesterErrors.Wrap(harvesterErrors.KindStorage, "store.Delete", err)
	}
	return nil
}

func (s *SQLiteStore) Cleanup(ctx context.Context, inactiveSince time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM proxies WHERE is_active = 0 AND (last_success_at IS NULL OR last_success_at < ?)`, inactiveSince)
	if err != nil {
		return 0, harvesterErrors.Wrap(harvesterErrors.KindStorage, "store.Cleanup", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	return aggregateStats(ctx, s.db)
}

func (s *SQLiteStore) History(ctx context.Context, proxyID int64, window time.Duration, limit int) ([]CheckResult, error) {
	since := time.Now().UTC().Add(-window)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, proxy_id, is_successful, response_time_ms, error_message, check_type, target_url, status_code, composite_score, checked_at
		FROM proxy_check_results WHERE proxy_id = ? AND checked_at >= ? ORDER BY checked_at DESC LIMIT ?`, proxyID, since, limit)
	if err != nil {
		return nil, harvesterErrors.Wrap(harvesterErrors.KindStorage, "store.History", err)
	}
	defer rows.Close()
	return scanCheckResults(rows)
}

func (s *SQLiteStore) AppendCrawlLog(ctx context.Context, log CrawlLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO proxy_crawl_logs (source, total_found, success, error_message, crawled_at)
		VALUES (?, ?, ?, ?, ?)`, log.Source, log.TotalFound, log.Success, log.ErrorMessage, time.Now().UTC())
	if err != nil {
		return harvesterErrors.Wrap(harvesterErrors.KindStorage, "store.AppendCrawlLog", err)
	}
	return nil
}

func (s *SQLiteStore) CrawlHistory(ctx context.Context, source string, onlySuccess *bool, limit, offset int) ([]CrawlLog, error) {
	where := ""
	var args []interface{}
	if source != "" {
		where += " AND source = ?"
		args = append(args, source)
	}
	if onlySuccess != nil {
		where += " AND success = ?"
		args = append(args, *onlySuccess)
	}
	if where != "" {
		where = " WHERE " + where[5:]
	}
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, total_found, success, error_message, crawled_at FROM proxy_crawl_logs`+where+`
		ORDER BY crawled_at DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, harvesterErrors.Wrap(harvesterErrors.KindStorage, "store.CrawlHistory", err)
	}
	defer rows.Close()

	var logs []CrawlLog
	for rows.Next() {
		var l CrawlLog
		var errMsg sql.NullString
		if err := rows.Scan(&l.ID, &l.Source, &l.TotalFound, &l.Success, &errMsg, &l.CrawledAt); err != nil {
			return nil, harvesterErrors.Wrap(harvesterErrors.KindStorage, "store.CrawlHistory", err)
		}
		l.ErrorMessage = errMsg.String
		logs = append(logs, l)
	}
	return logs, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
