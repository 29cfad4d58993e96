// internal/store/scan.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	harvesterErrors "github.com/proxymesh/harvester/internal/errors"
)

// ErrPoolEmpty is returned by Random when no proxy matches the filter.
var ErrPoolEmpty = errors.New("store: no active proxy matches filter")

const proxySelectColumns = `SELECT id, ip, port, protocol, country, region, city, anonymity, source,
	response_time_ms, success_rate, quality_score, is_active, metadata,
	created_at, updated_at, last_checked_at, last_success_at`

// row is satisfied by both *sql.Row and *sql.Rows.
type row interface {
	Scan(dest ...interface{}) error
}

func scanProxy(r row) (*Proxy, error) {
	var p Proxy
	var country, region, city, source, metaJSON sql.NullString
	var lastChecked, lastSuccess sql.NullTime

	err := r.Scan(&p.ID, &p.IP, &p.Port, &p.Protocol, &country, &region, &city, &p.Anonymity, &source,
		&p.ResponseTimeMs, &p.SuccessRate, &p.QualityScore, &p.IsActive, &metaJSON,
		&p.CreatedAt, &p.UpdatedAt, &lastChecked, &lastSuccess)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, harvesterErrors.Wrap(harvesterErrors.KindStorage, "store.scanProxy", err)
	}

	p.Country, p.Region, p.City, p.Source = country.String, region.String, city.String, source.String
	p.LastCheckedAt, p.LastSuccessAt = lastChecked.Time, lastSuccess.Time
	if metaJSON.Valid && metaJSON.String != "" {
		_ = json.Unmarshal([]byte(metaJSON.String), &p.Metadata)
	}
	return &p, nil
}

func scanProxies(rows *sql.Rows) ([]Proxy, error) {
	var out []Proxy
	for rows.Next() {
		p, err := scanProxy(rows)
		if err != nil {
			return nil, err
		}
		if p != nil {
			out = append(out, *p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, harvesterErrors.Wrap(harvesterErrors.KindStorage, "store.scanProxies", err)
	}
	return out, nil
}

func scanCheckResults(rows *sql.Rows) ([]CheckResult, error) {
	var out []CheckResult
	for rows.Next() {
		var c CheckResult
		var errMsg, targetURL sql.NullString
		var statusCode sql.NullInt64
		if err := rows.Scan(&c.ID, &c.ProxyID, &c.IsSuccessful, &c.ResponseTimeMs, &errMsg, &c.CheckType,
			&targetURL, &statusCode, &c.CompositeScore, &c.CheckedAt); err != nil {
			return nil, harvesterErrors.Wrap(harvesterErrors.KindStorage, "store.scanCheckResults", err)
		}
		c.ErrorMessage, c.TargetURL, c.StatusCode = errMsg.String, targetURL.String, int(statusCode.Int64)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, harvesterErrors.Wrap(harvesterErrors.KindStorage, "store.scanCheckResults", err)
	}
	return out, nil
}

// mergeProxy folds an incoming observation into the existing row per the
// upsert rule (spec.md §4.5): never downgrade last_success, never reset
// created_at, union metadata keys, and let the incoming observation's
// freshly computed quality fields win.
func mergeProxy(existing, incoming Proxy) Proxy {
	merged := incoming

	if existing.LastSuccessAt.After(merged.LastSuccessAt) {
		merged.LastSuccessAt = existing.LastSuccessAt
	}

	if existing.Metadata != nil {
		union := make(map[string]string, len(existing.Metadata)+len(incoming.Metadata))
		for k, v := range existing.Metadata {
			union[k] = v
		}
		for k, v := range incoming.Metadata {
			union[k] = v
		}
		merged.Metadata = union
	}

	if merged.Country == "" {
		merged.Country = existing.Country
	}
	if merged.Region == "" {
		merged.Region = existing.Region
	}
	if merged.City == "" {
		merged.City = existing.City
	}
	if merged.Anonymity == AnonymityUnknown {
		merged.Anonymity = existing.Anonymity
	}

	return merged
}

// aggregateStats computes the GET /proxies/stats aggregate shared by both
// backends — the GROUP BY syntax below is portable to both SQLite and
// PostgreSQL so one implementation suffices.
func aggregateStats(ctx context.Context, db *sql.DB) (*Stats, error) {
	stats := &Stats{
		ByProtocol:  make(map[string]int),
		ByCountry:   make(map[string]int),
		ByAnonymity: make(map[string]int),
	}

	row := db.QueryRowContext(ctx, "SELECT COUNT(*), COALESCE(AVG(quality_score), 0) FROM proxies")
	if err := row.Scan(&stats.Total, &stats.AverageScore); err != nil {
		return nil, harvesterErrors.Wrap(harvesterErrors.KindStorage, "store.aggregateStats", err)
	}

	// TRUE is a literal rather than a bound arg so this query needs no
	// driver-specific placeholder and can be shared by both backends.
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM proxies WHERE is_active = TRUE").Scan(&stats.Active); err != nil {
		return nil, harvesterErrors.Wrap(harvesterErrors.KindStorage, "store.aggregateStats", err)
	}

	if err := groupCount(ctx, db, "protocol", stats.ByProtocol); err != nil {
		return nil, err
	}
	if err := groupCount(ctx, db, "country", stats.ByCountry); err != nil {
		return nil, err
	}
	if err := groupCount(ctx, db, "anonymity", stats.ByAnonymity); err != nil {
		return nil, err
	}

	return stats, nil
}

func groupCount(ctx context.Context, db *sql.DB, column string, into map[string]int) error {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT %s, COUNT(*) FROM proxies WHERE %s IS NOT NULL AND %s != '' GROUP BY %s", column, column, column, column))
	if err != nil {
		return harvesterErrors.Wrap(harvesterErrors.KindStorage, "store.groupCount", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return harvesterErrors.Wrap(harvesterErrors.KindStorage, "store.groupCount", err)
		}
		into[key] = count
	}
	return rows.Err()
}
