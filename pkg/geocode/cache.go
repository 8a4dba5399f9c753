package geocode

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const cacheMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	query_hash TEXT PRIMARY KEY,
	query      TEXT NOT NULL,
	matched    INTEGER NOT NULL,
	geom       BLOB,
	address    TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL DEFAULT '',
	quality    TEXT NOT NULL DEFAULT '',
	cached_at  INTEGER NOT NULL
);
`

// Cache stores geocode results, matches and misses alike, in SQLite.
// Locations are stored as EWKB points.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// OpenCache opens a cache at path. An empty path or ":memory:" keeps the
// cache in memory for the lifetime of the process. A zero ttl never expires
// entries.
func OpenCache(ctx context.Context, path string, ttl time.Duration) (*Cache, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "geocode cache: open")
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA busy_timeout=5000"}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL", "PRAGMA synchronous=NORMAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "geocode cache: exec %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, cacheMigration); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "geocode cache: migrate")
	}
	return &Cache{db: db, ttl: ttl, now: time.Now}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// cacheKey returns SHA-256 hex of the normalized query for cache lookup.
func cacheKey(query string) string {
	h := sha256.Sum256([]byte(strings.ToLower(normalizeQuery(query))))
	return fmt.Sprintf("%x", h)
}

// Get returns a cached result, or nil when the query is not cached or its
// entry expired.
func (c *Cache) Get(ctx context.Context, query string) (*Result, error) {
	q := "SELECT matched, geom, address, source, quality FROM geocode_cache WHERE query_hash = ?"
	args := []any{cacheKey(query)}
	if c.ttl > 0 {
		q += " AND cached_at > ?"
		args = append(args, c.now().Add(-c.ttl).Unix())
	}

	var (
		matched                  bool
		blob                     []byte
		address, source, quality string
	)
	err := c.db.QueryRowContext(ctx, q, args...).Scan(&matched, &blob, &address, &source, &quality)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "geocode cache: lookup")
	}

	r := &Result{Query: query, Matched: matched, Address: address, Source: source, Quality: quality}
	if matched {
		g, err := ewkb.Unmarshal(blob)
		if err != nil {
			return nil, eris.Wrap(err, "geocode cache: decode geometry")
		}
		pt, ok := g.(*geom.Point)
		if !ok {
			return nil, eris.Errorf("geocode cache: unexpected geometry %T", g)
		}
		r.Longitude, r.Latitude = pt.X(), pt.Y()
	}

	zap.L().Debug("geocode cache hit", zap.String("query", query), zap.Bool("matched", matched))
	return r, nil
}

// Put stores a result, replacing any previous entry for the query.
func (c *Cache) Put(ctx context.Context, query string, r *Result) error {
	var blob []byte
	if pt := r.Point(); pt != nil {
		var err error
		blob, err = ewkb.Marshal(pt, ewkb.NDR)
		if err != nil {
			return eris.Wrap(err, "geocode cache: encode geometry")
		}
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (query_hash, query, matched, geom, address, source, quality, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (query_hash) DO UPDATE SET
			matched = excluded.matched,
			geom = excluded.geom,
			address = excluded.address,
			source = excluded.source,
			quality = excluded.quality,
			cached_at = excluded.cached_at`,
		cacheKey(query), normalizeQuery(query), r.Matched, blob, r.Address, r.Source, r.Quality, c.now().Unix(),
	)
	if err != nil {
		return eris.Wrap(err, "geocode cache: store")
	}
	return nil
}

// Len returns the number of cached entries.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM geocode_cache").Scan(&n); err != nil {
		return 0, eris.Wrap(err, "geocode cache: count")
	}
	return n, nil
}
