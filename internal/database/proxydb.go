package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/feedrover/internal/model"
	"github.com/nao1215/feedrover/internal/proxy"
)

// FileName is the database file created inside the data directory.
const FileName = "feedrover.db"

// ProxyDB provides SQLite-based storage for the proxy pool and run history.
// It implements proxy.Store, so an Allocator can claim proxies from it
// directly.
//
// Design decision: timestamps are stored as Unix nanoseconds rather than
// SQLite datetime text. The claim is a compare-and-set on the last claim
// time, and integer equality is exact where text formats are not.
type ProxyDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

var _ proxy.Store = (*ProxyDB)(nil)

// Options configures ProxyDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so readers do not block the
	// claim writer.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a ProxyDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*ProxyDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	// busy_timeout makes a claim wait for another process's write lock
	// instead of failing fast; as a DSN pragma it survives reconnects.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}
	dsn += "&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serializes writers inside this process.
	// Other processes are serialized by SQLite's file lock.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pdb := &ProxyDB{
		db:     db,
		dbPath: dbPath,
	}

	ctx := context.Background()
	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := pdb.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return pdb, nil
}

// Path returns the database file path.
func (pdb *ProxyDB) Path() string {
	return pdb.dbPath
}

// Close closes the database connection.
func (pdb *ProxyDB) Close() error {
	return pdb.db.Close()
}

// Ping checks that the database is reachable.
func (pdb *ProxyDB) Ping(ctx context.Context) error {
	return pdb.db.PingContext(ctx)
}

// createTables creates the database schema if it doesn't exist.
func (pdb *ProxyDB) createTables(ctx context.Context) error {
	schema := `
	-- Proxy pool with rotation state
	CREATE TABLE IF NOT EXISTS proxies (
		address TEXT PRIMARY KEY,
		username TEXT NOT NULL DEFAULT '',
		password TEXT NOT NULL DEFAULT '',
		usage_count INTEGER NOT NULL DEFAULT 0 CHECK (usage_count >= 0),
		last_claimed_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_proxies_rotation ON proxies(usage_count, last_claimed_at);

	-- One row per finished crawl session
	CREATE TABLE IF NOT EXISTS crawl_runs (
		id TEXT PRIMARY KEY,
		target TEXT NOT NULL,
		proxy TEXT NOT NULL DEFAULT '',
		outcome TEXT NOT NULL,
		cause TEXT NOT NULL DEFAULT '',
		accepted INTEGER NOT NULL DEFAULT 0,
		rounds INTEGER NOT NULL DEFAULT 0,
		output_path TEXT NOT NULL DEFAULT '',
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_target ON crawl_runs(target);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON crawl_runs(started_at);
	`

	_, err := pdb.db.ExecContext(ctx, schema)
	return err
}

// SeedProxies inserts records whose address is not yet in the pool.
// Existing rows keep their usage state. It returns the number of rows inserted.
func (pdb *ProxyDB) SeedProxies(ctx context.Context, records []model.ProxyRecord) (int, error) {
	tx, err := pdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	INSERT INTO proxies (address, username, password, usage_count, last_claimed_at)
	VALUES (?, ?, ?, 0, NULL)
	ON CONFLICT(address) DO NOTHING
	`

	inserted := 0
	for _, r := range records {
		result, err := tx.ExecContext(ctx, query, r.Address, r.Username, r.Password)
		if err != nil {
			return 0, fmt.Errorf("failed to seed proxy %s: %w", r.Address, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read seed result: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit seed transaction: %w", err)
	}
	return inserted, nil
}

// List implements proxy.Store. Records are ordered by address.
func (pdb *ProxyDB) List(ctx context.Context) ([]model.ProxyRecord, error) {
	query := `
	SELECT address, username, password, usage_count, last_claimed_at
	FROM proxies
	ORDER BY address
	`

	rows, err := pdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list proxies: %w", err)
	}
	defer rows.Close()

	var records []model.ProxyRecord
	for rows.Next() {
		var r model.ProxyRecord
		var last sql.NullInt64

		if err := rows.Scan(&r.Address, &r.Username, &r.Password, &r.UsageCount, &last); err != nil {
			return nil, fmt.Errorf("failed to scan proxy: %w", err)
		}
		r.LastClaimedAt = nanosToTime(last)
		records = append(records, r)
	}

	return records, rows.Err()
}

// CompareAndClaim implements proxy.Store with a single conditional UPDATE.
func (pdb *ProxyDB) CompareAndClaim(ctx context.Context, address string, expectedUsage int64, expectedLast *time.Time, now time.Time) error {
	query := `
	UPDATE proxies
	SET usage_count = usage_count + 1, last_claimed_at = ?
	WHERE address = ? AND usage_count = ? AND last_claimed_at IS ?
	`

	result, err := pdb.db.ExecContext(ctx, query,
		now.UnixNano(),
		address,
		expectedUsage,
		timeToNanos(expectedLast),
	)
	if err != nil {
		return fmt.Errorf("failed to claim proxy: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read claim result: %w", err)
	}
	if n == 1 {
		return nil
	}

	exists, err := pdb.proxyExists(ctx, address)
	if err != nil {
		return err
	}
	if !exists {
		return proxy.ErrNotFound
	}
	return proxy.ErrClaimConflict
}

func (pdb *ProxyDB) proxyExists(ctx context.Context, address string) (bool, error) {
	var count int
	err := pdb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM proxies WHERE address = ?", address).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check proxy: %w", err)
	}
	return count > 0, nil
}

// DeleteProxy removes a proxy from the pool.
// It returns proxy.ErrNotFound when the address is unknown.
func (pdb *ProxyDB) DeleteProxy(ctx context.Context, address string) error {
	result, err := pdb.db.ExecContext(ctx, "DELETE FROM proxies WHERE address = ?", address)
	if err != nil {
		return fmt.Errorf("failed to delete proxy: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if n == 0 {
		return proxy.ErrNotFound
	}
	return nil
}

// ResetUsage zeroes every usage counter and clears claim times.
// This is a maintenance operation; it returns the number of rows touched.
func (pdb *ProxyDB) ResetUsage(ctx context.Context) (int, error) {
	result, err := pdb.db.ExecContext(ctx, "UPDATE proxies SET usage_count = 0, last_claimed_at = NULL")
	if err != nil {
		return 0, fmt.Errorf("failed to reset usage: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read reset result: %w", err)
	}
	return int(n), nil
}

// SaveRun stores a finished crawl run. An empty ID is replaced with a new
// UUID, which is also returned.
func (pdb *ProxyDB) SaveRun(ctx context.Context, run *model.CrawlRun) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	query := `
	INSERT INTO crawl_runs (id, target, proxy, outcome, cause, accepted, rounds, output_path, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := pdb.db.ExecContext(ctx, query,
		run.ID,
		run.Target,
		run.Proxy,
		run.Outcome.String(),
		run.Cause,
		run.Accepted,
		run.Rounds,
		run.OutputPath,
		run.StartedAt.UnixNano(),
		run.FinishedAt.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save crawl run: %w", err)
	}

	return run.ID, nil
}

const runColumns = `id, target, proxy, outcome, cause, accepted, rounds, output_path, started_at, finished_at`

// ListRuns returns runs newest first. An empty target lists every target.
// A limit of zero or less means no limit.
func (pdb *ProxyDB) ListRuns(ctx context.Context, target string, limit int) ([]model.CrawlRun, error) {
	query := "SELECT " + runColumns + " FROM crawl_runs WHERE 1=1"
	args := make([]any, 0, 2)

	if target != "" {
		query += " AND target = ?"
		args = append(args, target)
	}
	query += " ORDER BY started_at DESC, id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := pdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawl runs: %w", err)
	}
	defer rows.Close()

	var runs []model.CrawlRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetRun retrieves one run by ID.
func (pdb *ProxyDB) GetRun(ctx context.Context, id string) (model.CrawlRun, error) {
	row := pdb.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM crawl_runs WHERE id = ?", id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CrawlRun{}, ErrRunNotFound
	}
	return run, err
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (model.CrawlRun, error) {
	var run model.CrawlRun
	var outcome string
	var started, finished int64

	err := row.Scan(
		&run.ID,
		&run.Target,
		&run.Proxy,
		&outcome,
		&run.Cause,
		&run.Accepted,
		&run.Rounds,
		&run.OutputPath,
		&started,
		&finished,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CrawlRun{}, err
	}
	if err != nil {
		return model.CrawlRun{}, fmt.Errorf("failed to scan crawl run: %w", err)
	}

	run.Outcome, err = model.ParseOutcome(outcome)
	if err != nil {
		return model.CrawlRun{}, fmt.Errorf("crawl run %s: %w", run.ID, err)
	}
	run.StartedAt = time.Unix(0, started).UTC()
	run.FinishedAt = time.Unix(0, finished).UTC()

	return run, nil
}

// timeToNanos converts an optional time to a nullable column value.
func timeToNanos(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

// nanosToTime converts a nullable column value to an optional UTC time.
func nanosToTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}
