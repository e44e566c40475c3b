package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/threadcount/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "threadcount.db"

// ErrRunNotFound is returned when no stored run matches a query.
var ErrRunNotFound = errors.New("run not found")

// RunDB stores scrape runs in SQLite.
type RunDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RunDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*RunDB, error) {
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

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

// Path returns the database file path.
func (rdb *RunDB) Path() string {
	return rdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (rdb *RunDB) createTables() error {
	schema := `
	-- One row per scrape of a site
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		site TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		interrupted INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		output_file TEXT,
		steps TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_site ON runs(site);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Threads of a run in discovery order
	CREATE TABLE IF NOT EXISTS threads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		word_count TEXT NOT NULL,
		problem TEXT,
		page_hash TEXT,
		threadmarks INTEGER,
		approx_words INTEGER,
		UNIQUE(run_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_threads_run ON threads(run_id);
	CREATE INDEX IF NOT EXISTS idx_threads_url ON threads(url);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun inserts or replaces a run and all of its threads.
func (rdb *RunDB) SaveRun(ctx context.Context, run *model.Run) (err error) {
	stepsJSON, err := json.Marshal(run.Steps)
	if err != nil {
		return fmt.Errorf("failed to serialize steps: %w", err)
	}

	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := `
	INSERT INTO runs (id, site, started_at, finished_at, interrupted, error, output_file, steps)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		site = excluded.site,
		started_at = excluded.started_at,
		finished_at = excluded.finished_at,
		interrupted = excluded.interrupted,
		error = excluded.error,
		output_file = excluded.output_file,
		steps = excluded.steps
	`
	if _, err = tx.ExecContext(ctx, query,
		run.ID,
		run.Site,
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.FinishedAt),
		run.Interrupted,
		run.ErrorMessage,
		run.OutputFile,
		string(stepsJSON),
	); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM threads WHERE run_id = ?", run.ID); err != nil {
		return fmt.Errorf("failed to clear threads: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO threads (run_id, position, name, url, word_count, problem, page_hash, threadmarks, approx_words)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare thread insert: %w", err)
	}
	defer stmt.Close()

	for i, th := range run.Threads {
		tag := th.Tag()
		if _, err = stmt.ExecContext(ctx,
			run.ID,
			i,
			th.Name,
			th.URL,
			th.WordCount,
			th.Problem,
			th.PageHash,
			tag.Threadmarks,
			tag.ApproxWords,
		); err != nil {
			return fmt.Errorf("failed to save thread %q: %w", th.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// GetRun retrieves a run and its threads by ID.
func (rdb *RunDB) GetRun(ctx context.Context, id string) (*model.Run, error) {
	query := `
	SELECT id, site, started_at, finished_at, interrupted, error, output_file, steps
	FROM runs
	WHERE id = ?
	`

	run, err := scanRun(rdb.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	threads, err := rdb.threads(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	run.Threads = threads
	return run, nil
}

// LatestRun retrieves the most recent run of a site.
func (rdb *RunDB) LatestRun(ctx context.Context, site string) (*model.Run, error) {
	var id string
	err := rdb.db.QueryRowContext(ctx, `
	SELECT id FROM runs
	WHERE site = ?
	ORDER BY started_at DESC
	LIMIT 1
	`, site).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w for site %s", ErrRunNotFound, site)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return rdb.GetRun(ctx, id)
}

// RunMetadata summarizes a stored run without loading its threads.
type RunMetadata struct {
	// ID is the run ID.
	ID string

	// Site is the site name.
	Site string

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time
	FinishedAt time.Time

	// Threads is the number of threads discovered.
	Threads int

	// Found is the number of threads with a word count.
	Found int

	// Interrupted is true for runs that were cancelled.
	Interrupted bool

	// Error is the error that stopped the run, if any.
	Error string

	// OutputFile is the CSV file written for the run.
	OutputFile string
}

// ListRuns returns run metadata, newest first. An empty site lists all runs.
func (rdb *RunDB) ListRuns(ctx context.Context, site string) ([]RunMetadata, error) {
	query := `
	SELECT r.id, r.site, r.started_at, r.finished_at, r.interrupted, r.error, r.output_file,
		COUNT(t.id),
		COALESCE(SUM(CASE WHEN t.word_count NOT IN (?, ?) THEN 1 ELSE 0 END), 0)
	FROM runs r
	LEFT JOIN threads t ON t.run_id = r.id
	`
	args := []any{model.UnknownWordCount, model.ProblemWordCountNotFound}
	if site != "" {
		query += " WHERE r.site = ?"
		args = append(args, site)
	}
	query += " GROUP BY r.id ORDER BY r.started_at DESC"

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	results := make([]RunMetadata, 0)
	for rows.Next() {
		var meta RunMetadata
		var started string
		var finished, errMsg, output sql.NullString

		if err := rows.Scan(
			&meta.ID,
			&meta.Site,
			&started,
			&finished,
			&meta.Interrupted,
			&errMsg,
			&output,
			&meta.Threads,
			&meta.Found,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		meta.StartedAt = parseTimestamp(started)
		meta.FinishedAt = parseTimestamp(finished.String)
		meta.Error = errMsg.String
		meta.OutputFile = output.String
		results = append(results, meta)
	}

	return results, rows.Err()
}

// DeleteRun removes a run and its threads.
func (rdb *RunDB) DeleteRun(ctx context.Context, id string) error {
	result, err := rdb.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// threads loads the threads of a run in discovery order.
func (rdb *RunDB) threads(ctx context.Context, runID string) ([]*model.Thread, error) {
	rows, err := rdb.db.QueryContext(ctx, `
	SELECT name, url, word_count, problem, page_hash
	FROM threads
	WHERE run_id = ?
	ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query threads: %w", err)
	}
	defer rows.Close()

	threads := make([]*model.Thread, 0)
	for rows.Next() {
		var th model.Thread
		var problem, hash sql.NullString
		if err := rows.Scan(&th.Name, &th.URL, &th.WordCount, &problem, &hash); err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		th.Problem = problem.String
		th.PageHash = hash.String
		threads = append(threads, &th)
	}
	return threads, rows.Err()
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun reads a runs row without threads.
func scanRun(row rowScanner) (*model.Run, error) {
	var run model.Run
	var started string
	var finished, errMsg, output, steps sql.NullString

	err := row.Scan(&run.ID, &run.Site, &started, &finished, &run.Interrupted, &errMsg, &output, &steps)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.StartedAt = parseTimestamp(started)
	run.FinishedAt = parseTimestamp(finished.String)
	run.ErrorMessage = errMsg.String
	run.OutputFile = output.String
	if steps.Valid && steps.String != "" && steps.String != "null" {
		if err := json.Unmarshal([]byte(steps.String), &run.Steps); err != nil {
			return nil, fmt.Errorf("failed to parse steps: %w", err)
		}
	}
	if run.ErrorMessage != "" {
		run.Err = errors.New(run.ErrorMessage)
	}
	return &run, nil
}

// formatTimestamp stores times in UTC with nanoseconds so that they sort
// lexically. The zero time is stored as an empty string.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

// timestampLayout is a fixed-width RFC3339 layout, so stored values sort
// in time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// timestampFormats contains the timestamp formats accepted when reading.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
