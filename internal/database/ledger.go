package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/roadworks/internal/model"
)

// FileName is the name of the ledger database inside its directory.
const FileName = "roadworks.db"

var (
	// ErrLedgerNotFound is returned by Open when CreateIfNotExists is false
	// and no database exists yet.
	ErrLedgerNotFound = errors.New("database not found")

	// ErrRunNotFound is returned when no run matches the requested ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrAmbiguousRunID is returned when an ID prefix matches several runs.
	ErrAmbiguousRunID = errors.New("run ID prefix matches more than one run")
)

// Ledger stores the history of fetch and sort runs in SQLite.
// It is a record for humans; the pipeline never reads it back to decide
// what to download or move.
type Ledger struct {
	db     *sql.DB
	dbPath string
}

// Options configures Ledger behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
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

// Open opens or creates the ledger in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*Ledger, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrLedgerNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// modernc.org/sqlite: mode=rw refuses to create a missing file, mode=rwc creates it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	l := &Ledger{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close() //nolint:errcheck // Already returning an error
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := l.createTables(); err != nil {
		_ = db.Close() //nolint:errcheck // Already returning an error
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return l, nil
}

// Path returns the path of the database file.
func (l *Ledger) Path() string {
	return l.dbPath
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createTables() error {
	schema := `
	-- One row per command invocation. Stage columns are NULL when the
	-- stage did not run.
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		cancelled INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		performed_steps TEXT,

		html_path TEXT,
		download_dir TEXT,
		found INTEGER,
		downloaded INTEGER,
		skipped INTEGER,
		failed INTEGER,
		bytes INTEGER,

		source_dir TEXT,
		new_format_dir TEXT,
		old_format_dir TEXT,
		unknown_format_dir TEXT,
		processed INTEGER,
		moved_new INTEGER,
		moved_old INTEGER,
		unrecognized INTEGER,
		parse_errors INTEGER,
		move_failed INTEGER,
		renamed INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS downloads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		filename TEXT,
		path TEXT,
		status TEXT NOT NULL,
		bytes INTEGER NOT NULL DEFAULT 0,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_downloads_run ON downloads(run_id);
	CREATE INDEX IF NOT EXISTS idx_downloads_url ON downloads(url);

	CREATE TABLE IF NOT EXISTS classifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		filename TEXT NOT NULL,
		root TEXT,
		local_name TEXT,
		format TEXT NOT NULL,
		destination TEXT,
		renamed INTEGER NOT NULL DEFAULT 0,
		parse_error TEXT,
		move_error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_classifications_run ON classifications(run_id);
	CREATE INDEX IF NOT EXISTS idx_classifications_format ON classifications(format);
	`

	_, err := l.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRunReport stores a run and all of its item results in one transaction.
func (l *Ledger) SaveRunReport(ctx context.Context, report *model.RunReport) (err error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() //nolint:errcheck // Already returning an error
		}
	}()

	if err := insertRun(ctx, tx, report); err != nil {
		return err
	}

	if report.Fetch != nil {
		for i, r := range report.Fetch.Results {
			_, err := tx.ExecContext(ctx, `
			INSERT INTO downloads (run_id, position, url, filename, path, status, bytes, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				report.ID, i, r.URL, r.Filename, r.Path, string(r.Status), r.Bytes, nullString(r.Error),
			)
			if err != nil {
				return fmt.Errorf("failed to save download: %w", err)
			}
		}
	}

	if report.Sort != nil {
		for i, c := range report.Sort.Results {
			_, err := tx.ExecContext(ctx, `
			INSERT INTO classifications (run_id, position, filename, root, local_name, format, destination, renamed, parse_error, move_error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				report.ID, i, c.Filename, c.Root, c.LocalName, c.Format.String(), c.Destination,
				c.Renamed, nullString(c.ParseError), nullString(c.MoveError),
			)
			if err != nil {
				return fmt.Errorf("failed to save classification: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

func insertRun(ctx context.Context, tx *sql.Tx, report *model.RunReport) error {
	var (
		htmlPath, downloadDir                      sql.NullString
		found, downloaded, skipped, failed, nbytes sql.NullInt64
	)
	if f := report.Fetch; f != nil {
		htmlPath, downloadDir = nullString(f.HTMLPath), nullString(f.DownloadDir)
		found, downloaded = nullInt(int64(f.Found)), nullInt(int64(f.Downloaded))
		skipped, failed, nbytes = nullInt(int64(f.Skipped)), nullInt(int64(f.Failed)), nullInt(f.Bytes)
	}

	var (
		sourceDir, newDir, oldDir, unknownDir                                         sql.NullString
		processed, movedNew, movedOld, unrecognized, parseErrors, moveFailed, renamed sql.NullInt64
	)
	if s := report.Sort; s != nil {
		sourceDir, newDir = nullString(s.SourceDir), nullString(s.NewFormatDir)
		oldDir, unknownDir = nullString(s.OldFormatDir), nullString(s.UnknownFormatDir)
		processed, movedNew, movedOld = nullInt(int64(s.Processed)), nullInt(int64(s.MovedNew)), nullInt(int64(s.MovedOld))
		unrecognized, parseErrors = nullInt(int64(s.Unrecognized)), nullInt(int64(s.ParseErrors))
		moveFailed, renamed = nullInt(int64(s.MoveFailed)), nullInt(int64(s.Renamed))
	}

	var finishedAt sql.NullString
	if !report.FinishedAt.IsZero() {
		finishedAt = nullString(formatTimestamp(report.FinishedAt))
	}

	_, err := tx.ExecContext(ctx, `
	INSERT INTO runs (
		id, kind, started_at, finished_at, cancelled, error, performed_steps,
		html_path, download_dir, found, downloaded, skipped, failed, bytes,
		source_dir, new_format_dir, old_format_dir, unknown_format_dir,
		processed, moved_new, moved_old, unrecognized, parse_errors, move_failed, renamed
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID, string(report.Kind), formatTimestamp(report.StartedAt), finishedAt,
		report.Cancelled, nullString(report.ErrorMessage), strings.Join(report.PerformedSteps, ","),
		htmlPath, downloadDir, found, downloaded, skipped, failed, nbytes,
		sourceDir, newDir, oldDir, unknownDir,
		processed, movedNew, movedOld, unrecognized, parseErrors, moveFailed, renamed,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// RunSummary is one line of the run history.
type RunSummary struct {
	ID         string
	Kind       model.RunKind
	StartedAt  time.Time
	FinishedAt time.Time
	Cancelled  bool
	Error      string

	// Downloaded and Failed are zero when the fetch stage did not run.
	Downloaded int
	Failed     int

	// Sorted counts files moved into the new or old bucket, Unknown those
	// moved into the unknown bucket.
	Sorted  int
	Unknown int
}

// ListRuns returns the most recent runs, newest first.
// A limit of zero or less returns all runs.
func (l *Ledger) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
	SELECT id, kind, started_at, COALESCE(finished_at, ''), cancelled, COALESCE(error, ''),
		COALESCE(downloaded, 0), COALESCE(failed, 0),
		COALESCE(moved_new, 0) + COALESCE(moved_old, 0),
		COALESCE(unrecognized, 0) + COALESCE(parse_errors, 0)
	FROM runs
	ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunSummary, 0)
	for rows.Next() {
		var (
			r                 RunSummary
			kind              string
			started, finished string
		)
		if err := rows.Scan(&r.ID, &kind, &started, &finished, &r.Cancelled, &r.Error,
			&r.Downloaded, &r.Failed, &r.Sorted, &r.Unknown); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Kind = model.RunKind(kind)
		r.StartedAt = parseTimestamp(started)
		r.FinishedAt = parseTimestamp(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRunReport rebuilds a stored run report. id may be a unique prefix of
// the run ID. Returns ErrRunNotFound or ErrAmbiguousRunID when id does not
// identify exactly one run.
func (l *Ledger) GetRunReport(ctx context.Context, id string) (*model.RunReport, error) {
	fullID, err := l.resolveID(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		report                                                                        model.RunReport
		kind, started, steps                                                          string
		finished, errMsg                                                              sql.NullString
		htmlPath, downloadDir                                                         sql.NullString
		found, downloaded, skipped, failed, nbytes                                    sql.NullInt64
		sourceDir, newDir, oldDir, unknownDir                                         sql.NullString
		processed, movedNew, movedOld, unrecognized, parseErrors, moveFailed, renamed sql.NullInt64
	)
	err = l.db.QueryRowContext(ctx, `
	SELECT id, kind, started_at, finished_at, cancelled, error, COALESCE(performed_steps, ''),
		html_path, download_dir, found, downloaded, skipped, failed, bytes,
		source_dir, new_format_dir, old_format_dir, unknown_format_dir,
		processed, moved_new, moved_old, unrecognized, parse_errors, move_failed, renamed
	FROM runs WHERE id = ?`, fullID).Scan(
		&report.ID, &kind, &started, &finished, &report.Cancelled, &errMsg, &steps,
		&htmlPath, &downloadDir, &found, &downloaded, &skipped, &failed, &nbytes,
		&sourceDir, &newDir, &oldDir, &unknownDir,
		&processed, &movedNew, &movedOld, &unrecognized, &parseErrors, &moveFailed, &renamed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	report.Kind = model.RunKind(kind)
	report.StartedAt = parseTimestamp(started)
	report.FinishedAt = parseTimestamp(finished.String)
	report.ErrorMessage = errMsg.String
	if steps != "" {
		report.PerformedSteps = strings.Split(steps, ",")
	}

	if found.Valid {
		report.Fetch = &model.FetchSummary{
			HTMLPath:    htmlPath.String,
			DownloadDir: downloadDir.String,
			Found:       int(found.Int64),
			Downloaded:  int(downloaded.Int64),
			Skipped:     int(skipped.Int64),
			Failed:      int(failed.Int64),
			Bytes:       nbytes.Int64,
		}
		if report.Fetch.Results, err = l.downloads(ctx, fullID); err != nil {
			return nil, err
		}
	}

	if processed.Valid {
		report.Sort = &model.SortSummary{
			SourceDir:        sourceDir.String,
			NewFormatDir:     newDir.String,
			OldFormatDir:     oldDir.String,
			UnknownFormatDir: unknownDir.String,
			Processed:        int(processed.Int64),
			MovedNew:         int(movedNew.Int64),
			MovedOld:         int(movedOld.Int64),
			Unrecognized:     int(unrecognized.Int64),
			ParseErrors:      int(parseErrors.Int64),
			MoveFailed:       int(moveFailed.Int64),
			Renamed:          int(renamed.Int64),
		}
		if report.Sort.Results, err = l.classifications(ctx, fullID); err != nil {
			return nil, err
		}
	}

	return &report, nil
}

// resolveID expands an ID prefix to the full run ID.
func (l *Ledger) resolveID(ctx context.Context, prefix string) (string, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id FROM runs WHERE substr(id, 1, length(?)) = ? LIMIT 2`, prefix, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to look up run: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, 2)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("failed to scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch {
	case prefix == "" || len(ids) == 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case len(ids) > 1:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousRunID, prefix)
	default:
		return ids[0], nil
	}
}

func (l *Ledger) downloads(ctx context.Context, runID string) ([]model.DownloadResult, error) {
	rows, err := l.db.QueryContext(ctx, `
	SELECT url, COALESCE(filename, ''), COALESCE(path, ''), status, bytes, COALESCE(error, '')
	FROM downloads WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get downloads: %w", err)
	}
	defer rows.Close()

	results := make([]model.DownloadResult, 0)
	for rows.Next() {
		var (
			r      model.DownloadResult
			status string
		)
		if err := rows.Scan(&r.URL, &r.Filename, &r.Path, &status, &r.Bytes, &r.Error); err != nil {
			return nil, fmt.Errorf("failed to scan download: %w", err)
		}
		r.Status = model.DownloadStatus(status)
		results = append(results, r)
	}
	return results, rows.Err()
}

func (l *Ledger) classifications(ctx context.Context, runID string) ([]model.Classification, error) {
	rows, err := l.db.QueryContext(ctx, `
	SELECT filename, COALESCE(root, ''), COALESCE(local_name, ''), format, COALESCE(destination, ''),
		renamed, COALESCE(parse_error, ''), COALESCE(move_error, '')
	FROM classifications WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get classifications: %w", err)
	}
	defer rows.Close()

	results := make([]model.Classification, 0)
	for rows.Next() {
		var (
			c      model.Classification
			format string
		)
		if err := rows.Scan(&c.Filename, &c.Root, &c.LocalName, &format, &c.Destination,
			&c.Renamed, &c.ParseError, &c.MoveError); err != nil {
			return nil, fmt.Errorf("failed to scan classification: %w", err)
		}
		if err := c.Format.UnmarshalText([]byte(format)); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// DownloadHistory returns every recorded attempt for url across runs,
// oldest first. Useful to see whether a link has been failing for a while.
func (l *Ledger) DownloadHistory(ctx context.Context, url string) ([]DownloadAttempt, error) {
	rows, err := l.db.QueryContext(ctx, `
	SELECT d.run_id, r.started_at, d.status, COALESCE(d.error, '')
	FROM downloads d JOIN runs r ON r.id = d.run_id
	WHERE d.url = ?
	ORDER BY r.started_at`, url)
	if err != nil {
		return nil, fmt.Errorf("failed to get download history: %w", err)
	}
	defer rows.Close()

	attempts := make([]DownloadAttempt, 0)
	for rows.Next() {
		var (
			a       DownloadAttempt
			started string
			status  string
		)
		if err := rows.Scan(&a.RunID, &started, &status, &a.Error); err != nil {
			return nil, fmt.Errorf("failed to scan download attempt: %w", err)
		}
		a.At = parseTimestamp(started)
		a.Status = model.DownloadStatus(status)
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// DownloadAttempt is one recorded download of a URL.
type DownloadAttempt struct {
	RunID  string
	At     time.Time
	Status model.DownloadStatus
	Error  string
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int64) sql.NullInt64 {
	return sql.NullInt64{Int64: n, Valid: true}
}

// storedTimeFormat is fixed width so that string ordering matches time ordering.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(storedTimeFormat)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp parses a stored timestamp, returning the zero time if no
// format matches.
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
