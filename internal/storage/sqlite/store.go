package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"linkhealth/internal/models"
	"linkhealth/internal/storage"
)

// SQLiteStore implements the storage.Storer interface for SQLite.
//
// Each health record occupies one row. Fields the scheduler filters on are
// flat columns; the bounded check history and the alert ledger are stored as
// JSON documents. UpdateRecord replaces the whole row in a single statement,
// which gives the atomic read-modify-write the ingestion path requires.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore and establishes a connection to the database
// file. It also runs migrations to ensure the schema is up to date.
func New(ctx context.Context, dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL", dataSourceName))
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	store := &SQLiteStore{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// migrate ensures the database schema is created.
func (s *SQLiteStore) migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS health_records (
	link_id                TEXT PRIMARY KEY,
	destination_url        TEXT NOT NULL,
	is_healthy             INTEGER NOT NULL,
	last_checked_at        TEXT,
	last_status_code       INTEGER,
	last_response_time_ms  INTEGER,
	consecutive_failures   INTEGER NOT NULL,
	total_checks           INTEGER NOT NULL,
	successful_checks      INTEGER NOT NULL,
	failed_checks          INTEGER NOT NULL,
	uptime_percent         REAL NOT NULL,
	avg_response_time_ms   INTEGER NOT NULL,
	last_downtime_at       TEXT,
	check_interval_minutes INTEGER NOT NULL,
	enabled                INTEGER NOT NULL,
	notify_on_failure      INTEGER NOT NULL,
	failure_threshold      INTEGER NOT NULL,
	check_history          TEXT NOT NULL,
	alerts                 TEXT NOT NULL,
	created_at             TEXT NOT NULL,
	updated_at             TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_health_records_enabled_last_checked ON health_records (enabled, last_checked_at);
CREATE INDEX IF NOT EXISTS idx_health_records_is_healthy ON health_records (is_healthy);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

const recordColumns = `link_id, destination_url, is_healthy, last_checked_at, last_status_code,
	last_response_time_ms, consecutive_failures, total_checks, successful_checks, failed_checks,
	uptime_percent, avg_response_time_ms, last_downtime_at, check_interval_minutes, enabled,
	notify_on_failure, failure_threshold, check_history, alerts, created_at, updated_at`

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseTimePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return nil
	}
	return &t
}

// recordArgs flattens a health record into the column order of recordColumns.
func recordArgs(r *models.HealthRecord) ([]interface{}, error) {
	history, err := json.Marshal(r.CheckHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to encode check history: %w", err)
	}
	alerts, err := json.Marshal(r.Alerts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode alerts: %w", err)
	}
	return []interface{}{
		r.LinkID,
		r.DestinationURL,
		r.CurrentStatus.IsHealthy,
		formatTimePtr(r.CurrentStatus.LastCheckedAt),
		r.CurrentStatus.LastStatusCode,
		r.CurrentStatus.LastResponseTimeMS,
		r.CurrentStatus.ConsecutiveFailures,
		r.Statistics.TotalChecks,
		r.Statistics.SuccessfulChecks,
		r.Statistics.FailedChecks,
		r.Statistics.UptimePercent,
		r.Statistics.AverageResponseTimeMS,
		formatTimePtr(r.Statistics.LastDowntimeAt),
		r.Settings.CheckIntervalMinutes,
		r.Settings.Enabled,
		r.Settings.NotifyOnFailure,
		r.Settings.FailureThreshold,
		string(history),
		string(alerts),
		formatTime(r.CreatedAt),
		formatTime(r.UpdatedAt),
	}, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*models.HealthRecord, error) {
	var r models.HealthRecord
	var lastCheckedAt, lastDowntimeAt *string
	var historyJSON, alertsJSON, createdAt, updatedAt string
	err := row.Scan(
		&r.LinkID,
		&r.DestinationURL,
		&r.CurrentStatus.IsHealthy,
		&lastCheckedAt,
		&r.CurrentStatus.LastStatusCode,
		&r.CurrentStatus.LastResponseTimeMS,
		&r.CurrentStatus.ConsecutiveFailures,
		&r.Statistics.TotalChecks,
		&r.Statistics.SuccessfulChecks,
		&r.Statistics.FailedChecks,
		&r.Statistics.UptimePercent,
		&r.Statistics.AverageResponseTimeMS,
		&lastDowntimeAt,
		&r.Settings.CheckIntervalMinutes,
		&r.Settings.Enabled,
		&r.Settings.NotifyOnFailure,
		&r.Settings.FailureThreshold,
		&historyJSON,
		&alertsJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.CurrentStatus.LastCheckedAt = parseTimePtr(lastCheckedAt)
	r.Statistics.LastDowntimeAt = parseTimePtr(lastDowntimeAt)
	if err := json.Unmarshal([]byte(historyJSON), &r.CheckHistory); err != nil {
		return nil, fmt.Errorf("failed to decode check history: %w", err)
	}
	if err := json.Unmarshal([]byte(alertsJSON), &r.Alerts); err != nil {
		return nil, fmt.Errorf("failed to decode alerts: %w", err)
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &r, nil
}

// CreateRecord inserts a new health record. Returns storage.ErrDuplicateKey
// if a record for the link already exists.
func (s *SQLiteStore) CreateRecord(ctx context.Context, record *models.HealthRecord) error {
	args, err := recordArgs(record)
	if err != nil {
		return err
	}
	query := `
INSERT INTO health_records (` + recordColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(link_id) DO NOTHING`
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert health record: %w", err)
	}
	rowsAffected, _ := res.RowsAffected()
	if rowsAffected == 0 {
		return storage.ErrDuplicateKey
	}
	return nil
}

// GetRecord retrieves the health record for a link.
func (s *SQLiteStore) GetRecord(ctx context.Context, linkID string) (*models.HealthRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM health_records WHERE link_id = ?`
	record, err := scanRecord(s.db.QueryRowContext(ctx, query, linkID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get health record: %w", err)
	}
	return record, nil
}

// UpdateRecord replaces the stored record in a single statement.
func (s *SQLiteStore) UpdateRecord(ctx context.Context, record *models.HealthRecord) error {
	args, err := recordArgs(record)
	if err != nil {
		return err
	}
	// Shift link_id to the WHERE clause.
	args = append(args[1:], record.LinkID)
	query := `
UPDATE health_records SET
	destination_url = ?, is_healthy = ?, last_checked_at = ?, last_status_code = ?,
	last_response_time_ms = ?, consecutive_failures = ?, total_checks = ?, successful_checks = ?,
	failed_checks = ?, uptime_percent = ?, avg_response_time_ms = ?, last_downtime_at = ?,
	check_interval_minutes = ?, enabled = ?, notify_on_failure = ?, failure_threshold = ?,
	check_history = ?, alerts = ?, created_at = ?, updated_at = ?
WHERE link_id = ?`
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update health record: %w", err)
	}
	rowsAffected, _ := res.RowsAffected()
	if rowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListRecords retrieves records for the supplied link IDs, optionally
// filtered by current health state.
func (s *SQLiteStore) ListRecords(ctx context.Context, params storage.ListParams) ([]models.HealthRecord, error) {
	if len(params.LinkIDs) == 0 {
		return []models.HealthRecord{}, nil
	}
	var args []interface{}
	qb := strings.Builder{}
	qb.WriteString(`SELECT ` + recordColumns + ` FROM health_records WHERE link_id IN (`)
	for i, id := range params.LinkIDs {
		if i > 0 {
			qb.WriteString(", ")
		}
		qb.WriteString("?")
		args = append(args, id)
	}
	qb.WriteString(")")
	switch params.Filter {
	case storage.FilterHealthy:
		qb.WriteString(" AND is_healthy = 1")
	case storage.FilterUnhealthy:
		qb.WriteString(" AND is_healthy = 0")
	}
	qb.WriteString(" ORDER BY link_id")

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list health records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ListDue returns enabled records whose check interval has elapsed. The
// enabled filter runs in SQL; the per-record interval comparison runs in Go
// because each row carries its own cadence.
func (s *SQLiteStore) ListDue(ctx context.Context, now time.Time) ([]models.HealthRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM health_records WHERE enabled = 1 ORDER BY link_id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query enabled records: %w", err)
	}
	defer rows.Close()
	records, err := collectRecords(rows)
	if err != nil {
		return nil, err
	}
	var due []models.HealthRecord
	for _, r := range records {
		if r.Due(now) {
			due = append(due, r)
		}
	}
	return due, nil
}

func collectRecords(rows *sql.Rows) ([]models.HealthRecord, error) {
	var records []models.HealthRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan health record row: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}
