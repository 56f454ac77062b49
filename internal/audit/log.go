package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/lumenfield/growcore/internal/rules"
)

const (
	defaultQueryLimit = 50
	maxQueryLimit     = 500

	dirPermissions = 0750

	connectTimeout = 5 * time.Second
)

const schema = `
CREATE TABLE IF NOT EXISTS rule_executions (
    id         TEXT PRIMARY KEY,
    rule_id    TEXT NOT NULL,
    rule_name  TEXT NOT NULL,
    status     TEXT NOT NULL,
    trigger_json TEXT NOT NULL,
    results    TEXT,
    error      TEXT,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rule_executions_rule_id
    ON rule_executions (rule_id, created_at);
`

// Log is a durable rule execution log backed by SQLite. It implements
// rules.ExecutionSink.
type Log struct {
	db *sql.DB
}

// Open opens (creating if needed) the audit database at path and
// ensures the schema exists. Use ":memory:" for an ephemeral log.
func Open(path string) (*Log, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
			return nil, fmt.Errorf("creating audit directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	if path == ":memory:" {
		dsn = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}
	// SQLite handles one writer at a time.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("verifying audit database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating audit schema: %w", err)
	}

	return &Log{db: db}, nil
}

// Close releases the database connection.
func (l *Log) Close() error {
	return l.db.Close()
}

// RecordExecution inserts one execution record.
func (l *Log) RecordExecution(ctx context.Context, record rules.ExecutionRecord) error {
	if record.ID == "" {
		return fmt.Errorf("record id is required")
	}

	trigger, err := json.Marshal(record.Trigger)
	if err != nil {
		return fmt.Errorf("marshalling trigger: %w", err)
	}
	var results []byte
	if len(record.Results) > 0 {
		results, err = json.Marshal(record.Results)
		if err != nil {
			return fmt.Errorf("marshalling results: %w", err)
		}
	}
	ts := record.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err = l.db.ExecContext(ctx,
		`INSERT INTO rule_executions (id, rule_id, rule_name, status, trigger_json, results, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.RuleID,
		record.RuleName,
		record.Status,
		string(trigger),
		nullableString(results),
		nullableText(record.Error),
		ts.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting execution record: %w", err)
	}
	return nil
}

// Recent returns execution records ordered newest first. An empty ruleID
// returns records for all rules. Limit defaults to 50, capped at 500.
func (l *Log) Recent(ctx context.Context, ruleID string, limit int) ([]rules.ExecutionRecord, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}

	query := `SELECT id, rule_id, rule_name, status, trigger_json, results, error, created_at
	          FROM rule_executions`
	args := []any{}
	if ruleID != "" {
		query += " WHERE rule_id = ?"
		args = append(args, ruleID)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	records := make([]rules.ExecutionRecord, 0, limit)
	for rows.Next() {
		var rec rules.ExecutionRecord
		var trigger string
		var results, errText sql.NullString
		var createdAt string

		if err := rows.Scan(&rec.ID, &rec.RuleID, &rec.RuleName, &rec.Status, &trigger, &results, &errText, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning execution record: %w", err)
		}
		if err := json.Unmarshal([]byte(trigger), &rec.Trigger); err != nil {
			return nil, fmt.Errorf("unmarshalling trigger: %w", err)
		}
		if results.Valid {
			if err := json.Unmarshal([]byte(results.String), &rec.Results); err != nil {
				return nil, fmt.Errorf("unmarshalling results: %w", err)
			}
		}
		rec.Error = errText.String
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		rec.Timestamp = ts

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating executions: %w", err)
	}
	return records, nil
}

// Prune deletes records older than the retention duration and reports
// how many rows were removed.
func (l *Log) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339Nano)
	result, err := l.db.ExecContext(ctx,
		"DELETE FROM rule_executions WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning executions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return affected, nil
}

func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
