package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"relay-hq/triton/pkg/automation/rule"
)

// SQLiteBackend implements Backend using SQLite for durable rule storage.
// It is suitable for single-instance deployments where the rule set must
// survive restarts. Conditions are stored as a JSON column; everything the
// dispatcher sorts or filters on gets its own column.
type SQLiteBackend struct {
	db *sql.DB

	saveStmt   *sql.Stmt
	deleteStmt *sql.Stmt
}

// SQLiteBackendConfig configures the SQLite rule backend.
type SQLiteBackendConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5s
	BusyTimeout time.Duration
}

// NewSQLiteBackend creates a SQLite rule backend with default settings.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	return NewSQLiteBackendWithConfig(SQLiteBackendConfig{DBPath: dbPath})
}

// NewSQLiteBackendWithConfig creates a SQLite rule backend.
func NewSQLiteBackendWithConfig(cfg SQLiteBackendConfig) (*SQLiteBackend, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	backend := &SQLiteBackend{db: db}

	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := backend.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return backend, nil
}

// initSchema creates the rules table if it does not exist.
func (s *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		trigger_type TEXT NOT NULL,
		conditions TEXT,
		priority INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		execution_count INTEGER NOT NULL DEFAULT 0,
		last_executed_at INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rules_trigger_type ON rules(trigger_type);
	CREATE INDEX IF NOT EXISTS idx_rules_is_active ON rules(is_active);
	`

	_, err := s.db.Exec(schema)
	return err
}

// prepareStatements prepares the write statements for reuse.
func (s *SQLiteBackend) prepareStatements() error {
	var err error

	s.saveStmt, err = s.db.Prepare(`
		INSERT INTO rules (id, name, trigger_type, conditions, priority, is_active,
			execution_count, last_executed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			trigger_type = excluded.trigger_type,
			conditions = excluded.conditions,
			priority = excluded.priority,
			is_active = excluded.is_active,
			execution_count = excluded.execution_count,
			last_executed_at = excluded.last_executed_at,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare save statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`DELETE FROM rules WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	return nil
}

// SaveRule inserts or updates one rule.
func (s *SQLiteBackend) SaveRule(ctx context.Context, r *rule.Rule) error {
	if r == nil {
		return fmt.Errorf("rule cannot be nil")
	}

	conditions, err := json.Marshal(r.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}

	var lastExecuted any
	if !r.LastExecutedAt.IsZero() {
		lastExecuted = r.LastExecutedAt.UnixMilli()
	}

	_, err = s.saveStmt.ExecContext(ctx,
		r.ID, r.Name, r.TriggerType, string(conditions), r.Priority,
		boolToInt(r.IsActive), r.ExecutionCount, lastExecuted,
		r.CreatedAt.UnixMilli(), r.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save rule %s: %w", r.ID, err)
	}
	return nil
}

// DeleteRule removes one rule.
func (s *SQLiteBackend) DeleteRule(ctx context.Context, id string) error {
	if _, err := s.deleteStmt.ExecContext(ctx, id); err != nil {
		return fmt.Errorf("failed to delete rule %s: %w", id, err)
	}
	return nil
}

// LoadRules returns every persisted rule.
func (s *SQLiteBackend) LoadRules(ctx context.Context) ([]*rule.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, trigger_type, conditions, priority, is_active,
			execution_count, last_executed_at, created_at, updated_at
		FROM rules
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []*rule.Rule
	for rows.Next() {
		var (
			r            rule.Rule
			conditions   sql.NullString
			isActive     int
			lastExecuted sql.NullInt64
			createdAt    int64
			updatedAt    int64
		)

		if err := rows.Scan(&r.ID, &r.Name, &r.TriggerType, &conditions,
			&r.Priority, &isActive, &r.ExecutionCount, &lastExecuted,
			&createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}

		if conditions.Valid && conditions.String != "" {
			if err := json.Unmarshal([]byte(conditions.String), &r.Conditions); err != nil {
				return nil, fmt.Errorf("failed to unmarshal conditions for rule %s: %w", r.ID, err)
			}
		}
		r.IsActive = isActive != 0
		if lastExecuted.Valid {
			r.LastExecutedAt = time.UnixMilli(lastExecuted.Int64)
		}
		r.CreatedAt = time.UnixMilli(createdAt)
		r.UpdatedAt = time.UnixMilli(updatedAt)

		rules = append(rules, &r)
	}

	return rules, rows.Err()
}

// Close releases the database handle.
func (s *SQLiteBackend) Close() error {
	if s.saveStmt != nil {
		s.saveStmt.Close()
	}
	if s.deleteStmt != nil {
		s.deleteStmt.Close()
	}
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
