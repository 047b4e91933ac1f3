package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB represents the database connection with pooling
type DB struct {
	*sql.DB
	pool     *ConnectionPool
	prepared map[string]*sql.Stmt
	mutex    sync.RWMutex
}

// ConnectionPool manages database connection pooling
type ConnectionPool struct {
	db           *sql.DB
	maxOpenConns int
	maxIdleConns int
	maxLifetime  time.Duration
}

// NewConnectionPool creates a new database connection pool
func NewConnectionPool(db *sql.DB, maxOpen, maxIdle int, maxLifetime time.Duration) *ConnectionPool {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)

	return &ConnectionPool{
		db:           db,
		maxOpenConns: maxOpen,
		maxIdleConns: maxIdle,
		maxLifetime:  maxLifetime,
	}
}

// GetStats returns connection pool statistics
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	stats := cp.db.Stats()

	return map[string]interface{}{
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"max_open_connections": cp.maxOpenConns,
		"max_idle_connections": cp.maxIdleConns,
		"max_lifetime_seconds": cp.maxLifetime.Seconds(),
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		"max_idle_closed":      stats.MaxIdleClosed,
		"max_lifetime_closed":  stats.MaxLifetimeClosed,
	}
}

// NewDB creates a new database connection with optimized pooling
func NewDB(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "fleetmeter.db")

	connStr := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pool := NewConnectionPool(db, 25, 5, 5*time.Minute)

	database := &DB{
		DB:       db,
		pool:     pool,
		prepared: make(map[string]*sql.Stmt),
	}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := database.initPreparedStatements(); err != nil {
		return nil, fmt.Errorf("failed to initialize prepared statements: %w", err)
	}

	slog.Info("Database initialized with connection pooling",
		"max_open_conns", pool.maxOpenConns,
		"max_idle_conns", pool.maxIdleConns,
		"max_lifetime", pool.maxLifetime)

	return database, nil
}

// migrate creates the necessary tables
func (db *DB) migrate() error {
	queries := []string{
		// Operators: drivers and other dashboard users, scoped to a company
		`CREATE TABLE IF NOT EXISTS operators (
			id TEXT PRIMARY KEY,
			operator_id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			email TEXT,
			role TEXT NOT NULL,
			company_id TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,

		// Raw telemetry events, immutable once imported
		`CREATE TABLE IF NOT EXISTS telemetry_events (
			id TEXT PRIMARY KEY,
			operator_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			occurred_at DATETIME NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (operator_id) REFERENCES operators(operator_id)
		)`,

		// Knowledge question bank (alternatives stored as a JSON array)
		`CREATE TABLE IF NOT EXISTS knowledge_questions (
			id TEXT PRIMARY KEY,
			company_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			type_tag TEXT NOT NULL,
			prompt TEXT NOT NULL,
			alternatives TEXT NOT NULL,
			correct_index INTEGER NOT NULL,
			rationale TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		// Risk scenario bank (options stored as JSON)
		`CREATE TABLE IF NOT EXISTS risk_scenarios (
			id TEXT PRIMARY KEY,
			company_id TEXT NOT NULL,
			description TEXT NOT NULL,
			options TEXT NOT NULL,
			time_limit_sec INTEGER NOT NULL,
			scenario_type TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		// Maintenance question bank
		`CREATE TABLE IF NOT EXISTS maintenance_questions (
			id TEXT PRIMARY KEY,
			company_id TEXT NOT NULL,
			question TEXT NOT NULL,
			options TEXT NOT NULL,
			category TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		// Per-company per-module assessment configuration
		`CREATE TABLE IF NOT EXISTS module_configs (
			id TEXT PRIMARY KEY,
			company_id TEXT NOT NULL,
			module TEXT NOT NULL,
			category TEXT NOT NULL,
			weight INTEGER NOT NULL,
			time_limit_sec INTEGER NOT NULL,
			passing_score INTEGER NOT NULL,
			enabled BOOLEAN NOT NULL,
			ord INTEGER NOT NULL,
			shuffle_questions BOOLEAN NOT NULL,
			shuffle_alternatives BOOLEAN NOT NULL,
			questions_per_type INTEGER NOT NULL,
			total_questions INTEGER NOT NULL,
			max_reaction_time_ms INTEGER NOT NULL,
			attempts INTEGER NOT NULL,
			scenarios INTEGER NOT NULL,
			allow_retake BOOLEAN NOT NULL,
			retake_interval_days INTEGER NOT NULL,
			UNIQUE(company_id, module)
		)`,

		// Company-level selection process configuration
		`CREATE TABLE IF NOT EXISTS selection_configs (
			company_id TEXT PRIMARY KEY,
			min_score INTEGER NOT NULL,
			max_test_time_min INTEGER NOT NULL
		)`,

		// Candidates in the selection pipeline
		`CREATE TABLE IF NOT EXISTS candidates (
			id TEXT PRIMARY KEY,
			company_id TEXT NOT NULL,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT,
			license_class TEXT,
			experience TEXT,
			status TEXT NOT NULL,
			registered_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,

		// One row per candidate per module attempt
		`CREATE TABLE IF NOT EXISTS candidate_assessments (
			id TEXT PRIMARY KEY,
			candidate_id TEXT NOT NULL,
			module TEXT NOT NULL,
			score REAL NOT NULL,
			completed_at DATETIME NOT NULL,
			time_spent_sec INTEGER NOT NULL,
			is_completed BOOLEAN NOT NULL,
			UNIQUE(candidate_id, module),
			FOREIGN KEY (candidate_id) REFERENCES candidates(id)
		)`,

		// Server-held copy of the last composed test per candidate and
		// module; grading reads this row, never the client's echo
		`CREATE TABLE IF NOT EXISTS test_instances (
			candidate_id TEXT NOT NULL,
			module TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (candidate_id, module),
			FOREIGN KEY (candidate_id) REFERENCES candidates(id)
		)`,

		// Latest computed risk assessment per driver (upserted)
		`CREATE TABLE IF NOT EXISTS risk_assessments (
			driver_id TEXT PRIMARY KEY,
			company_id TEXT NOT NULL,
			score INTEGER NOT NULL,
			risk_level TEXT NOT NULL,
			factors TEXT NOT NULL,
			recommendations TEXT NOT NULL,
			analysis TEXT NOT NULL,
			event_count INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,

		// Indexes for performance
		`CREATE INDEX IF NOT EXISTS idx_operators_company ON operators(company_id)`,
		`CREATE INDEX IF NOT EXISTS idx_telemetry_operator ON telemetry_events(operator_id)`,
		`CREATE INDEX IF NOT EXISTS idx_telemetry_occurred ON telemetry_events(occurred_at)`,
		`CREATE INDEX IF NOT EXISTS idx_knowledge_company ON knowledge_questions(company_id)`,
		`CREATE INDEX IF NOT EXISTS idx_scenarios_company ON risk_scenarios(company_id)`,
		`CREATE INDEX IF NOT EXISTS idx_maintenance_company ON maintenance_questions(company_id)`,
		`CREATE INDEX IF NOT EXISTS idx_module_configs_company ON module_configs(company_id)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_company ON candidates(company_id)`,
		`CREATE INDEX IF NOT EXISTS idx_candidate_assessments ON candidate_assessments(candidate_id)`,
		`CREATE INDEX IF NOT EXISTS idx_risk_assessments_company ON risk_assessments(company_id)`,
		`CREATE INDEX IF NOT EXISTS idx_risk_assessments_score ON risk_assessments(score DESC)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}

// initPreparedStatements initializes frequently used prepared statements
func (db *DB) initPreparedStatements() error {
	statements := map[string]string{
		"insert_event": `INSERT INTO telemetry_events (id, operator_id, event_type, occurred_at, latitude, longitude, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,

		"get_events_by_operator": `SELECT e.id, e.operator_id, o.name, e.event_type, e.occurred_at, e.latitude, e.longitude
			FROM telemetry_events e
			JOIN operators o ON o.operator_id = e.operator_id
			WHERE e.operator_id = ?
			ORDER BY e.occurred_at ASC`,

		"get_events_by_company": `SELECT e.id, e.operator_id, o.name, e.event_type, e.occurred_at, e.latitude, e.longitude
			FROM telemetry_events e
			JOIN operators o ON o.operator_id = e.operator_id
			WHERE o.company_id = ?
			ORDER BY e.occurred_at ASC`,

		"upsert_risk_assessment": `INSERT INTO risk_assessments (
				driver_id, company_id, score, risk_level, factors,
				recommendations, analysis, event_count, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(driver_id) DO UPDATE SET
				score = excluded.score,
				risk_level = excluded.risk_level,
				factors = excluded.factors,
				recommendations = excluded.recommendations,
				analysis = excluded.analysis,
				event_count = excluded.event_count,
				updated_at = excluded.updated_at`,

		"get_risk_ranking": `SELECT r.driver_id, o.name, r.score, r.risk_level, r.event_count, r.updated_at
			FROM risk_assessments r
			JOIN operators o ON o.operator_id = r.driver_id
			WHERE r.company_id = ?
			ORDER BY r.score DESC
			LIMIT ?`,
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, query := range statements {
		stmt, err := db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement %s: %w", name, err)
		}
		db.prepared[name] = stmt

		slog.Debug("Prepared statement initialized", "name", name)
	}

	return nil
}

// GetPreparedStatement retrieves a prepared statement
func (db *DB) GetPreparedStatement(name string) (*sql.Stmt, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	stmt, exists := db.prepared[name]
	if !exists {
		return nil, fmt.Errorf("prepared statement %s not found", name)
	}

	return stmt, nil
}

// GetPoolStats returns database connection pool statistics
func (db *DB) GetPoolStats() map[string]interface{} {
	return db.pool.GetStats()
}

// Close closes the database connection and prepared statements
func (db *DB) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, stmt := range db.prepared {
		if err := stmt.Close(); err != nil {
			slog.Warn("Failed to close prepared statement", "name", name, "error", err)
		}
	}

	db.prepared = make(map[string]*sql.Stmt)

	return db.DB.Close()
}
