package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openfleet/fleetmeter/internal/risk"
	"github.com/openfleet/fleetmeter/internal/types"
)

// Repository handles database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateOperator inserts a new operator
func (r *Repository) CreateOperator(ctx context.Context, op *Operator) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO operators (id, operator_id, name, email, role, company_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, op.ID, op.OperatorID, op.Name, op.Email, string(op.Role), op.CompanyID, op.CreatedAt, op.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create operator: %w", err)
	}

	return nil
}

// GetOperator looks up an operator by its fleet-facing identifier
func (r *Repository) GetOperator(ctx context.Context, operatorID string) (*Operator, error) {
	var op Operator
	var role string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, operator_id, name, email, role, company_id, created_at, updated_at
		FROM operators
		WHERE operator_id = ?
	`, operatorID).Scan(
		&op.ID, &op.OperatorID, &op.Name, &op.Email,
		&role, &op.CompanyID, &op.CreatedAt, &op.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get operator %s: %w", operatorID, err)
	}
	op.Role = types.Role(role)

	return &op, nil
}

// ListOperators returns every operator belonging to a company
func (r *Repository) ListOperators(ctx context.Context, companyID string) ([]Operator, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, operator_id, name, email, role, company_id, created_at, updated_at
		FROM operators
		WHERE company_id = ?
		ORDER BY name ASC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list operators: %w", err)
	}
	defer rows.Close()

	var ops []Operator
	for rows.Next() {
		var op Operator
		var role string
		if err := rows.Scan(&op.ID, &op.OperatorID, &op.Name, &op.Email,
			&role, &op.CompanyID, &op.CreatedAt, &op.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan operator: %w", err)
		}
		op.Role = types.Role(role)
		ops = append(ops, op)
	}

	return ops, rows.Err()
}

// InsertEvents persists a batch of telemetry events in a single transaction
func (r *Repository) InsertEvents(ctx context.Context, events []types.TelemetryEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := r.db.GetPreparedStatement("insert_event")
	if err != nil {
		return err
	}
	txStmt := tx.StmtContext(ctx, stmt)

	now := time.Now()
	for _, ev := range events {
		id := ev.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := txStmt.ExecContext(ctx, id, ev.OperatorID, string(ev.EventType),
			ev.Timestamp, ev.Latitude, ev.Longitude, now); err != nil {
			return fmt.Errorf("failed to insert event for %s: %w", ev.OperatorID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit events: %w", err)
	}

	return nil
}

// EventsByOperator returns all telemetry events for one driver, oldest first
func (r *Repository) EventsByOperator(ctx context.Context, operatorID string) ([]types.TelemetryEvent, error) {
	stmt, err := r.db.GetPreparedStatement("get_events_by_operator")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, operatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for %s: %w", operatorID, err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// EventsByCompany returns all telemetry events for a company's drivers, oldest first
func (r *Repository) EventsByCompany(ctx context.Context, companyID string) ([]types.TelemetryEvent, error) {
	stmt, err := r.db.GetPreparedStatement("get_events_by_company")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for company %s: %w", companyID, err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]types.TelemetryEvent, error) {
	var events []types.TelemetryEvent
	for rows.Next() {
		var ev types.TelemetryEvent
		var eventType string
		if err := rows.Scan(&ev.ID, &ev.OperatorID, &ev.OperatorName,
			&eventType, &ev.Timestamp, &ev.Latitude, &ev.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.EventType = types.EventType(eventType)
		events = append(events, ev)
	}

	return events, rows.Err()
}

// DeleteEventsBefore removes telemetry events older than the cutoff and
// returns how many rows were deleted
func (r *Repository) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM telemetry_events WHERE occurred_at < ?
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old events: %w", err)
	}

	return res.RowsAffected()
}

// DeleteDriverData removes all telemetry and assessment data for one driver
func (r *Repository) DeleteDriverData(ctx context.Context, driverID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM telemetry_events WHERE operator_id = ?`, driverID); err != nil {
		return fmt.Errorf("failed to delete telemetry for %s: %w", driverID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM risk_assessments WHERE driver_id = ?`, driverID); err != nil {
		return fmt.Errorf("failed to delete assessments for %s: %w", driverID, err)
	}

	return tx.Commit()
}

// SaveAssessment upserts the latest risk assessment for a driver
func (r *Repository) SaveAssessment(ctx context.Context, companyID string, a risk.Assessment) error {
	factors, err := json.Marshal(a.Factors)
	if err != nil {
		return fmt.Errorf("failed to marshal factors: %w", err)
	}

	recs := a.Recommendations
	if recs == nil {
		recs = []string{}
	}
	recommendations, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	stmt, err := r.db.GetPreparedStatement("upsert_risk_assessment")
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = stmt.ExecContext(ctx,
		a.DriverID, companyID, a.Score, string(a.Level),
		string(factors), string(recommendations), a.Analysis, a.EventCount,
		now, now)
	if err != nil {
		return fmt.Errorf("failed to save assessment for %s: %w", a.DriverID, err)
	}

	return nil
}

// GetAssessment loads the stored risk assessment for a driver
func (r *Repository) GetAssessment(ctx context.Context, driverID string) (*risk.Assessment, error) {
	var (
		a       risk.Assessment
		level   string
		factors string
		recs    string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT driver_id, score, risk_level, factors, recommendations, analysis, event_count
		FROM risk_assessments
		WHERE driver_id = ?
	`, driverID).Scan(&a.DriverID, &a.Score, &level, &factors, &recs, &a.Analysis, &a.EventCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment for %s: %w", driverID, err)
	}

	a.Level = risk.Level(level)
	if err := json.Unmarshal([]byte(factors), &a.Factors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal factors: %w", err)
	}
	if err := json.Unmarshal([]byte(recs), &a.Recommendations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recommendations: %w", err)
	}

	return &a, nil
}

// RiskRanking returns a company's drivers ordered by risk score, highest first
func (r *Repository) RiskRanking(ctx context.Context, companyID string, limit int) ([]RankedDriver, error) {
	if limit <= 0 {
		limit = 50
	}

	stmt, err := r.db.GetPreparedStatement("get_risk_ranking")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query risk ranking: %w", err)
	}
	defer rows.Close()

	var ranking []RankedDriver
	for rows.Next() {
		var d RankedDriver
		if err := rows.Scan(&d.DriverID, &d.Name, &d.Score, &d.RiskLevel,
			&d.EventCount, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ranking row: %w", err)
		}
		ranking = append(ranking, d)
	}

	return ranking, rows.Err()
}
