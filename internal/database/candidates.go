package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openfleet/fleetmeter/internal/assessment"
)

// CreateCandidate inserts a new candidate
func (r *Repository) CreateCandidate(ctx context.Context, c *Candidate) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO candidates (id, company_id, name, email, phone, license_class, experience, status, registered_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.CompanyID, c.Name, c.Email, c.Phone, c.LicenseClass, c.Experience,
		string(c.Status), c.RegisteredAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create candidate: %w", err)
	}

	return nil
}

// GetCandidate looks up a candidate by ID
func (r *Repository) GetCandidate(ctx context.Context, candidateID string) (*Candidate, error) {
	var c Candidate
	var status string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, company_id, name, email, phone, license_class, experience, status, registered_at, updated_at
		FROM candidates
		WHERE id = ?
	`, candidateID).Scan(&c.ID, &c.CompanyID, &c.Name, &c.Email, &c.Phone,
		&c.LicenseClass, &c.Experience, &status, &c.RegisteredAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate %s: %w", candidateID, err)
	}
	c.Status = CandidateStatus(status)

	return &c, nil
}

// ListCandidates returns a company's candidates, newest first
func (r *Repository) ListCandidates(ctx context.Context, companyID string) ([]Candidate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, company_id, name, email, phone, license_class, experience, status, registered_at, updated_at
		FROM candidates
		WHERE company_id = ?
		ORDER BY registered_at DESC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var c Candidate
		var status string
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Name, &c.Email, &c.Phone,
			&c.LicenseClass, &c.Experience, &status, &c.RegisteredAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		c.Status = CandidateStatus(status)
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}

// UpdateCandidateStatus moves a candidate through the selection pipeline
func (r *Repository) UpdateCandidateStatus(ctx context.Context, candidateID string, status CandidateStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE candidates SET status = ?, updated_at = ? WHERE id = ?
	`, string(status), time.Now(), candidateID)
	if err != nil {
		return fmt.Errorf("failed to update candidate status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("candidate %s not found", candidateID)
	}

	return nil
}

// SaveModuleResult upserts one candidate's result for one module. A retake
// replaces the previous row so only the latest attempt counts.
func (r *Repository) SaveModuleResult(ctx context.Context, candidateID string, res assessment.ModuleResult) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO candidate_assessments (id, candidate_id, module, score, completed_at, time_spent_sec, is_completed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(candidate_id, module) DO UPDATE SET
			score = excluded.score,
			completed_at = excluded.completed_at,
			time_spent_sec = excluded.time_spent_sec,
			is_completed = excluded.is_completed
	`, uuid.New().String(), candidateID, string(res.Module), res.Score,
		res.CompletedAt, res.TimeSpentSec, res.Completed)
	if err != nil {
		return fmt.Errorf("failed to save module result: %w", err)
	}

	return nil
}

// SaveTestInstance stores the composed test for one candidate and module.
// Composing again replaces the previous row, so a submission always grades
// against the most recently served test.
func (r *Repository) SaveTestInstance(ctx context.Context, candidateID string, inst assessment.TestInstance) error {
	payload, err := json.Marshal(inst)
	if err != nil {
		return fmt.Errorf("failed to marshal test instance: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO test_instances (candidate_id, module, payload, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(candidate_id, module) DO UPDATE SET
			payload = excluded.payload,
			created_at = excluded.created_at
	`, candidateID, string(inst.Module), string(payload), time.Now())
	if err != nil {
		return fmt.Errorf("failed to save test instance: %w", err)
	}

	return nil
}

// TestInstanceFor loads the stored test for one candidate and module. The
// second return is false when no test was composed yet.
func (r *Repository) TestInstanceFor(ctx context.Context, candidateID string, module assessment.ModuleType) (assessment.TestInstance, bool, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `
		SELECT payload FROM test_instances
		WHERE candidate_id = ? AND module = ?
	`, candidateID, string(module)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return assessment.TestInstance{}, false, nil
	}
	if err != nil {
		return assessment.TestInstance{}, false, fmt.Errorf("failed to query test instance: %w", err)
	}

	var inst assessment.TestInstance
	if err := json.Unmarshal([]byte(payload), &inst); err != nil {
		return assessment.TestInstance{}, false, fmt.Errorf("failed to unmarshal test instance: %w", err)
	}

	return inst, true, nil
}

// ModuleResults returns a candidate's results keyed by module
func (r *Repository) ModuleResults(ctx context.Context, candidateID string) (map[assessment.ModuleType]assessment.ModuleResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT module, score, completed_at, time_spent_sec, is_completed
		FROM candidate_assessments
		WHERE candidate_id = ?
	`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to query module results: %w", err)
	}
	defer rows.Close()

	results := make(map[assessment.ModuleType]assessment.ModuleResult)
	for rows.Next() {
		var res assessment.ModuleResult
		var module string
		if err := rows.Scan(&module, &res.Score, &res.CompletedAt,
			&res.TimeSpentSec, &res.Completed); err != nil {
			return nil, fmt.Errorf("failed to scan module result: %w", err)
		}
		res.Module = assessment.ModuleType(module)
		results[res.Module] = res
	}

	return results, rows.Err()
}
