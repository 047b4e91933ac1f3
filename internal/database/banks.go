package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openfleet/fleetmeter/internal/assessment"
)

// SaveKnowledgeQuestions inserts a batch of knowledge questions in one transaction
func (r *Repository) SaveKnowledgeQuestions(ctx context.Context, companyID string, questions []assessment.Question) error {
	if len(questions) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, q := range questions {
		alternatives, err := json.Marshal(q.Alternatives)
		if err != nil {
			return fmt.Errorf("failed to marshal alternatives: %w", err)
		}

		id := q.ID
		if id == "" {
			id = uuid.New().String()
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO knowledge_questions (id, company_id, seq, type_tag, prompt, alternatives, correct_index, rationale, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, companyID, q.Seq, q.TypeTag, q.Prompt, string(alternatives), q.CorrectIndex, q.Rationale, now); err != nil {
			return fmt.Errorf("failed to insert question %d: %w", q.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit questions: %w", err)
	}

	return nil
}

// KnowledgeBank returns a company's knowledge questions ordered by sequence
func (r *Repository) KnowledgeBank(ctx context.Context, companyID string) ([]assessment.Question, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, company_id, seq, type_tag, prompt, alternatives, correct_index, rationale
		FROM knowledge_questions
		WHERE company_id = ?
		ORDER BY seq ASC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge bank: %w", err)
	}
	defer rows.Close()

	var questions []assessment.Question
	for rows.Next() {
		var q assessment.Question
		var alternatives string
		if err := rows.Scan(&q.ID, &q.CompanyID, &q.Seq, &q.TypeTag, &q.Prompt,
			&alternatives, &q.CorrectIndex, &q.Rationale); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		if err := json.Unmarshal([]byte(alternatives), &q.Alternatives); err != nil {
			return nil, fmt.Errorf("failed to unmarshal alternatives for %s: %w", q.ID, err)
		}
		questions = append(questions, q)
	}

	return questions, rows.Err()
}

// SaveRiskScenarios inserts a batch of risk scenarios
func (r *Repository) SaveRiskScenarios(ctx context.Context, scenarios []RiskScenario) error {
	if len(scenarios) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, sc := range scenarios {
		options, err := json.Marshal(sc.Options)
		if err != nil {
			return fmt.Errorf("failed to marshal options: %w", err)
		}

		id := sc.ID
		if id == "" {
			id = uuid.New().String()
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO risk_scenarios (id, company_id, description, options, time_limit_sec, scenario_type, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, sc.CompanyID, sc.Description, string(options), sc.TimeLimitSec, sc.ScenarioType, now); err != nil {
			return fmt.Errorf("failed to insert scenario: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scenarios: %w", err)
	}

	return nil
}

// RiskScenarioBank returns a company's risk scenarios
func (r *Repository) RiskScenarioBank(ctx context.Context, companyID string) ([]RiskScenario, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, company_id, description, options, time_limit_sec, scenario_type, created_at
		FROM risk_scenarios
		WHERE company_id = ?
		ORDER BY created_at ASC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query risk scenarios: %w", err)
	}
	defer rows.Close()

	var scenarios []RiskScenario
	for rows.Next() {
		var sc RiskScenario
		var options string
		if err := rows.Scan(&sc.ID, &sc.CompanyID, &sc.Description, &options,
			&sc.TimeLimitSec, &sc.ScenarioType, &sc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scenario: %w", err)
		}
		if err := json.Unmarshal([]byte(options), &sc.Options); err != nil {
			return nil, fmt.Errorf("failed to unmarshal options for %s: %w", sc.ID, err)
		}
		scenarios = append(scenarios, sc)
	}

	return scenarios, rows.Err()
}

// SaveMaintenanceQuestions inserts a batch of maintenance questions
func (r *Repository) SaveMaintenanceQuestions(ctx context.Context, questions []MaintenanceQuestion) error {
	if len(questions) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("failed to marshal options: %w", err)
		}

		id := q.ID
		if id == "" {
			id = uuid.New().String()
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO maintenance_questions (id, company_id, question, options, category, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, q.CompanyID, q.Question, string(options), q.Category, now); err != nil {
			return fmt.Errorf("failed to insert maintenance question: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit maintenance questions: %w", err)
	}

	return nil
}

// MaintenanceBank returns a company's maintenance questions
func (r *Repository) MaintenanceBank(ctx context.Context, companyID string) ([]MaintenanceQuestion, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, company_id, question, options, category, created_at
		FROM maintenance_questions
		WHERE company_id = ?
		ORDER BY created_at ASC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query maintenance bank: %w", err)
	}
	defer rows.Close()

	var questions []MaintenanceQuestion
	for rows.Next() {
		var q MaintenanceQuestion
		var options string
		if err := rows.Scan(&q.ID, &q.CompanyID, &q.Question, &options,
			&q.Category, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan maintenance question: %w", err)
		}
		if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
			return nil, fmt.Errorf("failed to unmarshal options for %s: %w", q.ID, err)
		}
		questions = append(questions, q)
	}

	return questions, rows.Err()
}
