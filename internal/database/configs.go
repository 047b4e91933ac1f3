package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/openfleet/fleetmeter/internal/assessment"
)

// SaveModuleConfigs validates and upserts a company's module configurations
func (r *Repository) SaveModuleConfigs(ctx context.Context, cfgs []assessment.ModuleConfig) error {
	if err := assessment.ValidateConfigs(cfgs); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, cfg := range cfgs {
		id := cfg.ID
		if id == "" {
			id = uuid.New().String()
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO module_configs (
				id, company_id, module, category, weight, time_limit_sec, passing_score,
				enabled, ord, shuffle_questions, shuffle_alternatives, questions_per_type,
				total_questions, max_reaction_time_ms, attempts, scenarios,
				allow_retake, retake_interval_days
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(company_id, module) DO UPDATE SET
				category = excluded.category,
				weight = excluded.weight,
				time_limit_sec = excluded.time_limit_sec,
				passing_score = excluded.passing_score,
				enabled = excluded.enabled,
				ord = excluded.ord,
				shuffle_questions = excluded.shuffle_questions,
				shuffle_alternatives = excluded.shuffle_alternatives,
				questions_per_type = excluded.questions_per_type,
				total_questions = excluded.total_questions,
				max_reaction_time_ms = excluded.max_reaction_time_ms,
				attempts = excluded.attempts,
				scenarios = excluded.scenarios,
				allow_retake = excluded.allow_retake,
				retake_interval_days = excluded.retake_interval_days
		`, id, cfg.CompanyID, string(cfg.Module), string(cfg.Category),
			cfg.Weight, cfg.TimeLimitSec, cfg.PassingScore,
			cfg.Enabled, cfg.Order, cfg.ShuffleQuestions, cfg.ShuffleAlternatives,
			cfg.QuestionsPerType, cfg.TotalQuestions, cfg.MaxReactionTimeMS,
			cfg.Attempts, cfg.Scenarios, cfg.AllowRetake, cfg.RetakeIntervalDays); err != nil {
			return fmt.Errorf("failed to upsert config for %s: %w", cfg.Module, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit configs: %w", err)
	}

	return nil
}

// ModuleConfigs loads a company's module configurations. A company with no
// stored configs gets the seeded defaults.
func (r *Repository) ModuleConfigs(ctx context.Context, companyID string) ([]assessment.ModuleConfig, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, company_id, module, category, weight, time_limit_sec, passing_score,
			enabled, ord, shuffle_questions, shuffle_alternatives, questions_per_type,
			total_questions, max_reaction_time_ms, attempts, scenarios,
			allow_retake, retake_interval_days
		FROM module_configs
		WHERE company_id = ?
		ORDER BY ord ASC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query module configs: %w", err)
	}
	defer rows.Close()

	var cfgs []assessment.ModuleConfig
	for rows.Next() {
		var cfg assessment.ModuleConfig
		var module, category string
		if err := rows.Scan(&cfg.ID, &cfg.CompanyID, &module, &category,
			&cfg.Weight, &cfg.TimeLimitSec, &cfg.PassingScore,
			&cfg.Enabled, &cfg.Order, &cfg.ShuffleQuestions, &cfg.ShuffleAlternatives,
			&cfg.QuestionsPerType, &cfg.TotalQuestions, &cfg.MaxReactionTimeMS,
			&cfg.Attempts, &cfg.Scenarios, &cfg.AllowRetake, &cfg.RetakeIntervalDays); err != nil {
			return nil, fmt.Errorf("failed to scan module config: %w", err)
		}
		cfg.Module = assessment.ModuleType(module)
		cfg.Category = assessment.Category(category)
		cfgs = append(cfgs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(cfgs) == 0 {
		return assessment.DefaultConfigs(companyID), nil
	}

	return cfgs, nil
}

// SaveSelectionConfig upserts a company's selection-process configuration
func (r *Repository) SaveSelectionConfig(ctx context.Context, cfg assessment.SelectionConfig) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO selection_configs (company_id, min_score, max_test_time_min)
		VALUES (?, ?, ?)
		ON CONFLICT(company_id) DO UPDATE SET
			min_score = excluded.min_score,
			max_test_time_min = excluded.max_test_time_min
	`, cfg.CompanyID, cfg.MinScore, cfg.MaxTestTimeMin)
	if err != nil {
		return fmt.Errorf("failed to save selection config: %w", err)
	}

	return nil
}

// SelectionConfig loads a company's selection configuration, falling back to
// defaults for companies that never customized it.
func (r *Repository) SelectionConfig(ctx context.Context, companyID string) (assessment.SelectionConfig, error) {
	var cfg assessment.SelectionConfig
	err := r.db.QueryRowContext(ctx, `
		SELECT company_id, min_score, max_test_time_min
		FROM selection_configs
		WHERE company_id = ?
	`, companyID).Scan(&cfg.CompanyID, &cfg.MinScore, &cfg.MaxTestTimeMin)
	if errors.Is(err, sql.ErrNoRows) {
		return assessment.DefaultSelectionConfig(companyID), nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to query selection config: %w", err)
	}

	return cfg, nil
}
