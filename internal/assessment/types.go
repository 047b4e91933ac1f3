package assessment

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ModuleType identifies one of the four assessment modules.
type ModuleType string

const (
	ModuleKnowledge   ModuleType = "knowledge"
	ModuleReaction    ModuleType = "reaction"
	ModuleRisk        ModuleType = "risk"
	ModuleMaintenance ModuleType = "maintenance"
)

// Category scopes a module configuration to the selection pipeline or to the
// driver refresher area.
type Category string

const (
	CategorySelection Category = "selection"
	CategoryDriver    Category = "driver"
)

// ModuleConfig is the per-company configuration of one assessment module.
type ModuleConfig struct {
	ID        string     `json:"id"`
	CompanyID string     `json:"company_id" validate:"required"`
	Module    ModuleType `json:"module" validate:"required,oneof=knowledge reaction risk maintenance"`
	Category  Category   `json:"category" validate:"required,oneof=selection driver"`

	Weight       int  `json:"weight" validate:"min=0,max=100"`
	TimeLimitSec int  `json:"time_limit_sec" validate:"min=0"`
	PassingScore int  `json:"passing_score" validate:"min=0,max=100"`
	Enabled      bool `json:"enabled"`
	Order        int  `json:"order"`

	ShuffleQuestions    bool `json:"shuffle_questions"`
	ShuffleAlternatives bool `json:"shuffle_alternatives"`
	QuestionsPerType    int  `json:"questions_per_type" validate:"min=0"`
	TotalQuestions      int  `json:"total_questions" validate:"min=0"`

	// Reaction module only.
	MaxReactionTimeMS int `json:"max_reaction_time_ms" validate:"min=0"`
	Attempts          int `json:"attempts" validate:"min=0"`

	// Risk module only.
	Scenarios int `json:"scenarios" validate:"min=0"`

	AllowRetake        bool `json:"allow_retake"`
	RetakeIntervalDays int  `json:"retake_interval_days" validate:"min=0"`
}

// SelectionConfig is the company-level selection-process configuration. Its
// MinScore governs the composite pass bar by default.
type SelectionConfig struct {
	CompanyID      string `json:"company_id" validate:"required"`
	MinScore       int    `json:"min_score" validate:"min=0,max=100"`
	MaxTestTimeMin int    `json:"max_test_time_min" validate:"min=0"`
}

// Question is an immutable bank entry: a prompt with four ordered
// alternatives, one of which is correct.
type Question struct {
	ID           string   `json:"id"`
	Seq          int      `json:"seq"`
	TypeTag      string   `json:"type_tag"`
	Prompt       string   `json:"prompt"`
	Alternatives []string `json:"alternatives"`
	CorrectIndex int      `json:"correct_index"`
	Rationale    string   `json:"rationale"`
	CompanyID    string   `json:"company_id"`
}

// TestInstance is an ordered, shuffled set of questions produced once per
// attempt. CorrectIndex on each question is already remapped to the shuffled
// alternative order, so grading needs no shuffle bookkeeping.
type TestInstance struct {
	Module    ModuleType `json:"module"`
	Questions []Question `json:"questions"`
}

// ModuleResult is one candidate's outcome on one module.
type ModuleResult struct {
	Module       ModuleType `json:"module"`
	Score        float64    `json:"score"`
	CompletedAt  time.Time  `json:"completed_at"`
	TimeSpentSec int        `json:"time_spent_sec"`
	Completed    bool       `json:"completed"`
}

var validate = validator.New()

// ValidateConfigs checks every module config structurally and enforces that
// weights across enabled modules sum to 100.
func ValidateConfigs(cfgs []ModuleConfig) error {
	weightSum := 0
	for i := range cfgs {
		if err := validate.Struct(&cfgs[i]); err != nil {
			return fmt.Errorf("module config %s invalid: %w", cfgs[i].Module, err)
		}
		if cfgs[i].Enabled {
			weightSum += cfgs[i].Weight
		}
	}
	if weightSum != 0 && weightSum != 100 {
		return fmt.Errorf("enabled module weights must sum to 100, got %d", weightSum)
	}
	return nil
}

// DefaultConfigs returns the standard four-module selection setup seeded for
// a new company.
func DefaultConfigs(companyID string) []ModuleConfig {
	return []ModuleConfig{
		{
			CompanyID: companyID, Module: ModuleKnowledge, Category: CategorySelection,
			Weight: 30, TimeLimitSec: 1200, PassingScore: 70, Enabled: true, Order: 1,
			ShuffleQuestions: true, ShuffleAlternatives: true,
			QuestionsPerType: 2, TotalQuestions: 20,
			AllowRetake: true, RetakeIntervalDays: 30,
		},
		{
			CompanyID: companyID, Module: ModuleReaction, Category: CategorySelection,
			Weight: 20, TimeLimitSec: 300, PassingScore: 75, Enabled: true, Order: 2,
			MaxReactionTimeMS: 500, Attempts: 10,
			AllowRetake: true, RetakeIntervalDays: 30,
		},
		{
			CompanyID: companyID, Module: ModuleRisk, Category: CategorySelection,
			Weight: 30, TimeLimitSec: 900, PassingScore: 70, Enabled: true, Order: 3,
			ShuffleQuestions: true, Scenarios: 5,
			AllowRetake: true, RetakeIntervalDays: 30,
		},
		{
			CompanyID: companyID, Module: ModuleMaintenance, Category: CategorySelection,
			Weight: 20, TimeLimitSec: 600, PassingScore: 70, Enabled: true, Order: 4,
			ShuffleQuestions: true, ShuffleAlternatives: true, TotalQuestions: 20,
			AllowRetake: true, RetakeIntervalDays: 30,
		},
	}
}

// DefaultSelectionConfig mirrors the company-level defaults.
func DefaultSelectionConfig(companyID string) SelectionConfig {
	return SelectionConfig{CompanyID: companyID, MinScore: 70, MaxTestTimeMin: 120}
}
