package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/openfleet/fleetmeter/internal/assessment"
	"github.com/openfleet/fleetmeter/internal/database"
	"github.com/openfleet/fleetmeter/internal/monitoring"
	"github.com/openfleet/fleetmeter/internal/types"
)

// maxReportedErrors caps the per-row error list in responses so a broken
// export does not echo back thousands of lines.
const maxReportedErrors = 50

// RowError describes why one row of an import payload was rejected.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result summarizes an import run. Rejected rows never abort the run; valid
// rows are always persisted.
type Result struct {
	Accepted int        `json:"accepted"`
	Rejected int        `json:"rejected"`
	Errors   []RowError `json:"errors,omitempty"`
}

// Service validates and persists bulk telemetry and question-bank payloads.
type Service struct {
	repo     *database.Repository
	validate *validator.Validate
	metrics  *monitoring.Metrics
	prom     *monitoring.PromCollector
	logger   *monitoring.Logger
}

// NewService creates a new importer service
func NewService(repo *database.Repository, metrics *monitoring.Metrics, prom *monitoring.PromCollector, logger *monitoring.Logger) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(),
		metrics:  metrics,
		prom:     prom,
		logger:   logger,
	}
}

func (s *Service) record(kind, companyID string, start time.Time, result *Result) {
	if s.metrics != nil {
		s.metrics.RecordImport(result.Accepted, result.Rejected)
	}
	if s.prom != nil {
		s.prom.ObserveImport(result.Accepted, result.Rejected)
	}
	if s.logger != nil {
		s.logger.ImportLogger(kind, companyID, result.Accepted, result.Rejected, time.Since(start))
	}
}

func (r *Result) reject(row int, field, message string) {
	r.Rejected++
	if len(r.Errors) < maxReportedErrors {
		r.Errors = append(r.Errors, RowError{Row: row, Field: field, Message: message})
	}
}

// rejectValidation expands validator field errors into row errors.
func (r *Result) rejectValidation(row int, err error) {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		r.reject(row, "", err.Error())
		return
	}

	r.Rejected++
	for _, fe := range verrs {
		if len(r.Errors) >= maxReportedErrors {
			break
		}
		r.Errors = append(r.Errors, RowError{
			Row:     row,
			Field:   fe.Field(),
			Message: fmt.Sprintf("failed %q validation", fe.Tag()),
		})
	}
}

// TelemetryRow is one event in a telemetry import payload.
type TelemetryRow struct {
	OperatorID string  `json:"operator_id" validate:"required"`
	EventType  string  `json:"event_type" validate:"required"`
	Timestamp  string  `json:"timestamp" validate:"required"`
	Latitude   float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude  float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// ImportTelemetry validates rows against the company's operator roster and
// persists the valid ones. Unknown event types are accepted; the risk engine
// scores them with a conservative default severity.
func (s *Service) ImportTelemetry(ctx context.Context, companyID string, rows []TelemetryRow) (*Result, error) {
	start := time.Now()
	result := &Result{}

	// Operator lookups are memoized; feeds repeat the same drivers heavily.
	known := make(map[string]bool)

	events := make([]types.TelemetryEvent, 0, len(rows))
	for i, row := range rows {
		rowNum := i + 1

		if err := s.validate.Struct(row); err != nil {
			result.rejectValidation(rowNum, err)
			continue
		}

		occurredAt, err := time.Parse(time.RFC3339, row.Timestamp)
		if err != nil {
			result.reject(rowNum, "timestamp", "must be RFC3339")
			continue
		}
		if occurredAt.After(time.Now().Add(5 * time.Minute)) {
			result.reject(rowNum, "timestamp", "is in the future")
			continue
		}

		inCompany, seen := known[row.OperatorID]
		if !seen {
			op, err := s.repo.GetOperator(ctx, row.OperatorID)
			inCompany = err == nil && op.CompanyID == companyID
			known[row.OperatorID] = inCompany
		}
		if !inCompany {
			result.reject(rowNum, "operator_id", fmt.Sprintf("operator %q is not registered for this company", row.OperatorID))
			continue
		}

		events = append(events, types.TelemetryEvent{
			OperatorID: row.OperatorID,
			EventType:  types.EventType(row.EventType),
			Timestamp:  occurredAt,
			Latitude:   row.Latitude,
			Longitude:  row.Longitude,
		})
	}

	if len(events) > 0 {
		if err := s.repo.InsertEvents(ctx, events); err != nil {
			return nil, fmt.Errorf("failed to persist telemetry events: %w", err)
		}
	}
	result.Accepted = len(events)

	s.record("telemetry", companyID, start, result)
	return result, nil
}

// QuestionRow is one knowledge question in an import payload.
type QuestionRow struct {
	TypeTag      string   `json:"type_tag" validate:"required"`
	Prompt       string   `json:"prompt" validate:"required"`
	Alternatives []string `json:"alternatives" validate:"required,min=2,max=6,dive,required"`
	CorrectIndex int      `json:"correct_index" validate:"gte=0"`
	Rationale    string   `json:"rationale"`
}

// ImportKnowledgeQuestions validates and stores a knowledge bank payload.
func (s *Service) ImportKnowledgeQuestions(ctx context.Context, companyID string, rows []QuestionRow) (*Result, error) {
	start := time.Now()
	result := &Result{}

	questions := make([]assessment.Question, 0, len(rows))
	for i, row := range rows {
		rowNum := i + 1

		if err := s.validate.Struct(row); err != nil {
			result.rejectValidation(rowNum, err)
			continue
		}

		if row.CorrectIndex >= len(row.Alternatives) {
			result.reject(rowNum, "correct_index", "points past the last alternative")
			continue
		}

		questions = append(questions, assessment.Question{
			Seq:          rowNum,
			TypeTag:      row.TypeTag,
			Prompt:       row.Prompt,
			Alternatives: row.Alternatives,
			CorrectIndex: row.CorrectIndex,
			Rationale:    row.Rationale,
			CompanyID:    companyID,
		})
	}

	if len(questions) > 0 {
		if err := s.repo.SaveKnowledgeQuestions(ctx, companyID, questions); err != nil {
			return nil, fmt.Errorf("failed to persist knowledge questions: %w", err)
		}
	}
	result.Accepted = len(questions)

	s.record("knowledge_questions", companyID, start, result)
	return result, nil
}

// ScenarioRow is one timed risk scenario in an import payload.
type ScenarioRow struct {
	Description  string              `json:"description" validate:"required"`
	Options      []ScenarioOptionRow `json:"options" validate:"required,min=2,max=6"`
	TimeLimitSec int                 `json:"time_limit_sec" validate:"gt=0"`
	ScenarioType string              `json:"scenario_type" validate:"required"`
}

// ScenarioOptionRow is one answer option of a scenario or maintenance item.
type ScenarioOptionRow struct {
	Text        string `json:"text" validate:"required"`
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation"`
}

// ImportRiskScenarios validates and stores a risk-scenario bank payload.
// Each scenario must mark exactly one option as correct.
func (s *Service) ImportRiskScenarios(ctx context.Context, companyID string, rows []ScenarioRow) (*Result, error) {
	start := time.Now()
	result := &Result{}

	scenarios := make([]database.RiskScenario, 0, len(rows))
	for i, row := range rows {
		rowNum := i + 1

		if err := s.validate.Struct(row); err != nil {
			result.rejectValidation(rowNum, err)
			continue
		}

		if n := countCorrect(row.Options); n != 1 {
			result.reject(rowNum, "options", fmt.Sprintf("must mark exactly one correct option, found %d", n))
			continue
		}

		scenarios = append(scenarios, database.RiskScenario{
			CompanyID:    companyID,
			Description:  row.Description,
			Options:      toScenarioOptions(row.Options),
			TimeLimitSec: row.TimeLimitSec,
			ScenarioType: row.ScenarioType,
		})
	}

	if len(scenarios) > 0 {
		if err := s.repo.SaveRiskScenarios(ctx, scenarios); err != nil {
			return nil, fmt.Errorf("failed to persist risk scenarios: %w", err)
		}
	}
	result.Accepted = len(scenarios)

	s.record("risk_scenarios", companyID, start, result)
	return result, nil
}

// MaintenanceRow is one maintenance question in an import payload.
type MaintenanceRow struct {
	Question string              `json:"question" validate:"required"`
	Options  []ScenarioOptionRow `json:"options" validate:"required,min=2,max=6"`
	Category string              `json:"category" validate:"required"`
}

// ImportMaintenanceQuestions validates and stores a maintenance bank payload.
func (s *Service) ImportMaintenanceQuestions(ctx context.Context, companyID string, rows []MaintenanceRow) (*Result, error) {
	start := time.Now()
	result := &Result{}

	questions := make([]database.MaintenanceQuestion, 0, len(rows))
	for i, row := range rows {
		rowNum := i + 1

		if err := s.validate.Struct(row); err != nil {
			result.rejectValidation(rowNum, err)
			continue
		}

		if n := countCorrect(row.Options); n != 1 {
			result.reject(rowNum, "options", fmt.Sprintf("must mark exactly one correct option, found %d", n))
			continue
		}

		questions = append(questions, database.MaintenanceQuestion{
			CompanyID: companyID,
			Question:  row.Question,
			Options:   toScenarioOptions(row.Options),
			Category:  row.Category,
		})
	}

	if len(questions) > 0 {
		if err := s.repo.SaveMaintenanceQuestions(ctx, questions); err != nil {
			return nil, fmt.Errorf("failed to persist maintenance questions: %w", err)
		}
	}
	result.Accepted = len(questions)

	s.record("maintenance_questions", companyID, start, result)
	return result, nil
}

func countCorrect(options []ScenarioOptionRow) int {
	n := 0
	for _, o := range options {
		if o.Correct {
			n++
		}
	}
	return n
}

func toScenarioOptions(rows []ScenarioOptionRow) []database.ScenarioOption {
	options := make([]database.ScenarioOption, 0, len(rows))
	for _, o := range rows {
		options = append(options, database.ScenarioOption{
			Text:        o.Text,
			Correct:     o.Correct,
			Explanation: o.Explanation,
		})
	}
	return options
}
