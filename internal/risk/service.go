package risk

import (
	"context"
	"fmt"
	"sync"

	"github.com/openfleet/fleetmeter/internal/types"
)

// TelemetryReader provides the raw events the engine scores. Implemented by
// the database repository; tests use in-memory fakes.
type TelemetryReader interface {
	EventsByOperator(ctx context.Context, operatorID string) ([]types.TelemetryEvent, error)
	EventsByCompany(ctx context.Context, companyID string) ([]types.TelemetryEvent, error)
}

// AssessmentWriter persists computed assessments for dashboard reuse.
type AssessmentWriter interface {
	SaveAssessment(ctx context.Context, companyID string, a Assessment) error
}

// Service orchestrates risk analysis: fetches events, runs the engine,
// memoizes the last result per driver and hands the assessment to the
// persistence layer. The cache is a display convenience only; every call
// path can recompute from the event list.
type Service struct {
	events TelemetryReader
	writer AssessmentWriter

	mu       sync.RWMutex
	analyses map[string]Assessment
}

// NewService creates a risk service. writer may be nil when persistence is
// handled elsewhere (e.g. in tests).
func NewService(events TelemetryReader, writer AssessmentWriter) *Service {
	return &Service{
		events:   events,
		writer:   writer,
		analyses: make(map[string]Assessment),
	}
}

// AnalyzeDriver recomputes the assessment for one driver from its full event
// set and persists the result.
func (s *Service) AnalyzeDriver(ctx context.Context, companyID, driverID string) (Assessment, error) {
	events, err := s.events.EventsByOperator(ctx, driverID)
	if err != nil {
		return Assessment{}, fmt.Errorf("failed to load events for driver %s: %w", driverID, err)
	}

	assessment := Analyze(events, driverID)

	s.mu.Lock()
	s.analyses[driverID] = assessment
	s.mu.Unlock()

	if s.writer != nil {
		if err := s.writer.SaveAssessment(ctx, companyID, assessment); err != nil {
			return Assessment{}, fmt.Errorf("failed to persist assessment for driver %s: %w", driverID, err)
		}
	}

	return assessment, nil
}

// AnalyzeCompany recomputes assessments for every driver with events in the
// company and returns them along with the aggregated fleet score.
func (s *Service) AnalyzeCompany(ctx context.Context, companyID string) ([]Assessment, float64, error) {
	events, err := s.events.EventsByCompany(ctx, companyID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load events for company %s: %w", companyID, err)
	}

	byDriver := make(map[string][]types.TelemetryEvent)
	order := make([]string, 0)
	for _, e := range events {
		if _, seen := byDriver[e.OperatorID]; !seen {
			order = append(order, e.OperatorID)
		}
		byDriver[e.OperatorID] = append(byDriver[e.OperatorID], e)
	}

	assessments := make([]Assessment, 0, len(order))
	for _, driverID := range order {
		a := Analyze(byDriver[driverID], driverID)
		assessments = append(assessments, a)

		s.mu.Lock()
		s.analyses[driverID] = a
		s.mu.Unlock()

		if s.writer != nil {
			if err := s.writer.SaveAssessment(ctx, companyID, a); err != nil {
				return nil, 0, fmt.Errorf("failed to persist assessment for driver %s: %w", driverID, err)
			}
		}
	}

	return assessments, FleetScore(assessments), nil
}

// Cached returns the last computed assessment for a driver, if any.
func (s *Service) Cached(driverID string) (Assessment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.analyses[driverID]
	return a, ok
}

// InvalidateCache drops the memoized assessment for a driver, forcing the
// next lookup to recompute. Called after new telemetry imports.
func (s *Service) InvalidateCache(driverID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.analyses, driverID)
}
