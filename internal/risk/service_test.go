package risk

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfleet/fleetmeter/internal/types"
)

type fakeTelemetry struct {
	byOperator map[string][]types.TelemetryEvent
	companyAll []types.TelemetryEvent
	err        error
}

func (f *fakeTelemetry) EventsByOperator(_ context.Context, operatorID string) ([]types.TelemetryEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byOperator[operatorID], nil
}

func (f *fakeTelemetry) EventsByCompany(_ context.Context, _ string) ([]types.TelemetryEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.companyAll, nil
}

type fakeWriter struct {
	saved map[string]Assessment
}

func (f *fakeWriter) SaveAssessment(_ context.Context, _ string, a Assessment) error {
	if f.saved == nil {
		f.saved = make(map[string]Assessment)
	}
	f.saved[a.DriverID] = a
	return nil
}

func driverEvents(operatorID string, eventType types.EventType, n int) []types.TelemetryEvent {
	events := make([]types.TelemetryEvent, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, types.TelemetryEvent{
			ID:         fmt.Sprintf("%s-%d", operatorID, i),
			OperatorID: operatorID,
			EventType:  eventType,
			Timestamp:  time.Date(2026, 8, 15, 14, 0, 0, 0, time.UTC),
			Latitude:   1,
			Longitude:  1,
		})
	}
	return events
}

func TestAnalyzeDriverPersistsAndCaches(t *testing.T) {
	events := &fakeTelemetry{byOperator: map[string][]types.TelemetryEvent{
		"op-1": driverEvents("op-1", types.EventHardBraking, 10),
	}}
	writer := &fakeWriter{}
	svc := NewService(events, writer)

	a, err := svc.AnalyzeDriver(context.Background(), "acme", "op-1")
	require.NoError(t, err)
	assert.Equal(t, 45, a.Score)

	saved, ok := writer.saved["op-1"]
	require.True(t, ok)
	assert.Equal(t, a, saved)

	cached, ok := svc.Cached("op-1")
	require.True(t, ok)
	assert.Equal(t, a, cached)

	svc.InvalidateCache("op-1")
	_, ok = svc.Cached("op-1")
	assert.False(t, ok)
}

func TestAnalyzeDriverNoEvents(t *testing.T) {
	svc := NewService(&fakeTelemetry{}, nil)

	a, err := svc.AnalyzeDriver(context.Background(), "acme", "ghost")
	require.NoError(t, err)
	assert.Equal(t, 0, a.Score)
	assert.Equal(t, LevelLow, a.Level)
}

func TestAnalyzeDriverReaderError(t *testing.T) {
	svc := NewService(&fakeTelemetry{err: fmt.Errorf("db down")}, nil)

	_, err := svc.AnalyzeDriver(context.Background(), "acme", "op-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op-1")
}

func TestAnalyzeCompany(t *testing.T) {
	all := append(
		driverEvents("op-a", types.EventHardBraking, 10),
		driverEvents("op-b", types.EventSpeeding, 4)...,
	)
	writer := &fakeWriter{}
	svc := NewService(&fakeTelemetry{companyAll: all}, writer)

	assessments, fleetScore, err := svc.AnalyzeCompany(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, assessments, 2)

	// Drivers come back in first-seen order of the event stream.
	assert.Equal(t, "op-a", assessments[0].DriverID)
	assert.Equal(t, "op-b", assessments[1].DriverID)

	expected := (float64(assessments[0].Score) + float64(assessments[1].Score)) / 2
	assert.Equal(t, expected, fleetScore)

	assert.Len(t, writer.saved, 2)
}

func TestFleetScoreEmpty(t *testing.T) {
	assert.Equal(t, 0.0, FleetScore(nil))
}

func TestFleetScoreAverage(t *testing.T) {
	score := FleetScore([]Assessment{{Score: 40}, {Score: 60}, {Score: 80}})
	assert.Equal(t, 60.0, score)
}

func TestEventTypeCounts(t *testing.T) {
	events := append(
		driverEvents("op-a", types.EventSpeeding, 3),
		driverEvents("op-a", types.EventSharpTurn, 2)...,
	)
	counts := EventTypeCounts(events)
	assert.Equal(t, 3, counts[types.EventSpeeding])
	assert.Equal(t, 2, counts[types.EventSharpTurn])
	assert.Equal(t, 0, counts[types.EventHardBraking])
}
