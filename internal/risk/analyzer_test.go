package risk

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfleet/fleetmeter/internal/types"
)

func eventAt(eventType types.EventType, hour int, lat, lon float64) types.TelemetryEvent {
	return types.TelemetryEvent{
		ID:         fmt.Sprintf("ev-%s-%d-%f", eventType, hour, lat),
		OperatorID: "op-1",
		EventType:  eventType,
		Timestamp:  time.Date(2026, 8, 15, hour, 0, 0, 0, time.UTC),
		Latitude:   lat,
		Longitude:  lon,
	}
}

func repeatEvents(eventType types.EventType, n, hour int, lat, lon float64) []types.TelemetryEvent {
	events := make([]types.TelemetryEvent, 0, n)
	for i := 0; i < n; i++ {
		ev := eventAt(eventType, hour, lat, lon)
		ev.ID = fmt.Sprintf("%s-%d", ev.ID, i)
		events = append(events, ev)
	}
	return events
}

func TestAnalyzeEmptyEvents(t *testing.T) {
	a := Analyze(nil, "driver-1")

	assert.Equal(t, "driver-1", a.DriverID)
	assert.Equal(t, 0, a.Score)
	assert.Equal(t, LevelLow, a.Level)
	assert.Equal(t, 0, a.EventCount)
	assert.Equal(t, Factors{}, a.Factors)
	require.Len(t, a.Recommendations, 1)
	assert.Contains(t, a.Recommendations[0], "Insufficient telemetry data")
}

func TestAnalyzeWorkedCase(t *testing.T) {
	// Ten hard-braking events, all mid-afternoon, all from the same spot.
	events := repeatEvents(types.EventHardBraking, 10, 14, -23.55, -46.63)

	a := Analyze(events, "driver-7")

	assert.Equal(t, float64(7), a.Factors.EventFrequency)
	assert.Equal(t, float64(70), a.Factors.EventSeverity)
	assert.Equal(t, float64(30), a.Factors.TimePatterns)
	assert.Equal(t, float64(15), a.Factors.LocationRisk)
	assert.Equal(t, float64(100), a.Factors.BehaviorPattern)

	// 0.25*7 + 0.30*70 + 0.15*30 + 0.15*15 + 0.15*100 = 44.5 -> 45
	assert.Equal(t, 45, a.Score)
	assert.Equal(t, LevelMedium, a.Level)
	assert.Equal(t, 10, a.EventCount)

	// Only the behavior factor is above the remediation threshold.
	require.Len(t, a.Recommendations, 1)
	assert.Contains(t, a.Recommendations[0], "hard_braking")

	assert.Contains(t, a.Analysis, "10 events")
	assert.Contains(t, a.Analysis, "hard_braking")
}

func TestAnalyzeDeterministic(t *testing.T) {
	events := append(
		repeatEvents(types.EventSpeeding, 5, 2, 10.0, 20.0),
		repeatEvents(types.EventSharpTurn, 5, 19, 11.0, 21.0)...,
	)

	first := Analyze(events, "driver-2")
	second := Analyze(events, "driver-2")

	assert.Equal(t, first, second)
}

func TestAnalyzeScoreBounds(t *testing.T) {
	tests := []struct {
		name   string
		events []types.TelemetryEvent
	}{
		{"single mild event", repeatEvents(types.EventRapidAcceleration, 1, 12, 0, 0)},
		{"saturated frequency", repeatEvents(types.EventSpeeding, 200, 3, 0, 0)},
		{"unknown event type", repeatEvents(types.EventType("phone_usage"), 3, 9, 1, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Analyze(tt.events, "driver-x")

			assert.GreaterOrEqual(t, a.Score, 0)
			assert.LessOrEqual(t, a.Score, 100)
			for _, f := range []float64{
				a.Factors.EventFrequency, a.Factors.EventSeverity,
				a.Factors.TimePatterns, a.Factors.LocationRisk,
				a.Factors.BehaviorPattern,
			} {
				assert.GreaterOrEqual(t, f, 0.0)
				assert.LessOrEqual(t, f, 100.0)
			}
		})
	}
}

func TestAnalyzeFrequencySaturation(t *testing.T) {
	// 150 events over the 30-day window is 5/day, exactly the saturation point.
	a := Analyze(repeatEvents(types.EventSpeeding, 150, 12, 0, 0), "driver-3")
	assert.Equal(t, float64(100), a.Factors.EventFrequency)
}

func TestAnalyzeSeverityMonotonicUnderSpeeding(t *testing.T) {
	// Severity is the mean of per-type weights, and speeding carries the
	// highest one, so appending a speeding event never lowers the factor.
	events := append(
		repeatEvents(types.EventSpeeding, 5, 14, 10.0, 20.0),
		repeatEvents(types.EventRapidAcceleration, 5, 14, 10.0, 20.0)...,
	)

	before := Analyze(events, "driver-5")
	assert.Equal(t, float64(65), before.Factors.EventSeverity)

	extra := eventAt(types.EventSpeeding, 14, 10.0, 20.0)
	extra.ID = "ev-extra"
	after := Analyze(append(events, extra), "driver-5")

	// (65*10 + 80) / 11 = 66.36 -> 66
	assert.Equal(t, float64(66), after.Factors.EventSeverity)
	assert.GreaterOrEqual(t, after.Factors.EventSeverity, before.Factors.EventSeverity)
}

func TestAnalyzeUnknownEventSeverity(t *testing.T) {
	a := Analyze(repeatEvents(types.EventType("phone_usage"), 4, 12, 0, 0), "driver-4")
	assert.Equal(t, float64(30), a.Factors.EventSeverity)
}

func TestAnalyzeTimeBuckets(t *testing.T) {
	tests := []struct {
		name     string
		hour     int
		expected float64
	}{
		{"late night", 2, 100},
		{"boundary 5", 5, 100},
		{"morning rush", 7, 60},
		{"evening rush", 19, 60},
		{"midday", 13, 30},
		{"boundary 22", 22, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Analyze(repeatEvents(types.EventSpeeding, 4, tt.hour, 0, 0), "driver-5")
			assert.Equal(t, tt.expected, a.Factors.TimePatterns)
		})
	}
}

func TestAnalyzeLocationDiversity(t *testing.T) {
	// Four events at four distinct coordinates: 4/4*150 saturates at 100.
	events := []types.TelemetryEvent{
		eventAt(types.EventSpeeding, 12, 1, 1),
		eventAt(types.EventSpeeding, 12, 2, 2),
		eventAt(types.EventSpeeding, 12, 3, 3),
		eventAt(types.EventSpeeding, 12, 4, 4),
	}
	a := Analyze(events, "driver-6")
	assert.Equal(t, float64(100), a.Factors.LocationRisk)
}

func TestAnalyzeDominantTypeTieBreak(t *testing.T) {
	// Equal counts: the lexicographically smaller type wins the tie so
	// repeated runs never flip the recommendation text.
	events := append(
		repeatEvents(types.EventSpeeding, 3, 14, 0, 0),
		repeatEvents(types.EventHardBraking, 3, 14, 0, 0)...,
	)

	a := Analyze(events, "driver-8")
	assert.Contains(t, a.Analysis, string(types.EventHardBraking))
}

func TestLevelThresholds(t *testing.T) {
	tests := []struct {
		score    float64
		expected Level
	}{
		{0, LevelLow},
		{39.4, LevelLow},
		{40, LevelMedium},
		{59.9, LevelMedium},
		{60, LevelHigh},
		{79.9, LevelHigh},
		{80, LevelCritical},
		{100, LevelCritical},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("score %.1f", tt.score), func(t *testing.T) {
			assert.Equal(t, tt.expected, levelFor(tt.score))
		})
	}
}
