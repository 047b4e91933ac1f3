package types

import "time"

// EventType identifies a category of telemetry event reported by the
// vehicle tracking hardware.
type EventType string

const (
	EventSpeeding          EventType = "speeding"
	EventHardBraking       EventType = "hard_braking"
	EventSharpTurn         EventType = "sharp_turn"
	EventRapidAcceleration EventType = "rapid_acceleration"
)

// TelemetryEvent is a single raw event recorded for an operator. Events are
// immutable once imported; the risk engine only reads them.
type TelemetryEvent struct {
	ID           string    `json:"id"`
	OperatorID   string    `json:"operator_id"`
	OperatorName string    `json:"operator_name"`
	EventType    EventType `json:"event_type"`
	Timestamp    time.Time `json:"timestamp"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
}

// Role is the dashboard role attached to a user account.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
	RoleDriver    Role = "driver"
	RoleCandidate Role = "candidate"
)

// Valid reports whether the role is one of the known dashboard roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleDriver, RoleCandidate:
		return true
	}
	return false
}

// AnalyzeRequest is the request body for the risk analysis endpoint.
type AnalyzeRequest struct {
	DriverID string `json:"driver_id" binding:"required"`
}
