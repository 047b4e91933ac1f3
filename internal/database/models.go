package database

import (
	"time"

	"github.com/google/uuid"

	"github.com/openfleet/fleetmeter/internal/types"
)

// Operator represents a driver or dashboard user scoped to a company
type Operator struct {
	ID         string     `json:"id" db:"id"`
	OperatorID string     `json:"operator_id" db:"operator_id"`
	Name       string     `json:"name" db:"name"`
	Email      string     `json:"email,omitempty" db:"email"`
	Role       types.Role `json:"role" db:"role"`
	CompanyID  string     `json:"company_id" db:"company_id"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// CandidateStatus tracks where a candidate sits in the selection pipeline
type CandidateStatus string

const (
	CandidatePending  CandidateStatus = "pending"
	CandidateApproved CandidateStatus = "approved"
	CandidateRejected CandidateStatus = "rejected"
)

// Candidate represents an applicant going through the selection process
type Candidate struct {
	ID           string          `json:"id" db:"id"`
	CompanyID    string          `json:"company_id" db:"company_id"`
	Name         string          `json:"name" db:"name"`
	Email        string          `json:"email" db:"email"`
	Phone        string          `json:"phone,omitempty" db:"phone"`
	LicenseClass string          `json:"license_class,omitempty" db:"license_class"`
	Experience   string          `json:"experience,omitempty" db:"experience"`
	Status       CandidateStatus `json:"status" db:"status"`
	RegisteredAt time.Time       `json:"registered_at" db:"registered_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// StoredAssessment is the persisted form of a driver risk assessment
type StoredAssessment struct {
	DriverID        string    `json:"driver_id" db:"driver_id"`
	DriverName      string    `json:"driver_name,omitempty"`
	CompanyID       string    `json:"company_id" db:"company_id"`
	Score           int       `json:"score" db:"score"`
	RiskLevel       string    `json:"risk_level" db:"risk_level"`
	Factors         string    `json:"-" db:"factors"`
	Recommendations string    `json:"-" db:"recommendations"`
	Analysis        string    `json:"analysis" db:"analysis"`
	EventCount      int       `json:"event_count" db:"event_count"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// RankedDriver is one row of the company risk ranking
type RankedDriver struct {
	DriverID   string    `json:"driver_id"`
	Name       string    `json:"name"`
	Score      int       `json:"score"`
	RiskLevel  string    `json:"risk_level"`
	EventCount int       `json:"event_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ScenarioOption is one selectable answer on a risk scenario or
// maintenance question
type ScenarioOption struct {
	Text        string `json:"text"`
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation,omitempty"`
}

// RiskScenario is a timed situational judgment item
type RiskScenario struct {
	ID           string           `json:"id" db:"id"`
	CompanyID    string           `json:"company_id" db:"company_id"`
	Description  string           `json:"description" db:"description"`
	Options      []ScenarioOption `json:"options"`
	TimeLimitSec int              `json:"time_limit_sec" db:"time_limit_sec"`
	ScenarioType string           `json:"scenario_type" db:"scenario_type"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
}

// MaintenanceQuestion is an item from the vehicle maintenance bank
type MaintenanceQuestion struct {
	ID        string           `json:"id" db:"id"`
	CompanyID string           `json:"company_id" db:"company_id"`
	Question  string           `json:"question" db:"question"`
	Options   []ScenarioOption `json:"options"`
	Category  string           `json:"category" db:"category"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// NewOperator creates a new operator with generated ID
func NewOperator(operatorID, name, email string, role types.Role, companyID string) *Operator {
	now := time.Now()
	return &Operator{
		ID:         uuid.New().String(),
		OperatorID: operatorID,
		Name:       name,
		Email:      email,
		Role:       role,
		CompanyID:  companyID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NewCandidate creates a new pending candidate with generated ID
func NewCandidate(companyID, name, email, phone, licenseClass, experience string) *Candidate {
	now := time.Now()
	return &Candidate{
		ID:           uuid.New().String(),
		CompanyID:    companyID,
		Name:         name,
		Email:        email,
		Phone:        phone,
		LicenseClass: licenseClass,
		Experience:   experience,
		Status:       CandidatePending,
		RegisteredAt: now,
		UpdatedAt:    now,
	}
}
