package database

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/openfleet/fleetmeter/internal/types"
)

// OperatorService provides business logic for operator accounts and sessions
type OperatorService struct {
	repo      *Repository
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewOperatorService creates a new operator service
func NewOperatorService(repo *Repository, jwtSecret string) *OperatorService {
	return &OperatorService{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  24 * time.Hour,
	}
}

// Register creates a new operator account
func (s *OperatorService) Register(ctx context.Context, operatorID, name, email string, role types.Role, companyID string) (*Operator, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	op := NewOperator(operatorID, name, email, role, companyID)
	if err := s.repo.CreateOperator(ctx, op); err != nil {
		return nil, err
	}

	return op, nil
}

// SessionClaims are the claims carried by an operator session token
type SessionClaims struct {
	OperatorID string `json:"operator_id"`
	Role       string `json:"role"`
	CompanyID  string `json:"company_id"`
	jwt.RegisteredClaims
}

// GenerateSessionToken generates a JWT token for an operator session
func (s *OperatorService) GenerateSessionToken(op *Operator) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		OperatorID: op.OperatorID,
		Role:       string(op.Role),
		CompanyID:  op.CompanyID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, nil
}

// ValidateSessionToken validates a JWT token and returns its claims
func (s *OperatorService) ValidateSessionToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.OperatorID == "" {
		return nil, fmt.Errorf("operator_id not found in token")
	}

	return claims, nil
}
