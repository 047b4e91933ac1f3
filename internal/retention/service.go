package retention

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openfleet/fleetmeter/internal/database"
)

// Service enforces the telemetry retention window and handles driver data
// deletion requests.
type Service struct {
	repo          *database.Repository
	retentionDays int

	mu         sync.RWMutex
	lastSweep  time.Time
	lastPurged int64
}

// NewService creates a retention service. retentionDays below 1 falls back
// to a year.
func NewService(repo *database.Repository, retentionDays int) *Service {
	if retentionDays < 1 {
		retentionDays = 365
	}
	return &Service{
		repo:          repo,
		retentionDays: retentionDays,
	}
}

// AnonymizeDriverID produces a stable pseudonym for exports that must not
// carry raw driver IDs.
func (s *Service) AnonymizeDriverID(driverID string) string {
	hash := sha256.Sum256([]byte(driverID))
	return hex.EncodeToString(hash[:])
}

// Sweep deletes telemetry events older than the retention window.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)

	purged, err := s.repo.DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("retention sweep failed: %w", err)
	}

	s.mu.Lock()
	s.lastSweep = time.Now()
	s.lastPurged = purged
	s.mu.Unlock()

	slog.Info("Retention sweep completed",
		"cutoff", cutoff.Format(time.RFC3339),
		"events_purged", purged,
		"retention_days", s.retentionDays)

	return purged, nil
}

// DeleteDriverData removes all telemetry and assessments for one driver.
// Used for data deletion requests from drivers leaving the fleet.
func (s *Service) DeleteDriverData(ctx context.Context, driverID string) error {
	slog.Info("Deleting driver data", "driver_id", driverID)

	if err := s.repo.DeleteDriverData(ctx, driverID); err != nil {
		return fmt.Errorf("failed to delete driver data: %w", err)
	}

	return nil
}

// Start runs a daily sweep until the context is cancelled. The first sweep
// runs shortly after startup so a long-stopped instance catches up.
func (s *Service) Start(ctx context.Context) {
	go func() {
		startup := time.NewTimer(1 * time.Minute)
		defer startup.Stop()

		select {
		case <-ctx.Done():
			return
		case <-startup.C:
			if _, err := s.Sweep(ctx); err != nil {
				slog.Error("Startup retention sweep failed", "error", err)
			}
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Sweep(ctx); err != nil {
					slog.Error("Retention sweep failed", "error", err)
				}
			}
		}
	}()
}

// Info describes the active retention policy for the admin endpoint.
func (s *Service) Info() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := map[string]interface{}{
		"telemetry_retention_days": s.retentionDays,
		"anonymization_method":     "SHA-256",
		"last_purged_events":       s.lastPurged,
	}
	if !s.lastSweep.IsZero() {
		info["last_sweep"] = s.lastSweep.Format(time.RFC3339)
	}
	return info
}
