package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openfleet/fleetmeter/internal/database"
)

// RankingEntry is one driver's position in a company risk ranking.
type RankingEntry struct {
	Rank       int       `json:"rank"`
	DriverID   string    `json:"driver_id"`
	Name       string    `json:"name"`
	Score      int       `json:"score"`
	RiskLevel  string    `json:"risk_level"`
	EventCount int       `json:"event_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RankingResponse is the payload for ranking queries.
type RankingResponse struct {
	CompanyID   string         `json:"company_id"`
	Entries     []RankingEntry `json:"entries"`
	Total       int            `json:"total"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// Service builds company risk rankings from stored assessments, highest
// risk first, with a TTL cache so dashboard polling stays off the database.
type Service struct {
	repo  *database.Repository
	cache *rankingCache
}

// NewService creates a new ranking service
func NewService(repo *database.Repository) *Service {
	return &Service{
		repo:  repo,
		cache: newRankingCache(15 * time.Minute),
	}
}

// NewServiceWithTTL creates a ranking service with a custom cache TTL
func NewServiceWithTTL(repo *database.Repository, ttl time.Duration) *Service {
	return &Service{
		repo:  repo,
		cache: newRankingCache(ttl),
	}
}

// GetRanking returns the risk ranking for a company, most dangerous drivers
// first. Limits outside [1,100] are clamped the same way on cache keys and
// queries so both always agree.
func (s *Service) GetRanking(ctx context.Context, companyID string, limit int) (*RankingResponse, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	if cached, found := s.cache.get(companyID, limit); found {
		return cached, nil
	}

	ranked, err := s.repo.RiskRanking(ctx, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to build ranking for %s: %w", companyID, err)
	}

	response := &RankingResponse{
		CompanyID:   companyID,
		Entries:     make([]RankingEntry, 0, len(ranked)),
		Total:       len(ranked),
		GeneratedAt: time.Now(),
	}
	for i, d := range ranked {
		response.Entries = append(response.Entries, RankingEntry{
			Rank:       i + 1,
			DriverID:   d.DriverID,
			Name:       d.Name,
			Score:      d.Score,
			RiskLevel:  d.RiskLevel,
			EventCount: d.EventCount,
			UpdatedAt:  d.UpdatedAt,
		})
	}

	s.cache.set(companyID, limit, response)

	return response, nil
}

// Invalidate drops cached rankings for a company after new analyses land.
func (s *Service) Invalidate(companyID string) {
	s.cache.invalidateCompany(companyID)
}

// GetCacheStats returns ranking cache statistics
func (s *Service) GetCacheStats() map[string]interface{} {
	return s.cache.stats()
}

// WarmCache pre-populates rankings for the given companies.
func (s *Service) WarmCache(ctx context.Context, companyIDs []string) {
	slog.Info("Starting ranking cache warming", "companies", len(companyIDs))

	for _, companyID := range companyIDs {
		for _, limit := range []int{25, 50} {
			if _, err := s.GetRanking(ctx, companyID, limit); err != nil {
				slog.Error("Failed to warm ranking cache",
					"error", err, "company_id", companyID, "limit", limit)
			}
		}
	}

	slog.Info("Ranking cache warming completed")
}

// StartAutoRefresh periodically rebuilds cached rankings until the context
// is cancelled.
func (s *Service) StartAutoRefresh(ctx context.Context, companyIDs []string, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				slog.Debug("Auto-refreshing ranking cache")
				s.cache.invalidateAll()
				s.WarmCache(ctx, companyIDs)
			}
		}
	}()
}
