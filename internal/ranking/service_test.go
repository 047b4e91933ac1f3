package ranking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfleet/fleetmeter/internal/database"
	"github.com/openfleet/fleetmeter/internal/risk"
	"github.com/openfleet/fleetmeter/internal/types"
)

func seedRepo(t *testing.T) *database.Repository {
	t.Helper()

	db, err := database.NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := database.NewRepository(db)
	ctx := context.Background()

	drivers := []struct {
		id    string
		name  string
		score int
		level risk.Level
	}{
		{"op-low", "Ana Souza", 22, risk.LevelLow},
		{"op-high", "Bruno Lima", 84, risk.LevelCritical},
		{"op-mid", "Carla Dias", 55, risk.LevelMedium},
	}

	for _, d := range drivers {
		op := database.NewOperator(d.id, d.name, d.id+"@acme.test", types.RoleDriver, "acme")
		require.NoError(t, repo.CreateOperator(ctx, op))

		err := repo.SaveAssessment(ctx, "acme", risk.Assessment{
			DriverID:   d.id,
			Score:      d.score,
			Level:      d.level,
			EventCount: 10,
		})
		require.NoError(t, err)
	}

	return repo
}

func TestGetRankingOrdersByScore(t *testing.T) {
	svc := NewService(seedRepo(t))

	resp, err := svc.GetRanking(context.Background(), "acme", 50)
	require.NoError(t, err)

	require.Len(t, resp.Entries, 3)
	assert.Equal(t, "acme", resp.CompanyID)
	assert.Equal(t, 3, resp.Total)

	assert.Equal(t, "op-high", resp.Entries[0].DriverID)
	assert.Equal(t, 1, resp.Entries[0].Rank)
	assert.Equal(t, 84, resp.Entries[0].Score)
	assert.Equal(t, "Bruno Lima", resp.Entries[0].Name)

	assert.Equal(t, "op-mid", resp.Entries[1].DriverID)
	assert.Equal(t, "op-low", resp.Entries[2].DriverID)
	assert.Equal(t, 3, resp.Entries[2].Rank)
}

func TestGetRankingRespectsLimit(t *testing.T) {
	svc := NewService(seedRepo(t))

	resp, err := svc.GetRanking(context.Background(), "acme", 2)
	require.NoError(t, err)

	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "op-high", resp.Entries[0].DriverID)
	assert.Equal(t, "op-mid", resp.Entries[1].DriverID)
}

func TestGetRankingCachesUntilInvalidated(t *testing.T) {
	repo := seedRepo(t)
	svc := NewService(repo)
	ctx := context.Background()

	first, err := svc.GetRanking(ctx, "acme", 50)
	require.NoError(t, err)
	assert.Equal(t, "op-high", first.Entries[0].DriverID)

	// A new assessment lands; the cached ranking still serves the old order.
	require.NoError(t, repo.SaveAssessment(ctx, "acme", risk.Assessment{
		DriverID:   "op-low",
		Score:      99,
		Level:      risk.LevelCritical,
		EventCount: 40,
	}))

	cached, err := svc.GetRanking(ctx, "acme", 50)
	require.NoError(t, err)
	assert.Equal(t, first.GeneratedAt, cached.GeneratedAt)
	assert.Equal(t, "op-high", cached.Entries[0].DriverID)

	svc.Invalidate("acme")

	fresh, err := svc.GetRanking(ctx, "acme", 50)
	require.NoError(t, err)
	assert.Equal(t, "op-low", fresh.Entries[0].DriverID)
	assert.Equal(t, 99, fresh.Entries[0].Score)
}

func TestGetRankingUnknownCompany(t *testing.T) {
	svc := NewService(seedRepo(t))

	resp, err := svc.GetRanking(context.Background(), "globex", 50)
	require.NoError(t, err)
	assert.Empty(t, resp.Entries)
	assert.Equal(t, 0, resp.Total)
}

func TestRankingCacheKeysPerLimit(t *testing.T) {
	c := newRankingCache(time.Minute)

	c.set("acme", 25, &RankingResponse{CompanyID: "acme", Total: 1})

	_, found := c.get("acme", 50)
	assert.False(t, found, "different limit must miss")

	got, found := c.get("acme", 25)
	require.True(t, found)
	assert.Equal(t, 1, got.Total)

	c.invalidateCompany("acme")
	_, found = c.get("acme", 25)
	assert.False(t, found)
}
