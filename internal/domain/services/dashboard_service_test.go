package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/ak/millboard/internal/domain/models"
	"github.com/ak/millboard/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func dashOrder(party *models.Party, status models.OrderStatus, created time.Time, meters int64) *models.Order {
	return &models.Order{
		ID:        primitive.NewObjectID(),
		PartyID:   party.ID,
		Status:    status,
		CreatedAt: created,
		Items:     []models.OrderItem{{ID: primitive.NewObjectID(), Quantity: decimal.NewFromInt(meters)}},
	}
}

func TestBuildDashboard(t *testing.T) {
	acme := &models.Party{ID: primitive.NewObjectID(), Name: "Acme"}
	zenith := &models.Party{ID: primitive.NewObjectID(), Name: "Zenith"}
	idle := &models.Party{ID: primitive.NewObjectID(), Name: "Idle"}
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	orders := []*models.Order{
		dashOrder(acme, models.OrderStatusPending, start, 100),
		dashOrder(acme, models.OrderStatusPending, start.Add(time.Hour), 50),
		dashOrder(zenith, models.OrderStatusInProgress, start.Add(2*time.Hour), 400),
		dashOrder(zenith, models.OrderStatusCompleted, start.Add(3*time.Hour), 10),
	}
	now := start.Add(24 * time.Hour)
	d := BuildDashboard(orders, []*models.Party{acme, zenith, idle}, now)

	assert.Equal(t, 4, d.TotalOrders)
	assert.Equal(t, 3, d.TotalParties)
	assert.True(t, decimal.NewFromInt(560).Equal(d.TotalMeters))
	assert.Equal(t, now, d.GeneratedAt)

	require.Len(t, d.Statuses, 4)
	assert.Equal(t, models.OrderStatusPending, d.Statuses[0].Status)
	assert.Equal(t, int64(2), d.Statuses[0].Count)
	assert.Equal(t, 50.0, d.Statuses[0].Percent)
	assert.Equal(t, "In Progress", d.Statuses[1].Label)
	assert.Equal(t, 25.0, d.Statuses[1].Percent)
	assert.Equal(t, int64(0), d.Statuses[3].Count, "cancelled stays in the legend")

	circumference := 2 * math.Pi * chartRadius
	segs := d.Chart.Segments
	require.Len(t, segs, 4)
	assert.Equal(t, int64(4), d.Chart.Total)
	assert.InDelta(t, circumference/2, segs[0].DashLength, 0.001)
	assert.InDelta(t, 0, segs[0].DashOffset, 0.001)
	assert.InDelta(t, -circumference/2, segs[1].DashOffset, 0.001)
	assert.InDelta(t, -circumference*0.75, segs[2].DashOffset, 0.001)
	assert.Zero(t, segs[3].DashLength)

	require.Len(t, d.RecentOrders, 4)
	assert.Equal(t, orders[3].ID, d.RecentOrders[0].ID, "newest first")
	assert.Equal(t, "Zenith", d.RecentOrders[0].PartyName)

	require.Len(t, d.TopParties, 2, "parties without orders are not ranked")
	assert.Equal(t, "Zenith", d.TopParties[0].Name)
	assert.Equal(t, 2, d.TopParties[0].Orders)
	assert.True(t, decimal.NewFromInt(410).Equal(d.TopParties[0].Meters))
	assert.Equal(t, "Acme", d.TopParties[1].Name)
}

func TestBuildDashboard_CapsRecentOrders(t *testing.T) {
	party := &models.Party{ID: primitive.NewObjectID(), Name: "Acme"}
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var orders []*models.Order
	for i := 0; i < 8; i++ {
		orders = append(orders, dashOrder(party, models.OrderStatusPending, start.Add(time.Duration(i)*time.Minute), 1))
	}

	d := BuildDashboard(orders, []*models.Party{party}, start)
	require.Len(t, d.RecentOrders, recentOrderCap)
	assert.Equal(t, orders[7].ID, d.RecentOrders[0].ID)
	assert.Equal(t, orders[3].ID, d.RecentOrders[4].ID)
}

func TestBuildDashboard_Empty(t *testing.T) {
	d := BuildDashboard(nil, nil, time.Now())
	assert.Zero(t, d.TotalOrders)
	assert.True(t, d.TotalMeters.IsZero())
	assert.Empty(t, d.RecentOrders)
	assert.Empty(t, d.TopParties)
	for _, st := range d.Statuses {
		assert.Zero(t, st.Percent)
	}
	assert.Zero(t, d.Chart.Total)
}

func TestDashboardService_CachesUntilInvalidated(t *testing.T) {
	repos := testutil.NewRepos()
	party := repos.SeedParty(t, "Acme")
	quality := repos.SeedQuality(t, "Twill")
	repos.SeedOrder(t, "ORD-0001", party, quality)
	svc := NewDashboardService(repos.Orders, repos.Parties, time.Minute)

	d, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, d.TotalOrders)
	assert.True(t, decimal.NewFromInt(100).Equal(d.TotalMeters))

	repos.SeedOrder(t, "ORD-0002", party, quality)
	d, err = svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, d.TotalOrders, "served from cache")

	svc.Invalidate()
	d, err = svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, d.TotalOrders)
}

func TestDashboardService_ZeroTTLAlwaysLoads(t *testing.T) {
	repos := testutil.NewRepos()
	party := repos.SeedParty(t, "Acme")
	svc := NewDashboardService(repos.Orders, repos.Parties, 0)

	d, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, d.TotalOrders)

	repos.SeedOrder(t, "ORD-0001", party, repos.SeedQuality(t, "Twill"))
	d, err = svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, d.TotalOrders)
}
