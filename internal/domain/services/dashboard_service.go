package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ak/millboard/internal/domain/models"
	"github.com/ak/millboard/internal/domain/repositories"
	"github.com/ak/millboard/internal/pkg/cache"
	"github.com/ak/millboard/internal/pkg/chart"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// DashboardService builds the landing page summary
type DashboardService interface {
	Summary(ctx context.Context) (*Dashboard, error)
	Invalidate()
}

type Dashboard struct {
	TotalOrders  int             `json:"total_orders"`
	TotalParties int             `json:"total_parties"`
	TotalMeters  decimal.Decimal `json:"total_meters"`
	Statuses     []StatusCount   `json:"statuses"`
	Chart        chart.Pie       `json:"chart"`
	RecentOrders []*models.Order `json:"recent_orders"`
	TopParties   []PartyVolume   `json:"top_parties"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

type StatusCount struct {
	Status  models.OrderStatus `json:"status"`
	Label   string             `json:"label"`
	Count   int64              `json:"count"`
	Percent float64            `json:"percent"`
	Color   string             `json:"color"`
}

type PartyVolume struct {
	PartyID primitive.ObjectID `json:"party_id"`
	Name    string             `json:"name"`
	Orders  int                `json:"orders"`
	Meters  decimal.Decimal    `json:"meters"`
}

const (
	dashboardKey   = "summary"
	chartRadius    = 80
	recentOrderCap = 5
	topPartyCap    = 5
)

var statusColors = map[models.OrderStatus]string{
	models.OrderStatusPending:    "#f59e0b",
	models.OrderStatusInProgress: "#3b82f6",
	models.OrderStatusCompleted:  "#10b981",
	models.OrderStatusCancelled:  "#ef4444",
}

type dashboardService struct {
	orders  repositories.OrderRepository
	parties repositories.PartyRepository
	cache   *cache.TTL[*Dashboard]
	now     func() time.Time
}

// NewDashboardService caches summaries for ttl; zero disables caching
func NewDashboardService(orders repositories.OrderRepository, parties repositories.PartyRepository, ttl time.Duration) DashboardService {
	return &dashboardService{
		orders:  orders,
		parties: parties,
		cache:   cache.NewTTL[*Dashboard](ttl),
		now:     time.Now,
	}
}

func (s *dashboardService) Invalidate() {
	s.cache.Invalidate()
}

func (s *dashboardService) Summary(ctx context.Context) (*Dashboard, error) {
	return s.cache.GetOrLoad(dashboardKey, func() (*Dashboard, error) {
		return s.load(ctx)
	})
}

func (s *dashboardService) load(ctx context.Context) (*Dashboard, error) {
	var (
		orders  []*models.Order
		parties []*models.Party
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if orders, err = s.orders.All(gctx); err != nil {
			return fmt.Errorf("failed to load orders: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if parties, err = s.parties.All(gctx); err != nil {
			return fmt.Errorf("failed to load parties: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return BuildDashboard(orders, parties, s.now()), nil
}

// BuildDashboard aggregates already loaded orders and parties
func BuildDashboard(orders []*models.Order, parties []*models.Party, now time.Time) *Dashboard {
	partyNames := make(map[primitive.ObjectID]string, len(parties))
	for _, p := range parties {
		partyNames[p.ID] = p.Name
	}

	counts := make(map[models.OrderStatus]int64, len(models.OrderStatuses))
	volumes := make(map[primitive.ObjectID]*PartyVolume)
	totalMeters := decimal.Zero
	for _, o := range orders {
		counts[o.Status]++
		meters := o.TotalQuantity()
		totalMeters = totalMeters.Add(meters)

		v, ok := volumes[o.PartyID]
		if !ok {
			v = &PartyVolume{PartyID: o.PartyID, Name: partyNames[o.PartyID], Meters: decimal.Zero}
			volumes[o.PartyID] = v
		}
		v.Orders++
		v.Meters = v.Meters.Add(meters)
	}

	total := int64(len(orders))
	statuses := make([]StatusCount, 0, len(models.OrderStatuses))
	slices := make([]chart.Slice, 0, len(models.OrderStatuses))
	for _, st := range models.OrderStatuses {
		sc := StatusCount{
			Status:  st,
			Label:   statusLabel(st),
			Count:   counts[st],
			Percent: chart.Percent(counts[st], total),
			Color:   statusColors[st],
		}
		statuses = append(statuses, sc)
		slices = append(slices, chart.Slice{Label: sc.Label, Value: sc.Count, Color: sc.Color})
	}

	recent := make([]*models.Order, len(orders))
	copy(recent, orders)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].CreatedAt.After(recent[j].CreatedAt) })
	if len(recent) > recentOrderCap {
		recent = recent[:recentOrderCap]
	}
	for _, o := range recent {
		o.PartyName = partyNames[o.PartyID]
	}

	top := make([]PartyVolume, 0, len(volumes))
	for _, v := range volumes {
		top = append(top, *v)
	}
	sort.Slice(top, func(i, j int) bool {
		if !top[i].Meters.Equal(top[j].Meters) {
			return top[i].Meters.GreaterThan(top[j].Meters)
		}
		return top[i].Name < top[j].Name
	})
	if len(top) > topPartyCap {
		top = top[:topPartyCap]
	}

	return &Dashboard{
		TotalOrders:  len(orders),
		TotalParties: len(parties),
		TotalMeters:  totalMeters,
		Statuses:     statuses,
		Chart:        chart.NewPie(chartRadius, slices),
		RecentOrders: recent,
		TopParties:   top,
		GeneratedAt:  now,
	}
}

// statusLabel turns in_progress into "In Progress"
func statusLabel(st models.OrderStatus) string {
	words := strings.Split(string(st), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
