package admin

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/campusbuzz/backend/internal/models"
)

const (
	feedSize    = 5
	statsMonths = 6
)

// StatsStore provides the dashboard aggregates.
type StatsStore interface {
	Overview(ctx context.Context) (*Overview, error)
	RecentTickets(ctx context.Context, limit int) ([]RecentTicket, error)
	MonthlyStats(ctx context.Context, months int) ([]MonthlyStat, error)
}

// EventFeed lists events for the dashboard.
type EventFeed interface {
	Recent(ctx context.Context, limit int) ([]models.Event, error)
	TopByAttendance(ctx context.Context, limit int) ([]models.Event, error)
}

// DashboardData is the admin dashboard payload.
type DashboardData struct {
	Overview       *Overview `json:"overview"`
	RecentActivity struct {
		RecentEvents  []models.Event `json:"recentEvents"`
		RecentTickets []RecentTicket `json:"recentTickets"`
	} `json:"recentActivity"`
	TopPerforming struct {
		TopEvents []models.Event `json:"topEvents"`
	} `json:"topPerforming"`
	Analytics struct {
		MonthlyStats []MonthlyStat `json:"monthlyStats"`
	} `json:"analytics"`
}

// Dashboard assembles the admin overview.
type Dashboard struct {
	stats  StatsStore
	events EventFeed
}

// NewDashboard creates a dashboard.
func NewDashboard(stats StatsStore, events EventFeed) *Dashboard {
	return &Dashboard{stats: stats, events: events}
}

// Load runs every dashboard query concurrently.
func (d *Dashboard) Load(ctx context.Context) (*DashboardData, error) {
	var out DashboardData
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Overview, err = d.stats.Overview(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.RecentActivity.RecentEvents, err = d.events.Recent(ctx, feedSize)
		return err
	})
	g.Go(func() (err error) {
		out.RecentActivity.RecentTickets, err = d.stats.RecentTickets(ctx, feedSize)
		return err
	})
	g.Go(func() (err error) {
		out.TopPerforming.TopEvents, err = d.events.TopByAttendance(ctx, feedSize)
		return err
	})
	g.Go(func() (err error) {
		out.Analytics.MonthlyStats, err = d.stats.MonthlyStats(ctx, statsMonths)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}
