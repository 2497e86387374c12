package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusbuzz/backend/internal/models"
	"github.com/campusbuzz/backend/pkg/apperr"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type purgeCall struct {
	days int
}

type fakePurger struct {
	n     int64
	keys  []string
	err   error
	calls []purgeCall
}

func (f *fakePurger) DeleteOlderThan(_ context.Context, days int) (int64, []string, error) {
	f.calls = append(f.calls, purgeCall{days})
	return f.n, f.keys, f.err
}

func (f *fakePurger) DeleteUnverifiedOlderThan(_ context.Context, days int) (int64, []string, error) {
	f.calls = append(f.calls, purgeCall{days})
	return f.n, f.keys, f.err
}

func (f *fakePurger) DeleteReadOlderThan(_ context.Context, days int) (int64, error) {
	f.calls = append(f.calls, purgeCall{days})
	return f.n, f.err
}

type fakeObjects struct {
	fail    int
	deleted []string
}

func (f *fakeObjects) DeleteObjects(_ context.Context, keys []string) int {
	f.deleted = append(f.deleted, keys...)
	return len(keys) - f.fail
}

func TestCleaner_Actions(t *testing.T) {
	events := &fakePurger{n: 2, keys: []string{"tickets/e/1.png", "tickets/e/2.png"}}
	tickets := &fakePurger{n: 4}
	notes := &fakePurger{n: 7}
	objects := &fakeObjects{}
	c := NewCleaner(events, tickets, notes, objects, zap.NewNop())

	res, err := c.Run(context.Background(), ActionOldEvents, 0)
	require.NoError(t, err)
	assert.Equal(t, ActionOldEvents, res.Action)
	assert.EqualValues(t, 2, res.ItemsDeleted)
	assert.Empty(t, res.Errors)
	assert.Equal(t, []purgeCall{{DefaultDaysOld}}, events.calls)
	assert.Equal(t, events.keys, objects.deleted)

	res, err = c.Run(context.Background(), ActionUnverifiedTickets, 90)
	require.NoError(t, err)
	assert.EqualValues(t, 4, res.ItemsProcessed)
	assert.Equal(t, []purgeCall{{90}}, tickets.calls)

	res, err = c.Run(context.Background(), ActionReadNotifications, 14)
	require.NoError(t, err)
	assert.EqualValues(t, 7, res.ItemsDeleted)
}

func TestCleaner_ReportsImageFailures(t *testing.T) {
	events := &fakePurger{n: 1, keys: []string{"a.png", "b.png"}}
	c := NewCleaner(events, &fakePurger{}, &fakePurger{}, &fakeObjects{fail: 1}, nil)

	res, err := c.Run(context.Background(), ActionOldEvents, 30)
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "1 of 2")

	c = NewCleaner(events, &fakePurger{}, &fakePurger{}, nil, nil)
	res, err = c.Run(context.Background(), ActionOldEvents, 30)
	require.NoError(t, err)
	assert.Len(t, res.Errors, 1)
}

func TestCleaner_Errors(t *testing.T) {
	c := NewCleaner(&fakePurger{err: errors.New("deadlock")}, &fakePurger{}, &fakePurger{}, nil, nil)

	_, err := c.Run(context.Background(), "drop-everything", 30)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = c.Run(context.Background(), ActionOldEvents, 30)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

type fakeStats struct {
	err error
}

func (f fakeStats) Overview(context.Context) (*Overview, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &Overview{TotalEvents: 3, ApprovedEvents: 2, PendingEvents: 1, TotalRevenue: decimal.NewFromInt(40)}, nil
}

func (f fakeStats) RecentTickets(context.Context, int) ([]RecentTicket, error) {
	return []RecentTicket{{ID: uuid.New(), EventName: "Jazz Night"}}, nil
}

func (f fakeStats) MonthlyStats(_ context.Context, months int) ([]MonthlyStat, error) {
	return []MonthlyStat{{Year: 2026, Month: 3, EventsCreated: 3, ApprovedEvents: 2}}, nil
}

type fakeFeed struct{}

func (fakeFeed) Recent(_ context.Context, limit int) ([]models.Event, error) {
	out := make([]models.Event, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, models.Event{ID: uuid.New(), Title: "recent"})
	}
	return out, nil
}

func (fakeFeed) TopByAttendance(context.Context, int) ([]models.Event, error) {
	return []models.Event{{ID: uuid.New(), Title: "Jazz Night", AttendeesCount: 120, IsApproved: true}}, nil
}

func TestDashboard_Load(t *testing.T) {
	d := NewDashboard(fakeStats{}, fakeFeed{})
	data, err := d.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, data.Overview.PendingEvents)
	assert.Len(t, data.RecentActivity.RecentEvents, feedSize)
	assert.Len(t, data.RecentActivity.RecentTickets, 1)
	assert.Equal(t, 120, data.TopPerforming.TopEvents[0].AttendeesCount)
	assert.Len(t, data.Analytics.MonthlyStats, 1)

	_, err = NewDashboard(fakeStats{err: errors.New("timeout")}, fakeFeed{}).Load(context.Background())
	assert.Error(t, err)
}

func TestHandler_Cleanup(t *testing.T) {
	h := NewHandler(NewDashboard(fakeStats{}, fakeFeed{}),
		NewCleaner(&fakePurger{}, &fakePurger{n: 3}, &fakePurger{}, nil, nil), zap.NewNop())
	r := gin.New()
	r.POST("/admin/cleanup", h.Cleanup)
	r.GET("/admin/dashboard", h.Dashboard)

	post := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/admin/cleanup", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	w := post(`{"action":"cleanup-unverified-tickets","days_old":10}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Success bool          `json:"success"`
		Data    CleanupResult `json:"data"`
		Message string        `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.EqualValues(t, 3, body.Data.ItemsDeleted)
	assert.Equal(t, "Cleanup completed: 3 items processed", body.Message)

	assert.Equal(t, http.StatusBadRequest, post(`{}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"action":"nope"}`).Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
