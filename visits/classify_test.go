package visits

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatedesk/models"
)

func visitAt(id string, date time.Time, hhmm string) models.Visit {
	return models.Visit{
		ID:            id,
		ScheduledAt:   time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location()),
		ScheduledTime: hhmm,
	}
}

func ids(vs []models.Visit) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.ID)
	}
	return out
}

func TestFilterUpcoming24Hours_Bounds(t *testing.T) {
	now := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	tomorrow := now.AddDate(0, 0, 1)

	in := []models.Visit{
		visitAt("later", tomorrow, "10:00"),
		visitAt("now", now, "10:00"),
		visitAt("past", now, "09:59"),
		visitAt("too-late", tomorrow, "10:01"),
		{ID: "no-date", ScheduledTime: "11:00"},
		visitAt("soon", now, "12:15"),
	}

	got := FilterUpcoming24Hours(in, now)

	assert.Equal(t, []string{"now", "soon", "later"}, ids(got))
}

func TestFilterUpcoming24Hours_ExcludesOneMillisecondPastWindow(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 59, 59, int(999*time.Millisecond), time.UTC)
	in := []models.Visit{visitAt("edge", now.AddDate(0, 0, 1), "10:00")}

	assert.Empty(t, FilterUpcoming24Hours(in, now))
}

func TestParseFilter(t *testing.T) {
	assert.Equal(t, FilterDay, ParseFilter(""))
	assert.Equal(t, FilterDay, ParseFilter("day"))
	assert.Equal(t, FilterWeek, ParseFilter("WEEK"))
	assert.Equal(t, FilterMonth, ParseFilter("month"))
	assert.Equal(t, FilterAll, ParseFilter("all"))
	assert.Equal(t, FilterAll, ParseFilter("fortnight"))
	assert.Equal(t, "Last 7 Days", FilterWeek.Label())
	assert.Equal(t, "All Time", FilterAll.Label())
}

func TestIsWithinFilterPeriod(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		date   string
		filter Filter
		want   bool
	}{
		{"2026-10-15", FilterDay, true},
		{"2026-10-14", FilterDay, false},
		{"2026-10-09", FilterWeek, true},
		{"2026-10-08", FilterWeek, false},
		{"2026-09-16", FilterMonth, true},
		{"2026-09-15", FilterMonth, false},
		{"2026-10-16", FilterWeek, false},
		{"garbage", FilterDay, false},
		{"garbage", FilterAll, true},
		{"1999-01-01", FilterAll, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsWithinFilterPeriod(tt.date, tt.filter, now), "%s/%s", tt.date, tt.filter)
	}
}

func TestActiveAndPendingVisitorsPartition(t *testing.T) {
	guests := []models.RawGuest{
		{Code: "a", IsArrived: "Y", ArrivedAt: "09:00"},
		{Code: "b", IsArrived: "Y"},
		{Code: "c", IsArrived: "N"},
	}

	active := ActiveVisitors(guests)
	pending := PendingVisitors(guests)

	require.Len(t, active, 1)
	assert.Equal(t, "a", active[0].Code)
	require.Len(t, pending, 2)
	assert.Equal(t, "b", pending[0].Code)
	assert.Equal(t, "c", pending[1].Code)
}

func TestScheduledBucket_AscendingFromStartOfToday(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	all := []models.RawGuest{
		{Code: "tomorrow", IsArrived: "N", ScheduledDate: "2026-10-16", ArrivalTimeCode: "800"},
		{Code: "this-morning", IsArrived: "N", ScheduledDate: "2026-10-15", ArrivalTimeCode: "730"},
		{Code: "yesterday", IsArrived: "N", ScheduledDate: "2026-10-14", ArrivalTimeCode: "2300"},
		{Code: "arrived", IsArrived: "Y", ScheduledDate: "2026-10-15", ArrivalTimeCode: "1300"},
		{Code: "no-flag", ScheduledDate: "2026-10-15", ArrivalTimeCode: "1300"},
		{Code: "bad-date", IsArrived: "N", ScheduledDate: "soon", ArrivalTimeCode: "1300"},
		{Code: "afternoon", IsArrived: "N", ScheduledDate: "2026-10-15 00:00:00", ArrivalTimeCode: "14:30"},
	}

	got := ScheduledBucket(all, now)

	assert.Equal(t, []string{"this-morning", "afternoon", "tomorrow"}, ids(got))
	for _, v := range got {
		assert.Equal(t, models.StatusUpcoming, v.Status)
	}
}

func TestActiveBucket_FiltersSortsAndResolves(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	arrived := []models.RawGuest{
		{Code: "early", IsArrived: "Y", ScheduledDate: "2026-10-15", ArrivedAt: "08:10"},
		{Code: "old", IsArrived: "Y", ScheduledDate: "2026-10-01", ArrivedAt: "11:00"},
		{Code: "late", IsArrived: "Y", ScheduledDate: "2026-10-15", ArrivedAt: "2:05:00 PM"},
		{Code: "yesterday", IsArrived: "Y", ScheduledDate: "2026-10-13", ArrivedAt: "18:00"},
	}

	resolve := func(g models.RawGuest) models.ArrivalDisplay {
		return models.ArrivalDisplay{GuardName: "guard-" + g.Code, ArrivedAt: g.ArrivedAt}
	}

	got := ActiveBucket(arrived, FilterWeek, now, resolve)

	assert.Equal(t, []string{"late", "early", "yesterday"}, ids(got))
	assert.Equal(t, "guard-late", got[0].GuardName)
	assert.Equal(t, models.StatusArrived, got[0].Status)

	all := ActiveBucket(arrived, FilterAll, now, nil)
	assert.Len(t, all, 4)
}

func TestEndToEnd_UpcomingGuestLandsInScheduledBucket(t *testing.T) {
	now := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	g := models.RawGuest{Code: "C1", Name: "Alice", ArrivalTimeCode: "930", IsArrived: "N", ScheduledDate: "2026-10-15"}

	v := ToVisit(g, time.UTC)
	assert.Equal(t, "09:30", v.ScheduledTime)
	assert.Equal(t, models.StatusUpcoming, v.Status)

	scheduled := ScheduledBucket([]models.RawGuest{g}, now)
	require.Len(t, scheduled, 1)
	assert.Equal(t, "C1", scheduled[0].ID)

	assert.Empty(t, ActiveVisitors([]models.RawGuest{g}))
	assert.Equal(t, []string{"C1"}, ids(FilterUpcoming24Hours([]models.Visit{v}, now)))
}
