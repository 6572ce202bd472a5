package handlers

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatedesk/models"
	"gatedesk/store"
)

func TestRefreshAndDashboard(t *testing.T) {
	e := newEnv(t)
	token := e.login(t).Token

	status, raw := e.call(t, http.MethodGet, "/api/refresh", token, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, status)

	status, raw = e.call(t, http.MethodPost, "/api/refresh", token, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	refreshed := decode[RefreshResponse](t, raw)
	assert.Empty(t, refreshed.Error)
	assert.Len(t, refreshed.Snapshot.AllGuests, 2)
	assert.False(t, refreshed.Snapshot.LastRefresh.IsZero())

	status, raw = e.call(t, http.MethodGet, "/api/dashboard", token, nil)
	require.Equal(t, http.StatusOK, status)
	dash := decode[DashboardResponse](t, raw)
	require.Len(t, dash.TodayVisits, 1)
	assert.Equal(t, "A1", dash.TodayVisits[0].ID)
	assert.Equal(t, "09:30", dash.TodayVisits[0].ScheduledTime)
	assert.Equal(t, 1, dash.ActiveCount)
	assert.Equal(t, 1, dash.PendingCount)
	assert.False(t, dash.IsLoading)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 1, 0}, dash.VisitorChartData.Counts)

	status, raw = e.call(t, http.MethodPost, "/api/chart/refresh", token, nil)
	require.Equal(t, http.StatusOK, status)
	chart := decode[models.ChartSeries](t, raw)
	assert.Equal(t, "Oct 15", chart.Labels[6])

	status, raw = e.call(t, http.MethodGet, "/api/state", token, nil)
	require.Equal(t, http.StatusOK, status)
	snap := decode[store.Snapshot](t, raw)
	assert.Equal(t, store.StatusSucceeded, snap.Fetches[store.KindGuards].Status)
}

func TestRefresh_PartialFailureReturnsBadGateway(t *testing.T) {
	e := newEnv(t)
	token := e.login(t).Token
	e.upstream.set(func(u *upstreamStub) { u.failArrived = http.StatusInternalServerError })

	status, raw := e.call(t, http.MethodPost, "/api/refresh", token, nil)
	require.Equal(t, http.StatusBadGateway, status)
	resp := decode[RefreshResponse](t, raw)
	assert.Contains(t, resp.Error, "Upstream unavailable")
	assert.Len(t, resp.Snapshot.AllGuests, 2)
	assert.Equal(t, store.StatusFailed, resp.Snapshot.Fetches[store.KindArrived].Status)
}

func TestVisits(t *testing.T) {
	e := newEnv(t)
	token := e.login(t).Token
	status, _ := e.call(t, http.MethodPost, "/api/refresh", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, raw := e.call(t, http.MethodGet, "/api/visits?filter=week", token, nil)
	require.Equal(t, http.StatusOK, status)
	v := decode[store.Visits](t, raw)
	assert.Equal(t, "Last 7 Days", v.FilterLabel)
	require.Len(t, v.Scheduled, 1)
	assert.Equal(t, "A1", v.Scheduled[0].ID)
	require.Len(t, v.Active, 1)
	assert.Equal(t, "B2", v.Active[0].ID)
	assert.Equal(t, "Ama Owusu", v.Active[0].GuardName)
	assert.Equal(t, "14:05", v.Active[0].ArrivedAt)

	status, raw = e.call(t, http.MethodGet, "/api/visits", token, nil)
	require.Equal(t, http.StatusOK, status)
	v = decode[store.Visits](t, raw)
	assert.Equal(t, "Last 24 Hours", v.FilterLabel)
	assert.Empty(t, v.Active)
}

func TestExportVisits(t *testing.T) {
	e := newEnv(t)
	token := e.login(t).Token
	status, _ := e.call(t, http.MethodPost, "/api/refresh", token, nil)
	require.Equal(t, http.StatusOK, status)

	req, err := http.NewRequest(http.MethodGet, e.srv.URL+"/api/visits/export?filter=month", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "gatedesk_visits_month_2026-10-15_08-00-00.csv")

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, exportHeader, rows[0])
	assert.Equal(t, []string{"B2", "Bob", "Efua", "N/A", "Visit", "2026-10-14", "14:00", "14:05", "Ama Owusu", "N/A"}, rows[1])
}

func TestGuards(t *testing.T) {
	e := newEnv(t)
	token := e.login(t).Token
	status, _ := e.call(t, http.MethodPost, "/api/refresh", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, raw := e.call(t, http.MethodGet, "/api/guards", token, nil)
	require.Equal(t, http.StatusOK, status)
	resp := decode[GuardsResponse](t, raw)
	require.Len(t, resp.Guards, 2)
	assert.Equal(t, models.DutyOn, resp.Guards[0].Status)
	assert.Equal(t, models.DutyOff, resp.Guards[1].Status)
	assert.False(t, resp.IsLoading)
}
