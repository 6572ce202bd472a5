package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"gatedesk/logging"
	"gatedesk/middleware"
	"gatedesk/models"
	"gatedesk/notifications"
	"gatedesk/session"
	"gatedesk/store"
	"gatedesk/visits"
)

// DashboardHandler serves read-only views of the store and the refresh actions.
type DashboardHandler struct {
	store         *store.Store
	notifications *notifications.Log
	logger        *zap.Logger
}

func NewDashboardHandler(st *store.Store, log *notifications.Log, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{store: st, notifications: log, logger: logger}
}

// State returns the full store snapshot.
func (h *DashboardHandler) State(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

type DashboardResponse struct {
	Version             uint64             `json:"version"`
	TodayVisits         []models.Visit     `json:"todayVisits"`
	ActiveCount         int                `json:"activeCount"`
	PendingCount        int                `json:"pendingCount"`
	VisitorChartData    models.ChartSeries `json:"visitorChartData"`
	IsLoading           bool               `json:"isLoading"`
	Error               string             `json:"error,omitempty"`
	LastRefresh         time.Time          `json:"lastRefresh,omitzero"`
	UnreadNotifications int                `json:"unreadNotifications"`
}

// Dashboard returns the home page summary.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := h.store.Snapshot()
	writeJSON(w, http.StatusOK, DashboardResponse{
		Version:             snap.Version,
		TodayVisits:         snap.TodayVisits,
		ActiveCount:         len(snap.ActiveVisitors),
		PendingCount:        len(snap.PendingVisitors),
		VisitorChartData:    snap.VisitorChartData,
		IsLoading:           snap.IsLoading,
		Error:               snap.Error,
		LastRefresh:         snap.LastRefresh,
		UnreadNotifications: h.notifications.UnreadCount(),
	})
}

// Visits returns the scheduled and active buckets for the "filter" query parameter.
func (h *DashboardHandler) Visits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	f := visits.ParseFilter(r.URL.Query().Get("filter"))
	writeJSON(w, http.StatusOK, h.store.Visits(f))
}

type RefreshResponse struct {
	Snapshot store.Snapshot `json:"snapshot"`
	Error    string         `json:"error,omitempty"`
}

// Refresh re-fetches every list. Partial failures still return the snapshot, with 502.
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, _ := middleware.GetIdentityFromContext(r.Context())
	logging.Audit(h.logger, id.Code, logging.ActionRefresh, "")

	err := h.store.Refresh(r.Context())
	if errors.Is(err, store.ErrClosed) {
		writeError(w, "Service is shutting down", http.StatusServiceUnavailable)
		return
	}

	resp := RefreshResponse{Snapshot: h.store.Snapshot()}
	if err != nil {
		resp.Error = err.Error()
		writeJSON(w, http.StatusBadGateway, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// RefreshChart recomputes the derived views against the current clock.
func (h *DashboardHandler) RefreshChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.store.RefreshChartData()
	writeJSON(w, http.StatusOK, h.store.Snapshot().VisitorChartData)
}

type GuardsResponse struct {
	Guards    []models.RosterGuard `json:"guards"`
	IsLoading bool                 `json:"isLoading"`
	Error     string               `json:"error,omitempty"`
}

// Guards returns the roster with each guard's duty status.
func (h *DashboardHandler) Guards(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, signedIn := middleware.GetIdentityFromContext(r.Context())
	snap := h.store.Snapshot()
	writeJSON(w, http.StatusOK, GuardsResponse{
		Guards:    session.Roster(snap.Guards, id, signedIn, session.SessionMatchPolicy),
		IsLoading: snap.GuardsLoading,
		Error:     snap.GuardsError,
	})
}
