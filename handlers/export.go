package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"gatedesk/logging"
	"gatedesk/middleware"
	"gatedesk/models"
	"gatedesk/store"
	"gatedesk/visits"
)

type ExportHandler struct {
	store  *store.Store
	logger *zap.Logger
}

func NewExportHandler(st *store.Store, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{store: st, logger: logger}
}

var exportHeader = []string{
	"Access Code",
	"Visitor",
	"Host",
	"Host Address",
	"Purpose",
	"Scheduled Date",
	"Scheduled Time",
	"Arrived At",
	"Checked In By",
	"Contact",
}

// ExportVisits writes the arrived visits of the selected period as CSV.
func (h *ExportHandler) ExportVisits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	f := visits.ParseFilter(r.URL.Query().Get("filter"))
	active := h.store.Visits(f).Active

	timestamp := h.store.Now().Format("2006-01-02_15-04-05")
	filename := fmt.Sprintf("gatedesk_visits_%s_%s.csv", f, timestamp)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(exportHeader); err != nil {
		h.logger.Error("failed to write CSV header", zap.Error(err))
		return
	}

	for _, v := range active {
		if err := writer.Write(exportRow(v)); err != nil {
			h.logger.Error("failed to write CSV row", zap.String("guest", v.ID), zap.Error(err))
			return
		}
	}

	id, _ := middleware.GetIdentityFromContext(r.Context())
	logging.Audit(h.logger, id.Code, logging.ActionExport, fmt.Sprintf("%s: %d visits", f, len(active)))
}

func exportRow(v models.Visit) []string {
	date := ""
	if !v.ScheduledAt.IsZero() {
		date = v.ScheduledAt.Format(time.DateOnly)
	}
	return []string{
		v.ID,
		v.VisitorName,
		v.HostName,
		v.HostAddress,
		v.Purpose,
		date,
		v.ScheduledTime,
		v.ArrivedAt,
		v.GuardName,
		v.ContactInfo,
	}
}
