package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"gatedesk/logging"
	"gatedesk/notifications"
	"gatedesk/store"
)

type CheckInHandler struct {
	store         *store.Store
	notifications *notifications.Log
	logger        *zap.Logger
}

func NewCheckInHandler(st *store.Store, log *notifications.Log, logger *zap.Logger) *CheckInHandler {
	return &CheckInHandler{store: st, notifications: log, logger: logger}
}

type CheckInRequest struct {
	Code string `json:"code" validate:"required"`
}

// CheckIn marks a guest arrived on behalf of the signed-in operator.
func (h *CheckInHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CheckInRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "Guest code is required", http.StatusBadRequest)
		return
	}

	res, err := h.store.CheckIn(r.Context(), req.Code)
	if err != nil {
		status, msg := statusForError(err)
		writeError(w, msg, status)
		return
	}

	h.notifications.Append(context.WithoutCancel(r.Context()),
		notifications.CheckedIn(res.Guest, res.Operator, res.ArrivedAt))
	logging.Audit(h.logger, res.Operator.Code, logging.ActionCheckIn, req.Code)

	writeJSON(w, http.StatusOK, res)
}
