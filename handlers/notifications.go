package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"gatedesk/logging"
	"gatedesk/middleware"
	"gatedesk/models"
	"gatedesk/notifications"
)

type NotificationHandler struct {
	log    *notifications.Log
	logger *zap.Logger
}

func NewNotificationHandler(log *notifications.Log, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{log: log, logger: logger}
}

type NotificationsResponse struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
}

type UnreadResponse struct {
	Unread int `json:"unread"`
}

// Collection lists the log on GET and clears it on DELETE.
func (h *NotificationHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, NotificationsResponse{
			Notifications: h.log.List(),
			Unread:        h.log.UnreadCount(),
		})
	case http.MethodDelete:
		id, _ := middleware.GetIdentityFromContext(r.Context())
		h.log.ClearAll(r.Context())
		logging.Audit(h.logger, id.Code, logging.ActionClearNotifications, "")
		writeJSON(w, http.StatusOK, UnreadResponse{Unread: 0})
	default:
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// UnreadCount returns the badge count.
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, UnreadResponse{Unread: h.log.UnreadCount()})
}

// MarkRead flags the entry named by the {id} path value. Marking an entry twice is not an error.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.PathValue("id")
	if !h.log.MarkRead(r.Context(), id) && !h.exists(id) {
		writeError(w, "Notification not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, UnreadResponse{Unread: h.log.UnreadCount()})
}

// MarkAllRead flags every entry.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.log.MarkAllRead(r.Context())
	writeJSON(w, http.StatusOK, UnreadResponse{Unread: 0})
}

func (h *NotificationHandler) exists(id string) bool {
	for _, n := range h.log.List() {
		if n.ID == id {
			return true
		}
	}
	return false
}
