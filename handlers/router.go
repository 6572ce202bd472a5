package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"gatedesk/auth"
	"gatedesk/db"
	"gatedesk/middleware"
	"gatedesk/notifications"
	"gatedesk/session"
	"gatedesk/store"
)

// Deps is everything the HTTP API needs.
type Deps struct {
	Store          *store.Store
	Notifications  *notifications.Log
	Sessions       *session.Store
	Operators      *db.Operators
	JWT            *auth.JWTManager
	Logger         *zap.Logger
	AllowedOrigins []string
	StorageBackend string
	LiveTransport  string
}

// NewRouter registers every route. Everything except health, login and token refresh requires
// an access token of the signed-in operator.
func NewRouter(d Deps) *http.ServeMux {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	authHandler := NewAuthHandler(d.Operators, d.Sessions, d.JWT, logger)
	dashboardHandler := NewDashboardHandler(d.Store, d.Notifications, logger)
	checkInHandler := NewCheckInHandler(d.Store, d.Notifications, logger)
	notificationHandler := NewNotificationHandler(d.Notifications, logger)
	exportHandler := NewExportHandler(d.Store, logger)
	streamHandler := NewStreamHandler(d.Store, d.Notifications, d.AllowedOrigins, logger)

	protected := middleware.AuthMiddleware(d.JWT, d.Sessions)

	mux := http.NewServeMux()

	mux.HandleFunc("/health", Health(d.StorageBackend, d.LiveTransport))
	mux.HandleFunc("/api/login", authHandler.Login)
	mux.HandleFunc("/api/refresh-token", authHandler.RefreshToken)

	mux.Handle("/api/logout", protected(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("/api/password", protected(http.HandlerFunc(authHandler.ChangePassword)))

	mux.Handle("/api/state", protected(http.HandlerFunc(dashboardHandler.State)))
	mux.Handle("/api/dashboard", protected(http.HandlerFunc(dashboardHandler.Dashboard)))
	mux.Handle("/api/visits", protected(http.HandlerFunc(dashboardHandler.Visits)))
	mux.Handle("/api/visits/export", protected(http.HandlerFunc(exportHandler.ExportVisits)))
	mux.Handle("/api/refresh", protected(http.HandlerFunc(dashboardHandler.Refresh)))
	mux.Handle("/api/chart/refresh", protected(http.HandlerFunc(dashboardHandler.RefreshChart)))
	mux.Handle("/api/guards", protected(http.HandlerFunc(dashboardHandler.Guards)))

	mux.Handle("/api/checkin", protected(http.HandlerFunc(checkInHandler.CheckIn)))

	mux.Handle("/api/notifications", protected(http.HandlerFunc(notificationHandler.Collection)))
	mux.Handle("/api/notifications/unread-count", protected(http.HandlerFunc(notificationHandler.UnreadCount)))
	mux.Handle("/api/notifications/read-all", protected(http.HandlerFunc(notificationHandler.MarkAllRead)))
	mux.Handle("/api/notifications/{id}/read", protected(http.HandlerFunc(notificationHandler.MarkRead)))

	mux.Handle("/api/stream", protected(http.HandlerFunc(streamHandler.Stream)))

	return mux
}

// Health reports liveness and which backends are configured.
func Health(storageBackend, liveTransport string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"storage": storageBackend,
			"live":    liveTransport,
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	}
}
