// audit.go
// Operator actions are written as structured audit lines on the "audit" logger.

package logging

import (
	"go.uber.org/zap"
)

// Audit actions.
const (
	ActionLogin              = "login"
	ActionLogout             = "logout"
	ActionCheckIn            = "check_in"
	ActionRefresh            = "refresh"
	ActionClearNotifications = "clear_notifications"
	ActionExport             = "export"
	ActionChangePassword     = "change_password"
)

// Audit records that actor performed action.
func Audit(logger *zap.Logger, actor, action, details string) {
	if logger == nil {
		return
	}
	logger.Named("audit").Info("operator action",
		zap.String("actor", actor),
		zap.String("action", action),
		zap.String("details", details),
	)
}
