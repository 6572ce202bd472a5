package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"gatedesk/auth"
	"gatedesk/db"
	"gatedesk/logging"
	"gatedesk/middleware"
	"gatedesk/models"
	"gatedesk/session"
)

type AuthHandler struct {
	operators  *db.Operators
	sessions   *session.Store
	jwtManager *auth.JWTManager
	logger     *zap.Logger
	now        func() time.Time
}

func NewAuthHandler(operators *db.Operators, sessions *session.Store, jwtManager *auth.JWTManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		operators:  operators,
		sessions:   sessions,
		jwtManager: jwtManager,
		logger:     logger,
		now:        time.Now,
	}
}

type LoginRequest struct {
	Code     string `json:"code" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token        string          `json:"token"`
	RefreshToken string          `json:"refresh_token"`
	Operator     models.Identity `json:"operator"`
}

// Login checks operator credentials and makes that operator the console session.
// A previous session, if any, is replaced.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "Guard code and password are required", http.StatusBadRequest)
		return
	}

	op, err := h.operators.GetOperator(r.Context(), req.Code)
	if err != nil {
		if errors.Is(err, db.ErrOperatorNotFound) {
			h.logger.Info("login failed: unknown operator", zap.String("code", req.Code))
			writeError(w, "Invalid guard code or password", http.StatusUnauthorized)
			return
		}
		h.logger.Error("login failed: operator lookup", zap.String("code", req.Code), zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := auth.CheckPassword(req.Password, op.PasswordHash); err != nil {
		h.logger.Info("login failed: invalid password", zap.String("code", op.Code))
		writeError(w, "Invalid guard code or password", http.StatusUnauthorized)
		return
	}

	op.LastLogin = h.now()
	if err := h.operators.SaveOperator(r.Context(), op); err != nil {
		h.logger.Warn("failed to update last login", zap.String("code", op.Code), zap.Error(err))
	}

	id := models.Identity{Code: op.Code, Name: op.Name}

	token, err := h.jwtManager.GenerateToken(id)
	if err != nil {
		h.logger.Error("failed to generate token", zap.String("code", id.Code), zap.Error(err))
		writeError(w, "Failed to generate authentication token", http.StatusInternalServerError)
		return
	}

	refreshToken, err := h.jwtManager.GenerateRefreshToken(id)
	if err != nil {
		h.logger.Error("failed to generate refresh token", zap.String("code", id.Code), zap.Error(err))
		writeError(w, "Failed to generate refresh token", http.StatusInternalServerError)
		return
	}

	h.sessions.Set(r.Context(), id)
	logging.Audit(h.logger, id.Code, logging.ActionLogin, id.Name)

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:        token,
		RefreshToken: refreshToken,
		Operator:     id,
	})
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type RefreshTokenResponse struct {
	Token string `json:"token"`
}

// RefreshToken issues a new access token while the same operator is still signed in.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RefreshTokenRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	claims, err := h.jwtManager.ValidateToken(req.RefreshToken, auth.TokenRefresh)
	if err != nil {
		writeError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
		return
	}

	current, ok := h.sessions.Current(r.Context())
	if !ok || current.Code != claims.GuardCode {
		writeError(w, "Session has ended", http.StatusUnauthorized)
		return
	}

	token, err := h.jwtManager.GenerateToken(current)
	if err != nil {
		h.logger.Error("failed to generate token", zap.String("code", current.Code), zap.Error(err))
		writeError(w, "Failed to generate authentication token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, RefreshTokenResponse{
		Token: token,
	})
}

// Logout ends the console session, which revokes every token issued to it.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, _ := middleware.GetIdentityFromContext(r.Context())
	h.sessions.Clear(r.Context())
	logging.Audit(h.logger, id.Code, logging.ActionLogout, "")

	writeJSON(w, http.StatusOK, map[string]string{"message": "Signed out"})
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// ChangePassword replaces the signed-in operator's password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		writeError(w, "Operator not found in context", http.StatusUnauthorized)
		return
	}

	var req ChangePasswordRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "Current and new password are required", http.StatusBadRequest)
		return
	}

	if err := auth.ValidatePasswordStrength(req.NewPassword); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	op, err := h.operators.GetOperator(r.Context(), id.Code)
	if err != nil {
		h.logger.Error("password change: operator lookup", zap.String("code", id.Code), zap.Error(err))
		writeError(w, "Operator not found", http.StatusNotFound)
		return
	}

	if err := auth.CheckPassword(req.CurrentPassword, op.PasswordHash); err != nil {
		writeError(w, "Current password is incorrect", http.StatusUnauthorized)
		return
	}

	passwordHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		writeError(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	op.PasswordHash = passwordHash
	if err := h.operators.SaveOperator(r.Context(), op); err != nil {
		h.logger.Error("failed to store password", zap.String("code", id.Code), zap.Error(err))
		writeError(w, "Failed to update password", http.StatusInternalServerError)
		return
	}

	logging.Audit(h.logger, id.Code, logging.ActionChangePassword, "")

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Password changed successfully",
	})
}
