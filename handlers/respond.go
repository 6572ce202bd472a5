package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"gatedesk/store"
	"gatedesk/upstream"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// maxBodyBytes bounds request bodies; every request here is a small JSON object.
const maxBodyBytes = 64 << 10

// decodeBody decodes a JSON request body into dst and runs its validate tags.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// statusForError maps store and upstream failures to an HTTP status and client message.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNoSession):
		return http.StatusUnauthorized, "No operator is signed in"
	case errors.Is(err, store.ErrClosed):
		return http.StatusServiceUnavailable, "Service is shutting down"
	case errors.Is(err, upstream.ErrUnavailable):
		return http.StatusServiceUnavailable, upstream.ErrUnavailable.Error()
	case errors.Is(err, upstream.ErrNoToken):
		return http.StatusBadGateway, upstream.ErrNoToken.Error()
	case errors.Is(err, upstream.ErrUnauthorized):
		return http.StatusBadGateway, "Upstream rejected our credentials"
	case errors.Is(err, upstream.ErrServer):
		return http.StatusBadGateway, upstream.ErrServer.Error()
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
