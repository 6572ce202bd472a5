// kv.go
// Durable key-value storage used for the check-in overlay, the notification log, the session
// identity and operator accounts. Values are opaque JSON documents.

package db

import (
	"context"
	"errors"
	"fmt"

	"gatedesk/config"
)

// Well-known keys.
const (
	KeyCheckInOverlay = "checkedInGuests"
	KeyNotifications  = "notifications"
	KeySession        = "user"
	operatorPrefix    = "operator:"
)

// ErrUnknownBackend is returned by Open for an unsupported STORAGE_BACKEND.
var ErrUnknownBackend = errors.New("unknown storage backend")

// KV is a durable key-value store.
// Get returns (nil, nil) when the key does not exist.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// OperatorKey is the storage key of an operator account.
func OperatorKey(code string) string {
	return operatorPrefix + code
}

// Open connects the backend selected by cfg.
func Open(ctx context.Context, cfg *config.Config) (KV, error) {
	switch cfg.Storage.Backend {
	case "firestore":
		return NewFirestoreDB(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsPath, cfg.Firebase.Collection)
	case "sqlite":
		return NewSQLiteDB(ctx, cfg.Storage.SQLitePath)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Storage.Backend)
	}
}
