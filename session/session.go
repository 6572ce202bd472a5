// Package session keeps the identity of the operator signed in at this console.
package session

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"gatedesk/db"
	"gatedesk/models"
)

// Store reads and writes the session identity under the "user" key. The last identity set is
// also kept in memory, so a failing backend degrades to a process-only session.
type Store struct {
	mu     sync.Mutex
	cached *models.Identity
	kv     db.KV
	logger *zap.Logger
}

func NewStore(kv db.KV, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{kv: kv, logger: logger.Named("session")}
}

// Current returns the signed-in operator, if any.
func (s *Store) Current(ctx context.Context) (models.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return *s.cached, true
	}
	if s.kv == nil {
		return models.Identity{}, false
	}

	raw, err := s.kv.Get(ctx, db.KeySession)
	if err != nil {
		s.logger.Warn("failed to read session identity", zap.Error(err))
		return models.Identity{}, false
	}
	if raw == nil {
		return models.Identity{}, false
	}

	var id models.Identity
	if err := json.Unmarshal(raw, &id); err != nil || id.Code == "" {
		s.logger.Warn("ignoring corrupt session identity", zap.Error(err))
		return models.Identity{}, false
	}
	s.cached = &id
	return id, true
}

// Set signs id in.
func (s *Store) Set(ctx context.Context, id models.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = &id
	if s.kv == nil {
		return
	}
	raw, err := json.Marshal(id)
	if err != nil {
		s.logger.Warn("failed to encode session identity", zap.Error(err))
		return
	}
	if err := s.kv.Set(ctx, db.KeySession, raw); err != nil {
		s.logger.Warn("failed to persist session identity", zap.Error(err))
	}
}

// Clear signs the current operator out.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = nil
	if s.kv == nil {
		return
	}
	if err := s.kv.Delete(ctx, db.KeySession); err != nil {
		s.logger.Warn("failed to clear session identity", zap.Error(err))
	}
}
