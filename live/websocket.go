package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"gatedesk/models"
)

// IdentityProvider reports the operator signed in at this console.
type IdentityProvider interface {
	Current(ctx context.Context) (models.Identity, bool)
}

// WebSocketSource reads JSON event frames from a WebSocket endpoint. It registers as a guard
// after every connect and reconnects with capped exponential backoff until ctx is done.
type WebSocketSource struct {
	url        string
	header     http.Header
	dialer     *websocket.Dialer
	identity   IdentityProvider
	logger     *zap.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewWebSocketSource builds a source for url. token, when set, is sent as a bearer token.
func NewWebSocketSource(url, token string, identity IdentityProvider, minBackoff, maxBackoff time.Duration, logger *zap.Logger) *WebSocketSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	if minBackoff <= 0 {
		minBackoff = time.Second
	}
	if maxBackoff < minBackoff {
		maxBackoff = minBackoff
	}
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return &WebSocketSource{
		url:        url,
		header:     header,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		identity:   identity,
		logger:     logger.Named("live.ws"),
		minBackoff: minBackoff,
		maxBackoff: maxBackoff,
	}
}

func (s *WebSocketSource) backoff() retry.Backoff {
	b := retry.NewExponential(s.minBackoff)
	b = retry.WithJitterPercent(10, b)
	return retry.WithCappedDuration(s.maxBackoff, b)
}

// stableConnection is how long a connection must stay up before the backoff starts over.
const stableConnection = time.Minute

// Run connects, serves, and reconnects until ctx is done. One backoff spans dial failures and
// dropped connections.
func (s *WebSocketSource) Run(ctx context.Context, handle Handler) error {
	b := s.backoff()
	for {
		var conn *websocket.Conn
		err := retry.Do(ctx, b, func(ctx context.Context) error {
			c, _, err := s.dialer.DialContext(ctx, s.url, s.header)
			if err != nil {
				s.logger.Warn("live connection failed", zap.String("url", s.url), zap.Error(err))
				return retry.RetryableError(err)
			}
			conn = c
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("connect %s: %w", s.url, err)
		}

		s.logger.Info("live connection established", zap.String("url", s.url))
		started := time.Now()
		err = s.serve(ctx, conn, handle)
		if ctx.Err() != nil {
			s.logger.Info("live connection closed")
			return nil
		}
		if time.Since(started) >= stableConnection {
			b = s.backoff()
		}

		wait, stop := b.Next()
		if stop {
			return fmt.Errorf("live connection lost: %w", err)
		}
		s.logger.Warn("live connection lost", zap.Duration("retry_in", wait), zap.Error(err))
		if !sleep(ctx, wait) {
			return nil
		}
	}
}

// sleep waits for d and reports false when ctx ends first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *WebSocketSource) serve(ctx context.Context, conn *websocket.Conn, handle Handler) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
			_ = conn.Close()
		}
	}()

	if err := s.register(ctx, conn); err != nil {
		return err
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil || ev.Name == "" {
			s.logger.Warn("ignoring malformed live frame", zap.ByteString("frame", raw), zap.Error(err))
			continue
		}
		handle(ctx, ev)
	}
}

func (s *WebSocketSource) register(ctx context.Context, conn *websocket.Conn) error {
	if s.identity == nil {
		return nil
	}
	id, ok := s.identity.Current(ctx)
	if !ok {
		s.logger.Debug("nobody signed in, skipping live registration")
		return nil
	}
	data, err := json.Marshal(registration{Type: "guard", ID: id.Code})
	if err != nil {
		return err
	}
	if err := conn.WriteJSON(Event{Name: EventRegister, Data: data}); err != nil {
		return errors.Join(errors.New("register on live channel"), err)
	}
	return nil
}
