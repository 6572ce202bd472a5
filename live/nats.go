package live

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultNATSSubject carries new-guest payloads.
const DefaultNATSSubject = "guests.new"

// NATSSource subscribes to a subject whose messages are new-guest payloads.
type NATSSource struct {
	url           string
	subject       string
	reconnectWait time.Duration
	logger        *zap.Logger
}

func NewNATSSource(url, subject string, reconnectWait time.Duration, logger *zap.Logger) *NATSSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	if subject == "" {
		subject = DefaultNATSSubject
	}
	if reconnectWait <= 0 {
		reconnectWait = time.Second
	}
	return &NATSSource{url: url, subject: subject, reconnectWait: reconnectWait, logger: logger.Named("live.nats")}
}

// Run subscribes and blocks until ctx is done. The client keeps retrying an unreachable server,
// including at startup.
func (s *NATSSource) Run(ctx context.Context, handle Handler) error {
	conn, err := nats.Connect(s.url,
		nats.Name("gatedesk"),
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
		nats.ReconnectWait(s.reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			s.logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ConnectHandler(func(c *nats.Conn) {
			s.logger.Info("nats connected", zap.String("url", c.ConnectedUrl()))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			s.logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer conn.Close()

	sub, err := conn.Subscribe(s.subject, func(msg *nats.Msg) {
		handle(ctx, Event{Name: EventNewGuest, Data: msg.Data})
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.subject, err)
	}
	s.logger.Info("listening for new guests", zap.String("subject", s.subject))

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		s.logger.Warn("nats drain failed", zap.Error(err))
	}
	return nil
}
