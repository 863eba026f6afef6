package approvals

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultWSWriteTimeout = 10 * time.Second
	defaultWSPingInterval = 30 * time.Second
)

// EventStream serves broadcaster events over WebSocket connections. Sessions
// receive only events published while they are connected.
type EventStream struct {
	broadcaster  *Broadcaster
	logger       Logger
	contextKey   string
	writeTimeout time.Duration
	pingInterval time.Duration
}

// EventStreamOption customizes an EventStream
type EventStreamOption func(*EventStream)

// WithEventStreamPingInterval sets the keepalive interval
func WithEventStreamPingInterval(d time.Duration) EventStreamOption {
	return func(s *EventStream) {
		if d > 0 {
			s.pingInterval = d
		}
	}
}

// NewEventStream returns a stream over b
func NewEventStream(b *Broadcaster, logger Logger, opts ...EventStreamOption) *EventStream {
	s := &EventStream{
		broadcaster:  b,
		logger:       normalizeLogger(logger),
		contextKey:   DefaultContextKey,
		writeTimeout: defaultWSWriteTimeout,
		pingInterval: defaultWSPingInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// RequireUpgrade rejects plain HTTP requests to the stream endpoint
func (s *EventStream) RequireUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	}
}

// Handler upgrades the connection, claims must already be in Locals
func (s *EventStream) Handler() fiber.Handler {
	return websocket.New(s.serve)
}

func (s *EventStream) serve(conn *websocket.Conn) {
	claims, _ := conn.Locals(s.contextKey).(AuthClaims)
	if claims == nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication error"))
		_ = conn.Close()
		return
	}

	sub := s.broadcaster.Subscribe(claims)
	s.logger.Info("event stream connected subject=%s:%s sessions=%d", claims.Kind(), claims.UserID(), s.broadcaster.Count())

	defer func() {
		sub.Close()
		_ = conn.Close()
		s.logger.Info("event stream disconnected subject=%s:%s dropped=%d", claims.Kind(), claims.UserID(), sub.Dropped())
	}()

	// clients never send payloads, reading only detects the close
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(s.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case event, ok := <-sub.Events():
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := conn.WriteJSON(event); err != nil {
				s.logger.Warn("event stream write failed subject=%s: %v", claims.UserID(), err)
				return
			}
		case <-ping.C:
			deadline := time.Now().Add(s.writeTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
