package push

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"time"

	"NovaCS/internal/config"
	"NovaCS/internal/lib/sl"

	"github.com/gorilla/websocket"
)

const (
	pongWait         = 60 * time.Second
	pingPeriod       = 30 * time.Second
	writeWait        = 10 * time.Second
	reconnectBackoff = 2 * time.Second
)

// Subscriber maintains a websocket subscription to one topic,
// reconnecting with backoff when the connection drops. It makes no
// delivery promises across reconnects; the polling reconciler covers
// the gaps.
type Subscriber struct {
	wsURL  string
	apiKey string
	log    *slog.Logger
}

func NewSubscriber(conf *config.Config, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		wsURL:  conf.Gateway.WsURL,
		apiKey: conf.Gateway.ApiKey,
		log:    logger.With(sl.Module("push")),
	}
}

// Subscribe opens the topic stream. Events arrive on the returned
// channel until ctx ends, at which point the channel is closed.
func (s *Subscriber) Subscribe(ctx context.Context, topic string) (<-chan Event, error) {
	events := make(chan Event, 64)

	go func() {
		defer close(events)
		for {
			if err := s.run(ctx, topic, events); err != nil {
				s.log.Warn("push connection lost",
					slog.String("topic", topic), sl.Err(err))
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectBackoff):
			}
		}
	}()

	return events, nil
}

// run holds one connection open, forwarding events until it fails.
func (s *Subscriber) run(ctx context.Context, topic string, events chan<- Event) error {
	u, err := url.Parse(s.wsURL)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("topic", topic)
	q.Set("token", s.apiKey)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.log.Debug("push subscribed", slog.String("topic", topic))

	// Close the connection when ctx ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			s.log.Warn("skipping malformed push event", sl.Err(err))
			continue
		}

		select {
		case events <- event:
		case <-ctx.Done():
			return nil
		}
	}
}
