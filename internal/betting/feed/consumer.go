package feed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/matchday/livebet/internal/betting/opportunity"
)

const (
	// DefaultSubject matches every match-event subject, e.g.
	// match.events.goal, match.events.corner_kick.
	DefaultSubject = "match.events.>"

	natsMaxReconnects = 10
	natsReconnectWait = 2 * time.Second
)

// EventHandler receives decoded match events from the wire.
type EventHandler interface {
	HandleMatchEvent(evt opportunity.MatchEvent)
}

// Consumer subscribes to the live match-event feed and forwards
// decoded events to the orchestrator.
type Consumer struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
	handler EventHandler
}

// NewConsumer connects to NATS and prepares a consumer for the given
// subject. Pass an empty subject to use DefaultSubject.
func NewConsumer(natsURL, subject string, handler EventHandler) (*Consumer, error) {
	if subject == "" {
		subject = DefaultSubject
	}

	opts := []nats.Option{
		nats.MaxReconnects(natsMaxReconnects),
		nats.ReconnectWait(natsReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &Consumer{
		nc:      nc,
		subject: subject,
		handler: handler,
	}, nil
}

// Start subscribes to the match-event subject. Messages that fail to
// decode are logged and dropped; the feed keeps running.
func (c *Consumer) Start() error {
	sub, err := c.nc.Subscribe(c.subject, func(msg *nats.Msg) {
		var evt opportunity.MatchEvent
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			log.Warn().
				Err(err).
				Str("subject", msg.Subject).
				Msg("dropping malformed match event")
			return
		}

		log.Debug().
			Str("subject", msg.Subject).
			Str("event_type", evt.Type).
			Int("minute", evt.Minute).
			Msg("received match event")

		c.handler.HandleMatchEvent(evt)
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", c.subject, err)
	}

	c.sub = sub
	log.Info().Str("subject", c.subject).Msg("match event feed started")
	return nil
}

// Close drains the subscription and closes the connection.
func (c *Consumer) Close() error {
	if c.sub != nil {
		if err := c.sub.Drain(); err != nil {
			log.Warn().Err(err).Msg("drain match event subscription")
		}
	}
	if c.nc != nil {
		c.nc.Close()
	}
	return nil
}
