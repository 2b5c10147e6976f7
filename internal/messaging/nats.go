// Package messaging publishes activity events to NATS.
package messaging

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// SubjectPrefix is prepended to the event type to form the publish subject.
const SubjectPrefix = "carlist.events."

// Publisher sends event payloads over a NATS connection.
type Publisher struct {
	nc *nats.Conn
}

// Connect establishes a NATS connection that reconnects in the background.
func Connect(url string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("carlist-be"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	log.Info().Str("url", nc.ConnectedUrl()).Msg("Connected to NATS")
	return &Publisher{nc: nc}, nil
}

// Subject returns the subject events of eventType are published on.
func Subject(eventType string) string {
	return SubjectPrefix + eventType
}

// Publish sends data on the subject of eventType.
func (p *Publisher) Publish(eventType string, data []byte) error {
	if p.nc == nil || p.nc.IsClosed() {
		return nats.ErrConnectionClosed
	}
	return p.nc.Publish(Subject(eventType), data)
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() {
	if p.nc == nil || p.nc.IsClosed() {
		return
	}
	if err := p.nc.Drain(); err != nil {
		log.Warn().Err(err).Msg("Failed to drain NATS connection")
		p.nc.Close()
	}
}
