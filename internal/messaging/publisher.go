// Package messaging implements the guest-facing publish capability over
// NATS. Unlike the teacher's API service (which replaced its NATS publisher
// with a WebSocket-only no-op stub once agents stopped needing it), this
// host keeps a real publisher: guest components have no other channel to
// announce events to the rest of the deployment.
package messaging

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/sandhost/capahost/internal/capability"
	"github.com/sandhost/capahost/internal/logger"
)

// PublishedMessage is the guest-facing outbound message shape.
type PublishedMessage struct {
	Topic   string `json:"topic"`
	Payload []byte `json:"payload,omitempty"`
}

// Publisher publishes guest messages onto NATS subjects, each namespaced by
// environment so that independently-deployed environments never cross
// subjects.
type Publisher struct {
	conn *nats.Conn
	env  string
}

// New connects to NATS at url and returns a Publisher that namespaces every
// guest topic as "{env}-{topic}".
func New(url, env string) (*Publisher, error) {
	if url == "" {
		return nil, capability.MissingConfig("NATS_URL")
	}

	opts := []nats.Option{
		nats.Name("capahost-publisher"),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(10),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Messaging().Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Messaging().Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Messaging().Error().Err(err).Msg("nats error")
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, capability.ConnectionRefused(fmt.Errorf("connect to nats at %s: %w", url, err))
	}

	logger.Messaging().Info().Str("url", conn.ConnectedUrl()).Msg("connected to nats")
	return &Publisher{conn: conn, env: env}, nil
}

// Subject returns the fully-namespaced subject for a guest-supplied topic.
func (p *Publisher) Subject(topic string) string {
	return fmt.Sprintf("%s-%s", p.env, topic)
}

// Publish sends msg on its namespaced subject.
func (p *Publisher) Publish(msg PublishedMessage) error {
	subject := p.Subject(msg.Topic)
	if err := p.conn.Publish(subject, msg.Payload); err != nil {
		return capability.InternalError(fmt.Errorf("publish to %s: %w", subject, err))
	}
	logger.Messaging().Debug().Str("subject", subject).Int("bytes", len(msg.Payload)).Msg("published")
	return nil
}

// Close drains pending publishes and closes the connection.
func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		return err
	}
	p.conn.Close()
	return nil
}
