package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/digipin/internal/core/domain"
)

// jetStream is the part of nats.JetStreamContext used by Publisher.
type jetStream interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn   *nats.Conn
	js     jetStream
	prefix string
}

// Connect dials NATS with the reconnect policy shared by every binary.
func Connect(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}

// StreamConfig returns the stream holding agent turn events under prefix.
func StreamConfig(prefix string) nats.StreamConfig {
	return nats.StreamConfig{
		Name:      "DIGIPIN_AGENT_TURNS",
		Subjects:  []string{prefix + ".agent.>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
}

// NewPublisher enables JetStream on conn and ensures the agent turn stream exists.
func NewPublisher(conn *nats.Conn, prefix string) (*Publisher, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := StreamConfig(prefix)
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist; try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js, prefix: prefix}, nil
}

// TurnSubject is the subject agent turns are published on.
func (p *Publisher) TurnSubject() string {
	return p.prefix + ".agent.turns"
}

func (p *Publisher) PublishAgentTurn(ctx context.Context, turn *domain.AgentTurn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(p.TurnSubject(), data, nats.Context(ctx), nats.MsgId(turn.TurnID))
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}
