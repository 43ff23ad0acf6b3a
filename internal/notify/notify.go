// Package notify publishes build completion events to NATS.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// BuildEvent is the JSON payload published when a build completes.
type BuildEvent struct {
	BuildID     string    `json:"build_id"`
	Builder     string    `json:"builder"`
	RootFile    string    `json:"root_file"`
	JobName     string    `json:"jobname"`
	Revision    string    `json:"revision,omitempty"`
	Outcome     string    `json:"outcome"`
	Invocations int       `json:"invocations"`
	DurationMS  int64     `json:"duration_ms"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// publisher is the subset of *nats.Conn used here.
type publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// Publisher sends BuildEvents to a subject. A nil *Publisher discards events.
type Publisher struct {
	conn    publisher
	subject string
}

// Connect dials the NATS server at url.
func Connect(url, subject string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("texbuild"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(3),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	slog.Info("NATS notifications enabled", "url", url, "subject", subject)
	return &Publisher{conn: conn, subject: subject}, nil
}

// Publish sends ev and waits for the server to acknowledge the flush.
func (p *Publisher) Publish(ctx context.Context, ev BuildEvent) error {
	if p == nil || p.conn == nil {
		return nil
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}

	slog.Debug("Published build event", "build_id", ev.BuildID, "outcome", ev.Outcome, "subject", p.subject)
	return nil
}

// Close closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
}
