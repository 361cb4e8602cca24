// Package events publishes domain events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kartikbazzad/bunbase/bunpress/internal/logger"
)

// Event subjects, relative to the configured prefix.
const (
	ArticlePublished = "article.published"
	CommentCreated   = "comment.created"
	MediaUploaded    = "media.uploaded"
	ContactSubmitted = "contact.submitted"
)

// Publisher sends an event payload on a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// Envelope is the JSON body of every event.
type Envelope struct {
	Subject    string    `json:"subject"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// NATSPublisher publishes on a core NATS connection.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// Connect opens a NATS connection. An empty url returns a Noop publisher.
func Connect(url, prefix string) (Publisher, func(), error) {
	if url == "" {
		return Noop{}, func() {}, nil
	}
	conn, err := nats.Connect(url,
		nats.Name("bunpress"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logger.Info("NATS publisher connected", "url", url, "prefix", prefix)
	p := &NATSPublisher{conn: conn, prefix: prefix}
	return p, p.Close, nil
}

// Subject joins the prefix and subject with a dot.
func Subject(prefix, subject string) string {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		return subject
	}
	return prefix + "." + subject
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload any) error {
	full := Subject(p.prefix, subject)
	data, err := json.Marshal(Envelope{Subject: full, OccurredAt: time.Now().UTC(), Data: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.conn.Publish(full, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	logger.FromContext(ctx).Debug("published event", "subject", full)
	return nil
}

func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }

// Emit publishes synchronously and only logs failures; events never fail a
// request.
func Emit(ctx context.Context, p Publisher, subject string, payload any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, subject, payload); err != nil {
		logger.FromContext(ctx).Warn("failed to publish event", "subject", subject, "error", err)
	}
}
