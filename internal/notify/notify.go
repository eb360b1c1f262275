// Package notify publishes bet terminal transitions so that other services
// (push notifications, the payments ledger) can react without polling.
//
// Each event goes to its own NATS subject:
//
//	<prefix>.<round id>.<status>     e.g. golf.settlement.r-42.completed
//
// Subscribers can listen to one round with "golf.settlement.r-42.>" or to
// every completed bet with "golf.settlement.*.completed".
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/trentd187/golf-wagers/internal/logger"
	"github.com/trentd187/golf-wagers/internal/metrics"
	"github.com/trentd187/golf-wagers/internal/settlement"
)

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "golf.settlement"

// Publisher sends settlement events somewhere.
type Publisher interface {
	Publish(ctx context.Context, events []settlement.Event) error
	Close()
}

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subj string, data []byte) error
	Flush() error
	Drain() error
}

// NATS publishes events as JSON on core NATS subjects.
type NATS struct {
	conn   conn
	prefix string
}

// Connect dials the NATS server at url. An empty url returns a Noop publisher
// so the service runs without a broker in development.
func Connect(url, prefix string) (Publisher, error) {
	if url == "" {
		return Noop{}, nil
	}
	nc, err := nats.Connect(url,
		nats.Name("golf-wagers"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return newNATS(nc, prefix), nil
}

func newNATS(c conn, prefix string) *NATS {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATS{conn: c, prefix: strings.TrimSuffix(prefix, ".")}
}

// Subject returns the subject an event is published on.
func (n *NATS) Subject(e settlement.Event) string {
	return n.prefix + "." + token(e.RoundID) + "." + token(string(e.Status))
}

// Publish sends every event and flushes once. It stops at the first failure;
// the caller recomputes and republishes on the next mutation.
func (n *NATS) Publish(ctx context.Context, events []settlement.Event) error {
	if len(events) == 0 {
		return nil
	}
	log := logger.FromContext(ctx)
	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding event for bet %s: %w", e.BetID, err)
		}
		subject := n.Subject(e)
		if err := n.conn.Publish(subject, data); err != nil {
			log.Error("failed to publish settlement event",
				slog.String("subject", subject),
				slog.String("bet_id", e.BetID),
				slog.Any("error", err),
			)
			return fmt.Errorf("publishing %s: %w", subject, err)
		}
		metrics.SettlementEventsPublished.WithLabelValues(string(e.Status)).Inc()
		log.Debug("settlement event published", slog.String("subject", subject), slog.String("bet_id", e.BetID))
	}
	if err := n.conn.Flush(); err != nil {
		return fmt.Errorf("flushing NATS connection: %w", err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (n *NATS) Close() {
	_ = n.conn.Drain()
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, []settlement.Event) error { return nil }
func (Noop) Close() {}

var subjectToken = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_")

// token makes a value safe to use as a single subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return subjectToken.Replace(s)
}
