package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

const maxBackoff = 30 * time.Second

// Consumer reads lifecycle events from the events queue and appends one
// line per event to out.
type Consumer struct {
	url string
	out io.Writer
	log *zap.Logger
}

// NewConsumer returns a Consumer for the broker at url writing to out.
func NewConsumer(url string, out io.Writer, log *zap.Logger) *Consumer {
	return &Consumer{url: url, out: out, log: log}
}

// Run consumes until ctx is cancelled, reconnecting with exponential
// backoff whenever the broker is unreachable or drops the connection.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("broker dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return errors.Wrap(err, "channel open")
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("set qos failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(EventsQueue, true, false, false, false, nil); err != nil {
		return errors.Wrap(err, "queue declare")
	}
	msgs, err := ch.Consume(EventsQueue, "", false, false, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "queue consume")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(d.Body); err != nil {
				c.log.Error("handle event failed", zap.Error(err))
				// Reject without requeue to avoid a hot loop on a bad message.
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(body []byte) error {
	line, err := FormatLine(body)
	if err != nil {
		return err
	}
	_, err = io.WriteString(c.out, line)
	return errors.Wrap(err, "write event log")
}

// FormatLine renders one event message as a log line.  Fields are read
// loosely so messages from older publishers still produce a line.
func FormatLine(body []byte) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return "", errors.Wrap(err, "unmarshal event")
	}
	typ := cast.ToString(m["type"])
	if typ == "" {
		return "", errors.New("event without type")
	}
	at := cast.ToString(m["occurred_at"])
	if at == "" {
		at = time.Now().UTC().Format(time.RFC3339)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | listing_id=%d | listing=%q | organization_id=%d | actor_id=%d",
		at, typ,
		cast.ToUint64(m["listing_id"]),
		cast.ToString(m["listing_name"]),
		cast.ToUint64(m["organization_id"]),
		cast.ToUint64(m["actor_id"]))
	if v, ok := m["counterpart_id"]; ok && v != nil {
		fmt.Fprintf(&b, " | counterpart_id=%d", cast.ToUint64(v))
	}
	b.WriteByte('\n')
	return b.String(), nil
}
