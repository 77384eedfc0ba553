// Package bus wraps the NATS connection shared by the venue services.
package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// ErrUnavailable reports that the event-stream connection could not be
// established within the configured retry budget. An engine with a stale
// event feed must not keep matching, so callers treat this as fatal.
var ErrUnavailable = errors.New("message bus is unavailable")

const (
	DefaultConnectRetries = 10
	DefaultRetryDelay     = 5 * time.Second
)

// Message is one delivery from a subscription.
type Message struct {
	Subject string
	Data    []byte
}

// Bus is a thin client over a single NATS connection.
type Bus struct {
	nc *nats.Conn
}

// Connect dials the bus with bounded retries and backoff, returning
// ErrUnavailable once the budget is exhausted.
func Connect(url string, retries int, delay time.Duration) (*Bus, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	if retries <= 0 {
		retries = DefaultConnectRetries
	}
	if delay <= 0 {
		delay = DefaultRetryDelay
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		nc, err := nats.Connect(url)
		if err == nil {
			return &Bus{nc: nc}, nil
		}
		lastErr = err
		slog.Warn("failed to connect to message bus, retrying", "attempt", attempt, "error", err)
		if attempt < retries {
			time.Sleep(delay)
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// Publish sends a payload on the given subject.
func (b *Bus) Publish(subject string, data []byte) error {
	return b.nc.Publish(subject, data)
}

// Subscribe delivers messages matching the subject (wildcards allowed) on
// the returned channel until the context is cancelled. A single
// synchronous subscription pumped by one goroutine preserves the external
// delivery order, which the ingestion path relies on: a cancel for an
// order id is never observed before the create that produced it.
func (b *Bus) Subscribe(ctx context.Context, subject string, buffer int) (<-chan Message, error) {
	sub, err := b.nc.SubscribeSync(subject)
	if err != nil {
		return nil, err
	}

	out := make(chan Message, buffer)
	go func() {
		defer close(out)
		defer func() {
			_ = sub.Unsubscribe()
		}()

		for {
			msg, err := sub.NextMsgWithContext(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
					slog.Error("event stream subscription closed", "subject", subject, "error", err)
				}
				return
			}

			select {
			case out <- Message{Subject: msg.Subject, Data: msg.Data}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close drains and closes the underlying connection.
func (b *Bus) Close() {
	if b.nc != nil {
		_ = b.nc.Drain()
		b.nc.Close()
	}
}
