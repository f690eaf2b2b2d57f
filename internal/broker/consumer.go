// Package broker wraps the Kafka consumer groups the orchestrators run on.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/cognidesk/idea-vault/internal/domain"
	"github.com/cognidesk/idea-vault/internal/logger"
)

// Handler processes one decoded event. A non-nil error stops the consumer
// with the message's offset uncommitted; the group resumes from that offset
// on restart, so the event is redelivered instead of skipped. Handlers are
// expected to absorb per-idea failures themselves (writing failure statuses)
// and return errors only for infrastructure faults where halting is the
// right call.
type Handler func(ctx context.Context, event *domain.ProcessingEvent) error

// ConsumerConfig holds consumer group configuration.
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// messageReader is the slice of kafka.Reader the consumer loop uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads processing events from one consumer group and dispatches
// them to a handler sequentially. Offsets are committed only after the
// handler returns, so delivery is at-least-once. Group offsets are a single
// per-partition position: committing a later message would silently commit
// past an earlier failed one, so a handler failure stops the loop instead of
// moving on.
type Consumer struct {
	reader messageReader
	log    *logger.Logger
}

// NewConsumer creates a consumer bound to one group.
func NewConsumer(cfg *ConsumerConfig, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // synchronous commits
		StartOffset:    kafka.LastOffset,
		MaxWait:        time.Second,
	})
	return &Consumer{
		reader: reader,
		log:    log.WithField(logger.FieldComponent, "broker").WithField("group", cfg.GroupID),
	}
}

// Run fetches and handles messages until ctx is cancelled. Decode failures
// are committed and skipped since redelivery cannot fix them; a handler
// failure returns with the offset uncommitted so the group redelivers the
// message after restart.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		var event domain.ProcessingEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.log.WithError(err).Warn("dropping malformed event payload")
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				return fmt.Errorf("commit malformed message: %w", err)
			}
			continue
		}

		if err := c.handle(ctx, handler, &event); err != nil {
			c.log.WithError(err).
				WithField(logger.FieldIdeaID, event.IdeaID).
				Error("event handling failed, stopping with offset uncommitted")
			return fmt.Errorf("handle event %s at offset %d: %w", event.IdeaID, msg.Offset, err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("commit message: %w", err)
		}
	}
}

// handle runs the handler with panic isolation so one poisonous event cannot
// kill the consumer loop.
func (c *Consumer) handle(ctx context.Context, handler Handler, event *domain.ProcessingEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, event)
}

// Close shuts the reader down, committing nothing further.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
