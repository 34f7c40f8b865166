package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"issuetrack/pkg/logger"
)

// ConsumerConfig configures the activity log worker
type ConsumerConfig struct {
	Brokers      []string
	GroupID      string
	Topic        string
	OffsetOldest bool
}

// Consumer drains the activity topic into the structured log.
type Consumer struct {
	group  sarama.ConsumerGroup
	topic  string
	logger *logger.Logger
}

func NewConsumer(cfg *ConsumerConfig, log *logger.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = time.Second
	if cfg.OffsetOldest {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &Consumer{group: group, topic: cfg.Topic, logger: log}, nil
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	go func() {
		for err := range c.group.Errors() {
			c.logger.Error("Activity consumer error", slog.Any("error", err))
		}
	}()

	handler := &groupHandler{logger: c.logger}
	for {
		if err := c.group.Consume(ctx, []string{c.topic}, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.logger.Error("Activity consume failed", slog.Any("error", err))
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type groupHandler struct {
	logger *logger.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			event, err := DecodeMessage(message)
			if err != nil {
				// poison messages are skipped, not retried
				h.logger.Warn("Skipping malformed activity event",
					slog.Int64("offset", message.Offset),
					slog.Any("error", err),
				)
			} else {
				h.record(session.Context(), event)
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *groupHandler) record(ctx context.Context, event *Event) {
	h.logger.InfoContext(ctx, "Activity",
		slog.String("event_id", event.ID.String()),
		slog.String("type", string(event.Type)),
		slog.String("actor_id", event.ActorID),
		slog.String("subject_id", event.SubjectID),
		slog.Any("metadata", event.Metadata),
		slog.Time("occurred_at", event.OccurredAt),
	)
}

// DecodeMessage parses one activity record.
func DecodeMessage(message *sarama.ConsumerMessage) (*Event, error) {
	var event Event
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal activity event: %w", err)
	}
	if event.Type == "" {
		return nil, errors.New("activity event without type")
	}
	return &event, nil
}
