// Package publisher relays order events from the outbox collection to Kafka.
package publisher

import (
	"context"
	"log/slog"
	"time"

	"github.com/fjod/farmfresh/internal/domain"
	"github.com/fjod/farmfresh/internal/repository"
	"github.com/fjod/farmfresh/pkg/circuitbreaker"
	"github.com/segmentio/kafka-go"
)

const (
	defaultTick      = time.Second
	defaultBatchSize = 100
	defaultTimeout   = 5 * time.Second
)

// MessageWriter is the part of *kafka.Writer the poller uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OutboxPoller struct {
	tick      time.Duration
	timeout   time.Duration
	batchSize int
	repo      repository.OutboxRepository
	writer    MessageWriter
	breaker   *circuitbreaker.Breaker
}

func NewOutboxPoller(repo repository.OutboxRepository, topic string, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           defaultTimeout,
	}
	return newOutboxPoller(repo, w)
}

func newOutboxPoller(repo repository.OutboxRepository, writer MessageWriter) *OutboxPoller {
	return &OutboxPoller{
		tick:      defaultTick,
		timeout:   defaultTimeout,
		batchSize: defaultBatchSize,
		repo:      repo,
		writer:    writer,
		breaker:   circuitbreaker.New(circuitbreaker.DefaultConfig("kafka-outbox")),
	}
}

// Run polls until ctx is cancelled.
func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	slog.InfoContext(ctx, "outbox poller started", "tick", p.tick)
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			slog.Info("outbox poller stopped")
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

// processUnpublishedEvents publishes one batch and returns how many events were
// marked processed. Events that fail stay in the outbox for the next tick.
func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) int {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		slog.ErrorContext(ctx, "failed to fetch outbox events", "error", err)
		return 0
	}

	published := 0
	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			if circuitbreaker.IsOpen(err) {
				slog.WarnContext(ctx, "kafka circuit open, deferring outbox batch", "pending", len(events)-published)
				return published
			}
			slog.ErrorContext(ctx, "failed to publish outbox event", "event_id", event.ID, "error", err)
			continue
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			slog.ErrorContext(ctx, "failed to mark outbox event processed", "event_id", event.ID, "error", err)
			continue
		}
		published++
	}
	return published
}

func (p *OutboxPoller) publish(ctx context.Context, event *domain.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order id keeps one order's events in order
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	return p.breaker.Do(func() error {
		ctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return p.writer.WriteMessages(ctx, msg)
	})
}
