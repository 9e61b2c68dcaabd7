package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/attaboy/tippspiel/internal/domain"
)

// OutboxSource reads and acknowledges rows of the event_outbox table.
type OutboxSource interface {
	FetchUnpublished(ctx context.Context, limit int) ([]domain.OutboxRow, error)
	MarkPublished(ctx context.Context, ids []int64) error
}

// Publisher delivers one message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// OutboxMessage is the envelope published for every outbox event.
type OutboxMessage struct {
	EventID       string          `json:"event_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// OutboxPoller polls the event_outbox table and publishes events in order.
type OutboxPoller struct {
	source      OutboxSource
	publisher   Publisher
	metrics     *Metrics
	logger      *slog.Logger
	topicPrefix string
	interval    time.Duration
	batchSize   int
}

// NewOutboxPoller creates a new outbox poller. metrics may be nil.
func NewOutboxPoller(source OutboxSource, publisher Publisher, cfg *Config, metrics *Metrics, logger *slog.Logger) *OutboxPoller {
	return &OutboxPoller{
		source:      source,
		publisher:   publisher,
		metrics:     metrics,
		logger:      logger,
		topicPrefix: cfg.KafkaTopicPrefix,
		interval:    cfg.OutboxPollInterval,
		batchSize:   cfg.OutboxBatchSize,
	}
}

// Run polls until ctx is cancelled. It returns nil on cancellation.
func (p *OutboxPoller) Run(ctx context.Context) error {
	p.logger.Info("outbox poller started", "interval", p.interval, "batch_size", p.batchSize)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("outbox poller stopped")
			return nil
		case <-ticker.C:
			if _, err := p.PollOnce(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("outbox poll error", "error", err)
			}
		}
	}
}

// PollOnce publishes one batch and returns how many events went out.
// Publishing stops at the first failure so events leave in sequence order.
func (p *OutboxPoller) PollOnce(ctx context.Context) (int, error) {
	rows, err := p.source.FetchUnpublished(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch outbox: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	published := make([]int64, 0, len(rows))
	var publishErr error
	for _, row := range rows {
		msg, err := json.Marshal(OutboxMessage{
			EventID:       row.EventID.String(),
			AggregateType: string(row.AggregateType),
			AggregateID:   row.AggregateID,
			EventType:     string(row.EventType),
			Payload:       row.Payload,
			OccurredAt:    row.OccurredAt,
		})
		if err != nil {
			publishErr = fmt.Errorf("marshal event %s: %w", row.EventID, err)
			break
		}
		key := []byte(row.PartitionKey)
		if err := p.publisher.Publish(ctx, Topic(p.topicPrefix, row.AggregateType), key, msg); err != nil {
			publishErr = fmt.Errorf("publish event %s: %w", row.EventID, err)
			break
		}
		published = append(published, row.SeqID)
	}

	if p.metrics != nil {
		p.metrics.OutboxPublished.Add(float64(len(published)))
		if publishErr != nil {
			p.metrics.OutboxFailed.Inc()
		}
	}

	if len(published) > 0 {
		if err := p.source.MarkPublished(ctx, published); err != nil {
			return 0, fmt.Errorf("mark published: %w", err)
		}
	}

	p.logger.Debug("outbox poll complete", "published", len(published), "fetched", len(rows))
	return len(published), publishErr
}

// Topic returns the Kafka topic events of an aggregate type are published to.
func Topic(prefix string, aggregate domain.AggregateType) string {
	return prefix + "." + string(aggregate)
}
