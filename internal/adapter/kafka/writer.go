package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/terralens/prospect-fusion/internal/config"
	"github.com/terralens/prospect-fusion/internal/domain"
	"github.com/terralens/prospect-fusion/internal/observability"
)

// Publisher produces region records to a Kafka topic.
type Publisher struct {
	writer  *kafkago.Writer
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured region topic.
func NewPublisher(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaRegionTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, metrics: metrics, logger: logger}
}

// PublishRegions serializes and publishes the region records from one run in
// a single WriteMessages call. Keys are the stable region IDs, so a
// compacted topic keeps exactly one record per region.
func (p *Publisher) PublishRegions(ctx context.Context, regions []domain.RegionRecord) error {
	if len(regions) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(regions))
	for i := range regions {
		msg, err := serializeRegion(regions[i])
		if err != nil {
			p.metrics.PublishErrors.Inc()
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.metrics.PublishErrors.Inc()
		return fmt.Errorf("publish %d regions: %w", len(regions), err)
	}
	p.metrics.RegionsPublished.Add(float64(len(regions)))
	p.logger.Info("regions published", "topic", p.writer.Topic, "count", len(regions))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeRegion marshals a region record into a Kafka message.
func serializeRegion(rec domain.RegionRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize region record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "target_id", Value: []byte(rec.TargetID)},
			{Key: "generated_at", Value: []byte(rec.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
