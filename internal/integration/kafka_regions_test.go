//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/terralens/prospect-fusion/internal/adapter/kafka"
	"github.com/terralens/prospect-fusion/internal/config"
	"github.com/terralens/prospect-fusion/internal/domain"
	"github.com/terralens/prospect-fusion/internal/observability"
	"github.com/terralens/prospect-fusion/internal/pipeline"
	"github.com/terralens/prospect-fusion/internal/provider"
)

const testRegionTopic = "test-prospect-regions"

// startKafka runs a single-broker Kafka container and returns its bootstrap
// address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve kafka brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "resolve controller")

	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// publishedRegion holds a deserialized message read from the region topic.
type publishedRegion struct {
	Record  domain.RegionRecord
	Key     string
	Headers map[string]string
}

// readPublished reads a single message from the region consumer and
// deserializes it.
func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedRegion {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from region topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var rec domain.RegionRecord
	require.NoError(t, json.Unmarshal(msg.Value, &rec), "unmarshal region message")

	return publishedRegion{Record: rec, Key: string(msg.Key), Headers: headers}
}

func newRegionConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testRegionTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestPublishRegionsRoundTrip verifies the adapter layer: region records
// survive the trip through Kafka with stable keys and headers intact.
func TestPublishRegionsRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testRegionTopic)

	cfg := &config.Config{
		KafkaEnabled:     true,
		KafkaBrokers:     []string{broker},
		KafkaRegionTopic: testRegionTopic,
	}

	generated := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	regions := []domain.RegionRecord{
		{
			ID: "gold-1a2b3c4d5e6f7081", TargetID: "gold", Rank: 1,
			Label: "gold candidate 1", Category: "mineral",
			MeanScore: 0.9234, Threshold: 0.7, PixelCount: 9,
			AreaM2: 545000.5, DepthM: 60, VolumeM3: 30199234.1,
			CentroidLon: 120.35, CentroidLat: 15.65, GeneratedAt: generated,
		},
		{
			ID: "geothermal-00ff00ff00ff00ff", TargetID: "geothermal", Rank: 1,
			Label: "geothermal candidate 1", Category: "energy",
			MeanScore: 0.8011, Threshold: 0.65, PixelCount: 4,
			CentroidLon: 120.9125, CentroidLat: 15.2375, GeneratedAt: generated,
		},
	}

	publisher := kafka.NewPublisher(cfg, observability.NewMetricsForTesting(), discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	require.NoError(t, publisher.PublishRegions(ctx, regions))

	consumer := newRegionConsumer(t, broker)

	first := readPublished(ctx, t, consumer)
	assert.Equal(t, "gold-1a2b3c4d5e6f7081", first.Key)
	assert.Equal(t, "gold", first.Headers["target_id"])
	assert.Equal(t, generated.Format(time.RFC3339), first.Headers["generated_at"])
	assert.Equal(t, regions[0], first.Record)

	second := readPublished(ctx, t, consumer)
	assert.Equal(t, "geothermal-00ff00ff00ff00ff", second.Key)
	assert.Equal(t, regions[1], second.Record)

	// Republishing the same run must reuse the same keys, so a compacted
	// topic converges on one record per region.
	require.NoError(t, publisher.PublishRegions(ctx, regions))
	assert.Equal(t, first.Key, readPublished(ctx, t, consumer).Key)
	assert.Equal(t, second.Key, readPublished(ctx, t, consumer).Key)
}

// TestFusionPipelineEndToEnd runs a full cycle against real Kafka: a
// synthetic scene is fused, regions are extracted, published, and read back.
func TestFusionPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testRegionTopic)

	specPath := filepath.Join(t.TempDir(), "targets.yaml")
	require.NoError(t, os.WriteFile(specPath, []byte(`
seed: 7
grid:
  width: 32
  height: 32
aoi:
  - [120.2, 15.2]
  - [121.3, 15.2]
  - [121.3, 16.1]
  - [120.2, 16.1]
time_range:
  start: "2024-01-01"
  end: "2024-12-31"
targets:
  - id: gold
    category: mineral
    threshold: 0.25
    max_regions: 3
    weights:
      iron_oxide: 0.35
      silica: 0.25
      magnetic: 0.2
      clay: 0.2
  - id: copper
    category: mineral
    threshold: 0.25
    max_regions: 3
    weights:
      clay: 0.4
      magnetic: 0.3
      gravity: 0.3
`), 0o600))

	spec, warnings, err := config.LoadSpec(specPath)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	runner := pipeline.New(provider.NewSynthetic(discardLogger()), spec,
		discardLogger(), observability.NewMetricsForTesting())
	res, err := runner.Run(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, res.Regions, "low thresholds should always yield regions")

	cfg := &config.Config{
		KafkaEnabled:     true,
		KafkaBrokers:     []string{broker},
		KafkaRegionTopic: testRegionTopic,
	}
	publisher := kafka.NewPublisher(cfg, observability.NewMetricsForTesting(), discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	require.NoError(t, publisher.PublishRegions(ctx, res.Regions))

	consumer := newRegionConsumer(t, broker)

	wantIDs := make(map[string]domain.RegionRecord, len(res.Regions))
	for _, rec := range res.Regions {
		wantIDs[rec.ID] = rec
	}

	for range res.Regions {
		got := readPublished(ctx, t, consumer)
		want, ok := wantIDs[got.Key]
		require.True(t, ok, "unexpected region key %q", got.Key)
		delete(wantIDs, got.Key)

		assert.Equal(t, want, got.Record)
		assert.Equal(t, want.TargetID, got.Headers["target_id"])
		_, err := time.Parse(time.RFC3339, got.Headers["generated_at"])
		assert.NoError(t, err, "generated_at should be valid RFC3339")
		assert.Greater(t, got.Record.MeanScore, got.Record.Threshold)
		assert.NotZero(t, got.Record.PixelCount)
	}
	assert.Empty(t, wantIDs, "every extracted region should have been published")
}
