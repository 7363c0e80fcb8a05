//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkaadapter "github.com/couchcryptid/cdr-indicators-etl/internal/adapter/kafka"
	"github.com/couchcryptid/cdr-indicators-etl/internal/config"
	"github.com/couchcryptid/cdr-indicators-etl/internal/domain"
	"github.com/couchcryptid/cdr-indicators-etl/internal/indicator"
	"github.com/couchcryptid/cdr-indicators-etl/internal/observability"
	"github.com/couchcryptid/cdr-indicators-etl/internal/pipeline"
)

const testSinkTopic = "test-cdr-indicators"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0", kafka.WithClusterID("cdr-test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

// published holds a message read back from the sink topic.
type published struct {
	Row     domain.OutputRow
	Key     string
	Headers map[string]string
}

func readAll(ctx context.Context, t *testing.T, broker string, n int) []published {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testSinkTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer consumer.Close()

	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	out := make([]published, 0, n)
	for len(out) < n {
		msg, err := consumer.ReadMessage(readCtx)
		require.NoError(t, err, "read from sink topic")
		var row domain.OutputRow
		require.NoError(t, json.Unmarshal(msg.Value, &row))
		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		out = append(out, published{Row: row, Key: string(msg.Key), Headers: headers})
	}
	return out
}

type staticExtractor struct{ src domain.Sources }

func (s staticExtractor) Extract(context.Context) (domain.Sources, error) { return s.src, nil }

// TestPipelinePublishesToKafka runs a pipeline whose only loader is the
// Kafka writer and checks every output row arrives with its key and headers.
func TestPipelinePublishesToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaSinkTopic: testSinkTopic}
	writer := kafkaadapter.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	src := domain.Sources{
		Surveys:  map[string]domain.Table{},
		Metadata: []domain.Metadata{{Code: "IRI-6", Designation: "Points d'eau", Unit: domain.UnitCount}},
		Legacy: []domain.LegacyRecord{
			{Code: "IRI-6", Year: 2021, Country: "NE", Value: domain.Float(4)},
		},
	}
	p := pipeline.New(staticExtractor{src: src}, []pipeline.Loader{writer}, discardLogger(),
		observability.NewMetricsForTesting(), pipeline.Options{Calculators: []indicator.Calculator{}})

	sum, err := p.Run(ctx)
	require.NoError(t, err)
	require.Positive(t, sum.Rows)

	msgs := readAll(ctx, t, broker, sum.Rows)
	byKey := make(map[string]published, len(msgs))
	for _, m := range msgs {
		assert.Equal(t, sum.RunID, m.Headers["run_id"])
		assert.Equal(t, m.Row.IndicatorCode, m.Headers["indicator_code"])
		byKey[m.Key] = m
	}

	niger, ok := byKey["IRI-6|Niger||2021"]
	require.True(t, ok, "national row published")
	require.NotNil(t, niger.Row.Value)
	assert.InDelta(t, 4, *niger.Row.Value, 0)
	assert.Equal(t, "PRAPS1", niger.Row.Project)

	_, ok = byKey["IRI-6|"+domain.RegionalCountry+"||2021"]
	assert.True(t, ok, "regional row published")
}
