package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/cdr-indicators-etl/internal/config"
	"github.com/couchcryptid/cdr-indicators-etl/internal/domain"
)

// messageWriter is the subset of kafka-go's Writer used by the loader.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes indicator rows to a Kafka topic, one message per row.
// It implements pipeline.Loader.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

func (w *Writer) Name() string { return "kafka" }

// Load serializes and publishes the rows in a single WriteMessages call.
func (w *Writer) Load(ctx context.Context, rows []domain.OutputRow) error {
	if len(rows) == 0 {
		return nil
	}
	runID := domain.RunID(ctx)
	msgs := make([]kafkago.Message, len(rows))
	for i := range rows {
		msg, err := serializeToMessage(rows[i], runID)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write messages: %w", err)
	}
	w.logger.Debug("indicator rows published", "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// messageKey partitions messages by indicator series.
func messageKey(row domain.OutputRow) string {
	region := ""
	if row.Region != nil {
		region = *row.Region
	}
	return row.IndicatorCode + "|" + row.Country + "|" + region + "|" + strconv.Itoa(row.Year)
}

// serializeToMessage marshals an output row into a Kafka message.
func serializeToMessage(row domain.OutputRow, runID string) (kafkago.Message, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize indicator row: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(messageKey(row)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "indicator_code", Value: []byte(row.IndicatorCode)},
			{Key: "run_id", Value: []byte(runID)},
		},
	}, nil
}
