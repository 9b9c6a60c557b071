// Package kafka reads the inbound catalog notification stream and writes catalog
// mutation messages.
package kafka

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"

	"github.com/Ramsey-B/fern/pkg/tracing"
)

type ProducerConfig struct {
	Brokers      []string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	// Compression is one of gzip, snappy, lz4, zstd or none. Empty means snappy.
	Compression string
}

// Producer writes catalog mutation messages. Messages are keyed by event id so
// every change to one event lands on the same partition, in order.
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
}

var codecs = map[string]compress.Compression{
	"gzip":   compress.Gzip,
	"snappy": compress.Snappy,
	"lz4":    compress.Lz4,
	"zstd":   compress.Zstd,
	"none":   compress.None,
}

func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	codec, ok := codecs[cfg.Compression]
	if !ok {
		codec = compress.Snappy
	}

	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			BatchSize:              cfg.BatchSize,
			BatchTimeout:           cfg.BatchTimeout,
			RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
			Compression:            kafka.Compression(codec),
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}
}

// Close flushes pending writes
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Publish writes one message and waits for the broker acknowledgement
func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.Publish")
	defer span.End()

	msg := kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   value,
		Headers: make([]kafka.Header, 0, len(headers)),
	}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"topic": topic,
		"key":   key,
		"bytes": len(value),
	})
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.WithError(err).Error("Failed to write catalog message")
		return err
	}
	log.Debug("Wrote catalog message")
	return nil
}
