package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// MessageHandler handles one parsed notification batch. A returned error leaves
// the message uncommitted and stops the consumer.
type MessageHandler func(ctx context.Context, msg *IncomingMessage) error

// messageReader is the part of *kafka.Reader the consumer drives
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type ConsumerConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
	// FromBeginning replays the topic when the group has no committed offset
	FromBeginning bool
}

// Consumer feeds the catalog notification stream to a handler one message at a
// time. The offset of a message is committed only after it was handled or found
// unparseable. A handler error stops the consumer with that message uncommitted,
// so it is redelivered once the process restarts.
type Consumer struct {
	reader  messageReader
	topic   string
	group   string
	logger  ectologger.Logger
	handler MessageHandler

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
	lastErr error
	failure error
}

func NewConsumer(cfg ConsumerConfig, logger ectologger.Logger, handler MessageHandler) *Consumer {
	startOffset := kafka.LastOffset
	if cfg.FromBeginning {
		startOffset = kafka.FirstOffset
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: startOffset,
	})
	return newConsumer(reader, cfg.Topic, cfg.ConsumerGroup, logger, handler)
}

func newConsumer(reader messageReader, topic, group string, logger ectologger.Logger, handler MessageHandler) *Consumer {
	return &Consumer{
		reader:  reader,
		topic:   topic,
		group:   group,
		logger:  logger,
		handler: handler,
		done:    make(chan struct{}),
	}
}

// Start runs the fetch loop in the background until Stop or ctx is done
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(c.done)
		c.run(ctx)
	}()

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"topic": c.topic,
		"group": c.group,
	}).Info("Listening for catalog notifications")
	return nil
}

// Done is closed once the fetch loop has exited
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

// Err returns the handler error that stopped the consumer, or nil
func (c *Consumer) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failure
}

// Stop waits for the message in flight and closes the reader
func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	return c.reader.Close()
}

func (c *Consumer) run(ctx context.Context) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, io.EOF):
			c.logger.WithContext(ctx).Info("Notification stream closed")
			return
		case err != nil:
			c.setErr(err)
			c.logger.WithContext(ctx).WithError(err).Error("Failed to fetch notification")
			continue
		}
		c.setErr(nil)
		if err := c.handle(ctx, msg); err != nil {
			if ctx.Err() != nil {
				c.logger.WithContext(ctx).Info("Notification stream closed")
				return
			}
			c.mu.Lock()
			c.lastErr = err
			c.failure = err
			c.mu.Unlock()
			c.logger.WithContext(ctx).WithError(err).Error("Stopping notification consumer")
			return
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Consumer.handle")
	defer span.End()

	log := c.logger.WithContext(ctx).WithFields(map[string]any{
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	incoming := newIncomingMessage(msg)
	if err := incoming.ParseNotifications(); err != nil {
		metrics.InboundMessages.WithLabelValues("malformed").Inc()
		log.WithError(err).Error("Dropping unparseable notification message")
		c.commit(ctx, msg, log)
		return nil
	}

	if err := c.handler(ctx, incoming); err != nil {
		metrics.InboundMessages.WithLabelValues("failed").Inc()
		log.WithError(err).Errorf("Failed to handle notifications, leaving offset uncommitted: %+v", err)
		return err
	}

	metrics.InboundMessages.WithLabelValues("handled").Inc()
	c.commit(ctx, msg, log)
	return nil
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message, log ectologger.Logger) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		log.WithError(err).Error("Failed to commit offset")
	}
}

func (c *Consumer) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err
}

// PingContext reports the last fetch error, or nil once a fetch succeeded again.
// After a handler error it keeps reporting that error.
func (c *Consumer) PingContext(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}
