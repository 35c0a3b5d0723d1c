package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/DTI-Insight/pkg/errors"
)

var (
	ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "consumer already running")
	ErrConsumerClosed = errors.New(errors.ErrCodeMessagingError, "consumer closed")
)

// RetryConfig defines handler retry behaviour.
type RetryConfig struct {
	MaxRetries      int
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
	// EnableDeadLetter routes exhausted messages to DeadLetterTopic(topic).
	EnableDeadLetter bool
}

// ConsumerConfig holds configuration for the Consumer.
type ConsumerConfig struct {
	Brokers            []string
	GroupID            string
	Topics             []string
	AutoOffsetReset    string
	EnableAutoCommit   bool
	AutoCommitInterval time.Duration
	SessionTimeout     time.Duration
	HeartbeatInterval  time.Duration
	MaxWait            time.Duration
	FetchMinBytes      int
	FetchMaxBytes      int
	SASLEnabled        bool
	SASLMechanism      string
	SASLUsername       string
	SASLPassword       string
	TLSEnabled         bool
	TLSCertPath        string
	RetryConfig        RetryConfig
}

// ConsumerMetrics holds consumer counters.
type ConsumerMetrics struct {
	MessagesConsumed     atomic.Int64
	MessagesProcessed    atomic.Int64
	MessagesFailed       atomic.Int64
	MessagesRetried      atomic.Int64
	MessagesDeadLettered atomic.Int64
	LastConsumedAt       atomic.Value // time.Time
	Lag                  atomic.Int64
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
	Stats() kafka.ReaderStats
}

type messagePublisher interface {
	Publish(ctx context.Context, msg *ProducerMessage) error
	Close() error
}

// Consumer dispatches messages to per-topic handlers.
type Consumer struct {
	reader ReaderInterface
	config ConsumerConfig
	logger logging.Logger
	board  *prometheus.BoardMetrics

	handlers map[string]MessageHandler
	mu       sync.RWMutex

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	deadLetter messagePublisher
	metrics    *ConsumerMetrics
}

// NewConsumer creates a new Consumer.
func NewConsumer(cfg ConsumerConfig, logger logging.Logger, board *prometheus.BoardMetrics) (*Consumer, error) {
	if err := ValidateConsumerConfig(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	if cfg.AutoOffsetReset == "" {
		cfg.AutoOffsetReset = "earliest"
	}
	if cfg.AutoCommitInterval == 0 {
		cfg.AutoCommitInterval = 5 * time.Second
	}
	if cfg.SessionTimeout == 0 {
		cfg.SessionTimeout = 30 * time.Second
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = 3 * time.Second
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = 10 * time.Second
	}
	if cfg.FetchMinBytes == 0 {
		cfg.FetchMinBytes = 1
	}
	if cfg.FetchMaxBytes == 0 {
		cfg.FetchMaxBytes = 10 * 1024 * 1024
	}

	readerCfg := kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		GroupID:           cfg.GroupID,
		GroupTopics:       cfg.Topics,
		MinBytes:          cfg.FetchMinBytes,
		MaxBytes:          cfg.FetchMaxBytes,
		MaxWait:           cfg.MaxWait,
		SessionTimeout:    cfg.SessionTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
		StartOffset:       kafka.FirstOffset,
	}
	if cfg.EnableAutoCommit {
		readerCfg.CommitInterval = cfg.AutoCommitInterval
	}
	if cfg.AutoOffsetReset == "latest" {
		readerCfg.StartOffset = kafka.LastOffset
	}

	tlsConfig, mech, err := securityFor(cfg.TLSEnabled, cfg.TLSCertPath, cfg.SASLEnabled, cfg.SASLMechanism, cfg.SASLUsername, cfg.SASLPassword)
	if err != nil {
		return nil, err
	}
	readerCfg.Dialer = &kafka.Dialer{
		Timeout:       10 * time.Second,
		DualStack:     true,
		TLS:           tlsConfig,
		SASLMechanism: mech,
	}

	var dl messagePublisher
	if cfg.RetryConfig.EnableDeadLetter {
		p, err := NewProducer(ProducerConfig{
			Brokers:       cfg.Brokers,
			SASLEnabled:   cfg.SASLEnabled,
			SASLMechanism: cfg.SASLMechanism,
			SASLUsername:  cfg.SASLUsername,
			SASLPassword:  cfg.SASLPassword,
			TLSEnabled:    cfg.TLSEnabled,
			TLSCertPath:   cfg.TLSCertPath,
		}, logger.Named("dlq"), board)
		if err != nil {
			return nil, err
		}
		dl = p
	}

	return &Consumer{
		reader:     kafka.NewReader(readerCfg),
		config:     cfg,
		logger:     logger,
		board:      board,
		handlers:   make(map[string]MessageHandler),
		deadLetter: dl,
		metrics:    &ConsumerMetrics{},
	}, nil
}

// Subscribe registers handler for topic, replacing any previous one.
func (c *Consumer) Subscribe(topic string, handler MessageHandler) error {
	if topic == "" || handler == nil {
		return errors.New(errors.ErrCodeValidation, "topic and handler required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = handler
	c.logger.Info("subscribed to topic", logging.String("topic", topic))
	return nil
}

// Unsubscribe removes the handler for topic.
func (c *Consumer) Unsubscribe(topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, topic)
	c.logger.Info("unsubscribed from topic", logging.String("topic", topic))
	return nil
}

// Start runs the consume loop in the background until ctx ends or Close is called.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.consumeLoop(ctx)

	c.logger.Info("kafka consumer started", logging.String("group", c.config.GroupID))
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("fetch message failed", logging.Err(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		c.metrics.MessagesConsumed.Add(1)
		c.metrics.LastConsumedAt.Store(time.Now())
		c.metrics.Lag.Store(m.HighWaterMark - m.Offset)

		msg := fromKafkaMessage(m)

		c.mu.RLock()
		handler, ok := c.handlers[m.Topic]
		c.mu.RUnlock()

		if !ok {
			c.logger.Warn("no handler for topic", logging.String("topic", m.Topic))
			c.commit(ctx, m)
			continue
		}

		start := time.Now()
		if err := c.processMessage(ctx, msg, handler); err != nil {
			c.metrics.MessagesFailed.Add(1)
			prometheus.RecordConsume(c.board, m.Topic, false, time.Since(start))
			if ctx.Err() != nil {
				return
			}
		} else {
			c.metrics.MessagesProcessed.Add(1)
			prometheus.RecordConsume(c.board, m.Topic, true, time.Since(start))
		}
		c.commit(ctx, m)
	}
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	if c.config.EnableAutoCommit {
		return
	}
	if err := c.reader.CommitMessages(ctx, m); err != nil {
		c.logger.Error("commit failed", logging.Err(err), logging.String("topic", m.Topic))
	}
}

// processMessage runs handler with retries. It returns an error only when
// the handler never succeeded; a dead-lettered message still counts as failed.
func (c *Consumer) processMessage(ctx context.Context, msg *Message, handler MessageHandler) error {
	err := handler(ctx, msg)
	if err == nil {
		return nil
	}

	maxRetries := c.config.RetryConfig.MaxRetries
	backoff := c.config.RetryConfig.RetryBackoff
	if backoff == 0 {
		backoff = time.Second
	}
	maxBackoff := c.config.RetryConfig.MaxRetryBackoff
	if maxBackoff == 0 {
		maxBackoff = 30 * time.Second
	}

	for i := 0; i < maxRetries; i++ {
		c.metrics.MessagesRetried.Add(1)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		if err = handler(ctx, msg); err == nil {
			return nil
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	c.logger.Error("message processing failed after retries",
		logging.String("topic", msg.Topic),
		logging.Int64("offset", msg.Offset),
		logging.Err(err))

	if c.deadLetter != nil {
		c.sendToDeadLetter(ctx, msg, err)
	}
	return err
}

func (c *Consumer) sendToDeadLetter(ctx context.Context, msg *Message, cause error) {
	headers := make(map[string]string, len(msg.Headers)+2)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[HeaderOriginalTopic] = msg.Topic
	headers[HeaderErrorMessage] = cause.Error()

	dl := &ProducerMessage{
		Topic:   DeadLetterTopic(msg.Topic),
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}
	if err := c.deadLetter.Publish(ctx, dl); err != nil {
		c.logger.Error("failed to send to dead letter queue", logging.Err(err), logging.String("topic", dl.Topic))
		return
	}
	c.metrics.MessagesDeadLettered.Add(1)
}

func fromKafkaMessage(m kafka.Message) *Message {
	msg := &Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Time,
		Headers:   make(map[string]string, len(m.Headers)),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

// GetMetrics returns a metrics snapshot.
func (c *Consumer) GetMetrics() *ConsumerMetrics {
	m := &ConsumerMetrics{}
	m.MessagesConsumed.Store(c.metrics.MessagesConsumed.Load())
	m.MessagesProcessed.Store(c.metrics.MessagesProcessed.Load())
	m.MessagesFailed.Store(c.metrics.MessagesFailed.Load())
	m.MessagesRetried.Store(c.metrics.MessagesRetried.Load())
	m.MessagesDeadLettered.Store(c.metrics.MessagesDeadLettered.Load())
	m.Lag.Store(c.metrics.Lag.Load())
	if v := c.metrics.LastConsumedAt.Load(); v != nil {
		m.LastConsumedAt.Store(v)
	}
	return m
}

// Close stops the loop and releases the reader and dead letter producer.
func (c *Consumer) Close() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	var firstErr error
	if c.reader != nil {
		firstErr = c.reader.Close()
	}
	if c.deadLetter != nil {
		if err := c.deadLetter.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	c.logger.Info("kafka consumer closed",
		logging.Int64("consumed", c.metrics.MessagesConsumed.Load()))
	return firstErr
}

// ValidateConsumerConfig validates configuration.
func ValidateConsumerConfig(cfg ConsumerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "brokers required")
	}
	if cfg.GroupID == "" {
		return errors.New(errors.ErrCodeValidation, "group id required")
	}
	if len(cfg.Topics) == 0 {
		return errors.New(errors.ErrCodeValidation, "at least one topic required")
	}
	if cfg.AutoOffsetReset != "" && cfg.AutoOffsetReset != "earliest" && cfg.AutoOffsetReset != "latest" {
		return errors.Newf(errors.ErrCodeValidation, "invalid auto offset reset %q", cfg.AutoOffsetReset)
	}
	if cfg.SASLEnabled && (cfg.SASLMechanism == "" || cfg.SASLUsername == "" || cfg.SASLPassword == "") {
		return errors.New(errors.ErrCodeValidation, "SASL mechanism and credentials required")
	}
	if cfg.RetryConfig.MaxRetries < 0 {
		return errors.New(errors.ErrCodeValidation, "max retries must be >= 0")
	}
	return nil
}
