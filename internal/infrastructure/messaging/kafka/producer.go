package kafka

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/DTI-Insight/pkg/errors"
)

var (
	ErrProducerClosed = errors.New(errors.ErrCodeMessagingError, "producer closed")
	ErrPublishFailed  = errors.New(errors.ErrCodeMessagingError, "publish failed")
)

// ProducerConfig holds configuration for the Producer.
type ProducerConfig struct {
	Brokers           []string
	ClientID          string
	Source            string
	Acks              string
	MaxRetries        int
	RetryBackoff      time.Duration
	BatchSize         int
	BatchTimeout      time.Duration
	MaxMessageBytes   int
	CompressionCodec  string
	WriteTimeout      time.Duration
	ReadTimeout       time.Duration
	SASLEnabled       bool
	SASLMechanism     string
	SASLUsername      string
	SASLPassword      string
	TLSEnabled        bool
	TLSCertPath       string
}

// ProducerMetrics holds producer counters.
type ProducerMetrics struct {
	MessagesSent   atomic.Int64
	MessagesFailed atomic.Int64
	BytesSent      atomic.Int64
	LastSentAt     atomic.Value // time.Time
	AvgLatencyMs   atomic.Int64
}

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
	Stats() kafka.WriterStats
}

// Producer publishes board events.
type Producer struct {
	writer  WriterInterface
	config  ProducerConfig
	logger  logging.Logger
	board   *prometheus.BoardMetrics
	closed  atomic.Bool
	metrics *ProducerMetrics
}

// NewProducer creates a new Producer.
func NewProducer(cfg ProducerConfig, logger logging.Logger, board *prometheus.BoardMetrics) (*Producer, error) {
	if err := ValidateProducerConfig(cfg); err != nil {
		return nil, err
	}
	cfg = applyProducerDefaults(cfg)

	transport := &kafka.Transport{
		DialTimeout: 10 * time.Second,
		ClientID:    cfg.ClientID,
	}
	tlsConfig, mech, err := securityFor(cfg.TLSEnabled, cfg.TLSCertPath, cfg.SASLEnabled, cfg.SASLMechanism, cfg.SASLUsername, cfg.SASLPassword)
	if err != nil {
		return nil, err
	}
	transport.TLS = tlsConfig
	transport.SASL = mech

	var requiredAcks kafka.RequiredAcks
	switch cfg.Acks {
	case "none":
		requiredAcks = kafka.RequireNone
	case "all":
		requiredAcks = kafka.RequireAll
	default:
		requiredAcks = kafka.RequireOne
	}

	var compression kafka.Compression
	switch cfg.CompressionCodec {
	case "gzip":
		compression = kafka.Gzip
	case "snappy":
		compression = kafka.Snappy
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.MaxRetries + 1,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		RequiredAcks: requiredAcks,
		Compression:  compression,
		Transport:    transport,
	}

	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Producer{
		writer:  writer,
		config:  cfg,
		logger:  logger,
		board:   board,
		metrics: &ProducerMetrics{},
	}, nil
}

func applyProducerDefaults(cfg ProducerConfig) ProducerConfig {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}
	if cfg.MaxMessageBytes == 0 {
		cfg.MaxMessageBytes = 1024 * 1024
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.Source == "" {
		cfg.Source = DefaultSource
	}
	return cfg
}

func securityFor(tlsEnabled bool, certPath string, saslEnabled bool, mechanism, user, pass string) (*tls.Config, sasl.Mechanism, error) {
	var tlsConfig *tls.Config
	if tlsEnabled {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		if certPath != "" {
			caCert, err := os.ReadFile(certPath)
			if err != nil {
				return nil, nil, errors.Wrap(err, errors.ErrCodeMessagingError, "failed to read kafka CA certificate")
			}
			pool := x509.NewCertPool()
			pool.AppendCertsFromPEM(caCert)
			tlsConfig.RootCAs = pool
		}
	}
	if !saslEnabled {
		return tlsConfig, nil, nil
	}
	var (
		mech sasl.Mechanism
		err  error
	)
	switch mechanism {
	case "PLAIN":
		mech = plain.Mechanism{Username: user, Password: pass}
	case "SCRAM-SHA-256":
		mech, err = scram.Mechanism(scram.SHA256, user, pass)
	case "SCRAM-SHA-512":
		mech, err = scram.Mechanism(scram.SHA512, user, pass)
	default:
		return nil, nil, errors.Newf(errors.ErrCodeValidation, "unsupported SASL mechanism %q", mechanism)
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeMessagingError, "failed to create SASL mechanism")
	}
	return tlsConfig, mech, nil
}

// Publish publishes a single message.
func (p *Producer) Publish(ctx context.Context, msg *ProducerMessage) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	if msg == nil || msg.Topic == "" {
		return errors.New(errors.ErrCodeValidation, "topic required")
	}
	if len(msg.Value) == 0 {
		return errors.New(errors.ErrCodeValidation, "value required")
	}
	if len(msg.Value) > p.config.MaxMessageBytes {
		return errors.New(errors.ErrCodeValidation, "message too large")
	}

	start := time.Now()
	if err := p.writer.WriteMessages(ctx, p.toKafkaMessage(msg)); err != nil {
		p.metrics.MessagesFailed.Add(1)
		prometheus.RecordPublish(p.board, msg.Topic, false)
		return errors.Wrap(err, errors.ErrCodeMessagingError, "publish failed")
	}

	latency := time.Since(start).Milliseconds()
	p.metrics.MessagesSent.Add(1)
	p.metrics.BytesSent.Add(int64(len(msg.Value)))
	p.metrics.LastSentAt.Store(time.Now())
	p.metrics.AvgLatencyMs.Store(latency)
	prometheus.RecordPublish(p.board, msg.Topic, true)

	p.logger.Debug("message published",
		logging.String("topic", msg.Topic),
		logging.Int64("latency_ms", latency))
	return nil
}

// PublishEvent wraps payload in an EventEnvelope and publishes it keyed by key.
func (p *Producer) PublishEvent(ctx context.Context, topic, eventType, key string, payload interface{}) error {
	env, err := NewEventEnvelope(eventType, p.config.Source, payload)
	if err != nil {
		return err
	}
	env.TraceID = logging.RequestIDFromContext(ctx)
	msg, err := env.ToMessage(topic)
	if err != nil {
		return err
	}
	if key != "" {
		msg.Key = []byte(key)
	}
	return p.Publish(ctx, msg)
}

// PublishEvents wraps each payload in its own EventEnvelope and writes them
// as one batch under key. Any failed message fails the call.
func (p *Producer) PublishEvents(ctx context.Context, topic, eventType, key string, payloads ...interface{}) error {
	if len(payloads) == 0 {
		return nil
	}
	traceID := logging.RequestIDFromContext(ctx)
	msgs := make([]*ProducerMessage, len(payloads))
	for i, payload := range payloads {
		env, err := NewEventEnvelope(eventType, p.config.Source, payload)
		if err != nil {
			return err
		}
		env.TraceID = traceID
		msg, err := env.ToMessage(topic)
		if err != nil {
			return err
		}
		if key != "" {
			msg.Key = []byte(key)
		}
		msgs[i] = msg
	}

	res, err := p.PublishBatch(ctx, msgs)
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		return errors.Wrap(res.Errors[0].Error, errors.ErrCodeMessagingError,
			fmt.Sprintf("%d of %d %s events not published", res.Failed, len(msgs), eventType))
	}
	return nil
}

// PublishBatch publishes multiple messages and reports per-message failures.
func (p *Producer) PublishBatch(ctx context.Context, msgs []*ProducerMessage) (*BatchPublishResult, error) {
	if p.closed.Load() {
		return nil, ErrProducerClosed
	}
	if len(msgs) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "messages empty")
	}

	kMsgs := make([]kafka.Message, len(msgs))
	for i, msg := range msgs {
		kMsgs[i] = p.toKafkaMessage(msg)
	}

	result := &BatchPublishResult{}
	err := p.writer.WriteMessages(ctx, kMsgs...)
	switch writeErrs := err.(type) {
	case nil:
		result.Succeeded = len(msgs)
	case kafka.WriteErrors:
		for i, we := range writeErrs {
			if we != nil {
				result.Failed++
				result.Errors = append(result.Errors, BatchItemError{Index: i, Topic: msgs[i].Topic, Error: we})
			} else {
				result.Succeeded++
			}
		}
	default:
		result.Failed = len(msgs)
		result.Errors = append(result.Errors, BatchItemError{Index: -1, Error: err})
	}

	p.metrics.MessagesSent.Add(int64(result.Succeeded))
	p.metrics.MessagesFailed.Add(int64(result.Failed))
	failed := make(map[int]bool, len(result.Errors))
	for _, e := range result.Errors {
		failed[e.Index] = true
	}
	for i, msg := range msgs {
		prometheus.RecordPublish(p.board, msg.Topic, !failed[i] && !failed[-1])
	}

	p.logger.Info("batch published",
		logging.Int("succeeded", result.Succeeded),
		logging.Int("failed", result.Failed))
	return result, nil
}

// GetMetrics returns a metrics snapshot.
func (p *Producer) GetMetrics() *ProducerMetrics {
	m := &ProducerMetrics{}
	m.MessagesSent.Store(p.metrics.MessagesSent.Load())
	m.MessagesFailed.Store(p.metrics.MessagesFailed.Load())
	m.BytesSent.Store(p.metrics.BytesSent.Load())
	m.AvgLatencyMs.Store(p.metrics.AvgLatencyMs.Load())
	if v := p.metrics.LastSentAt.Load(); v != nil {
		m.LastSentAt.Store(v)
	}
	return m
}

// Close closes the producer. It is safe to call more than once.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.writer.Close()
	p.logger.Info("kafka producer closed", logging.Int64("sent", p.metrics.MessagesSent.Load()))
	return err
}

func (p *Producer) toKafkaMessage(msg *ProducerMessage) kafka.Message {
	headers := make([]kafka.Header, 0, len(msg.Headers))
	for k, v := range msg.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return kafka.Message{
		Topic:     msg.Topic,
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Time:      ts,
		Partition: msg.Partition,
	}
}

// ValidateProducerConfig validates configuration.
func ValidateProducerConfig(cfg ProducerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "brokers required")
	}
	if cfg.MaxRetries < 0 {
		return errors.New(errors.ErrCodeValidation, "max retries must be >= 0")
	}
	if cfg.SASLEnabled && (cfg.SASLUsername == "" || cfg.SASLPassword == "") {
		return errors.New(errors.ErrCodeValidation, "SASL credentials required")
	}
	return nil
}

//Personal.AI order the ending
