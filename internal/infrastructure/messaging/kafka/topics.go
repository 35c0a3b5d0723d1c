package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/pkg/errors"
	types "github.com/turtacn/DTI-Insight/pkg/types/candidate"
)

// Topic names.
const (
	TopicPredictionCompleted = "dti.prediction.completed"
	TopicStructureRendered   = "dti.structure.rendered"
	TopicBoardExported       = "dti.board.exported"

	deadLetterSuffix = ".dlq"
)

// Event types carried in EventEnvelope.EventType.
const (
	EventPredictionCompleted = "prediction.completed"
	EventStructureRendered   = "structure.rendered"
	EventBoardExported       = "board.exported"
)

// Header keys.
const (
	HeaderEventType     = "event_type"
	HeaderSource        = "source_service"
	HeaderSchemaVersion = "schema_version"
	HeaderTraceID       = "trace_id"
	HeaderOriginalTopic = "original_topic"
	HeaderErrorMessage  = "error_message"
)

// DefaultSource identifies this service in envelopes.
const DefaultSource = "dti-insight"

// DeadLetterTopic returns the dead letter topic for topic.
func DeadLetterTopic(topic string) string {
	if strings.HasSuffix(topic, deadLetterSuffix) {
		return topic
	}
	return topic + deadLetterSuffix
}

// EventEnvelope standardizes event messages.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	TraceID       string            `json:"trace_id,omitempty"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// PredictionCompletedPayload carries a backend response ready for a board pass.
type PredictionCompletedPayload struct {
	RequestID      string                   `json:"request_id"`
	SequenceLength int                      `json:"sequence_length"`
	Response       types.PredictionResponse `json:"response"`
	CompletedAt    time.Time                `json:"completed_at"`
}

// StructureRenderedPayload reports the diagram outcome of one candidate.
type StructureRenderedPayload struct {
	PassID     string    `json:"pass_id"`
	Index      int       `json:"index"`
	Label      string    `json:"label"`
	Name       string    `json:"name"`
	SMILES     string    `json:"smiles"`
	Phase      string    `json:"phase"`
	Attempt    string    `json:"attempt,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Cached     bool      `json:"cached"`
	ObjectKey  string    `json:"object_key,omitempty"`
	RenderedAt time.Time `json:"rendered_at"`
}

// BoardExportedPayload lists the objects written by an export.
type BoardExportedPayload struct {
	PassID     string    `json:"pass_id"`
	Bucket     string    `json:"bucket"`
	Keys       []string  `json:"keys"`
	ExportedAt time.Time `json:"exported_at"`
}

// NewEventEnvelope marshals payload into a fresh envelope.
func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	if eventType == "" {
		return nil, errors.New(errors.ErrCodeValidation, "event type required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	if source == "" {
		source = DefaultSource
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return errors.New(errors.ErrCodeValidation, "empty event payload")
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode event payload")
	}
	return nil
}

// ToMessage encodes the envelope as a producer message for topic.
func (e *EventEnvelope) ToMessage(topic string) (*ProducerMessage, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	headers := map[string]string{
		HeaderEventType:     e.EventType,
		HeaderSource:        e.Source,
		HeaderSchemaVersion: e.SchemaVersion,
	}
	if e.TraceID != "" {
		headers[HeaderTraceID] = e.TraceID
	}
	return &ProducerMessage{
		Topic:     topic,
		Key:       []byte(e.EventID),
		Value:     val,
		Headers:   headers,
		Timestamp: e.Timestamp,
	}, nil
}

// MessageToEventEnvelope decodes a consumed message.
func MessageToEventEnvelope(msg *Message) (*EventEnvelope, error) {
	if msg == nil || len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal envelope")
	}
	if env.EventID == "" || env.EventType == "" {
		return nil, errors.New(errors.ErrCodeValidation, "envelope missing event id or type")
	}
	return &env, nil
}

// ConnInterface abstracts kafka.Conn for testing.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager creates and inspects topics.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

// NewTopicManager dials the first broker.
func NewTopicManager(brokers []string, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessagingError, "failed to dial kafka")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &TopicManager{conn: conn, logger: logger}, nil
}

// CreateTopic creates cfg.Name; an existing topic is not an error.
func (m *TopicManager) CreateTopic(ctx context.Context, cfg TopicConfig) error {
	if cfg.Name == "" {
		return errors.New(errors.ErrCodeValidation, "topic name required")
	}
	if cfg.NumPartitions <= 0 {
		return errors.New(errors.ErrCodeValidation, "partitions must be > 0")
	}
	if cfg.ReplicationFactor <= 0 {
		return errors.New(errors.ErrCodeValidation, "replication factor must be > 0")
	}

	kCfg := kafka.TopicConfig{
		Topic:             cfg.Name,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	if cfg.RetentionMs > 0 {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: "retention.ms", ConfigValue: strconv.FormatInt(cfg.RetentionMs, 10)})
	}
	if cfg.CleanupPolicy != "" {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: "cleanup.policy", ConfigValue: cfg.CleanupPolicy})
	}
	if cfg.MaxMessageBytes > 0 {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: "max.message.bytes", ConfigValue: strconv.Itoa(cfg.MaxMessageBytes)})
	}
	for k, v := range cfg.Configs {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: k, ConfigValue: v})
	}

	if err := m.conn.CreateTopics(kCfg); err != nil {
		if exists, _ := m.TopicExists(ctx, cfg.Name); exists {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeMessagingError, "failed to create topic "+cfg.Name)
	}
	m.logger.Info("topic created", logging.String("topic", cfg.Name))
	return nil
}

// TopicExists reports whether the topic has partitions.
func (m *TopicManager) TopicExists(ctx context.Context, name string) (bool, error) {
	partitions, err := m.conn.ReadPartitions(name)
	if err != nil {
		return false, nil
	}
	return len(partitions) > 0, nil
}

// ListTopics returns the distinct topic names known to the broker.
func (m *TopicManager) ListTopics(ctx context.Context) ([]string, error) {
	partitions, err := m.conn.ReadPartitions()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessagingError, "failed to list topics")
	}
	seen := make(map[string]bool)
	var topics []string
	for _, p := range partitions {
		if !seen[p.Topic] {
			seen[p.Topic] = true
			topics = append(topics, p.Topic)
		}
	}
	return topics, nil
}

// EnsureTopics creates the missing topics in order, stopping at the first
// failure. It returns the names it created.
func (m *TopicManager) EnsureTopics(ctx context.Context, topics []TopicConfig) ([]string, error) {
	existing, err := m.ListTopics(ctx)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}
	var created []string
	for _, topic := range topics {
		if have[topic.Name] {
			continue
		}
		if err := m.CreateTopic(ctx, topic); err != nil {
			return created, err
		}
		created = append(created, topic.Name)
	}
	return created, nil
}

func (m *TopicManager) Close() error {
	return m.conn.Close()
}

// BoardTopics returns the topic layout for the given names, each followed
// later in the list by its dead letter topic. Empty names are skipped.
func BoardTopics(predictionCompleted, structureRendered, boardExported string) []TopicConfig {
	const day = int64(24 * 3600 * 1000)
	var base []TopicConfig
	for _, t := range []TopicConfig{
		{Name: predictionCompleted, NumPartitions: 6, ReplicationFactor: 1, RetentionMs: 7 * day},
		{Name: structureRendered, NumPartitions: 6, ReplicationFactor: 1, RetentionMs: 3 * day},
		{Name: boardExported, NumPartitions: 3, ReplicationFactor: 1, RetentionMs: 30 * day},
	} {
		if t.Name != "" {
			base = append(base, t)
		}
	}
	out := make([]TopicConfig, 0, 2*len(base))
	out = append(out, base...)
	for _, t := range base {
		out = append(out, TopicConfig{Name: DeadLetterTopic(t.Name), NumPartitions: 1, ReplicationFactor: 1, RetentionMs: 30 * day})
	}
	return out
}
